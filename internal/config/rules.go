package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/swarmq/swarmq/internal/graph"
)

// SchedulingRules is the operator-editable scheduling rules file: the
// dependency rule table and the worker capability palette. Both fall
// back to built-in defaults when omitted.
type SchedulingRules struct {
	// Rules maps a task type to the predecessor types it requires.
	Rules map[string][]string `yaml:"rules"`
	// Palette is the capability rotation for scale-up.
	Palette [][]string `yaml:"palette"`
}

// RuleTable returns the dependency rules, defaulting when unset, always
// validated for acyclicity.
func (s *SchedulingRules) RuleTable() (graph.Rules, error) {
	rules := graph.DefaultRules()
	if len(s.Rules) > 0 {
		rules = graph.Rules(s.Rules)
	}
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	return rules, nil
}

// CapabilityPalette returns the palette, or nil when unset so the pool
// falls back to its default rotation.
func (s *SchedulingRules) CapabilityPalette() [][]string {
	if len(s.Palette) == 0 {
		return nil
	}
	return s.Palette
}

// RulesPath returns the scheduling rules file location under XDG config.
func RulesPath() string {
	return filepath.Join(getUserConfigDir(), "rules.yaml")
}

// LoadRules reads and validates a scheduling rules file. A missing file
// yields the built-in defaults.
func LoadRules(path string) (*SchedulingRules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &SchedulingRules{}, nil
		}
		return nil, fmt.Errorf("reading rules file: %w", err)
	}

	rules := &SchedulingRules{}
	if err := yaml.Unmarshal(data, rules); err != nil {
		return nil, fmt.Errorf("parsing rules file %s: %w", path, err)
	}
	if _, err := rules.RuleTable(); err != nil {
		return nil, fmt.Errorf("rules file %s: %w", path, err)
	}
	return rules, nil
}

// SaveRules writes a scheduling rules file.
func SaveRules(path string, rules *SchedulingRules) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating rules directory: %w", err)
	}
	data, err := yaml.Marshal(rules)
	if err != nil {
		return fmt.Errorf("marshaling rules: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing rules file: %w", err)
	}
	return nil
}

// RulesWatcher reloads the scheduling rules file when it changes on
// disk. Invalid edits are reported and the previous rules stay active.
type RulesWatcher struct {
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// WatchRules watches path and invokes onChange with each successfully
// reloaded rules file. Reload or parse failures go to onError.
func WatchRules(path string, onChange func(*SchedulingRules), onError func(error)) (*RulesWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	// Watch the directory: editors often replace the file wholesale,
	// which drops a watch set on the file itself.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	rw := &RulesWatcher{
		watcher: watcher,
		done:    make(chan struct{}),
	}

	go func() {
		defer close(rw.done)
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != path {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				rules, err := LoadRules(path)
				if err != nil {
					if onError != nil {
						onError(err)
					}
					continue
				}
				onChange(rules)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				if onError != nil {
					onError(err)
				}
			}
		}
	}()

	return rw, nil
}

// Stop ends the watch and waits for the reload goroutine to exit.
func (rw *RulesWatcher) Stop() error {
	err := rw.watcher.Close()
	<-rw.done
	return err
}
