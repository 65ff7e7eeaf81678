package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/swarmq/swarmq/internal/audit"
	"github.com/swarmq/swarmq/internal/config"
	"github.com/swarmq/swarmq/internal/exec"
	"github.com/swarmq/swarmq/internal/orchestrator"
	"github.com/swarmq/swarmq/internal/swarm"
)

// runtime bundles the pieces a live command needs: configuration, the
// scheduling rules file, the coordinator with its pool, and the optional
// audit sink.
type runtime struct {
	cfg   *config.Config
	rules *config.SchedulingRules
	coord *orchestrator.Coordinator
	store *audit.Store
}

// runtimeOptions carries command-line overrides on top of the loaded
// configuration. Zero values mean "use the config".
type runtimeOptions struct {
	workers int
	backend string
	debug   bool
	// noAudit skips the audit sink even when the config enables it.
	// The watch dashboard sets this: it consumes the event stream itself.
	noAudit bool
}

func newRuntime(opts runtimeOptions) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if opts.workers > 0 {
		cfg.Pool.InitialWorkers = opts.workers
	}
	if opts.backend != "" {
		cfg.Pool.Backend = opts.backend
	}

	rules, err := config.LoadRules(config.RulesPath())
	if err != nil {
		return nil, err
	}
	ruleTable, err := rules.RuleTable()
	if err != nil {
		return nil, err
	}

	backend, err := buildBackend(cfg)
	if err != nil {
		return nil, err
	}

	pool := swarm.NewPool(swarm.Config{
		InitialWorkers: cfg.Pool.InitialWorkers,
		MinWorkers:     cfg.Pool.MinWorkers,
		Palette:        rules.CapabilityPalette(),
		Backend:        backend,
	})

	logger := orchestrator.NopLogger()
	if opts.debug {
		logger, err = orchestrator.NewDebugLogger(orchestrator.DefaultLogPath())
		if err != nil {
			pool.Stop()
			return nil, fmt.Errorf("opening debug log: %w", err)
		}
	}

	coord, err := orchestrator.New(orchestrator.Options{
		Rules:  ruleTable,
		Pool:   pool,
		Logger: logger,
	})
	if err != nil {
		pool.Stop()
		return nil, err
	}

	rt := &runtime{cfg: cfg, rules: rules, coord: coord}

	if cfg.Audit.Enabled && !opts.noAudit {
		path := cfg.Audit.Path
		if path == "" {
			path = audit.DefaultPath()
		}
		store, err := audit.Open(path)
		if err != nil {
			coord.Stop()
			return nil, fmt.Errorf("opening audit store: %w", err)
		}
		if err := store.Migrate(); err != nil {
			store.Close()
			coord.Stop()
			return nil, fmt.Errorf("migrating audit store: %w", err)
		}
		if cfg.Audit.RetentionDays > 0 {
			retention := time.Duration(cfg.Audit.RetentionDays) * 24 * time.Hour
			if _, err := store.PurgeOldRuns(retention); err != nil {
				fmt.Fprintf(os.Stderr, "audit purge: %v\n", err)
			}
		}
		go store.Consume(pool.Events())
		rt.store = store
	}

	return rt, nil
}

// close shuts down the coordinator, which drains the event stream and
// lets the audit consumer finish before the store closes.
func (rt *runtime) close() {
	rt.coord.Stop()
	if rt.store != nil {
		rt.store.Close()
	}
}

// waitForDrain polls until the pool has no queued or running work and
// returns the final status. Held tasks are released only by completions,
// so once nothing is working or queued any remaining held tasks are
// permanently blocked by a failed dependency and waiting longer cannot
// help.
func (rt *runtime) waitForDrain(poll time.Duration) swarm.PoolStatus {
	for {
		status := rt.coord.Pool().Status()
		if status.QueuedTotal == 0 && status.Working == 0 {
			return status
		}
		time.Sleep(poll)
	}
}

func buildBackend(cfg *config.Config) (exec.Backend, error) {
	switch cfg.Pool.Backend {
	case "", "simulate":
		return nil, nil // pool default
	case "claude":
		return exec.NewLLMBackend(exec.LLMConfig{
			Model:         anthropic.Model(cfg.Anthropic.Model),
			APIKey:        cfg.Anthropic.APIKey,
			UseAWSBedrock: cfg.Anthropic.UseBedrock,
			AWSRegion:     cfg.Anthropic.AWSRegion,
			AWSProfile:    cfg.Anthropic.AWSProfile,
		})
	default:
		return nil, fmt.Errorf("unknown backend %q (want simulate or claude)", cfg.Pool.Backend)
	}
}

// parseContext turns repeated key=value flags into a goal context map.
func parseContext(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	ctx := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid context pair %q (want key=value)", pair)
		}
		// Comma-separated values become lists, matching how the
		// decomposition strategies read data_sources and friends.
		if strings.Contains(value, ",") {
			parts := strings.Split(value, ",")
			list := make([]string, 0, len(parts))
			for _, p := range parts {
				list = append(list, strings.TrimSpace(p))
			}
			ctx[key] = list
		} else {
			ctx[key] = value
		}
	}
	return ctx, nil
}
