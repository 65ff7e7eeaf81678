package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/swarmq/swarmq/internal/config"
	"github.com/swarmq/swarmq/internal/graph"
	"github.com/swarmq/swarmq/internal/swarm"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize swarmq configuration",
	Long: `Set up everything needed to run swarmq:
  - Creates the user config directory
  - Writes a default config.yaml
  - Writes a default rules.yaml (dependency rules and worker palette)
  - Checks for ANTHROPIC_API_KEY (only needed for the claude backend)

Examples:
  swarmq init           # Create missing config files
  swarmq init --force   # Overwrite existing config files`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing configuration files")
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath := config.GetUserConfigPath()
	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	printStatus("✓", fmt.Sprintf("Config directory %s", filepath.Dir(configPath)), color.FgGreen)

	if _, err := os.Stat(configPath); os.IsNotExist(err) || initForce {
		if err := config.Save(config.Default()); err != nil {
			printStatus("✗", "Writing default config failed", color.FgRed)
			return err
		}
		printStatus("✓", "Wrote default config.yaml", color.FgGreen)
	} else {
		printStatus("✓", "config.yaml exists (use --force to overwrite)", color.FgGreen)
	}

	rulesPath := config.RulesPath()
	if _, err := os.Stat(rulesPath); os.IsNotExist(err) || initForce {
		rules := &config.SchedulingRules{
			Rules:   map[string][]string(graph.DefaultRules()),
			Palette: swarm.DefaultPalette,
		}
		if err := config.SaveRules(rulesPath, rules); err != nil {
			printStatus("✗", "Writing default rules failed", color.FgRed)
			return err
		}
		printStatus("✓", "Wrote default rules.yaml", color.FgGreen)
	} else {
		printStatus("✓", "rules.yaml exists (use --force to overwrite)", color.FgGreen)
	}

	if os.Getenv("ANTHROPIC_API_KEY") == "" {
		printStatus("⚠", "ANTHROPIC_API_KEY not set (needed only for the claude backend)", color.FgYellow)
	} else {
		printStatus("✓", "ANTHROPIC_API_KEY is set", color.FgGreen)
	}

	fmt.Printf("\n%s swarmq initialization complete!\n\n", color.GreenString("✓"))
	fmt.Println("Next steps:")
	fmt.Println("  swarmq submit \"your goal here\"")
	fmt.Println("  swarmq watch \"your goal here\"   # live dashboard")
	fmt.Println("  swarmq status                    # past runs")

	return nil
}

// printStatus prints a status line with color
func printStatus(symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Printf("%s %s\n", c.Sprint(symbol), message)
}
