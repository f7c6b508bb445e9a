package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/templit/internal/config"
)

var initForce bool

// initCmd writes a starter configuration file
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter .templit.yml configuration file",
	Long: `Create a .templit.yml in the current directory with the default
cache and logging settings, plus an example template alias section.

Examples:
  templit init
  templit init --force   # overwrite an existing .templit.yml`,
	RunE: runInitCommand,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing .templit.yml")
}

func runInitCommand(cmd *cobra.Command, args []string) error {
	const configPath = ".templit.yml"

	if _, err := os.Stat(configPath); err == nil && !initForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", configPath)
	}

	starter := config.Config{
		Cache: config.CacheConfig{
			Dir:      config.DefaultCacheDir(),
			TTLHours: config.DefaultTTLHours,
		},
		Log: config.LogConfig{
			Level:  "info",
			Format: "text",
		},
		Defaults: config.DefaultsConfig{
			Templates: map[string]map[string]interface{}{
				"official": {
					"example": "user/example-template",
				},
			},
		},
	}

	data, err := yaml.Marshal(&starter)
	if err != nil {
		return fmt.Errorf("encoding starter configuration: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", configPath, err)
	}

	fmt.Printf("Wrote %s\n", configPath)
	return nil
}
