package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/conneroisu/templit/internal/config"
	"github.com/conneroisu/templit/internal/resolver"
)

var (
	resolveBranch string
	resolveTTL    float64
)

// resolveCmd resolves a template reference to a local directory
var resolveCmd = &cobra.Command{
	Use:   "resolve <reference>",
	Short: "Resolve a template reference to a local directory",
	Long: `Resolve a template reference and print the local template directory.

Supported reference forms:
  user/repo                       GitHub shorthand
  user/repo#branch/subpath        Shorthand with branch and subpath
  https://github.com/user/repo    Full GitHub URL (also /tree/<branch> forms)
  registry/nextjs-app             Built-in official registry
  ./templates/api                 Local path

Examples:
  templit resolve user/repo
  templit resolve user/repo --branch develop
  templit resolve registry/nextjs-app --output json`,
	Args: cobra.ExactArgs(1),
	RunE: runResolveCommand,
}

func init() {
	rootCmd.AddCommand(resolveCmd)

	resolveCmd.Flags().StringVarP(&resolveBranch, "branch", "b", "", "branch to resolve when the reference carries none")
	resolveCmd.Flags().Float64Var(&resolveTTL, "ttl-hours", 0, "cache TTL override in hours for this resolution")
	addOutputFlags(resolveCmd.Flags())
}

func runResolveCommand(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg)
	res, _ := newResolver(cfg, logger)

	resolved, err := res.ResolveTemplate(cmd.Context(), args[0], resolver.Options{
		Branch:   resolveBranch,
		TTLHours: resolveTTL,
	})
	if err != nil {
		return err
	}

	output, _ := cmd.Flags().GetString("output")
	if output == "json" {
		return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
			"templatePath": resolved.TemplatePath,
			"parameters":   resolved.Parameters,
			"metadata":     resolved.Metadata,
		})
	}

	fmt.Println(resolved.TemplatePath)
	if resolved.Metadata != nil {
		fmt.Printf("  template: %s (%s)\n", resolved.Metadata.Name, resolved.Metadata.Version)
	}
	for key, value := range resolved.Parameters {
		fmt.Printf("  param: %s=%s\n", key, value)
	}
	return nil
}
