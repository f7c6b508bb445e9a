package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/conneroisu/templit/internal/resolver"
)

// listCmd lists the built-in registry templates
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List built-in registry templates",
	RunE:  runListCommand,
}

func init() {
	rootCmd.AddCommand(listCmd)
	addOutputFlags(listCmd.Flags())
}

func runListCommand(cmd *cobra.Command, args []string) error {
	templates := resolver.RegistryTemplates()

	output, _ := cmd.Flags().GetString("output")
	if output == "json" {
		return json.NewEncoder(os.Stdout).Encode(templates)
	}

	namespaces := make([]string, 0, len(templates))
	for namespace := range templates {
		namespaces = append(namespaces, namespace)
	}
	sort.Strings(namespaces)

	for _, namespace := range namespaces {
		fmt.Printf("%s:\n", namespace)
		for _, name := range templates[namespace] {
			fmt.Printf("  %s/%s\n", namespace, name)
		}
	}
	return nil
}
