package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

// Build information, set via -ldflags at release time.
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var versionFormat string

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE:  runVersionCommand,
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().StringVarP(&versionFormat, "format", "f", "text", "Output format (text, json)")
}

func runVersionCommand(cmd *cobra.Command, args []string) error {
	switch versionFormat {
	case "json":
		return json.NewEncoder(os.Stdout).Encode(map[string]string{
			"version":   version,
			"gitCommit": gitCommit,
			"buildDate": buildDate,
			"goVersion": runtime.Version(),
			"platform":  runtime.GOOS + "/" + runtime.GOARCH,
		})
	case "text":
		fmt.Printf("templit %s (%s, built %s, %s)\n", version, gitCommit, buildDate, runtime.Version())
		return nil
	default:
		return fmt.Errorf("unsupported format: %s (supported: text, json)", versionFormat)
	}
}
