// Package cmd provides the command-line interface for templit with
// configuration management supporting multiple configuration sources.
//
// Configuration System:
//
//	The CLI supports flexible configuration through multiple sources with clear precedence:
//	1. Command-line flags (--config, --cache-dir, etc.) - highest priority
//	2. TEMPLIT_CONFIG_FILE environment variable - custom config file path
//	3. Individual environment variables (TEMPLIT_CACHE_DIR, etc.)
//	4. Configuration files (.templit.yml) - lowest priority
//
// Environment Variables:
//
//	TEMPLIT_CONFIG_FILE: Path to custom configuration file
//	TEMPLIT_CACHE_DIR: Override cache directory
//	TEMPLIT_CACHE_TTL_HOURS: Override cache TTL
//	TEMPLIT_LOG_LEVEL: Override log level
//	And more following the TEMPLIT_<SECTION>_<OPTION> pattern
package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/templit/internal/cache"
	"github.com/conneroisu/templit/internal/config"
	"github.com/conneroisu/templit/internal/gitclone"
	"github.com/conneroisu/templit/internal/logging"
	"github.com/conneroisu/templit/internal/resolver"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "templit",
	Short: "Resolve template references into trustworthy local directories",
	Long: `Templit resolves template references - local paths, GitHub shorthand,
full git URLs, and registry aliases - into local template directories,
backed by a TTL-managed clone cache.

Key Features:
  • GitHub shorthand (user/repo), branch and subpath references
  • Built-in official template registry and configurable aliases
  • TTL-based clone cache with corruption self-healing
  • Strict input validation (no injection, no path escapes)

Quick Start:
  templit init                        Write a starter .templit.yml
  templit resolve user/repo           Resolve a template reference
  templit cache clean                 Evict expired cache entries
  templit cache info                  Show cache location and entries`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .templit.yml, can also use TEMPLIT_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	rootCmd.PersistentFlags().String("cache-dir", "", "cache directory (default is ~/.templit/cache)")

	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("cache.dir", rootCmd.PersistentFlags().Lookup("cache-dir"))

	config.SetDefaults()
}

// initConfig initializes the configuration system with support for multiple
// config sources. Priority: --config flag, then TEMPLIT_CONFIG_FILE, then
// .templit.yml in the current directory.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfig := os.Getenv("TEMPLIT_CONFIG_FILE"); envConfig != "" {
		viper.SetConfigFile(envConfig)
	} else {
		viper.SetConfigName(".templit")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("TEMPLIT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "Warning: failed to read config file: %v\n", err)
		}
	}
}

// newLogger builds the process logger from loaded configuration.
func newLogger(cfg *config.Config) logging.Logger {
	return logging.NewLogger(&logging.LoggerConfig{
		Level:  logging.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
}

// newResolver wires the standard collaborator stack: go-git cloner, cache
// manager rooted at the configured directory, and the resolver on top.
func newResolver(cfg *config.Config, logger logging.Logger) (*resolver.Resolver, *cache.Manager) {
	manager := cache.NewManager(cfg.Cache.Dir, gitclone.New(), logger)
	return resolver.New(cfg, manager, logger), manager
}
