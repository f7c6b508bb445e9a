package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conneroisu/templit/internal/cache"
	"github.com/conneroisu/templit/internal/config"
)

// cacheCmd groups cache maintenance subcommands
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the template clone cache",
}

var cacheCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove expired and corrupt cache entries",
	Long: `Sweep the cache, removing every entry that is expired or corrupt,
including orphan directories without metadata. Entries currently being
populated are not affected.`,
	RunE: runCacheCleanCommand,
}

var cacheInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show cache location and entries",
	RunE:  runCacheInfoCommand,
}

var cacheRefreshCmd = &cobra.Command{
	Use:   "refresh <reference>",
	Short: "Re-fetch a cached repository, preserving its TTL",
	Args:  cobra.ExactArgs(1),
	RunE:  runCacheRefreshCommand,
}

var refreshBranch string

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheCleanCmd)
	cacheCmd.AddCommand(cacheInfoCmd)
	cacheCmd.AddCommand(cacheRefreshCmd)

	cacheRefreshCmd.Flags().StringVarP(&refreshBranch, "branch", "b", "", "branch of the cached entry")
	addOutputFlags(cacheInfoCmd.Flags())
}

func runCacheCleanCommand(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg)
	_, manager := newResolver(cfg, logger)

	removed, err := manager.ClearExpiredEntries()
	if err != nil {
		return err
	}

	fmt.Printf("Removed %d cache entries\n", removed)
	return nil
}

// cacheEntryInfo is the listing row for cache info output.
type cacheEntryInfo struct {
	RepoHash    string `json:"repoHash"`
	RepoURL     string `json:"repoUrl,omitempty"`
	Branch      string `json:"branch,omitempty"`
	LastUpdated string `json:"lastUpdated,omitempty"`
	Corrupt     bool   `json:"corrupt,omitempty"`
	Expired     bool   `json:"expired,omitempty"`
}

func runCacheInfoCommand(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg)
	_, manager := newResolver(cfg, logger)

	entries := listCacheEntries(manager)

	output, _ := cmd.Flags().GetString("output")
	if output == "json" {
		return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
			"cacheDir": manager.CacheDir(),
			"entries":  entries,
		})
	}

	fmt.Printf("Cache directory: %s\n", manager.CacheDir())
	fmt.Printf("Entries: %d\n", len(entries))
	for _, entry := range entries {
		status := ""
		if entry.Corrupt {
			status = " (corrupt)"
		} else if entry.Expired {
			status = " (expired)"
		}
		fmt.Printf("  %s  %s%s\n", entry.RepoHash, entry.RepoURL, status)
	}
	return nil
}

func runCacheRefreshCommand(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg)
	_, manager := newResolver(cfg, logger)

	repoDir, err := manager.RefreshCache(cmd.Context(), args[0], refreshBranch)
	if err != nil {
		return err
	}

	fmt.Println(repoDir)
	return nil
}

// listCacheEntries walks the two-level protocol/name cache layout.
func listCacheEntries(manager *cache.Manager) []cacheEntryInfo {
	var entries []cacheEntryInfo

	protocols, err := os.ReadDir(manager.CacheDir())
	if err != nil {
		return entries
	}

	for _, protocol := range protocols {
		if !protocol.IsDir() || strings.HasPrefix(protocol.Name(), ".") {
			continue
		}
		names, err := os.ReadDir(filepath.Join(manager.CacheDir(), protocol.Name()))
		if err != nil {
			continue
		}
		for _, name := range names {
			if !name.IsDir() || strings.HasPrefix(name.Name(), ".") {
				continue
			}

			repoHash := protocol.Name() + "/" + name.Name()
			info := cacheEntryInfo{RepoHash: repoHash}

			if manager.DetectCacheCorruption(repoHash) {
				info.Corrupt = true
			} else if meta, err := manager.GetCacheMetadata(repoHash); err == nil && meta != nil {
				info.RepoURL = meta.RepoURL
				info.Branch = meta.BranchName
				info.LastUpdated = meta.LastUpdated.Format("2006-01-02 15:04:05 MST")
				info.Expired = manager.IsExpired(meta)
			}

			entries = append(entries, info)
		}
	}

	return entries
}
