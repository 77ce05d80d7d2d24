package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Chandanbam/openstack-rca-system/internal/config"
	"github.com/Chandanbam/openstack-rca-system/internal/corpus"
	"github.com/Chandanbam/openstack-rca-system/internal/embedding"
	"github.com/Chandanbam/openstack-rca-system/internal/logging"
	"github.com/Chandanbam/openstack-rca-system/internal/mcp/client"
	"github.com/Chandanbam/openstack-rca-system/internal/semindex"
)

var (
	indexConfigPath string
	indexLogDir     string
	indexAPIURL     string
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Inspect or rebuild the semantic index",
}

var indexRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Rebuild the semantic index from the log directory",
	Long: `Rebuild the semantic index and persist the snapshot. With --api-url the
rebuild runs inside a running server instead, which also reloads its corpus.

The local rebuild needs the embedding service configured under 'embedding'
in the config file.`,
	RunE: runIndexRefresh,
}

var indexStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the persisted index snapshot state",
	RunE:  runIndexStatus,
}

func init() {
	indexCmd.PersistentFlags().StringVar(&indexConfigPath, "config", "", "Path to the YAML config file (optional)")
	indexCmd.PersistentFlags().StringVar(&indexLogDir, "log-dir", "./logs", "Directory containing OpenStack log files")
	indexRefreshCmd.Flags().StringVar(&indexAPIURL, "api-url", "", "Refresh through a running server instead of rebuilding locally")

	indexCmd.AddCommand(indexRefreshCmd)
	indexCmd.AddCommand(indexStatusCmd)
}

func loadIndexConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadOrDefault(indexConfigPath)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("log-dir") {
		cfg.LogDir = indexLogDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := setupLog(logLevelFlags, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runIndexRefresh(cmd *cobra.Command, args []string) error {
	cfg, err := loadIndexConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if indexAPIURL != "" {
		apiClient := client.New(indexAPIURL)
		start := time.Now()
		result, err := apiClient.RefreshIndex(ctx)
		if err != nil {
			return fmt.Errorf("refresh via %s: %w", indexAPIURL, err)
		}
		fmt.Printf("Indexed %d entries in %s\n", result.IndexedEntries, time.Since(start).Round(time.Millisecond))
		fmt.Printf("Corpus fingerprint: %s\n", result.Fingerprint)
		return nil
	}

	c, err := corpus.LoadDir(cfg.LogDir)
	if err != nil {
		return fmt.Errorf("load logs: %w", err)
	}

	semIndex, err := buildIndex(cfg)
	if err != nil {
		return err
	}
	if err := semIndex.LoadSnapshot(); err != nil {
		logging.GetLogger("index").Warn("failed to load previous snapshot: %v", err)
	}

	start := time.Now()
	if err := semIndex.Refresh(ctx, c); err != nil {
		return fmt.Errorf("index rebuild: %w", err)
	}
	fmt.Printf("Indexed %d entries in %s\n", semIndex.Size(), time.Since(start).Round(time.Millisecond))
	fmt.Printf("Corpus fingerprint: %s\n", c.Fingerprint())
	fmt.Printf("Snapshot written to %s\n", cfg.IndexSnapshotPath())
	return nil
}

func runIndexStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadIndexConfig(cmd)
	if err != nil {
		return err
	}

	semIndex, err := buildIndex(cfg)
	if err != nil {
		return err
	}
	if err := semIndex.LoadSnapshot(); err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	if !semIndex.Ready() {
		fmt.Printf("No usable snapshot at %s\n", cfg.IndexSnapshotPath())
		return nil
	}

	fmt.Printf("Snapshot: %s\n", cfg.IndexSnapshotPath())
	fmt.Printf("Vectors: %d\n", semIndex.Size())
	fmt.Printf("Embedding model: %s\n", semIndex.ModelID())
	fmt.Printf("Corpus fingerprint: %s\n", semIndex.Fingerprint())

	if c, err := corpus.LoadDir(cfg.LogDir); err == nil {
		if c.Fingerprint() == semIndex.Fingerprint() {
			fmt.Println("Matches current logs: yes")
		} else {
			fmt.Println("Matches current logs: no (run 'rca index refresh')")
		}
	}
	return nil
}

// buildIndex wires the embedding client, cache, and index from config.
func buildIndex(cfg *config.Config) (*semindex.Index, error) {
	embedClient := embedding.NewClient(cfg.Embedding, time.Duration(cfg.Timeouts.EmbeddingMS)*time.Millisecond)
	cache, err := embedding.NewCacheStore(cfg.Embedding.CacheSize, cfg.Embedding.Model)
	if err != nil {
		return nil, err
	}
	return semindex.New(embedClient, cache, semindex.Options{
		SnapshotPath:   cfg.IndexSnapshotPath(),
		BatchSize:      cfg.Embedding.BatchSize,
		MaxConcurrency: cfg.Embedding.MaxConcurrency,
	}), nil
}
