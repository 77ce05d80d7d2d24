package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Chandanbam/openstack-rca-system/internal/config"
	"github.com/Chandanbam/openstack-rca-system/internal/logging"
)

const Version = "0.1.0"

var (
	logLevelFlags []string // Supports multiple --log-level flags
)

var rootCmd = &cobra.Command{
	Use:   "rca",
	Short: "OpenStack RCA - root cause analysis over OpenStack service logs",
	Long: `OpenStack RCA analyzes OpenStack service logs for the root cause of an
incident. It fuses an importance classifier, semantic search, and lexical
matching into a ranked evidence list and composes a narrative report.`,
	Version: Version,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags available to all subcommands
	// Supports per-component log levels: --log-level debug --log-level embedding=debug
	rootCmd.PersistentFlags().StringSliceVar(&logLevelFlags, "log-level",
		nil,
		"Log level for components. Use a bare level for the default, or 'component=level' for overrides.\n"+
			"Examples: --log-level debug (all), --log-level embedding=debug --log-level api=warn")

	// Add subcommands
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(configCmd)
}

// HandleError prints error and exits
func HandleError(err error, msg string) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
		os.Exit(1)
	}
}

// setupLog initializes the logging system from CLI flags, environment
// variables, and the config file. cfg may be nil for commands that run
// without one.
// Priority: CLI flags > environment variables > config file > "info"
func setupLog(flags []string, cfg *config.Config) error {
	defaultLevel, componentLevels, err := parseLogLevelFlags(flags)
	if err != nil {
		return err
	}

	if defaultLevel == "" && cfg != nil {
		defaultLevel = cfg.LogLevel
	}
	if defaultLevel == "" {
		defaultLevel = "info"
	}

	merged := make(map[string]string)
	if cfg != nil {
		for component, level := range cfg.ComponentLogLevels {
			merged[component] = level
		}
	}
	for component, level := range componentLevels {
		merged[component] = level
	}

	return logging.Initialize(defaultLevel, merged)
}

// parseLogLevelFlags parses CLI flags and environment variables
// Priority: CLI flags > environment variables
//
// CLI format: ["debug"], ["default=info", "embedding=debug"], or ["info"]
// Env vars: LOG_LEVEL_EMBEDDING=debug (component name uppercased, dots to underscores)
//
// Returns: (defaultLevel, componentLevels map, error). defaultLevel is ""
// when neither flags nor env set one, so the caller can apply its own
// fallback.
func parseLogLevelFlags(flags []string) (string, map[string]string, error) {
	result := make(map[string]string)

	// Environment variables first (lower priority)
	for _, envPair := range os.Environ() {
		if strings.HasPrefix(envPair, "LOG_LEVEL_") {
			parts := strings.SplitN(envPair, "=", 2)
			if len(parts) != 2 {
				continue
			}
			// LOG_LEVEL_CONFIG_WATCHER=debug -> config.watcher
			componentName := convertEnvKeyToComponentName(parts[0])
			result[componentName] = parts[1]
		}
	}

	// CLI flags override env vars
	for _, flag := range flags {
		if !strings.Contains(flag, "=") {
			// Bare level like "debug" means the default level
			result["default"] = flag
		} else {
			parts := strings.SplitN(flag, "=", 2)
			if len(parts) == 2 {
				result[parts[0]] = parts[1]
			}
		}
	}

	defaultLevel := ""
	if level, exists := result["default"]; exists {
		defaultLevel = level
		delete(result, "default")
	}

	if defaultLevel != "" {
		if err := validateLogLevel(defaultLevel); err != nil {
			return "", nil, err
		}
	}
	for component, level := range result {
		if err := validateLogLevel(level); err != nil {
			return "", nil, fmt.Errorf("invalid log level for component %q: %v", component, err)
		}
	}

	return defaultLevel, result, nil
}

// convertEnvKeyToComponentName converts LOG_LEVEL_CONFIG_WATCHER -> config.watcher
func convertEnvKeyToComponentName(envKey string) string {
	name := strings.TrimPrefix(envKey, "LOG_LEVEL_")
	return strings.ToLower(strings.ReplaceAll(name, "_", "."))
}

// validateLogLevel checks if a level string is valid
func validateLogLevel(level string) error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
	}
	if !validLevels[strings.ToLower(level)] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error, fatal)", level)
	}
	return nil
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
