package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/Chandanbam/openstack-rca-system/internal/analysis"
	"github.com/Chandanbam/openstack-rca-system/internal/config"
	"github.com/Chandanbam/openstack-rca-system/internal/corpus"
	"github.com/Chandanbam/openstack-rca-system/internal/llm"
	"github.com/Chandanbam/openstack-rca-system/internal/logging"
	"github.com/Chandanbam/openstack-rca-system/internal/models"
	"github.com/Chandanbam/openstack-rca-system/internal/report"
	"github.com/Chandanbam/openstack-rca-system/internal/scoring/importance"
	"github.com/Chandanbam/openstack-rca-system/internal/scoring/lexical"
	"github.com/Chandanbam/openstack-rca-system/internal/tui"
)

var (
	analyzeConfigPath string
	analyzeLogDir     string
	analyzeMode       string
	analyzeJSON       bool
	analyzeNoLLM      bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze \"<incident description>\"",
	Short: "Run a one-shot analysis over a log directory",
	Long: `Analyze a log directory for the root cause of the described incident
and print the report. Without a terminal (or with --json) the raw report
is written as JSON, which makes the command usable in scripts.

Hybrid mode needs the embedding service; if it is unreachable the analysis
downgrades to fast mode and says so in the report.

Examples:
  # Analyze the default log directory
  rca analyze "instances fail to spawn with no valid host"

  # Fast mode without narrative generation (no API keys needed)
  rca analyze --mode fast --no-llm "neutron port binding failures"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeConfigPath, "config", "", "Path to the YAML config file (optional)")
	analyzeCmd.Flags().StringVar(&analyzeLogDir, "log-dir", "./logs", "Directory containing OpenStack log files")
	analyzeCmd.Flags().StringVar(&analyzeMode, "mode", "hybrid", "Analysis mode: hybrid or fast")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Print the report as JSON")
	analyzeCmd.Flags().BoolVar(&analyzeNoLLM, "no-llm", false, "Skip narrative generation and use the template summary")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadOrDefault(analyzeConfigPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-dir") {
		cfg.LogDir = analyzeLogDir
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := setupLog(logLevelFlags, cfg); err != nil {
		return err
	}
	logger := logging.GetLogger("analyze")

	mode := models.AnalysisMode(analyzeMode)
	if mode != models.ModeHybrid && mode != models.ModeFast {
		return fmt.Errorf("invalid mode %q (hybrid or fast)", analyzeMode)
	}
	query := strings.TrimSpace(strings.Join(args, " "))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	c, err := corpus.LoadDir(cfg.LogDir)
	if err != nil {
		return fmt.Errorf("load logs: %w", err)
	}

	deps := analysis.Deps{Lexical: lexical.NewScorer()}
	if imp, err := importance.New(cfg.Importance); err != nil {
		logger.Warn("importance classifier unavailable, continuing without it: %v", err)
	} else {
		deps.Importance = imp
	}

	if mode == models.ModeHybrid {
		semIndex, err := buildIndex(cfg)
		if err != nil {
			return err
		}
		if err := semIndex.LoadSnapshot(); err != nil {
			logger.Warn("failed to load index snapshot: %v", err)
		}
		if semIndex.Fingerprint() != c.Fingerprint() {
			logger.Info("building semantic index for %d entries", c.Len())
			if err := semIndex.Refresh(ctx, c); err != nil {
				logger.Warn("semantic index build failed, analysis will downgrade to fast mode: %v", err)
			}
		}
		deps.Semantic = semIndex
	}

	if !analyzeNoLLM {
		provider, err := llm.New(ctx, cfg.LLM)
		if err != nil {
			return err
		}
		deps.Composer = report.NewComposer(provider, cfg.Scoring, cfg.Timeouts)
	} else {
		deps.Composer = report.NewComposer(nil, cfg.Scoring, cfg.Timeouts)
	}

	engine := analysis.NewEngine(deps, cfg)
	rep, err := engine.Analyze(ctx, query, c, mode)
	if err != nil {
		return err
	}

	if analyzeJSON || !tui.IsTerminal() {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	return printReport(rep)
}

// printReport renders the report as terminal markdown, falling back to the
// plain text when the renderer cannot be built.
func printReport(rep *models.RCAReport) error {
	md := tui.ReportMarkdown(rep)
	renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		fmt.Println(md)
		return nil
	}
	out, err := renderer.Render(md)
	if err != nil {
		fmt.Println(md)
		return nil
	}
	fmt.Print(out)
	return nil
}
