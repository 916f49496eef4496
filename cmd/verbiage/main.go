package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"verbiage/cmd/verbiage/chat"
	"verbiage/internal/agent"
	"verbiage/internal/config"
	"verbiage/internal/conversation"
	"verbiage/internal/llm"
	"verbiage/internal/session"
)

// Version is set at build time.
var Version = "dev"

var (
	verbose bool
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "verbiage",
	Short: "Verbiage - chat with LLM agents from your terminal",
	Long: `Verbiage is a terminal session manager for conversing with a remote
LLM completion service. It keeps a persisted conversation log, routes
each turn through the backend dialect the endpoint speaks, and exposes
commands for manipulating history (undo, edit-with-regeneration,
truncate) and switching agent personas.

Run without arguments to start the interactive chat.`,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("verbiage %s\n", Version)
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		for _, line := range cfg.Describe() {
			fmt.Println(line)
		}
		return nil
	},
}

func runChat() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Invalid configuration is fatal: report every problem and refuse
	// to start.
	if errs := cfg.Validate(); len(errs) > 0 {
		fmt.Fprintln(os.Stderr, "Configuration error:")
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "  - %s\n", e)
		}
		return fmt.Errorf("invalid configuration (%d problems)", len(errs))
	}

	logger, err = buildLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	store := conversation.NewStore(cfg.ConversationsDir, logger)
	registry, err := agent.NewRegistry(cfg.AgentsDir, logger)
	if err != nil {
		return err
	}

	transport := llm.NewHTTPTransport(llm.HTTPTransportConfig{
		BaseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		APIKey:   cfg.APIKey,
		SiteURL:  cfg.SiteURL,
		SiteName: cfg.SiteName,
	}, logger)
	sender := llm.NewSender(transport, llm.SenderConfig{
		Model:         cfg.Model,
		FallbackModel: cfg.FallbackModel,
		UsePrimary:    cfg.UsePrimaryAPI,
	}, logger)

	sess := session.New(&cfg, store, registry, sender, logger)
	return chat.Run(sess)
}

// buildLogger writes structured logs to a file next to the config so
// debug output never corrupts the TUI. Without debug mode the logger
// is a no-op.
func buildLogger(cfg config.Config) (*zap.Logger, error) {
	if !verbose && !cfg.DebugMode {
		return zap.NewNop(), nil
	}
	dir, err := config.ConfigDir()
	if err != nil {
		return zap.NewNop(), nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return zap.NewNop(), nil
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	zcfg.OutputPaths = []string{filepath.Join(dir, "verbiage.log")}
	zcfg.ErrorOutputPaths = zcfg.OutputPaths
	return zcfg.Build()
}

func main() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
