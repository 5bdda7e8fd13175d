// Package cli implements the linkhoard command tree.
package cli

import (
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/linkhoard/linkhoard/internal/config"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	ConfigPath string
	DataDir    string
	Verbose    bool
}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "linkhoard",
		Short: "Local-first bookmark manager",
		Long: `Linkhoard captures, classifies, ranks, and syncs bookmarks.

Bookmarks live in a local SQLite database; search is a hybrid ranking over
lexical, semantic, taxonomy, and recency signals with an optional
clarification step. Background jobs keep embeddings and categories fresh and
replicate to an optional remote backend.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Secrets usually arrive via .env rather than the YAML file.
			_ = godotenv.Load()
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", defaultConfigPath(), "config file path")
	cmd.PersistentFlags().StringVar(&opts.DataDir, "data-dir", "", "override data directory")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose logging")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewSearchCommand(opts))
	cmd.AddCommand(NewJobCommands(opts)...)

	return cmd
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil || strings.TrimSpace(home) == "" {
		return "linkhoard.yaml"
	}
	return home + "/.linkhoard/config.yaml"
}

// loadConfig loads the config honoring the global flag overrides.
func (o *RootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, err
	}
	if o.DataDir != "" {
		cfg.DataDir = o.DataDir
	}
	return cfg, nil
}

// logger builds the process logger at the configured level.
func (o *RootOptions) logger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if o.Verbose {
		level = slog.LevelDebug
	} else {
		switch strings.ToLower(cfg.LogLevel) {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
