package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/SAP-F-2025/exam-engine/internal/config"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

func Execute() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "exam-engine",
		Short:        "Timed online examination attempt engine",
		SilenceUsage: true,
	}

	serve := serveCmd()
	root.AddCommand(serve, migrateCmd(), sweepCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

// commonFlags registers the flags every subcommand shares. Each overrides the env var of the same name.
func commonFlags(f *pflag.FlagSet) {
	f.String("log-level", "", "Log level (debug, info, warn, error); overrides LOG_LEVEL")
	f.String("db-driver", "", "Storage driver (postgres, memory); overrides DB_DRIVER")
	f.String("database-url", "", "Postgres DSN; overrides DATABASE_URL")
}

// viperForCmd binds a command's flags to config keys; unset flags fall through to the environment.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if !f.Changed {
			return
		}
		_ = v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
	})
	return v
}

func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadFrom(viperForCmd(cmd))
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	return cfg, logger, nil
}
