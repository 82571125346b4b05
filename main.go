package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/wfunc/trivia/config"
	"github.com/wfunc/trivia/logger"
	"github.com/wfunc/trivia/persistence"
	"github.com/wfunc/trivia/question"
	"github.com/wfunc/trivia/server"
)

const releaseVersion = "0.3.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newCmd()
	cmd.AddCommand(newAdminCmd())
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCmd() *cobra.Command {
	var (
		configPath string
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:     "trivia",
		Short:   "Multiplayer true/false trivia server.",
		Args:    cobra.ExactArgs(0),
		Version: releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath, cmd.Flags())
			if err != nil {
				return err
			}
			if verbose {
				cfg.Log.Level = "debug"
			}
			if err := logger.Init(logger.Options{
				Level:       cfg.Log.Level,
				Development: cfg.Log.Development,
				File:        cfg.Log.File,
			}); err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer logger.Sync()

			return serve(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
	fs.StringP("ip", "i", "0.0.0.0", "address to bind the game server to (env: TRIVIA_SERVER_IP)")
	fs.IntP("port", "p", 7777, "port of the game server (env: TRIVIA_SERVER_PORT)")
	fs.String("http", "", "address of the HTTP endpoint for /ws, /healthz and /metrics (env: TRIVIA_SERVER_HTTP_ADDRESS)")
	fs.String("rpc", "", "address of the gRPC admin endpoint (env: TRIVIA_SERVER_RPC_ADDRESS)")
	fs.StringVar(&configPath, "config", ".", "directory holding config.yaml")
	fs.BoolVarP(&verbose, "verbose", "v", false, "log at debug level")

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetVersionTemplate("trivia v{{.Version}}\n")
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	source, err := questionSource(cfg.Questions)
	if err != nil {
		return err
	}

	store, err := persistence.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("open game archive: %w", err)
	}
	if store != nil {
		logger.Log.Infow("Database connection successful.", "driver", cfg.Database.Driver)
	}

	gameServer := server.NewGameServer(cfg, source, store)
	if err := gameServer.Listen(); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return gameServer.Run(ctx)
}

func questionSource(cfg config.QuestionsConfig) (question.Source, error) {
	switch cfg.Source {
	case "file":
		source, err := question.LoadFile(cfg.File)
		if err != nil {
			return nil, fmt.Errorf("load questions: %w", err)
		}
		return source, nil
	default:
		return question.NewOpenTDB(cfg.URL, cfg.Timeout), nil
	}
}
