// Package main is the operator CLI for records the server could not forward.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vestige-studio/payments-bridge/config"
	"github.com/vestige-studio/payments-bridge/internal/reconcile"
	"github.com/vestige-studio/payments-bridge/internal/sheets"
	"github.com/vestige-studio/payments-bridge/pkg/queue"
	"github.com/vestige-studio/payments-bridge/pkg/redis"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:          "reconcile",
		Short:        "Inspect and replay records that never reached the spreadsheet",
		Version:      Version,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(countCmd())
	rootCmd.AddCommand(replayCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// env is what every subcommand needs: config, logger and the open failure queue.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	queue  *queue.Queue
	close  func()
}

func setup(ctx context.Context) (*env, error) {
	logger := newLogger()
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateReconcile(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	rdb, err := redis.NewFromConfig(ctx, cfg.Redis, logger)
	if err != nil {
		return nil, err
	}
	return &env{
		cfg:    cfg,
		logger: logger,
		queue:  rdb.FailureQueue(),
		close: func() {
			_ = rdb.Close()
			_ = logger.Sync()
		},
	}, nil
}

func listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print pending failures, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, _ := cmd.Flags().GetInt64("limit")
			e, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			items, err := e.queue.List(cmd.Context(), n)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tFLOW\tREFERENCE\tEMAIL\tREPLAYS\tFAILED AT\tERROR")
			for _, it := range items {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
					it.ID, it.Flow, it.Reference, it.Email, it.Replays, it.FailedAt.Format(time.RFC3339), it.Error)
			}
			return w.Flush()
		},
	}
	cmd.Flags().Int64P("limit", "n", 20, "Maximum records to print")
	return cmd
}

func countCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of pending failures",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			n, err := e.queue.Len(cmd.Context())
			if err != nil {
				return err
			}
			corrupt, err := e.queue.CorruptLen(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pending %d, corrupt %d (%s)\n", n, corrupt, e.queue.CorruptKey())
			return nil
		},
	}
}

func replayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Forward pending failures again, requeueing what still fails",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, _ := cmd.Flags().GetInt("limit")
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			e, err := setup(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			fwd := sheets.NewClient(sheets.Options{
				URL:     e.cfg.Sheets.URL,
				Format:  e.cfg.Sheets.Format,
				Timeout: e.cfg.Sheets.Timeout(),
			}, e.logger.Named("sheets"))

			rep, err := reconcile.Replay(ctx, e.queue, fwd, n, e.logger)
			fmt.Fprintf(cmd.OutOrStdout(), "attempted %d, forwarded %d, requeued %d, corrupt %d\n",
				rep.Attempted, rep.Forwarded, rep.Requeued, rep.Corrupt)
			return err
		},
	}
	cmd.Flags().IntP("limit", "n", 50, "Maximum records to replay")
	return cmd
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
