// Command eventide runs the language-server dispatcher over stdio.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fogsong233/eventide-sub001/async"
	"github.com/fogsong233/eventide-sub001/langserver"
	"github.com/fogsong233/eventide-sub001/transport"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:   "eventide",
		Short: "Run the eventide JSON-RPC language-server dispatcher over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			if err := level.UnmarshalText([]byte(logLevel)); err != nil {
				return fmt.Errorf("invalid --log-level %q: %w", logLevel, err)
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
			return run(cmd.Context(), logger)
		},
	}
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	return cmd
}

func run(ctx context.Context, logger *slog.Logger) error {
	parent, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	t := transport.NewStdio(os.Stdin, os.Stdout)
	srv := langserver.NewServer(t, langserver.WithLogger(logger))
	registerBuiltinHandlers(srv)

	logger.Info("eventide dispatcher starting", slog.Int("pid", os.Getpid()))
	code := srv.Start(parent)
	logger.Info("eventide dispatcher stopped", slog.Int("code", code))
	if code != 0 {
		return fmt.Errorf("dispatcher exited with code %d", code)
	}
	return nil
}

// registerBuiltinHandlers wires a minimal "ping" request handler, a no-op
// demonstration of a blocking-I/O suspension point via async.AwaitFunc, and
// a "log" notification handler that just writes to stderr.
func registerBuiltinHandlers(srv *langserver.Server) {
	srv.RegisterRequestHandler("eventide/ping", func(task *async.Task, params json.RawMessage) (any, error) {
		return async.AwaitFunc(task, func() (any, error) {
			return map[string]string{"status": "pong"}, nil
		})
	})
	srv.RegisterNotificationHandler("eventide/log", func(params json.RawMessage) {
		var p struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(params, &p); err == nil {
			fmt.Fprintln(os.Stderr, p.Message)
		}
	})
}
