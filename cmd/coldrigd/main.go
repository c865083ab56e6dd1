package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"coldrig/internal/config"
	"coldrig/internal/ipc"
	"coldrig/internal/logging"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", filepath.Join(cfg.Paths.LogDir, "coldrig.log")},
	})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	if err := run(ctx, cfg, logger); err != nil {
		// run already logged the failure; the deferred shutdown has run.
		os.Exit(1)
	}
}

// run brings the daemon up and blocks until shutdown. A non-nil return means
// the process must exit with a failure status; the daemon and IPC server are
// already closed by then.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	d, err := bootstrap(cfg, logger)
	if err != nil {
		logger.Error("bootstrap failed", logging.Error(err))
		return err
	}
	defer d.Close()

	ipcServer, err := ipc.NewServer(ctx, cfg.SocketPath(), d, logger)
	if err != nil {
		logger.Error("start IPC server", logging.Error(err))
		return err
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return err
	}

	return awaitShutdown(ctx, d.Wait(), logger)
}

// awaitShutdown blocks until a shutdown signal or a daemon loop failure.
// Only a loop failure is an error; signal-driven shutdown is clean.
func awaitShutdown(ctx context.Context, loops <-chan error, logger *slog.Logger) error {
	select {
	case <-ctx.Done():
		logger.Info("coldrigd shutting down")
		return nil
	case err := <-loops:
		if err != nil {
			logger.Error("coldrigd terminated", logging.Error(err))
			return err
		}
		return nil
	}
}
