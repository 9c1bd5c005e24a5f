// Package daemonrun hosts the daemon runtime loop shared by the
// reelsmithd binary and the CLI's foreground run command.
package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"reelsmith/internal/config"
	"reelsmith/internal/daemon"
	"reelsmith/internal/ingest"
	"reelsmith/internal/ipc"
	"reelsmith/internal/logging"
	"reelsmith/internal/notifications"
	"reelsmith/internal/publishing"
	"reelsmith/internal/queue"
	"reelsmith/internal/rendering"
	"reelsmith/internal/services/redisbus"
	"reelsmith/internal/uploading"
	"reelsmith/internal/workflow"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel string
}

// Run starts the reelsmith daemon runtime loop and blocks until the
// context is cancelled or a termination signal arrives.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return errors.New("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logPath := filepath.Join(cfg.Paths.LogDir, "reelsmith.log")
	level := strings.TrimSpace(opts.LogLevel)
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	pidPath := filepath.Join(cfg.Paths.LogDir, "reelsmith.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return err
	}

	bus := redisbus.New(cfg.Redis, logger)
	if err := bus.Ping(signalCtx); err != nil {
		logger.Warn("redis not reachable yet, ingestion will retry", logging.Error(err))
	}

	notifier := notifications.NewService(cfg)
	manager := workflow.NewManagerWithNotifier(cfg, store, logger, notifier)
	registerStages(manager, cfg, store, logger, notifier, bus)
	consumer := ingest.NewConsumer(cfg, store, notifier, logger)

	d, err := daemon.New(cfg, store, logger, manager, bus, consumer)
	if err != nil {
		_ = bus.Close()
		_ = store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	socketPath := filepath.Join(cfg.Paths.LogDir, "reelsmith.sock")
	ipcServer, err := ipc.NewServer(signalCtx, socketPath, d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(signalCtx); err != nil {
		logger.Warn("daemon start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_start_failed"),
			logging.String(logging.FieldErrorHint, "check configuration and queue database access"),
		)
	}

	<-signalCtx.Done()
	logger.Info("reelsmith daemon shutting down")
	return nil
}

func registerStages(mgr *workflow.Manager, cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service, bus *redisbus.Bus) {
	if mgr == nil || cfg == nil {
		return
	}
	mgr.ConfigureStages(workflow.StageSet{
		Renderer:  rendering.NewRenderer(cfg, store, logger, notifier),
		Uploader:  uploading.NewUploader(cfg, store, logger, notifier),
		Publisher: publishing.NewPublisher(cfg, store, logger, notifier, bus),
	})
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
