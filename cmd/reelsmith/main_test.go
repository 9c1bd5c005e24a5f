package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"reelsmith/internal/config"
	"reelsmith/internal/daemon"
	"reelsmith/internal/ipc"
	"reelsmith/internal/logging"
	"reelsmith/internal/queue"
	"reelsmith/internal/stage"
	"reelsmith/internal/testsupport"
	"reelsmith/internal/workflow"
)

type noopStage struct{}

func (noopStage) Prepare(context.Context, *queue.Batch) error { return nil }
func (noopStage) Execute(context.Context, *queue.Batch) error { return nil }
func (noopStage) HealthCheck(context.Context) stage.Health {
	return stage.Healthy("noop")
}

type cliTestEnv struct {
	cfg        *config.Config
	store      *queue.Store
	socketPath string
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	logger := logging.NewNop()
	mgr := workflow.NewManager(cfg, store, logger)
	mgr.ConfigureStages(workflow.StageSet{Renderer: noopStage{}})
	d, err := daemon.New(cfg, store, logger, mgr, nil, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	socketPath := filepath.Join(cfg.Paths.LogDir, "cli.sock")
	srv, err := ipc.NewServer(ctx, socketPath, d, logger)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping CLI test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(func() {
		srv.Close()
	})

	time.Sleep(50 * time.Millisecond)

	return &cliTestEnv{
		cfg:        cfg,
		store:      store,
		socketPath: socketPath,
		configPath: configPath,
	}
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--socket", socket}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestCLIQueueCommands(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	if _, err := env.store.NewBatch(ctx, "Alpha"); err != nil {
		t.Fatalf("NewBatch collecting: %v", err)
	}

	failed, err := env.store.NewBatch(ctx, "Beta")
	if err != nil {
		t.Fatalf("NewBatch failed: %v", err)
	}
	failed.Status = queue.StatusFailed
	if err := env.store.Update(ctx, failed); err != nil {
		t.Fatalf("update failed batch: %v", err)
	}

	out, _, err := runCLI(t, []string{"queue", "status"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue status: %v", err)
	}
	if !strings.Contains(out, "Collecting") || !strings.Contains(out, "Failed") {
		t.Fatalf("unexpected queue status output: %q", out)
	}

	out, _, err = runCLI(t, []string{"queue", "list"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	if !strings.Contains(out, "Alpha") || !strings.Contains(out, "Beta") {
		t.Fatalf("queue list missing batches: %q", out)
	}

	out, _, err = runCLI(t, []string{"queue", "retry"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue retry: %v", err)
	}
	if !strings.Contains(out, "Retried 1 failed batches") {
		t.Fatalf("unexpected retry output: %q", out)
	}
	retried, err := env.store.GetByID(ctx, failed.ID)
	if err != nil {
		t.Fatalf("GetByID after retry: %v", err)
	}
	if retried.Status != queue.StatusReady {
		t.Fatalf("expected retried batch ready, got %s", retried.Status)
	}

	retried.Status = queue.StatusFailed
	if err := env.store.Update(ctx, retried); err != nil {
		t.Fatalf("reset failed status: %v", err)
	}

	out, _, err = runCLI(t, []string{"queue", "clear", "--failed"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue clear --failed: %v", err)
	}
	if !strings.Contains(out, "Cleared 1 failed batches") {
		t.Fatalf("unexpected clear failed output: %q", out)
	}

	out, _, err = runCLI(t, []string{"queue", "clear"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue clear: %v", err)
	}
	if !strings.Contains(out, "Cleared") {
		t.Fatalf("unexpected clear output: %q", out)
	}

	out, _, err = runCLI(t, []string{"queue", "status"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue status after clear: %v", err)
	}
	if !strings.Contains(out, "Queue is empty") {
		t.Fatalf("expected empty queue message, got %q", out)
	}
}

func TestCLIQueueShowCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	batch, err := env.store.NewBatch(ctx, "Warehouse Operator")
	if err != nil {
		t.Fatalf("NewBatch: %v", err)
	}
	batch.SourceChannel = "jobs:events"
	if err := env.store.Update(ctx, batch); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := env.store.AddImage(ctx, batch.ID, queue.Image{
		Path: filepath.Join(env.cfg.Paths.ImageDir, "a.png"), Format: "png", Width: 4, Height: 4, SizeBytes: 64,
	}); err != nil {
		t.Fatalf("AddImage: %v", err)
	}

	out, _, err := runCLI(t, []string{"queue", "show", "1"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue show: %v", err)
	}
	if !strings.Contains(out, "Warehouse Operator") || !strings.Contains(out, "jobs:events") {
		t.Fatalf("unexpected show output: %q", out)
	}
	if !strings.Contains(out, "a.png") {
		t.Fatalf("expected image listed in show output: %q", out)
	}
}

func TestCLIConfigCommands(t *testing.T) {
	base := t.TempDir()
	target := filepath.Join(base, "config.toml")

	cmd := newRootCommand()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stdout)
	cmd.SetArgs([]string{"config", "init", "--path", target})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(stdout.String(), "Wrote sample configuration") {
		t.Fatalf("unexpected init output: %q", stdout.String())
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file written: %v", err)
	}

	// Re-running without --overwrite refuses to clobber the file.
	cmd = newRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stdout)
	cmd.SetArgs([]string{"config", "init", "--path", target})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error when config exists")
	}
}
