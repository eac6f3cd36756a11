package cli

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"finboard/internal/config"
	"finboard/internal/log"
)

func TestSetupLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	logger := SetupLogger(&config.Config{LogLevel: "debug", LogFormat: "json"}, log.ComponentWorker)
	if logger.Component() != log.ComponentWorker {
		t.Fatalf("component = %q", logger.Component())
	}
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("debug should be enabled")
	}

	logger = SetupLogger(nil, "")
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("default level should be info")
	}
	if logger.Component() != log.ComponentApp {
		t.Fatalf("default component = %q", logger.Component())
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("FINBOARD_TEST_PORT=7070\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)
	t.Cleanup(func() { os.Unsetenv("FINBOARD_TEST_PORT") })

	LoadEnvFile()
	if got := os.Getenv("FINBOARD_TEST_PORT"); got != "7070" {
		t.Fatalf("FINBOARD_TEST_PORT = %q", got)
	}
}
