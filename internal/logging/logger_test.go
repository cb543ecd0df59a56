package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Mizogg/GUI-keyhunt/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
		err  bool
	}{
		{"", zapcore.InfoLevel, false},
		{"info", zapcore.InfoLevel, false},
		{"DEBUG", zapcore.DebugLevel, false},
		{"warning", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"loud", zapcore.InfoLevel, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.err {
			t.Errorf("ParseLevel(%q) error = %v, want error %v", tt.in, err, tt.err)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "keyhunter.log")

	logger, err := New(config.LoggingConfig{Level: "info", Format: "json", File: path}, false)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	For(logger, CategorySupervisor).Info("run started", zap.String(FieldRunID, "abc"))
	For(logger, CategorySupervisor).Debug("hidden")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, `"logger":"supervisor"`) {
		t.Errorf("expected category name in output, got %s", out)
	}
	if !strings.Contains(out, `"run_id":"abc"`) {
		t.Errorf("expected run_id field in output, got %s", out)
	}
	if strings.Contains(out, "hidden") {
		t.Errorf("debug entry should be filtered at info level")
	}
}

func TestNew_VerboseForcesDebug(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.log")

	logger, err := New(config.LoggingConfig{Level: "error", Format: "console", File: path}, true)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if !logger.Core().Enabled(zapcore.DebugLevel) {
		t.Error("expected debug level to be enabled")
	}
}

func TestNew_RejectsUnknownLevel(t *testing.T) {
	if _, err := New(config.LoggingConfig{Level: "loud"}, false); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestFor_NilRoot(t *testing.T) {
	l := For(nil, CategoryWorker)
	if l == nil {
		t.Fatal("expected a usable logger")
	}
	l.Info("discarded")
}

func TestTimer(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	StartTimer(logger, "stop all").Stop()
	if logs.FilterMessage("stop all completed").Len() != 1 {
		t.Errorf("expected completion entry, got %v", logs.All())
	}

	timer := StartTimer(logger, "sweep")
	time.Sleep(5 * time.Millisecond)
	timer.StopWithThreshold(time.Millisecond)
	if logs.FilterMessage("sweep was slow").Len() != 1 {
		t.Errorf("expected slow entry, got %v", logs.All())
	}
}
