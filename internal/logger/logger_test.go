package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestInitWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "sheetlens.log")
	if err := Init("debug", path); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { Log.SetOutput(os.Stderr); Log.SetLevel(logrus.WarnLevel) })

	if Log.GetLevel() != logrus.DebugLevel {
		t.Errorf("expected debug level, got %s", Log.GetLevel())
	}
	Log.WithField("phase", "structure").Debug("phase finished")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "phase=structure") {
		t.Errorf("log file missing entry: %q", data)
	}
}

func TestInitUnknownLevel(t *testing.T) {
	if err := Init("chatty", ""); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { Log.SetLevel(logrus.WarnLevel) })
	if Log.GetLevel() != logrus.InfoLevel {
		t.Errorf("expected info fallback, got %s", Log.GetLevel())
	}
}
