package defaults

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDataDirRespectsOverride(t *testing.T) {
	t.Setenv("BROWSERSTREAM_DATA_DIR", "/tmp/browser-stream-test")

	dir, err := DataDir()
	if err != nil {
		t.Fatalf("DataDir failed: %v", err)
	}
	if dir != "/tmp/browser-stream-test" {
		t.Errorf("expected override to win, got %s", dir)
	}
}

func TestEnsureDataDir(t *testing.T) {
	tmpDir := filepath.Join(t.TempDir(), "data")
	t.Setenv("BROWSERSTREAM_DATA_DIR", tmpDir)

	dir, err := EnsureDataDir()
	if err != nil {
		t.Fatalf("EnsureDataDir failed: %v", err)
	}
	if dir != tmpDir {
		t.Errorf("expected %s, got %s", tmpDir, dir)
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		t.Error("data directory was not created")
	}
}
