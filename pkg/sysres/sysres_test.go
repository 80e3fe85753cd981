package sysres

import (
	"path/filepath"
	"runtime"
	"testing"
)

func TestTotal(t *testing.T) {
	result := Total()

	if result.Bytes == 0 {
		t.Error("Total() returned 0 bytes")
	}

	switch runtime.GOOS {
	case "linux", "darwin":
		if !result.Reliable {
			t.Logf("Warning: memory detection not reliable on %s", runtime.GOOS)
		}
	default:
		if result.Reliable {
			t.Errorf("Expected Reliable=false on %s, got true", runtime.GOOS)
		}
		if result.Bytes != DefaultMemoryBytes {
			t.Errorf("Expected fallback value %d on %s, got %d", DefaultMemoryBytes, runtime.GOOS, result.Bytes)
		}
	}
}

func TestTotalBytes(t *testing.T) {
	if got, want := TotalBytes(), Total().Bytes; got != want {
		t.Errorf("TotalBytes() = %d, Total().Bytes = %d", got, want)
	}
}

func TestFreeDisk(t *testing.T) {
	result := FreeDisk(t.TempDir())

	switch runtime.GOOS {
	case "linux", "darwin":
		if !result.Reliable {
			t.Fatal("expected reliable free disk result")
		}
	default:
		if result.Reliable {
			t.Errorf("Expected Reliable=false on %s", runtime.GOOS)
		}
	}
}

func TestFreeDiskMissingDir(t *testing.T) {
	result := FreeDisk(filepath.Join(t.TempDir(), "does", "not", "exist"))
	if result.Reliable {
		t.Error("expected unreliable result for missing dir")
	}
	if result.Bytes != 0 {
		t.Errorf("Bytes = %d, want 0", result.Bytes)
	}
}
