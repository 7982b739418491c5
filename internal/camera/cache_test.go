package camera

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleCache = `[
    {
        "name": "GoPro 8881._gopro-web._tcp.local.",
        "ip": "172.24.181.51"
    },
    {
        "name": "C3501324645504._gopro-web._tcp.local.",
        "ip": "172.29.104.51"
    }
]`

func writeCache(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultCachePath)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadCache(t *testing.T) {
	cameras, err := LoadCache(writeCache(t, sampleCache))
	if err != nil {
		t.Fatalf("LoadCache failed: %v", err)
	}

	if len(cameras) != 2 {
		t.Fatalf("Expected 2 cameras, got %d", len(cameras))
	}
	if cameras[1].IP != "172.29.104.51" {
		t.Errorf("Expected IP 172.29.104.51, got %s", cameras[1].IP)
	}
}

func TestLoadCacheInvalid(t *testing.T) {
	if _, err := LoadCache(writeCache(t, "{not json")); err == nil {
		t.Error("Expected error for invalid cache")
	}
}

func TestCameraSerial(t *testing.T) {
	tests := []struct {
		name      string
		camera    Camera
		wantFull  string
		wantShort string
	}{
		{"シリアル番号", Camera{Name: "C3501324645504._gopro-web._tcp.local."}, "C3501324645504", "5504"},
		{"表示名", Camera{Name: "GoPro 8881._gopro-web._tcp.local."}, "GoPro 8881", "8881"},
		{"短い名前", Camera{Name: "abc"}, "abc", "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.camera.Serial(); got != tt.wantFull {
				t.Errorf("Serial() = %q, want %q", got, tt.wantFull)
			}
			if got := tt.camera.ShortSerial(); got != tt.wantShort {
				t.Errorf("ShortSerial() = %q, want %q", got, tt.wantShort)
			}
		})
	}
}

func TestCacheCount(t *testing.T) {
	t.Run("キャッシュあり", func(t *testing.T) {
		c := NewCache(writeCache(t, sampleCache), time.Time{})
		n, err := c.Count()
		if err != nil {
			t.Fatalf("Count failed: %v", err)
		}
		if n != 2 {
			t.Errorf("Expected 2 cameras, got %d", n)
		}
	})

	t.Run("キャッシュなし", func(t *testing.T) {
		c := NewCache(filepath.Join(t.TempDir(), "missing.json"), time.Time{})
		n, err := c.Count()
		if err != nil {
			t.Fatalf("Count failed: %v", err)
		}
		if n != 0 {
			t.Errorf("Expected 0 cameras, got %d", n)
		}
	})

	t.Run("古いキャッシュ", func(t *testing.T) {
		path := writeCache(t, sampleCache)
		old := time.Now().Add(-time.Hour)
		if err := os.Chtimes(path, old, old); err != nil {
			t.Fatal(err)
		}

		c := NewCache(path, time.Now().Add(-time.Minute))
		n, err := c.Count()
		if err != nil {
			t.Fatalf("Count failed: %v", err)
		}
		if n != 0 {
			t.Errorf("Expected stale cache to count as 0, got %d", n)
		}
	})

	t.Run("空のキャッシュ", func(t *testing.T) {
		c := NewCache(writeCache(t, "[]"), time.Time{})
		n, err := c.Count()
		if err != nil {
			t.Fatalf("Count failed: %v", err)
		}
		if n != 0 {
			t.Errorf("Expected 0 cameras, got %d", n)
		}
	})
}
