package fs

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCache_Load(t *testing.T) {
	t.Run("Starts Empty if File Missing", func(t *testing.T) {
		c := newCache(t.TempDir(), ".cache")

		if err := c.Load(); err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if c.Len() != 0 {
			t.Errorf("Expected empty entries, got %d", c.Len())
		}
	})

	t.Run("Loads Valid JSON", func(t *testing.T) {
		tmpDir := t.TempDir()
		cacheDir := filepath.Join(tmpDir, ".cache")
		_ = os.MkdirAll(cacheDir, 0755)

		jsonContent := `{
			"version": 2,
			"entries": {
				"acme/home/hero.json": {
					"tenant": "acme",
					"id": "home/hero",
					"flavor": "hero",
					"fields": {"title": "Hello"}
				}
			}
		}`
		_ = os.WriteFile(filepath.Join(cacheDir, "index.json"), []byte(jsonContent), 0644)

		c := newCache(tmpDir, ".cache")
		if err := c.Load(); err != nil {
			t.Fatalf("Load failed: %v", err)
		}

		entry, ok := c.index.Entries["acme/home/hero.json"]
		if !ok {
			t.Fatal("Expected entry not found")
		}
		if entry.Flavor != "hero" || entry.Fields["title"] != "Hello" {
			t.Errorf("unexpected entry %+v", entry)
		}
	})

	t.Run("Resets on Corrupted JSON", func(t *testing.T) {
		tmpDir := t.TempDir()
		cacheDir := filepath.Join(tmpDir, ".cache")
		_ = os.MkdirAll(cacheDir, 0755)
		_ = os.WriteFile(filepath.Join(cacheDir, "index.json"), []byte("{ invalid json"), 0644)

		c := newCache(tmpDir, ".cache")
		if err := c.Load(); err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if c.Len() != 0 {
			t.Errorf("Expected empty entries after corruption, got %d", c.Len())
		}
	})

	t.Run("Resets on Old Version", func(t *testing.T) {
		tmpDir := t.TempDir()
		cacheDir := filepath.Join(tmpDir, ".cache")
		_ = os.MkdirAll(cacheDir, 0755)
		_ = os.WriteFile(filepath.Join(cacheDir, "index.json"), []byte(`{"version":1,"entries":{"a.md":{"id":"a"}}}`), 0644)

		c := newCache(tmpDir, ".cache")
		if err := c.Load(); err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if c.Len() != 0 {
			t.Errorf("Expected outdated index to be dropped, got %d entries", c.Len())
		}
	})

	t.Run("Keeps Unsaved Entries", func(t *testing.T) {
		c := newCache(t.TempDir(), ".cache")
		c.Set("acme/a.json", &indexEntry{ID: "a"})

		if err := c.Load(); err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if c.Len() != 1 {
			t.Errorf("expected dirty entry to survive Load, got %d entries", c.Len())
		}
	})
}

func TestCache_SaveAndGet(t *testing.T) {
	tmpDir := t.TempDir()
	c := newCache(tmpDir, ".cache")

	if err := c.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(c.Path); !os.IsNotExist(err) {
		t.Error("clean cache must not be written")
	}

	mtime := time.Now().Truncate(time.Second)
	c.Set("acme/a.json", &indexEntry{Tenant: "acme", ID: "a", LastModified: mtime})
	if err := c.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	reloaded := newCache(tmpDir, ".cache")
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if _, hit := reloaded.Get("acme/a.json", mtime); !hit {
		t.Error("expected cache hit for matching mtime")
	}
	if _, hit := reloaded.Get("acme/a.json", mtime.Add(time.Second)); hit {
		t.Error("expected cache miss for newer mtime")
	}

	reloaded.Prune(map[string]bool{})
	if reloaded.Len() != 0 {
		t.Errorf("expected prune to empty the cache, got %d", reloaded.Len())
	}
}
