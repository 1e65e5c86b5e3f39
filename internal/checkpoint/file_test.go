package checkpoint

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(filepath.Join(t.TempDir(), "checkpoint"))
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	return store
}

func TestLoadMissingFile(t *testing.T) {
	store := newTestStore(t)

	index, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if index != 0 {
		t.Errorf("Expected 0 for missing checkpoint, got %d", index)
	}
}

func TestLoadCorruptFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"garbage", "not a number"},
		{"negative", "-42"},
		{"empty", ""},
		{"float", "3.14"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			store := newTestStore(t)
			if err := os.WriteFile(store.Path(), []byte(test.content), 0o644); err != nil {
				t.Fatal(err)
			}

			index, err := store.Load()
			if err != nil {
				t.Fatalf("corrupt checkpoint must not be fatal, got: %v", err)
			}
			if index != 0 {
				t.Errorf("Expected corrupt checkpoint to load as 0, got %d", index)
			}
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)

	if err := store.Save(10000); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	index, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if index != 10000 {
		t.Errorf("Expected 10000, got %d", index)
	}
}

func TestSaveTrailingWhitespaceTolerated(t *testing.T) {
	store := newTestStore(t)
	if err := os.WriteFile(store.Path(), []byte("500\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	index, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if index != 500 {
		t.Errorf("Expected 500, got %d", index)
	}
}

func TestSaveIsMonotonic(t *testing.T) {
	store := newTestStore(t)

	if err := store.Save(20000); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	// A worker that finished an earlier index late must not move the
	// checkpoint backwards.
	if err := store.Save(10000); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	index, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if index != 20000 {
		t.Errorf("Expected checkpoint to stay at 20000, got %d", index)
	}
}

func TestSaveConcurrent(t *testing.T) {
	store := newTestStore(t)

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(n int64) {
			defer wg.Done()
			if err := store.Save(n * 1000); err != nil {
				t.Errorf("Save failed: %v", err)
			}
		}(int64(i))
	}
	wg.Wait()

	index, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if index != 50000 {
		t.Errorf("Expected high-water 50000, got %d", index)
	}
}

func TestSaveLeavesNoTempFile(t *testing.T) {
	store := newTestStore(t)
	if err := store.Save(123); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	entries, err := os.ReadDir(filepath.Dir(store.Path()))
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("Temp file left behind: %s", e.Name())
		}
	}
}

func TestClear(t *testing.T) {
	store := newTestStore(t)

	if err := store.Save(42); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	if _, err := os.Stat(store.Path()); !os.IsNotExist(err) {
		t.Error("Expected checkpoint file to be removed")
	}

	index, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if index != 0 {
		t.Errorf("Expected 0 after Clear, got %d", index)
	}

	// Clearing twice is not an error.
	if err := store.Clear(); err != nil {
		t.Errorf("Second Clear failed: %v", err)
	}
}
