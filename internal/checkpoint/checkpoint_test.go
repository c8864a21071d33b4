package checkpoint

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStore_SaveAndLatest(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	cp, err := store.Save("p1", map[string]string{"a.txt": "aaa", "b.txt": "bbb"})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if cp.Seq != 1 || cp.FilesCount != 2 {
		t.Errorf("snapshot = %+v", cp)
	}

	if _, err := store.Save("p1", map[string]string{"a.txt": "aaaa"}); err != nil {
		t.Fatalf("save: %v", err)
	}

	latest := store.Latest("p1")
	if latest == nil || latest.Seq != 2 || latest.Files["a.txt"] != "aaaa" {
		t.Errorf("latest = %+v", latest)
	}
	if store.Latest("other") != nil {
		t.Error("unknown project must have no snapshots")
	}
	if got := len(store.Trail("p1")); got != 2 {
		t.Errorf("trail = %d, want 2", got)
	}
}

func TestStore_PersistsAcrossLoads(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if _, err := store.Save("p1", map[string]string{"a.txt": "aaa"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := store.Save("p1", map[string]string{"a.txt": "aa2"}); err != nil {
		t.Fatalf("save: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "p1-2.json")); err != nil {
		t.Fatalf("snapshot file missing: %v", err)
	}

	fresh, err := NewStore(dir)
	if err != nil {
		t.Fatalf("fresh store: %v", err)
	}
	if err := fresh.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	latest := fresh.Latest("p1")
	if latest == nil || latest.Seq != 2 || latest.Files["a.txt"] != "aa2" {
		t.Errorf("reloaded latest = %+v", latest)
	}
}

func TestStore_CorruptFileSkipped(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "junk.json"), []byte("not json"), 0o644); err != nil {
		t.Fatalf("write junk: %v", err)
	}

	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := store.Load(); err != nil {
		t.Fatalf("load with junk present: %v", err)
	}
}
