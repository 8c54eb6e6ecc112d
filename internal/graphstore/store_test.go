package graphstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/banshee-data/pointpipe/internal/drivers"
	"github.com/banshee-data/pointpipe/internal/fsutil"
	"github.com/banshee-data/pointpipe/internal/pipeline"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	return s, path
}

func describe(t *testing.T, doc string) pipeline.GraphDescription {
	t.Helper()
	f, err := drivers.NewFactory()
	if err != nil {
		t.Fatalf("NewFactory: %v", err)
	}
	c := &pipeline.Compiler{Factory: f, FS: fsutil.NewMemoryFileSystem()}
	m, err := c.ReadString(doc)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return pipeline.Describe(m)
}

func TestOpen_MigratesSchema(t *testing.T) {
	s, _ := openTestStore(t)

	version, dirty, err := s.MigrateVersion()
	if err != nil {
		t.Fatalf("MigrateVersion: %v", err)
	}
	if version != 1 || dirty {
		t.Errorf("version = %d dirty = %v, want 1 false", version, dirty)
	}
	if err := s.MigrateUp(); err != nil {
		t.Errorf("second MigrateUp should be a no-op: %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	desc := describe(t, `[
		{"filename": {"path": "https://example.com/a.laz", "headers": {"Authorization": "token"}}, "tag": "src"},
		{"type": "filters.planefit", "knn": 6, "threads": 2},
		"out.ply"
	]`)

	uid, err := s.Save(ctx, "fit", desc)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, entry, err := s.Load(ctx, uid)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(desc, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
	if entry.Name != "fit" || entry.Stages != 3 || entry.Leaves != 1 {
		t.Errorf("entry = %+v", entry)
	}
	if want := time.Date(2026, 3, 1, 12, 1, 0, 0, time.UTC); !entry.CreatedAt.Equal(want) {
		t.Errorf("CreatedAt = %v, want %v", entry.CreatedAt, want)
	}
}

func TestList_NewestFirst(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	first, err := s.Save(ctx, "first", describe(t, `["a.las", "b.las"]`))
	if err != nil {
		t.Fatalf("Save first: %v", err)
	}
	second, err := s.Save(ctx, "second", describe(t, `["a.las", "b.las", {"type": "writers.null"}]`))
	if err != nil {
		t.Fatalf("Save second: %v", err)
	}

	entries, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("List returned %d entries, want 2", len(entries))
	}
	if entries[0].UID != second || entries[1].UID != first {
		t.Errorf("List order = [%s %s], want [%s %s]", entries[0].UID, entries[1].UID, second, first)
	}
	if entries[0].Stages != 3 {
		t.Errorf("second pipeline stages = %d, want 3", entries[0].Stages)
	}
}

func TestFindByStageTypeAndDelete(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	withFit, err := s.Save(ctx, "fit", describe(t, `["a.las", {"type": "filters.planefit"}, "o.las"]`))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := s.Save(ctx, "plain", describe(t, `["a.las", "o.las"]`)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	uids, err := s.FindByStageType(ctx, "filters.planefit")
	if err != nil {
		t.Fatalf("FindByStageType: %v", err)
	}
	if len(uids) != 1 || uids[0] != withFit {
		t.Errorf("FindByStageType = %v, want [%s]", uids, withFit)
	}

	if err := s.Delete(ctx, withFit); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	uids, err = s.FindByStageType(ctx, "filters.planefit")
	if err != nil {
		t.Fatalf("FindByStageType after delete: %v", err)
	}
	if len(uids) != 0 {
		t.Errorf("stages should cascade on delete, got %v", uids)
	}
	if err := s.Delete(ctx, withFit); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete error = %v, want ErrNotFound", err)
	}
}

func TestLoad_NotFound(t *testing.T) {
	s, _ := openTestStore(t)
	_, _, err := s.Load(context.Background(), "00000000-0000-0000-0000-000000000000")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Load error = %v, want ErrNotFound", err)
	}
}

func TestSave_EmptyName(t *testing.T) {
	s, _ := openTestStore(t)
	if _, err := s.Save(context.Background(), "  ", pipeline.GraphDescription{}); err == nil {
		t.Error("expected error for empty name")
	}
}

func TestReopenKeepsData(t *testing.T) {
	s, path := openTestStore(t)
	ctx := context.Background()
	uid, err := s.Save(ctx, "keep", describe(t, `["a.las"]`))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	s.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if _, entry, err := reopened.Load(ctx, uid); err != nil || entry.Name != "keep" {
		t.Errorf("Load after reopen = %+v, %v", entry, err)
	}
}

func TestJoinIDs(t *testing.T) {
	if got := joinIDs([]int{3, 0, 12}); got != "3,0,12" {
		t.Errorf("joinIDs = %q", got)
	}
	if got := joinIDs(nil); got != "" {
		t.Errorf("joinIDs(nil) = %q", got)
	}
}
