package plugin

import (
	"errors"
	"sync"
	"testing"
)

func TestRegistry_LoadsBundledOnce(t *testing.T) {
	r := NewRegistry(nil)
	calls := 0
	r.Bundle("filters.extra", func() error {
		calls++
		return nil
	})

	for i := 0; i < 3; i++ {
		if err := r.Load("filters.extra"); err != nil {
			t.Fatalf("Load #%d: %v", i, err)
		}
	}
	if calls != 1 {
		t.Errorf("installer called %d times, want 1", calls)
	}
	if got := r.Loaded(); len(got) != 1 || got[0] != "filters.extra" {
		t.Errorf("Loaded() = %v", got)
	}
}

func TestRegistry_PluginFor(t *testing.T) {
	r := NewRegistry(nil)
	r.Bundle("hag", func() error { return nil }, "filters.hag_nn", "filters.hag_delaunay")
	r.Bundle("plain", func() error { return nil })

	if name, ok := r.PluginFor("filters.hag_nn"); !ok || name != "hag" {
		t.Errorf("PluginFor(filters.hag_nn) = %q, %v", name, ok)
	}
	if _, ok := r.PluginFor("filters.unknown"); ok {
		t.Error("PluginFor should not resolve an unbundled type")
	}
	if got := r.Loaded(); len(got) != 0 {
		t.Errorf("PluginFor must not load anything, Loaded() = %v", got)
	}
}

func TestRegistry_CachesFailure(t *testing.T) {
	calls := 0
	r := NewRegistry(LoaderFunc(func(name string) error {
		calls++
		return errors.New("no such shared object")
	}))

	err1 := r.Load("readers.missing")
	err2 := r.Load("readers.missing")
	if err1 == nil || err2 == nil {
		t.Fatal("expected errors")
	}
	if err1 != err2 {
		t.Errorf("second Load returned a different error: %v vs %v", err1, err2)
	}
	if calls != 1 {
		t.Errorf("fallback called %d times, want 1", calls)
	}
	if len(r.Loaded()) != 0 {
		t.Errorf("failed plugin listed as loaded: %v", r.Loaded())
	}
}

func TestRegistry_UnknownWithoutFallback(t *testing.T) {
	r := NewRegistry(nil)
	if err := r.Load("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load(nope) = %v, want ErrNotFound", err)
	}
	if err := r.Load(""); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load(\"\") = %v, want ErrNotFound", err)
	}
}

func TestRegistry_ConcurrentLoad(t *testing.T) {
	r := NewRegistry(nil)
	var mu sync.Mutex
	calls := 0
	r.Bundle("p", func() error {
		mu.Lock()
		calls++
		mu.Unlock()
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.Load("p")
		}()
	}
	wg.Wait()
	if calls != 1 {
		t.Errorf("installer called %d times, want 1", calls)
	}
}

func TestRegistry_Available(t *testing.T) {
	r := NewRegistry(nil)
	r.Bundle("b", func() error { return nil })
	r.Bundle("a", func() error { return nil })
	got := r.Available()
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Available() = %v", got)
	}
}
