package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/lifecycle/pkg/core/supervisor"
	"github.com/aretw0/lifecycle/pkg/core/worker"
	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/sparti/pkg/core"
	"github.com/aretw0/sparti/pkg/schema"
)

func TestWatcherSupervisorRestarts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo := newTestRepo(t, true)

	events := make(chan core.Event)
	created := make(chan *watchWorker, 2)

	spec := supervisor.Spec{
		Name: "fs-watcher",
		Type: string(worker.TypeGoroutine),
		Factory: func() (worker.Worker, error) {
			w := newWatchWorker(repo, "**", events)
			created <- w
			return w, nil
		},
		Backoff: supervisor.Backoff{
			InitialInterval: 10 * time.Millisecond,
			MaxInterval:     50 * time.Millisecond,
			Multiplier:      1,
			ResetDuration:   50 * time.Millisecond,
			MaxRestarts:     2,
			MaxDuration:     200 * time.Millisecond,
		},
		RestartPolicy: supervisor.RestartOnFailure,
	}

	sup := supervisor.New("test-watcher", supervisor.StrategyOneForOne, spec)
	if err := sup.Start(ctx); err != nil {
		t.Fatalf("failed to start supervisor: %v", err)
	}

	first := waitForWorker(t, created, "first")
	waitForWatcher(t, repo, true)

	waitForWatcherInit(t, first)
	_ = first.watcher.Close()

	second := waitForWorker(t, created, "second")
	if first == second {
		t.Fatalf("expected supervisor to restart watcher with a new instance")
	}
	waitForWatcher(t, repo, true)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	if err := sup.Stop(stopCtx); err != nil {
		t.Fatalf("failed to stop supervisor: %v", err)
	}
}

func TestWatch_EmitsTenantEvents(t *testing.T) {
	repo := newTestRepo(t, true)
	acme := core.WithTenant(context.Background(), "acme")

	// Directories must exist before watching starts.
	if err := repo.Save(acme, core.Document{ID: "home/hero", Fields: schema.Document{}}); err != nil {
		t.Fatal(err)
	}
	if err := repo.Save(acme, core.Document{ID: "home/faq", Fields: schema.Document{}}); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	events, err := repo.Watch(ctx, "home/hero")
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	waitForWatcher(t, repo, true)

	if err := repo.Save(acme, core.Document{ID: "home/faq", Fields: schema.Document{"q": schema.String("ignored")}}); err != nil {
		t.Fatal(err)
	}
	if err := repo.Save(acme, core.Document{ID: "home/hero", Fields: schema.Document{"title": schema.String("Hi")}}); err != nil {
		t.Fatal(err)
	}

	select {
	case e := <-events:
		if e.Tenant != "acme" || e.ID != "home/hero" {
			t.Errorf("unexpected event %s", e)
		}
		if e.Type == core.EventDelete {
			t.Errorf("expected a write event, got %s", e.Type)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for event")
	}

	cancel()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("events channel not closed after cancel")
		}
	}
}

func TestReconcile(t *testing.T) {
	repo := newTestRepo(t, true)
	ctx := core.WithTenant(context.Background(), "acme")

	if err := repo.Save(ctx, core.Document{ID: "keep"}); err != nil {
		t.Fatal(err)
	}
	if err := repo.Save(ctx, core.Document{ID: "gone"}); err != nil {
		t.Fatal(err)
	}
	if events, err := repo.Reconcile(ctx); err != nil || len(events) != 0 {
		t.Fatalf("expected clean reconcile, got %v, %v", events, err)
	}

	// Changes behind the repository's back.
	if err := os.Remove(filepath.Join(repo.Path, "acme", "gone.json")); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(repo.Path, "acme", "new.json"), []byte(`{"fields":{}}`), 0644); err != nil {
		t.Fatal(err)
	}

	events, err := repo.Reconcile(ctx)
	if err != nil {
		t.Fatal(err)
	}
	got := map[string]core.EventType{}
	for _, e := range events {
		got[e.ID] = e.Type
	}
	if got["gone"] != core.EventDelete || got["new"] != core.EventCreate || len(got) != 2 {
		t.Errorf("unexpected reconcile events %v", got)
	}

	st := repo.State().(RepositoryState)
	if st.LastReconcile == nil {
		t.Error("expected LastReconcile to be recorded")
	}
}

func TestResolveAndIgnore(t *testing.T) {
	repo := newTestRepo(t, true)
	join := func(parts ...string) string {
		return filepath.Join(append([]string{repo.Path}, parts...)...)
	}

	tenant, id, err := repo.resolveID(join("acme", "home", "hero.yaml"))
	if err != nil || tenant != "acme" || id != "home/hero" {
		t.Errorf("resolveID = %q, %q, %v", tenant, id, err)
	}
	if _, _, err := repo.resolveID(join("stray.json")); err == nil {
		t.Error("files outside a tenant directory must not resolve")
	}

	tests := []struct {
		path    string
		pattern string
		ignore  bool
	}{
		{join("acme", "home", "hero.json"), "**", false},
		{join("acme", "home", "hero.json"), "home/*", false},
		{join("acme", "home", "hero.json"), "about/*", true},
		{join("acme", "notes.txt"), "**", true},
		{join(".sparti", "index.json"), "**", true},
		{join("acme", TempFilePrefix+"123"), "**", true},
	}
	for _, tc := range tests {
		got := repo.shouldIgnore(fsnotify.Event{Name: tc.path, Op: fsnotify.Write}, tc.pattern)
		if got != tc.ignore {
			t.Errorf("shouldIgnore(%s, %s) = %v, want %v", tc.path, tc.pattern, got, tc.ignore)
		}
	}

	if repo.mapEventType(fsnotify.Event{Op: fsnotify.Chmod}) != "" {
		t.Error("chmod must not produce an event")
	}
	if repo.mapEventType(fsnotify.Event{Op: fsnotify.Remove}) != core.EventDelete {
		t.Error("remove must map to delete")
	}
}

func TestDebouncer_CoalescesPerDocument(t *testing.T) {
	d := newDebouncer(20 * time.Millisecond)
	delivered := make(chan core.Event, 10)
	deliver := func(e core.Event) { delivered <- e }

	d.add(core.Event{Type: core.EventCreate, Tenant: "acme", ID: "a"}, deliver)
	d.add(core.Event{Type: core.EventModify, Tenant: "acme", ID: "a"}, deliver)
	d.add(core.Event{Type: core.EventModify, Tenant: "acme", ID: "b"}, deliver)

	time.Sleep(100 * time.Millisecond)
	if !d.stopAndWait(time.Second) {
		t.Fatal("debouncer did not drain")
	}
	close(delivered)

	got := map[string]core.EventType{}
	for e := range delivered {
		if _, dup := got[e.ID]; dup {
			t.Errorf("duplicate delivery for %s", e.ID)
		}
		got[e.ID] = e.Type
	}
	if got["a"] != core.EventModify || got["b"] != core.EventModify {
		t.Errorf("unexpected deliveries %v", got)
	}

	d.add(core.Event{ID: "late"}, func(core.Event) { t.Error("stopped debouncer must not deliver") })
	time.Sleep(50 * time.Millisecond)
}

func waitForWorker(t *testing.T, ch <-chan *watchWorker, label string) *watchWorker {
	t.Helper()

	select {
	case w := <-ch:
		return w
	case <-time.After(2 * time.Second):
		t.Fatalf("timeout waiting for %s worker", label)
		return nil
	}
}

func waitForWatcherInit(t *testing.T, w *watchWorker) {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		if w.watcher != nil {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("timeout waiting for watcher initialization")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func waitForWatcher(t *testing.T, repo *Repository, expected bool) {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		state, ok := repo.State().(RepositoryState)
		if ok && state.WatcherActive == expected {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("timeout waiting for watcher state = %v", expected)
		case <-time.After(10 * time.Millisecond):
		}
	}
}
