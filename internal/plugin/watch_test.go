package plugin

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dshills/switchboard/internal/event"
	"github.com/dshills/switchboard/internal/hook"
	"github.com/dshills/switchboard/internal/logging"
)

func TestWatcherReloadsChangedPlugin(t *testing.T) {
	e := newEnv(t)
	e.script(t, "live", `sb.register_hook("version", "test", function() return "v1" end)`)

	ctx := context.Background()
	if _, err := e.manager.Load(ctx, "live"); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(ctx, e.manager, WithDebounce(20*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	e.script(t, "live", `sb.register_hook("version", "test", function() return "v2" end)`)

	ok := eventually(t, 5*time.Second, func() bool {
		return e.hooks.Trigger(ctx, "version", "test", nil, nil) == "v2"
	})
	if !ok {
		t.Fatal("plugin was not reloaded")
	}
	if e.hooks.Len() != 1 {
		t.Errorf("hooks.Len = %d, want 1", e.hooks.Len())
	}

	if err := os.Remove(filepath.Join(e.dir, "live.lua")); err != nil {
		t.Fatal(err)
	}
	ok = eventually(t, 5*time.Second, func() bool {
		return e.manager.Get("live") == nil
	})
	if !ok {
		t.Fatal("removed plugin was not unloaded")
	}
	if e.hooks.Len() != 0 {
		t.Errorf("hooks.Len after removal = %d, want 0", e.hooks.Len())
	}
}

func TestWatcherSurvivesFailingHandlers(t *testing.T) {
	e := newEnv(t)
	e.script(t, "guard", `
sb.on("reload", "plugin", function() error("reload handler failed") end)
sb.register_hook("debug", "log", function() error("log handler failed") end)
`)
	e.script(t, "live", `sb.register_hook("version", "test", function() return "v1" end)`)

	ctx := context.Background()
	for _, name := range []string{"guard", "live"} {
		if _, err := e.manager.Load(ctx, name); err != nil {
			t.Fatal(err)
		}
	}

	logger := logging.NewHookBridge(e.hooks).Attach(zerolog.New(io.Discard).Level(zerolog.DebugLevel))
	w, err := NewWatcher(ctx, e.manager, WithDebounce(20*time.Millisecond), WithWatchLogger(logger))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	for _, version := range []string{"v2", "v3"} {
		e.script(t, "live", `sb.register_hook("version", "test", function() return "`+version+`" end)`)
		ok := eventually(t, 5*time.Second, func() bool {
			return e.hooks.Trigger(ctx, "version", "test", nil, nil) == version
		})
		if !ok {
			t.Fatalf("plugin was not reloaded to %s", version)
		}
	}
}

func TestWatcherLoadsNewDirectoryPlugin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	w, err := NewWatcher(ctx, e.manager, WithDebounce(20*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	e.writeFile(t, "fresh/init.lua", `sb.on("hello", "test", function() return false end)`)

	ok := eventually(t, 5*time.Second, func() bool {
		return e.manager.Get("fresh") != nil
	})
	if !ok {
		t.Fatal("new plugin was not loaded")
	}
	if e.events.Emit(ctx, "hello", "test", nil) {
		t.Error("handler from new plugin did not run")
	}
}

func TestWatcherPluginFor(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "named"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "named", ManifestFile), []byte("name: real-name\n"), 0644); err != nil {
		t.Fatal(err)
	}

	w := &Watcher{roots: []string{root}}

	tests := []struct {
		path string
		name string
		top  bool
		ok   bool
	}{
		{filepath.Join(root, "audit.lua"), "audit", true, true},
		{filepath.Join(root, "motd"), "motd", true, true},
		{filepath.Join(root, "motd", "init.lua"), "motd", false, true},
		{filepath.Join(root, "named", "init.lua"), "real-name", false, true},
		{filepath.Join(root, "notes.txt"), "", false, false},
		{filepath.Join(root, ".swap.lua"), "", false, false},
		{filepath.Join(t.TempDir(), "other.lua"), "", false, false},
		{root, "", false, false},
	}

	for _, tt := range tests {
		_, name, top, ok := w.pluginFor(tt.path)
		if name != tt.name || top != tt.top || ok != tt.ok {
			t.Errorf("pluginFor(%s) = (%q, %v, %v), want (%q, %v, %v)",
				tt.path, name, top, ok, tt.name, tt.top, tt.ok)
		}
	}
}

func TestWatcherClose(t *testing.T) {
	e := newEnv(t)
	w, err := NewWatcher(context.Background(), e.manager)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestWatcherMissingRoot(t *testing.T) {
	m := NewManager(event.NewRegistry(), hook.NewRegistry(), []string{filepath.Join(t.TempDir(), "absent")})

	w, err := NewWatcher(context.Background(), m)
	if err != nil {
		t.Fatalf("NewWatcher with missing root: %v", err)
	}
	_ = w.Close()
}
