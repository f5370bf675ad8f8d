package plugin

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dshills/switchboard/internal/event"
	"github.com/dshills/switchboard/internal/hook"
)

type env struct {
	dir     string
	events  *event.Registry
	hooks   *hook.Registry
	manager *Manager
}

func newEnv(t *testing.T, opts ...ManagerOption) *env {
	t.Helper()
	dir := t.TempDir()
	events := event.NewRegistry()
	hooks := hook.NewRegistry()
	return &env{
		dir:     dir,
		events:  events,
		hooks:   hooks,
		manager: NewManager(events, hooks, []string{dir}, opts...),
	}
}

// writeFile writes content under the env dir, creating parents.
func (e *env) writeFile(t *testing.T, rel, content string) string {
	t.Helper()
	path := filepath.Join(e.dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// script writes a single-file plugin.
func (e *env) script(t *testing.T, name, src string) {
	t.Helper()
	e.writeFile(t, name+".lua", src)
}

// recoverPanic runs fn and returns the recovered value.
func recoverPanic(t *testing.T, fn func()) (v any) {
	t.Helper()
	defer func() {
		v = recover()
	}()
	fn()
	return nil
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}
