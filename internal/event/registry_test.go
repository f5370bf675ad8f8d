package event

import (
	"context"
	"sync"
	"testing"

	"github.com/dshills/switchboard/internal/priority"
)

// recorder collects the names of handlers as they run.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) handler(name string, result Result) Handler {
	return Func(func(ctx context.Context, evt Event) Result {
		r.mu.Lock()
		r.calls = append(r.calls, name)
		r.mu.Unlock()
		return result
	})
}

func (r *recorder) got() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	copy(out, r.calls)
	return out
}

func expectCalls(t *testing.T, rec *recorder, want ...string) {
	t.Helper()
	got := rec.got()
	if len(got) != len(want) {
		t.Fatalf("expected calls %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected calls %v, got %v", want, got)
		}
	}
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()

	if r == nil {
		t.Fatal("expected non-nil registry")
	}
	if r.Len() != 0 {
		t.Errorf("expected len 0, got %d", r.Len())
	}
}

func TestRegistry_On_Validation(t *testing.T) {
	r := NewRegistry()
	rec := &recorder{}
	h := rec.handler("h", Continue)

	tests := []struct {
		name       string
		event      string
		objectType string
		handler    Handler
		want       bool
	}{
		{"valid", "create", "user", h, true},
		{"empty event", "", "user", h, false},
		{"empty type", "create", "", h, false},
		{"nil handler", "create", "user", nil, false},
		{"nil func", "create", "user", Func(nil), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.On(tt.event, tt.objectType, tt.handler); got != tt.want {
				t.Errorf("On() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRegistry_Emit_NoHandlers(t *testing.T) {
	r := NewRegistry()

	if !r.Emit(context.Background(), "create", "user", nil) {
		t.Error("emit with no handlers should return true")
	}
}

func TestRegistry_Emit_PriorityOrder(t *testing.T) {
	r := NewRegistry()
	rec := &recorder{}

	r.On("create", "user", rec.handler("low", Continue), AtPriority(900))
	r.On("create", "user", rec.handler("high", Continue), AtPriority(10))
	r.On("create", "user", rec.handler("normal", Continue))

	if !r.Emit(context.Background(), "create", "user", nil) {
		t.Error("expected emit to succeed")
	}
	expectCalls(t, rec, "high", "normal", "low")
}

func TestRegistry_Emit_SamePriorityKeepsRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	rec := &recorder{}

	r.On("create", "user", rec.handler("first", Continue))
	r.On("create", "user", rec.handler("second", Continue))

	r.Emit(context.Background(), "create", "user", nil)
	expectCalls(t, rec, "first", "second")

	entries := r.Entries("create", "user")
	if entries[0].Priority != priority.DefaultPriority || entries[1].Priority != priority.DefaultPriority+1 {
		t.Errorf("expected priorities 500 and 501, got %d and %d", entries[0].Priority, entries[1].Priority)
	}
}

func TestRegistry_Emit_StopHaltsChain(t *testing.T) {
	r := NewRegistry()
	rec := &recorder{}

	r.On("delete", "user", rec.handler("h1", Continue), AtPriority(1))
	r.On("delete", "user", rec.handler("h2", Stop), AtPriority(2))
	r.On("delete", "user", rec.handler("h3", Continue), AtPriority(3))
	r.On("all", "all", rec.handler("wildcard", Continue))

	if r.Emit(context.Background(), "delete", "user", nil) {
		t.Error("expected emit to return false")
	}
	expectCalls(t, rec, "h1", "h2")
}

func TestRegistry_Emit_StopInWildcardBucket(t *testing.T) {
	r := NewRegistry()
	rec := &recorder{}

	r.On("delete", "user", rec.handler("exact", Continue))
	r.On(priority.Wildcard, "user", rec.handler("veto", Stop))
	r.On("delete", priority.Wildcard, rec.handler("never", Continue))

	if r.Emit(context.Background(), "delete", "user", nil) {
		t.Error("expected emit to return false")
	}
	expectCalls(t, rec, "exact", "veto")
}

func TestRegistry_Emit_WildcardPrecedence(t *testing.T) {
	r := NewRegistry()
	rec := &recorder{}

	// Declared priorities deliberately favor the wildcard buckets.
	r.On("all", "all", rec.handler("all-all", Continue), AtPriority(0))
	r.On("create", "all", rec.handler("create-all", Continue), AtPriority(0))
	r.On("all", "user", rec.handler("all-user", Continue), AtPriority(0))
	r.On("create", "user", rec.handler("exact", Continue), AtPriority(1000))

	r.Emit(context.Background(), "create", "user", nil)
	expectCalls(t, rec, "exact", "all-user", "create-all", "all-all")
}

func TestRegistry_Emit_WildcardDoesNotMatchOtherKeys(t *testing.T) {
	r := NewRegistry()
	rec := &recorder{}

	r.On("create", "group", rec.handler("group", Continue))
	r.On("update", "all", rec.handler("update-any", Continue))

	r.Emit(context.Background(), "create", "user", nil)
	expectCalls(t, rec)
}

func TestRegistry_Emit_WildcardKeyVisitsBucketsRepeatedly(t *testing.T) {
	r := NewRegistry()
	rec := &recorder{}

	r.On("all", "all", rec.handler("all-all", Continue))
	r.On("create", "all", rec.handler("create-all", Continue))

	r.Emit(context.Background(), "all", "all", nil)
	expectCalls(t, rec, "all-all", "all-all", "all-all", "all-all")

	rec = &recorder{}
	r.Reset()
	r.On("all", "all", rec.handler("all-all", Continue))
	r.On("create", "all", rec.handler("create-all", Continue))

	r.Emit(context.Background(), "create", "all", nil)
	expectCalls(t, rec, "create-all", "all-all", "create-all", "all-all")
}

func TestRegistry_Emit_PassesEvent(t *testing.T) {
	r := NewRegistry()
	subject := &struct{ ID int }{ID: 7}

	var got Event
	r.On("all", "all", Func(func(ctx context.Context, evt Event) Result {
		got = evt
		return Continue
	}))

	r.Emit(context.Background(), "update", "user", subject)

	if got.Name != "update" || got.ObjectType != "user" {
		t.Errorf("expected update:user, got %s:%s", got.Name, got.ObjectType)
	}
	if got.Subject != subject {
		t.Error("expected subject to be passed through")
	}
	if got.Key() != (priority.Key{Primary: "update", Secondary: "user"}) {
		t.Errorf("unexpected key %v", got.Key())
	}
}

func TestRegistry_Off(t *testing.T) {
	r := NewRegistry()
	rec := &recorder{}
	h := rec.handler("h", Continue)

	r.On("create", "user", h)
	r.Off("create", "user", h)

	if got := r.Handlers("create", "user"); len(got) != 0 {
		t.Errorf("expected no handlers, got %d", len(got))
	}
	r.Emit(context.Background(), "create", "user", nil)
	expectCalls(t, rec)
}

func TestRegistry_Off_BucketScoped(t *testing.T) {
	r := NewRegistry()
	rec := &recorder{}
	h := rec.handler("h", Continue)

	r.On("create", "user", h)
	r.On(priority.Wildcard, "user", h)

	r.Off("create", "user", h)

	r.Emit(context.Background(), "create", "user", nil)
	expectCalls(t, rec, "h")
}

func TestRegistry_Off_Unknown(t *testing.T) {
	r := NewRegistry()
	rec := &recorder{}

	// Must not panic.
	r.Off("missing", "bucket", rec.handler("h", Continue))
	r.Off("missing", "bucket", nil)
}

func TestRegistry_Emit_PanicPropagates(t *testing.T) {
	r := NewRegistry()
	rec := &recorder{}

	r.On("create", "user", Func(func(ctx context.Context, evt Event) Result {
		panic("boom")
	}), AtPriority(1))
	r.On("create", "user", rec.handler("after", Continue), AtPriority(2))

	defer func() {
		if p := recover(); p != "boom" {
			t.Errorf("expected panic boom, got %v", p)
		}
		expectCalls(t, rec)
	}()
	r.Emit(context.Background(), "create", "user", nil)
	t.Fatal("expected panic")
}

func TestRegistry_Emit_Recursive(t *testing.T) {
	r := NewRegistry()
	depth := 0

	r.On("tick", "system", Func(func(ctx context.Context, evt Event) Result {
		depth++
		if depth < 5 {
			r.Emit(ctx, "tick", "system", nil)
		}
		return Continue
	}))

	if !r.Emit(context.Background(), "tick", "system", nil) {
		t.Error("expected recursive emit to succeed")
	}
	if depth != 5 {
		t.Errorf("expected depth 5, got %d", depth)
	}
}

func TestRegistry_Emit_RegisterDuringDispatch(t *testing.T) {
	r := NewRegistry()
	rec := &recorder{}
	late := rec.handler("late", Continue)

	r.On("create", "user", Func(func(ctx context.Context, evt Event) Result {
		r.On("all", "all", late)
		return Continue
	}))

	r.Emit(context.Background(), "create", "user", nil)
	expectCalls(t, rec, "late")
}

func TestRegistry_Purge(t *testing.T) {
	r := NewRegistry()
	rec := &recorder{}
	a := rec.handler("a", Continue)
	b := rec.handler("b", Continue)

	r.On("create", "user", a)
	r.On("all", "all", a)
	r.On("create", "user", b)

	if removed := r.Purge(func(h Handler) bool { return h == a }); removed != 2 {
		t.Errorf("expected 2 removed, got %d", removed)
	}

	r.Emit(context.Background(), "create", "user", nil)
	expectCalls(t, rec, "b")
}

func TestRegistry_Observer(t *testing.T) {
	r := NewRegistry()
	seen := 0

	r.On("create", "user", Observer(func(ctx context.Context, evt Event) { seen++ }))

	if !r.Emit(context.Background(), "create", "user", nil) {
		t.Error("observers never stop dispatch")
	}
	if seen != 1 {
		t.Errorf("expected observer to run once, got %d", seen)
	}
	if Observer(nil) != nil {
		t.Error("Observer(nil) should be nil")
	}
}

func TestRegistry_Options(t *testing.T) {
	r := NewRegistry(WithPolicy(priority.Reject), WithDefaultPriority(10))
	rec := &recorder{}

	if !r.On("a", "b", rec.handler("first", Continue)) {
		t.Fatal("first registration should succeed")
	}
	if r.On("a", "b", rec.handler("second", Continue)) {
		t.Error("reject policy should refuse the occupied default slot")
	}
	if got := r.Entries("a", "b")[0].Priority; got != 10 {
		t.Errorf("expected default priority 10, got %d", got)
	}
}

func TestRegistry_StatsAndReset(t *testing.T) {
	r := NewRegistry()
	rec := &recorder{}

	r.On("a", "b", rec.handler("go", Continue), AtPriority(1))
	r.On("a", "b", rec.handler("halt", Stop), AtPriority(2))

	r.Emit(context.Background(), "a", "b", nil)
	r.Emit(context.Background(), "x", "y", nil)

	stats := r.Stats()
	if stats.Emitted != 2 || stats.Stopped != 1 || stats.Invoked != 2 {
		t.Errorf("unexpected stats %+v", stats)
	}

	r.Reset()
	if r.Len() != 0 || len(r.Buckets()) != 0 {
		t.Error("expected empty registry after reset")
	}
	if r.Stats() != (Stats{}) {
		t.Errorf("expected zero stats after reset, got %+v", r.Stats())
	}
}

func TestResult_String(t *testing.T) {
	tests := []struct {
		result Result
		want   string
	}{
		{Continue, "continue"},
		{Stop, "stop"},
		{Result(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.result.String(); got != tt.want {
			t.Errorf("Result(%d).String() = %q, want %q", tt.result, got, tt.want)
		}
	}
}
