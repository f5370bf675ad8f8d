package priority

import (
	"cmp"
	"fmt"
	"reflect"
	"slices"
	"sort"
	"sync"
)

// Policy decides what happens when a requested priority is already taken
// in a bucket.
type Policy int

const (
	// Probe moves the registration to the next free slot above the
	// requested priority. First come gets the lower slot.
	Probe Policy = iota

	// Reject fails the registration instead.
	Reject
)

// String returns the policy name.
func (p Policy) String() string {
	switch p {
	case Probe:
		return "probe"
	case Reject:
		return "reject"
	default:
		return "unknown"
	}
}

// ParsePolicy converts a policy name back into a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "probe":
		return Probe, nil
	case "reject":
		return Reject, nil
	default:
		return Probe, fmt.Errorf("unknown collision policy %q", s)
	}
}

// Entry is a stored handler together with its effective priority.
type Entry[H any] struct {
	Priority int
	Handler  H
}

// Option configures a Map.
type Option func(*mapConfig)

type mapConfig struct {
	policy Policy
}

// WithPolicy sets the priority collision policy.
func WithPolicy(p Policy) Option {
	return func(c *mapConfig) {
		c.policy = p
	}
}

// Map is a priority ordered multi-map keyed by (primary, secondary).
// It is safe for concurrent use. Read methods return copies, so callers
// may invoke handlers without holding any lock.
type Map[H any] struct {
	mu      sync.RWMutex
	buckets map[string]map[string][]Entry[H]
	count   int
	policy  Policy
}

// New creates an empty map.
func New[H any](opts ...Option) *Map[H] {
	cfg := mapConfig{policy: Probe}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Map[H]{
		buckets: make(map[string]map[string][]Entry[H]),
		policy:  cfg.policy,
	}
}

// Policy returns the collision policy in effect.
func (m *Map[H]) Policy() Policy {
	return m.policy
}

// Register stores h in the (primary, secondary) bucket.
//
// It returns false when either key part is empty, when h is nil or not
// comparable, or when the slot is taken under the Reject policy. Negative
// priorities are clamped to zero.
func (m *Map[H]) Register(primary, secondary string, h H, priority int) bool {
	_, ok := m.register(primary, secondary, h, priority)
	return ok
}

// RegisterAt behaves like Register and also returns the effective priority
// the handler was stored at.
func (m *Map[H]) RegisterAt(primary, secondary string, h H, priority int) (int, bool) {
	return m.register(primary, secondary, h, priority)
}

func (m *Map[H]) register(primary, secondary string, h H, priority int) (int, bool) {
	if primary == "" || secondary == "" || !Invokable(h) {
		return 0, false
	}
	if priority < 0 {
		priority = 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	bySecondary := m.buckets[primary]
	bucket := bySecondary[secondary]

	i, found := slices.BinarySearchFunc(bucket, priority, func(e Entry[H], p int) int {
		return cmp.Compare(e.Priority, p)
	})
	if found {
		if m.policy == Reject {
			return 0, false
		}
		// Priorities are strictly increasing, so walking forward finds the
		// first gap at or above the request.
		for i < len(bucket) && bucket[i].Priority == priority {
			priority++
			i++
		}
	}

	bucket = slices.Insert(bucket, i, Entry[H]{Priority: priority, Handler: h})
	if bySecondary == nil {
		bySecondary = make(map[string][]Entry[H])
		m.buckets[primary] = bySecondary
	}
	bySecondary[secondary] = bucket
	m.count++
	return priority, true
}

// Unregister removes every handler equal to h from the exact
// (primary, secondary) bucket and returns how many were removed.
// Wildcard buckets are not touched unless addressed directly.
func (m *Map[H]) Unregister(primary, secondary string, h H) int {
	target := any(h)
	if !Invokable(target) {
		return 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	bucket := m.buckets[primary][secondary]
	if len(bucket) == 0 {
		return 0
	}

	before := len(bucket)
	bucket = slices.DeleteFunc(bucket, func(e Entry[H]) bool {
		return any(e.Handler) == target
	})
	removed := before - len(bucket)
	m.store(primary, secondary, bucket)
	m.count -= removed
	return removed
}

// RemoveIf removes every handler, in any bucket, for which match returns
// true. It returns the number removed.
func (m *Map[H]) RemoveIf(match func(Key, H) bool) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for primary, bySecondary := range m.buckets {
		for secondary, bucket := range bySecondary {
			key := Key{Primary: primary, Secondary: secondary}
			before := len(bucket)
			bucket = slices.DeleteFunc(bucket, func(e Entry[H]) bool {
				return match(key, e.Handler)
			})
			removed += before - len(bucket)
			m.store(primary, secondary, bucket)
		}
	}
	m.count -= removed
	return removed
}

// store writes bucket back and prunes empty levels. Caller holds mu.
func (m *Map[H]) store(primary, secondary string, bucket []Entry[H]) {
	if len(bucket) > 0 {
		m.buckets[primary][secondary] = bucket
		return
	}
	delete(m.buckets[primary], secondary)
	if len(m.buckets[primary]) == 0 {
		delete(m.buckets, primary)
	}
}

// Lookup returns the handlers of the exact bucket in ascending priority
// order, or nil when the bucket does not exist.
func (m *Map[H]) Lookup(primary, secondary string) []H {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return handlersOf(m.buckets[primary][secondary])
}

// Entries returns the bucket's handlers along with their effective
// priorities.
func (m *Map[H]) Entries(primary, secondary string) []Entry[H] {
	m.mu.RLock()
	defer m.mu.RUnlock()

	bucket := m.buckets[primary][secondary]
	if len(bucket) == 0 {
		return nil
	}
	return slices.Clone(bucket)
}

// Resolve returns the handlers that apply to the concrete key, bucket by
// bucket in Chain order, taken as one consistent snapshot.
func (m *Map[H]) Resolve(primary, secondary string) []H {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var all []H
	for _, k := range Chain(primary, secondary) {
		all = append(all, handlersOf(m.buckets[k.Primary][k.Secondary])...)
	}
	return all
}

// Keys returns every non-empty bucket key, sorted.
func (m *Map[H]) Keys() []Key {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]Key, 0, len(m.buckets))
	for primary, bySecondary := range m.buckets {
		for secondary := range bySecondary {
			keys = append(keys, Key{Primary: primary, Secondary: secondary})
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Primary != keys[j].Primary {
			return keys[i].Primary < keys[j].Primary
		}
		return keys[i].Secondary < keys[j].Secondary
	})
	return keys
}

// Len returns the total number of stored handlers.
func (m *Map[H]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.count
}

// Reset removes everything.
func (m *Map[H]) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.buckets = make(map[string]map[string][]Entry[H])
	m.count = 0
}

func handlersOf[H any](bucket []Entry[H]) []H {
	if len(bucket) == 0 {
		return nil
	}
	out := make([]H, len(bucket))
	for i, e := range bucket {
		out[i] = e.Handler
	}
	return out
}

// Invokable reports whether h can be stored as a handler: it must be
// non-nil and comparable, since identity for unregistration is ==.
// Bare func values fail the comparable check; wrap them in a pointer.
func Invokable(h any) bool {
	if h == nil {
		return false
	}
	v := reflect.ValueOf(h)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		if v.IsNil() {
			return false
		}
	}
	return v.Comparable()
}
