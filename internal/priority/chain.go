package priority

// Wildcard is the key part that matches any concrete key in its dimension.
const Wildcard = "all"

// Named priorities. Lower values run earlier.
const (
	// First runs before anything registered at a later slot.
	First = 0

	// Early is for core handlers that should observe before plugins.
	Early = 100

	// DefaultPriority is used when a caller has no ordering preference.
	DefaultPriority = 500

	// Late is for logging and metrics style handlers.
	Late = 900
)

// Key addresses one bucket.
type Key struct {
	Primary   string
	Secondary string
}

// String returns the key in "primary:secondary" form.
func (k Key) String() string {
	return k.Primary + ":" + k.Secondary
}

// IsWildcard reports whether either part of the key is the wildcard.
func (k Key) IsWildcard() bool {
	return k.Primary == Wildcard || k.Secondary == Wildcard
}

// Chain returns the buckets consulted when dispatching (primary,
// secondary), in precedence order: exact match, wildcard primary, wildcard
// secondary, full wildcard.
//
// The four keys are always returned. Dispatching a key that already
// contains the wildcard therefore visits some buckets more than once:
// ("create", "all") runs (create, all) and (all, all) twice each, and
// ("all", "all") runs the full wildcard bucket four times.
func Chain(primary, secondary string) []Key {
	return []Key{
		{primary, secondary},
		{Wildcard, secondary},
		{primary, Wildcard},
		{Wildcard, Wildcard},
	}
}
