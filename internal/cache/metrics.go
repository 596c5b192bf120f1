package cache

// EvictReason tells an eviction callback why an entry left the cache.
type EvictReason int

const (
	// EvictCapacity means the entry was the oldest when MaxEntries was reached.
	EvictCapacity EvictReason = iota + 1
	// EvictExpired means the entry was removed after its deadline passed.
	EvictExpired
)

func (r EvictReason) String() string {
	switch r {
	case EvictCapacity:
		return "capacity"
	case EvictExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Metrics receives cache signals. Implementations must be safe for
// concurrent use. Size is reported with the cache lock held.
type Metrics interface {
	Hit()
	Miss()
	Evict(reason EvictReason)
	Size(n int)
}

// NoopMetrics discards every signal.
type NoopMetrics struct{}

func (NoopMetrics) Hit()              {}
func (NoopMetrics) Miss()             {}
func (NoopMetrics) Evict(EvictReason) {}
func (NoopMetrics) Size(int)          {}
