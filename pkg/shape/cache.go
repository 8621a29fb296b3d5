package shape

// CacheState is the state of an inline cache.
type CacheState uint8

const (
	CacheStateUninitialized CacheState = iota
	CacheStateMonomorphic              // Single shape cached
	CacheStatePolymorphic              // Several shapes cached
	CacheStateMegamorphic              // Too many shapes, always miss
)

func (s CacheState) String() string {
	switch s {
	case CacheStateMonomorphic:
		return "monomorphic"
	case CacheStatePolymorphic:
		return "polymorphic"
	case CacheStateMegamorphic:
		return "megamorphic"
	default:
		return "uninitialized"
	}
}

const maxCacheEntries = 16

type cacheEntry struct {
	shape *Shape
	slot  int
}

// InlineCache remembers member slots for the shapes seen at one access
// site. Shapes are compared by identity, which is only sound because equal
// layouts share one shape.
type InlineCache struct {
	state      CacheState
	entries    [maxCacheEntries]cacheEntry
	entryCount int
	limit      int
	hitCount   uint32
	missCount  uint32
}

// NewInlineCache returns a cache sized from the engine configuration.
func (e *Engine) NewInlineCache() *InlineCache {
	return NewInlineCache(e.cfg.InlineCacheEntries)
}

// NewInlineCache tracks up to limit shapes before going megamorphic.
func NewInlineCache(limit int) *InlineCache {
	if limit < 1 {
		limit = 1
	}
	if limit > maxCacheEntries {
		limit = maxCacheEntries
	}
	return &InlineCache{limit: limit}
}

func (ic *InlineCache) State() CacheState { return ic.state }
func (ic *InlineCache) Hits() uint32      { return ic.hitCount }
func (ic *InlineCache) Misses() uint32    { return ic.missCount }

// Lookup returns the cached slot for s.
func (ic *InlineCache) Lookup(s *Shape) (int, bool) {
	switch ic.state {
	case CacheStateMonomorphic:
		if ic.entries[0].shape == s {
			return ic.hit(0)
		}
	case CacheStatePolymorphic:
		for i := 0; i < ic.entryCount; i++ {
			if ic.entries[i].shape == s {
				// Move hit entry to front for better cache locality
				if i > 0 {
					entry := ic.entries[i]
					copy(ic.entries[1:i+1], ic.entries[0:i])
					ic.entries[0] = entry
				}
				return ic.hit(0)
			}
		}
	}
	ic.missCount++
	inlineCacheLookups.WithLabelValues(ic.state.String(), "miss").Inc()
	return -1, false
}

func (ic *InlineCache) hit(i int) (int, bool) {
	ic.hitCount++
	inlineCacheLookups.WithLabelValues(ic.state.String(), "hit").Inc()
	return ic.entries[i].slot, true
}

// Update records slot for s.
func (ic *InlineCache) Update(s *Shape, slot int) {
	switch ic.state {
	case CacheStateUninitialized:
		ic.state = CacheStateMonomorphic
		ic.entries[0] = cacheEntry{shape: s, slot: slot}
		ic.entryCount = 1
	case CacheStateMonomorphic, CacheStatePolymorphic:
		for i := 0; i < ic.entryCount; i++ {
			if ic.entries[i].shape == s {
				ic.entries[i].slot = slot
				return
			}
		}
		if ic.entryCount < ic.limit {
			ic.entries[ic.entryCount] = cacheEntry{shape: s, slot: slot}
			ic.entryCount++
			ic.state = CacheStatePolymorphic
			return
		}
		// Too many shapes - transition to megamorphic
		ic.state = CacheStateMegamorphic
		ic.entries = [maxCacheEntries]cacheEntry{}
		ic.entryCount = 0
	case CacheStateMegamorphic:
		return
	}
}

// Reset clears the cache. Hit and miss counts are kept.
func (ic *InlineCache) Reset() {
	ic.state = CacheStateUninitialized
	ic.entries = [maxCacheEntries]cacheEntry{}
	ic.entryCount = 0
}
