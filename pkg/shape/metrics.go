package shape

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// transitionLookups counts transition graph lookups by edge kind and result
	transitionLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shapegraph_transition_lookups_total",
		Help: "Transition graph lookups by edge kind and result",
	}, []string{"kind", "result"})

	// shapesCreated counts shapes by the operation that created them
	shapesCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shapegraph_shapes_created_total",
		Help: "Shapes created by originating operation",
	}, []string{"kind"})

	shapesDestroyed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shapegraph_shapes_destroyed_total",
		Help: "Shapes finalized by graph teardown",
	})

	liveShapes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shapegraph_live_shapes",
		Help: "Shapes currently registered across all engines",
	})

	// hashRehashes counts property hash reallocations by reason (grow, truncate)
	hashRehashes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shapegraph_hash_rehash_total",
		Help: "Property hash table reallocations by reason",
	}, []string{"reason"})

	inlineCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shapegraph_inline_cache_total",
		Help: "Inline cache lookups by cache state and result",
	}, []string{"state", "result"})
)
