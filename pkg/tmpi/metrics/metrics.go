// Package metrics instruments the communication core with Prometheus
// counters and gauges. It is entirely optional: the zero value of
// *Registry is nil-safe, so a process that never calls NewRegistry pays
// no cost and the core has no hard runtime dependency on a collector
// being scraped.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry bundles the core's metrics. The envelope pools, the mailboxes
// and the lifecycle update the envelope, queue-depth and workers-active
// metrics; the barrier-entry and collective-invocation counters are
// registered, but the core's Barrier and collectives do not call
// BarrierEntered or CollectiveInvoked. All methods are nil-receiver safe
// so callers can pass a nil *Registry when metrics aren't wanted.
type Registry struct {
	envelopesAllocated prometheus.Counter
	envelopesReclaimed prometheus.Counter
	mailboxDepth       *prometheus.GaugeVec
	barrierEntries     prometheus.Counter
	collectiveTotal    *prometheus.CounterVec
	workersActive      prometheus.Gauge
}

// NewRegistry creates and registers the metric family on reg. Passing a
// fresh prometheus.NewRegistry() keeps tests isolated from the global
// default registry.
func NewRegistry(reg prometheus.Registerer) *Registry {
	m := &Registry{
		envelopesAllocated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tmpi",
			Subsystem: "envelope_pool",
			Name:      "allocated_total",
			Help:      "Number of envelopes allocated from a worker's freelist.",
		}),
		envelopesReclaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tmpi",
			Subsystem: "envelope_pool",
			Name:      "reclaimed_total",
			Help:      "Number of envelopes returned to a worker's freelist.",
		}),
		mailboxDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "tmpi",
			Subsystem: "mailbox",
			Name:      "queue_depth",
			Help:      "Current number of entries in a mailbox queue.",
		}, []string{"worker", "queue"}),
		barrierEntries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tmpi",
			Subsystem: "collective",
			Name:      "barrier_entries_total",
			Help:      "Number of times a worker entered a barrier.",
		}),
		collectiveTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tmpi",
			Subsystem: "collective",
			Name:      "invocations_total",
			Help:      "Number of collective operations executed, by kind.",
		}, []string{"kind"}),
		workersActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tmpi",
			Subsystem: "lifecycle",
			Name:      "workers_active",
			Help:      "Number of workers currently between init and finalize.",
		}),
	}
	reg.MustRegister(
		m.envelopesAllocated, m.envelopesReclaimed, m.mailboxDepth,
		m.barrierEntries, m.collectiveTotal, m.workersActive,
	)
	return m
}

func (m *Registry) EnvelopeAllocated() {
	if m == nil {
		return
	}
	m.envelopesAllocated.Inc()
}

func (m *Registry) EnvelopeReclaimed() {
	if m == nil {
		return
	}
	m.envelopesReclaimed.Inc()
}

func (m *Registry) SetMailboxDepth(worker string, queue string, depth int) {
	if m == nil {
		return
	}
	m.mailboxDepth.WithLabelValues(worker, queue).Set(float64(depth))
}

func (m *Registry) BarrierEntered() {
	if m == nil {
		return
	}
	m.barrierEntries.Inc()
}

func (m *Registry) CollectiveInvoked(kind string) {
	if m == nil {
		return
	}
	m.collectiveTotal.WithLabelValues(kind).Inc()
}

func (m *Registry) SetWorkersActive(n int) {
	if m == nil {
		return
	}
	m.workersActive.Set(float64(n))
}
