package tracker

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the prometheus collectors of a session. The player updates
// them from the audio callback: counters and histograms are lock-free and
// do not allocate.
type Metrics struct {
	Ticks              prometheus.Counter
	Triggers           prometheus.Counter
	MissingInstruments prometheus.Counter
	Commands           *prometheus.CounterVec
	TickWork           prometheus.Histogram
}

const metricsNamespace = "mixseq"

// NewMetrics creates the collectors and registers them to reg. A nil reg
// leaves them unregistered, which is what the tests want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "ticks_total",
			Help:      "Number of sequencer steps played.",
		}),
		Triggers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "triggers_total",
			Help:      "Number of notes sent to instruments.",
		}),
		MissingInstruments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "missing_instruments_total",
			Help:      "Number of active steps skipped because their instrument was not in the pool.",
		}),
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "commands_total",
			Help:      "Number of commands executed, by operation.",
		}, []string{"op"}),
		TickWork: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "tick_work_seconds",
			Help:      "Time spent in the player for one audio block.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Ticks, m.Triggers, m.MissingInstruments, m.Commands, m.TickWork)
	}
	return m
}
