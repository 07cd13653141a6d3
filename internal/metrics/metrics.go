// Package metrics defines the prometheus collectors for the ingestion
// pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the pipeline collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	LinesTotal          *prometheus.CounterVec
	ChecksumErrorsTotal *prometheus.CounterVec
	DecodesTotal        *prometheus.CounterVec
	TriggersTotal       prometheus.Counter
	PersistErrorsTotal  *prometheus.CounterVec
	SourceState         *prometheus.GaugeVec
}

func New() *Metrics {
	return &Metrics{
		LinesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sailperf",
				Subsystem: "ingest",
				Name:      "lines_total",
				Help:      "Raw lines read per source",
			},
			[]string{"source"},
		),
		ChecksumErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sailperf",
				Subsystem: "ingest",
				Name:      "checksum_errors_total",
				Help:      "Decodable sentences rejected by checksum",
			},
			[]string{"identifier"},
		),
		DecodesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sailperf",
				Subsystem: "ingest",
				Name:      "decodes_total",
				Help:      "Sentences decoded per kind",
			},
			[]string{"kind"},
		),
		TriggersTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "sailperf",
				Subsystem: "persist",
				Name:      "triggers_total",
				Help:      "Trigger field arrivals handled by the persistence policy",
			},
		),
		PersistErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sailperf",
				Subsystem: "persist",
				Name:      "errors_total",
				Help:      "Persistence writes skipped or failed",
			},
			[]string{"writer"},
		),
		SourceState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "sailperf",
				Subsystem: "source",
				Name:      "state",
				Help:      "Source worker state (0=idle, 1=running, 2=stopped)",
			},
			[]string{"source"},
		),
	}
}

// Register adds every collector to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.LinesTotal,
		m.ChecksumErrorsTotal,
		m.DecodesTotal,
		m.TriggersTotal,
		m.PersistErrorsTotal,
		m.SourceState,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) Line(source string) {
	if m == nil {
		return
	}
	m.LinesTotal.WithLabelValues(source).Inc()
}

func (m *Metrics) ChecksumError(identifier string) {
	if m == nil {
		return
	}
	m.ChecksumErrorsTotal.WithLabelValues(identifier).Inc()
}

func (m *Metrics) Decoded(kind string) {
	if m == nil {
		return
	}
	m.DecodesTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) Trigger() {
	if m == nil {
		return
	}
	m.TriggersTotal.Inc()
}

func (m *Metrics) PersistError(writer string) {
	if m == nil {
		return
	}
	m.PersistErrorsTotal.WithLabelValues(writer).Inc()
}

func (m *Metrics) SetSourceState(source string, state int) {
	if m == nil {
		return
	}
	m.SourceState.WithLabelValues(source).Set(float64(state))
}
