package storage

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/totegamma/mediastore/internal/apperr"
)

// Metrics counts storage operations. A nil *Metrics records nothing.
type Metrics struct {
	operations    *prometheus.CounterVec
	uploadedBytes prometheus.Counter
	releasedBytes prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mediastore",
			Name:      "operations_total",
			Help:      "Storage operations by name and outcome.",
		}, []string{"op", "outcome"}),
		uploadedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mediastore",
			Name:      "stored_bytes_total",
			Help:      "Bytes added to accounts by uploads, duplicates and copies.",
		}),
		releasedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mediastore",
			Name:      "released_bytes_total",
			Help:      "Bytes released from accounts by deletions.",
		}),
	}
	reg.MustRegister(m.operations, m.uploadedBytes, m.releasedBytes)
	return m
}

func (m *Metrics) observe(op string, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, apperr.Code(err)).Inc()
}

func (m *Metrics) stored(n uint64) {
	if m == nil {
		return
	}
	m.uploadedBytes.Add(float64(n))
}

func (m *Metrics) released(n uint64) {
	if m == nil {
		return
	}
	m.releasedBytes.Add(float64(n))
}
