package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus exposes application metrics and can be injected into the KV
// service layer. It implements internal/service.Metrics through method set
// compatibility, without importing that package.
type Prometheus struct {
	proposalTotal    *prometheus.CounterVec
	commitWait       *prometheus.HistogramVec
	duplicateTotal   *prometheus.CounterVec
	pendingRequests  *prometheus.GaugeVec
	lastApplied      *prometheus.GaugeVec
	snapshotDuration *prometheus.HistogramVec
	snapshotBytes    *prometheus.HistogramVec
	snapshotTotal    *prometheus.CounterVec
	installTotal     *prometheus.CounterVec
}

func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Prometheus{
		proposalTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "linearkv",
				Subsystem: "kv",
				Name:      "proposal_total",
				Help:      "Proposal outcomes (applied, not_leader, commit_timeout, duplicate_cached).",
			},
			[]string{"node_id", "result"},
		),
		commitWait: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "linearkv",
				Subsystem: "kv",
				Name:      "commit_wait_duration_seconds",
				Help:      "Time spent waiting for a proposed command to come back through the apply loop.",
				Buckets:   []float64{0.001, 0.0025, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1, 2},
			},
			[]string{"node_id", "result"},
		),
		duplicateTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "linearkv",
				Subsystem: "kv",
				Name:      "duplicate_total",
				Help:      "Committed commands suppressed by session deduplication.",
			},
			[]string{"node_id"},
		),
		pendingRequests: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "linearkv",
				Subsystem: "kv",
				Name:      "pending_requests",
				Help:      "In-flight requests waiting for their command to commit.",
			},
			[]string{"node_id"},
		),
		lastApplied: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "linearkv",
				Subsystem: "kv",
				Name:      "last_applied_index",
				Help:      "Highest log index applied to the state machine.",
			},
			[]string{"node_id"},
		),
		snapshotDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "linearkv",
				Subsystem: "kv",
				Name:      "snapshot_duration_seconds",
				Help:      "Duration of state machine snapshot creation and handoff to the engine.",
				Buckets:   []float64{0.001, 0.0025, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1, 2},
			},
			[]string{"node_id"},
		),
		snapshotBytes: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "linearkv",
				Subsystem: "kv",
				Name:      "snapshot_bytes",
				Help:      "Serialized snapshot payload size in bytes.",
				Buckets:   []float64{256, 1024, 4096, 16384, 65536, 262144, 1048576, 4194304, 16777216},
			},
			[]string{"node_id"},
		),
		snapshotTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "linearkv",
				Subsystem: "kv",
				Name:      "snapshot_total",
				Help:      "Snapshot attempts by result.",
			},
			[]string{"node_id", "result"},
		),
		installTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "linearkv",
				Subsystem: "kv",
				Name:      "snapshot_install_total",
				Help:      "Snapshot installs received from the engine by result (installed, stale).",
			},
			[]string{"node_id", "result"},
		),
	}

	if err := m.register(reg); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Prometheus) register(reg prometheus.Registerer) error {
	if err := registerOrReuseCounterVec(reg, &m.proposalTotal); err != nil {
		return fmt.Errorf("register proposal counter: %w", err)
	}
	if err := registerOrReuseHistogramVec(reg, &m.commitWait); err != nil {
		return fmt.Errorf("register commit wait histogram: %w", err)
	}
	if err := registerOrReuseCounterVec(reg, &m.duplicateTotal); err != nil {
		return fmt.Errorf("register duplicate counter: %w", err)
	}
	if err := registerOrReuseGaugeVec(reg, &m.pendingRequests); err != nil {
		return fmt.Errorf("register pending requests gauge: %w", err)
	}
	if err := registerOrReuseGaugeVec(reg, &m.lastApplied); err != nil {
		return fmt.Errorf("register last applied gauge: %w", err)
	}
	if err := registerOrReuseHistogramVec(reg, &m.snapshotDuration); err != nil {
		return fmt.Errorf("register snapshot duration histogram: %w", err)
	}
	if err := registerOrReuseHistogramVec(reg, &m.snapshotBytes); err != nil {
		return fmt.Errorf("register snapshot bytes histogram: %w", err)
	}
	if err := registerOrReuseCounterVec(reg, &m.snapshotTotal); err != nil {
		return fmt.Errorf("register snapshot counter: %w", err)
	}
	if err := registerOrReuseCounterVec(reg, &m.installTotal); err != nil {
		return fmt.Errorf("register install counter: %w", err)
	}
	return nil
}

func (m *Prometheus) IncProposal(nodeID, result string) {
	m.proposalTotal.WithLabelValues(nodeID, result).Inc()
}

func (m *Prometheus) ObserveCommitWait(nodeID string, d time.Duration, ok bool) {
	result := "timeout"
	if ok {
		result = "ok"
	}
	m.commitWait.WithLabelValues(nodeID, result).Observe(d.Seconds())
}

func (m *Prometheus) IncDuplicate(nodeID string) {
	m.duplicateTotal.WithLabelValues(nodeID).Inc()
}

func (m *Prometheus) SetPendingRequests(nodeID string, n int) {
	if n < 0 {
		n = 0
	}
	m.pendingRequests.WithLabelValues(nodeID).Set(float64(n))
}

func (m *Prometheus) SetLastApplied(nodeID string, index int64) {
	m.lastApplied.WithLabelValues(nodeID).Set(float64(index))
}

func (m *Prometheus) ObserveSnapshotDuration(nodeID string, d time.Duration) {
	m.snapshotDuration.WithLabelValues(nodeID).Observe(d.Seconds())
}

func (m *Prometheus) ObserveSnapshotBytes(nodeID string, n int) {
	if n < 0 {
		n = 0
	}
	m.snapshotBytes.WithLabelValues(nodeID).Observe(float64(n))
}

func (m *Prometheus) IncSnapshot(nodeID, result string) {
	m.snapshotTotal.WithLabelValues(nodeID, result).Inc()
}

func (m *Prometheus) IncInstall(nodeID, result string) {
	m.installTotal.WithLabelValues(nodeID, result).Inc()
}

func registerOrReuseHistogramVec(reg prometheus.Registerer, c **prometheus.HistogramVec) error {
	if err := reg.Register(*c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return err
		}
		existing, ok := already.ExistingCollector.(*prometheus.HistogramVec)
		if !ok {
			return fmt.Errorf("collector type mismatch for %T", *c)
		}
		*c = existing
	}
	return nil
}

func registerOrReuseCounterVec(reg prometheus.Registerer, c **prometheus.CounterVec) error {
	if err := reg.Register(*c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return err
		}
		existing, ok := already.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return fmt.Errorf("collector type mismatch for %T", *c)
		}
		*c = existing
	}
	return nil
}

func registerOrReuseGaugeVec(reg prometheus.Registerer, c **prometheus.GaugeVec) error {
	if err := reg.Register(*c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return err
		}
		existing, ok := already.ExistingCollector.(*prometheus.GaugeVec)
		if !ok {
			return fmt.Errorf("collector type mismatch for %T", *c)
		}
		*c = existing
	}
	return nil
}
