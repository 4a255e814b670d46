package report

import (
	"bytes"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Metrics are boring counters only, each one explainable from a single Result.
// They live in a private registry and are only ever printed.
type Metrics struct {
	registry *prometheus.Registry

	runs     *prometheus.CounterVec
	oom      *prometheus.CounterVec
	ceiling  *prometheus.GaugeVec
	exitCode prometheus.Gauge
	duration prometheus.Gauge
}

// NewMetrics creates the counters and registers them
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "frc_runs_total",
			Help: "Child runs by runtime and exit reason.",
		}, []string{"runtime", "reason"}),
		oom: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "frc_oom_total",
			Help: "Child runs classified as out of memory.",
		}, []string{"runtime"}),
		ceiling: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "frc_memory_ceiling_mb",
			Help: "Heap ceiling passed to the child, 0 when none.",
		}, []string{"runtime"}),
		exitCode: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "frc_child_exit_code",
			Help: "Exit code frc propagated from the child.",
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "frc_child_duration_seconds",
			Help: "Wall time of the child process.",
		}),
	}
	m.registry.MustRegister(m.runs, m.oom, m.ceiling, m.exitCode, m.duration)
	return m
}

// RecordResult updates all counters from one Result
func (m *Metrics) RecordResult(r *Result) {
	runtime := string(r.Runtime)
	reason := string(r.Reason)
	if reason == "" {
		reason = "spawn_failure"
	}

	m.runs.WithLabelValues(runtime, reason).Inc()
	if r.OOM {
		m.oom.WithLabelValues(runtime).Inc()
	} else {
		// Present with zero so the family always shows up in the report
		m.oom.WithLabelValues(runtime).Add(0)
	}
	m.ceiling.WithLabelValues(runtime).Set(float64(r.MemoryMB))
	m.exitCode.Set(float64(r.ExitCode))
	m.duration.Set(r.Duration.Seconds())
}

// WriteText writes all metrics in the Prometheus text exposition format
func (m *Metrics) WriteText(w io.Writer) error {
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	var buf bytes.Buffer
	encoder := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := encoder.Encode(mf); err != nil {
			return fmt.Errorf("encode metric %s: %w", mf.GetName(), err)
		}
	}

	_, err = w.Write(buf.Bytes())
	return err
}
