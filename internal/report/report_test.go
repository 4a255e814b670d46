package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/psantana5/frc/internal/jsruntime"
	"github.com/psantana5/frc/internal/supervisor"
)

func sampleOutcome() *supervisor.Outcome {
	start := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	return &supervisor.Outcome{
		PID:        4242,
		ExitCode:   134,
		Reason:     supervisor.ExitReasonOOM,
		OOM:        true,
		StartedAt:  start,
		FinishedAt: start.Add(3 * time.Second),
	}
}

func TestSummary(t *testing.T) {
	r := NewResult("run-1", "shop", jsruntime.Node, 4096, sampleOutcome())
	r.NextMemoryMB = 6144

	want := "RUN shop | runtime=node | memory=4096 | exit=134 | oom=true | next=6144 | duration=3s | id=run-1"
	if got := r.Summary(); got != want {
		t.Errorf("Summary() =\n  %q\nwant\n  %q", got, want)
	}
}

func TestSummaryWithoutCeilingOrProject(t *testing.T) {
	out := sampleOutcome()
	out.ExitCode, out.Signal, out.OOM, out.Reason = 137, "SIGKILL", false, supervisor.ExitReasonSignal

	got := NewResult("run-2", "", jsruntime.Deno, 0, out).Summary()
	if !strings.HasPrefix(got, "RUN - | runtime=deno | memory=none | exit=137 | signal=SIGKILL | oom=false") {
		t.Errorf("unexpected summary %q", got)
	}
}

func TestNewResultWithoutOutcome(t *testing.T) {
	r := NewResult("run-3", "p", jsruntime.Node, 2048, nil)
	if r.ExitCode != -1 || r.PID != 0 {
		t.Errorf("unexpected result %+v", r)
	}
}

func TestRecordResult(t *testing.T) {
	m := NewMetrics()
	m.RecordResult(NewResult("a", "p", jsruntime.Node, 4096, sampleOutcome()))

	ok := sampleOutcome()
	ok.ExitCode, ok.OOM, ok.Reason = 0, false, supervisor.ExitReasonSuccess
	m.RecordResult(NewResult("b", "p", jsruntime.Node, 6144, ok))

	if got := testutil.ToFloat64(m.runs.WithLabelValues("node", "oom")); got != 1 {
		t.Errorf("oom runs = %v", got)
	}
	if got := testutil.ToFloat64(m.runs.WithLabelValues("node", "success")); got != 1 {
		t.Errorf("success runs = %v", got)
	}
	if got := testutil.ToFloat64(m.oom.WithLabelValues("node")); got != 1 {
		t.Errorf("frc_oom_total = %v", got)
	}
	if got := testutil.ToFloat64(m.ceiling.WithLabelValues("node")); got != 6144 {
		t.Errorf("frc_memory_ceiling_mb = %v", got)
	}
	if got := testutil.ToFloat64(m.exitCode); got != 0 {
		t.Errorf("frc_child_exit_code = %v", got)
	}
}

func TestWriteText(t *testing.T) {
	m := NewMetrics()
	m.RecordResult(NewResult("a", "p", jsruntime.Deno, 8192, sampleOutcome()))

	var buf bytes.Buffer
	if err := m.WriteText(&buf); err != nil {
		t.Fatalf("WriteText: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"# TYPE frc_runs_total counter",
		`frc_runs_total{reason="oom",runtime="deno"} 1`,
		`frc_oom_total{runtime="deno"} 1`,
		`frc_memory_ceiling_mb{runtime="deno"} 8192`,
		"frc_child_exit_code 134",
		"frc_child_duration_seconds 3",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("exposition missing %q:\n%s", want, out)
		}
	}
}
