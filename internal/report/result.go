// Package report turns a finished run into a one-line summary and a set of
// Prometheus counters printed to the terminal.
package report

import (
	"fmt"
	"time"

	"github.com/psantana5/frc/internal/jsruntime"
	"github.com/psantana5/frc/internal/supervisor"
)

// Result is the record of one invocation. Built once after the child exits.
type Result struct {
	// Identity
	RunID   string `json:"run_id" yaml:"run_id"`
	Project string `json:"project,omitempty" yaml:"project,omitempty"`
	PID     int    `json:"pid" yaml:"pid"`

	// Configuration
	Runtime      jsruntime.Kind `json:"runtime" yaml:"runtime"`
	MemoryMB     int            `json:"memory_mb,omitempty" yaml:"memory_mb,omitempty"`
	NextMemoryMB int            `json:"next_memory_mb,omitempty" yaml:"next_memory_mb,omitempty"`

	// Timing
	StartTime time.Time     `json:"start_time" yaml:"start_time"`
	EndTime   time.Time     `json:"end_time" yaml:"end_time"`
	Duration  time.Duration `json:"duration_ns" yaml:"duration"`

	// Outcome
	ExitCode int                   `json:"exit_code" yaml:"exit_code"`
	Signal   string                `json:"signal,omitempty" yaml:"signal,omitempty"`
	Reason   supervisor.ExitReason `json:"exit_reason" yaml:"exit_reason"`
	OOM      bool                  `json:"oom" yaml:"oom"`
}

// NewResult builds a result from a supervisor outcome; outcome may be nil
// when the child never started.
func NewResult(runID, project string, kind jsruntime.Kind, memoryMB int, outcome *supervisor.Outcome) *Result {
	r := &Result{
		RunID:    runID,
		Project:  project,
		Runtime:  kind,
		MemoryMB: memoryMB,
	}
	if outcome == nil {
		r.ExitCode = -1
		return r
	}

	r.PID = outcome.PID
	r.StartTime = outcome.StartedAt
	r.EndTime = outcome.FinishedAt
	r.Duration = outcome.Duration()
	r.ExitCode = outcome.ExitCode
	r.Signal = outcome.Signal
	r.Reason = outcome.Reason
	r.OOM = outcome.OOM
	return r
}

// Summary is the human-readable one-line record of the run
func (r *Result) Summary() string {
	name := r.Project
	if name == "" {
		name = "-"
	}
	memory := "none"
	if r.MemoryMB > 0 {
		memory = fmt.Sprintf("%d", r.MemoryMB)
	}

	line := fmt.Sprintf("RUN %s | runtime=%s | memory=%s | exit=%d", name, r.Runtime, memory, r.ExitCode)
	if r.Signal != "" {
		line += " | signal=" + r.Signal
	}
	line += fmt.Sprintf(" | oom=%t", r.OOM)
	if r.NextMemoryMB > 0 {
		line += fmt.Sprintf(" | next=%d", r.NextMemoryMB)
	}
	return line + fmt.Sprintf(" | duration=%.0fs | id=%s", r.Duration.Seconds(), r.RunID)
}
