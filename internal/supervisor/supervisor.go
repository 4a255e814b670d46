// Package supervisor runs one child process to completion, tees its stderr
// into a bounded buffer and classifies the exit.
//
// The child shares the parent's process group so terminal signals such as
// Ctrl-C reach it directly; the supervisor installs no handlers and imposes
// no timeout.
package supervisor

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/psantana5/frc/internal/frcerr"
	"github.com/psantana5/frc/internal/jsruntime"
	"github.com/psantana5/frc/internal/logging"
)

// Outcome is the result of one child execution
type Outcome struct {
	PID           int        `json:"pid"`
	ExitCode      int        `json:"exit_code"`
	Signal        string     `json:"signal,omitempty"`
	Reason        ExitReason `json:"exit_reason"`
	OOM           bool       `json:"oom"`
	StderrTail    []byte     `json:"-"`
	StderrDropped int64      `json:"stderr_dropped,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    time.Time  `json:"finished_at"`
}

// Duration returns execution duration
func (o *Outcome) Duration() time.Duration {
	if o.FinishedAt.IsZero() {
		return time.Since(o.StartedAt)
	}
	return o.FinishedAt.Sub(o.StartedAt)
}

// Config holds the streams and capture settings of a Supervisor.
// Nil streams default to the process's own stdin, stdout and stderr.
type Config struct {
	Stdin      io.Reader
	Stdout     io.Writer
	Stderr     io.Writer
	TailBytes  int
	Classifier Classifier
	Dir        string
}

// Supervisor spawns children described by jsruntime.Invocation
type Supervisor struct {
	cfg    Config
	logger *logging.Logger
}

// New creates a supervisor
func New(cfg Config, logger *logging.Logger) *Supervisor {
	if cfg.Stdin == nil {
		cfg.Stdin = os.Stdin
	}
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	if cfg.Stderr == nil {
		cfg.Stderr = os.Stderr
	}
	if cfg.TailBytes <= 0 {
		cfg.TailBytes = DefaultTailBytes
	}
	if cfg.Classifier == nil {
		cfg.Classifier = SignatureClassifier()
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Supervisor{cfg: cfg, logger: logger}
}

// Run starts the child, waits for it and classifies the exit.
// The only error is a spawn failure; a failing child is an Outcome.
func (s *Supervisor) Run(ctx context.Context, inv jsruntime.Invocation) (*Outcome, error) {
	if inv.Command == "" {
		return nil, frcerr.Newf(frcerr.KindSpawnFailure, "spawn", "", "no command given")
	}

	cmd := exec.CommandContext(ctx, inv.Command, inv.Args...)
	cmd.Env = inv.Env
	cmd.Dir = s.cfg.Dir
	cmd.Stdin = s.cfg.Stdin
	cmd.Stdout = s.cfg.Stdout

	tail := NewTailBuffer(s.cfg.TailBytes)
	cmd.Stderr = io.MultiWriter(tail, terminalWriter{w: s.cfg.Stderr})

	outcome := &Outcome{StartedAt: time.Now()}
	if err := cmd.Start(); err != nil {
		return nil, frcerr.New(frcerr.KindSpawnFailure, "spawn", inv.Command, err)
	}
	outcome.PID = cmd.Process.Pid
	s.logger.Debug("child started", map[string]interface{}{
		"pid":     outcome.PID,
		"command": inv.Command,
		"args":    inv.Args,
	})

	waitErr := cmd.Wait()
	outcome.FinishedAt = time.Now()

	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		// Stream copy problems; the exit status is still authoritative
		s.logger.Warn("child wait reported an error", map[string]interface{}{"error": waitErr.Error()})
	}

	if state := cmd.ProcessState; state != nil {
		if status, ok := state.Sys().(syscall.WaitStatus); ok {
			outcome.ExitCode, outcome.Signal, outcome.Reason = determineExit(status)
		} else {
			outcome.ExitCode = state.ExitCode()
			outcome.Reason = ExitReasonError
			if outcome.ExitCode == 0 {
				outcome.Reason = ExitReasonSuccess
			}
		}
	}

	outcome.StderrTail = tail.Bytes()
	outcome.StderrDropped = tail.Dropped()
	if s.cfg.Classifier(outcome.StderrTail) {
		outcome.OOM = true
		outcome.Reason = ExitReasonOOM
	}

	s.logger.Debug("child exited", map[string]interface{}{
		"pid":         outcome.PID,
		"exit_code":   outcome.ExitCode,
		"signal":      outcome.Signal,
		"exit_reason": string(outcome.Reason),
		"duration":    outcome.Duration().String(),
	})
	return outcome, nil
}

// terminalWriter forwards to the terminal and hides its errors so the
// capture buffer keeps receiving the stream.
type terminalWriter struct {
	w io.Writer
}

func (t terminalWriter) Write(p []byte) (int, error) {
	_, _ = t.w.Write(p)
	return len(p), nil
}
