// Package manager composes project resolution, the config store, the
// process supervisor and the recovery policy into one run of a child, and
// implements the administrative operations on saved configs.
package manager

import (
	"context"
	"errors"
	"os"

	"github.com/google/uuid"

	"github.com/psantana5/frc/internal/frcerr"
	"github.com/psantana5/frc/internal/jsruntime"
	"github.com/psantana5/frc/internal/logging"
	"github.com/psantana5/frc/internal/project"
	"github.com/psantana5/frc/internal/recommend"
	"github.com/psantana5/frc/internal/recovery"
	"github.com/psantana5/frc/internal/report"
	"github.com/psantana5/frc/internal/store"
	"github.com/psantana5/frc/internal/supervisor"
)

// ExitSpawnFailure is returned when the child could not be started
const ExitSpawnFailure = 127

// Runner executes one child to completion
type Runner interface {
	Run(ctx context.Context, inv jsruntime.Invocation) (*supervisor.Outcome, error)
}

// Advisor supplies memory recommendations for the current machine
type Advisor interface {
	SystemMB() int
	SystemGB() int
	Default() int
	Recommendation(kind jsruntime.Kind) string
	Validate(kind jsruntime.Kind, memoryMB int) recommend.Advice
}

// Options wires a Manager. Store and Runner are required.
type Options struct {
	Store    store.Store
	Runner   Runner
	Resolver project.Resolver
	Advisor  Advisor
	Notifier *Notifier
	Logger   *logging.Logger
	Metrics  *report.Metrics
	Environ  func() []string
	Getwd    func() (string, error)
	NewRunID func() string
}

// Manager runs children and manages saved project configs
type Manager struct {
	store    store.Store
	runner   Runner
	resolver project.Resolver
	advisor  Advisor
	notify   *Notifier
	logger   *logging.Logger
	metrics  *report.Metrics
	environ  func() []string
	getwd    func() (string, error)
	newRunID func() string
}

// New creates a manager, filling optional collaborators with defaults
func New(opts Options) *Manager {
	m := &Manager{
		store:    opts.Store,
		runner:   opts.Runner,
		resolver: opts.Resolver,
		advisor:  opts.Advisor,
		notify:   opts.Notifier,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		environ:  opts.Environ,
		getwd:    opts.Getwd,
		newRunID: opts.NewRunID,
	}
	if m.resolver == nil {
		m.resolver = project.NewMarkerResolver()
	}
	if m.advisor == nil {
		m.advisor = recommend.NewAdvisor()
	}
	if m.notify == nil {
		m.notify = NewNotifier(os.Stderr, false)
	}
	if m.logger == nil {
		m.logger = logging.Nop()
	}
	if m.environ == nil {
		m.environ = os.Environ
	}
	if m.getwd == nil {
		m.getwd = os.Getwd
	}
	if m.newRunID == nil {
		m.newRunID = uuid.NewString
	}
	return m
}

// Request is one invocation of a child command
type Request struct {
	Command  string
	Args     []string
	Runtime  jsruntime.Kind // empty: derived from Command
	MemoryMB int            // 0: not supplied
	Dir      string         // empty: current directory
}

// MemorySource says where the ceiling of a run came from
type MemorySource string

const (
	SourceNone     MemorySource = "none"
	SourceExplicit MemorySource = "explicit"
	SourceSaved    MemorySource = "saved"
)

// Result is what the caller needs after a run
type Result struct {
	RunID        string
	ProjectID    string
	Runtime      jsruntime.Kind
	MemoryMB     int // ceiling decided for the run
	Applied      bool
	Source       MemorySource
	NextMemoryMB int // persisted after an OOM, 0 otherwise
	ExitCode     int
	Outcome      *supervisor.Outcome
	SpawnErr     error
	Report       *report.Result
}

// run carries the state of one invocation between phases
type run struct {
	req       Request
	kind      jsruntime.Kind
	log       *logging.Logger
	projectID string
	result    *Result
}

// Run executes the state machine ResolveProject, DetermineMemory, Execute,
// Classify, Persist or Notify, Done. The returned error is reserved for
// unusable requests; a failing or unstartable child is reported in Result.
func (m *Manager) Run(ctx context.Context, req Request) (*Result, error) {
	kind := req.Runtime
	if kind == "" {
		k, err := jsruntime.FromCommand(req.Command)
		if err != nil {
			return nil, err
		}
		kind = k
	}

	runID := m.newRunID()
	r := &run{
		req:  req,
		kind: kind,
		log:  m.logger.WithField("run_id", runID),
		result: &Result{
			RunID:   runID,
			Runtime: kind,
			Source:  SourceNone,
		},
	}

	m.resolveProject(r)
	m.determineMemory(r)
	m.execute(ctx, r)
	m.classify(r)
	m.done(r)
	return r.result, nil
}

func (m *Manager) state(r *run, name string, fields map[string]interface{}) {
	if fields == nil {
		fields = map[string]interface{}{}
	}
	fields["state"] = name
	r.log.Debug("run state", fields)
}

func (m *Manager) resolveProject(r *run) {
	dir := r.req.Dir
	if dir == "" {
		wd, err := m.getwd()
		if err != nil {
			m.projectUnavailable(r, err)
			return
		}
		dir = wd
	}

	id, err := m.resolver.Resolve(dir)
	if err != nil {
		m.projectUnavailable(r, err)
		return
	}

	r.projectID = id
	r.result.ProjectID = id
	r.log = r.log.WithField("project", id)
	m.state(r, "resolve_project", map[string]interface{}{"dir": dir})
}

func (m *Manager) projectUnavailable(r *run, err error) {
	r.log.Warn("project could not be resolved", map[string]interface{}{"error": err.Error()})
	m.notify.Warn("⚠️  Could not determine the project (%v); memory settings will not be saved", err)
	m.state(r, "resolve_project", map[string]interface{}{"project": "none"})
}

func (m *Manager) determineMemory(r *run) {
	defer func() {
		m.state(r, "determine_memory", map[string]interface{}{
			"memory_mb": r.result.MemoryMB,
			"source":    string(r.result.Source),
		})
	}()

	if r.req.MemoryMB > 0 {
		r.result.MemoryMB = r.req.MemoryMB
		r.result.Source = SourceExplicit

		if adv := m.advisor.Validate(r.kind, r.req.MemoryMB); !adv.Empty() {
			if adv.Severity == recommend.SeverityWarning {
				m.notify.Warn("⚠️  Warning: %s", adv.Message)
			} else {
				m.notify.Info("ℹ️  Info: %s", adv.Message)
			}
		}

		if r.projectID != "" {
			m.persist(r, r.req.MemoryMB, func() {
				m.notify.Success("💾 Saved config for '%s': %s %d MB", project.Name(r.projectID), r.kind, r.req.MemoryMB)
			})
		}
		return
	}

	if r.projectID == "" {
		return
	}

	saved, err := m.store.Get(r.projectID)
	switch {
	case err == nil && saved.Runtime == r.kind:
		r.result.MemoryMB = saved.MemoryMB
		r.result.Source = SourceSaved
		m.notify.Info("📌 Using saved config for '%s': %d MB", project.Name(r.projectID), saved.MemoryMB)
		m.persist(r, saved.MemoryMB, nil)
		return

	case err == nil:
		m.notify.Warn("⚠️  Saved config for '%s' is for %s, not %s; ignoring it",
			project.Name(r.projectID), saved.Runtime.DisplayName(), r.kind.DisplayName())
		return

	case !errors.Is(err, store.ErrNotFound):
		r.log.Warn("saved config lookup failed", map[string]interface{}{"error": err.Error()})
		return
	}

	if r.kind.SupportsMemoryLimit() {
		recommended := m.advisor.Default()
		m.notify.Hint("💡 No saved config. Recommended: %d MB", recommended)
		m.notify.Hint("   Run with -m %d to use and save this value", recommended)
	}
}

// persist writes the config for the current project; failures are reported
// and never change the run
func (m *Manager) persist(r *run, memoryMB int, onSaved func()) bool {
	err := m.store.Put(store.ProjectConfig{
		ProjectID: r.projectID,
		Runtime:   r.kind,
		MemoryMB:  memoryMB,
	})
	if err != nil {
		r.log.Error("failed to save project config", map[string]interface{}{
			"error": err.Error(),
			"kind":  frcerr.KindOf(err).String(),
		})
		m.notify.Warn("⚠️  Could not save config for '%s': %v", project.Name(r.projectID), err)
		return false
	}
	if onSaved != nil {
		onSaved()
	}
	return true
}

func (m *Manager) execute(ctx context.Context, r *run) {
	inv := jsruntime.Invocation{
		Command: r.req.Command,
		Args:    r.req.Args,
		Env:     m.environ(),
	}

	applied, err := r.kind.ApplyMemoryLimit(inv, r.result.MemoryMB)
	switch {
	case err == nil:
		r.result.Applied = r.result.MemoryMB > 0
	case frcerr.Is(err, frcerr.KindUnsupportedRuntime) && !r.kind.SupportsMemoryLimit():
		m.notify.Warn("⚠️  WARNING: %s does not support manual memory configuration!", r.kind.DisplayName())
		m.notify.Warn("   %s uses JavaScriptCore and manages memory automatically.", r.kind.DisplayName())
		m.notify.Warn("   Memory flag will be ignored.")
	case frcerr.Is(err, frcerr.KindUnsupportedRuntime):
		m.notify.Warn("⚠️  '%s' is not the %s binary; running without a memory limit", r.req.Command, r.kind)
		m.notify.Warn("   Run it through %s to apply %d MB", r.kind, r.result.MemoryMB)
	default:
		r.log.Warn("memory limit not applied", map[string]interface{}{"error": err.Error()})
	}

	m.state(r, "execute", map[string]interface{}{
		"command": applied.Command,
		"applied": r.result.Applied,
	})

	outcome, err := m.runner.Run(ctx, applied)
	if err != nil {
		r.result.SpawnErr = err
		r.log.Error("failed to start child", map[string]interface{}{"error": err.Error()})
		m.notify.Error("❌ Failed to start '%s': %v", r.req.Command, err)
		return
	}
	r.result.Outcome = outcome
}

func (m *Manager) classify(r *run) {
	outcome := r.result.Outcome
	if outcome == nil {
		return
	}
	m.state(r, "classify", map[string]interface{}{
		"exit_code":   outcome.ExitCode,
		"exit_reason": string(outcome.Reason),
		"oom":         outcome.OOM,
	})
	if !outcome.OOM {
		return
	}

	m.notify.Error("\n🔴 Out of Memory Detected!")

	if !r.kind.SupportsMemoryLimit() {
		m.notify.Hint("💡 %s", m.advisor.Recommendation(r.kind))
		return
	}

	if !r.result.Applied {
		recommended := m.advisor.Default()
		m.notify.Hint("💡 No memory limit was set. Re-run with -m %d to use and save a limit", recommended)
		m.state(r, "notify", nil)
		return
	}

	step, _ := recovery.Plan(r.result.MemoryMB)
	if r.projectID == "" {
		m.notify.Hint("💡 Re-run with -m %d", step.NextMB)
		m.state(r, "notify", nil)
		return
	}

	if !m.persist(r, step.NextMB, nil) {
		m.notify.Hint("💡 Re-run with -m %d", step.NextMB)
		m.state(r, "notify", nil)
		return
	}

	r.result.NextMemoryMB = step.NextMB
	m.notify.Info("📈 Auto-increased: %d MB → %d MB", step.PreviousMB, step.NextMB)
	m.notify.Success("💾 Saved for project '%s'", project.Name(r.projectID))
	if step.ExceedsSystem(m.advisor.SystemMB()) {
		m.notify.Warn("⚠️  %d MB is more than this machine's %d MB of memory", step.NextMB, m.advisor.SystemMB())
	}
	m.notify.Hint("\n💡 Run the same command again to use %d MB", step.NextMB)
	m.state(r, "persist", map[string]interface{}{"next_memory_mb": step.NextMB})
}

func (m *Manager) done(r *run) {
	res := r.result
	if res.Outcome == nil {
		res.ExitCode = ExitSpawnFailure
	} else {
		res.ExitCode = res.Outcome.ExitCode
	}

	ceiling := 0
	if res.Applied {
		ceiling = res.MemoryMB
	}
	name := ""
	if r.projectID != "" {
		name = project.Name(r.projectID)
	}
	res.Report = report.NewResult(res.RunID, name, r.kind, ceiling, res.Outcome)
	res.Report.NextMemoryMB = res.NextMemoryMB
	if res.Outcome == nil {
		res.Report.ExitCode = ExitSpawnFailure
	}
	if m.metrics != nil {
		m.metrics.RecordResult(res.Report)
	}

	m.state(r, "done", map[string]interface{}{"exit_code": res.ExitCode})
}
