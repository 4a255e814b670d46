package manager

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psantana5/frc/internal/frcerr"
	"github.com/psantana5/frc/internal/jsruntime"
	"github.com/psantana5/frc/internal/project"
	"github.com/psantana5/frc/internal/recommend"
	"github.com/psantana5/frc/internal/report"
	"github.com/psantana5/frc/internal/store"
	"github.com/psantana5/frc/internal/supervisor"
)

const testProject = "/work/shop"

var testNow = time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)

// fakeRunner records invocations and replays a canned outcome
type fakeRunner struct {
	calls   []jsruntime.Invocation
	outcome supervisor.Outcome
	err     error
}

func (f *fakeRunner) Run(_ context.Context, inv jsruntime.Invocation) (*supervisor.Outcome, error) {
	f.calls = append(f.calls, inv)
	if f.err != nil {
		return nil, f.err
	}
	out := f.outcome
	return &out, nil
}

func (f *fakeRunner) last(t *testing.T) jsruntime.Invocation {
	t.Helper()
	require.NotEmpty(t, f.calls, "runner was not called")
	return f.calls[len(f.calls)-1]
}

func oomOutcome() supervisor.Outcome {
	return supervisor.Outcome{
		PID:        100,
		ExitCode:   134,
		Reason:     supervisor.ExitReasonOOM,
		OOM:        true,
		StderrTail: []byte("FATAL ERROR: Reached heap limit Allocation failed - JavaScript heap out of memory"),
		StartedAt:  testNow,
		FinishedAt: testNow.Add(2 * time.Second),
	}
}

func okOutcome() supervisor.Outcome {
	return supervisor.Outcome{PID: 100, Reason: supervisor.ExitReasonSuccess, StartedAt: testNow, FinishedAt: testNow}
}

// failingStore accepts reads but rejects writes
type failingStore struct {
	store.Store
}

func (failingStore) Put(cfg store.ProjectConfig) error {
	return frcerr.New(frcerr.KindConfigWriteFailure, "create state directory", "/ro/config.json", errors.New("read-only file system"))
}

type fixture struct {
	mgr     *Manager
	store   store.Store
	runner  *fakeRunner
	notices *bytes.Buffer
	metrics *report.Metrics
	clock   *time.Time
}

func newFixture(t *testing.T, mutate ...func(*Options)) *fixture {
	t.Helper()
	now := testNow
	f := &fixture{
		runner:  &fakeRunner{outcome: okOutcome()},
		notices: &bytes.Buffer{},
		metrics: report.NewMetrics(),
		clock:   &now,
	}
	f.store = store.NewMemoryStore(store.WithClock(func() time.Time { return *f.clock }))

	opts := Options{
		Store:    f.store,
		Runner:   f.runner,
		Resolver: project.ResolverFunc(func(string) (string, error) { return testProject, nil }),
		Advisor:  recommend.NewStaticAdvisor(16 * 1024),
		Notifier: NewNotifier(f.notices, true),
		Metrics:  f.metrics,
		Environ:  func() []string { return []string{"PATH=/usr/bin", "HOME=/home/dev"} },
		Getwd:    func() (string, error) { return "/work/shop/src", nil },
		NewRunID: func() string { return "run-0001" },
	}
	for _, m := range mutate {
		m(&opts)
	}
	f.mgr = New(opts)
	return f
}

func (f *fixture) saved(t *testing.T) *store.ProjectConfig {
	t.Helper()
	cfg, err := f.store.Get(testProject)
	require.NoError(t, err)
	return cfg
}

func TestFirstRunWithExplicitMemory(t *testing.T) {
	f := newFixture(t)

	res, err := f.mgr.Run(context.Background(), Request{Command: "node", Args: []string{"build.js"}, MemoryMB: 4096})
	require.NoError(t, err)

	cfg := f.saved(t)
	assert.Equal(t, 4096, cfg.MemoryMB)
	assert.Equal(t, jsruntime.Node, cfg.Runtime)

	inv := f.runner.last(t)
	assert.Equal(t, "node", inv.Command)
	assert.Equal(t, []string{"build.js"}, inv.Args)
	value, ok := jsruntime.LookupEnv(inv.Env, "NODE_OPTIONS")
	require.True(t, ok)
	assert.Equal(t, "--max-old-space-size=4096", value)

	assert.Equal(t, SourceExplicit, res.Source)
	assert.True(t, res.Applied)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, testProject, res.ProjectID)
	assert.Contains(t, f.notices.String(), "💾 Saved config for 'shop': node 4096 MB")
}

func TestSecondRunUsesSavedConfig(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Put(store.ProjectConfig{
		ProjectID: testProject, Runtime: jsruntime.Node, MemoryMB: 4096,
		LastUsed: testNow.Add(-48 * time.Hour),
	}))

	res, err := f.mgr.Run(context.Background(), Request{Command: "npm", Args: []string{"run", "build"}})
	require.NoError(t, err)

	value, _ := jsruntime.LookupEnv(f.runner.last(t).Env, "NODE_OPTIONS")
	assert.Equal(t, "--max-old-space-size=4096", value)
	assert.Equal(t, SourceSaved, res.Source)
	assert.Contains(t, f.notices.String(), "📌 Using saved config for 'shop': 4096 MB")

	cfg := f.saved(t)
	assert.Equal(t, 4096, cfg.MemoryMB)
	assert.Equal(t, testNow.Unix(), cfg.LastUsed.Unix(), "last_used is refreshed")
}

func TestOOMRaisesSavedMemory(t *testing.T) {
	f := newFixture(t)
	f.runner.outcome = oomOutcome()
	require.NoError(t, f.store.Put(store.ProjectConfig{ProjectID: testProject, Runtime: jsruntime.Node, MemoryMB: 4096}))

	res, err := f.mgr.Run(context.Background(), Request{Command: "node", Args: []string{"build.js"}})
	require.NoError(t, err)

	assert.Equal(t, 6144, f.saved(t).MemoryMB)
	assert.Equal(t, 6144, res.NextMemoryMB)
	assert.Equal(t, 134, res.ExitCode, "the child's real status is kept")
	assert.Len(t, f.runner.calls, 1, "the command is not re-run")

	out := f.notices.String()
	assert.Contains(t, out, "🔴 Out of Memory Detected!")
	assert.Contains(t, out, "📈 Auto-increased: 4096 MB → 6144 MB")
	assert.Contains(t, out, "💡 Run the same command again to use 6144 MB")
}

func TestOOMBeyondSystemMemoryWarns(t *testing.T) {
	f := newFixture(t)
	f.runner.outcome = oomOutcome()

	_, err := f.mgr.Run(context.Background(), Request{Command: "node", MemoryMB: 12288})
	require.NoError(t, err)

	assert.Equal(t, 18432, f.saved(t).MemoryMB, "the value is persisted anyway")
	assert.Contains(t, f.notices.String(), "18432 MB is more than this machine's 16384 MB")
}

func TestOOMWithoutMemorySuggestsFlag(t *testing.T) {
	f := newFixture(t)
	f.runner.outcome = oomOutcome()

	res, err := f.mgr.Run(context.Background(), Request{Command: "node", Args: []string{"build.js"}})
	require.NoError(t, err)

	_, err = f.store.Get(testProject)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Zero(t, res.NextMemoryMB)
	assert.Equal(t, 134, res.ExitCode)
	assert.Contains(t, f.notices.String(), "Re-run with -m 4096")
	assert.Contains(t, f.notices.String(), "💡 No saved config. Recommended: 4096 MB")
}

func TestOOMWithoutProjectSuggestsNextValue(t *testing.T) {
	f := newFixture(t, func(o *Options) {
		o.Resolver = project.ResolverFunc(func(string) (string, error) { return "", errors.New("permission denied") })
	})
	f.runner.outcome = oomOutcome()

	res, err := f.mgr.Run(context.Background(), Request{Command: "node", MemoryMB: 4096})
	require.NoError(t, err)

	all, err := f.store.List()
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Empty(t, res.ProjectID)
	assert.Contains(t, f.notices.String(), "Could not determine the project")
	assert.Contains(t, f.notices.String(), "Re-run with -m 6144")
}

func TestCleanupRemovesStaleConfigs(t *testing.T) {
	f := newFixture(t)
	day := 24 * time.Hour
	require.NoError(t, f.store.Put(store.ProjectConfig{ProjectID: "/old", Runtime: jsruntime.Node, MemoryMB: 4096, LastUsed: testNow.Add(-31 * day)}))
	require.NoError(t, f.store.Put(store.ProjectConfig{ProjectID: "/new", Runtime: jsruntime.Node, MemoryMB: 4096, LastUsed: testNow.Add(-5 * day)}))

	removed, err := f.mgr.Cleanup(30)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	all, err := f.mgr.Projects()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "/new", all[0].ProjectID)

	_, err = f.mgr.Cleanup(-1)
	assert.Error(t, err)
}

func TestBunIgnoresMemory(t *testing.T) {
	f := newFixture(t)

	res, err := f.mgr.Run(context.Background(), Request{Command: "bun", Args: []string{"run", "dev"}, MemoryMB: 2048})
	require.NoError(t, err)

	inv := f.runner.last(t)
	assert.Equal(t, []string{"run", "dev"}, inv.Args)
	assert.Equal(t, []string{"PATH=/usr/bin", "HOME=/home/dev"}, inv.Env)
	assert.False(t, res.Applied)
	assert.Contains(t, f.notices.String(), "Bun does not support manual memory configuration")
	assert.Equal(t, 0, res.ExitCode)
}

func TestSpawnFailure(t *testing.T) {
	f := newFixture(t)
	f.runner.err = frcerr.New(frcerr.KindSpawnFailure, "spawn", "node", errors.New("executable file not found in $PATH"))

	res, err := f.mgr.Run(context.Background(), Request{Command: "node", MemoryMB: 4096})
	require.NoError(t, err)

	assert.Equal(t, ExitSpawnFailure, res.ExitCode)
	assert.True(t, frcerr.Is(res.SpawnErr, frcerr.KindSpawnFailure))
	assert.Nil(t, res.Outcome)
	assert.Contains(t, f.notices.String(), "❌ Failed to start 'node'")
	assert.Equal(t, ExitSpawnFailure, res.Report.ExitCode)
}

func TestRuntimeMismatchIgnoresSavedConfig(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Put(store.ProjectConfig{ProjectID: testProject, Runtime: jsruntime.Deno, MemoryMB: 8192}))

	res, err := f.mgr.Run(context.Background(), Request{Command: "node", Args: []string{"main.js"}})
	require.NoError(t, err)

	_, ok := jsruntime.LookupEnv(f.runner.last(t).Env, "NODE_OPTIONS")
	assert.False(t, ok)
	assert.Equal(t, SourceNone, res.Source)
	assert.Contains(t, f.notices.String(), "is for Deno, not Node.js; ignoring it")

	cfg := f.saved(t)
	assert.Equal(t, jsruntime.Deno, cfg.Runtime)
	assert.Equal(t, 8192, cfg.MemoryMB)
}

func TestDenoReceivesV8Flags(t *testing.T) {
	f := newFixture(t)

	_, err := f.mgr.Run(context.Background(), Request{Command: "deno", Args: []string{"run", "-A", "main.ts"}, MemoryMB: 4096})
	require.NoError(t, err)

	assert.Equal(t, []string{"run", "--v8-flags", "--max-old-space-size=4096", "-A", "main.ts"}, f.runner.last(t).Args)
}

func TestDenoRuntimeForForeignCommand(t *testing.T) {
	f := newFixture(t)

	res, err := f.mgr.Run(context.Background(), Request{
		Command:  "tsx",
		Args:     []string{"build.ts"},
		Runtime:  jsruntime.Deno,
		MemoryMB: 4096,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"build.ts"}, f.runner.last(t).Args)
	assert.False(t, res.Applied)
	assert.Contains(t, f.notices.String(), "'tsx' is not the deno binary")
	assert.NotContains(t, f.notices.String(), "JavaScriptCore")
}

func TestWriteFailureDoesNotChangeRun(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.Store = failingStore{Store: store.NewMemoryStore()} })
	f.runner.outcome = supervisor.Outcome{ExitCode: 2, Reason: supervisor.ExitReasonError}

	res, err := f.mgr.Run(context.Background(), Request{Command: "node", MemoryMB: 4096})
	require.NoError(t, err)

	assert.Equal(t, 2, res.ExitCode)
	assert.True(t, res.Applied, "the ceiling is still passed to the child")
	assert.Contains(t, f.notices.String(), "Could not save config for 'shop'")
	assert.NotContains(t, f.notices.String(), "💾 Saved")
}

func TestUnknownRuntimeIsRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.mgr.Run(context.Background(), Request{Command: "vite"})
	require.Error(t, err)
	assert.Equal(t, frcerr.KindUnknownRuntime, frcerr.KindOf(err))
	assert.Empty(t, f.runner.calls)
}

func TestExplicitRuntimeAllowsAnyCommand(t *testing.T) {
	f := newFixture(t)

	res, err := f.mgr.Run(context.Background(), Request{Command: "vite", Args: []string{"build"}, Runtime: jsruntime.Node, MemoryMB: 6144})
	require.NoError(t, err)

	inv := f.runner.last(t)
	assert.Equal(t, "vite", inv.Command)
	value, _ := jsruntime.LookupEnv(inv.Env, "NODE_OPTIONS")
	assert.Equal(t, "--max-old-space-size=6144", value)
	assert.Equal(t, jsruntime.Node, res.Runtime)
}

func TestExistingNodeOptionsAreMerged(t *testing.T) {
	f := newFixture(t, func(o *Options) {
		o.Environ = func() []string {
			return []string{"NODE_OPTIONS=--enable-source-maps --max-old-space-size=1024", "PATH=/usr/bin"}
		}
	})

	_, err := f.mgr.Run(context.Background(), Request{Command: "node", MemoryMB: 4096})
	require.NoError(t, err)

	value, _ := jsruntime.LookupEnv(f.runner.last(t).Env, "NODE_OPTIONS")
	assert.Equal(t, "--enable-source-maps --max-old-space-size=4096", value)
}

func TestRunRecordsMetricsAndReport(t *testing.T) {
	f := newFixture(t)
	f.runner.outcome = oomOutcome()

	res, err := f.mgr.Run(context.Background(), Request{Command: "node", MemoryMB: 4096})
	require.NoError(t, err)

	require.NotNil(t, res.Report)
	assert.Equal(t, "RUN shop | runtime=node | memory=4096 | exit=134 | oom=true | next=6144 | duration=2s | id=run-0001", res.Report.Summary())

	var buf bytes.Buffer
	require.NoError(t, f.metrics.WriteText(&buf))
	assert.Contains(t, buf.String(), `frc_oom_total{runtime="node"} 1`)
}

func TestValidationNoticeForLargeCeiling(t *testing.T) {
	f := newFixture(t)

	_, err := f.mgr.Run(context.Background(), Request{Command: "node", MemoryMB: 20480})
	require.NoError(t, err)
	assert.Contains(t, f.notices.String(), "exceeds system memory (16 GB)")
	assert.Equal(t, 20480, f.saved(t).MemoryMB, "validation never blocks")
}

func TestProjectView(t *testing.T) {
	f := newFixture(t)

	view, err := f.mgr.Project("")
	require.NoError(t, err)
	assert.Equal(t, testProject, view.ID)
	assert.Equal(t, "shop", view.Name)
	assert.Nil(t, view.Config)

	require.NoError(t, f.store.Put(store.ProjectConfig{ProjectID: testProject, Runtime: jsruntime.Node, MemoryMB: 4096}))
	view, err = f.mgr.Project("")
	require.NoError(t, err)
	require.NotNil(t, view.Config)
	assert.Equal(t, 4096, view.Config.MemoryMB)
}

func TestForget(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Put(store.ProjectConfig{ProjectID: testProject, Runtime: jsruntime.Node, MemoryMB: 4096}))

	res, err := f.mgr.Forget("", "")
	require.NoError(t, err)
	assert.True(t, res.Removed)
	assert.Equal(t, "shop", res.Name)

	res, err = f.mgr.Forget("", "")
	require.NoError(t, err)
	assert.False(t, res.Removed)

	other := t.TempDir()
	require.NoError(t, f.store.Put(store.ProjectConfig{ProjectID: other, Runtime: jsruntime.Deno, MemoryMB: 2048}))
	res, err = f.mgr.Forget(other, "")
	require.NoError(t, err)
	assert.True(t, res.Removed)
	assert.Equal(t, filepath.Base(other), res.Name)
}

func TestRecommendationView(t *testing.T) {
	f := newFixture(t)

	node := f.mgr.Recommendation(jsruntime.Node)
	assert.Equal(t, 16, node.SystemGB)
	assert.Equal(t, 4096, node.DefaultMB)
	assert.Equal(t, 6144, node.LargeMB)
	assert.Equal(t, "frc -m 4096 node script.js", node.Example)

	bun := f.mgr.Recommendation(jsruntime.Bun)
	assert.False(t, bun.SupportsLimit)
	assert.Zero(t, bun.DefaultMB)
	assert.Contains(t, bun.Advice, "Bun manages memory automatically")
}
