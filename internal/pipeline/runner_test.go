package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/bookforge/internal/build"
	"git.home.luguber.info/inful/bookforge/internal/config"
	"git.home.luguber.info/inful/bookforge/internal/history"
	"git.home.luguber.info/inful/bookforge/internal/release"
)

type fakeProvisioner struct{ err error }

func (f *fakeProvisioner) Ensure(context.Context) error { return f.err }

// fakeInvoker produces a deterministic artifact and records what it compiled.
type fakeInvoker struct {
	fail       bool
	lastReq    build.Request
	calls      int
	artifactBy []byte
}

func (f *fakeInvoker) Build(_ context.Context, req build.Request) (*build.Result, error) {
	f.calls++
	f.lastReq = req

	result := &build.Result{Mode: req.Mode, Revision: req.Revision, Log: "ok"}
	if f.fail {
		result.Status = build.StatusFailure
		result.Log = "engine exited 1"
		return result, errors.New("engine exited 1")
	}

	content := f.artifactBy
	if content == nil {
		content = []byte("%PDF-1.7 deterministic")
	}
	artifact := filepath.Join(req.WorkDir, build.ArtifactName(req.EntryName))
	if err := os.WriteFile(artifact, content, 0o644); err != nil {
		return nil, err
	}
	result.Status = build.StatusSuccess
	result.ArtifactPath = artifact
	return result, nil
}

type mockPublisher struct {
	calls int
	last  release.Artifact
	err   error
}

func (m *mockPublisher) Publish(_ context.Context, artifact release.Artifact) error {
	m.calls++
	m.last = artifact
	return m.err
}

func testConfig(t *testing.T, entryContent string) *config.Config {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.tex"), []byte(entryContent), 0o644))

	cfg := &config.Config{
		Manuscript: config.ManuscriptConfig{Root: root, Entry: "main.tex"},
		Build: config.BuildConfig{
			Engine:      "latexmk",
			Highlighter: "pygmentize",
			ShellEscape: true,
			OutputDir:   filepath.Join(root, "out"),
		},
		Release: config.ReleaseConfig{Tag: "current"},
	}
	return cfg
}

func newTestRunner(cfg *config.Config, invoker Invoker, pub release.Publisher) *Runner {
	return NewRunner(cfg).
		WithProvisioner(&fakeProvisioner{}).
		WithInvoker(invoker).
		WithPublisher(pub).
		WithHeadFunc(func(string) (string, error) { return "rev-1", nil })
}

func TestCheckModeNeverPublishes(t *testing.T) {
	cfg := testConfig(t, "\\includeonly{ch01}\n\\chapter{X}")
	invoker := &fakeInvoker{}
	pub := &mockPublisher{}

	result, err := newTestRunner(cfg, invoker, pub).Run(context.Background(), build.ModeCheck)
	require.NoError(t, err)

	assert.True(t, result.Succeeded())
	assert.Equal(t, 0, pub.calls)
	// Check mode keeps the partial directive active.
	assert.Equal(t, "\\includeonly{ch01}\n\\chapter{X}", invoker.lastReq.Content)
}

func TestReleaseModeStripsDirectiveAndPublishes(t *testing.T) {
	cfg := testConfig(t, "\\includeonly{ch01}\n\\chapter{X}")
	invoker := &fakeInvoker{}
	pub := &mockPublisher{}

	result, err := newTestRunner(cfg, invoker, pub).Run(context.Background(), build.ModeRelease)
	require.NoError(t, err)

	assert.True(t, result.Succeeded())
	assert.Equal(t, "\\chapter{X}", invoker.lastReq.Content)
	assert.Equal(t, 1, pub.calls)
	assert.Equal(t, "main.pdf", pub.last.Name)
	assert.Equal(t, "rev-1", pub.last.Revision)
	assert.True(t, invoker.lastReq.ShellEscape, "capability flag must be threaded through")
}

func TestBuildFailureNeverPublishes(t *testing.T) {
	cfg := testConfig(t, "\\chapter{X}")
	invoker := &fakeInvoker{fail: true}
	pub := &mockPublisher{}

	result, err := newTestRunner(cfg, invoker, pub).Run(context.Background(), build.ModeRelease)
	require.Error(t, err)

	require.NotNil(t, result)
	assert.Equal(t, build.StatusFailure, result.Status)
	assert.Equal(t, "engine exited 1", result.Log)
	assert.Equal(t, 0, pub.calls, "no partial or stale artifact may reach the release channel")
}

func TestProvisionFailureAbortsBeforeBuild(t *testing.T) {
	cfg := testConfig(t, "\\chapter{X}")
	invoker := &fakeInvoker{}
	pub := &mockPublisher{}

	runner := newTestRunner(cfg, invoker, pub).
		WithProvisioner(&fakeProvisioner{err: errors.New("latexmk missing")})

	_, err := runner.Run(context.Background(), build.ModeCheck)
	require.Error(t, err)
	assert.Equal(t, 0, invoker.calls)
	assert.Equal(t, 0, pub.calls)
}

func TestPublishFailurePreservesArtifact(t *testing.T) {
	cfg := testConfig(t, "\\chapter{X}")
	invoker := &fakeInvoker{}
	pub := &mockPublisher{err: errors.New("network down")}

	result, err := newTestRunner(cfg, invoker, pub).Run(context.Background(), build.ModeRelease)
	require.Error(t, err)

	// The built artifact stays in the output directory for manual recovery.
	require.NotNil(t, result)
	data, readErr := os.ReadFile(result.ArtifactPath)
	require.NoError(t, readErr)
	assert.NotEmpty(t, data)
}

func TestRepeatRunsAreDeterministic(t *testing.T) {
	cfg := testConfig(t, "\\chapter{X}")
	invoker := &fakeInvoker{}
	pub := &mockPublisher{}
	runner := newTestRunner(cfg, invoker, pub)

	first, err := runner.Run(context.Background(), build.ModeRelease)
	require.NoError(t, err)
	firstBytes, err := os.ReadFile(first.ArtifactPath)
	require.NoError(t, err)

	second, err := runner.Run(context.Background(), build.ModeRelease)
	require.NoError(t, err)
	secondBytes, err := os.ReadFile(second.ArtifactPath)
	require.NoError(t, err)

	assert.Equal(t, firstBytes, secondBytes, "unchanged source must rebuild byte-identically")
	assert.Equal(t, 2, pub.calls)
}

func TestReleaseWithoutPublisherFails(t *testing.T) {
	cfg := testConfig(t, "\\chapter{X}")
	runner := NewRunner(cfg).
		WithProvisioner(&fakeProvisioner{}).
		WithInvoker(&fakeInvoker{}).
		WithHeadFunc(func(string) (string, error) { return "", nil })

	_, err := runner.Run(context.Background(), build.ModeRelease)
	require.Error(t, err)
}

func TestRunRecordsHistory(t *testing.T) {
	cfg := testConfig(t, "\\chapter{X}")
	store, err := history.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	runner := newTestRunner(cfg, &fakeInvoker{}, &mockPublisher{}).WithStore(store)
	_, err = runner.Run(context.Background(), build.ModeRelease)
	require.NoError(t, err)

	runs, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "release", runs[0].Mode)
	assert.Equal(t, "success", runs[0].Status)
	assert.True(t, runs[0].Published)
	assert.Equal(t, "rev-1", runs[0].Revision)
}
