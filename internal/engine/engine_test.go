package engine

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/podev-tools/podev/internal/clock"
	"github.com/podev-tools/podev/internal/fsops"
	"github.com/podev-tools/podev/internal/gitx"
	"github.com/podev-tools/podev/internal/record"
	"github.com/podev-tools/podev/internal/repomap"
	"github.com/podev-tools/podev/internal/workspace"
)

// fixture wires an Engine against a throwaway workspace with two repos
// and a scripted git runner.
type fixture struct {
	t          *testing.T
	root       string
	rootRepo   string
	kernelRepo string
	poDir      string
	git        *gitx.FakeRunner
	clk        *clock.FakeClock
	ws         *workspace.Workspace
	eng        *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()

	f := &fixture{
		t:          t,
		root:       root,
		rootRepo:   filepath.Join(root, "tree"),
		kernelRepo: filepath.Join(root, "kernel"),
		poDir:      filepath.Join(root, "projects", "board-a", "po"),
		git:        gitx.NewFakeRunner(),
		clk:        clock.NewFakeClock(time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)),
	}
	require.NoError(t, os.MkdirAll(f.rootRepo, 0o755))
	require.NoError(t, os.MkdirAll(f.kernelRepo, 0o755))

	f.ws = &workspace.Workspace{
		Root:         root,
		ProjectsPath: filepath.Join(root, "projects"),
		Repos: repomap.New([]repomap.Repo{
			{Name: repomap.RootName, Path: f.rootRepo},
			{Name: "kernel", Path: f.kernelRepo},
		}),
		Projects:   map[string]workspace.Project{},
		PoSections: map[string]map[string]string{},
	}

	log := logrus.New()
	log.SetOutput(io.Discard)
	f.eng = New(logrus.NewEntry(log), fsops.NewRealFS(), f.git, f.clk, f.ws)
	return f
}

func (f *fixture) setProject(name, config string) {
	f.ws.Projects[name] = workspace.Project{Board: "board-a", Config: config}
}

func (f *fixture) writePoFile(po, rel, content string) {
	f.t.Helper()
	path := filepath.Join(f.poDir, po, rel)
	require.NoError(f.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(f.t, os.WriteFile(path, []byte(content), 0o644))
}

func (f *fixture) recordPath(repoRoot, po string) string {
	return filepath.Join(repoRoot, ".cache", "po_applied", "board-a", "demo", po+".json")
}

func (f *fixture) loadRecord(repoRoot, po string) *record.Record {
	f.t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	store := record.NewStore(fsops.NewRealFS(), logrus.NewEntry(log), "board-a", "demo")
	return store.Load(repoRoot, po)
}

// gitCalls filters the recorded command lines to those starting with prefix.
func (f *fixture) gitCalls(prefix string) []string {
	var out []string
	for _, line := range f.git.CommandLines() {
		if strings.HasPrefix(line, prefix) {
			out = append(out, line)
		}
	}
	return out
}

const samplePatch = `diff --git a/Makefile b/Makefile
index 111..222 100644
--- a/Makefile
+++ b/Makefile
`

func TestApplyOrdersPluginsAndPersistsRecords(t *testing.T) {
	f := newFixture(t)
	f.setProject("demo", "po1")
	f.writePoFile("po1", "commits/0001-base.patch", samplePatch)
	f.writePoFile("po1", "patches/root.patch", samplePatch)
	f.writePoFile("po1", "overrides/root/etc/cfg.txt", "cfg")

	f.git.StubResult([]string{"git", "rev-parse", "HEAD"}, gitx.Result{Stdout: "abc123\n"})

	res, err := f.eng.Apply(context.Background(), &ApplyRequest{Project: "demo"})
	require.NoError(t, err)
	assert.Equal(t, []string{"po1"}, res.Applied)

	// Commits run before patches, patches before the override copy.
	lines := f.git.CommandLines()
	idxAm, idxApply, idxCp := -1, -1, -1
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "git am "):
			idxAm = i
		case strings.HasPrefix(line, "git apply "):
			idxApply = i
		case strings.HasPrefix(line, "cp -rf "):
			idxCp = i
		}
	}
	require.True(t, idxAm >= 0 && idxApply >= 0 && idxCp >= 0, "all three plugins must run: %v", lines)
	assert.Less(t, idxAm, idxApply)
	assert.Less(t, idxApply, idxCp)

	rec := f.loadRecord(f.rootRepo, "po1")
	require.NotNil(t, rec)
	assert.Equal(t, record.SchemaVersion, rec.SchemaVersion)
	assert.Equal(t, "po1", rec.PoName)
	assert.Equal(t, repomap.RootName, rec.RepoName)
	assert.True(t, rec.AppliedAt.Equal(f.clk.Now()))
	require.Len(t, rec.Commits, 1)
	assert.Equal(t, record.StatusApplied, rec.Commits[0].Status)
	assert.Equal(t, []string{"Makefile"}, rec.Commits[0].Targets)
	assert.Equal(t, "abc123", rec.Commits[0].HeadBefore)
	require.Len(t, rec.Patches, 1)
	require.Len(t, rec.Overrides, 1)
	assert.Equal(t, "copy", rec.Overrides[0].Operation)
	assert.Equal(t, "etc/cfg.txt", rec.Overrides[0].PathInRepo)
	assert.NotEmpty(t, rec.Commands, "executed commands are audited in the record")
}

func TestApplySkipsWhenRecordExists(t *testing.T) {
	f := newFixture(t)
	f.setProject("demo", "po1")
	f.writePoFile("po1", "patches/root.patch", samplePatch)

	_, err := f.eng.Apply(context.Background(), &ApplyRequest{Project: "demo"})
	require.NoError(t, err)
	require.Len(t, f.gitCalls("git apply "), 1)

	_, err = f.eng.Apply(context.Background(), &ApplyRequest{Project: "demo"})
	require.NoError(t, err)
	assert.Len(t, f.gitCalls("git apply "), 1, "second apply must not invoke git apply again")
}

func TestApplyReapplyIgnoresRecord(t *testing.T) {
	f := newFixture(t)
	f.setProject("demo", "po1")
	f.writePoFile("po1", "patches/root.patch", samplePatch)

	_, err := f.eng.Apply(context.Background(), &ApplyRequest{Project: "demo"})
	require.NoError(t, err)
	_, err = f.eng.Apply(context.Background(), &ApplyRequest{Project: "demo", Reapply: true})
	require.NoError(t, err)
	assert.Len(t, f.gitCalls("git apply "), 2)
}

func TestApplyDryRunHasNoSideEffects(t *testing.T) {
	f := newFixture(t)
	f.setProject("demo", "po1")
	f.writePoFile("po1", "patches/root.patch", samplePatch)
	f.writePoFile("po1", "overrides/kernel/drivers/new.c", "code")

	res, err := f.eng.Apply(context.Background(), &ApplyRequest{Project: "demo", DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"po1"}, res.Applied)

	assert.Empty(t, f.git.Calls, "dry-run must not execute any command")
	assert.NoFileExists(t, f.recordPath(f.rootRepo, "po1"))
	assert.NoFileExists(t, f.recordPath(f.kernelRepo, "po1"))
}

func TestApplyRecordsAlreadyAppliedPatch(t *testing.T) {
	f := newFixture(t)
	f.setProject("demo", "po1")
	f.writePoFile("po1", "patches/root.patch", samplePatch)

	f.git.StubResult([]string{"git", "apply", "--reverse", "--check"}, gitx.Result{})
	patchAbs := filepath.Join(f.poDir, "po1", "patches", "root.patch")
	f.git.StubResult([]string{"git", "apply", patchAbs}, gitx.Result{ReturnCode: 1, Stderr: "patch does not apply"})

	_, err := f.eng.Apply(context.Background(), &ApplyRequest{Project: "demo"})
	require.NoError(t, err, "a reverse-check hit means the content is already present")

	rec := f.loadRecord(f.rootRepo, "po1")
	require.NotNil(t, rec)
	require.Len(t, rec.Patches, 1)
	assert.Equal(t, record.StatusAlreadyApplied, rec.Patches[0].Status)
}

func TestApplyCommitFailureAbortsAndCleansUp(t *testing.T) {
	f := newFixture(t)
	f.setProject("demo", "po1")
	f.writePoFile("po1", "commits/0001-x.patch", samplePatch)
	f.writePoFile("po1", "patches/root.patch", samplePatch)

	f.git.StubResult([]string{"git", "am", "--abort"}, gitx.Result{})
	f.git.StubResult([]string{"git", "am"}, gitx.Result{ReturnCode: 128, Stderr: "patch failed"})
	f.git.StubResult([]string{"git", "apply", "--reverse", "--check"}, gitx.Result{ReturnCode: 1})

	_, err := f.eng.Apply(context.Background(), &ApplyRequest{Project: "demo"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "commits plugin")

	assert.NotEmpty(t, f.gitCalls("git am --abort"), "failed am state must be cleaned up")
	assert.Empty(t, f.gitCalls("git apply "+filepath.Join(f.poDir, "po1", "patches")),
		"later plugins must not run after a failure")
	assert.NoFileExists(t, f.recordPath(f.rootRepo, "po1"), "no record is persisted for a failed po")
}

func TestApplyRefusesRemoveWithoutForce(t *testing.T) {
	f := newFixture(t)
	f.setProject("demo", "po1")
	f.writePoFile("po1", "overrides/root/legacy.txt.remove", "")
	require.NoError(t, os.WriteFile(filepath.Join(f.rootRepo, "legacy.txt"), []byte("old"), 0o644))

	_, err := f.eng.Apply(context.Background(), &ApplyRequest{Project: "demo"})
	require.ErrorIs(t, err, ErrForceRequired)

	_, err = f.eng.Apply(context.Background(), &ApplyRequest{Project: "demo", Force: true})
	require.NoError(t, err)
	assert.NotEmpty(t, f.gitCalls("rm -rf legacy.txt"))
}

func TestApplyRejectsEscapingOverridePath(t *testing.T) {
	f := newFixture(t)
	f.setProject("demo", "po1")
	f.writePoFile("po1", "overrides/root/shared/evil.txt", "evil")

	// A symlinked directory inside the repo that points outside of it
	// turns a lexically safe destination into an escape.
	outside := t.TempDir()
	require.NoError(t, os.Symlink(outside, filepath.Join(f.rootRepo, "shared")))

	_, err := f.eng.Apply(context.Background(), &ApplyRequest{Project: "demo"})
	require.ErrorIs(t, err, ErrUnsafePath)
	assert.Empty(t, f.gitCalls("cp"), "no file may be written outside the repo")
}

func TestApplyHonorsExcludedFiles(t *testing.T) {
	f := newFixture(t)
	f.setProject("demo", "po1 po1[skipme.patch]")
	f.writePoFile("po1", "patches/skipme.patch", samplePatch)
	f.writePoFile("po1", "patches/keep.patch", samplePatch)

	_, err := f.eng.Apply(context.Background(), &ApplyRequest{Project: "demo"})
	require.NoError(t, err)

	calls := f.gitCalls("git apply ")
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0], "keep.patch")
}

func TestApplyExcludedPoIsSkippedEntirely(t *testing.T) {
	f := newFixture(t)
	f.setProject("demo", "po1 -po2")
	f.writePoFile("po1", "patches/a.patch", samplePatch)
	f.writePoFile("po2", "patches/b.patch", samplePatch)

	res, err := f.eng.Apply(context.Background(), &ApplyRequest{Project: "demo"})
	require.NoError(t, err)
	assert.Equal(t, []string{"po1"}, res.Applied)
	require.Len(t, f.gitCalls("git apply "), 1)
}

func TestApplyUnknownPoFilter(t *testing.T) {
	f := newFixture(t)
	f.setProject("demo", "po1")

	_, err := f.eng.Apply(context.Background(), &ApplyRequest{Project: "demo", PO: "po9"})
	require.ErrorIs(t, err, ErrUnknownPO)
}

func TestApplyMissingPoDirIsSkipped(t *testing.T) {
	f := newFixture(t)
	f.setProject("demo", "po1")

	res, err := f.eng.Apply(context.Background(), &ApplyRequest{Project: "demo"})
	require.NoError(t, err)
	assert.Empty(t, res.Applied)
	assert.Equal(t, []string{"po1"}, res.Skipped)
}

func TestApplyUnknownProject(t *testing.T) {
	f := newFixture(t)
	_, err := f.eng.Apply(context.Background(), &ApplyRequest{Project: "ghost"})
	require.ErrorIs(t, err, ErrProjectNotFound)
}

func TestApplyEmptyConfigIsNoOp(t *testing.T) {
	f := newFixture(t)
	f.setProject("demo", "")

	res, err := f.eng.Apply(context.Background(), &ApplyRequest{Project: "demo"})
	require.NoError(t, err)
	assert.Empty(t, res.Applied)
}

func TestRevertDeletesRecordsAndOrdersPlugins(t *testing.T) {
	f := newFixture(t)
	f.setProject("demo", "po1")
	f.writePoFile("po1", "commits/0001-x.patch", samplePatch)
	f.writePoFile("po1", "patches/root.patch", samplePatch)
	f.writePoFile("po1", "overrides/root/etc/cfg.txt", "cfg")
	f.git.StubResult([]string{"git", "rev-parse", "HEAD"}, gitx.Result{Stdout: "abc123\n"})

	_, err := f.eng.Apply(context.Background(), &ApplyRequest{Project: "demo"})
	require.NoError(t, err)
	require.FileExists(t, f.recordPath(f.rootRepo, "po1"))

	f.git.Calls = nil
	res, err := f.eng.Revert(context.Background(), &RevertRequest{Project: "demo"})
	require.NoError(t, err)
	assert.Equal(t, []string{"po1"}, res.Reverted)

	// Patch reversal must precede override restore, which precedes the
	// commit revert.
	lines := f.git.CommandLines()
	idxReverse, idxCheckout, idxRevert := -1, -1, -1
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "git apply --reverse "):
			idxReverse = i
		case strings.HasPrefix(line, "git checkout -- "):
			idxCheckout = i
		case strings.HasPrefix(line, "git revert --no-edit "):
			idxRevert = i
		}
	}
	require.True(t, idxReverse >= 0 && idxCheckout >= 0 && idxRevert >= 0, "lines: %v", lines)
	assert.Less(t, idxReverse, idxCheckout)
	assert.Less(t, idxCheckout, idxRevert)

	assert.NoFileExists(t, f.recordPath(f.rootRepo, "po1"),
		"revert must restore the not-applied state")
}

func TestRevertDryRunKeepsRecords(t *testing.T) {
	f := newFixture(t)
	f.setProject("demo", "po1")
	f.writePoFile("po1", "patches/root.patch", samplePatch)

	_, err := f.eng.Apply(context.Background(), &ApplyRequest{Project: "demo"})
	require.NoError(t, err)

	f.git.Calls = nil
	_, err = f.eng.Revert(context.Background(), &RevertRequest{Project: "demo", DryRun: true})
	require.NoError(t, err)

	assert.Empty(t, f.gitCalls("git apply --reverse "), "dry-run must not run the reversal")
	assert.FileExists(t, f.recordPath(f.rootRepo, "po1"))
}

func TestRevertCommitsUsesRecordedSHAs(t *testing.T) {
	f := newFixture(t)
	f.setProject("demo", "po1")
	f.writePoFile("po1", "commits/0001-x.patch", samplePatch)

	f.git.StubResult([]string{"git", "rev-parse", "HEAD"}, gitx.Result{Stdout: "old\n"})

	_, err := f.eng.Apply(context.Background(), &ApplyRequest{Project: "demo"})
	require.NoError(t, err)

	// Rewrite the record to simulate two introduced commits.
	rec := f.loadRecord(f.rootRepo, "po1")
	require.NotNil(t, rec)
	rec.Commits[0].CommitSHAs = []string{"sha1", "sha2"}
	log := logrus.New()
	log.SetOutput(io.Discard)
	store := record.NewStore(fsops.NewRealFS(), logrus.NewEntry(log), "board-a", "demo")
	require.NoError(t, store.Save(rec))

	f.git.Calls = nil
	_, err = f.eng.Revert(context.Background(), &RevertRequest{Project: "demo"})
	require.NoError(t, err)

	reverts := f.gitCalls("git revert --no-edit ")
	require.Len(t, reverts, 2)
	assert.Equal(t, "git revert --no-edit sha2", reverts[0], "newest commit reverts first")
	assert.Equal(t, "git revert --no-edit sha1", reverts[1])
}
