package integration

import (
	"bytes"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/podev-tools/podev/internal/clock"
	"github.com/podev-tools/podev/internal/engine"
	"github.com/podev-tools/podev/internal/fsops"
	"github.com/podev-tools/podev/internal/gitx"
	"github.com/podev-tools/podev/internal/record"
	"github.com/podev-tools/podev/internal/repomap"
	"github.com/podev-tools/podev/internal/workspace"
)

// env is a throwaway workspace with two real git repositories and an
// engine wired against the real runner.
type env struct {
	t          *testing.T
	root       string
	rootRepo   string
	kernelRepo string
	poDir      string
	ws         *workspace.Workspace
	eng        *engine.Engine
}

func setup(t *testing.T) *env {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	root := t.TempDir()
	e := &env{
		t:          t,
		root:       root,
		rootRepo:   filepath.Join(root, "tree"),
		kernelRepo: filepath.Join(root, "kernel"),
		poDir:      filepath.Join(root, "projects", "board-a", "po"),
	}

	e.initRepo(e.rootRepo, "VERSION", "1\n")
	e.initRepo(e.kernelRepo, "Kconfig", "config DEMO\n")

	e.ws = &workspace.Workspace{
		Root:         root,
		ProjectsPath: filepath.Join(root, "projects"),
		Repos: repomap.New([]repomap.Repo{
			{Name: repomap.RootName, Path: e.rootRepo},
			{Name: "kernel", Path: e.kernelRepo},
		}),
		Projects:   map[string]workspace.Project{},
		PoSections: map[string]map[string]string{},
	}

	log := logrus.New()
	log.SetOutput(io.Discard)
	e.eng = engine.New(logrus.NewEntry(log), fsops.NewRealFS(), gitx.NewRealRunner(), &clock.RealClock{}, e.ws)
	return e
}

// initRepo creates a git repository with one committed seed file.
func (e *env) initRepo(dir, seedFile, seedContent string) {
	e.t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		e.t.Fatal(err)
	}
	e.git(dir, "init", "-q")
	e.git(dir, "config", "user.email", "dev@example.com")
	e.git(dir, "config", "user.name", "dev")
	e.git(dir, "config", "commit.gpgsign", "false")
	if err := os.WriteFile(filepath.Join(dir, seedFile), []byte(seedContent), 0o644); err != nil {
		e.t.Fatal(err)
	}
	e.git(dir, "add", ".")
	e.git(dir, "commit", "-q", "-m", "initial")
}

// git runs a git command in dir and fails the test on a non-zero exit.
func (e *env) git(dir string, args ...string) string {
	e.t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		e.t.Fatalf("git %s in %s: %v\n%s", strings.Join(args, " "), dir, err, stderr.String())
	}
	return stdout.String()
}

func (e *env) setProject(name, config string) {
	e.ws.Projects[name] = workspace.Project{Board: "board-a", Config: config}
}

func (e *env) setCustomSection(po, dir, copyConfig string) {
	e.ws.PoSections["po-"+po] = map[string]string{
		"PROJECT_PO_DIR":       dir,
		"PROJECT_PO_FILE_COPY": copyConfig,
	}
}

func (e *env) writePoFile(po, rel, content string) {
	e.t.Helper()
	path := filepath.Join(e.poDir, po, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		e.t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		e.t.Fatal(err)
	}
}

// commitPatch commits a new file in repo, captures it as a format-patch,
// and resets the repo so the patch can be applied by the engine.
func (e *env) commitPatch(repo, rel, content, subject string) string {
	e.t.Helper()
	path := filepath.Join(repo, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		e.t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		e.t.Fatal(err)
	}
	e.git(repo, "add", rel)
	e.git(repo, "commit", "-q", "-m", subject)
	patch := e.git(repo, "format-patch", "-1", "--stdout")
	e.git(repo, "reset", "-q", "--hard", "HEAD~1")
	return patch
}

func (e *env) readFile(path string) string {
	e.t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		e.t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func (e *env) recordPath(repo, po string) string {
	return filepath.Join(repo, ".cache", "po_applied", "board-a", "demo", po+".json")
}

func (e *env) loadRecord(repo, po string) *record.Record {
	e.t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	store := record.NewStore(fsops.NewRealFS(), logrus.NewEntry(log), "board-a", "demo")
	return store.Load(repo, po)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// versionPatch flips the root repo's seed VERSION file from 1 to 2.
const versionPatch = `diff --git a/VERSION b/VERSION
--- a/VERSION
+++ b/VERSION
@@ -1 +1 @@
-1
+2
`
