// Package engine implements the PO plugin engine: an ordered, phase-based
// table of built-in plugins (commits, patches, overrides, custom copy)
// that apply and revert changes across the workspace's repositories,
// tracked through persisted applied records for idempotency.
//
// Key components:
//   - Engine: the operation surface consumed by the CLI
//   - Runtime: command execution, record accumulation, repo mapping
//   - PluginContext: per-PO state shared by all plugins of one invocation
//   - Apply/Revert/List/NewPO/DeletePO: the orchestrated operations
package engine

import (
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/podev-tools/podev/internal/clock"
	"github.com/podev-tools/podev/internal/fsops"
	"github.com/podev-tools/podev/internal/gitx"
	"github.com/podev-tools/podev/internal/poconfig"
	"github.com/podev-tools/podev/internal/record"
	"github.com/podev-tools/podev/internal/workspace"
)

// Engine orchestrates PO operations for one workspace.
// It is the main API surface called by the CLI.
type Engine struct {
	log *logrus.Entry
	fs  fsops.FS
	git gitx.Runner
	clk clock.Clock
	ws  *workspace.Workspace
}

// New creates a new Engine with the given dependencies.
func New(log *logrus.Entry, fs fsops.FS, git gitx.Runner, clk clock.Clock, ws *workspace.Workspace) *Engine {
	return &Engine{
		log: log,
		fs:  fs,
		git: git,
		clk: clk,
		ws:  ws,
	}
}

// runEnv is the resolved per-operation environment: the project's board,
// its PO tree, the parsed PO plan, and a Runtime scoped to the project.
type runEnv struct {
	board string
	poDir string
	plan  poconfig.Plan
	rt    *Runtime
}

// resolve looks up the project, parses its PO configuration, and builds
// the runtime. A missing project or board is fatal; an empty PO
// configuration is not (the operation becomes a no-op).
func (e *Engine) resolve(project string) (*runEnv, error) {
	proj, ok := e.ws.Project(project)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, project)
	}
	if proj.Board == "" {
		return nil, fmt.Errorf("%w: %s", ErrBoardNotSet, project)
	}

	return &runEnv{
		board: proj.Board,
		poDir: e.ws.PoDir(proj.Board),
		plan:  poconfig.Parse(proj.Config),
		rt: &Runtime{
			log:           e.log,
			fs:            e.fs,
			git:           e.git,
			clk:           e.clk,
			repos:         e.ws.Repos,
			store:         record.NewStore(e.fs, e.log, proj.Board, project),
			workspaceRoot: e.ws.Root,
			custom:        poconfig.ParseCustomSections(e.ws.PoSections),
		},
	}, nil
}

// selectPOs narrows the effective PO list to an optional single-PO filter.
// The filter must name a PO from the effective list.
func selectPOs(plan poconfig.Plan, filter string) ([]string, error) {
	pos := plan.Effective()
	if filter == "" {
		return pos, nil
	}
	for _, name := range pos {
		if name == filter {
			return []string{filter}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownPO, filter)
}

// newContext builds a fresh PluginContext for one PO invocation.
func (e *Engine) newContext(env *runEnv, project, po string, dryRun, force, reapply bool) *PluginContext {
	poPath := filepath.Join(env.poDir, po)
	return &PluginContext{
		ProjectName:  project,
		BoardName:    env.board,
		PoName:       po,
		PoPath:       poPath,
		CommitsDir:   filepath.Join(poPath, "commits"),
		PatchesDir:   filepath.Join(poPath, "patches"),
		OverridesDir: filepath.Join(poPath, "overrides"),
		CustomDir:    filepath.Join(poPath, "custom"),
		DryRun:       dryRun,
		Force:        force,
		Reapply:      reapply,
		ExcludeFiles: env.plan.ExcludeFiles,
		Records:      make(map[string]*record.Record),
	}
}
