package engine

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/podev-tools/podev/internal/clock"
	"github.com/podev-tools/podev/internal/fsops"
	"github.com/podev-tools/podev/internal/gitx"
	"github.com/podev-tools/podev/internal/poconfig"
	"github.com/podev-tools/podev/internal/record"
	"github.com/podev-tools/podev/internal/repomap"
)

// Runtime bundles the collaborators shared by all plugins during one
// apply or revert run: record store, command execution with dry-run
// gating and command auditing, and repository mapping.
type Runtime struct {
	log           *logrus.Entry
	fs            fsops.FS
	git           gitx.Runner
	clk           clock.Clock
	repos         *repomap.Map
	store         *record.Store
	workspaceRoot string
	custom        map[string]poconfig.CustomSection
}

// Store exposes the applied-record store for this run.
func (rt *Runtime) Store() *record.Store {
	return rt.store
}

// Repos exposes the repository map for this run.
func (rt *Runtime) Repos() *repomap.Map {
	return rt.repos
}

// RepoRecord returns the in-memory applied record for a repository root,
// creating it lazily on first use.
func (rt *Runtime) RepoRecord(pc *PluginContext, repoRoot, repoName string) *record.Record {
	abs, err := filepath.Abs(repoRoot)
	if err != nil {
		abs = repoRoot
	}
	if rec, ok := pc.Records[abs]; ok {
		return rec
	}
	rec := record.New(pc.BoardName, pc.ProjectName, pc.PoName, repoName, abs)
	rec.AppliedAt = rt.clk.Now()
	pc.Records[abs] = rec
	pc.recordOrder = append(pc.recordOrder, abs)
	return rec
}

// Run executes a command unless the context is in dry-run mode, in which
// case it logs the command line and returns a synthetic success.
func (rt *Runtime) Run(ctx context.Context, pc *PluginContext, dir, name string, args ...string) gitx.Result {
	if pc.DryRun {
		rt.log.Infof("DRY-RUN: %s", gitx.Format(name, args...))
		return gitx.Result{Cmd: append([]string{name}, args...), Dir: dir}
	}
	return rt.git.Run(ctx, dir, name, args...)
}

// Execute runs a command through Run and appends a command entry to the
// accumulating applied record for repoRoot. Dry-run never mutates records.
func (rt *Runtime) Execute(ctx context.Context, pc *PluginContext, repoRoot, repoName, cwd, description, name string, args ...string) gitx.Result {
	res := rt.Run(ctx, pc, cwd, name, args...)
	if pc.DryRun {
		return res
	}

	rt.log.WithFields(logrus.Fields{
		"cmd":        gitx.Format(name, args...),
		"cwd":        cwd,
		"returncode": res.ReturnCode,
	}).Debug(description)

	rec := rt.RepoRecord(pc, repoRoot, repoName)
	rec.Commands = append(rec.Commands, record.CommandEntry{
		Description: description,
		Cmd:         gitx.Format(name, args...),
		Cwd:         cwd,
		ReturnCode:  res.ReturnCode,
	})
	return res
}

// FinalizeRecords persists every accumulated record in insertion order.
// Under dry-run nothing is written.
func (rt *Runtime) FinalizeRecords(pc *PluginContext) error {
	if pc.DryRun {
		return nil
	}
	for _, repoRoot := range pc.recordOrder {
		if err := rt.store.Save(pc.Records[repoRoot]); err != nil {
			return fmt.Errorf("failed to persist applied record for %s: %w", repoRoot, err)
		}
	}
	return nil
}

// DeleteRecords removes the persisted records of a PO for every known
// repository, restoring the "not applied" state after a revert. The
// workspace root is included because custom copies whose target lies
// outside every mapped repository record against it.
func (rt *Runtime) DeleteRecords(pc *PluginContext) error {
	if pc.DryRun {
		return nil
	}
	for _, r := range rt.repos.Repos() {
		if err := rt.store.Delete(r.Path, pc.PoName); err != nil {
			return err
		}
	}
	return rt.store.Delete(rt.workspaceRoot, pc.PoName)
}
