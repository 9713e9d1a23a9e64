package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/podev-tools/podev/internal/record"
	"github.com/podev-tools/podev/internal/repomap"
)

// applyPatches applies plain unified diffs to the working tree with
// git apply; no commits are created.
func applyPatches(ctx context.Context, rt *Runtime, pc *PluginContext) error {
	files, err := collectPluginFiles(rt.fs, pc.PatchesDir)
	if err != nil {
		return fmt.Errorf("failed to walk patches dir: %w", err)
	}
	if len(files) == 0 {
		rt.log.WithField("po", pc.PoName).Debug("no patches for po")
		return nil
	}
	rt.log.WithField("po", pc.PoName).Debug("applying patches")

	for _, rel := range files {
		if pc.ExcludedFile(rel) {
			rt.log.WithFields(logrus.Fields{"po": pc.PoName, "file": rel}).
				Debug("patch file excluded by config")
			continue
		}

		repoName := repomap.DirRepoName(rel)
		repoRoot, ok := rt.repos.Path(repoName)
		if !ok {
			return fmt.Errorf("%w: %s (patch file %s)", ErrUnknownRepo, repoName, rel)
		}

		if !pc.Reapply && rt.store.Exists(repoRoot, pc.PoName) {
			rt.log.WithFields(logrus.Fields{"po": pc.PoName, "repo": repoName, "file": rel}).
				Info("po already applied for repo, skipping patch")
			continue
		}

		patchFile := filepath.Join(pc.PatchesDir, rel)
		entry := record.PatchEntry{
			PatchFile: poRelPath(pc, patchFile),
			Targets:   patchTargets(rt.fs, patchFile),
			Status:    record.StatusApplied,
		}

		res := rt.Execute(ctx, pc, repoRoot, repoName, repoRoot,
			fmt.Sprintf("Apply patch %s to %s", filepath.Base(patchFile), repoName),
			"git", "apply", patchFile)
		if !res.Ok() {
			probe := rt.Execute(ctx, pc, repoRoot, repoName, repoRoot,
				fmt.Sprintf("Check patch already applied %s", filepath.Base(patchFile)),
				"git", "apply", "--reverse", "--check", patchFile)
			if !probe.Ok() {
				return fmt.Errorf("failed to apply patch %s: %s", rel, strings.TrimSpace(res.Stderr))
			}
			rt.log.WithFields(logrus.Fields{"po": pc.PoName, "repo": repoName, "file": rel}).
				Info("patch already applied without a record, skipping")
			entry.Status = record.StatusAlreadyApplied
		}

		rec := rt.RepoRecord(pc, repoRoot, repoName)
		rec.Patches = append(rec.Patches, entry)
	}

	return nil
}

// revertPatches backs out applied diffs with git apply --reverse, walking
// the PO's patches directory. git apply is stateless so no abort is needed.
func revertPatches(ctx context.Context, rt *Runtime, pc *PluginContext) error {
	files, err := collectPluginFiles(rt.fs, pc.PatchesDir)
	if err != nil {
		return fmt.Errorf("failed to walk patches dir: %w", err)
	}
	if len(files) == 0 {
		rt.log.WithField("po", pc.PoName).Debug("no patches for po")
		return nil
	}
	rt.log.WithField("po", pc.PoName).Debug("reverting patches")

	for _, rel := range files {
		if pc.ExcludedFile(rel) {
			rt.log.WithFields(logrus.Fields{"po": pc.PoName, "file": rel}).
				Debug("patch file excluded by config")
			continue
		}

		repoName := repomap.DirRepoName(rel)
		repoRoot, ok := rt.repos.Path(repoName)
		if !ok {
			return fmt.Errorf("%w: %s (patch file %s)", ErrUnknownRepo, repoName, rel)
		}

		patchFile := filepath.Join(pc.PatchesDir, rel)
		rt.log.WithFields(logrus.Fields{"po": pc.PoName, "repo": repoName, "file": rel}).
			Info("reverting patch")

		res := rt.Run(ctx, pc, repoRoot, "git", "apply", "--reverse", patchFile)
		if !res.Ok() {
			return fmt.Errorf("failed to revert patch %s: %s", rel, strings.TrimSpace(res.Stderr))
		}
	}

	return nil
}

func listPatches(rt *Runtime, poPath string) (Listing, error) {
	files, err := collectPluginFiles(rt.fs, filepath.Join(poPath, "patches"))
	if err != nil {
		return Listing{}, err
	}
	return Listing{Files: files}, nil
}
