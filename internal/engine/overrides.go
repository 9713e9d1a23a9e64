package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/podev-tools/podev/internal/fsops"
	"github.com/podev-tools/podev/internal/record"
)

const removeSuffix = ".remove"

// overrideOp is one resolved override operation inside a repository.
type overrideOp struct {
	srcFile  string
	destRel  string
	isRemove bool
}

// resolveOverrides walks the overrides directory and groups operations by
// owning repository root, preserving walk order. Both the apply and revert
// sides share this resolution, including path-safety validation.
func resolveOverrides(rt *Runtime, pc *PluginContext) (map[string][]overrideOp, []string, error) {
	files, err := collectPluginFiles(rt.fs, pc.OverridesDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to walk overrides dir: %w", err)
	}

	byRepo := make(map[string][]overrideOp)
	var repoOrder []string
	for _, rel := range files {
		if pc.ExcludedFile(rel) {
			rt.log.WithFields(logrus.Fields{"po": pc.PoName, "file": rel}).
				Debug("override file excluded by config")
			continue
		}

		repoName, destRel := rt.repos.SplitOverridePath(rel)
		isRemove := strings.HasSuffix(rel, removeSuffix)
		if isRemove {
			destRel = strings.TrimSuffix(destRel, removeSuffix)
		}

		if err := fsops.ValidateRelPath(destRel); err != nil {
			return nil, nil, fmt.Errorf("%w: override target derived from %q: %v", ErrUnsafePath, rel, err)
		}

		repoRoot, ok := rt.repos.Path(repoName)
		if !ok {
			return nil, nil, fmt.Errorf("%w: %s (override file %s)", ErrUnknownRepo, repoName, rel)
		}
		if err := fsops.WithinRoot(repoRoot, destRel); err != nil {
			return nil, nil, fmt.Errorf("%w: override target escapes repo root: %s", ErrUnsafePath, destRel)
		}

		if _, seen := byRepo[repoRoot]; !seen {
			repoOrder = append(repoOrder, repoRoot)
		}
		byRepo[repoRoot] = append(byRepo[repoRoot], overrideOp{
			srcFile:  filepath.Join(pc.OverridesDir, rel),
			destRel:  destRel,
			isRemove: isRemove,
		})
	}

	return byRepo, repoOrder, nil
}

// applyOverrides copies (or, for .remove entries, deletes) files in a
// repository's working tree, preserving the layout under overrides/.
func applyOverrides(ctx context.Context, rt *Runtime, pc *PluginContext) error {
	byRepo, repoOrder, err := resolveOverrides(rt, pc)
	if err != nil {
		return err
	}
	if len(repoOrder) == 0 {
		rt.log.WithField("po", pc.PoName).Debug("no overrides for po")
		return nil
	}
	rt.log.WithField("po", pc.PoName).Debug("applying overrides")

	for _, repoRoot := range repoOrder {
		repoName, ok := rt.repos.Name(repoRoot)
		if !ok {
			repoName = "unknown"
		}

		if !pc.Reapply && rt.store.Exists(repoRoot, pc.PoName) {
			rt.log.WithFields(logrus.Fields{"po": pc.PoName, "repo": repoName}).
				Info("po already applied for repo, skipping overrides")
			continue
		}

		for _, op := range byRepo[repoRoot] {
			operation := "copy"
			if op.isRemove {
				operation = "remove"
			}
			rec := rt.RepoRecord(pc, repoRoot, repoName)
			rec.Overrides = append(rec.Overrides, record.OverrideEntry{
				Operation:  operation,
				PoSource:   poRelPath(pc, op.srcFile),
				PathInRepo: op.destRel,
			})

			if op.isRemove {
				if !pc.Force && !pc.DryRun {
					return fmt.Errorf("%w: refusing to remove %s without --force", ErrForceRequired, op.destRel)
				}
				exists, _ := rt.fs.Exists(filepath.Join(repoRoot, op.destRel))
				if !exists {
					rt.log.WithField("path", op.destRel).Debug("remove target does not exist, skipping")
					continue
				}
				res := rt.Execute(ctx, pc, repoRoot, repoName, repoRoot,
					fmt.Sprintf("Remove file %s", op.destRel),
					"rm", "-rf", op.destRel)
				if !res.Ok() {
					return fmt.Errorf("failed to remove %s: %s", op.destRel, strings.TrimSpace(res.Stderr))
				}
				rt.log.WithFields(logrus.Fields{"path": op.destRel, "repo": repoName}).
					Info("removed file")
				continue
			}

			if destDir := filepath.Dir(op.destRel); !pc.DryRun && destDir != "." {
				if err := rt.fs.MkdirAll(filepath.Join(repoRoot, destDir), 0o755); err != nil {
					return fmt.Errorf("failed to create override target dir: %w", err)
				}
			}
			res := rt.Execute(ctx, pc, repoRoot, repoName, repoRoot,
				"Copy override file",
				"cp", "-rf", op.srcFile, op.destRel)
			if !res.Ok() {
				return fmt.Errorf("failed to copy override file %s to %s: %s",
					op.srcFile, op.destRel, strings.TrimSpace(res.Stderr))
			}
			rt.log.WithFields(logrus.Fields{"path": op.destRel, "repo": repoName}).
				Info("copied override file")
		}
	}

	return nil
}

// revertOverrides restores tracked destinations from git and deletes
// untracked ones, distinguishing "override replaced a tracked file" from
// "override created a new file".
func revertOverrides(ctx context.Context, rt *Runtime, pc *PluginContext) error {
	byRepo, repoOrder, err := resolveOverrides(rt, pc)
	if err != nil {
		return err
	}
	if len(repoOrder) == 0 {
		rt.log.WithField("po", pc.PoName).Debug("no overrides for po")
		return nil
	}
	rt.log.WithField("po", pc.PoName).Debug("reverting overrides")

	for _, repoRoot := range repoOrder {
		for _, op := range byRepo[repoRoot] {
			destAbs := filepath.Join(repoRoot, op.destRel)
			rt.log.WithFields(logrus.Fields{"po": pc.PoName, "path": op.destRel}).
				Info("reverting override file")

			tracked := rt.git.Run(ctx, repoRoot, "git", "ls-files", "--error-unmatch", op.destRel)
			if tracked.Ok() {
				res := rt.Run(ctx, pc, repoRoot, "git", "checkout", "--", op.destRel)
				if !res.Ok() {
					return fmt.Errorf("failed to revert override file %s: %s",
						op.destRel, strings.TrimSpace(res.Stderr))
				}
				continue
			}

			exists, _ := rt.fs.Exists(destAbs)
			if !exists {
				rt.log.WithField("path", op.destRel).Debug("override file does not exist, skipping")
				continue
			}
			if pc.DryRun {
				rt.log.Infof("DRY-RUN: rm -rf %s", destAbs)
				continue
			}
			if err := rt.fs.RemoveAll(destAbs); err != nil {
				return fmt.Errorf("failed to delete untracked override file %s: %w", op.destRel, err)
			}
		}
	}

	return nil
}

func listOverrides(rt *Runtime, poPath string) (Listing, error) {
	files, err := collectPluginFiles(rt.fs, filepath.Join(poPath, "overrides"))
	if err != nil {
		return Listing{}, err
	}
	return Listing{Files: files}, nil
}
