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

// applyCommits imports formatted patch files (git format-patch output,
// one commit each) into their target repositories with git am.
func applyCommits(ctx context.Context, rt *Runtime, pc *PluginContext) error {
	files, err := collectPluginFiles(rt.fs, pc.CommitsDir)
	if err != nil {
		return fmt.Errorf("failed to walk commits dir: %w", err)
	}
	if len(files) == 0 {
		rt.log.WithField("po", pc.PoName).Debug("no commits for po")
		return nil
	}
	rt.log.WithField("po", pc.PoName).Debug("applying commits")

	for _, rel := range files {
		if pc.ExcludedFile(rel) {
			rt.log.WithFields(logrus.Fields{"po": pc.PoName, "file": rel}).
				Debug("commit file excluded by config")
			continue
		}

		repoName := repomap.DirRepoName(rel)
		repoRoot, ok := rt.repos.Path(repoName)
		if !ok {
			return fmt.Errorf("%w: %s (commit file %s)", ErrUnknownRepo, repoName, rel)
		}

		if !pc.Reapply && rt.store.Exists(repoRoot, pc.PoName) {
			rt.log.WithFields(logrus.Fields{"po": pc.PoName, "repo": repoName, "file": rel}).
				Info("po already applied for repo, skipping commit")
			continue
		}

		patchFile := filepath.Join(pc.CommitsDir, rel)
		targets := patchTargets(rt.fs, patchFile)

		var headBefore string
		if !pc.DryRun {
			if res := rt.git.Run(ctx, repoRoot, "git", "rev-parse", "HEAD"); res.Ok() {
				headBefore = strings.TrimSpace(res.Stdout)
			}
		}

		res := rt.Execute(ctx, pc, repoRoot, repoName, repoRoot,
			fmt.Sprintf("Apply commit patch %s to %s", filepath.Base(patchFile), repoName),
			"git", "am", patchFile)
		if !res.Ok() {
			// Clean up the in-progress am state before probing.
			rt.Execute(ctx, pc, repoRoot, repoName, repoRoot,
				fmt.Sprintf("Abort failed git am for %s", filepath.Base(patchFile)),
				"git", "am", "--abort")

			probe := rt.Execute(ctx, pc, repoRoot, repoName, repoRoot,
				fmt.Sprintf("Check commit patch already applied %s", filepath.Base(patchFile)),
				"git", "apply", "--reverse", "--check", patchFile)
			if probe.Ok() {
				rt.log.WithFields(logrus.Fields{"po": pc.PoName, "repo": repoName, "file": rel}).
					Info("commit patch already applied without a record, skipping")
				rec := rt.RepoRecord(pc, repoRoot, repoName)
				rec.Commits = append(rec.Commits, record.CommitEntry{
					PatchFile: poRelPath(pc, patchFile),
					Targets:   targets,
					Status:    record.StatusAlreadyApplied,
				})
				continue
			}
			return fmt.Errorf("failed to apply commit patch %s: %s", rel, strings.TrimSpace(res.Stderr))
		}

		headAfter := headBefore
		if !pc.DryRun {
			if r := rt.git.Run(ctx, repoRoot, "git", "rev-parse", "HEAD"); r.Ok() {
				headAfter = strings.TrimSpace(r.Stdout)
			}
		}

		var commitSHAs []string
		if !pc.DryRun && headBefore != "" && headAfter != "" && headBefore != headAfter {
			revList := rt.git.Run(ctx, repoRoot, "git", "rev-list", "--reverse", headBefore+".."+headAfter)
			if revList.Ok() {
				for _, line := range strings.Split(revList.Stdout, "\n") {
					if sha := strings.TrimSpace(line); sha != "" {
						commitSHAs = append(commitSHAs, sha)
					}
				}
			}
		}
		if len(commitSHAs) == 0 && headAfter != "" {
			commitSHAs = []string{headAfter}
		}

		rec := rt.RepoRecord(pc, repoRoot, repoName)
		rec.Commits = append(rec.Commits, record.CommitEntry{
			PatchFile:  poRelPath(pc, patchFile),
			Targets:    targets,
			Status:     record.StatusApplied,
			HeadBefore: headBefore,
			HeadAfter:  headAfter,
			CommitSHAs: commitSHAs,
		})
	}

	return nil
}

// revertCommits removes PO commits from every recorded repository with
// git revert, newest first, so file-level reverts have already run.
func revertCommits(ctx context.Context, rt *Runtime, pc *PluginContext) error {
	for _, r := range rt.repos.Repos() {
		rec := rt.store.Load(r.Path, pc.PoName)
		if rec == nil || len(rec.Commits) == 0 {
			continue
		}

		repoPath := rec.RepoPath
		if repoPath == "" {
			repoPath = r.Path
		}
		rt.log.WithFields(logrus.Fields{"po": pc.PoName, "repo": r.Name}).
			Info("reverting commits")

		for i := len(rec.Commits) - 1; i >= 0; i-- {
			entry := rec.Commits[i]
			if entry.Status == record.StatusAlreadyApplied {
				continue
			}
			shas := entry.CommitSHAs
			if len(shas) == 0 && entry.HeadAfter != "" {
				shas = []string{entry.HeadAfter}
			}

			for j := len(shas) - 1; j >= 0; j-- {
				sha := shas[j]
				if sha == "" {
					continue
				}
				res := rt.Run(ctx, pc, repoPath, "git", "revert", "--no-edit", sha)
				if !res.Ok() {
					rt.git.Run(ctx, repoPath, "git", "revert", "--abort")
					return fmt.Errorf("failed to revert commit %s for po %s in repo %s: %s",
						sha, pc.PoName, r.Name, strings.TrimSpace(res.Stderr))
				}
			}
		}
	}
	return nil
}

func listCommits(rt *Runtime, poPath string) (Listing, error) {
	files, err := collectPluginFiles(rt.fs, filepath.Join(poPath, "commits"))
	if err != nil {
		return Listing{}, err
	}
	return Listing{Files: files}, nil
}

// poRelPath renders a plugin file path relative to the PO root for records.
func poRelPath(pc *PluginContext, path string) string {
	rel, err := filepath.Rel(pc.PoPath, path)
	if err != nil {
		return path
	}
	return rel
}
