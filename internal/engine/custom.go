package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/sirupsen/logrus"

	"github.com/podev-tools/podev/internal/poconfig"
	"github.com/podev-tools/podev/internal/record"
)

// applyCustom executes the configured copy rules of the PO's "po-<name>"
// section: glob expansion relative to the section's custom directory,
// copies through the command executor so dry-run and auditing apply
// uniformly.
func applyCustom(ctx context.Context, rt *Runtime, pc *PluginContext) error {
	sec, ok := rt.custom[pc.PoName]
	if !ok {
		rt.log.WithField("po", pc.PoName).Debug("no custom section for po")
		return nil
	}

	sectionDir := pc.CustomDir
	if sec.Dir != "" {
		sectionDir = filepath.Join(pc.PoPath, sec.Dir)
	}
	if exists, _ := rt.fs.Exists(sectionDir); !exists {
		rt.log.WithFields(logrus.Fields{"po": pc.PoName, "dir": sectionDir}).
			Debug("custom directory not found")
		return nil
	}

	if len(sec.Rules) == 0 {
		rt.log.WithField("po", pc.PoName).Warn("no copy rules configured for custom po")
		return nil
	}
	rt.log.WithFields(logrus.Fields{"po": pc.PoName, "dir": sectionDir}).
		Info("processing custom po")

	for _, rule := range sec.Rules {
		if err := executeCopyRule(ctx, rt, pc, sectionDir, rule); err != nil {
			return fmt.Errorf("custom copy failed for po %s (source %q, target %q): %w",
				pc.PoName, rule.Source, rule.Target, err)
		}
	}
	return nil
}

func executeCopyRule(ctx context.Context, rt *Runtime, pc *PluginContext, sectionDir string, rule poconfig.CopyRule) error {
	absPattern := filepath.Join(sectionDir, rule.Source)

	// Record placement is best-effort: the longest repo containing the
	// target wins, anything outside all repos is attributed to a synthetic
	// "workspace" repo at the workspace root.
	ownerRoot, ownerName, pathInRepo := rt.workspaceRoot, "workspace", ""
	if owner, ok := rt.repos.ResolveOwner(rule.Target, rt.workspaceRoot); ok {
		ownerRoot, ownerName, pathInRepo = owner.Root, owner.Name, owner.Rel
	}

	if !pc.Reapply && rt.store.Exists(ownerRoot, pc.PoName) {
		rt.log.WithFields(logrus.Fields{"po": pc.PoName, "repo": ownerName, "target": rule.Target}).
			Info("po already applied for repo, skipping custom copy")
		return nil
	}

	rec := rt.RepoRecord(pc, ownerRoot, ownerName)
	rec.Custom = append(rec.Custom, record.CustomEntry{
		Section:    "po-" + pc.PoName,
		Source:     rule.Source,
		Target:     rule.Target,
		PathInRepo: pathInRepo,
	})

	matches, err := doublestar.FilepathGlob(absPattern)
	if err != nil {
		return fmt.Errorf("bad glob pattern: %w", err)
	}
	if len(matches) == 0 {
		return fmt.Errorf("%w: %s", ErrNoMatches, rule.Source)
	}

	baseDir := globBaseDir(absPattern, sectionDir)

	absTarget := rule.Target
	if !filepath.IsAbs(absTarget) {
		absTarget = filepath.Join(rt.workspaceRoot, absTarget)
	}
	targetIsDir := strings.HasSuffix(rule.Target, string(filepath.Separator)) || len(matches) > 1
	if !targetIsDir {
		if info, err := rt.fs.Stat(absTarget); err == nil && info.IsDir() {
			targetIsDir = true
		}
	}
	if !pc.DryRun && targetIsDir {
		if err := rt.fs.MkdirAll(absTarget, 0o755); err != nil {
			return fmt.Errorf("failed to create target directory: %w", err)
		}
	}

	for _, src := range matches {
		dest := absTarget
		if targetIsDir {
			rel, err := filepath.Rel(baseDir, src)
			if err != nil {
				rel = filepath.Base(src)
			}
			dest = filepath.Join(absTarget, rel)
		}
		if destDir := filepath.Dir(dest); !pc.DryRun && destDir != "" {
			if err := rt.fs.MkdirAll(destDir, 0o755); err != nil {
				return fmt.Errorf("failed to create directory for %s: %w", dest, err)
			}
		}

		res := rt.Execute(ctx, pc, ownerRoot, ownerName, rt.workspaceRoot,
			"Copy custom file",
			"cp", "-rf", src, dest)
		if !res.Ok() {
			return fmt.Errorf("failed to copy %s to %s: %s", src, dest, strings.TrimSpace(res.Stderr))
		}
	}
	return nil
}

// globBaseDir finds the directory the copied paths stay relative to: the
// deepest directory of the pattern before its first wildcard.
func globBaseDir(absPattern, sectionDir string) string {
	idx := strings.IndexAny(absPattern, "*?[")
	var base string
	if idx < 0 {
		base = filepath.Dir(absPattern)
	} else {
		base = filepath.Dir(absPattern[:idx])
	}
	if base == "" || base == "." {
		return sectionDir
	}
	return base
}

// revertCustom performs no file removal: a custom-copy target may be
// shared by several sources or have pre-existed, so safe reversal cannot
// be inferred. It only warns which targets may need manual cleanup.
func revertCustom(_ context.Context, rt *Runtime, pc *PluginContext) error {
	sec, ok := rt.custom[pc.PoName]
	if !ok {
		return nil
	}
	if len(sec.Rules) == 0 {
		rt.log.WithField("po", pc.PoName).Warn("no copy rules configured for custom po")
		return nil
	}

	rt.log.WithField("po", pc.PoName).
		Warn("custom po files were copied in place, manual cleanup may be required:")
	seen := make(map[string]struct{})
	for _, rule := range sec.Rules {
		if _, dup := seen[rule.Target]; dup {
			continue
		}
		seen[rule.Target] = struct{}{}
		rt.log.Warnf("  - target: %s", rule.Target)
	}
	return nil
}

func listCustom(rt *Runtime, poPath string) (Listing, error) {
	poName := filepath.Base(poPath)
	sec, ok := rt.custom[poName]
	if !ok || sec.Dir == "" {
		return Listing{}, nil
	}

	files, err := collectPluginFiles(rt.fs, filepath.Join(poPath, sec.Dir))
	if err != nil {
		return Listing{}, err
	}

	var rules []string
	for _, r := range sec.Rules {
		rules = append(rules, r.Source+":"+r.Target)
	}
	return Listing{Custom: []CustomListing{{
		Section:    "po-" + poName,
		Dir:        sec.Dir,
		Files:      files,
		CopyConfig: strings.Join(rules, " \\\n"),
	}}}, nil
}
