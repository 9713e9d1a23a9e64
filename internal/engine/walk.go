package engine

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/podev-tools/podev/internal/fsops"
)

// collectPluginFiles walks a plugin directory recursively and returns the
// contained files as sorted directory-relative paths. A missing directory
// yields an empty list; .gitkeep placeholders are ignored.
func collectPluginFiles(fsys fsops.FS, dir string) ([]string, error) {
	if _, err := fsys.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var files []string
	err := fsys.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() == ".gitkeep" {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// patchTargets extracts the file paths touched by a patch from its
// "diff --git a/<path> b/<path>" headers. Returns sorted unique paths;
// unreadable or header-less patches yield an empty list.
func patchTargets(fsys fsops.FS, patchFile string) []string {
	data, err := fsys.ReadFile(patchFile)
	if err != nil {
		return nil
	}

	seen := make(map[string]struct{})
	for _, line := range strings.Split(string(data), "\n") {
		if !strings.HasPrefix(line, "diff --git ") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 4 {
			continue
		}
		aPath := strings.TrimPrefix(parts[2], "a/")
		bPath := strings.TrimPrefix(parts[3], "b/")
		switch {
		case bPath != "" && bPath != "/dev/null":
			seen[bPath] = struct{}{}
		case aPath != "" && aPath != "/dev/null":
			seen[aPath] = struct{}{}
		}
	}

	targets := make([]string, 0, len(seen))
	for t := range seen {
		targets = append(targets, t)
	}
	sort.Strings(targets)
	return targets
}
