package engine

import (
	"github.com/podev-tools/podev/internal/record"
)

// PluginContext carries everything plugins need to process one PO in one
// apply or revert invocation. A fresh context is built per PO; the record
// accumulator is shared by reference across all plugins of that invocation
// and flushed once at the end.
type PluginContext struct {
	ProjectName string
	BoardName   string
	PoName      string

	// PoPath is the PO root directory: <po_dir>/<po_name>.
	PoPath       string
	CommitsDir   string
	PatchesDir   string
	OverridesDir string
	CustomDir    string

	DryRun  bool
	Force   bool
	Reapply bool

	// ExcludeFiles maps PO names to plugin-relative paths excluded by config.
	ExcludeFiles map[string]map[string]struct{}

	// Records accumulates in-memory applied records keyed by absolute
	// repository root.
	Records map[string]*record.Record

	// recordOrder preserves insertion order for deterministic persistence.
	recordOrder []string
}

// ExcludedFile reports whether a plugin-relative file path is excluded by
// this PO's configuration.
func (pc *PluginContext) ExcludedFile(relPath string) bool {
	files, ok := pc.ExcludeFiles[pc.PoName]
	if !ok {
		return false
	}
	_, excluded := files[relPath]
	return excluded
}
