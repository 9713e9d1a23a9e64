package engine

import (
	"context"
	"sort"

	"github.com/podev-tools/podev/internal/fsops"
)

// Phase places a plugin in the apply or revert sequence relative to the
// per-PO plugins.
type Phase string

const (
	PhaseGlobalPre  Phase = "global_pre"
	PhasePerPo      Phase = "per_po"
	PhaseGlobalPost Phase = "global_post"
)

func phaseRank(p Phase) int {
	switch p {
	case PhaseGlobalPre:
		return 0
	case PhaseGlobalPost:
		return 2
	default:
		return 1
	}
}

// Listing is a plugin's inventory of one PO's content.
type Listing struct {
	Files  []string
	Custom []CustomListing
}

// Plugin describes one built-in PO plugin. The set is fixed at compile
// time; ordering is total by (phase rank, order).
type Plugin struct {
	Name        string
	ApplyPhase  Phase
	ApplyOrder  int
	RevertPhase Phase
	RevertOrder int

	Apply  func(ctx context.Context, rt *Runtime, pc *PluginContext) error
	Revert func(ctx context.Context, rt *Runtime, pc *PluginContext) error
	List   func(rt *Runtime, poPath string) (Listing, error)

	// EnsureStructure scaffolds the plugin's subdirectory for a new PO.
	// Nil when the plugin keeps no on-disk structure of its own.
	EnsureStructure func(fs fsops.FS, poPath string) error
}

// plugins returns the built-in plugin table. Commits establish git history
// first on apply and are torn down last on revert, so file-level reverts
// run against a tree that still contains the commits.
func plugins() []Plugin {
	return []Plugin{
		{
			Name:            "commits",
			ApplyPhase:      PhaseGlobalPre,
			ApplyOrder:      10,
			RevertPhase:     PhaseGlobalPost,
			RevertOrder:     100,
			Apply:           applyCommits,
			Revert:          revertCommits,
			List:            listCommits,
			EnsureStructure: ensureSubdir("commits"),
		},
		{
			Name:            "patches",
			ApplyPhase:      PhasePerPo,
			ApplyOrder:      20,
			RevertPhase:     PhasePerPo,
			RevertOrder:     20,
			Apply:           applyPatches,
			Revert:          revertPatches,
			List:            listPatches,
			EnsureStructure: ensureSubdir("patches"),
		},
		{
			Name:            "overrides",
			ApplyPhase:      PhasePerPo,
			ApplyOrder:      30,
			RevertPhase:     PhasePerPo,
			RevertOrder:     30,
			Apply:           applyOverrides,
			Revert:          revertOverrides,
			List:            listOverrides,
			EnsureStructure: ensureSubdir("overrides"),
		},
		{
			Name:        "custom",
			ApplyPhase:  PhasePerPo,
			ApplyOrder:  40,
			RevertPhase: PhasePerPo,
			RevertOrder: 40,
			Apply:       applyCustom,
			Revert:      revertCustom,
			List:        listCustom,
		},
	}
}

func pluginsByApplyOrder() []Plugin {
	ps := plugins()
	sort.SliceStable(ps, func(i, j int) bool {
		ri, rj := phaseRank(ps[i].ApplyPhase), phaseRank(ps[j].ApplyPhase)
		if ri != rj {
			return ri < rj
		}
		return ps[i].ApplyOrder < ps[j].ApplyOrder
	})
	return ps
}

func pluginsByRevertOrder() []Plugin {
	ps := plugins()
	sort.SliceStable(ps, func(i, j int) bool {
		ri, rj := phaseRank(ps[i].RevertPhase), phaseRank(ps[j].RevertPhase)
		if ri != rj {
			return ri < rj
		}
		return ps[i].RevertOrder < ps[j].RevertOrder
	})
	return ps
}
