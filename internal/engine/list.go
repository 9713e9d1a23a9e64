package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
)

// List reports each effective PO's on-disk content as seen by every
// plugin: commit and patch files, override files, and configured custom
// sections.
func (e *Engine) List(ctx context.Context, req *ListRequest) (*ListResult, error) {
	_ = ctx

	env, err := e.resolve(req.Project)
	if err != nil {
		return nil, err
	}

	pos := env.plan.Effective()
	sort.Strings(pos)

	result := &ListResult{Board: env.board}
	for _, po := range pos {
		info := POInfo{Name: po}
		poPath := filepath.Join(env.poDir, po)

		for _, p := range pluginsByApplyOrder() {
			listing, err := p.List(env.rt, poPath)
			if err != nil {
				return nil, fmt.Errorf("failed to list po %s (%s plugin): %w", po, p.Name, err)
			}
			switch p.Name {
			case "commits":
				info.CommitFiles = listing.Files
			case "patches":
				info.PatchFiles = listing.Files
			case "overrides":
				info.OverrideFiles = listing.Files
			case "custom":
				info.Custom = listing.Custom
			}
		}
		result.POs = append(result.POs, info)
	}

	return result, nil
}
