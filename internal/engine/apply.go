package engine

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Apply applies the project's effective POs in order.
//
// Algorithm steps:
//  1. Resolve project → board and parse the PO configuration
//  2. Narrow to the optional --po filter (must be in the effective list)
//  3. Per PO: fresh PluginContext, plugins in apply order, fail-fast
//  4. Persist the PO's accumulated applied records (skipped in dry-run)
func (e *Engine) Apply(ctx context.Context, req *ApplyRequest) (*ApplyResult, error) {
	e.log.WithField("project", req.Project).Info("starting po apply")

	env, err := e.resolve(req.Project)
	if err != nil {
		return nil, err
	}

	pos, err := selectPOs(env.plan, req.PO)
	if err != nil {
		return nil, err
	}
	result := &ApplyResult{Board: env.board}
	if len(pos) == 0 {
		e.log.WithField("project", req.Project).Warn("no po configuration found, nothing to apply")
		return result, nil
	}

	for _, po := range pos {
		pc := e.newContext(env, req.Project, po, req.DryRun, req.Force, req.Reapply)
		if exists, _ := e.fs.Exists(pc.PoPath); !exists {
			e.log.WithFields(logrus.Fields{"po": po, "path": pc.PoPath}).
				Warn("po directory does not exist, skipping")
			result.Skipped = append(result.Skipped, po)
			continue
		}

		for _, p := range pluginsByApplyOrder() {
			if err := p.Apply(ctx, env.rt, pc); err != nil {
				return nil, fmt.Errorf("po apply aborted in po %s (%s plugin): %w", po, p.Name, err)
			}
		}

		if err := env.rt.FinalizeRecords(pc); err != nil {
			return nil, err
		}
		result.Applied = append(result.Applied, po)
		e.log.WithField("po", po).Info("po has been processed")
	}

	e.log.WithField("project", req.Project).Info("po apply finished")
	return result, nil
}
