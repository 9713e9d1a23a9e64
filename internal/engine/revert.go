package engine

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Revert backs out the project's effective POs using the revert plugin
// order, then deletes the POs' applied records so a subsequent apply is
// not skipped.
func (e *Engine) Revert(ctx context.Context, req *RevertRequest) (*RevertResult, error) {
	e.log.WithField("project", req.Project).Info("starting po revert")

	env, err := e.resolve(req.Project)
	if err != nil {
		return nil, err
	}

	pos, err := selectPOs(env.plan, req.PO)
	if err != nil {
		return nil, err
	}
	result := &RevertResult{Board: env.board}
	if len(pos) == 0 {
		e.log.WithField("project", req.Project).Warn("no po configuration found, nothing to revert")
		return result, nil
	}

	for _, po := range pos {
		pc := e.newContext(env, req.Project, po, req.DryRun, false, false)
		if exists, _ := e.fs.Exists(pc.PoPath); !exists {
			e.log.WithFields(logrus.Fields{"po": po, "path": pc.PoPath}).
				Warn("po directory does not exist, skipping")
			result.Skipped = append(result.Skipped, po)
			continue
		}

		for _, p := range pluginsByRevertOrder() {
			if err := p.Revert(ctx, env.rt, pc); err != nil {
				return nil, fmt.Errorf("po revert aborted in po %s (%s plugin): %w", po, p.Name, err)
			}
		}

		if err := env.rt.DeleteRecords(pc); err != nil {
			return nil, err
		}
		result.Reverted = append(result.Reverted, po)
		e.log.WithField("po", po).Info("po has been reverted")
	}

	e.log.WithField("project", req.Project).Info("po revert finished")
	return result, nil
}
