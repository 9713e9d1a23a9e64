package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/podev-tools/podev/internal/fsops"
)

// poNamePattern constrains PO names to a shell- and config-safe subset.
var poNamePattern = regexp.MustCompile(`^po[a-z0-9_]*$`)

func ensureSubdir(name string) func(fs fsops.FS, poPath string) error {
	return func(fs fsops.FS, poPath string) error {
		return fs.MkdirAll(filepath.Join(poPath, name), 0o755)
	}
}

// NewPO scaffolds a new PO directory with each plugin's structure under
// the project's board PO tree.
func (e *Engine) NewPO(ctx context.Context, req *NewRequest) error {
	_ = ctx

	env, err := e.resolve(req.Project)
	if err != nil {
		return err
	}
	if !poNamePattern.MatchString(req.Name) {
		return fmt.Errorf("%w: %q (must match %s)", ErrInvalidPoName, req.Name, poNamePattern)
	}

	poPath := filepath.Join(env.poDir, req.Name)
	if exists, _ := e.fs.Exists(poPath); exists {
		return fmt.Errorf("%w: %s", ErrPoExists, poPath)
	}

	if err := e.fs.MkdirAll(poPath, 0o755); err != nil {
		return fmt.Errorf("failed to create po directory: %w", err)
	}
	for _, p := range plugins() {
		if p.EnsureStructure == nil {
			continue
		}
		if err := p.EnsureStructure(e.fs, poPath); err != nil {
			return fmt.Errorf("failed to scaffold %s structure: %w", p.Name, err)
		}
	}

	e.log.WithField("po", req.Name).Info("created po directory")
	return nil
}

// DeletePO removes a PO directory and prunes the board's po/ directory
// when it becomes empty.
func (e *Engine) DeletePO(ctx context.Context, req *DeleteRequest) error {
	_ = ctx

	env, err := e.resolve(req.Project)
	if err != nil {
		return err
	}
	if !poNamePattern.MatchString(req.Name) {
		return fmt.Errorf("%w: %q (must match %s)", ErrInvalidPoName, req.Name, poNamePattern)
	}

	poPath := filepath.Join(env.poDir, req.Name)
	if exists, _ := e.fs.Exists(poPath); !exists {
		return fmt.Errorf("%w: %s", ErrPoNotFound, poPath)
	}

	if err := e.fs.RemoveAll(poPath); err != nil {
		return fmt.Errorf("failed to delete po directory: %w", err)
	}

	if entries, err := os.ReadDir(env.poDir); err == nil && len(entries) == 0 {
		if err := e.fs.Remove(env.poDir); err != nil {
			return fmt.Errorf("failed to prune empty po directory: %w", err)
		}
	}

	e.log.WithField("po", req.Name).Info("deleted po directory")
	return nil
}
