package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/podev-tools/podev/internal/clock"
	"github.com/podev-tools/podev/internal/engine"
	"github.com/podev-tools/podev/internal/fsops"
	"github.com/podev-tools/podev/internal/gitx"
	"github.com/podev-tools/podev/internal/workspace"
)

const workspaceFile = workspace.FileName

var errNoWorkspace = errors.New("no " + workspaceFile + " found in this or any parent directory")

// findWorkspaceRoot walks upward from dir until it finds a directory
// containing the workspace config file.
func findWorkspaceRoot(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, workspaceFile)); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errNoWorkspace
		}
		dir = parent
	}
}

// newLogger builds the CLI's logrus entry. Engine progress goes to
// stderr so stdout stays clean for command output.
func newLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
	})
	if verboseOutput {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}
	return logrus.NewEntry(log)
}

// newEngine loads the workspace config and wires an engine with real
// implementations of all dependencies.
func newEngine() (*engine.Engine, error) {
	root := workspaceDir
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		root, err = findWorkspaceRoot(cwd)
		if err != nil {
			return nil, err
		}
	}

	ws, err := workspace.Load(root)
	if err != nil {
		return nil, err
	}

	log := newLogger()
	return engine.New(log, fsops.NewRealFS(), gitx.NewRealRunner(), &clock.RealClock{}, ws), nil
}

// outputJSON outputs a value as JSON to stdout.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
