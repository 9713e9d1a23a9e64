// Package workspace loads the declarative podev.yml file that describes a
// multi-repo workspace: its repositories, its projects, and the per-PO
// custom-copy sections.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/podev-tools/podev/internal/repomap"
)

// FileName is the workspace configuration file looked up at the root.
const FileName = "podev.yml"

// defaultProjectsPath is where board/project PO trees live when the
// config does not say otherwise.
const defaultProjectsPath = "projects"

// Project describes one buildable project: the board whose PO tree it
// uses and its PO configuration string.
type Project struct {
	Board  string `yaml:"board"`
	Config string `yaml:"po_config"`
}

// repoEntry is one repository declaration in podev.yml.
type repoEntry struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// file mirrors the on-disk YAML structure.
type file struct {
	ProjectsPath string                       `yaml:"projects_path"`
	Repositories []repoEntry                  `yaml:"repositories"`
	Projects     map[string]Project           `yaml:"projects"`
	PoSections   map[string]map[string]string `yaml:"po_sections"`
}

// Workspace is the fully resolved configuration handed to the engine.
type Workspace struct {
	// Root is the absolute workspace root directory.
	Root string

	// ProjectsPath is the absolute path holding projects/<board>/po trees.
	ProjectsPath string

	// Repos maps repository names to their checkouts.
	Repos *repomap.Map

	// Projects maps project names to their board and PO configuration.
	Projects map[string]Project

	// PoSections holds the raw "po-<name>" sections consumed by the
	// custom-copy plugin.
	PoSections map[string]map[string]string
}

// Load reads podev.yml from the given workspace root and resolves all
// paths to absolute form. When no repositories are declared, the
// workspace root itself becomes the single "root" repository.
func Load(root string) (*Workspace, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace root: %w", err)
	}

	path := filepath.Join(absRoot, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workspace config %s: %w", path, err)
	}

	var cfg file
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse workspace config %s: %w", path, err)
	}

	projectsPath := cfg.ProjectsPath
	if projectsPath == "" {
		projectsPath = defaultProjectsPath
	}
	if !filepath.IsAbs(projectsPath) {
		projectsPath = filepath.Join(absRoot, projectsPath)
	}

	repos := make([]repomap.Repo, 0, len(cfg.Repositories)+1)
	seenRoot := false
	for _, r := range cfg.Repositories {
		if r.Name == "" {
			return nil, fmt.Errorf("repository entry in %s is missing a name", path)
		}
		repoPath := r.Path
		if repoPath == "" {
			repoPath = r.Name
		}
		if !filepath.IsAbs(repoPath) {
			repoPath = filepath.Join(absRoot, repoPath)
		}
		if r.Name == repomap.RootName {
			seenRoot = true
		}
		repos = append(repos, repomap.Repo{Name: r.Name, Path: repoPath})
	}
	if !seenRoot {
		repos = append(repos, repomap.Repo{Name: repomap.RootName, Path: absRoot})
	}

	projects := cfg.Projects
	if projects == nil {
		projects = map[string]Project{}
	}
	sections := cfg.PoSections
	if sections == nil {
		sections = map[string]map[string]string{}
	}

	return &Workspace{
		Root:         absRoot,
		ProjectsPath: projectsPath,
		Repos:        repomap.New(repos),
		Projects:     projects,
		PoSections:   sections,
	}, nil
}

// Project looks up a project by name.
func (w *Workspace) Project(name string) (Project, bool) {
	p, ok := w.Projects[name]
	return p, ok
}

// PoDir returns the PO tree directory for a board:
// <projects_path>/<board>/po.
func (w *Workspace) PoDir(board string) string {
	return filepath.Join(w.ProjectsPath, board, "po")
}
