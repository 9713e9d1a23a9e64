// Package record defines the on-disk applied-record schema that makes
// patch and override application idempotent across runs.
package record

import "time"

// SchemaVersion is the current applied-record schema version.
const SchemaVersion = 2

// Entry statuses.
const (
	StatusApplied        = "applied"
	StatusAlreadyApplied = "already_applied"
)

// Record captures everything a single apply run did to one repository
// for one PO. One record file exists per (board, project, po, repo).
type Record struct {
	SchemaVersion int             `json:"schema_version"`
	Status        string          `json:"status"`
	AppliedAt     time.Time       `json:"applied_at"`
	ProjectName   string          `json:"project_name"`
	BoardName     string          `json:"board_name"`
	PoName        string          `json:"po_name"`
	RepoName      string          `json:"repo_name"`
	RepoPath      string          `json:"repo_path"`
	Commits       []CommitEntry   `json:"commits,omitempty"`
	Patches       []PatchEntry    `json:"patches,omitempty"`
	Overrides     []OverrideEntry `json:"overrides,omitempty"`
	Custom        []CustomEntry   `json:"custom,omitempty"`
	Commands      []CommandEntry  `json:"commands,omitempty"`
}

// CommitEntry records one mailbox patch imported with git am.
type CommitEntry struct {
	PatchFile  string   `json:"patch_file"`
	Targets    []string `json:"targets,omitempty"`
	Status     string   `json:"status"`
	HeadBefore string   `json:"head_before,omitempty"`
	HeadAfter  string   `json:"head_after,omitempty"`
	CommitSHAs []string `json:"commit_shas,omitempty"`
}

// PatchEntry records one diff applied to the working tree with git apply.
type PatchEntry struct {
	PatchFile string   `json:"patch_file"`
	Targets   []string `json:"targets,omitempty"`
	Status    string   `json:"status"`
}

// OverrideEntry records one file copied into, or removed from, a repository.
type OverrideEntry struct {
	Operation  string `json:"operation"`
	PoSource   string `json:"po_source,omitempty"`
	PathInRepo string `json:"path_in_repo"`
}

// CustomEntry records one custom-copy rule expansion result.
type CustomEntry struct {
	Section    string `json:"section"`
	Source     string `json:"source"`
	Target     string `json:"target"`
	PathInRepo string `json:"path_in_repo,omitempty"`
}

// CommandEntry records one external command executed during the run.
type CommandEntry struct {
	Description string `json:"description,omitempty"`
	Cmd         string `json:"cmd"`
	Cwd         string `json:"cwd"`
	Shell       bool   `json:"shell"`
	ReturnCode  int    `json:"returncode"`
}

// New creates an empty record for the given identity with the current schema.
func New(board, project, po, repoName, repoPath string) *Record {
	return &Record{
		SchemaVersion: SchemaVersion,
		Status:        StatusApplied,
		BoardName:     board,
		ProjectName:   project,
		PoName:        po,
		RepoName:      repoName,
		RepoPath:      repoPath,
	}
}

// Empty reports whether the record holds no applied work at all.
func (r *Record) Empty() bool {
	return len(r.Commits) == 0 && len(r.Patches) == 0 &&
		len(r.Overrides) == 0 && len(r.Custom) == 0
}
