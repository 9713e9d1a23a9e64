package engine

// ApplyRequest represents a request to apply a project's POs.
type ApplyRequest struct {
	// Project is the project name to apply POs for.
	Project string

	// PO optionally restricts the run to a single PO from the effective list.
	PO string

	// DryRun logs every side-effecting command without running it.
	DryRun bool

	// Force allows destructive override .remove operations.
	Force bool

	// Reapply ignores existing applied records and applies again.
	Reapply bool
}

// ApplyResult represents the result of applying a project's POs.
type ApplyResult struct {
	// Board is the board whose PO tree was used.
	Board string

	// Applied lists POs that were processed.
	Applied []string

	// Skipped lists POs whose directory tree was absent.
	Skipped []string
}

// RevertRequest represents a request to revert a project's POs.
type RevertRequest struct {
	Project string
	PO      string
	DryRun  bool
}

// RevertResult represents the result of reverting a project's POs.
type RevertResult struct {
	Board    string
	Reverted []string
	Skipped  []string
}

// ListRequest represents a request for a project's PO inventory.
type ListRequest struct {
	Project string
}

// CustomListing describes one configured custom-copy section of a PO.
type CustomListing struct {
	// Section is the configuration section name ("po-<name>").
	Section string

	// Dir is the configured subdirectory under the PO root.
	Dir string

	// Files are the files found under Dir, relative paths.
	Files []string

	// CopyConfig is the raw copy-rule configuration string.
	CopyConfig string
}

// POInfo describes one PO's on-disk content.
type POInfo struct {
	Name          string
	CommitFiles   []string
	PatchFiles    []string
	OverrideFiles []string
	Custom        []CustomListing
}

// ListResult represents a project's PO inventory.
type ListResult struct {
	Board string
	POs   []POInfo
}

// NewRequest represents a request to scaffold a new PO directory.
type NewRequest struct {
	Project string
	Name    string
}

// DeleteRequest represents a request to delete a PO directory.
type DeleteRequest struct {
	Project string
	Name    string
}
