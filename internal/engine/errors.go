package engine

import "errors"

var (
	// ErrProjectNotFound indicates the requested project is not configured.
	ErrProjectNotFound = errors.New("project not found")

	// ErrBoardNotSet indicates a project has no board assigned.
	ErrBoardNotSet = errors.New("no board configured for project")

	// ErrUnknownPO indicates a PO filter that is not in the effective list.
	ErrUnknownPO = errors.New("unknown po")

	// ErrUnknownRepo indicates a plugin file references an unmapped repository.
	ErrUnknownRepo = errors.New("unknown repository")

	// ErrForceRequired indicates a destructive operation was attempted
	// without --force.
	ErrForceRequired = errors.New("force required")

	// ErrUnsafePath indicates a destination path that escapes its repository.
	ErrUnsafePath = errors.New("unsafe destination path")

	// ErrNoMatches indicates a custom-copy glob matched nothing.
	ErrNoMatches = errors.New("no files matched pattern")

	// ErrInvalidPoName indicates a PO name that fails validation.
	ErrInvalidPoName = errors.New("invalid po name")

	// ErrPoExists indicates an attempt to create a PO that already exists.
	ErrPoExists = errors.New("po already exists")

	// ErrPoNotFound indicates an operation against a missing PO directory.
	ErrPoNotFound = errors.New("po not found")
)
