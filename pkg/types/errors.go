package types

import "errors"

// Domain errors shared across packages.
var (
	// ErrNotFound is returned by the store when no record exists for the
	// requested (workspace, branch) key.
	ErrNotFound = errors.New("not found")

	// ErrFileTooLarge is returned by the chunker when a file exceeds the
	// maximum size it will process.
	ErrFileTooLarge = errors.New("file exceeds maximum size limit")

	// ErrDisabled is returned by the orchestrator when no workspace is
	// configured.
	ErrDisabled = errors.New("indexing is disabled: no workspace available")

	// ErrNoSecret is returned by the obfuscator when a secret can neither
	// be loaded nor generated.
	ErrNoSecret = errors.New("obfuscation secret unavailable")
)
