package manifest

import "errors"

var (
	// ErrIncompatibleVersion is returned when the manifest version is not supported.
	ErrIncompatibleVersion = errors.New("manifest: incompatible version")

	// ErrNotFound is returned when no generation has been published.
	ErrNotFound = errors.New("manifest: not found")

	// ErrCorrupt is returned when a manifest fails its integrity checks.
	ErrCorrupt = errors.New("manifest: corrupt")

	// ErrConflict is returned by Save when CURRENT no longer points at the
	// manifest's parent, or when the manifest ID is already taken.
	ErrConflict = errors.New("manifest: conflicting publication")
)
