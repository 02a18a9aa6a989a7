// Package security validates user-supplied file paths before the server
// touches them.
package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidateDataPath checks that path resolves to a location inside
// dataDir. Paths arrive in API requests, so both .. traversal and
// symlink escapes are rejected. An empty dataDir disables the check.
func ValidateDataPath(path, dataDir string) error {
	if dataDir == "" {
		return nil
	}

	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	absDir, err := filepath.Abs(dataDir)
	if err != nil {
		return fmt.Errorf("failed to resolve data directory: %w", err)
	}

	// Resolve symlinks where the filesystem allows. Constraint inputs
	// must already exist, so a resolution failure there is reported by
	// the open that follows, not here.
	canonicalPath := absPath
	if resolved, err := filepath.EvalSymlinks(absPath); err == nil {
		canonicalPath = resolved
	}
	canonicalDir := absDir
	if resolved, err := filepath.EvalSymlinks(absDir); err == nil {
		canonicalDir = resolved
	}

	rel, err := filepath.Rel(canonicalDir, canonicalPath)
	if err != nil {
		return fmt.Errorf("path is outside the data directory: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("path %s escapes the data directory %s", path, dataDir)
	}
	return nil
}
