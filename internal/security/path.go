// Package security confines tool-supplied file paths to a configured directory.
package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrOutsideDirectory is returned for paths that escape the configured directory.
	ErrOutsideDirectory = errors.New("path is outside configured directory")

	// ErrNotRegularFile is returned when a resolved path is a directory or device.
	ErrNotRegularFile = errors.New("path is not a regular file")
)

// PathValidator resolves paths against a root directory and rejects those
// that leave it, directly or through symlinks.
type PathValidator struct {
	root string
}

// NewPathValidator creates a validator rooted at dir. The directory does
// not need to exist yet.
func NewPathValidator(dir string) (*PathValidator, error) {
	if dir == "" {
		return nil, fmt.Errorf("configured directory cannot be empty")
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve configured directory: %w", err)
	}
	return &PathValidator{root: filepath.Clean(abs)}, nil
}

// Root returns the absolute configured directory.
func (v *PathValidator) Root() string {
	return v.root
}

// Resolve turns path into an absolute path inside the root. Relative paths
// are taken relative to the root; NUL bytes are stripped.
func (v *PathValidator) Resolve(path string) (string, error) {
	path = strings.ReplaceAll(path, "\x00", "")
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path cannot be empty")
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(v.root, path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	within, err := v.Contains(abs)
	if err != nil {
		return "", err
	}
	if !within {
		return "", fmt.Errorf("%w: %s", ErrOutsideDirectory, path)
	}
	return abs, nil
}

// ResolveFile is Resolve plus a check that the target is an existing
// regular file.
func (v *PathValidator) ResolveFile(path string) (string, error) {
	abs, err := v.Resolve(path)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("cannot access file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s", ErrNotRegularFile, path)
	}
	return abs, nil
}

// Contains reports whether the absolute path lies inside the root, both
// lexically and after resolving symlinks.
func (v *PathValidator) Contains(abs string) (bool, error) {
	clean := filepath.Clean(abs)
	if !under(clean, v.root) {
		return false, nil
	}

	realRoot := v.root
	if resolved, err := filepath.EvalSymlinks(v.root); err == nil {
		realRoot = resolved
	}

	real, err := filepath.EvalSymlinks(clean)
	if err != nil {
		if os.IsNotExist(err) {
			// Nothing to follow yet.
			return true, nil
		}
		return false, fmt.Errorf("failed to resolve symlinks: %w", err)
	}
	return under(real, realRoot) || under(real, v.root), nil
}

func under(path, dir string) bool {
	if path == dir {
		return true
	}
	if !strings.HasSuffix(dir, string(filepath.Separator)) {
		dir += string(filepath.Separator)
	}
	return strings.HasPrefix(path, dir)
}
