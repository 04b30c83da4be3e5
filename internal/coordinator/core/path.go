package core

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// FindLocalFiles expands glob patterns into regular files. Matches keep
// pattern order and a file matched by several patterns is listed once, so the
// result can be used directly as the ordered map input list of a job.
func FindLocalFiles(patterns []string) ([]string, error) {
	var files []string
	seen := make(map[string]struct{})
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid input pattern %q: %w", pattern, err)
		}
		for _, name := range matches {
			if _, dup := seen[name]; dup {
				continue
			}
			info, err := os.Lstat(name)
			if err != nil {
				continue
			}
			if info.Mode().IsRegular() {
				seen[name] = struct{}{}
				files = append(files, name)
			}
		}
	}
	return files, nil
}

// AbsPaths resolves every path against the current working directory, so the
// result stays valid for workers started elsewhere.
func AbsPaths(paths []string) ([]string, error) {
	abs := make([]string, 0, len(paths))
	for _, path := range paths {
		resolved, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
		}
		abs = append(abs, resolved)
	}
	return abs, nil
}

// LocalDirProvisioner creates output directories on the local filesystem.
type LocalDirProvisioner struct {
	Perm os.FileMode
}

func NewLocalDirProvisioner() *LocalDirProvisioner {
	return &LocalDirProvisioner{Perm: 0o755}
}

func (p *LocalDirProvisioner) Provision(dir string) error {
	if err := os.MkdirAll(dir, p.Perm); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}
	return nil
}
