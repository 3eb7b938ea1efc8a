package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Local writes page texts to a directory tree.
type Local struct {
	baseDir string
	prefix  string
}

// NewLocal creates a filesystem-backed archive rooted at baseDir,
// creating it when absent and verifying it is writable.
func NewLocal(baseDir, prefix string) (*Local, error) {
	if strings.TrimSpace(baseDir) == "" {
		return nil, fmt.Errorf("archive base directory is required")
	}

	info, err := os.Stat(baseDir)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat archive directory: %w", err)
		}
		if mkErr := os.MkdirAll(baseDir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("create archive directory: %w", mkErr)
		}
	} else if !info.IsDir() {
		return nil, fmt.Errorf("archive path %q is not a directory", baseDir)
	}

	testFile := filepath.Join(baseDir, ".writable_test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return nil, fmt.Errorf("archive directory is not writable: %w", err)
	}
	if err := os.Remove(testFile); err != nil {
		return nil, fmt.Errorf("clean up writability probe: %w", err)
	}

	return &Local{baseDir: baseDir, prefix: prefix}, nil
}

// Put writes one page text under baseDir/prefix/key, rejecting keys
// that would escape the base directory.
func (l *Local) Put(_ context.Context, key string, text string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("archive key is required")
	}

	fullPath := filepath.Join(l.baseDir, l.prefix, key)
	cleanBase := filepath.Clean(l.baseDir)
	if !strings.HasPrefix(filepath.Clean(fullPath), cleanBase+string(filepath.Separator)) {
		return fmt.Errorf("archive key escapes base directory")
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		return fmt.Errorf("create archive subdirectory: %w", err)
	}
	if err := os.WriteFile(fullPath, []byte(text), 0o600); err != nil {
		return fmt.Errorf("write archive file: %w", err)
	}
	return nil
}
