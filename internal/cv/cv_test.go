package cv

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cv.md")
	require.NoError(t, os.WriteFile(path, []byte("\n# CV\n\nMSc candidate in AI.\n"), 0o600))

	text, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "# CV\n\nMSc candidate in AI.", text)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.md"))
	require.ErrorContains(t, err, "reading cv")
}

func TestLoadEmptyFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cv.md")
	require.NoError(t, os.WriteFile(path, []byte("   \n\t\n"), 0o600))

	_, err := Load(path)
	require.ErrorContains(t, err, "is empty")
}
