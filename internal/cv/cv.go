// Package cv loads the candidate's CV document.
package cv

import (
	"fmt"
	"os"
	"strings"
)

// Load reads the CV text from path. A missing or empty document is an
// error; the caller treats it as fatal at startup.
func Load(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading cv from %q: %w", path, err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("cv file %q is empty", path)
	}
	return text, nil
}
