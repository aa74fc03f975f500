// Package links loads the list of target pages.
package links

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/go-homedir"
)

// ErrNotFound means the link list file does not exist. Callers treat it as
// an empty list, not a failure.
var ErrNotFound = errors.New("link list not found")

// Load reads one link per line from path. Lines are trimmed; blank lines and
// lines starting with '#' are ignored. Order and duplicates are preserved.
// A leading ~ in path is expanded to the home directory.
func Load(path string) ([]string, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand link list path %q: %w", path, err)
	}

	f, err := os.Open(expanded)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, expanded)
		}
		return nil, fmt.Errorf("failed to open link list: %w", err)
	}
	defer f.Close()

	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\ufeff"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read link list %s: %w", expanded, err)
	}
	return out, nil
}
