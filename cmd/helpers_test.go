package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/courier-cli/internal/observability"
)

// executeCommand runs a fresh command tree with args and returns what it
// printed.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	observability.ResetForTest()
	t.Cleanup(observability.ResetForTest)

	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// fixture returns the absolute path of a page under internal/locate/testdata.
func fixture(t *testing.T, name string) string {
	t.Helper()
	path, err := filepath.Abs(filepath.Join("..", "internal", "locate", "testdata", name))
	require.NoError(t, err)
	require.FileExists(t, path)
	return path
}

// writeFile writes content to name inside a per-test directory.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// fastConfig writes a config that runs the static driver with no pacing.
func fastConfig(t *testing.T, dir, linksFile string, messages ...string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("logger:\n  level: error\n")
	b.WriteString("browser:\n  driver: static\n")
	b.WriteString("workflow:\n")
	b.WriteString("  links_file: " + linksFile + "\n")
	b.WriteString("  inter_message_delay: 0s\n")
	b.WriteString("  button_wait_delay: 0s\n")
	b.WriteString("  page_load_timeout: 5s\n")
	b.WriteString("  scroll_max_rounds: 1\n")
	b.WriteString("  scroll_pause: 0s\n")
	b.WriteString("  trigger_search_delay: 0s\n")
	b.WriteString("  focus_delay: 0s\n")
	b.WriteString("  type_settle_delay: 0s\n")
	b.WriteString("  ready_poll_interval: 10ms\n")
	if len(messages) > 0 {
		b.WriteString("  messages:\n")
		for _, m := range messages {
			b.WriteString("    - " + m + "\n")
		}
	}
	return writeFile(t, dir, "courier.yaml", b.String())
}
