package cmd

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/courier-cli/internal/workflow"
)

func TestRunCmd_StaticEndToEnd(t *testing.T) {
	dir := t.TempDir()
	page := fixture(t, "widget.html")
	linksFile := writeFile(t, dir, "links.txt", "# pages to contact\n\n"+page+"\n"+page+"\n")
	cfg := fastConfig(t, dir, linksFile, "hello", "thanks")

	out, err := executeCommand(t, "--config", cfg, "run")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3, "header plus one row per link:\n%s", out)
	assert.Regexp(t, `^#\s+URL\s+STATE\s+CLICKED\s+INPUT\s+SENT\s+FAILED$`, lines[0])
	for i, row := range lines[1:] {
		fields := strings.Fields(row)
		require.GreaterOrEqual(t, len(fields), 7, row)
		assert.Equal(t, []string{string(rune('1' + i)), page}, fields[:2])
		assert.Equal(t, "done", fields[2])
		assert.Equal(t, "true", fields[3])
		assert.Contains(t, row, "sub-document #3")
		assert.Equal(t, []string{"2", "0"}, fields[len(fields)-2:])
	}
}

func TestRunCmd_LinksFlagOverridesConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := fastConfig(t, dir, filepath.Join(dir, "absent.txt"), "hello")
	other := writeFile(t, dir, "other.txt", fixture(t, "widget.html")+"\n")

	out, err := executeCommand(t, "--config", cfg, "run", "--links", other)
	require.NoError(t, err)
	assert.Contains(t, out, "done")
}

func TestRunCmd_NothingToDo(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing links file", func(t *testing.T) {
		cfg := fastConfig(t, dir, filepath.Join(dir, "absent.txt"))
		out, err := executeCommand(t, "--config", cfg, "run")
		require.NoError(t, err)
		assert.Empty(t, out)
	})

	t.Run("only comments", func(t *testing.T) {
		linksFile := writeFile(t, dir, "empty.txt", "# nothing yet\n\n   \n")
		cfg := fastConfig(t, dir, linksFile)
		out, err := executeCommand(t, "--config", cfg, "run")
		require.NoError(t, err)
		assert.Empty(t, out)
	})
}

func TestRunCmd_RejectsArguments(t *testing.T) {
	_, err := executeCommand(t, "run", "https://example.test")
	assert.Error(t, err)
}

func TestPrintSummary(t *testing.T) {
	var b strings.Builder
	printSummary(&b, []workflow.LinkReport{
		{URL: "https://a.test", State: workflow.StateDone, Clicked: true, InputFound: true, InputScope: "top-level", MessagesSent: 4},
		{URL: "https://b.test", State: workflow.StateScrolled},
	})

	lines := strings.Split(strings.TrimSpace(b.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"1", "https://a.test", "done", "true", "top-level", "4", "0"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"2", "https://b.test", "scrolled", "false", "-", "0", "0"}, strings.Fields(lines[2]))

	b.Reset()
	printSummary(&b, nil)
	assert.Empty(t, b.String())
}
