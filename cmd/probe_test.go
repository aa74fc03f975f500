package cmd

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/courier-cli/internal/browser"
	"github.com/xkilldash9x/courier-cli/internal/browser/browsertest"
	"github.com/xkilldash9x/courier-cli/internal/config"
)

func TestProbeCmd_Widget(t *testing.T) {
	page := fixture(t, "widget.html")

	out, err := executeCommand(t, "probe", page)
	require.NoError(t, err)

	assert.Equal(t, strings.Join([]string{
		"Page:    " + page,
		`Trigger: <button class="consult"> "在线咨询"`,
		"Input:   <div> in sub-document #3",
	}, "\n")+"\n", out)
}

func TestProbeCmd_MissingPage(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "courier.yaml", "workflow:\n  page_load_timeout: 50ms\n  ready_poll_interval: 10ms\n")

	out, err := executeCommand(t, "--config", cfg, "probe", filepath.Join(dir, "absent.html"))
	require.NoError(t, err)
	assert.Contains(t, out, "Ready:   no (timed out)")
	assert.Contains(t, out, "Trigger: none")
	assert.Contains(t, out, "Input:   none")
}

func TestProbeCmd_RequiresTarget(t *testing.T) {
	_, err := executeCommand(t, "probe")
	assert.Error(t, err)
}

func TestProbe_DoesNotInteract(t *testing.T) {
	const target = "https://shop.test"
	cta := &browsertest.Element{Name: "cta", Content: "在线咨询"}
	input := &browsertest.Element{Name: "input", Attrs: map[string]string{"placeholder": "留言内容"}}
	sess := browsertest.NewSession(map[string]*browsertest.Page{
		target: {Top: &browsertest.Document{
			Triggers:   []*browsertest.Element{cta},
			TextFields: []*browsertest.Element{input},
		}},
	})
	cfg := config.NewDefaultConfig().Workflow

	res, err := probe(context.Background(), sess, cfg, zaptest.NewLogger(t), target)
	require.NoError(t, err)

	assert.True(t, res.Ready)
	assert.Equal(t, "<cta>", res.Trigger)
	assert.Equal(t, "在线咨询", res.TriggerLabel)
	assert.Equal(t, "<input>", res.Input)
	assert.Equal(t, browser.TopLevel, res.InputScope)
	assert.Equal(t, []string{"open " + target}, sess.Journal)
}

func TestProbe_LostSession(t *testing.T) {
	sess := browsertest.NewSession(nil)
	sess.Lost = true
	cfg := config.NewDefaultConfig().Workflow
	cfg.PageLoadTimeout = time.Second

	_, err := probe(context.Background(), sess, cfg, zaptest.NewLogger(t), "https://shop.test")
	assert.True(t, browser.IsFatal(err))
}
