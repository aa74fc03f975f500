// internal/browser/cdp/allocator_test.go
package cdp

import (
	"testing"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"

	"github.com/xkilldash9x/courier-cli/internal/browser"
	"github.com/xkilldash9x/courier-cli/internal/config"
)

func findFlag(flags []browser.Flag, name string) (browser.Flag, bool) {
	for i := len(flags) - 1; i >= 0; i-- {
		if flags[i].Name == name {
			return flags[i], true
		}
	}
	return browser.Flag{}, false
}

func TestFlags(t *testing.T) {
	t.Run("Headless", func(t *testing.T) {
		f, ok := findFlag(Flags(config.BrowserConfig{Headless: true}), "headless")
		assert.True(t, ok)
		assert.Equal(t, "new", f.Value)
	})

	t.Run("Headful", func(t *testing.T) {
		f, ok := findFlag(Flags(config.BrowserConfig{Headless: false}), "headless")
		assert.True(t, ok)
		assert.Equal(t, false, f.Value, "chromedp defaults to headless, so it must be switched off")
	})

	t.Run("StealthDisablesAutomationSwitch", func(t *testing.T) {
		f, ok := findFlag(Flags(config.BrowserConfig{Stealth: true}), "enable-automation")
		assert.True(t, ok)
		assert.Equal(t, false, f.Value)

		_, ok = findFlag(Flags(config.BrowserConfig{}), "enable-automation")
		assert.False(t, ok)
	})

	t.Run("IncludesSharedLaunchFlags", func(t *testing.T) {
		cfg := config.BrowserConfig{IgnoreTLSErrors: true, Args: []string{"--custom-arg1"}}
		_, ok := findFlag(Flags(cfg), "ignore-certificate-errors")
		assert.True(t, ok)
		_, ok = findFlag(Flags(cfg), "custom-arg1")
		assert.True(t, ok)
	})
}

func TestDefaultAllocatorOptions(t *testing.T) {
	base := len(chromedp.DefaultExecAllocatorOptions)

	cfg := config.BrowserConfig{Headless: true}
	assert.Len(t, DefaultAllocatorOptions(cfg), base+len(Flags(cfg)))

	cfg.ExecPath = "/usr/bin/chromium"
	assert.Len(t, DefaultAllocatorOptions(cfg), base+len(Flags(cfg))+1, "exec path adds one option")
}
