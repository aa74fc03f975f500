// internal/browser/cdp/allocator.go
package cdp

import (
	"github.com/chromedp/chromedp"

	"github.com/xkilldash9x/courier-cli/internal/browser"
	"github.com/xkilldash9x/courier-cli/internal/config"
)

// Flags returns the switches layered on top of chromedp's defaults.
func Flags(cfg config.BrowserConfig) []browser.Flag {
	flags := make([]browser.Flag, 0, 16)
	if cfg.Headless {
		flags = append(flags, browser.Flag{Name: "headless", Value: "new"})
	} else {
		flags = append(flags, browser.Flag{Name: "headless", Value: false})
	}
	if cfg.Stealth {
		// chromedp turns this on by default; it drives the infobar and
		// navigator.webdriver.
		flags = append(flags, browser.Flag{Name: "enable-automation", Value: false})
	}
	return append(flags, browser.LaunchFlags(cfg)...)
}

// DefaultAllocatorOptions builds the exec allocator options for cfg, starting
// from chromedp.DefaultExecAllocatorOptions.
func DefaultAllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	for _, f := range Flags(cfg) {
		opts = append(opts, chromedp.Flag(f.Name, f.Value))
	}
	return opts
}
