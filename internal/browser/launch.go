// internal/browser/launch.go
package browser

import (
	"fmt"
	"strings"

	"github.com/xkilldash9x/courier-cli/internal/config"
)

// Flag is a single Chromium command-line switch. Value is either a bool
// (present or removed) or a string (--name=value).
type Flag struct {
	Name  string
	Value interface{}
}

// Arg renders the flag the way it appears on a command line. A false boolean
// renders as the empty string.
func (f Flag) Arg() string {
	switch v := f.Value.(type) {
	case bool:
		if !v {
			return ""
		}
		return "--" + f.Name
	case string:
		return fmt.Sprintf("--%s=%s", f.Name, v)
	default:
		return fmt.Sprintf("--%s=%v", f.Name, v)
	}
}

// LaunchFlags translates the browser configuration into Chromium switches.
// Headless mode is not included because every driver exposes its own knob for
// it; the flags that only make sense headless are.
//
// Later flags win, so user supplied args can override anything computed here.
func LaunchFlags(cfg config.BrowserConfig) []Flag {
	flags := []Flag{
		{"start-maximized", true},
		{"no-first-run", true},
		{"no-default-browser-check", true},
	}
	if cfg.Headless {
		flags = append(flags, Flag{"disable-gpu", true})
	}
	if cfg.Stealth {
		flags = append(flags,
			Flag{"disable-blink-features", "AutomationControlled"},
			Flag{"disable-infobars", true},
		)
	}
	if cfg.IgnoreTLSErrors {
		flags = append(flags,
			Flag{"ignore-certificate-errors", true},
			Flag{"allow-insecure-localhost", true},
		)
	}
	if cfg.DisableCache {
		flags = append(flags,
			Flag{"disk-cache-size", "0"},
			Flag{"media-cache-size", "0"},
			Flag{"disable-application-cache", true},
		)
	}
	if w, h := cfg.Viewport["width"], cfg.Viewport["height"]; w > 0 && h > 0 {
		flags = append(flags, Flag{"window-size", fmt.Sprintf("%d,%d", w, h)})
	}
	if cfg.UserAgent != "" {
		flags = append(flags, Flag{"user-agent", cfg.UserAgent})
	}
	for _, raw := range cfg.Args {
		if f, ok := ParseFlag(raw); ok {
			flags = append(flags, f)
		}
	}
	return flags
}

// ParseFlag parses "--name", "--name=value" or "name=value" into a Flag.
func ParseFlag(raw string) (Flag, bool) {
	trimmed := strings.TrimLeft(strings.TrimSpace(raw), "-")
	if trimmed == "" {
		return Flag{}, false
	}
	name, val, hasVal := strings.Cut(trimmed, "=")
	if !hasVal {
		return Flag{Name: name, Value: true}, true
	}
	return Flag{Name: name, Value: val}, true
}

// Args renders flags as command-line arguments, skipping removed ones.
func Args(flags []Flag) []string {
	out := make([]string, 0, len(flags))
	for _, f := range flags {
		if a := f.Arg(); a != "" {
			out = append(out, a)
		}
	}
	return out
}
