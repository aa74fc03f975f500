package stealth

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/courier-cli/internal/config"
)

//go:embed evasions.js
var evasionsScript string

// Persona defines the browser characteristics to emulate.
type Persona struct {
	UserAgent string   `json:"userAgent"`
	Platform  string   `json:"platform"`
	Languages []string `json:"languages"`
	Timezone  string   `json:"timezone"`
	Locale    string   `json:"locale"`
}

// DefaultPersona is a desktop Chrome on Windows with a Chinese locale, which
// is what the consultation widgets this tool targets expect to see.
var DefaultPersona = Persona{
	UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	Platform:  "Win32",
	Languages: []string{"zh-CN", "zh", "en"},
	Timezone:  "Asia/Shanghai",
	Locale:    "zh-CN",
}

// PersonaFor returns the default persona with any configured user agent.
func PersonaFor(cfg config.BrowserConfig) Persona {
	p := DefaultPersona
	p.Languages = append([]string(nil), DefaultPersona.Languages...)
	if cfg.UserAgent != "" {
		p.UserAgent = cfg.UserAgent
	}
	return p
}

// Script returns the evasions script with the persona bound in front of it,
// ready to be registered to run on every new document.
func Script(p Persona) string {
	data, err := json.Marshal(p)
	if err != nil {
		// Persona only holds strings; Marshal cannot fail.
		data = []byte("{}")
	}
	return fmt.Sprintf("const __courierPersona = %s;\n%s", data, evasionsScript)
}

// AcceptLanguage renders the persona languages as an Accept-Language header
// with descending quality values, e.g. "zh-CN,zh;q=0.9,en;q=0.8".
func AcceptLanguage(p Persona) string {
	var b strings.Builder
	q := 10
	for _, lang := range p.Languages {
		if lang == "" {
			continue
		}
		if b.Len() == 0 {
			b.WriteString(lang)
			continue
		}
		if q > 1 {
			q--
		}
		fmt.Fprintf(&b, ",%s;q=0.%d", lang, q)
	}
	return b.String()
}

// Apply returns the CDP actions that install the persona on the current
// target. It must run before the first navigation.
func Apply(p Persona, logger *zap.Logger) chromedp.Tasks {
	logger.Debug("Applying browser stealth persona",
		zap.String("userAgent", p.UserAgent),
		zap.String("platform", p.Platform),
		zap.Strings("languages", p.Languages),
	)

	tasks := chromedp.Tasks{
		emulation.SetUserAgentOverride(p.UserAgent).
			WithPlatform(p.Platform).
			WithAcceptLanguage(AcceptLanguage(p)),
		chromedp.ActionFunc(func(ctx context.Context) error {
			if _, err := page.AddScriptToEvaluateOnNewDocument(Script(p)).Do(ctx); err != nil {
				return fmt.Errorf("failed to inject evasions script: %w", err)
			}
			return nil
		}),
	}
	if p.Timezone != "" {
		tasks = append(tasks, emulation.SetTimezoneOverride(p.Timezone))
	}
	if p.Locale != "" {
		tasks = append(tasks, emulation.SetLocaleOverride().WithLocale(p.Locale))
	}
	if lang := AcceptLanguage(p); lang != "" {
		tasks = append(tasks, network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": lang}))
	}
	return tasks
}
