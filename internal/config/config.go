// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Supported browser drivers.
const (
	DriverChromedp   = "chromedp"
	DriverRod        = "rod"
	DriverPlaywright = "playwright"
	DriverStatic     = "static"
)

// Config holds the entire application configuration.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Browser  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	Workflow WorkflowConfig `mapstructure:"workflow" yaml:"workflow"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color names for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig holds settings for the browser session driving the workflow.
type BrowserConfig struct {
	// Driver selects the automation backend: chromedp, rod, playwright or static.
	Driver          string         `mapstructure:"driver" yaml:"driver"`
	Headless        bool           `mapstructure:"headless" yaml:"headless"`
	ExecPath        string         `mapstructure:"exec_path" yaml:"exec_path"`
	Args            []string       `mapstructure:"args" yaml:"args"`
	IgnoreTLSErrors bool           `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	DisableCache    bool           `mapstructure:"disable_cache" yaml:"disable_cache"`
	Viewport        map[string]int `mapstructure:"viewport" yaml:"viewport"`
	// Stealth hides the most common automation fingerprints. It is a flag,
	// not a countermeasure against active bot detection.
	Stealth       bool          `mapstructure:"stealth" yaml:"stealth"`
	UserAgent     string        `mapstructure:"user_agent" yaml:"user_agent"`
	LaunchTimeout time.Duration `mapstructure:"launch_timeout" yaml:"launch_timeout"`
}

// WorkflowConfig configures the per-link interaction sequence.
type WorkflowConfig struct {
	LinksFile      string   `mapstructure:"links_file" yaml:"links_file"`
	ButtonKeywords []string `mapstructure:"button_keywords" yaml:"button_keywords"`
	InputHints     []string `mapstructure:"input_hints" yaml:"input_hints"`
	Messages       []string `mapstructure:"messages" yaml:"messages"`

	InterMessageDelay  time.Duration `mapstructure:"inter_message_delay" yaml:"inter_message_delay"`
	ButtonWaitDelay    time.Duration `mapstructure:"button_wait_delay" yaml:"button_wait_delay"`
	PageLoadTimeout    time.Duration `mapstructure:"page_load_timeout" yaml:"page_load_timeout"`
	ScrollMaxRounds    int           `mapstructure:"scroll_max_rounds" yaml:"scroll_max_rounds"`
	ScrollPause        time.Duration `mapstructure:"scroll_pause" yaml:"scroll_pause"`
	TriggerSearchDelay time.Duration `mapstructure:"trigger_search_delay" yaml:"trigger_search_delay"`
	FocusDelay         time.Duration `mapstructure:"focus_delay" yaml:"focus_delay"`
	TypeSettleDelay    time.Duration `mapstructure:"type_settle_delay" yaml:"type_settle_delay"`
	ReadyPollInterval  time.Duration `mapstructure:"ready_poll_interval" yaml:"ready_poll_interval"`
	// ActionTimeout bounds each element interaction. Zero leaves it to the driver.
	ActionTimeout time.Duration `mapstructure:"action_timeout" yaml:"action_timeout"`
}

// DefaultButtonKeywords are the trigger hints used when none are configured.
var DefaultButtonKeywords = []string{
	"发送",
	"在线咨询",
	"在线客服",
	"点击发送",
	"点击咨询",
}

// DefaultInputHints are the input-surface hints used when none are configured.
var DefaultInputHints = []string{
	"请详细描述",
	"请输入您的问题",
	"请输入问题",
	"留言内容",
	"message",
	"chat",
	"type your message",
}

// DefaultMessages is the message script used when none is configured.
var DefaultMessages = []string{
	"你好",
	"我想要了解一下",
	"手机号码：1345678910",
	"谢谢",
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for every configuration key.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "courier")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Browser --
	v.SetDefault("browser.driver", DriverChromedp)
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.args", []string{})
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.disable_cache", false)
	v.SetDefault("browser.stealth", true)
	v.SetDefault("browser.user_agent", "")
	v.SetDefault("browser.launch_timeout", "60s")

	// -- Workflow --
	v.SetDefault("workflow.links_file", "link.txt")
	v.SetDefault("workflow.button_keywords", DefaultButtonKeywords)
	v.SetDefault("workflow.input_hints", DefaultInputHints)
	v.SetDefault("workflow.messages", DefaultMessages)
	v.SetDefault("workflow.inter_message_delay", "10s")
	v.SetDefault("workflow.button_wait_delay", "10s")
	v.SetDefault("workflow.page_load_timeout", "25s")
	v.SetDefault("workflow.scroll_max_rounds", 5)
	v.SetDefault("workflow.scroll_pause", "600ms")
	v.SetDefault("workflow.trigger_search_delay", "3s")
	v.SetDefault("workflow.focus_delay", "800ms")
	v.SetDefault("workflow.type_settle_delay", "1s")
	v.SetDefault("workflow.ready_poll_interval", "250ms")
	v.SetDefault("workflow.action_timeout", "15s")
}

// EnvPrefix is the prefix for environment variable overrides, e.g.
// COURIER_BROWSER_HEADLESS=true.
const EnvPrefix = "COURIER"

// NewConfigFromViper creates a new configuration instance from a viper object.
// Environment variables are bound here so they take precedence over values
// read from a config file.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.Browser.Driver = strings.ToLower(strings.TrimSpace(cfg.Browser.Driver))
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.Browser.Validate(); err != nil {
		return fmt.Errorf("browser configuration invalid: %w", err)
	}
	if err := c.Workflow.Validate(); err != nil {
		return fmt.Errorf("workflow configuration invalid: %w", err)
	}
	return nil
}

// Validate checks the BrowserConfig settings.
func (b *BrowserConfig) Validate() error {
	switch b.Driver {
	case DriverChromedp, DriverRod, DriverPlaywright, DriverStatic:
	default:
		return fmt.Errorf("driver must be one of %s, %s, %s, %s (got %q)",
			DriverChromedp, DriverRod, DriverPlaywright, DriverStatic, b.Driver)
	}
	if b.LaunchTimeout < 0 {
		return fmt.Errorf("launch_timeout must not be negative")
	}
	return nil
}

// Validate checks the WorkflowConfig settings.
func (w *WorkflowConfig) Validate() error {
	if w.ScrollMaxRounds < 0 {
		return fmt.Errorf("scroll_max_rounds must not be negative")
	}
	for _, d := range []struct {
		name  string
		value time.Duration
	}{
		{"inter_message_delay", w.InterMessageDelay},
		{"button_wait_delay", w.ButtonWaitDelay},
		{"page_load_timeout", w.PageLoadTimeout},
		{"scroll_pause", w.ScrollPause},
		{"trigger_search_delay", w.TriggerSearchDelay},
		{"focus_delay", w.FocusDelay},
		{"type_settle_delay", w.TypeSettleDelay},
		{"ready_poll_interval", w.ReadyPollInterval},
		{"action_timeout", w.ActionTimeout},
	} {
		if d.value < 0 {
			return fmt.Errorf("%s must not be negative", d.name)
		}
	}
	if !hasNonBlank(w.ButtonKeywords) {
		return fmt.Errorf("button_keywords must contain at least one non-empty keyword")
	}
	return nil
}

func hasNonBlank(values []string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return true
		}
	}
	return false
}
