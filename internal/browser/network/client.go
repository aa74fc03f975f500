// internal/browser/network/client.go
package network

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/courier-cli/internal/config"
)

// Defaults tuned for fetching one document at a time.
const (
	DefaultDialTimeout           = 15 * time.Second
	DefaultKeepAliveInterval     = 30 * time.Second
	DefaultTLSHandshakeTimeout   = 10 * time.Second
	DefaultResponseHeaderTimeout = 30 * time.Second
	DefaultRequestTimeout        = 30 * time.Second
	DefaultIdleConnTimeout       = 90 * time.Second
	DefaultMaxIdleConnsPerHost   = 4

	// MaxRedirects matches the limit browsers apply before giving up.
	MaxRedirects = 20
)

// DefaultUserAgent identifies the client when no user agent is configured.
const DefaultUserAgent = "Mozilla/5.0 (compatible; courier)"

// SecureMinTLSVersion is the lowest TLS version offered unless verification
// is disabled altogether.
const SecureMinTLSVersion = tls.VersionTLS12

// ErrTooManyRedirects is returned when a redirect chain exceeds MaxRedirects.
var ErrTooManyRedirects = errors.New("stopped after too many redirects")

// ClientConfig holds the settings for the document fetching client.
type ClientConfig struct {
	InsecureSkipVerify bool
	UserAgent          string
	// DisableCache asks intermediaries not to serve cached copies.
	DisableCache   bool
	RequestTimeout time.Duration
	Logger         *zap.Logger
}

// ClientConfigFrom derives the client settings from the browser configuration,
// so the static driver fetches pages the way the real browsers are told to.
func ClientConfigFrom(cfg config.BrowserConfig, logger *zap.Logger) ClientConfig {
	return ClientConfig{
		InsecureSkipVerify: cfg.IgnoreTLSErrors,
		UserAgent:          cfg.UserAgent,
		DisableCache:       cfg.DisableCache,
		RequestTimeout:     DefaultRequestTimeout,
		Logger:             logger,
	}
}

// NewHTTPTransport creates the base transport.
func NewHTTPTransport(cfg ClientConfig) *http.Transport {
	dialer := &net.Dialer{Timeout: DefaultDialTimeout, KeepAlive: DefaultKeepAliveInterval}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSClientConfig:       configureTLS(cfg),
		TLSHandshakeTimeout:   DefaultTLSHandshakeTimeout,
		ResponseHeaderTimeout: DefaultResponseHeaderTimeout,
		MaxIdleConnsPerHost:   DefaultMaxIdleConnsPerHost,
		IdleConnTimeout:       DefaultIdleConnTimeout,
		// Decoding is done by compressionTransport, which also handles brotli.
		DisableCompression: true,
		ForceAttemptHTTP2:  true,
	}
}

// NewClient creates the http.Client used to fetch documents. It keeps cookies
// across requests, follows redirects like a browser and decodes compressed
// bodies.
func NewClient(cfg ClientConfig) *http.Client {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	// cookiejar.New only fails on invalid options.
	jar, _ := cookiejar.New(nil)
	logger := cfg.Logger.Named("http")

	return &http.Client{
		Transport: &headerTransport{
			userAgent:    cfg.UserAgent,
			disableCache: cfg.DisableCache,
			next:         &compressionTransport{next: NewHTTPTransport(cfg)},
		},
		Timeout: cfg.RequestTimeout,
		Jar:     jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= MaxRedirects {
				return fmt.Errorf("%w (%d)", ErrTooManyRedirects, MaxRedirects)
			}
			logger.Debug("Following redirect.", zap.String("from", via[len(via)-1].URL.String()), zap.String("to", req.URL.String()))
			return nil
		},
	}
}

// headerTransport sets the headers every request carries.
type headerTransport struct {
	userAgent    string
	disableCache bool
	next         http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	if t.disableCache {
		req.Header.Set("Cache-Control", "no-cache")
		req.Header.Set("Pragma", "no-cache")
	}
	return t.next.RoundTrip(req)
}

// configureTLS builds the client TLS settings. Verification is only skipped
// when the browser is configured to ignore certificate errors.
func configureTLS(cfg ClientConfig) *tls.Config {
	tlsConfig := &tls.Config{
		MinVersion:         SecureMinTLSVersion,
		NextProtos:         []string{"h2", "http/1.1"},
		ClientSessionCache: tls.NewLRUClientSessionCache(64),
	}
	if cfg.InsecureSkipVerify {
		tlsConfig.InsecureSkipVerify = true //nolint:gosec // opt-in via browser.ignore_tls_errors
		if cfg.Logger != nil {
			cfg.Logger.Warn("TLS certificate verification is disabled for page fetches.")
		}
	}
	return tlsConfig
}
