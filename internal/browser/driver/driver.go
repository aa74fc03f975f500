// Package driver opens a browser.Session with the backend named in the
// configuration. It sits apart from package browser because every backend
// imports browser.
package driver

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/courier-cli/internal/browser"
	"github.com/xkilldash9x/courier-cli/internal/browser/cdp"
	"github.com/xkilldash9x/courier-cli/internal/browser/network"
	"github.com/xkilldash9x/courier-cli/internal/browser/pwdriver"
	"github.com/xkilldash9x/courier-cli/internal/browser/rodriver"
	"github.com/xkilldash9x/courier-cli/internal/browser/static"
	"github.com/xkilldash9x/courier-cli/internal/config"
)

// Open starts a session on the configured driver. The returned session must
// be closed by the caller.
func Open(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (browser.Session, error) {
	logger.Info("Starting browser session.", zap.String("driver", cfg.Driver), zap.Bool("headless", cfg.Headless))

	var (
		sess browser.Session
		err  error
	)
	switch cfg.Driver {
	case config.DriverChromedp, "":
		var s *cdp.Session
		if s, err = cdp.New(ctx, cfg, logger); err == nil {
			sess = s
		}
	case config.DriverRod:
		var s *rodriver.Session
		if s, err = rodriver.New(ctx, cfg, logger); err == nil {
			sess = s
		}
	case config.DriverPlaywright:
		var s *pwdriver.Session
		if s, err = pwdriver.New(ctx, cfg, logger); err == nil {
			sess = s
		}
	case config.DriverStatic:
		sess = static.New(logger, network.NewClient(network.ClientConfigFrom(cfg, logger)))
	default:
		return nil, fmt.Errorf("unknown browser driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to start %s session: %w", cfg.Driver, err)
	}
	return sess, nil
}
