package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/courier-cli/internal/browser"
	"github.com/xkilldash9x/courier-cli/internal/browser/driver"
	"github.com/xkilldash9x/courier-cli/internal/config"
	"github.com/xkilldash9x/courier-cli/internal/hints"
	"github.com/xkilldash9x/courier-cli/internal/locate"
	"github.com/xkilldash9x/courier-cli/internal/observability"
	"github.com/xkilldash9x/courier-cli/internal/workflow"
)

// probeResult is what a probe found on a page.
type probeResult struct {
	Target       string
	Ready        bool
	Trigger      string
	TriggerLabel string
	Input        string
	InputScope   browser.Scope
}

// newProbeCmd creates the `probe` command.
func newProbeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe <url-or-file>",
		Short: "Show which trigger and input a page would get, without interacting",
		Long: `Loads a single page and runs the trigger and input searches against it.
Nothing is clicked or typed. Unless --driver is given, the page is parsed
offline with the static driver, so scripts do not run.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			bcfg := cfg.Browser
			if !cmd.Flags().Changed("driver") {
				bcfg.Driver = config.DriverStatic
			}
			logger := observability.GetLogger()

			sess, err := driver.Open(cmd.Context(), bcfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				if cErr := sess.Close(context.WithoutCancel(cmd.Context())); cErr != nil {
					logger.Warn("Failed to close browser session.", zap.Error(cErr))
				}
			}()

			res, err := probe(cmd.Context(), sess, cfg.Workflow, logger, args[0])
			if err != nil {
				return err
			}
			printProbe(cmd.OutOrStdout(), res)
			return nil
		},
	}
}

// probe opens target and runs both searches. Open and readiness failures are
// reported in the result rather than returned, as in a real run.
func probe(ctx context.Context, sess browser.Session, wcfg config.WorkflowConfig, logger *zap.Logger, target string) (probeResult, error) {
	res := probeResult{Target: target}
	if err := sess.Open(ctx, target); err != nil {
		if browser.IsFatal(err) || ctx.Err() != nil {
			return res, err
		}
		logger.Warn("Could not open page.", zap.String("target", target), zap.Error(err))
	}
	err := workflow.WaitReady(ctx, sess, workflow.RealClock(), wcfg.PageLoadTimeout, wcfg.ReadyPollInterval)
	switch {
	case err == nil:
		res.Ready = true
	case !errors.Is(err, workflow.ErrReadinessTimeout):
		return res, err
	}

	l := locate.New(logger)
	trigger, err := l.FindTriggerControl(ctx, sess, hints.NewKeywords(wcfg.ButtonKeywords...))
	if err != nil {
		return res, err
	}
	if trigger != nil {
		res.Trigger = trigger.Describe()
		res.TriggerLabel, _ = locate.Label(ctx, trigger).Get()
	}

	m, err := l.LocateAcrossScopes(ctx, sess, hints.NewKeywords(wcfg.InputHints...))
	if err != nil {
		return res, err
	}
	if m.Found() {
		res.Input = m.Element.Describe()
		res.InputScope = m.Scope
	}
	return res, nil
}

func printProbe(w io.Writer, res probeResult) {
	fmt.Fprintf(w, "Page:    %s\n", res.Target)
	if !res.Ready {
		fmt.Fprintln(w, "Ready:   no (timed out)")
	}
	if res.Trigger != "" {
		fmt.Fprintf(w, "Trigger: %s %q\n", res.Trigger, res.TriggerLabel)
	} else {
		fmt.Fprintln(w, "Trigger: none")
	}
	if res.Input != "" {
		fmt.Fprintf(w, "Input:   %s in %s\n", res.Input, res.InputScope)
	} else {
		fmt.Fprintln(w, "Input:   none")
	}
}
