package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/courier-cli/internal/browser"
	"github.com/xkilldash9x/courier-cli/internal/browser/driver"
	"github.com/xkilldash9x/courier-cli/internal/links"
	"github.com/xkilldash9x/courier-cli/internal/observability"
	"github.com/xkilldash9x/courier-cli/internal/workflow"
)

// newRunCmd creates the `run` command.
func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Process every link in the link list",
		Long: `Opens each link in order, clicks the first control whose label matches a
trigger keyword, finds the message input (searching embedded frames too) and
sends the configured messages into it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			logger := observability.GetLogger()

			list, err := links.Load(cfg.Workflow.LinksFile)
			if err != nil {
				if !errors.Is(err, links.ErrNotFound) {
					return err
				}
				logger.Warn("Link list file does not exist.", zap.String("path", cfg.Workflow.LinksFile))
			}
			if len(list) == 0 {
				logger.Warn("No usable links, nothing to do.", zap.String("path", cfg.Workflow.LinksFile))
				return nil
			}
			logger.Info("Link list loaded.", zap.Int("links", len(list)), zap.String("driver", cfg.Browser.Driver))

			opener := workflow.OpenerFunc(func(ctx context.Context) (browser.Session, error) {
				return driver.Open(ctx, cfg.Browser, logger)
			})
			reports, err := workflow.NewRunner(opener, cfg.Workflow, logger).Run(cmd.Context(), list)
			for _, r := range reports {
				logger.Info("Link summary.", r.Fields()...)
			}
			printSummary(cmd.OutOrStdout(), reports)
			return err
		},
	}
	runCmd.Flags().String("links", "", "path to the link list (default from workflow.links_file)")
	return runCmd
}

// printSummary writes one row per attempted link.
func printSummary(w io.Writer, reports []workflow.LinkReport) {
	if len(reports) == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tURL\tSTATE\tCLICKED\tINPUT\tSENT\tFAILED")
	for i, r := range reports {
		input := "-"
		if r.InputFound {
			input = r.InputScope
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%t\t%s\t%d\t%d\n",
			i+1, r.URL, r.State, r.Clicked, input, r.MessagesSent, r.MessagesFailed)
	}
	_ = tw.Flush()
}
