package cli

import (
	"context"
	"fmt"

	"github.com/buemura/safeurl/internal/output"
	"github.com/buemura/safeurl/internal/scan"
	"github.com/buemura/safeurl/pkg/types"
	"github.com/spf13/cobra"
)

var (
	noAIFlag      bool
	noHistoryFlag bool
)

var scanCmd = &cobra.Command{
	Use:   "scan <url>...",
	Short: "Score one or more URLs",
	Long: `Scores each URL with the detector bank and, when an AI endpoint is
configured, an AI assessment. Results are saved to the user's history.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().BoolVar(&noAIFlag, "no-ai", false, "skip the AI assessment")
	scanCmd.Flags().BoolVar(&noHistoryFlag, "no-history", false, "do not save results to history")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	formatter, err := output.GetFormatter(outputFlag)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeoutFlag)
	defer cancel()

	return withApp(ctx, func(a *app) error {
		var opts []scan.ScanOption
		if noAIFlag {
			opts = append(opts, scan.WithoutAI())
		}

		user := appConfig.User
		outcomes := a.scanner.ScanAll(ctx, user, args, concurrencyFlag, opts...)

		results := make([]types.ScanResult, 0, len(outcomes))
		failed := 0
		for _, o := range outcomes {
			if o.Err != nil {
				failed++
				fmt.Fprintf(cmd.ErrOrStderr(), "error: %s: %v\n", o.URL, o.Err)
				continue
			}
			results = append(results, o.Result)
			if !noHistoryFlag && user != "" {
				if _, err := a.store.Record(ctx, user, o.Result); err != nil {
					appLog.WithError(err).Warn("failed to record scan history")
				}
			}
		}

		if err := formatter.Format(cmd.OutOrStdout(), results); err != nil {
			return err
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d URLs could not be scanned", failed, len(args))
		}
		return nil
	})
}
