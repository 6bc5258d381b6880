package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/buemura/safeurl/internal/store"
	"github.com/buemura/safeurl/pkg/types"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var (
	limitFlag   int
	verdictFlag string
	daysFlag    int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent scans",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete one history entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryDelete,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show scan counts per day",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	historyCmd.Flags().IntVar(&limitFlag, "limit", store.DefaultHistoryLimit, "maximum entries to show")
	historyCmd.Flags().StringVar(&verdictFlag, "verdict", "", "only show clean, suspicious or malicious scans")
	historyCmd.AddCommand(historyDeleteCmd)
	statsCmd.Flags().IntVar(&daysFlag, "days", 7, "number of days to include")
	rootCmd.AddCommand(historyCmd, statsCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	q := store.HistoryQuery{Limit: limitFlag}
	if verdictFlag != "" {
		v, ok := types.ParseVerdict(verdictFlag)
		if !ok {
			return fmt.Errorf("invalid --verdict %q (want clean, suspicious or malicious)", verdictFlag)
		}
		q.Verdict = v
	}

	return withApp(cmd.Context(), func(a *app) error {
		entries, err := a.store.History(cmd.Context(), appConfig.User, q)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if outputFlag == "json" {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		}
		if len(entries) == 0 {
			fmt.Fprintln(w, "No scans recorded.")
			return nil
		}

		table := tablewriter.NewWriter(w)
		table.SetHeader([]string{"ID", "Scanned", "Verdict", "Score", "URL"})
		table.SetAutoWrapText(false)
		table.SetBorder(false)
		table.SetColumnSeparator("│")
		for _, e := range entries {
			table.Append([]string{
				e.ID,
				e.Timestamp.Local().Format("2006-01-02 15:04"),
				string(e.Verdict),
				strconv.Itoa(e.Score),
				e.URL,
			})
		}
		table.Render()
		return nil
	})
}

func runHistoryDelete(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(a *app) error {
		if err := a.store.DeleteHistory(cmd.Context(), appConfig.User, args[0]); err != nil {
			return fmt.Errorf("deleting %s: %w", args[0], err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
		return nil
	})
}

func runStats(cmd *cobra.Command, args []string) error {
	if daysFlag < 1 {
		return fmt.Errorf("--days must be at least 1")
	}
	since := time.Now().UTC().AddDate(0, 0, -(daysFlag - 1))

	return withApp(cmd.Context(), func(a *app) error {
		daily, err := a.store.DailyStats(cmd.Context(), appConfig.User, since)
		if err != nil {
			return err
		}
		today, err := a.store.CountToday(cmd.Context(), appConfig.User)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if outputFlag == "json" {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{"today": today, "daily": daily})
		}

		table := tablewriter.NewWriter(w)
		table.SetHeader([]string{"Day", "Total", "Clean", "Suspicious", "Malicious"})
		table.SetBorder(false)
		table.SetColumnSeparator("│")
		var total store.DailyStat
		for _, d := range daily {
			table.Append([]string{d.Day, strconv.Itoa(d.Total), strconv.Itoa(d.Clean), strconv.Itoa(d.Suspicious), strconv.Itoa(d.Malicious)})
			total.Total += d.Total
			total.Clean += d.Clean
			total.Suspicious += d.Suspicious
			total.Malicious += d.Malicious
		}
		table.SetFooter([]string{"Total", strconv.Itoa(total.Total), strconv.Itoa(total.Clean), strconv.Itoa(total.Suspicious), strconv.Itoa(total.Malicious)})
		table.Render()

		fmt.Fprintf(w, "  Scans today: %d\n", today)
		return nil
	})
}
