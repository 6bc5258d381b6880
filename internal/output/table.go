package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/buemura/safeurl/pkg/types"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

// TableFormatter renders results as a colored terminal table.
type TableFormatter struct{}

func (f *TableFormatter) Format(w io.Writer, results []types.ScanResult) error {
	if len(results) == 0 {
		fmt.Fprintln(w, "No results.")
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Verdict", "Score", "URL", "Reasons"})
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetColumnSeparator("│")

	for _, result := range byVerdict(results) {
		table.Append([]string{
			colorVerdict(result.Verdict),
			strconv.Itoa(result.Score),
			result.URL,
			strings.Join(result.Reasons, "; "),
		})
	}

	table.Render()

	fmt.Fprintf(w, "  Summary: %s\n", summary(results))
	return nil
}

func colorVerdict(v types.Verdict) string {
	switch v {
	case types.VerdictMalicious:
		return color.RedString("MALICIOUS")
	case types.VerdictSuspicious:
		return color.YellowString("SUSPICIOUS")
	case types.VerdictClean:
		return color.GreenString("CLEAN")
	default:
		return string(v)
	}
}
