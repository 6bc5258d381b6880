package output

import (
	"fmt"
	"io"
	"sort"

	"github.com/buemura/safeurl/pkg/types"
)

// Formatter renders scan results to a writer.
type Formatter interface {
	Format(w io.Writer, results []types.ScanResult) error
}

// GetFormatter returns the appropriate formatter for the given format string.
func GetFormatter(format string) (Formatter, error) {
	switch format {
	case "table":
		return &TableFormatter{}, nil
	case "json":
		return &JSONFormatter{}, nil
	case "markdown":
		return &MarkdownFormatter{}, nil
	case "html":
		return &HTMLFormatter{}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (supported: table, json, markdown, html)", format)
	}
}

// byVerdict returns a copy of results ordered most dangerous first.
// Results with the same verdict keep their input order.
func byVerdict(results []types.ScanResult) []types.ScanResult {
	sorted := make([]types.ScanResult, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		return types.VerdictRank(sorted[i].Verdict) < types.VerdictRank(sorted[j].Verdict)
	})
	return sorted
}

func countVerdicts(results []types.ScanResult) map[types.Verdict]int {
	counts := map[types.Verdict]int{}
	for _, r := range results {
		counts[r.Verdict]++
	}
	return counts
}

func summary(results []types.ScanResult) string {
	counts := countVerdicts(results)
	noun := "URLs"
	if len(results) == 1 {
		noun = "URL"
	}
	return fmt.Sprintf("%d %s (%d malicious, %d suspicious, %d clean)",
		len(results), noun,
		counts[types.VerdictMalicious],
		counts[types.VerdictSuspicious],
		counts[types.VerdictClean],
	)
}
