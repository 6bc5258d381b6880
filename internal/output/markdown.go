package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/buemura/safeurl/pkg/types"
)

// MarkdownFormatter renders results as Markdown suitable for
// pasting into docs, issues, or pull-request descriptions.
type MarkdownFormatter struct{}

func (f *MarkdownFormatter) Format(w io.Writer, results []types.ScanResult) error {
	if len(results) == 0 {
		fmt.Fprintln(w, "_No results._")
		return nil
	}

	fmt.Fprintln(w, "| Verdict | Score | URL |")
	fmt.Fprintln(w, "|---------|-------|-----|")
	for _, result := range byVerdict(results) {
		fmt.Fprintf(w, "| %s | %d | %s |\n", verdictBadge(result.Verdict), result.Score, escapeMarkdown(result.URL))
	}
	fmt.Fprintf(w, "\n**Summary:** %s\n", summary(results))

	for _, result := range byVerdict(results) {
		fmt.Fprintf(w, "\n## %s\n\n", escapeMarkdown(result.URL))
		for _, reason := range result.Reasons {
			fmt.Fprintf(w, "- %s\n", escapeMarkdown(reason))
		}

		if result.Factors.Allowlist == 1 {
			fmt.Fprintln(w, "\n_Trusted domain, detectors skipped._")
			continue
		}

		fmt.Fprintln(w, "\n| Factor | Score |")
		fmt.Fprintln(w, "|--------|-------|")
		for _, name := range types.DetectorFactors {
			fmt.Fprintf(w, "| %s | %d |\n", name, result.Factors.Value(name))
		}
	}

	return nil
}

// verdictBadge returns a bold, uppercased verdict label for Markdown.
func verdictBadge(v types.Verdict) string {
	return fmt.Sprintf("**%s**", strings.ToUpper(string(v)))
}

// escapeMarkdown escapes pipe characters that would break Markdown tables.
func escapeMarkdown(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
