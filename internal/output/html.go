package output

import (
	"fmt"
	"html/template"
	"io"

	"github.com/buemura/safeurl/pkg/types"
)

// HTMLFormatter renders results as a self-contained HTML report with
// verdict badges and expandable factor breakdowns.
type HTMLFormatter struct{}

func (f *HTMLFormatter) Format(w io.Writer, results []types.ScanResult) error {
	return htmlTpl.Execute(w, templateData{Results: byVerdict(results)})
}

type templateData struct {
	Results []types.ScanResult
}

type factorRow struct {
	Name  string
	Score int
}

func factorRows(f types.Factors) []factorRow {
	rows := make([]factorRow, 0, len(types.DetectorFactors))
	for _, name := range types.DetectorFactors {
		rows = append(rows, factorRow{Name: name, Score: f.Value(name)})
	}
	return rows
}

var funcMap = template.FuncMap{
	"verdictClass": func(v types.Verdict) string { return string(v) },
	"factorRows":   factorRows,
	"countVerdict": func(results []types.ScanResult, v string) int {
		return countVerdicts(results)[types.Verdict(v)]
	},
	"trusted": func(f types.Factors) bool { return f.Allowlist == 1 },
}

var htmlTpl = template.Must(template.New("report").Funcs(funcMap).Parse(fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>SafeURL Scan Report</title>
<style>%s</style>
</head>
<body>
<div class="container">
  <h1>SafeURL Scan Report</h1>

  <div class="summary-bar">
    <span class="badge malicious">{{countVerdict .Results "malicious"}} Malicious</span>
    <span class="badge suspicious">{{countVerdict .Results "suspicious"}} Suspicious</span>
    <span class="badge clean">{{countVerdict .Results "clean"}} Clean</span>
    <span class="total">{{len .Results}} URLs scanned</span>
  </div>

  {{if not .Results}}
    <p class="no-results">No results.</p>
  {{end}}

  {{range .Results}}
  <section class="result-section">
    <h2><span class="badge {{verdictClass .Verdict}}">{{.Verdict}}</span> <code>{{.URL}}</code></h2>
    <p class="score">Safety score: <strong>{{.Score}}</strong>/100</p>
    <ul class="reasons">
      {{range .Reasons}}<li>{{.}}</li>{{end}}
    </ul>
    {{if trusted .Factors}}
      <p class="trusted">Trusted domain, detectors skipped.</p>
    {{else}}
    <details>
      <summary>Factors</summary>
      <table>
        <thead><tr><th>Factor</th><th>Score</th></tr></thead>
        <tbody>
          {{range factorRows .Factors}}<tr><td>{{.Name}}</td><td>{{.Score}}</td></tr>{{end}}
        </tbody>
      </table>
    </details>
    {{end}}
  </section>
  {{end}}
</div>
</body>
</html>`, cssStyles)))

const cssStyles = `
*{box-sizing:border-box;margin:0;padding:0}
body{font-family:-apple-system,BlinkMacSystemFont,"Segoe UI",Roboto,Helvetica,Arial,sans-serif;
     line-height:1.6;color:#1a1a2e;background:#f5f5fa;padding:2rem}
.container{max-width:960px;margin:0 auto}
h1{margin-bottom:1rem;font-size:1.8rem}
h2{margin:1.5rem 0 .75rem;font-size:1.1rem;border-bottom:2px solid #e0e0e0;padding-bottom:.3rem;word-break:break-all}
.summary-bar{display:flex;gap:.5rem;flex-wrap:wrap;align-items:center;margin-bottom:1.5rem}
.total{margin-left:.5rem;font-weight:600}
.badge{display:inline-block;padding:2px 10px;border-radius:12px;font-size:.8rem;font-weight:700;color:#fff;text-transform:uppercase}
.badge.malicious{background:#d32f2f}
.badge.suspicious{background:#f9a825;color:#333}
.badge.clean{background:#2e7d32}
.reasons{margin:.5rem 0 .5rem 1.5rem}
table{width:100%;border-collapse:collapse;margin:.5rem 0 1rem}
th,td{text-align:left;padding:.4rem .75rem;border-bottom:1px solid #e0e0e0}
th{background:#eaeaea;font-weight:600}
details{margin-top:.4rem}
summary{cursor:pointer;color:#1565c0;font-size:.85rem}
.trusted{color:#2e7d32;font-style:italic}
.no-results{color:#666;font-style:italic}
.result-section{margin-bottom:2rem}
`
