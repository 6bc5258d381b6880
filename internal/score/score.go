package score

import (
	"math"
	"time"

	"github.com/buemura/safeurl/pkg/types"
)

// Breakdown is the intermediate result of scoring one URL.
type Breakdown struct {
	// Contributions holds w*s/100 per detector factor.
	Contributions  map[string]float64
	DetectorDanger float64
	Danger         float64
	Verdict        types.Verdict
}

// Aggregator scores scans with a fixed Config.
type Aggregator struct {
	cfg   Config
	total float64
}

// New creates an aggregator. cfg is copied.
func New(cfg Config) *Aggregator {
	return &Aggregator{cfg: cfg, total: float64(cfg.Weights.Total())}
}

// Config returns the aggregator's configuration.
func (a *Aggregator) Config() Config {
	return a.cfg
}

// Evaluate computes the danger score and verdict.
func (a *Aggregator) Evaluate(f types.Factors, ai types.AIAssessment) Breakdown {
	b := Breakdown{Contributions: make(map[string]float64, len(types.DetectorFactors))}

	var sum float64
	for _, name := range types.DetectorFactors {
		c := float64(a.cfg.Weights.Of(name)) * float64(f.Value(name)) / 100
		b.Contributions[name] = c
		sum += c
	}

	if a.total > 0 {
		b.DetectorDanger = math.Min(100, 100*sum/a.total)
	}
	risk := math.Max(0, math.Min(100, float64(ai.RiskScore)))
	// Rounded to drop float noise so exact threshold values compare exactly.
	b.Danger = math.Round((b.DetectorDanger*a.cfg.DetectorShare+risk*a.cfg.AIShare)*1e6) / 1e6
	b.Verdict = a.cfg.Thresholds.Verdict(b.Danger)
	return b
}

// Aggregate scores a URL that was not trusted by the allowlist.
func (a *Aggregator) Aggregate(url string, f types.Factors, ai types.AIAssessment, at time.Time) types.ScanResult {
	b := a.Evaluate(f, ai)
	return types.ScanResult{
		URL:       url,
		Safe:      b.Verdict == types.VerdictClean,
		Score:     safety(b.Danger),
		Verdict:   b.Verdict,
		Timestamp: at,
		Reasons:   a.reasons(f, ai, b),
		Factors:   f,
	}
}

// Trusted builds the result for an allowlisted URL without scoring it.
func (a *Aggregator) Trusted(url string, at time.Time) types.ScanResult {
	return types.ScanResult{
		URL:       url,
		Safe:      true,
		Score:     100,
		Verdict:   types.VerdictClean,
		Timestamp: at,
		Reasons:   []string{ReasonTrusted},
		Factors:   types.Factors{Allowlist: 1},
	}
}

func safety(danger float64) int {
	s := int(math.Round(100 - danger))
	return max(0, min(100, s))
}
