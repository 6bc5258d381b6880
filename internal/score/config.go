// Package score turns detector sub-scores and an AI assessment into a
// danger score, a verdict and the reasons shown to the user.
package score

import "github.com/buemura/safeurl/pkg/types"

// Weights is the relative importance of each factor.
type Weights struct {
	Allowlist        int
	ThreatFeed       int
	DomainSimilarity int
	Certificate      int
	Redirects        int
	Entropy          int
	Behavior         int
	C2               int
}

// Of returns the weight of the named factor, or 0 for unknown names.
func (w Weights) Of(name string) int {
	switch name {
	case types.FactorAllowlist:
		return w.Allowlist
	case types.FactorThreatFeed:
		return w.ThreatFeed
	case types.FactorDomainSimilarity:
		return w.DomainSimilarity
	case types.FactorCertificate:
		return w.Certificate
	case types.FactorRedirects:
		return w.Redirects
	case types.FactorEntropy:
		return w.Entropy
	case types.FactorBehavior:
		return w.Behavior
	case types.FactorC2:
		return w.C2
	}
	return 0
}

// Total sums the detector weights. The allowlist is a gate, not a
// contribution, so its weight is excluded.
func (w Weights) Total() int {
	total := 0
	for _, name := range types.DetectorFactors {
		total += w.Of(name)
	}
	return total
}

// Thresholds are danger-score cut points.
type Thresholds struct {
	Clean     float64
	Malicious float64
}

// Verdict maps a danger score to a verdict. Clean is inclusive at its
// bound and malicious starts at its bound.
func (t Thresholds) Verdict(danger float64) types.Verdict {
	switch {
	case danger <= t.Clean:
		return types.VerdictClean
	case danger >= t.Malicious:
		return types.VerdictMalicious
	default:
		return types.VerdictSuspicious
	}
}

// Config is built once at startup and passed by value into New.
type Config struct {
	Weights    Weights
	Thresholds Thresholds
	// DetectorShare and AIShare blend the two danger sources.
	DetectorShare float64
	AIShare       float64
}

// DefaultConfig returns the production weights and thresholds.
func DefaultConfig() Config {
	return Config{
		Weights: Weights{
			Allowlist:        100,
			ThreatFeed:       30,
			DomainSimilarity: 15,
			Certificate:      10,
			Redirects:        10,
			Entropy:          10,
			Behavior:         25,
			C2:               20,
		},
		Thresholds:    Thresholds{Clean: 10, Malicious: 60},
		DetectorShare: 0.6,
		AIShare:       0.4,
	}
}
