package types

import "time"

// Verdict is the tri-state classification of a scanned URL.
type Verdict string

const (
	VerdictClean      Verdict = "clean"
	VerdictSuspicious Verdict = "suspicious"
	VerdictMalicious  Verdict = "malicious"
)

// VerdictRank returns a numeric rank for sorting (lower = more dangerous).
func VerdictRank(v Verdict) int {
	switch v {
	case VerdictMalicious:
		return 0
	case VerdictSuspicious:
		return 1
	case VerdictClean:
		return 2
	default:
		return 3
	}
}

// ParseVerdict maps a string to a Verdict, reporting whether it is known.
func ParseVerdict(s string) (Verdict, bool) {
	switch v := Verdict(s); v {
	case VerdictClean, VerdictSuspicious, VerdictMalicious:
		return v, true
	}
	return "", false
}

// Factor names. They double as the JSON keys of Factors.
const (
	FactorAllowlist        = "allowlist"
	FactorThreatFeed       = "threatFeed"
	FactorDomainSimilarity = "domainSimilarity"
	FactorCertificate      = "certificate"
	FactorRedirects        = "redirects"
	FactorEntropy          = "entropy"
	FactorBehavior         = "behavior"
	FactorC2               = "c2"
)

// DetectorFactors lists every factor produced by a detector, in reporting order.
// The allowlist flag is not a detector output and is excluded.
var DetectorFactors = []string{
	FactorThreatFeed,
	FactorDomainSimilarity,
	FactorCertificate,
	FactorRedirects,
	FactorEntropy,
	FactorBehavior,
	FactorC2,
}

// Factors holds the per-detector sub-scores of one scan. Every value is in
// [0,100]; Allowlist is a 0/1 flag rather than a percentage.
type Factors struct {
	Allowlist        int `json:"allowlist"`
	ThreatFeed       int `json:"threatFeed"`
	DomainSimilarity int `json:"domainSimilarity"`
	Certificate      int `json:"certificate"`
	Redirects        int `json:"redirects"`
	Entropy          int `json:"entropy"`
	Behavior         int `json:"behavior"`
	C2               int `json:"c2"`
}

// Value returns the sub-score for the named factor, or 0 for unknown names.
func (f Factors) Value(name string) int {
	if p := f.field(name); p != nil {
		return *p
	}
	return 0
}

// Set stores a sub-score for the named factor, clamped to [0,100].
// Unknown names are ignored.
func (f *Factors) Set(name string, score int) {
	p := f.field(name)
	if p == nil {
		return
	}
	if name == FactorAllowlist {
		if score > 0 {
			score = 1
		} else {
			score = 0
		}
	}
	*p = clamp(score)
}

func (f *Factors) field(name string) *int {
	switch name {
	case FactorAllowlist:
		return &f.Allowlist
	case FactorThreatFeed:
		return &f.ThreatFeed
	case FactorDomainSimilarity:
		return &f.DomainSimilarity
	case FactorCertificate:
		return &f.Certificate
	case FactorRedirects:
		return &f.Redirects
	case FactorEntropy:
		return &f.Entropy
	case FactorBehavior:
		return &f.Behavior
	case FactorC2:
		return &f.C2
	}
	return nil
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// ScanResult is the outcome of one scan. It is built once and not mutated.
type ScanResult struct {
	URL       string    `json:"url"`
	Safe      bool      `json:"safe"`
	Score     int       `json:"score"`
	Verdict   Verdict   `json:"verdict"`
	Timestamp time.Time `json:"timestamp"`
	Reasons   []string  `json:"reasons"`
	Factors   Factors   `json:"factors"`
}

// AIAssessment is the supplementary risk estimate returned by the AI adapter.
// The zero value means "no AI signal".
type AIAssessment struct {
	RiskScore int      `json:"riskScore"`
	Reason    string   `json:"reason"`
	Threats   []string `json:"threats"`
}

// AllowlistEntry is one trusted domain. Built-in entries have a zero AddedAt.
type AllowlistEntry struct {
	Domain    string    `json:"domain"`
	AddedAt   time.Time `json:"addedAt"`
	UserAdded bool      `json:"userAdded"`
}
