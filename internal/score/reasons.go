package score

import (
	"fmt"
	"sort"

	"github.com/buemura/safeurl/pkg/types"
)

const (
	ReasonSafe      = "This URL appears to be safe"
	ReasonTrusted   = "Domain is on your trusted allowlist"
	ReasonNoThreats = "No threats detected"

	aiReasonMinRisk = 30
	maxAIThreats    = 2
)

// signal describes when a factor's contribution is worth telling the user
// about and what to say.
type signal struct {
	minContribution float64
	message         func(score int) string
}

var signals = map[string]signal{
	types.FactorThreatFeed: {10, func(s int) string {
		switch {
		case s >= 100:
			return "URL contains known malware terms"
		case s >= 80:
			return "URL matches known credential phishing patterns"
		default:
			return "Domain uses a top-level domain frequently abused for phishing"
		}
	}},
	types.FactorDomainSimilarity: {5, func(int) string {
		return "Domain closely resembles a well-known brand (possible typosquatting)"
	}},
	types.FactorCertificate: {3, func(s int) string {
		if s >= 100 {
			return "Sensitive page is served over unencrypted HTTP"
		}
		return "Connection is not fully secured (HTTP or mixed content)"
	}},
	types.FactorRedirects: {3, func(int) string {
		return "URL shortener hides the final destination"
	}},
	types.FactorEntropy: {3, func(int) string {
		return "URL contains random-looking or obfuscated text"
	}},
	types.FactorBehavior: {5, func(s int) string {
		switch {
		case s >= 90:
			return "Link triggers a dangerous download or script payload"
		case s >= 75:
			return "Link shows scam or credential-harvesting behavior"
		default:
			return "Link leads to unwanted content or has suspicious parameters"
		}
	}},
	types.FactorC2: {5, func(int) string {
		return "URL matches command-and-control patterns (unusual port or path)"
	}},
}

func (a *Aggregator) reasons(f types.Factors, ai types.AIAssessment, b Breakdown) []string {
	if b.Verdict == types.VerdictClean {
		reasons := []string{ReasonSafe}
		if ai.Reason != "" {
			reasons = append(reasons, ai.Reason)
		}
		return reasons
	}

	var reasons []string
	if ai.RiskScore > aiReasonMinRisk && ai.Reason != "" {
		reasons = append(reasons, "AI analysis: "+ai.Reason)
	}
	for i, threat := range ai.Threats {
		if i == maxAIThreats {
			break
		}
		reasons = append(reasons, "AI flagged: "+threat)
	}

	ranked := rankFactors(b.Contributions)
	for _, name := range ranked {
		sig, ok := signals[name]
		if ok && b.Contributions[name] > sig.minContribution {
			reasons = append(reasons, sig.message(f.Value(name)))
		}
	}

	if len(reasons) > 0 {
		return reasons
	}

	// Nothing crossed its threshold: cite the strongest factor by name.
	if top := ranked[0]; b.Contributions[top] > 0 {
		return []string{fmt.Sprintf("Highest risk factor: %s (%d/100)", top, f.Value(top))}
	}
	if ai.RiskScore > 0 {
		return []string{fmt.Sprintf("AI analysis reported elevated risk (%d/100)", ai.RiskScore)}
	}
	return []string{ReasonNoThreats}
}

// rankFactors orders detector factors by contribution, highest first.
// Ties keep reporting order.
func rankFactors(contrib map[string]float64) []string {
	names := append([]string(nil), types.DetectorFactors...)
	sort.SliceStable(names, func(i, j int) bool {
		return contrib[names[i]] > contrib[names[j]]
	})
	return names
}
