package detector

import "strings"

// ThreatFeed matches the URL against known malware terms, phishing phrases
// and abused top-level domains.
type ThreatFeed struct{}

// NewThreatFeed creates a threat feed detector.
func NewThreatFeed() *ThreatFeed {
	return &ThreatFeed{}
}

func (d *ThreatFeed) Name() string        { return "threatFeed" }
func (d *ThreatFeed) Description() string { return "Known malware, phishing and abused TLD patterns" }

// Detect checks malware terms, then phishing phrases, then the TLD.
// Keyword checks run on the raw string so they still apply to unparseable input.
func (d *ThreatFeed) Detect(raw string) int {
	lower := strings.ToLower(raw)

	if containsAny(lower, malwareKeywords) {
		return 100
	}

	for _, re := range phishingPatterns {
		if re.MatchString(lower) {
			return 80
		}
	}

	u, err := parse(raw)
	if err != nil {
		return 0
	}
	if hasAnySuffix(hostname(u), abusedTLDs) {
		return 75
	}

	return 0
}
