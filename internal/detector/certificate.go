package detector

import "strings"

// Certificate is a string-only transport heuristic. It does NOT perform a TLS
// handshake or inspect certificates; it only looks at the scheme and at
// mixed-content markers in the URL text.
type Certificate struct{}

// NewCertificate creates the transport heuristic detector.
func NewCertificate() *Certificate {
	return &Certificate{}
}

func (d *Certificate) Name() string        { return "certificate" }
func (d *Certificate) Description() string { return "Insecure transport heuristics (no TLS check)" }

// Detect treats an unparseable URL as suspicious (50) rather than safe.
func (d *Certificate) Detect(raw string) int {
	u, err := parse(raw)
	if err != nil {
		return 50
	}

	lower := strings.ToLower(raw)
	switch strings.ToLower(u.Scheme) {
	case "http":
		if sensitivePageKeywords.MatchString(lower) {
			return 100
		}
		return 40
	case "https":
		_, rest, _ := strings.Cut(lower, "://")
		if strings.Contains(rest, "http://") {
			return 40
		}
	}
	return 0
}
