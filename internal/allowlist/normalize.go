package allowlist

import (
	"fmt"
	"net"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/text/unicode/norm"
)

var lookup = idna.New(idna.MapForLookup(), idna.RemoveLeadingDots(true))

// NormalizeDomain reduces user input such as "Example.COM" or
// "https://www.example.com/path" to a lowercase ASCII hostname.
// A leading "www." is dropped. Bare public suffixes like "com" or "co.uk"
// are rejected since they would trust a whole registry.
func NormalizeDomain(input string) (string, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidDomain)
	}

	if _, rest, ok := strings.Cut(s, "://"); ok {
		s = rest
	}
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	if i := strings.LastIndex(s, "@"); i >= 0 {
		s = s[i+1:]
	}
	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	}
	s = strings.TrimSuffix(s, ".")

	ascii, err := lookup.ToASCII(norm.NFC.String(s))
	if err != nil || ascii == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidDomain, input)
	}
	ascii = strings.TrimPrefix(strings.ToLower(ascii), "www.")

	if ps, _ := publicsuffix.PublicSuffix(ascii); ps == ascii {
		return "", fmt.Errorf("%w: %q is a public suffix", ErrInvalidDomain, input)
	}
	return ascii, nil
}

// hostKey converts a URL hostname to the form entries are stored in.
// Hosts that fail IDNA conversion are compared as-is.
func hostKey(host string) string {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if ascii, err := lookup.ToASCII(host); err == nil && ascii != "" {
		return strings.ToLower(ascii)
	}
	return host
}
