// Package detector implements the URL pattern detectors. Each detector is a
// pure function of the URL string that yields a 0-100 suspicion sub-score
// for one threat dimension.
package detector

import (
	"errors"
	"net/url"
	"strings"
)

// Detector is the interface every threat dimension implements.
type Detector interface {
	// Name is the factor key the score is reported under.
	Name() string
	Description() string
	// Detect never fails: parse errors degrade to the detector's default.
	Detect(raw string) int
}

var errNotAbsolute = errors.New("url is not absolute")

// parse turns raw into a URL, treating a missing scheme or host as a parse
// failure so every detector sees the same notion of "unparseable".
func parse(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Hostname() == "" {
		return nil, errNotAbsolute
	}
	return u, nil
}

func hostname(u *url.URL) string {
	return strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
}

// matchesDomain reports whether host equals domain or is one of its subdomains.
func matchesDomain(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}
