package types

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidURL is returned when input is not a well-formed absolute http(s) URL.
var ErrInvalidURL = errors.New("invalid URL")

// ParseURL validates that raw is an absolute http or https URL with a host.
// The input is not trimmed or rewritten; callers keep the original string.
func ParseURL(raw string) (*url.URL, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: url cannot be empty", ErrInvalidURL)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidURL, raw, err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, fmt.Errorf("%w: %q must use http or https", ErrInvalidURL, raw)
	}

	if u.Hostname() == "" {
		return nil, fmt.Errorf("%w: %q has no hostname", ErrInvalidURL, raw)
	}

	return u, nil
}
