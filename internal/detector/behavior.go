package detector

import (
	"net"
	"net/url"
	"strings"
)

const (
	maxQueryParams = 10
	maxQueryLength = 200
)

// Behavior looks for what a link would make the browser do: download an
// executable, lure into a scam, leak credentials in the query or bounce
// to another site.
type Behavior struct{}

// NewBehavior creates a behavior detector.
func NewBehavior() *Behavior {
	return &Behavior{}
}

func (d *Behavior) Name() string { return "behavior" }
func (d *Behavior) Description() string {
	return "Dangerous downloads, scams and suspicious parameters"
}

// Detect returns the score of the highest-priority match. Unparseable input
// scores 50: a link the browser may still follow is not assumed safe.
func (d *Behavior) Detect(raw string) int {
	u, err := parse(raw)
	if err != nil {
		return 50
	}

	lower := strings.ToLower(raw)
	switch {
	case hasAnySuffix(strings.ToLower(u.Path), maliciousExtensions):
		return 100
	case containsAny(lower, forcedDownloadKeywords):
		return 90
	case containsAny(lower, scamKeywords):
		return 85
	case containsAny(lower, restrictedContentKeywords):
		return 70
	}

	return inspectStructure(u)
}

type queryParam struct {
	name     string
	rawValue string
	value    string
}

// splitQuery keeps the raw form of each value so encoded payloads can be
// examined separately from their decoded form.
func splitQuery(rawQuery string) []queryParam {
	var params []queryParam
	for _, part := range strings.Split(rawQuery, "&") {
		if part == "" {
			continue
		}
		name, value, _ := strings.Cut(part, "=")

		p := queryParam{name: name, rawValue: value, value: value}
		if dec, err := url.QueryUnescape(name); err == nil {
			p.name = dec
		}
		if dec, err := url.QueryUnescape(value); err == nil {
			p.value = dec
		}
		p.name = strings.ToLower(p.name)
		params = append(params, p)
	}
	return params
}

func inspectStructure(u *url.URL) int {
	if net.ParseIP(u.Hostname()) != nil {
		return 90
	}

	params := splitQuery(u.RawQuery)
	if len(params) > maxQueryParams && len(u.RawQuery) > maxQueryLength {
		return 60
	}

	for _, p := range params {
		if containsAny(p.name, sensitiveParams) {
			return 75
		}
	}

	for _, p := range params {
		v := strings.ToLower(p.value)
		if strings.Contains(v, "http://") || strings.Contains(v, "https://") {
			return 80
		}
	}

	decodeFailed := false
	for _, p := range params {
		if !strings.Contains(p.rawValue, "%") {
			continue
		}
		dec, err := url.QueryUnescape(p.rawValue)
		if err != nil {
			decodeFailed = true
			continue
		}
		if containsAny(strings.ToLower(dec), scriptPayloads) {
			return 100
		}
	}
	if decodeFailed {
		return 60
	}

	return 0
}
