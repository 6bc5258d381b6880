package detector

import "math"

// Entropy flags long random-looking runs and high character entropy, typical
// of generated phishing hosts and encoded payloads.
type Entropy struct{}

// NewEntropy creates an entropy detector.
func NewEntropy() *Entropy {
	return &Entropy{}
}

func (d *Entropy) Name() string        { return "entropy" }
func (d *Entropy) Description() string { return "Random-looking or obfuscated URL text" }

func (d *Entropy) Detect(raw string) int {
	u, err := parse(raw)
	if err != nil {
		return 0
	}

	host := hostname(u)
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	query := ""
	if u.RawQuery != "" {
		query = "?" + u.RawQuery
	}

	if longPathRun.MatchString(path+query) || longHostRun.MatchString(host) {
		return 90
	}

	h := shannonEntropy(host + path + query)
	switch {
	case h > 4.5:
		return 75
	case h > 4.0:
		return 40
	}
	return 0
}

// shannonEntropy returns the base-2 Shannon entropy of s per character.
func shannonEntropy(s string) float64 {
	if s == "" {
		return 0
	}

	counts := make(map[rune]int)
	total := 0
	for _, r := range s {
		counts[r]++
		total++
	}

	var h float64
	for _, c := range counts {
		p := float64(c) / float64(total)
		h -= p * math.Log2(p)
	}
	return h
}
