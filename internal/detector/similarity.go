package detector

import (
	"math"
	"strings"
)

const similarityThreshold = 0.8

// DomainSimilarity flags hostnames that are a small edit away from a
// well-known brand (typosquatting).
type DomainSimilarity struct{}

// NewDomainSimilarity creates a typosquatting detector.
func NewDomainSimilarity() *DomainSimilarity {
	return &DomainSimilarity{}
}

func (d *DomainSimilarity) Name() string        { return "domainSimilarity" }
func (d *DomainSimilarity) Description() string { return "Typosquatting of well-known brands" }

func (d *DomainSimilarity) Detect(raw string) int {
	u, err := parse(raw)
	if err != nil {
		return 0
	}

	label := registrableLabel(hostname(u))
	if label == "" {
		return 0
	}

	minDistance := -1
	for _, brand := range brands {
		if label == brand {
			continue
		}

		distance := brandDistance(label, brand)
		longest := max(len(label), len(brand))
		similarity := 1 - float64(distance)/float64(longest)
		if similarity <= similarityThreshold {
			continue
		}

		if minDistance < 0 || distance < minDistance {
			minDistance = distance
		}
	}

	if minDistance < 0 {
		return 0
	}
	return int(math.Min(100, math.Round(150/float64(minDistance+1))))
}

// registrableLabel drops a leading "www." and keeps the first dot segment.
func registrableLabel(host string) string {
	host = strings.TrimPrefix(host, "www.")
	label, _, _ := strings.Cut(host, ".")
	return label
}

// brandDistance is the edit distance between label and brand with two
// adjustments: a shorter label contained in the brand counts as 2, and a
// label that only differs from the brand by homoglyphs counts as 1.
func brandDistance(label, brand string) int {
	if len(label) < len(brand) && strings.Contains(brand, label) {
		return 2
	}

	distance := levenshtein(label, brand)
	if folded := foldHomoglyphs(label); folded != label {
		if levenshtein(folded, brand) == 0 {
			return 1
		}
	}
	return distance
}

func foldHomoglyphs(s string) string {
	return strings.Map(func(r rune) rune {
		if repl, ok := homoglyphs[r]; ok {
			return repl
		}
		return r
	}, s)
}

// levenshtein computes the edit distance between a and b over runes.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
