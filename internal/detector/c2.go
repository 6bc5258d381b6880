package detector

import (
	"strconv"
	"strings"
)

// C2 applies command-and-control heuristics to the port and path. It never
// contacts the host.
type C2 struct{}

// NewC2 creates a command-and-control detector.
func NewC2() *C2 {
	return &C2{}
}

func (d *C2) Name() string        { return "c2" }
func (d *C2) Description() string { return "Command-and-control port and path heuristics" }

func (d *C2) Detect(raw string) int {
	u, err := parse(raw)
	if err != nil {
		return 0
	}

	if port, err := strconv.Atoi(u.Port()); err == nil && isUnusualPort(port) {
		// Common proxy ports get a reduced score.
		if port == 8080 || port == 8443 {
			return 30
		}
		return 80
	}

	path := strings.ToLower(u.Path)
	if containsAny(path, c2PathFragments) {
		return 90
	}
	if hasAnySuffix(path, scriptExtensions) {
		return 100
	}
	return 0
}

func isUnusualPort(port int) bool {
	return (port > 1024 && port < 10000) || port > 40000
}
