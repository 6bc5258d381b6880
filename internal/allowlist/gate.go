package allowlist

import (
	"net/url"
	"strings"

	"github.com/buemura/safeurl/pkg/types"
)

// Gate answers whether a URL belongs to a trusted domain. A Gate is an
// immutable snapshot and is safe for concurrent use.
type Gate struct {
	entries []types.AllowlistEntry
}

// NewGate creates a gate over the given entries.
func NewGate(entries []types.AllowlistEntry) *Gate {
	return &Gate{entries: append([]types.AllowlistEntry(nil), entries...)}
}

// BuiltinGate creates a gate over the built-in entries only.
func BuiltinGate() *Gate {
	return &Gate{entries: Builtins()}
}

// IsTrusted reports whether the URL's hostname equals, or is a subdomain of,
// any entry. Malformed URLs are never trusted.
func (g *Gate) IsTrusted(raw string) bool {
	_, ok := g.Match(raw)
	return ok
}

// Match returns the entry that trusts raw, if any.
func (g *Gate) Match(raw string) (types.AllowlistEntry, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Hostname() == "" {
		return types.AllowlistEntry{}, false
	}

	host := hostKey(u.Hostname())
	for _, e := range g.entries {
		if host == e.Domain || strings.HasSuffix(host, "."+e.Domain) {
			return e, true
		}
	}
	return types.AllowlistEntry{}, false
}

// Len returns the number of entries in the gate.
func (g *Gate) Len() int {
	return len(g.entries)
}
