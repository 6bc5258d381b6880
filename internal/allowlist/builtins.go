package allowlist

import "github.com/buemura/safeurl/pkg/types"

// builtinDomains are trusted for every user and cannot be removed.
var builtinDomains = []string{
	"google.com", "youtube.com", "facebook.com", "apple.com", "microsoft.com",
	"amazon.com", "github.com", "wikipedia.org", "twitter.com", "x.com",
	"linkedin.com", "instagram.com", "netflix.com", "paypal.com", "dropbox.com",
	"yahoo.com", "reddit.com", "stackoverflow.com", "whatsapp.com", "zoom.us",
	"icloud.com", "live.com", "office.com", "bing.com", "cloudflare.com",
}

// Builtins returns a fresh copy of the built-in entries.
func Builtins() []types.AllowlistEntry {
	entries := make([]types.AllowlistEntry, len(builtinDomains))
	for i, d := range builtinDomains {
		entries[i] = types.AllowlistEntry{Domain: d}
	}
	return entries
}

// IsBuiltin reports whether domain is one of the built-in entries.
func IsBuiltin(domain string) bool {
	for _, d := range builtinDomains {
		if d == domain {
			return true
		}
	}
	return false
}
