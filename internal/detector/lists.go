package detector

import "regexp"

// malwareKeywords are explicit malware family terms.
var malwareKeywords = []string{
	"malware", "virus", "trojan", "keylogger",
	"rootkit", "spyware", "ransomware", "botnet",
}

// phishingPatterns match credential-phishing phrases with common separators.
var phishingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`verify[-_.]?(your[-_.]?)?account`),
	regexp.MustCompile(`confirm[-_.]?(your[-_.]?)?identity`),
	regexp.MustCompile(`password[-_.]?reset`),
	regexp.MustCompile(`account[-_.]?(suspended|locked|limited|disabled)`),
	regexp.MustCompile(`update[-_.]?(billing|payment)[-_.]?(info|details)?`),
	regexp.MustCompile(`secure[-_.]?(login|signin|sign-in)`),
	regexp.MustCompile(`unlock[-_.]?(your[-_.]?)?account`),
	regexp.MustCompile(`validate[-_.]?(login|credentials)`),
	regexp.MustCompile(`signin[-_.]?verify`),
	regexp.MustCompile(`(^|[/._-])(log-?in|sign-?in)([/._?-]|$)`),
}

// abusedTLDs are top-level domains with a high share of abusive registrations.
var abusedTLDs = []string{
	".tk", ".ml", ".ga", ".cf", ".gq", ".xyz", ".top", ".work", ".click", ".link",
	".zip", ".mov", ".loan", ".country", ".kim", ".men", ".review", ".buzz", ".rest", ".cam",
}

// brands are well-known names that typosquatters imitate.
var brands = []string{
	"google", "facebook", "amazon", "apple", "microsoft", "paypal", "netflix",
	"instagram", "twitter", "linkedin", "youtube", "yahoo", "ebay", "dropbox",
	"github", "spotify", "adobe", "outlook", "office", "icloud", "chase",
	"wellsfargo", "bankofamerica", "citibank", "coinbase", "binance",
	"whatsapp", "telegram", "steam", "walmart",
}

// homoglyphs folds characters commonly substituted for letters.
var homoglyphs = map[rune]rune{
	'0': 'o', '1': 'l', '3': 'e', '4': 'a', '5': 's',
	'7': 't', '8': 'b', '@': 'a', '$': 's',
}

// sensitivePageKeywords mark pages that must never be served over plain HTTP.
var sensitivePageKeywords = regexp.MustCompile(`login|payment|bank|signin`)

// shorteners are URL-shortening services that hide the destination.
var shorteners = []string{
	"bit.ly", "tinyurl.com", "goo.gl", "t.co", "ow.ly", "is.gd", "buff.ly", "rebrand.ly",
	"cutt.ly", "shorturl.at", "tiny.cc", "bl.ink", "rb.gy", "s.id", "v.gd", "t.ly",
}

var (
	longPathRun = regexp.MustCompile(`[a-z0-9]{30,}`)
	longHostRun = regexp.MustCompile(`[a-z0-9]{40,}`)
)

// maliciousExtensions are executable or script payload suffixes.
var maliciousExtensions = []string{
	".exe", ".scr", ".bat", ".pif", ".vbs", ".cmd", ".msi", ".jar",
}

var forcedDownloadKeywords = []string{
	"force-download", "forcedownload", "force_download", "auto-download",
	"autodownload", "download-now", "downloadnow", "attachment=1", "attachment=true",
}

var scamKeywords = []string{
	"free-money", "freemoney", "claim-prize", "claim-reward", "you-won", "youwon",
	"lottery-winner", "free-iphone", "free-gift", "crypto-giveaway", "double-your",
	"guaranteed-profit", "urgent-action",
}

// restrictedContentKeywords cover NSFW, gambling and piracy content.
var restrictedContentKeywords = []string{
	"porn", "xxx", "adult-content", "casino", "betting", "gambling", "poker",
	"torrent", "warez", "keygen", "nulled", "pirated", "free-movies",
}

// sensitiveParams are query parameter name fragments that carry secrets.
var sensitiveParams = []string{
	"password", "pwd", "pass", "token", "auth", "key", "secret", "sessionid",
}

var scriptPayloads = []string{"<script", "javascript:"}

// c2PathFragments are path fragments used by common command-and-control kits.
var c2PathFragments = []string{
	"/gate.php", "/beacon", "/c2", "/panel/gate", "/bot.php",
	"/cmd.php", "/tasks.php", "/admin/get.php", "/connect.php",
}

var scriptExtensions = []string{".ps1", ".sh", ".dat"}
