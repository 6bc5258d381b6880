package detector

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/buemura/safeurl/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type detectCase struct {
	url  string
	want int
}

func runCases(t *testing.T, d Detector, cases []detectCase) {
	t.Helper()
	for _, tc := range cases {
		assert.Equal(t, tc.want, d.Detect(tc.url), "%s(%q)", d.Name(), tc.url)
	}
}

func TestThreatFeed(t *testing.T) {
	runCases(t, NewThreatFeed(), []detectCase{
		{"https://example.com/download/trojan.zip", 100},
		{"https://verify-account.tk/malware", 100},
		{"https://example.com/verify-account?id=1", 80},
		{"https://secure-login.example.com/", 80},
		{"https://example.com/Password_Reset", 80},
		{"https://g00gle.com/login", 80},
		{"https://example.com/sign-in?next=/", 80},
		{"https://login.example.com/", 80},
		{"https://example.com/blogindex", 0},
		{"https://freestuff.tk/", 75},
		{"https://example.com/", 0},
		{"not a url", 0},
		{"not a url but ransomware", 100},
	})
}

func TestDomainSimilarity(t *testing.T) {
	runCases(t, NewDomainSimilarity(), []detectCase{
		{"https://g00gle.com/login", 75},
		{"https://paypa1.com", 75},
		{"https://www.amazom.com", 75},
		{"https://bankofameric.com", 50},
		{"https://google.com", 0},
		{"https://www.github.com/org/repo", 0},
		{"https://example.com", 0},
		{"not a url", 0},
	})
}

func TestDomainSimilarity_ShortSubstringBelowThreshold(t *testing.T) {
	// "paypa" is contained in "paypal" (distance 2) but 1-2/6 is not above 0.8.
	assert.Equal(t, 0, NewDomainSimilarity().Detect("https://paypa.com"))
}

func TestLevenshtein(t *testing.T) {
	assert.Equal(t, 3, levenshtein("kitten", "sitting"))
	assert.Equal(t, 3, levenshtein("", "abc"))
	assert.Equal(t, 0, levenshtein("abc", "abc"))
	assert.Equal(t, 2, levenshtein("g00gle", "google"))
}

func TestRegistrableLabel(t *testing.T) {
	assert.Equal(t, "example", registrableLabel("www.example.com"))
	assert.Equal(t, "login", registrableLabel("login.example.co.uk"))
	assert.Equal(t, "localhost", registrableLabel("localhost"))
}

func TestCertificate(t *testing.T) {
	runCases(t, NewCertificate(), []detectCase{
		{"http://example.com/login", 100},
		{"http://mybank.example.com", 100},
		{"http://example.com/about", 40},
		{"https://example.com/?next=http://evil.com", 40},
		{"https://example.com", 0},
		{"ftp://example.com/login", 0},
		{"not a url", 50},
	})
}

func TestRedirects(t *testing.T) {
	runCases(t, NewRedirects(), []detectCase{
		{"https://bit.ly/abc123", 60},
		{"https://www.bit.ly/abc123", 60},
		{"https://TinyURL.com/xyz", 60},
		{"https://notbit.ly/abc", 0},
		{"https://example.com", 0},
		{"not a url", 0},
	})
}

func TestEntropy(t *testing.T) {
	runCases(t, NewEntropy(), []detectCase{
		{"https://example.com/", 0},
		{"https://example.com", 0},
		{"https://example.com/aaaaaaaaaabbbbbbbbbbcccccccccc1", 90},
		{"https://example.com/?t=" + strings.Repeat("a1", 15), 90},
		{"https://" + strings.Repeat("ab12", 10) + ".com/", 90},
		{"https://x.com/Ab-Cd_Ef-Gh_Ij-Kl_Mn-Op_Qr-St_Uv-Wx_Yz-01_23-45_67-89", 75},
		{"https://a1b2.io/x9-Q7_z3-K8", 40},
		{"not a url", 0},
	})
}

func TestShannonEntropy(t *testing.T) {
	assert.Equal(t, 0.0, shannonEntropy(""))
	assert.Equal(t, 0.0, shannonEntropy("aaaa"))
	assert.InDelta(t, 1.0, shannonEntropy("abab"), 1e-9)
	assert.InDelta(t, 2.0, shannonEntropy("abcd"), 1e-9)
}

func TestBehavior(t *testing.T) {
	var many []string
	for i := 0; i <= 10; i++ {
		many = append(many, fmt.Sprintf("p%d=%s", i, strings.Repeat("v", 20)))
	}

	runCases(t, NewBehavior(), []detectCase{
		{"https://example.com/file.exe", 100},
		{"https://example.com/File.EXE", 100},
		{"https://example.com/get?force-download=1", 90},
		{"https://example.com/claim-prize-now", 85},
		{"https://example.com/casino-bonus", 70},
		{"http://192.168.1.10/index.html", 90},
		{"https://example.com/list?" + strings.Join(many, "&"), 60},
		{"https://example.com/?password=hunter2", 75},
		{"https://example.com/?api_key=abc", 75},
		{"https://example.com/out?target=https%3A%2F%2Fevil.com", 80},
		{"https://example.com/out?next=http://evil.com", 80},
		{"https://example.com/search?q=%3Cscript%3Ealert(1)%3C%2Fscript%3E", 100},
		{"https://example.com/go?u=javascript%3Aalert(1)", 100},
		{"https://example.com/search?q=%ZZbad", 60},
		{"https://example.com/docs/page", 0},
		{"not a url", 50},
	})
}

func TestBehavior_SensitiveNameBeatsRedirectValue(t *testing.T) {
	score := NewBehavior().Detect("https://example.com/?next=https://evil.com&token=abc")
	assert.Equal(t, 75, score)
}

func TestSplitQuery(t *testing.T) {
	params := splitQuery("A=1&&b=%41&c")
	require.Len(t, params, 3)
	assert.Equal(t, "a", params[0].name)
	assert.Equal(t, "A", params[1].value)
	assert.Equal(t, "%41", params[1].rawValue)
	assert.Equal(t, "c", params[2].name)
	assert.Equal(t, "", params[2].value)
}

func TestC2(t *testing.T) {
	runCases(t, NewC2(), []detectCase{
		{"https://example.com:4444/", 80},
		{"https://example.com:50000/", 80},
		{"https://example.com:8080/", 30},
		{"https://example.com:8443/admin", 30},
		{"https://example.com:443/", 0},
		{"https://example.com:10000/", 0},
		{"https://example.com:1024/", 0},
		{"https://example.com/gate.php", 90},
		{"https://example.com/Beacon?id=1", 90},
		{"https://example.com/install.ps1", 100},
		{"https://example.com/run.sh", 100},
		{"https://example.com/", 0},
		{"not a url", 0},
	})
}

func TestDetectors_MalformedFallbacks(t *testing.T) {
	want := map[string]int{
		types.FactorThreatFeed:       0,
		types.FactorDomainSimilarity: 0,
		types.FactorCertificate:      50,
		types.FactorRedirects:        0,
		types.FactorEntropy:          0,
		types.FactorBehavior:         50,
		types.FactorC2:               0,
	}

	for _, d := range Default().All() {
		for _, input := range []string{"not a url", "", "://", "http://", "%%%"} {
			assert.NotPanics(t, func() { d.Detect(input) })
		}
		assert.Equal(t, want[d.Name()], d.Detect("not a url"), d.Name())
	}
}

func TestDetectors_Deterministic(t *testing.T) {
	urls := []string{
		"https://g00gle.com/login",
		"https://bit.ly/abc123",
		"https://example.com/file.exe",
		"http://192.168.1.10:4444/gate.php?token=x",
	}
	for _, d := range Default().All() {
		for _, u := range urls {
			assert.Equal(t, d.Detect(u), d.Detect(u), "%s(%q)", d.Name(), u)
		}
	}
}

func TestDetectors_NamesAreFactors(t *testing.T) {
	all := Default().All()
	require.Len(t, all, len(types.DetectorFactors))

	names := make([]string, len(all))
	for i, d := range all {
		names[i] = d.Name()
		assert.NotEmpty(t, d.Description())
	}
	assert.ElementsMatch(t, types.DetectorFactors, names)
}

func TestRegistry_GetNotFound(t *testing.T) {
	r := NewRegistry()
	_, err := r.Get("nonexistent")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestRunner_Run(t *testing.T) {
	runner := NewRunner(Default(), nil)

	factors := runner.Run(context.Background(), "https://example.com/file.exe")
	assert.Equal(t, types.Factors{Behavior: 100}, factors)
}

type panicDetector struct{}

func (panicDetector) Name() string        { return types.FactorC2 }
func (panicDetector) Description() string { return "always panics" }
func (panicDetector) Detect(string) int   { panic("boom") }

func TestRunner_RecoversFromPanic(t *testing.T) {
	reg := Default()
	reg.Register(panicDetector{})
	runner := NewRunner(reg, nil)

	var factors types.Factors
	require.NotPanics(t, func() {
		factors = runner.Run(context.Background(), "https://example.com:4444/file.exe")
	})
	assert.Equal(t, 0, factors.C2)
	assert.Equal(t, 100, factors.Behavior)
}

func TestRunner_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	factors := NewRunner(Default(), nil).Run(ctx, "https://example.com/file.exe")
	assert.Equal(t, types.Factors{}, factors)
}

func TestRegistry_Names(t *testing.T) {
	assert.Equal(t, []string{"behavior", "c2", "certificate", "domainSimilarity", "entropy", "redirects", "threatFeed"}, Default().Names())
}
