package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/buemura/safeurl/internal/auth"
	"github.com/buemura/safeurl/internal/config"
	"github.com/buemura/safeurl/internal/store"
	"github.com/buemura/safeurl/pkg/types"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetFlags restores every flag to its default so one test's flags do not
// leak into the next Execute.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// executeCmd runs the CLI with an isolated HOME and returns stdout. Logs
// and error lines go to a separate buffer.
func executeCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	resetFlags(rootCmd)

	out := new(bytes.Buffer)
	errOut := new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return out.String(), err
}

func sqliteDSN(t *testing.T) string {
	return filepath.Join(t.TempDir(), "safeurl.db")
}

func TestVersionCommand(t *testing.T) {
	output, err := executeCmd(t, "version")
	require.NoError(t, err)
	assert.Contains(t, output, "safeurl version")
}

func TestRootHelpListsCommands(t *testing.T) {
	output, err := executeCmd(t, "--help")
	require.NoError(t, err)
	for _, name := range []string{"scan", "allowlist", "history", "stats", "serve", "token"} {
		assert.Contains(t, output, name)
	}
}

func TestScanMissingURL(t *testing.T) {
	_, err := executeCmd(t, "scan", "--store", "memory")
	assert.Error(t, err)
}

func TestScanJSONOutput(t *testing.T) {
	output, err := executeCmd(t, "scan", "https://example.com/file.exe", "https://www.google.com",
		"--store", "memory", "--no-ai", "-o", "json")
	require.NoError(t, err)

	var results []types.ScanResult
	require.NoError(t, json.Unmarshal([]byte(output), &results))
	require.Len(t, results, 2)

	assert.Equal(t, "https://example.com/file.exe", results[0].URL)
	assert.Equal(t, types.VerdictSuspicious, results[0].Verdict)
	assert.Equal(t, 88, results[0].Score)

	assert.Equal(t, types.VerdictClean, results[1].Verdict)
	assert.Equal(t, 1, results[1].Factors.Allowlist)
}

func TestScanTableOutput(t *testing.T) {
	output, err := executeCmd(t, "scan", "https://bit.ly/abc123", "--store", "memory", "-o", "table")
	require.NoError(t, err)
	assert.Contains(t, output, "CLEAN")
	assert.Contains(t, output, "https://bit.ly/abc123")
	assert.Contains(t, output, "1 URL (0 malicious, 0 suspicious, 1 clean)")
}

func TestScanInvalidURL(t *testing.T) {
	output, err := executeCmd(t, "scan", "not a url", "https://example.com", "--store", "memory", "-o", "json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 URLs could not be scanned")

	var results []types.ScanResult
	require.NoError(t, json.Unmarshal([]byte(output), &results))
	assert.Len(t, results, 1)
}

func TestScanUnknownFormat(t *testing.T) {
	_, err := executeCmd(t, "scan", "https://example.com", "--store", "memory", "-o", "xml")
	assert.Error(t, err)
}

func TestAllowlistLifecycle(t *testing.T) {
	dsn := sqliteDSN(t)

	output, err := executeCmd(t, "allowlist", "add", "https://www.Example.com/path", "--dsn", dsn, "--user", "alice")
	require.NoError(t, err)
	assert.Contains(t, output, "Trusted example.com")

	output, err = executeCmd(t, "allowlist", "list", "--dsn", dsn, "--user", "alice", "-o", "json")
	require.NoError(t, err)
	var entries []types.AllowlistEntry
	require.NoError(t, json.Unmarshal([]byte(output), &entries))
	last := entries[len(entries)-1]
	assert.Equal(t, "example.com", last.Domain)
	assert.True(t, last.UserAdded)

	output, err = executeCmd(t, "scan", "https://cdn.example.com/file.exe", "--dsn", dsn, "--user", "alice", "-o", "json")
	require.NoError(t, err)
	var results []types.ScanResult
	require.NoError(t, json.Unmarshal([]byte(output), &results))
	require.Len(t, results, 1)
	assert.Equal(t, 100, results[0].Score)

	output, err = executeCmd(t, "allowlist", "remove", "example.com", "--dsn", dsn, "--user", "alice")
	require.NoError(t, err)
	assert.Contains(t, output, "Removed example.com")

	_, err = executeCmd(t, "allowlist", "remove", "example.com", "--dsn", dsn, "--user", "alice")
	assert.Error(t, err)
}

func TestAllowlistListTable(t *testing.T) {
	output, err := executeCmd(t, "allowlist", "list", "--store", "memory")
	require.NoError(t, err)
	assert.Contains(t, output, "google.com")
	assert.Contains(t, output, "built-in")
}

func TestAllowlistErrors(t *testing.T) {
	_, err := executeCmd(t, "allowlist", "add", "example.com", "--store", "memory", "--user", "")
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)

	_, err = executeCmd(t, "allowlist", "remove", "google.com", "--store", "memory")
	assert.Error(t, err)

	_, err = executeCmd(t, "allowlist", "add", "com", "--store", "memory")
	assert.Error(t, err)
}

func TestHistoryAndStats(t *testing.T) {
	dsn := sqliteDSN(t)

	_, err := executeCmd(t, "scan", "https://example.com/file.exe", "https://bit.ly/abc123", "--dsn", dsn, "-o", "json")
	require.NoError(t, err)
	_, err = executeCmd(t, "scan", "https://example.org", "--dsn", dsn, "--no-history", "-o", "json")
	require.NoError(t, err)

	output, err := executeCmd(t, "history", "--dsn", dsn, "-o", "json")
	require.NoError(t, err)
	var entries []store.HistoryEntry
	require.NoError(t, json.Unmarshal([]byte(output), &entries))
	assert.Len(t, entries, 2)

	output, err = executeCmd(t, "history", "--dsn", dsn, "--verdict", "suspicious", "-o", "json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(output), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "https://example.com/file.exe", entries[0].URL)

	output, err = executeCmd(t, "history", "--dsn", dsn)
	require.NoError(t, err)
	assert.Contains(t, output, entries[0].ID)

	output, err = executeCmd(t, "stats", "--dsn", dsn, "-o", "json")
	require.NoError(t, err)
	var stats struct {
		Today int               `json:"today"`
		Daily []store.DailyStat `json:"daily"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &stats))
	assert.Equal(t, 2, stats.Today)
	require.Len(t, stats.Daily, 1)
	assert.Equal(t, 1, stats.Daily[0].Suspicious)
	assert.Equal(t, 1, stats.Daily[0].Clean)

	output, err = executeCmd(t, "history", "delete", entries[0].ID, "--dsn", dsn)
	require.NoError(t, err)
	assert.Contains(t, output, "Deleted")

	_, err = executeCmd(t, "history", "delete", entries[0].ID, "--dsn", dsn)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestHistoryInvalidVerdict(t *testing.T) {
	_, err := executeCmd(t, "history", "--store", "memory", "--verdict", "bad")
	assert.Error(t, err)
}

func TestStatsTable(t *testing.T) {
	output, err := executeCmd(t, "stats", "--store", "memory")
	require.NoError(t, err)
	assert.Contains(t, output, "Scans today: 0")
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("SAFEURL_SERVER_JWT_SECRET", "cli-secret")

	output, err := executeCmd(t, "token", "alice")
	require.NoError(t, err)

	v, err := auth.NewVerifier("cli-secret")
	require.NoError(t, err)
	user, err := v.Verify(string(bytes.TrimSpace([]byte(output))))
	require.NoError(t, err)
	assert.Equal(t, "alice", user)
}

func TestTokenRequiresSecret(t *testing.T) {
	t.Setenv("SAFEURL_SERVER_JWT_SECRET", "")
	_, err := executeCmd(t, "token", "alice")
	assert.ErrorIs(t, err, auth.ErrNoSecret)
}

func TestInvalidStoreDriver(t *testing.T) {
	_, err := executeCmd(t, "history", "--store", "mongo")
	assert.Error(t, err)
}

func TestNewAnalyzer_Disabled(t *testing.T) {
	assert.Nil(t, newAnalyzer(context.Background(), config.AnalyzerConfig{}, logrus.New()))
}

func TestNewAnalyzer_ReadinessCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			w.Write([]byte(`{"models": []}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	var logs bytes.Buffer
	log := logrus.New()
	log.SetOutput(&logs)

	a := newAnalyzer(context.Background(), config.AnalyzerConfig{Endpoint: srv.URL, Model: "llama3.2"}, log)
	require.NotNil(t, a)
	assert.NotContains(t, logs.String(), "not reachable")

	down := httptest.NewServer(http.NotFoundHandler())
	endpoint := down.URL
	down.Close()

	a = newAnalyzer(context.Background(), config.AnalyzerConfig{Endpoint: endpoint}, log)
	require.NotNil(t, a)
	assert.Contains(t, logs.String(), "analyzer endpoint is not reachable")
}
