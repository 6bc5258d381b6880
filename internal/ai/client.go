// Package ai talks to the AI risk-analysis service. The Client is the
// best-effort consumer used during scans; the Analyzer is the service side
// backed by a local Ollama model.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/buemura/safeurl/internal/metrics"
	"github.com/buemura/safeurl/pkg/types"
	"github.com/sirupsen/logrus"
)

const maxResponseBytes = 64 << 10

// Config holds AI client configuration. An empty Endpoint disables the client.
type Config struct {
	Endpoint string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:  8 * time.Second,
		CacheTTL: 15 * time.Minute,
	}
}

// Client requests supplementary risk assessments. It never returns an error:
// every failure degrades to a zero assessment.
type Client struct {
	config     Config
	httpClient *http.Client
	cache      *cache
	log        logrus.FieldLogger
	metrics    *metrics.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger failures are reported to.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Client) { c.log = log }
}

// WithMetrics records request outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithHTTPClient replaces the HTTP client. Its timeout is left untouched.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a new AI client.
func NewClient(config Config, opts ...Option) *Client {
	if config.Timeout == 0 {
		config.Timeout = DefaultConfig().Timeout
	}

	c := &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
	if config.CacheTTL > 0 {
		c.cache = newCache(config.CacheTTL, defaultCacheSize)
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		c.log = l
	}
	return c
}

// Enabled reports whether an endpoint is configured.
func (c *Client) Enabled() bool {
	return c.config.Endpoint != ""
}

// None is the assessment used when there is no AI signal.
func None() types.AIAssessment {
	return types.AIAssessment{Threats: []string{}}
}

type assessRequest struct {
	URL string `json:"url"`
}

type assessResponse struct {
	RiskScore *float64 `json:"riskScore"`
	Reason    string   `json:"reason"`
	Threats   []string `json:"threats"`
}

// errRateLimited marks a 429 answer from the service.
var errRateLimited = errors.New("rate limited")

// Assess returns the service's assessment of url, or None on any failure.
func (c *Client) Assess(ctx context.Context, url string) types.AIAssessment {
	if !c.Enabled() {
		return None()
	}

	if a, ok := c.cache.get(url); ok {
		c.metrics.ObserveAI(metrics.AIOutcomeCacheHit)
		return a
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	a, err := c.request(ctx, url)
	if err != nil {
		outcome := metrics.AIOutcomeError
		switch {
		case errors.Is(err, errRateLimited):
			outcome = metrics.AIOutcomeRateLimited
		case errors.Is(err, errInvalidAssessment):
			outcome = metrics.AIOutcomeInvalid
		}
		c.metrics.ObserveAI(outcome)
		c.log.WithError(err).WithField("outcome", outcome).Warn("ai assessment unavailable, continuing without it")
		return None()
	}

	c.metrics.ObserveAI(metrics.AIOutcomeOK)
	c.cache.put(url, a)
	return a
}

func (c *Client) request(ctx context.Context, url string) (types.AIAssessment, error) {
	body, err := json.Marshal(assessRequest{URL: url})
	if err != nil {
		return types.AIAssessment{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return types.AIAssessment{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return types.AIAssessment{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return types.AIAssessment{}, fmt.Errorf("%w: retry after %q", errRateLimited, resp.Header.Get("Retry-After"))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return types.AIAssessment{}, fmt.Errorf("ai service returned status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var out assessResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return types.AIAssessment{}, fmt.Errorf("%w: %v", errInvalidAssessment, err)
	}
	return out.toAssessment()
}

var errInvalidAssessment = errors.New("invalid assessment")

func (r assessResponse) toAssessment() (types.AIAssessment, error) {
	if r.RiskScore == nil {
		return types.AIAssessment{}, fmt.Errorf("%w: missing riskScore", errInvalidAssessment)
	}
	score := *r.RiskScore
	if math.IsNaN(score) || score < 0 || score > 100 {
		return types.AIAssessment{}, fmt.Errorf("%w: riskScore %v out of range", errInvalidAssessment, score)
	}

	threats := r.Threats
	if threats == nil {
		threats = []string{}
	}
	return types.AIAssessment{
		RiskScore: int(math.Round(score)),
		Reason:    r.Reason,
		Threats:   threats,
	}, nil
}
