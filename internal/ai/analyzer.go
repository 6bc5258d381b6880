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
	"strings"
	"time"

	"github.com/buemura/safeurl/pkg/types"
)

// AnalyzerConfig holds Ollama configuration for the analysis service.
type AnalyzerConfig struct {
	Endpoint string        // Ollama API endpoint (default: http://localhost:11434)
	Model    string        // Model to use (default: llama3.2)
	Timeout  time.Duration // Request timeout
}

// DefaultAnalyzerConfig returns the default Ollama configuration.
func DefaultAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfig{
		Endpoint: "http://localhost:11434",
		Model:    "llama3.2",
		Timeout:  30 * time.Second,
	}
}

// ErrEmptyURL is returned when there is nothing to analyze.
var ErrEmptyURL = errors.New("url must not be empty")

// Analyzer asks a local Ollama model for a URL risk assessment.
type Analyzer struct {
	config     AnalyzerConfig
	httpClient *http.Client
}

// NewAnalyzer creates a new analyzer, filling unset fields with defaults.
func NewAnalyzer(config AnalyzerConfig) *Analyzer {
	def := DefaultAnalyzerConfig()
	if config.Endpoint == "" {
		config.Endpoint = def.Endpoint
	}
	if config.Model == "" {
		config.Model = def.Model
	}
	if config.Timeout == 0 {
		config.Timeout = def.Timeout
	}
	config.Endpoint = strings.TrimRight(config.Endpoint, "/")

	return &Analyzer{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

// Analyze returns the model's assessment of url.
func (a *Analyzer) Analyze(ctx context.Context, url string) (types.AIAssessment, error) {
	if strings.TrimSpace(url) == "" {
		return types.AIAssessment{}, ErrEmptyURL
	}

	response, err := a.generate(ctx, buildPrompt(url))
	if err != nil {
		return types.AIAssessment{}, fmt.Errorf("ollama generate failed: %w", err)
	}

	var parsed modelAssessment
	if err := json.Unmarshal([]byte(response), &parsed); err != nil {
		return types.AIAssessment{}, fmt.Errorf("failed to parse model output as JSON: %w", err)
	}
	return parsed.normalize(), nil
}

// IsAvailable checks if Ollama is reachable.
func (a *Analyzer) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.config.Endpoint+"/api/tags", nil)
	if err != nil {
		return false
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

func buildPrompt(url string) string {
	return fmt.Sprintf(`You are a security analyst. Assess whether opening this URL is risky for a typical user.
Consider phishing, brand impersonation, malware delivery, scams and command-and-control infrastructure.
Judge from the URL text only; do not assume you can visit it.

URL: %s

Respond with this exact JSON format only, no other text:
{"riskScore": 0-100, "reason": "one sentence", "threats": ["short", "labels"]}`, truncate(url, 2048))
}

type modelAssessment struct {
	RiskScore float64  `json:"riskScore"`
	Reason    string   `json:"reason"`
	Threats   []string `json:"threats"`
}

// normalize clamps the score and drops empty threat labels.
func (m modelAssessment) normalize() types.AIAssessment {
	score := 0
	if !math.IsNaN(m.RiskScore) {
		score = int(math.Round(max(0, min(100, m.RiskScore))))
	}

	threats := make([]string, 0, len(m.Threats))
	for _, t := range m.Threats {
		if t = strings.TrimSpace(t); t != "" {
			threats = append(threats, t)
		}
	}
	return types.AIAssessment{
		RiskScore: score,
		Reason:    strings.TrimSpace(m.Reason),
		Threats:   threats,
	}
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	Format string `json:"format,omitempty"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func (a *Analyzer) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(ollamaRequest{
		Model:  a.config.Model,
		Prompt: prompt,
		Stream: false,
		Format: "json",
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.Endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var out ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	return out.Response, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
