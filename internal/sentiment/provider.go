// Package sentiment integrates the external text-generation collaborator
// that scores market sentiment. The provider is best-effort: the Service
// wrapper always returns a payload, substituting a deterministic,
// clearly-labeled fallback when the provider is unreachable or
// misconfigured, so callers never special-case absence.
package sentiment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/drolelabs/drole/internal/domain"
)

// HTTPProvider calls a remote analysis endpoint with a market snapshot.
type HTTPProvider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPProvider creates a provider for the given analysis service root.
// An empty baseURL yields a provider that always fails, which the Service
// converts into fallback payloads.
func NewHTTPProvider(baseURL, apiKey string) *HTTPProvider {
	return &HTTPProvider{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// snapshotRequest is the market snapshot sent to the analysis service.
type snapshotRequest struct {
	Question    string  `json:"question"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	YesPrice    float64 `json:"yesPrice"`
	NoPrice     float64 `json:"noPrice"`
}

// Sentiment posts the market snapshot and decodes the structured payload.
func (p *HTTPProvider) Sentiment(ctx context.Context, m domain.Market) (domain.Sentiment, error) {
	var out domain.Sentiment
	if err := p.post(ctx, "/v1/sentiment", m, &out); err != nil {
		return domain.Sentiment{}, fmt.Errorf("sentiment: %w", err)
	}
	if out.Score < 0 || out.Score > 100 {
		return domain.Sentiment{}, fmt.Errorf("sentiment: score %d out of range: %w", out.Score, domain.ErrProviderUnavailable)
	}
	return out, nil
}

// Analyze posts the market snapshot and returns the long-form text summary.
func (p *HTTPProvider) Analyze(ctx context.Context, m domain.Market) (string, error) {
	var out struct {
		Text string `json:"text"`
	}
	if err := p.post(ctx, "/v1/analyze", m, &out); err != nil {
		return "", fmt.Errorf("sentiment: analyze: %w", err)
	}
	return out.Text, nil
}

func (p *HTTPProvider) post(ctx context.Context, path string, m domain.Market, out any) error {
	if p.baseURL == "" {
		return domain.ErrProviderUnavailable
	}

	body, err := json.Marshal(snapshotRequest{
		Question:    m.Question,
		Description: m.Description,
		Category:    string(m.Category),
		YesPrice:    m.Outcomes[0].Price,
		NoPrice:     m.Outcomes[1].Price,
	})
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %w", resp.StatusCode, domain.ErrProviderUnavailable)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.SentimentProvider = (*HTTPProvider)(nil)
