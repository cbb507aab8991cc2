package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"billscan/internal/config"
	"billscan/internal/domain"
	"billscan/internal/ocr"
	"billscan/internal/port"
	"billscan/internal/retry"
)

const (
	name   = "vision"
	apiURL = "https://vision.googleapis.com/v1/images:annotate"
)

func init() {
	ocr.RegisterProvider(name, func(cfg *config.OCRProviderConfig) (port.OCRProvider, error) {
		return NewProvider(cfg), nil
	})
}

// Provider implements port.OCRProvider using Google Cloud Vision
// DOCUMENT_TEXT_DETECTION.
type Provider struct {
	client    *ocr.LazyClient[*apiClient]
	languages []string
	policy    retry.Policy
}

type apiClient struct {
	apiKey   string
	endpoint string
	http     *http.Client
}

// NewProvider creates a Cloud Vision provider from a provider config.
func NewProvider(cfg *config.OCRProviderConfig) *Provider {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = apiURL
	}
	return NewProviderWithEndpoint(cfg, endpoint)
}

// NewProviderWithEndpoint creates a provider pointing at a custom API endpoint (for testing).
func NewProviderWithEndpoint(cfg *config.OCRProviderConfig, endpoint string) *Provider {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Provider{
		client: ocr.NewLazyClient(func() (*apiClient, error) {
			if cfg.APIKey == "" {
				return nil, errors.New("no API key configured")
			}
			return &apiClient{apiKey: cfg.APIKey, endpoint: endpoint, http: &http.Client{Timeout: timeout}}, nil
		}),
		languages: cfg.Languages,
		policy:    retry.NewPolicy(cfg.MaxRetries, cfg.RequestsPerSecond),
	}
}

// WithRetryPolicy replaces the provider's retry policy.
func (p *Provider) WithRetryPolicy(policy retry.Policy) *Provider {
	p.policy = policy
	return p
}

func (p *Provider) Name() string { return name }

func (p *Provider) Extract(ctx context.Context, document []byte) domain.EngineResult {
	c, err := p.client.Get()
	if err != nil {
		return ocr.NotConfigured(name, err)
	}

	body, err := json.Marshal(p.buildRequest(document))
	if err != nil {
		return domain.FailedEngineResult(name, fmt.Errorf("marshaling request: %w", err))
	}

	resp, err := retry.Do(ctx, p.policy, "vision.annotate", func(ctx context.Context) (*annotateResponse, error) {
		return c.annotate(ctx, body)
	})
	if err != nil {
		return domain.FailedEngineResult(name, err)
	}

	return toEngineResult(resp)
}

func (p *Provider) buildRequest(document []byte) map[string]interface{} {
	req := map[string]interface{}{
		"image": map[string]interface{}{
			"content": base64.StdEncoding.EncodeToString(document),
		},
		"features": []map[string]interface{}{
			{"type": "DOCUMENT_TEXT_DETECTION"},
		},
	}
	if len(p.languages) > 0 {
		req["imageContext"] = map[string]interface{}{"languageHints": p.languages}
	}
	return map[string]interface{}{"requests": []interface{}{req}}
}

func (c *apiClient) annotate(ctx context.Context, body []byte) (*annotateResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling vision API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		baseErr := fmt.Errorf("vision API error (status %d): %s", resp.StatusCode, truncate(string(respBody), 500))
		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, retry.NewRateLimitError(name, baseErr, retry.ParseRetryAfterHeader(resp.Header.Get("Retry-After")))
		}
		return nil, baseErr
	}

	var out annotateResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w", err)
	}
	return &out, nil
}

// annotateResponse models the images:annotate response.
type annotateResponse struct {
	Responses []struct {
		FullTextAnnotation *struct {
			Text  string `json:"text"`
			Pages []struct {
				Confidence float64 `json:"confidence"`
			} `json:"pages"`
		} `json:"fullTextAnnotation"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	} `json:"responses"`
}

func toEngineResult(resp *annotateResponse) domain.EngineResult {
	if len(resp.Responses) == 0 {
		return domain.FailedEngineResult(name, errors.New("empty response from API"))
	}
	r := resp.Responses[0]
	if r.Error != nil {
		return domain.FailedEngineResult(name, fmt.Errorf("vision annotate error %d: %s", r.Error.Code, r.Error.Message))
	}
	if r.FullTextAnnotation == nil || strings.TrimSpace(r.FullTextAnnotation.Text) == "" {
		return domain.FailedEngineResult(name, errors.New("no text detected"))
	}

	var sum float64
	for _, page := range r.FullTextAnnotation.Pages {
		sum += page.Confidence
	}
	var confidence float64
	if n := len(r.FullTextAnnotation.Pages); n > 0 {
		confidence = sum / float64(n)
	}

	text := strings.TrimSpace(r.FullTextAnnotation.Text)
	return domain.EngineResult{
		Engine:        name,
		Text:          text,
		Confidence:    confidence,
		KeyValuePairs: ocr.KeyValueLines(text),
		Success:       true,
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
