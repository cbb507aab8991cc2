package azureread

import (
	"bytes"
	"context"
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
	name            = "azure_read"
	analyzePath     = "/vision/v3.2/read/analyze"
	defaultPoll     = time.Second
	defaultMaxPolls = 30
)

func init() {
	ocr.RegisterProvider(name, func(cfg *config.OCRProviderConfig) (port.OCRProvider, error) {
		return NewProvider(cfg), nil
	})
}

// Provider implements port.OCRProvider using the Azure AI Vision Read API,
// which accepts a document, returns an operation URL and must be polled until
// the analysis finishes.
type Provider struct {
	client       *ocr.LazyClient[*apiClient]
	policy       retry.Policy
	pollInterval time.Duration
	maxPolls     int
}

type apiClient struct {
	apiKey   string
	endpoint string
	http     *http.Client
}

// NewProvider creates an Azure Read provider. cfg.Endpoint is the Cognitive
// Services resource endpoint, e.g. https://<name>.cognitiveservices.azure.com.
func NewProvider(cfg *config.OCRProviderConfig) *Provider {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	pollInterval := time.Duration(cfg.PollIntervalMs) * time.Millisecond
	if pollInterval <= 0 {
		pollInterval = defaultPoll
	}
	maxPolls := cfg.MaxPolls
	if maxPolls <= 0 {
		maxPolls = defaultMaxPolls
	}
	return &Provider{
		client: ocr.NewLazyClient(func() (*apiClient, error) {
			if cfg.APIKey == "" || cfg.Endpoint == "" {
				return nil, errors.New("no endpoint or subscription key configured")
			}
			return &apiClient{
				apiKey:   cfg.APIKey,
				endpoint: strings.TrimRight(cfg.Endpoint, "/"),
				http:     &http.Client{Timeout: timeout},
			}, nil
		}),
		policy:       retry.NewPolicy(cfg.MaxRetries, cfg.RequestsPerSecond),
		pollInterval: pollInterval,
		maxPolls:     maxPolls,
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

	operationURL, err := retry.Do(ctx, p.policy, "azure_read.submit", func(ctx context.Context) (string, error) {
		return c.submit(ctx, document)
	})
	if err != nil {
		return domain.FailedEngineResult(name, err)
	}

	result, err := p.poll(ctx, c, operationURL)
	if err != nil {
		return domain.FailedEngineResult(name, err)
	}
	return toEngineResult(result)
}

// poll checks the operation every pollInterval until it finishes or maxPolls
// checks have been spent.
func (p *Provider) poll(ctx context.Context, c *apiClient, operationURL string) (*readOperation, error) {
	for i := 0; i < p.maxPolls; i++ {
		if err := retry.Sleep(ctx, p.pollInterval); err != nil {
			return nil, err
		}
		op, err := retry.Do(ctx, p.policy, "azure_read.poll", func(ctx context.Context) (*readOperation, error) {
			return c.fetch(ctx, operationURL)
		})
		if err != nil {
			return nil, err
		}
		switch op.Status {
		case "succeeded":
			return op, nil
		case "failed":
			return nil, errors.New("azure read operation failed")
		}
	}
	return nil, fmt.Errorf("%w: azure read still running after %d polls", domain.ErrTimeout, p.maxPolls)
}

func (c *apiClient) submit(ctx context.Context, document []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+analyzePath, bytes.NewReader(document))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling azure read API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusAccepted {
		return "", statusError(resp)
	}
	location := resp.Header.Get("Operation-Location")
	if location == "" {
		return "", errors.New("azure read API returned no Operation-Location")
	}
	return location, nil
}

func (c *apiClient) fetch(ctx context.Context, operationURL string) (*readOperation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, operationURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("polling azure read API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var op readOperation
	if err := json.NewDecoder(resp.Body).Decode(&op); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w", err)
	}
	return &op, nil
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 500))
	baseErr := fmt.Errorf("azure read API error (status %d): %s", resp.StatusCode, string(body))
	if resp.StatusCode == http.StatusTooManyRequests {
		return retry.NewRateLimitError(name, baseErr, retry.ParseRetryAfterHeader(resp.Header.Get("Retry-After")))
	}
	return baseErr
}

// readOperation models the Read API operation result.
type readOperation struct {
	Status        string `json:"status"`
	AnalyzeResult struct {
		ReadResults []struct {
			Page  int `json:"page"`
			Lines []struct {
				Text  string `json:"text"`
				Words []struct {
					Text       string  `json:"text"`
					Confidence float64 `json:"confidence"`
				} `json:"words"`
			} `json:"lines"`
		} `json:"readResults"`
	} `json:"analyzeResult"`
}

func toEngineResult(op *readOperation) domain.EngineResult {
	var lines []string
	var sum float64
	var words int
	for _, page := range op.AnalyzeResult.ReadResults {
		for _, line := range page.Lines {
			lines = append(lines, line.Text)
			for _, w := range line.Words {
				sum += w.Confidence
				words++
			}
		}
	}
	text := strings.TrimSpace(strings.Join(lines, "\n"))
	if text == "" {
		return domain.FailedEngineResult(name, errors.New("no text detected"))
	}
	var confidence float64
	if words > 0 {
		confidence = sum / float64(words)
	}
	return domain.EngineResult{
		Engine:        name,
		Text:          text,
		Confidence:    confidence,
		KeyValuePairs: ocr.KeyValueLines(text),
		Success:       true,
	}
}
