package textract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
	"github.com/aws/smithy-go"

	"billscan/internal/config"
	"billscan/internal/domain"
	"billscan/internal/ocr"
	"billscan/internal/port"
	"billscan/internal/retry"
)

const name = "textract"

// throttling error codes Textract returns instead of HTTP 429.
var throttlingCodes = map[string]bool{
	"ThrottlingException":                    true,
	"ProvisionedThroughputExceededException": true,
	"LimitExceededException":                 true,
}

func init() {
	ocr.RegisterProvider(name, func(cfg *config.OCRProviderConfig) (port.OCRProvider, error) {
		return NewProvider(cfg), nil
	})
}

// API is the subset of the Textract client the provider uses.
type API interface {
	AnalyzeDocument(ctx context.Context, params *textract.AnalyzeDocumentInput, optFns ...func(*textract.Options)) (*textract.AnalyzeDocumentOutput, error)
}

// Provider implements port.OCRProvider using AWS Textract AnalyzeDocument with
// form extraction.
type Provider struct {
	client *ocr.LazyClient[API]
	policy retry.Policy
}

// NewProvider creates a Textract provider. The AWS client is built on first use.
func NewProvider(cfg *config.OCRProviderConfig) *Provider {
	return &Provider{
		client: ocr.NewLazyClient(func() (API, error) { return newClient(cfg) }),
		policy: retry.NewPolicy(cfg.MaxRetries, cfg.RequestsPerSecond),
	}
}

// NewProviderWithClient creates a provider around an existing client (for testing).
func NewProviderWithClient(cfg *config.OCRProviderConfig, api API) *Provider {
	p := NewProvider(cfg)
	p.client = ocr.NewLazyClient(func() (API, error) { return api, nil })
	return p
}

// WithRetryPolicy replaces the provider's retry policy.
func (p *Provider) WithRetryPolicy(policy retry.Policy) *Provider {
	p.policy = policy
	return p
}

func (p *Provider) Name() string { return name }

func (p *Provider) Extract(ctx context.Context, document []byte) domain.EngineResult {
	api, err := p.client.Get()
	if err != nil {
		return ocr.NotConfigured(name, err)
	}

	out, err := retry.Do(ctx, p.policy, "textract.AnalyzeDocument", func(ctx context.Context) (*textract.AnalyzeDocumentOutput, error) {
		out, err := api.AnalyzeDocument(ctx, &textract.AnalyzeDocumentInput{
			Document:     &types.Document{Bytes: document},
			FeatureTypes: []types.FeatureType{types.FeatureTypeForms},
		})
		if err != nil {
			return nil, classify(err)
		}
		return out, nil
	})
	if err != nil {
		return domain.FailedEngineResult(name, err)
	}

	text, confidence := linesOf(out.Blocks)
	return domain.EngineResult{
		Engine:        name,
		Text:          text,
		Confidence:    confidence,
		KeyValuePairs: keyValuesOf(out.Blocks),
		Success:       text != "",
	}
}

func newClient(cfg *config.OCRProviderConfig) (API, error) {
	if cfg.Region == "" {
		return nil, errors.New("no AWS region configured")
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	if _, err := awsCfg.Credentials.Retrieve(ctx); err != nil {
		return nil, fmt.Errorf("resolving aws credentials: %w", err)
	}

	var clientOpts []func(*textract.Options)
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *textract.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	return textract.NewFromConfig(awsCfg, clientOpts...), nil
}

func classify(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && throttlingCodes[apiErr.ErrorCode()] {
		return retry.NewRateLimitError(name, err, 1)
	}
	return fmt.Errorf("textract AnalyzeDocument: %w", err)
}

// linesOf joins LINE blocks in reading order and averages their confidence.
func linesOf(blocks []types.Block) (string, float64) {
	var lines []string
	var sum float64
	for _, b := range blocks {
		if b.BlockType != types.BlockTypeLine {
			continue
		}
		lines = append(lines, aws.ToString(b.Text))
		sum += float64(aws.ToFloat32(b.Confidence)) / 100
	}
	if len(lines) == 0 {
		return "", 0
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), sum / float64(len(lines))
}

// keyValuesOf resolves KEY_VALUE_SET blocks into label/value pairs.
func keyValuesOf(blocks []types.Block) map[string]string {
	byID := make(map[string]types.Block, len(blocks))
	for _, b := range blocks {
		byID[aws.ToString(b.Id)] = b
	}

	out := map[string]string{}
	for _, b := range blocks {
		if b.BlockType != types.BlockTypeKeyValueSet || !hasEntity(b, types.EntityTypeKey) {
			continue
		}
		key := childText(b, byID)
		if key == "" {
			continue
		}
		var values []string
		for _, rel := range b.Relationships {
			if rel.Type != types.RelationshipTypeValue {
				continue
			}
			for _, id := range rel.Ids {
				if v, ok := byID[id]; ok {
					if t := childText(v, byID); t != "" {
						values = append(values, t)
					}
				}
			}
		}
		if len(values) > 0 {
			out[strings.TrimSuffix(key, ":")] = strings.Join(values, " ")
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func hasEntity(b types.Block, e types.EntityType) bool {
	for _, et := range b.EntityTypes {
		if et == e {
			return true
		}
	}
	return false
}

func childText(b types.Block, byID map[string]types.Block) string {
	var words []string
	for _, rel := range b.Relationships {
		if rel.Type != types.RelationshipTypeChild {
			continue
		}
		for _, id := range rel.Ids {
			child, ok := byID[id]
			if !ok {
				continue
			}
			switch child.BlockType {
			case types.BlockTypeWord:
				words = append(words, aws.ToString(child.Text))
			case types.BlockTypeSelectionElement:
				if child.SelectionStatus == types.SelectionStatusSelected {
					words = append(words, "X")
				}
			}
		}
	}
	return strings.TrimSpace(strings.Join(words, " "))
}
