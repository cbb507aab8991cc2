package textract_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awstextract "github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billscan/internal/config"
	"billscan/internal/ocr/textract"
	"billscan/internal/retry"
)

type fakeAPI struct {
	calls   int
	errs    []error
	output  *awstextract.AnalyzeDocumentOutput
	lastDoc []byte
}

func (f *fakeAPI) AnalyzeDocument(_ context.Context, in *awstextract.AnalyzeDocumentInput, _ ...func(*awstextract.Options)) (*awstextract.AnalyzeDocumentOutput, error) {
	f.calls++
	f.lastDoc = in.Document.Bytes
	if len(f.errs) >= f.calls && f.errs[f.calls-1] != nil {
		return nil, f.errs[f.calls-1]
	}
	return f.output, nil
}

func noSleep(_ context.Context, _ time.Duration) error { return nil }

func block(id string, bt types.BlockType, text string, conf float32) types.Block {
	return types.Block{Id: aws.String(id), BlockType: bt, Text: aws.String(text), Confidence: aws.Float32(conf)}
}

func sampleOutput() *awstextract.AnalyzeDocumentOutput {
	key := types.Block{
		Id:          aws.String("k1"),
		BlockType:   types.BlockTypeKeyValueSet,
		EntityTypes: []types.EntityType{types.EntityTypeKey},
		Relationships: []types.Relationship{
			{Type: types.RelationshipTypeValue, Ids: []string{"v1"}},
			{Type: types.RelationshipTypeChild, Ids: []string{"w1", "w2"}},
		},
	}
	value := types.Block{
		Id:            aws.String("v1"),
		BlockType:     types.BlockTypeKeyValueSet,
		EntityTypes:   []types.EntityType{types.EntityTypeValue},
		Relationships: []types.Relationship{{Type: types.RelationshipTypeChild, Ids: []string{"w3"}}},
	}
	return &awstextract.AnalyzeDocumentOutput{
		Blocks: []types.Block{
			block("l1", types.BlockTypeLine, "UB-04 CMS-1450", 90),
			block("l2", types.BlockTypeLine, "Total Charges: 1500.00", 80),
			key,
			value,
			block("w1", types.BlockTypeWord, "Total", 99),
			block("w2", types.BlockTypeWord, "Charges:", 99),
			block("w3", types.BlockTypeWord, "1500.00", 99),
		},
	}
}

func newProvider(api textract.API) *textract.Provider {
	cfg := &config.OCRProviderConfig{Provider: "textract", Region: "us-east-1", MaxRetries: 3}
	return textract.NewProviderWithClient(cfg, api).WithRetryPolicy(retry.Policy{MaxAttempts: 3, Sleep: noSleep})
}

func TestTextractProvider_Extract_Success(t *testing.T) {
	api := &fakeAPI{output: sampleOutput()}
	p := newProvider(api)

	res := p.Extract(context.Background(), []byte("image-bytes"))

	assert.True(t, res.Success)
	assert.Equal(t, "textract", res.Engine)
	assert.Equal(t, "UB-04 CMS-1450\nTotal Charges: 1500.00", res.Text)
	assert.InDelta(t, 0.85, res.Confidence, 1e-6)
	assert.Equal(t, map[string]string{"Total Charges": "1500.00"}, res.KeyValuePairs)
	assert.Equal(t, []byte("image-bytes"), api.lastDoc)
}

func TestTextractProvider_Extract_ThrottledThenSucceeds(t *testing.T) {
	throttled := &smithy.GenericAPIError{Code: "ThrottlingException", Message: "slow down"}
	api := &fakeAPI{errs: []error{throttled, throttled}, output: sampleOutput()}
	p := newProvider(api)

	res := p.Extract(context.Background(), []byte("doc"))

	assert.True(t, res.Success)
	assert.Equal(t, 3, api.calls)
}

func TestTextractProvider_Extract_ThrottledExhausted(t *testing.T) {
	throttled := &smithy.GenericAPIError{Code: "ProvisionedThroughputExceededException"}
	api := &fakeAPI{errs: []error{throttled, throttled, throttled}}
	p := newProvider(api)

	res := p.Extract(context.Background(), []byte("doc"))

	assert.False(t, res.Success)
	assert.Empty(t, res.Text)
	assert.Equal(t, 3, api.calls)
	assert.Contains(t, res.Error, "retries exhausted")
}

func TestTextractProvider_Extract_NonRetryableError(t *testing.T) {
	api := &fakeAPI{errs: []error{&smithy.GenericAPIError{Code: "InvalidParameterException"}}}
	p := newProvider(api)

	res := p.Extract(context.Background(), []byte("doc"))

	assert.False(t, res.Success)
	assert.Equal(t, 1, api.calls)
	assert.Contains(t, res.Error, "textract AnalyzeDocument")
}

func TestTextractProvider_Extract_NoLines(t *testing.T) {
	api := &fakeAPI{output: &awstextract.AnalyzeDocumentOutput{}}
	p := newProvider(api)

	res := p.Extract(context.Background(), []byte("doc"))

	assert.False(t, res.Success)
	assert.Equal(t, 0.0, res.Confidence)
}

func TestTextractProvider_NotConfiguredWithoutRegion(t *testing.T) {
	p := textract.NewProvider(&config.OCRProviderConfig{Provider: "textract"})

	res := p.Extract(context.Background(), []byte("doc"))

	require.False(t, res.Success)
	assert.Equal(t, 0.0, res.Confidence)
	assert.Contains(t, res.Error, "provider not configured")
	assert.Equal(t, "textract", p.Name())
}

func TestTextractProvider_GenericErrorIsNotRateLimit(t *testing.T) {
	api := &fakeAPI{errs: []error{errors.New("connection reset")}}
	p := newProvider(api)

	res := p.Extract(context.Background(), []byte("doc"))

	assert.False(t, res.Success)
	assert.Equal(t, 1, api.calls)
}
