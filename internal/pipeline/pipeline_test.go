package pipeline_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"billscan/internal/config"
	"billscan/internal/domain"
	"billscan/internal/pipeline"
	"billscan/internal/port"
	"billscan/mocks"
)

const ub04Text = `UB-04
PATIENT NAME: JANE DOE
ADMIT DATE: 01/02/2024
DISCHARGE DATE: 01/12/2024
TOTAL CHARGES: 1,500.00`

func strPtr(s string) *string   { return &s }
func numPtr(f float64) *float64 { return &f }

func ocrProvider(name string, res domain.EngineResult) *mocks.MockOCRProvider {
	p := new(mocks.MockOCRProvider)
	p.On("Name").Return(name)
	p.On("Extract", mock.Anything, mock.Anything).Return(res)
	return p
}

func model(name string, text string, res domain.ParseResult) *mocks.MockExtractionModel {
	m := new(mocks.MockExtractionModel)
	m.On("Name").Return(name)
	m.On("Extract", mock.Anything, text).Return(res)
	return m
}

func ub04Data(total float64) *domain.ExtractedDocumentData {
	return &domain.ExtractedDocumentData{
		DocumentType:  strPtr("UB-04"),
		PatientName:   strPtr("Jane Doe"),
		AdmissionDate: strPtr("01/02/2024"),
		DischargeDate: strPtr("01/12/2024"),
		EncounterType: strPtr("IP"),
		TotalCharges:  numPtr(total),
		Diagnoses:     []string{"I63.9"},
	}
}

func TestProcessDocument_UB04EndToEnd(t *testing.T) {
	textract := ocrProvider("textract", domain.EngineResult{Engine: "textract", Text: ub04Text, Confidence: 0.9, Success: true})
	vision := ocrProvider("vision", domain.FailedEngineResult("vision", errors.New("vision API error (status 500)")))

	claude := model("claude", ub04Text, domain.ParseResult{Model: "claude", Confidence: 0.9, Data: ub04Data(1500)})
	gemini := model("gemini", ub04Text, domain.ParseResult{Model: "gemini", Confidence: 0.8, Data: ub04Data(1500)})
	openai := model("openai", ub04Text, domain.ParseResult{Model: "openai", Confidence: 0.7, Data: ub04Data(1550)})

	p := pipeline.New([]port.OCRProvider{textract, vision}, []port.ExtractionModel{claude, gemini, openai})

	res, err := p.ProcessDocument(context.Background(), []byte("%PDF-1.4 scanned ub04"), pipeline.Options{})

	require.NoError(t, err)
	assert.NotEmpty(t, res.RunID)

	assert.True(t, res.OCR.Success)
	assert.Equal(t, 0.9, res.OCR.Confidence)
	assert.Equal(t, ub04Text, res.OCR.Text)
	assert.Equal(t, "textract", res.OCR.Engine)

	require.NotNil(t, res.Consensus.Consensus.TotalCharges)
	assert.Equal(t, 1500.0, *res.Consensus.Consensus.TotalCharges)
	assert.InDelta(t, 2.0/3, res.Consensus.FieldAgreement["totalCharges"], 1e-9)
	assert.InDelta(t, 2.0/3*0.8, res.Consensus.FieldConfidence["totalCharges"], 1e-9)
	assert.Len(t, res.Consensus.ModelResults, 3)

	m := res.Mapped
	assert.Equal(t, domain.DocumentTypeUB04, m.DocumentType)
	require.NotNil(t, m.TotalCharges)
	assert.Equal(t, 1500.0, *m.TotalCharges)
	assert.InDelta(t, 2.0/3*0.8, m.FieldConfidence["totalCharges"], 1e-9)
	assert.Equal(t, domain.EncounterInpatient, *m.EncounterType)
	assert.Equal(t, "2024-01-02", *m.AdmissionDate)
	assert.Equal(t, 10, *m.LengthOfStayDays)
	assert.Equal(t, domain.DisabilityHigh, *m.DisabilityLikelihood)

	for _, mm := range []*mocks.MockExtractionModel{claude, gemini, openai} {
		mm.AssertExpectations(t)
	}
}

func TestProcessDocument_NoUsableOCR(t *testing.T) {
	a := ocrProvider("textract", domain.FailedEngineResult("textract", errors.New("throttled")))
	b := ocrProvider("vision", domain.FailedEngineResult("vision", domain.ErrProviderNotConfigured))
	m := new(mocks.MockExtractionModel)
	m.On("Name").Return("claude")

	p := pipeline.New([]port.OCRProvider{a, b}, []port.ExtractionModel{m})

	res, err := p.ProcessDocument(context.Background(), []byte("doc"), pipeline.Options{})

	assert.Nil(t, res)
	assert.ErrorIs(t, err, domain.ErrNoUsableOCRResult)
	assert.Contains(t, err.Error(), "provider not configured")
	m.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything)
}

func TestProcessDocument_NoUsableConsensus(t *testing.T) {
	ocrOK := ocrProvider("vision", domain.EngineResult{Engine: "vision", Text: "garbled", Confidence: 0.4, Success: true})
	a := model("claude", "garbled", domain.ParseResult{Model: "claude", Error: "model extraction failed: boom"})
	b := model("gemini", "garbled", domain.ParseResult{Model: "gemini"})

	p := pipeline.New([]port.OCRProvider{ocrOK}, []port.ExtractionModel{a, b})

	res, err := p.ProcessDocument(context.Background(), []byte("doc"), pipeline.Options{})

	require.NoError(t, err)
	assert.Equal(t, domain.DocumentTypeUnknown, res.Mapped.DocumentType)
	assert.Empty(t, res.Mapped.FieldConfidence)
	assert.Equal(t, 0.0, res.Consensus.AgreementScore)
	assert.Equal(t, 0.0, res.Consensus.Confidence)
	assert.Len(t, res.Consensus.ModelResults, 2)
}

func TestProcessDocument_UnknownNamesBehaveAsNotConfigured(t *testing.T) {
	ocrOK := ocrProvider("vision", domain.EngineResult{Engine: "vision", Text: "TOTAL 10", Confidence: 0.5, Success: true})
	m := model("claude", "TOTAL 10", domain.ParseResult{Model: "claude", Confidence: 0.6, Data: &domain.ExtractedDocumentData{TotalCharges: numPtr(10)}})

	p := pipeline.New([]port.OCRProvider{ocrOK}, []port.ExtractionModel{m})

	res, err := p.ProcessDocument(context.Background(), []byte("doc"), pipeline.Options{
		OCRProviders: []string{"nonexistent", "vision"},
		Models:       []string{"claude", "mystery"},
	})

	require.NoError(t, err)
	require.Len(t, res.OCR.Attempts, 2)
	assert.Equal(t, "nonexistent", res.OCR.Attempts[0].Engine)
	assert.Contains(t, res.OCR.Attempts[0].Error, "provider not configured")
	require.Len(t, res.Consensus.ModelResults, 2)
	assert.Equal(t, "mystery", res.Consensus.ModelResults[1].Model)
	assert.Nil(t, res.Consensus.ModelResults[1].Data)
	assert.Equal(t, 10.0, *res.Mapped.TotalCharges)
}

func TestProcessDocument_OptionsSelectSubset(t *testing.T) {
	a := ocrProvider("textract", domain.EngineResult{Engine: "textract", Text: "A", Confidence: 0.99, Success: true})
	b := ocrProvider("vision", domain.EngineResult{Engine: "vision", Text: "B", Confidence: 0.5, Success: true})
	m := model("claude", "B", domain.ParseResult{Model: "claude"})

	p := pipeline.New([]port.OCRProvider{a, b}, []port.ExtractionModel{m})

	res, err := p.ProcessDocument(context.Background(), []byte("doc"), pipeline.Options{OCRProviders: []string{"vision"}})

	require.NoError(t, err)
	assert.Equal(t, "vision", res.OCR.Engine)
	a.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything)
}

func TestProcessDocument_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ocrP := ocrProvider("vision", domain.FailedEngineResult("vision", context.Canceled))
	p := pipeline.New([]port.OCRProvider{ocrP}, nil)

	res, err := p.ProcessDocument(ctx, []byte("doc"), pipeline.Options{})

	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewFromConfig_UnregisteredProvidersAreNotConfigured(t *testing.T) {
	cfg := &config.Config{
		OCR:    config.OCRConfig{Providers: []string{"textract"}, Textract: config.OCRProviderConfig{Provider: "textract"}},
		Models: config.ModelsConfig{Enabled: []string{"claude"}, Claude: config.ModelProviderConfig{Provider: "claude"}},
		Batch:  config.BatchConfig{DocTimeoutSecs: 30},
	}

	p := pipeline.NewFromConfig(cfg)

	assert.Equal(t, []string{"textract"}, p.Defaults().OCRProviders)
	assert.Equal(t, []string{"claude"}, p.Defaults().Models)

	_, err := p.ProcessDocument(context.Background(), []byte("doc"), pipeline.Options{})
	assert.ErrorIs(t, err, domain.ErrNoUsableOCRResult)
}

type countingProvider struct {
	inFlight int32
	peak     int32
	delay    time.Duration
}

func (c *countingProvider) Name() string { return "counting" }

func (c *countingProvider) Extract(ctx context.Context, document []byte) domain.EngineResult {
	n := atomic.AddInt32(&c.inFlight, 1)
	defer atomic.AddInt32(&c.inFlight, -1)
	for {
		peak := atomic.LoadInt32(&c.peak)
		if n <= peak || atomic.CompareAndSwapInt32(&c.peak, peak, n) {
			break
		}
	}
	select {
	case <-time.After(c.delay):
	case <-ctx.Done():
		return domain.FailedEngineResult("counting", ctx.Err())
	}
	if string(document) == "blank" {
		return domain.FailedEngineResult("counting", errors.New("no text detected"))
	}
	return domain.EngineResult{Engine: "counting", Text: string(document), Confidence: 0.8, Success: true}
}

func TestProcessBatch_BoundsConcurrencyAndKeepsOrder(t *testing.T) {
	prov := &countingProvider{delay: 20 * time.Millisecond}
	p := pipeline.New([]port.OCRProvider{prov}, nil)

	docs := []pipeline.Document{
		{Name: "a.pdf", Bytes: []byte("a")},
		{Name: "b.pdf", Bytes: []byte("blank")},
		{Name: "c.pdf", Bytes: []byte("c")},
		{Name: "d.pdf", Bytes: []byte("d")},
		{Name: "e.pdf", Bytes: []byte("e")},
	}

	results := p.ProcessBatch(context.Background(), docs, pipeline.Options{}, 2)

	require.Len(t, results, 5)
	for i, r := range results {
		assert.Equal(t, docs[i].Name, r.Name)
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&prov.peak), int32(2))

	assert.NoError(t, results[0].Err)
	assert.Equal(t, "a", results[0].Result.OCR.Text)
	assert.ErrorIs(t, results[1].Err, domain.ErrNoUsableOCRResult)
	assert.Nil(t, results[1].Result)
	assert.Equal(t, "e", results[4].Result.OCR.Text)
}

func TestProcessBatch_DocumentTimeout(t *testing.T) {
	prov := &countingProvider{delay: time.Second}
	p := pipeline.New([]port.OCRProvider{prov}, nil).WithDocumentTimeout(20 * time.Millisecond)

	results := p.ProcessBatch(context.Background(), []pipeline.Document{{Name: "slow.pdf", Bytes: []byte("x")}}, pipeline.Options{}, 1)

	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, context.DeadlineExceeded)
}

func TestProcessBatch_CanceledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := pipeline.New([]port.OCRProvider{&countingProvider{}}, nil)
	results := p.ProcessBatch(ctx, []pipeline.Document{{Name: "a"}, {Name: "b"}}, pipeline.Options{}, 1)

	for _, r := range results {
		assert.Error(t, r.Err)
		assert.Nil(t, r.Result)
	}
}
