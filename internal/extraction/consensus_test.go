package extraction_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billscan/internal/domain"
	"billscan/internal/extraction"
)

func strPtr(s string) *string { return &s }
func numPtr(f float64) *float64 { return &f }

func result(model string, conf float64, data *domain.ExtractedDocumentData) domain.ParseResult {
	return domain.ParseResult{Model: model, Confidence: conf, Data: data}
}

func TestBuildConsensus_NumericMedian(t *testing.T) {
	c := extraction.BuildConsensus([]domain.ParseResult{
		result("a", 0.9, &domain.ExtractedDocumentData{TotalCharges: numPtr(100)}),
		result("b", 0.9, &domain.ExtractedDocumentData{TotalCharges: numPtr(9999)}),
		result("c", 0.9, &domain.ExtractedDocumentData{TotalCharges: numPtr(105)}),
	})

	require.NotNil(t, c.Consensus.TotalCharges)
	assert.Equal(t, 105.0, *c.Consensus.TotalCharges)
	assert.InDelta(t, 1.0/3, c.FieldAgreement["totalCharges"], 1e-9)
}

func TestBuildConsensus_NumericEvenCountTakesLowerMiddle(t *testing.T) {
	c := extraction.BuildConsensus([]domain.ParseResult{
		result("a", 0.5, &domain.ExtractedDocumentData{AmountPaid: numPtr(300)}),
		result("b", 0.5, &domain.ExtractedDocumentData{AmountPaid: numPtr(200)}),
	})

	assert.Equal(t, 200.0, *c.Consensus.AmountPaid)
	assert.InDelta(t, 0.5, c.FieldAgreement["amountPaid"], 1e-9)
}

func TestBuildConsensus_TwoOfThreeAgree(t *testing.T) {
	c := extraction.BuildConsensus([]domain.ParseResult{
		result("claude", 0.9, &domain.ExtractedDocumentData{TotalCharges: numPtr(1500)}),
		result("gemini", 0.8, &domain.ExtractedDocumentData{TotalCharges: numPtr(1500)}),
		result("openai", 0.7, &domain.ExtractedDocumentData{TotalCharges: numPtr(1550)}),
	})

	assert.Equal(t, 1500.0, *c.Consensus.TotalCharges)
	assert.InDelta(t, 2.0/3, c.FieldAgreement["totalCharges"], 1e-9)
	assert.InDelta(t, 2.0/3*0.8, c.FieldConfidence["totalCharges"], 1e-9)
	assert.InDelta(t, 0.8, c.Confidence, 1e-9)
	assert.InDelta(t, 2.0/3, c.AgreementScore, 1e-9)
}

func TestBuildConsensus_NumericWithinTolerance(t *testing.T) {
	c := extraction.BuildConsensus([]domain.ParseResult{
		result("a", 1, &domain.ExtractedDocumentData{TotalCharges: numPtr(1000)}),
		result("b", 1, &domain.ExtractedDocumentData{TotalCharges: numPtr(1005)}),
	})

	assert.Equal(t, 1000.0, *c.Consensus.TotalCharges)
	assert.Equal(t, 1.0, c.FieldAgreement["totalCharges"])
}

func TestBuildConsensus_ListUnion(t *testing.T) {
	c := extraction.BuildConsensus([]domain.ParseResult{
		result("a", 1, &domain.ExtractedDocumentData{Diagnoses: []string{"E11.9"}}),
		result("b", 1, &domain.ExtractedDocumentData{Diagnoses: []string{"e11.9", "I10"}}),
	})

	assert.Equal(t, []string{"E11.9", "I10"}, c.Consensus.Diagnoses)
	assert.InDelta(t, 0.5, c.FieldAgreement["diagnoses"], 1e-9)
}

func TestBuildConsensus_ListAgreementCountsMatchingSets(t *testing.T) {
	c := extraction.BuildConsensus([]domain.ParseResult{
		result("a", 0.8, &domain.ExtractedDocumentData{Procedures: []string{"99213", "36415"}}),
		result("b", 0.8, &domain.ExtractedDocumentData{Procedures: []string{"36415", "99213"}}),
		result("c", 0.8, &domain.ExtractedDocumentData{Procedures: []string{"99213"}}),
	})

	assert.Equal(t, []string{"99213", "36415"}, c.Consensus.Procedures)
	assert.InDelta(t, 2.0/3.0, c.FieldAgreement["procedures"], 1e-9)
	assert.InDelta(t, 2.0/3.0*0.8, c.FieldConfidence["procedures"], 1e-9)
}

func TestBuildConsensus_TextPlurality(t *testing.T) {
	c := extraction.BuildConsensus([]domain.ParseResult{
		result("a", 0.6, &domain.ExtractedDocumentData{PatientName: strPtr("Jane  Doe")}),
		result("b", 0.9, &domain.ExtractedDocumentData{PatientName: strPtr("Janet Doe")}),
		result("c", 0.5, &domain.ExtractedDocumentData{PatientName: strPtr("JANE DOE")}),
	})

	assert.Equal(t, "Jane  Doe", *c.Consensus.PatientName)
	assert.InDelta(t, 2.0/3, c.FieldAgreement["patientName"], 1e-9)
}

func TestBuildConsensus_TextTieBreaks(t *testing.T) {
	c := extraction.BuildConsensus([]domain.ParseResult{
		result("a", 0.6, &domain.ExtractedDocumentData{PayerName: strPtr("Aetna")}),
		result("b", 0.9, &domain.ExtractedDocumentData{PayerName: strPtr("Cigna")}),
	})
	assert.Equal(t, "Cigna", *c.Consensus.PayerName)

	c = extraction.BuildConsensus([]domain.ParseResult{
		result("a", 0.7, &domain.ExtractedDocumentData{PayerName: strPtr("Aetna")}),
		result("b", 0.7, &domain.ExtractedDocumentData{PayerName: strPtr("Cigna")}),
	})
	assert.Equal(t, "Aetna", *c.Consensus.PayerName)
}

func TestBuildConsensus_FailedModelsKeptButDoNotVote(t *testing.T) {
	results := []domain.ParseResult{
		{Model: "a", Error: "model extraction failed: boom"},
		result("b", 0.8, &domain.ExtractedDocumentData{PayerName: strPtr("Aetna")}),
		{Model: "c"},
	}

	c := extraction.BuildConsensus(results)

	assert.Len(t, c.ModelResults, 3)
	assert.InDelta(t, 0.8, c.Confidence, 1e-9)
	assert.Equal(t, 1.0, c.AgreementScore)
	assert.InDelta(t, 0.8, c.FieldConfidence["payerName"], 1e-9)
}

func TestBuildConsensus_NothingUsable(t *testing.T) {
	c := extraction.BuildConsensus([]domain.ParseResult{
		{Model: "a", Error: "boom"},
		{Model: "b", Data: &domain.ExtractedDocumentData{}},
	})

	assert.Equal(t, 0.0, c.AgreementScore)
	assert.Equal(t, 0.0, c.Confidence)
	assert.Equal(t, 0, domain.CountPresent(&c.Consensus))
	assert.Empty(t, c.FieldConfidence)
	assert.Len(t, c.ModelResults, 2)
}

func TestBuildConsensus_Empty(t *testing.T) {
	c := extraction.BuildConsensus(nil)

	assert.Equal(t, 0.0, c.AgreementScore)
	assert.Empty(t, c.ModelResults)
}

func TestBuildConsensus_BoundsHold(t *testing.T) {
	c := extraction.BuildConsensus([]domain.ParseResult{
		result("a", 1.4, &domain.ExtractedDocumentData{PayerName: strPtr("Aetna"), Diagnoses: []string{"I10"}}),
		result("b", -2, &domain.ExtractedDocumentData{PayerName: strPtr("Humana"), TotalCharges: numPtr(10)}),
	})

	assert.GreaterOrEqual(t, c.AgreementScore, 0.0)
	assert.LessOrEqual(t, c.AgreementScore, 1.0)
	assert.GreaterOrEqual(t, c.Confidence, 0.0)
	assert.LessOrEqual(t, c.Confidence, 1.0)
	for name, v := range c.FieldConfidence {
		assert.GreaterOrEqual(t, v, 0.0, name)
		assert.LessOrEqual(t, v, 1.0, name)
	}
}
