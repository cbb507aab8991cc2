package extraction_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billscan/internal/extraction"
)

func TestDecodeModelOutput_Envelope(t *testing.T) {
	raw := `{"data":{"documentType":"ub04","patientName":"  Jane Doe ","totalCharges":1500.5,
"amountPaid":"$1,200.00","amountDue":"n/a","diagnoses":["E11.9","I10"],"procedures":"99213, 36415",
"medicaidStatus":null,"encounterType":""},"confidence":0.87}`

	data, conf, err := extraction.DecodeModelOutput(raw)

	require.NoError(t, err)
	require.NotNil(t, data)
	assert.InDelta(t, 0.87, conf, 1e-9)
	assert.Equal(t, "ub04", *data.DocumentType)
	assert.Equal(t, "Jane Doe", *data.PatientName)
	assert.Equal(t, 1500.5, *data.TotalCharges)
	assert.Equal(t, 1200.0, *data.AmountPaid)
	assert.Nil(t, data.AmountDue)
	assert.Nil(t, data.MedicaidStatus)
	assert.Nil(t, data.EncounterType)
	assert.Equal(t, []string{"E11.9", "I10"}, data.Diagnoses)
	assert.Equal(t, []string{"99213", "36415"}, data.Procedures)
}

func TestDecodeModelOutput_CodeFence(t *testing.T) {
	raw := "Here is the result:\n```json\n{\"data\":{\"accountNumber\":12345},\"confidence\":\"0.6\"}\n```"

	data, conf, err := extraction.DecodeModelOutput(raw)

	require.NoError(t, err)
	require.NotNil(t, data)
	assert.Equal(t, "12345", *data.AccountNumber)
	assert.InDelta(t, 0.6, conf, 1e-9)
}

func TestDecodeModelOutput_FlatObjectAndDefaultConfidence(t *testing.T) {
	data, conf, err := extraction.DecodeModelOutput(`{"PatientName":"John Roe","diagnoses":[{"code":"N18.6"}]}`)

	require.NoError(t, err)
	require.NotNil(t, data)
	assert.Equal(t, "John Roe", *data.PatientName)
	assert.Equal(t, []string{"N18.6"}, data.Diagnoses)
	assert.Equal(t, extraction.DefaultConfidence, conf)
}

func TestDecodeModelOutput_ClampsConfidence(t *testing.T) {
	_, conf, err := extraction.DecodeModelOutput(`{"data":{"payerName":"Aetna"},"confidence":7}`)

	require.NoError(t, err)
	assert.Equal(t, 1.0, conf)
}

func TestDecodeModelOutput_NoFields(t *testing.T) {
	data, _, err := extraction.DecodeModelOutput(`{"data":{"patientName":null,"diagnoses":[]},"confidence":0.9}`)

	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestDecodeModelOutput_Invalid(t *testing.T) {
	_, _, err := extraction.DecodeModelOutput("I could not read this document.")
	assert.Error(t, err)

	_, _, err = extraction.DecodeModelOutput("")
	assert.Error(t, err)

	_, _, err = extraction.DecodeModelOutput(`{"data":"nope"}`)
	assert.Error(t, err)
}

func TestBuildExtractionPrompt(t *testing.T) {
	prompt := extraction.BuildExtractionPrompt("PATIENT NAME: JANE DOE")

	assert.Contains(t, prompt, `"totalCharges": null`)
	assert.Contains(t, prompt, `"confidence"`)
	assert.True(t, strings.HasSuffix(prompt, "PATIENT NAME: JANE DOE"))
}
