// Package export writes mapped assessments as CSV or XLSX.
package export

import (
	"strconv"
	"strings"

	"billscan/internal/domain"
	"billscan/internal/pipeline"
)

// Status values of a Record.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Record is one exported document.
type Record struct {
	Document       string
	Status         string
	Error          string
	RunID          string
	OCREngine      string
	OCRConfidence  float64
	AgreementScore float64
	Mapped         domain.MappedAssessmentFields
}

// FromBatch converts batch results into records, in order.
func FromBatch(results []pipeline.BatchResult) []Record {
	records := make([]Record, 0, len(results))
	for _, r := range results {
		rec := Record{Document: r.Name, Status: StatusCompleted}
		if r.Err != nil || r.Result == nil {
			rec.Status = StatusFailed
			if r.Err != nil {
				rec.Error = r.Err.Error()
			}
			records = append(records, rec)
			continue
		}
		rec.RunID = r.Result.RunID
		rec.OCREngine = r.Result.OCR.Engine
		rec.OCRConfidence = r.Result.OCR.Confidence
		rec.AgreementScore = r.Result.Consensus.AgreementScore
		rec.Mapped = r.Result.Mapped
		records = append(records, rec)
	}
	return records
}

// columns defines the header row shared by CSV and XLSX output.
var columns = []string{
	"Document Name",
	"Status",
	"Error",
	"Run ID",
	"OCR Engine",
	"OCR Confidence",
	"Agreement Score",
	"Document Type",
	"Patient Name",
	"Patient Date of Birth",
	"Medical Record Number",
	"Account Number",
	"Facility Name",
	"Facility Type",
	"Provider NPI",
	"Encounter Type",
	"Admission Date",
	"Discharge Date",
	"Service Date",
	"Length of Stay (Days)",
	"Insurance Status",
	"Payer Name",
	"Member ID",
	"Medicaid Status",
	"Medicare Status",
	"Total Charges",
	"Amount Paid",
	"Amount Due",
	"Diagnosis Codes",
	"Procedure Codes",
	"Disability Likelihood",
}

// Columns returns a copy of the header row.
func Columns() []string {
	return append([]string(nil), columns...)
}

// recordToRow converts a record to a row of len(columns) strings. Failed
// documents only fill the metadata columns; absent fields are empty.
func recordToRow(rec *Record) []string {
	row := make([]string, len(columns))

	row[0] = rec.Document
	row[1] = rec.Status
	row[2] = rec.Error
	if rec.Status != StatusCompleted {
		return row
	}

	m := &rec.Mapped
	row[3] = rec.RunID
	row[4] = rec.OCREngine
	row[5] = formatScore(rec.OCRConfidence)
	row[6] = formatScore(rec.AgreementScore)
	row[7] = string(m.DocumentType)
	row[8] = str(m.PatientName)
	row[9] = str(m.PatientDateOfBirth)
	row[10] = str(m.MedicalRecordNumber)
	row[11] = str(m.AccountNumber)
	row[12] = str(m.FacilityName)
	row[13] = enum(m.FacilityType)
	row[14] = str(m.ProviderNPI)
	row[15] = enum(m.EncounterType)
	row[16] = str(m.AdmissionDate)
	row[17] = str(m.DischargeDate)
	row[18] = str(m.ServiceDate)
	if m.LengthOfStayDays != nil {
		row[19] = strconv.Itoa(*m.LengthOfStayDays)
	}
	row[20] = enum(m.InsuranceStatus)
	row[21] = str(m.PayerName)
	row[22] = str(m.MemberID)
	row[23] = enum(m.MedicaidStatus)
	row[24] = enum(m.MedicareStatus)
	row[25] = money(m.TotalCharges)
	row[26] = money(m.AmountPaid)
	row[27] = money(m.AmountDue)
	row[28] = strings.Join(m.DiagnosisCodes, "; ")
	row[29] = strings.Join(m.ProcedureCodes, "; ")
	row[30] = enum(m.DisabilityLikelihood)

	return row
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func enum[T ~string](p *T) string {
	if p == nil {
		return ""
	}
	return string(*p)
}

func money(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', 2, 64)
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
