// Package mapper turns a consensus extraction into the assessment schema:
// closed enumerations, canonical dates and codes, and fields derived by rule.
package mapper

import (
	"math"
	"regexp"
	"strings"
	"time"

	"billscan/internal/domain"
	"billscan/internal/normalize"
)

// Length-of-stay thresholds, in days, for disability likelihood.
const (
	HighLikelihoodStayDays   = 7
	MediumLikelihoodStayDays = 14
)

// disablingDiagnosisPrefixes are ICD-10-CM categories that commonly support a
// disability determination: serious mental illness, neurological and
// neuromuscular disease, stroke, spinal cord and brain injury, end-stage
// renal disease, HIV, amputation and malignancy.
var disablingDiagnosisPrefixes = []string{
	"F20", "F21", "F22", "F23", "F24", "F25", "F28", "F29", "F31", "F33",
	"G12.21", "G20", "G35", "G80", "G82",
	"I63", "I69",
	"S06", "S14.1", "S24.1", "S34.1",
	"N18.5", "N18.6", "Z99.2",
	"B20",
	"Z89",
	"C",
}

var (
	// Medicare Beneficiary Identifier, e.g. 1EG4-TE5-MK73.
	mbiPattern = regexp.MustCompile(`^[1-9][AC-HJKMNP-RT-Y][AC-HJKMNP-RT-Y0-9][0-9][AC-HJKMNP-RT-Y][AC-HJKMNP-RT-Y0-9][0-9][AC-HJKMNP-RT-Y]{2}[0-9]{2}$`)
	// Legacy Health Insurance Claim Number: SSN plus beneficiary suffix.
	hicnPattern    = regexp.MustCompile(`^[0-9]{9}[A-Z][0-9A-Z]?$`)
	medicaidPayers = regexp.MustCompile(`(?i)\b(medicaid|medi-cal|masshealth|tenncare|medical assistance|badgercare|soonercare|husky health|apple health)\b`)
	medicarePayers = regexp.MustCompile(`(?i)\bmedicare\b`)
	memberIDNoise  = strings.NewReplacer("-", "", " ", "")
)

// confidences resolves field confidence from a consensus: the tracked
// per-field value when present, the overall confidence otherwise.
type confidences struct {
	perField map[string]float64
	overall  float64
}

func (c confidences) of(field string) float64 {
	if v, ok := c.perField[field]; ok {
		return domain.ClampConfidence(v)
	}
	return domain.ClampConfidence(c.overall)
}

// MapToAssessment maps a consensus into MappedAssessmentFields. It has no side
// effects; the only input besides c is today's date, which bounds dates of
// birth and two-digit years. Values that cannot be normalized are absent, and a field has
// a FieldConfidence entry only when it is present.
func MapToAssessment(c domain.ConsensusResult) domain.MappedAssessmentFields {
	src := c.Consensus
	conf := confidences{perField: c.FieldConfidence, overall: c.Confidence}
	out := domain.MappedAssessmentFields{
		DocumentType:    domain.DocumentTypeUnknown,
		FieldConfidence: map[string]float64{},
	}
	set := func(field string, confidence float64) {
		out.FieldConfidence[field] = domain.ClampConfidence(confidence)
	}

	if dt, ok := lookupEnum(documentTypes, src.DocumentType); ok {
		out.DocumentType = dt
		set("documentType", conf.of("documentType"))
	}

	for _, tf := range []struct {
		name string
		raw  *string
		dst  **string
	}{
		{"patientName", src.PatientName, &out.PatientName},
		{"medicalRecordNumber", src.MedicalRecordNumber, &out.MedicalRecordNumber},
		{"accountNumber", src.AccountNumber, &out.AccountNumber},
		{"facilityName", src.FacilityName, &out.FacilityName},
		{"payerName", src.PayerName, &out.PayerName},
		{"memberId", src.MemberID, &out.MemberID},
	} {
		if v, ok := cleanText(tf.raw); ok {
			*tf.dst = &v
			set(tf.name, conf.of(tf.name))
		}
	}

	if src.ProviderNPI != nil {
		if npi, ok := normalize.NPI(*src.ProviderNPI); ok {
			out.ProviderNPI = &npi
			set("providerNpi", conf.of("providerNpi"))
		}
	}

	today := time.Now().Format(normalize.DateLayout)
	for _, df := range []struct {
		name     string
		raw      *string
		dst      **string
		pastOnly bool
	}{
		{"patientDateOfBirth", src.PatientDateOfBirth, &out.PatientDateOfBirth, true},
		{"admissionDate", src.AdmissionDate, &out.AdmissionDate, false},
		{"dischargeDate", src.DischargeDate, &out.DischargeDate, false},
		{"serviceDate", src.ServiceDate, &out.ServiceDate, false},
	} {
		if df.raw == nil {
			continue
		}
		d, ok := normalize.ParseDate(*df.raw)
		if !ok || (df.pastOnly && d > today) {
			continue
		}
		*df.dst = &d
		set(df.name, conf.of(df.name))
	}

	for _, af := range []struct {
		name string
		raw  *float64
		dst  **float64
	}{
		{"totalCharges", src.TotalCharges, &out.TotalCharges},
		{"amountPaid", src.AmountPaid, &out.AmountPaid},
		{"amountDue", src.AmountDue, &out.AmountDue},
	} {
		if af.raw == nil || math.IsNaN(*af.raw) || math.IsInf(*af.raw, 0) {
			continue
		}
		v := *af.raw
		*af.dst = &v
		set(af.name, conf.of(af.name))
	}

	if v, ok := lookupEnum(encounterTypes, src.EncounterType); ok {
		out.EncounterType = &v
		set("encounterType", conf.of("encounterType"))
	}
	if v, ok := lookupEnum(facilityTypes, src.FacilityType); ok {
		out.FacilityType = &v
		set("facilityType", conf.of("facilityType"))
	}
	if v, ok := lookupEnum(insuranceStatuses, src.InsuranceStatus); ok {
		out.InsuranceStatus = &v
		set("insuranceStatus", conf.of("insuranceStatus"))
	}

	if codes := filterCodes(src.Diagnoses, normalize.DiagnosisCode); len(codes) > 0 {
		out.DiagnosisCodes = codes
		set("diagnosisCodes", conf.of("diagnoses"))
	}
	if codes := filterCodes(src.Procedures, normalize.ProcedureCode); len(codes) > 0 {
		out.ProcedureCodes = codes
		set("procedureCodes", conf.of("procedures"))
	}

	mapProgramStatus(&out, src, conf)
	deriveLengthOfStay(&out)
	deriveDisabilityLikelihood(&out)

	return out
}

func cleanText(raw *string) (string, bool) {
	if raw == nil {
		return "", false
	}
	v := strings.Join(strings.Fields(*raw), " ")
	return v, v != ""
}

// filterCodes normalizes every entry with parse, dropping invalid entries and
// duplicates while keeping first-seen order.
func filterCodes(raw []string, parse func(string) (string, bool)) []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range raw {
		code, ok := parse(r)
		if !ok || seen[code] {
			continue
		}
		seen[code] = true
		out = append(out, code)
	}
	return out
}

// mapProgramStatus maps the reported Medicaid/Medicare status. When a status
// is absent, enrollment is inferred from the payer name or, for Medicare,
// from a beneficiary identifier in memberId.
func mapProgramStatus(out *domain.MappedAssessmentFields, src domain.ExtractedDocumentData, conf confidences) {
	if v, ok := lookupEnum(programStatuses, src.MedicaidStatus); ok {
		out.MedicaidStatus = &v
		out.FieldConfidence["medicaidStatus"] = conf.of("medicaidStatus")
	} else if src.MedicaidStatus == nil && out.PayerName != nil && medicaidPayers.MatchString(*out.PayerName) {
		enrolled := domain.ProgramEnrolled
		out.MedicaidStatus = &enrolled
		out.FieldConfidence["medicaidStatus"] = out.FieldConfidence["payerName"]
	}

	if v, ok := lookupEnum(programStatuses, src.MedicareStatus); ok {
		out.MedicareStatus = &v
		out.FieldConfidence["medicareStatus"] = conf.of("medicareStatus")
		return
	}
	if src.MedicareStatus != nil {
		return
	}
	switch {
	case out.MemberID != nil && isMedicareID(*out.MemberID):
		enrolled := domain.ProgramEnrolled
		out.MedicareStatus = &enrolled
		out.FieldConfidence["medicareStatus"] = out.FieldConfidence["memberId"]
	case out.PayerName != nil && medicarePayers.MatchString(*out.PayerName):
		enrolled := domain.ProgramEnrolled
		out.MedicareStatus = &enrolled
		out.FieldConfidence["medicareStatus"] = out.FieldConfidence["payerName"]
	}
}

func isMedicareID(memberID string) bool {
	id := strings.ToUpper(memberIDNoise.Replace(memberID))
	return mbiPattern.MatchString(id) || hicnPattern.MatchString(id)
}

// deriveLengthOfStay sets the whole days between admission and discharge.
// A discharge before admission is treated as unreadable.
func deriveLengthOfStay(out *domain.MappedAssessmentFields) {
	if out.AdmissionDate == nil || out.DischargeDate == nil {
		return
	}
	days, ok := normalize.DaysBetween(*out.AdmissionDate, *out.DischargeDate)
	if !ok || days < 0 {
		return
	}
	out.LengthOfStayDays = &days
	out.FieldConfidence["lengthOfStayDays"] = math.Min(
		out.FieldConfidence["admissionDate"],
		out.FieldConfidence["dischargeDate"],
	)
}

// deriveDisabilityLikelihood rates disability likelihood from disabling
// diagnoses and length of stay:
//
//	disabling diagnosis and stay >= 7 days  -> high
//	disabling diagnosis or stay >= 14 days  -> medium
//	otherwise, when either input is known   -> low
//
// Confidence is the lowest confidence among the inputs that were known.
func deriveDisabilityLikelihood(out *domain.MappedAssessmentFields) {
	hasCodes := len(out.DiagnosisCodes) > 0
	hasStay := out.LengthOfStayDays != nil
	if !hasCodes && !hasStay {
		return
	}

	disabling := false
	for _, code := range out.DiagnosisCodes {
		if isDisabling(code) {
			disabling = true
			break
		}
	}
	stay := -1
	if hasStay {
		stay = *out.LengthOfStayDays
	}

	var likelihood domain.DisabilityLikelihood
	switch {
	case disabling && stay >= HighLikelihoodStayDays:
		likelihood = domain.DisabilityHigh
	case disabling || stay >= MediumLikelihoodStayDays:
		likelihood = domain.DisabilityMedium
	default:
		likelihood = domain.DisabilityLow
	}

	confidence := 1.0
	if hasCodes {
		confidence = math.Min(confidence, out.FieldConfidence["diagnosisCodes"])
	}
	if hasStay {
		confidence = math.Min(confidence, out.FieldConfidence["lengthOfStayDays"])
	}

	out.DisabilityLikelihood = &likelihood
	out.FieldConfidence["disabilityLikelihood"] = confidence
}

func isDisabling(code string) bool {
	for _, prefix := range disablingDiagnosisPrefixes {
		if strings.HasPrefix(code, prefix) {
			return true
		}
	}
	return false
}
