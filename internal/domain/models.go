package domain

// EngineResult is the outcome of one OCR provider call.
type EngineResult struct {
	Engine        string            `json:"engine"`
	Text          string            `json:"text"`
	Confidence    float64           `json:"confidence"`
	KeyValuePairs map[string]string `json:"keyValuePairs,omitempty"`
	Success       bool              `json:"success"`
	Error         string            `json:"error,omitempty"`
}

// FailedEngineResult builds an unsuccessful result for engine. Failed results
// never carry text.
func FailedEngineResult(engine string, err error) EngineResult {
	res := EngineResult{Engine: engine}
	if err != nil {
		res.Error = err.Error()
	}
	return res
}

// AggregatedOCRResult is the winning OCR result across all configured providers.
type AggregatedOCRResult struct {
	Text          string            `json:"text"`
	Confidence    float64           `json:"confidence"`
	KeyValuePairs map[string]string `json:"keyValuePairs,omitempty"`
	Success       bool              `json:"success"`
	Engine        string            `json:"engine"`

	// Attempts holds every provider result in configured order, for diagnostics only.
	Attempts []EngineResult `json:"attempts,omitempty"`
}

// ExtractedDocumentData is the flat record an AI model extracts from OCR text.
// A nil field means the model did not find it.
type ExtractedDocumentData struct {
	DocumentType        *string  `json:"documentType,omitempty"`
	PatientName         *string  `json:"patientName,omitempty"`
	PatientDateOfBirth  *string  `json:"patientDateOfBirth,omitempty"`
	PatientGender       *string  `json:"patientGender,omitempty"`
	PatientAddress      *string  `json:"patientAddress,omitempty"`
	MedicalRecordNumber *string  `json:"medicalRecordNumber,omitempty"`
	AccountNumber       *string  `json:"accountNumber,omitempty"`
	AdmissionDate       *string  `json:"admissionDate,omitempty"`
	DischargeDate       *string  `json:"dischargeDate,omitempty"`
	ServiceDate         *string  `json:"serviceDate,omitempty"`
	EncounterType       *string  `json:"encounterType,omitempty"`
	FacilityName        *string  `json:"facilityName,omitempty"`
	FacilityType        *string  `json:"facilityType,omitempty"`
	ProviderNPI         *string  `json:"providerNpi,omitempty"`
	TotalCharges        *float64 `json:"totalCharges,omitempty"`
	AmountPaid          *float64 `json:"amountPaid,omitempty"`
	AmountDue           *float64 `json:"amountDue,omitempty"`
	InsuranceStatus     *string  `json:"insuranceStatus,omitempty"`
	PayerName           *string  `json:"payerName,omitempty"`
	MemberID            *string  `json:"memberId,omitempty"`
	GroupNumber         *string  `json:"groupNumber,omitempty"`
	MedicaidStatus      *string  `json:"medicaidStatus,omitempty"`
	MedicareStatus      *string  `json:"medicareStatus,omitempty"`
	Diagnoses           []string `json:"diagnoses,omitempty"`
	Procedures          []string `json:"procedures,omitempty"`
}

// ParseResult is the outcome of one AI model invocation. Data is nil when the
// model failed or returned nothing usable.
type ParseResult struct {
	Model          string                 `json:"model"`
	Data           *ExtractedDocumentData `json:"data,omitempty"`
	Confidence     float64                `json:"confidence"`
	Error          string                 `json:"error,omitempty"`
	ResponseTimeMs int64                  `json:"responseTimeMs"`
}

// ConsensusResult is the reconciled record built from every model's ParseResult.
type ConsensusResult struct {
	Consensus      ExtractedDocumentData `json:"consensus"`
	Confidence     float64               `json:"confidence"`
	AgreementScore float64               `json:"agreementScore"`

	// FieldAgreement and FieldConfidence are keyed by field name and only
	// contain fields that received at least one vote.
	FieldAgreement  map[string]float64 `json:"fieldAgreement,omitempty"`
	FieldConfidence map[string]float64 `json:"fieldConfidence,omitempty"`

	ModelResults []ParseResult `json:"modelResults"`
}

// MappedAssessmentFields is the normalized assessment schema produced from a consensus.
type MappedAssessmentFields struct {
	DocumentType DocumentType `json:"documentType"`

	PatientName         *string `json:"patientName,omitempty"`
	PatientDateOfBirth  *string `json:"patientDateOfBirth,omitempty"`
	MedicalRecordNumber *string `json:"medicalRecordNumber,omitempty"`
	AccountNumber       *string `json:"accountNumber,omitempty"`
	FacilityName        *string `json:"facilityName,omitempty"`
	ProviderNPI         *string `json:"providerNpi,omitempty"`

	AdmissionDate    *string `json:"admissionDate,omitempty"`
	DischargeDate    *string `json:"dischargeDate,omitempty"`
	ServiceDate      *string `json:"serviceDate,omitempty"`
	LengthOfStayDays *int    `json:"lengthOfStayDays,omitempty"`

	EncounterType   *EncounterType   `json:"encounterType,omitempty"`
	FacilityType    *FacilityType    `json:"facilityType,omitempty"`
	InsuranceStatus *InsuranceStatus `json:"insuranceStatus,omitempty"`
	MedicaidStatus  *ProgramStatus   `json:"medicaidStatus,omitempty"`
	MedicareStatus  *ProgramStatus   `json:"medicareStatus,omitempty"`
	PayerName       *string          `json:"payerName,omitempty"`
	MemberID        *string          `json:"memberId,omitempty"`

	TotalCharges *float64 `json:"totalCharges,omitempty"`
	AmountPaid   *float64 `json:"amountPaid,omitempty"`
	AmountDue    *float64 `json:"amountDue,omitempty"`

	DiagnosisCodes []string `json:"diagnosisCodes,omitempty"`
	ProcedureCodes []string `json:"procedureCodes,omitempty"`

	DisabilityLikelihood *DisabilityLikelihood `json:"disabilityLikelihood,omitempty"`

	FieldConfidence map[string]float64 `json:"fieldConfidence"`
}

// ClampConfidence forces c into [0,1]. NaN becomes 0.
func ClampConfidence(c float64) float64 {
	if c != c || c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
