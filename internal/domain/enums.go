package domain

// FieldKind tells the consensus builder how to vote on a field.
type FieldKind string

const (
	FieldKindText    FieldKind = "text"
	FieldKindNumeric FieldKind = "numeric"
	FieldKindList    FieldKind = "list"
)

// DocumentType classifies the billing document.
type DocumentType string

const (
	DocumentTypeUB04         DocumentType = "ub04"
	DocumentTypeCMS1500      DocumentType = "cms1500"
	DocumentTypeItemizedBill DocumentType = "itemized_bill"
	DocumentTypeEOB          DocumentType = "eob"
	DocumentTypeStatement    DocumentType = "statement"
	DocumentTypeUnknown      DocumentType = "unknown"
)

// EncounterType is the kind of patient encounter billed.
type EncounterType string

const (
	EncounterInpatient   EncounterType = "inpatient"
	EncounterOutpatient  EncounterType = "outpatient"
	EncounterEmergency   EncounterType = "emergency"
	EncounterObservation EncounterType = "observation"
)

// FacilityType is the kind of facility that rendered care.
type FacilityType string

const (
	FacilityHospital          FacilityType = "hospital"
	FacilitySkilledNursing    FacilityType = "skilled_nursing"
	FacilityClinic            FacilityType = "clinic"
	FacilityAmbulatorySurgery FacilityType = "ambulatory_surgery"
	FacilityRehabilitation    FacilityType = "rehabilitation"
	FacilityHomeHealth        FacilityType = "home_health"
	FacilityHospice           FacilityType = "hospice"
)

// InsuranceStatus describes the patient's coverage.
type InsuranceStatus string

const (
	InsuranceInsured   InsuranceStatus = "insured"
	InsuranceUninsured InsuranceStatus = "uninsured"
	InsuranceSelfPay   InsuranceStatus = "self_pay"
)

// ProgramStatus is enrollment in Medicaid or Medicare.
type ProgramStatus string

const (
	ProgramEnrolled    ProgramStatus = "enrolled"
	ProgramPending     ProgramStatus = "pending"
	ProgramNotEnrolled ProgramStatus = "not_enrolled"
)

// DisabilityLikelihood is a derived estimate of whether the patient qualifies
// for disability-based assistance.
type DisabilityLikelihood string

const (
	DisabilityHigh   DisabilityLikelihood = "high"
	DisabilityMedium DisabilityLikelihood = "medium"
	DisabilityLow    DisabilityLikelihood = "low"
)
