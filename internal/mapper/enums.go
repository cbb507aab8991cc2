package mapper

import (
	"billscan/internal/domain"
	"billscan/internal/normalize"
)

// Alias tables are keyed by normalize.Token, so punctuation, spacing and case
// never matter.

var documentTypes = map[string]domain.DocumentType{
	"UB04":                  domain.DocumentTypeUB04,
	"UB92":                  domain.DocumentTypeUB04,
	"CMS1450":               domain.DocumentTypeUB04,
	"INSTITUTIONALCLAIM":    domain.DocumentTypeUB04,
	"CMS1500":               domain.DocumentTypeCMS1500,
	"HCFA1500":              domain.DocumentTypeCMS1500,
	"HCFA":                  domain.DocumentTypeCMS1500,
	"PROFESSIONALCLAIM":     domain.DocumentTypeCMS1500,
	"ITEMIZEDBILL":          domain.DocumentTypeItemizedBill,
	"ITEMIZEDSTATEMENT":     domain.DocumentTypeItemizedBill,
	"ITEMIZED":              domain.DocumentTypeItemizedBill,
	"EOB":                   domain.DocumentTypeEOB,
	"EXPLANATIONOFBENEFITS": domain.DocumentTypeEOB,
	"REMITTANCEADVICE":      domain.DocumentTypeEOB,
	"STATEMENT":             domain.DocumentTypeStatement,
	"PATIENTSTATEMENT":      domain.DocumentTypeStatement,
	"BILLINGSTATEMENT":      domain.DocumentTypeStatement,
	"HOSPITALBILL":          domain.DocumentTypeStatement,
}

var encounterTypes = map[string]domain.EncounterType{
	"INPATIENT":           domain.EncounterInpatient,
	"IP":                  domain.EncounterInpatient,
	"INPT":                domain.EncounterInpatient,
	"INPATIENTADMISSION":  domain.EncounterInpatient,
	"INPATIENTSTAY":       domain.EncounterInpatient,
	"ACUTEINPATIENT":      domain.EncounterInpatient,
	"ADMITTED":            domain.EncounterInpatient,
	"OUTPATIENT":          domain.EncounterOutpatient,
	"OP":                  domain.EncounterOutpatient,
	"OUTPT":               domain.EncounterOutpatient,
	"AMBULATORY":          domain.EncounterOutpatient,
	"OFFICEVISIT":         domain.EncounterOutpatient,
	"CLINICVISIT":         domain.EncounterOutpatient,
	"EMERGENCY":           domain.EncounterEmergency,
	"ER":                  domain.EncounterEmergency,
	"ED":                  domain.EncounterEmergency,
	"EMERGENCYROOM":       domain.EncounterEmergency,
	"EMERGENCYDEPARTMENT": domain.EncounterEmergency,
	"OBSERVATION":         domain.EncounterObservation,
	"OBS":                 domain.EncounterObservation,
	"OBSERVATIONSTAY":     domain.EncounterObservation,
}

var facilityTypes = map[string]domain.FacilityType{
	"HOSPITAL":                domain.FacilityHospital,
	"ACUTECAREHOSPITAL":       domain.FacilityHospital,
	"GENERALHOSPITAL":         domain.FacilityHospital,
	"MEDICALCENTER":           domain.FacilityHospital,
	"SNF":                     domain.FacilitySkilledNursing,
	"SKILLEDNURSING":          domain.FacilitySkilledNursing,
	"SKILLEDNURSINGFACILITY":  domain.FacilitySkilledNursing,
	"NURSINGHOME":             domain.FacilitySkilledNursing,
	"NURSINGFACILITY":         domain.FacilitySkilledNursing,
	"CLINIC":                  domain.FacilityClinic,
	"PHYSICIANOFFICE":         domain.FacilityClinic,
	"URGENTCARE":              domain.FacilityClinic,
	"FQHC":                    domain.FacilityClinic,
	"ASC":                     domain.FacilityAmbulatorySurgery,
	"AMBULATORYSURGERY":       domain.FacilityAmbulatorySurgery,
	"AMBULATORYSURGERYCENTER": domain.FacilityAmbulatorySurgery,
	"SURGERYCENTER":           domain.FacilityAmbulatorySurgery,
	"REHAB":                   domain.FacilityRehabilitation,
	"REHABILITATION":          domain.FacilityRehabilitation,
	"IRF":                     domain.FacilityRehabilitation,
	"INPATIENTREHABILITATION": domain.FacilityRehabilitation,
	"HOMEHEALTH":              domain.FacilityHomeHealth,
	"HHA":                     domain.FacilityHomeHealth,
	"HOMEHEALTHAGENCY":        domain.FacilityHomeHealth,
	"HOSPICE":                 domain.FacilityHospice,
	"HOSPICECARE":             domain.FacilityHospice,
}

var insuranceStatuses = map[string]domain.InsuranceStatus{
	"INSURED":     domain.InsuranceInsured,
	"COMMERCIAL":  domain.InsuranceInsured,
	"PRIVATE":     domain.InsuranceInsured,
	"MEDICAID":    domain.InsuranceInsured,
	"MEDICARE":    domain.InsuranceInsured,
	"HMO":         domain.InsuranceInsured,
	"PPO":         domain.InsuranceInsured,
	"COVERED":     domain.InsuranceInsured,
	"TRUE":        domain.InsuranceInsured,
	"UNINSURED":   domain.InsuranceUninsured,
	"NOINSURANCE": domain.InsuranceUninsured,
	"NOCOVERAGE":  domain.InsuranceUninsured,
	"FALSE":       domain.InsuranceUninsured,
	"SELFPAY":     domain.InsuranceSelfPay,
	"SELF":        domain.InsuranceSelfPay,
	"CASH":        domain.InsuranceSelfPay,
	"PRIVATEPAY":  domain.InsuranceSelfPay,
}

var programStatuses = map[string]domain.ProgramStatus{
	"ENROLLED":           domain.ProgramEnrolled,
	"ACTIVE":             domain.ProgramEnrolled,
	"ELIGIBLE":           domain.ProgramEnrolled,
	"COVERED":            domain.ProgramEnrolled,
	"YES":                domain.ProgramEnrolled,
	"Y":                  domain.ProgramEnrolled,
	"TRUE":               domain.ProgramEnrolled,
	"PENDING":            domain.ProgramPending,
	"APPLIED":            domain.ProgramPending,
	"APPLICATIONPENDING": domain.ProgramPending,
	"INPROCESS":          domain.ProgramPending,
	"NOTENROLLED":        domain.ProgramNotEnrolled,
	"INELIGIBLE":         domain.ProgramNotEnrolled,
	"NOTELIGIBLE":        domain.ProgramNotEnrolled,
	"INACTIVE":           domain.ProgramNotEnrolled,
	"DENIED":             domain.ProgramNotEnrolled,
	"NO":                 domain.ProgramNotEnrolled,
	"N":                  domain.ProgramNotEnrolled,
	"FALSE":              domain.ProgramNotEnrolled,
}

// lookupEnum resolves raw against table. Unrecognized values are absent.
func lookupEnum[T any](table map[string]T, raw *string) (T, bool) {
	var zero T
	if raw == nil {
		return zero, false
	}
	v, ok := table[normalize.Token(*raw)]
	return v, ok
}
