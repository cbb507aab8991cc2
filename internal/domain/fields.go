package domain

// Field describes one ExtractedDocumentData field. Exactly one of Text,
// Numeric, List is set, matching Kind.
type Field struct {
	Name    string
	Kind    FieldKind
	Text    func(*ExtractedDocumentData) **string
	Numeric func(*ExtractedDocumentData) **float64
	List    func(*ExtractedDocumentData) *[]string
}

// Present reports whether d carries a value for f.
func (f Field) Present(d *ExtractedDocumentData) bool {
	if d == nil {
		return false
	}
	switch f.Kind {
	case FieldKindText:
		return *f.Text(d) != nil
	case FieldKindNumeric:
		return *f.Numeric(d) != nil
	case FieldKindList:
		return len(*f.List(d)) > 0
	}
	return false
}

func textField(name string, acc func(*ExtractedDocumentData) **string) Field {
	return Field{Name: name, Kind: FieldKindText, Text: acc}
}

func numericField(name string, acc func(*ExtractedDocumentData) **float64) Field {
	return Field{Name: name, Kind: FieldKindNumeric, Numeric: acc}
}

func listField(name string, acc func(*ExtractedDocumentData) *[]string) Field {
	return Field{Name: name, Kind: FieldKindList, List: acc}
}

// Fields lists every ExtractedDocumentData field in schema order. Names match
// the JSON tags.
var Fields = []Field{
	textField("documentType", func(d *ExtractedDocumentData) **string { return &d.DocumentType }),
	textField("patientName", func(d *ExtractedDocumentData) **string { return &d.PatientName }),
	textField("patientDateOfBirth", func(d *ExtractedDocumentData) **string { return &d.PatientDateOfBirth }),
	textField("patientGender", func(d *ExtractedDocumentData) **string { return &d.PatientGender }),
	textField("patientAddress", func(d *ExtractedDocumentData) **string { return &d.PatientAddress }),
	textField("medicalRecordNumber", func(d *ExtractedDocumentData) **string { return &d.MedicalRecordNumber }),
	textField("accountNumber", func(d *ExtractedDocumentData) **string { return &d.AccountNumber }),
	textField("admissionDate", func(d *ExtractedDocumentData) **string { return &d.AdmissionDate }),
	textField("dischargeDate", func(d *ExtractedDocumentData) **string { return &d.DischargeDate }),
	textField("serviceDate", func(d *ExtractedDocumentData) **string { return &d.ServiceDate }),
	textField("encounterType", func(d *ExtractedDocumentData) **string { return &d.EncounterType }),
	textField("facilityName", func(d *ExtractedDocumentData) **string { return &d.FacilityName }),
	textField("facilityType", func(d *ExtractedDocumentData) **string { return &d.FacilityType }),
	textField("providerNpi", func(d *ExtractedDocumentData) **string { return &d.ProviderNPI }),
	numericField("totalCharges", func(d *ExtractedDocumentData) **float64 { return &d.TotalCharges }),
	numericField("amountPaid", func(d *ExtractedDocumentData) **float64 { return &d.AmountPaid }),
	numericField("amountDue", func(d *ExtractedDocumentData) **float64 { return &d.AmountDue }),
	textField("insuranceStatus", func(d *ExtractedDocumentData) **string { return &d.InsuranceStatus }),
	textField("payerName", func(d *ExtractedDocumentData) **string { return &d.PayerName }),
	textField("memberId", func(d *ExtractedDocumentData) **string { return &d.MemberID }),
	textField("groupNumber", func(d *ExtractedDocumentData) **string { return &d.GroupNumber }),
	textField("medicaidStatus", func(d *ExtractedDocumentData) **string { return &d.MedicaidStatus }),
	textField("medicareStatus", func(d *ExtractedDocumentData) **string { return &d.MedicareStatus }),
	listField("diagnoses", func(d *ExtractedDocumentData) *[]string { return &d.Diagnoses }),
	listField("procedures", func(d *ExtractedDocumentData) *[]string { return &d.Procedures }),
}

// CountPresent returns how many fields d carries.
func CountPresent(d *ExtractedDocumentData) int {
	n := 0
	for _, f := range Fields {
		if f.Present(d) {
			n++
		}
	}
	return n
}
