package extraction

// BuildExtractionPrompt returns the extraction prompt for OCR text of a
// healthcare billing document. Every model adapter sends the same prompt.
func BuildExtractionPrompt(ocrText string) string {
	return `You are a healthcare billing data extraction assistant. The text below was produced by OCR from a scanned billing document (UB-04, CMS-1500, itemized bill, explanation of benefits or patient statement). Extract the fields into the following JSON structure.

IMPORTANT INSTRUCTIONS:
- Use only information printed in the document. Never guess.
- If a field is not present, use null. Do not use empty strings or 0 for missing values.
- Dates as they appear on the document; YYYY-MM-DD is preferred.
- Amounts as plain numbers without currency symbols or thousands separators.
- "diagnoses" holds ICD-10-CM codes, principal diagnosis first. "procedures" holds CPT, HCPCS or ICD-10-PCS codes.
- "documentType" is one of: ub04, cms1500, itemized_bill, eob, statement.
- "encounterType" is one of: inpatient, outpatient, emergency, observation.
- "insuranceStatus" is one of: insured, uninsured, self_pay.
- "medicaidStatus" and "medicareStatus" are one of: enrolled, pending, not_enrolled.

Return ONLY valid JSON with no markdown formatting, no code fences and no explanation.

Return two top-level keys: "data" and "confidence".

The "data" object must follow this schema:
{
  "documentType": null,
  "patientName": null,
  "patientDateOfBirth": null,
  "patientGender": null,
  "patientAddress": null,
  "medicalRecordNumber": null,
  "accountNumber": null,
  "admissionDate": null,
  "dischargeDate": null,
  "serviceDate": null,
  "encounterType": null,
  "facilityName": null,
  "facilityType": null,
  "providerNpi": null,
  "totalCharges": null,
  "amountPaid": null,
  "amountDue": null,
  "insuranceStatus": null,
  "payerName": null,
  "memberId": null,
  "groupNumber": null,
  "medicaidStatus": null,
  "medicareStatus": null,
  "diagnoses": [],
  "procedures": []
}

"confidence" is a single float between 0.0 and 1.0 giving your overall confidence in the extraction.

DOCUMENT TEXT:
` + ocrText
}
