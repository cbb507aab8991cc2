package normalize

import (
	"regexp"
	"strings"
)

var (
	icd10Pattern = regexp.MustCompile(`\b([A-Z][0-9][0-9AB])\.?([0-9A-Z]{1,4})?\b`)
	cptPattern   = regexp.MustCompile(`^[0-9]{4}[0-9FTU]$`)
	hcpcsPattern = regexp.MustCompile(`^[A-V][0-9]{4}$`)
	pcsPattern   = regexp.MustCompile(`^[0-9A-HJ-NP-Z]{7}$`)
	npiPattern   = regexp.MustCompile(`^[0-9]{10}$`)
)

// DiagnosisCode extracts an ICD-10-CM code from raw text such as
// "e11.9 - Type 2 diabetes" and returns it dotted and upper case ("E11.9").
func DiagnosisCode(raw string) (string, bool) {
	m := icd10Pattern.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(raw)))
	if m == nil {
		return "", false
	}
	if m[2] == "" {
		return m[1], true
	}
	return m[1] + "." + m[2], true
}

// ProcedureCode validates a CPT, HCPCS Level II or ICD-10-PCS code. Modifiers
// after a dash or space are dropped.
func ProcedureCode(raw string) (string, bool) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if i := strings.IndexAny(s, " -"); i > 0 {
		s = s[:i]
	}
	if cptPattern.MatchString(s) || hcpcsPattern.MatchString(s) || pcsPattern.MatchString(s) {
		return s, true
	}
	return "", false
}

// NPI validates a 10-digit National Provider Identifier with its Luhn check
// digit (prefix 80840).
func NPI(raw string) (string, bool) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), " ", "")
	if !npiPattern.MatchString(s) {
		return "", false
	}
	sum := 24 // constant contribution of the 80840 prefix
	double := true
	for i := len(s) - 2; i >= 0; i-- {
		d := int(s[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	check := (10 - sum%10) % 10
	if check != int(s[len(s)-1]-'0') {
		return "", false
	}
	return s, true
}
