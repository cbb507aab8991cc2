package ocr

import (
	"regexp"
	"strings"
)

var keyValueLine = regexp.MustCompile(`^\s*([A-Za-z][A-Za-z0-9 #./()'&-]{0,40}?)\s*:\s*(\S.*?)\s*$`)

// KeyValueLines collects "Label: value" lines from plain OCR text, for
// providers that have no native form extraction. The first occurrence of a
// label wins.
func KeyValueLines(text string) map[string]string {
	out := map[string]string{}
	for _, line := range strings.Split(text, "\n") {
		m := keyValueLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		key := strings.Join(strings.Fields(m[1]), " ")
		if _, seen := out[key]; seen {
			continue
		}
		out[key] = m[2]
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
