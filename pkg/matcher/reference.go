package matcher

import "regexp"

var referencePattern = regexp.MustCompile(`(?i)\b(?:trans(?:action)?\.?\s*id|txn\s*id|ref(?:erence)?(?:\s*(?:no|number))?)(?:\s*[:.#]\s*|\s+)([A-Z0-9][A-Z0-9.\-]{3,})`)

// ExtractReference returns the carrier's transaction reference from a terminal screen.
func ExtractReference(text string) (string, bool) {
	m := referencePattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	ref := m[1]
	for len(ref) > 0 && (ref[len(ref)-1] == '.' || ref[len(ref)-1] == '-') {
		ref = ref[:len(ref)-1]
	}
	return ref, ref != ""
}
