// Package text provides small rune-aware text helpers. Length limits across
// the pipeline are enforced in runes, not bytes, so multi-byte scripts and
// emoji measure the way a reader would count them.
package text

// CountRunes counts Unicode characters rather than bytes, so multi-byte
// scripts and emoji measure the way a reader would count them. Summary
// length limits are enforced in runes for this reason.
func CountRunes(text string) int {
	return len([]rune(text))
}

// TruncateRunes clips text to at most max runes, never splitting a multi-byte
// character mid-sequence. Text at or under the limit is returned unchanged.
func TruncateRunes(text string, max int) string {
	if max <= 0 {
		return ""
	}
	n := 0
	for i := range text {
		if n == max {
			return text[:i]
		}
		n++
	}
	return text
}
