package aprs

import (
	"strings"
	"unicode"
)

// umlautPairs lists the deterministic umlaut transliterations of spec.md
// 4.7.5 for mixed-case text. transliterate applies its all-caps pair rule
// first, so that e.g. "ÄX" becomes "AEX" rather than "AeX".
var umlautPairs = []struct {
	from, to string
}{
	{"Ä", "Ae"}, {"Ö", "Oe"}, {"Ü", "Ue"},
	{"ä", "ae"}, {"ö", "oe"}, {"ü", "ue"},
	{"ß", "ss"},
}

// upperUmlauts are the all-caps digraphs used by the pair rule.
var upperUmlauts = map[rune]string{'Ä': "AE", 'Ö': "OE", 'Ü': "UE"}

// transliterate replaces German umlauts with their ASCII digraphs. An
// upper-case umlaut followed by an upper-case letter (an all-caps word)
// becomes an all-caps digraph ("ÄX" -> "AEX"); every other umlaut follows
// the table above ("Äpfel" -> "Aepfel").
func transliterate(s string) string {
	rs := []rune(s)
	var b strings.Builder
	for i, r := range rs {
		if up, ok := upperUmlauts[r]; ok && i+1 < len(rs) && unicode.IsUpper(rs[i+1]) {
			b.WriteString(up)
			continue
		}
		b.WriteRune(r)
	}
	s = b.String()
	for _, p := range umlautPairs {
		s = strings.ReplaceAll(s, p.from, p.to)
	}
	return s
}

// stripReserved removes the two bytes APRS reserves for other purposes
// within a comment/bulletin text: '|' (telemetry/third-party delimiter)
// and '~' (used by some TNCs as a frame marker).
func stripReserved(s string) string {
	s = strings.ReplaceAll(s, "|", "")
	s = strings.ReplaceAll(s, "~", "")
	return s
}

// cleanText applies transliteration and reserved-character stripping, and
// falls back to "no comment" when the result is blank (spec.md 4.7.5).
func cleanText(s string) string {
	s = stripReserved(transliterate(s))
	if strings.TrimSpace(s) == "" {
		return "no comment"
	}
	return s
}

// truncateHard cuts s to max bytes with no ellipsis, used for bulletin
// text (67 chars, spec.md 4.7.8).
func truncateHard(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

// truncateEllipsis cuts s to max bytes, replacing the final 3 with "..."
// when it doesn't fit, used for object comment text (43 chars total,
// spec.md 4.7.8).
func truncateEllipsis(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
