package render

import (
	"strings"
	"unicode"
)

// NormalizePhone completes a Cuban number with its country and mobile prefix
// based on its digit count.
func NormalizePhone(s string) string {
	s = strings.ReplaceAll(s, " ", "")
	switch {
	case len(s) == 7:
		return "+535" + s
	case len(s) == 8:
		return "+53" + s
	case len(s) == 9 && s[0] == '3':
		return "+5" + s
	case len(s) == 10 && strings.HasPrefix(s, "53"):
		return "+" + s
	case len(s) > 10 && s[0] != '+':
		return "+" + s
	default:
		return s
	}
}

// PhoneNumbers extracts and normalizes the numbers in a free-form phone field.
func PhoneNumbers(raw string) []string {
	filtered := separateNumbers(raw)
	if len(filtered) > 12 {
		parts := strings.Split(filtered, "/")
		if len(parts) > 1 {
			var out []string
			for _, part := range parts {
				if len(part) > 6 {
					out = append(out, NormalizePhone(part))
				}
			}
			if len(out) > 1 {
				return out
			}
		}
	}
	return []string{NormalizePhone(strings.ReplaceAll(filtered, "/", ""))}
}

// separateNumbers keeps digits only, inserting '/' at the first non-digit that
// follows a run of at least eight digits.
func separateNumbers(raw string) string {
	var b strings.Builder
	count := 0
	for _, r := range raw {
		switch {
		case unicode.IsDigit(r):
			b.WriteRune(r)
			count++
		case count > 7:
			b.WriteByte('/')
			count = 0
		}
	}
	return b.String()
}
