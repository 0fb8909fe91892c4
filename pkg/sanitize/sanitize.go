package sanitize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var reNonDigit = regexp.MustCompile(`\D`)

// Email addresses (case-insensitive)
var reEmail = regexp.MustCompile(`(?i)[A-Z0-9._%+\-]+@[A-Z0-9.\-]+\.[A-Z]{2,}`)

// SSN in any common spelling: 123-45-6789, 123 45 6789, 123456789
var reSSN = regexp.MustCompile(`\b\d{3}[\s\-]?\d{2}[\s\-]?\d{4}\b`)

// Blank reports whether a value is empty, whitespace, or the "N/A" placeholder
// intake forms store for unknown fields.
func Blank(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || strings.EqualFold(s, "N/A")
}

// Value trims s and maps placeholders to "".
func Value(s string) string {
	if Blank(s) {
		return ""
	}
	return strings.TrimSpace(s)
}

// Digits strips everything but 0-9.
func Digits(s string) string {
	return reNonDigit.ReplaceAllString(s, "")
}

// FormatSSN renders nine digits as XXX-XX-XXXX. Anything else is returned trimmed.
func FormatSSN(s string) string {
	d := Digits(s)
	if len(d) != 9 {
		return Value(s)
	}
	return d[:3] + "-" + d[3:5] + "-" + d[5:]
}

// FormatPhone renders ten US digits as (XXX) XXX-XXXX; a leading 1 is dropped.
func FormatPhone(s string) string {
	d := Digits(s)
	if len(d) == 11 && d[0] == '1' {
		d = d[1:]
	}
	if len(d) != 10 {
		return Value(s)
	}
	return "(" + d[:3] + ") " + d[3:6] + "-" + d[6:]
}

// RedactPII masks emails and SSNs, for log lines and error text.
func RedactPII(s string) string {
	if s == "" {
		return s
	}
	s = reEmail.ReplaceAllString(s, "[redacted email]")
	s = reSSN.ReplaceAllString(s, "[redacted ssn]")
	return s
}

// Summary cuts s to at most max bytes on a word boundary.
func Summary(s string, max int) string {
	if len(s) <= max {
		return s
	}
	i := max
	for i > 0 && i < len(s) && s[i] != ' ' {
		i--
	}
	if i <= 0 {
		i = max
		for i > 0 && !utf8.RuneStart(s[i]) {
			i--
		}
	}
	return s[:i] + "…"
}
