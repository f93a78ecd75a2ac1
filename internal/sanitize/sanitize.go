// Package sanitize masks credentials and contact details in text that
// came from an upstream and is about to be logged or relayed to a visitor.
package sanitize

import (
	"regexp"
	"strings"
)

// MaxLength bounds sanitized text.
const MaxLength = 200

var (
	bearerPattern = regexp.MustCompile(`(?i)bearer\s+[\w.~+/=-]+`)
	basicPattern  = regexp.MustCompile(`(?i)basic\s+[A-Za-z0-9+/=]{8,}`)

	// key=value, key: value and "key":"value" forms.
	secretPattern = regexp.MustCompile(`(?i)((?:api[_-]?key|secret|token|password)["']?\s*[:=]\s*["']?)([^\s"',&}]{6,})`)

	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?\(?\d[\d\s().-]{8,}\d`)
)

// Text masks secrets, emails and phone numbers in s and cuts it to
// MaxLength bytes.
func Text(s string) string {
	s = bearerPattern.ReplaceAllString(s, "Bearer [REDACTED]")
	s = basicPattern.ReplaceAllString(s, "Basic [REDACTED]")
	s = secretPattern.ReplaceAllString(s, "${1}[REDACTED]")
	s = emailPattern.ReplaceAllStringFunc(s, maskEmail)
	s = phonePattern.ReplaceAllStringFunc(s, maskPhone)
	return truncate(strings.TrimSpace(s), MaxLength)
}

// Error returns the sanitized message of err.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return Text(err.Error())
}

func maskEmail(email string) string {
	at := strings.IndexByte(email, '@')
	if at <= 1 {
		return "***" + email[at:]
	}
	return email[:1] + "***" + email[at:]
}

// maskPhone keeps the last four digits of runs that hold at least ten.
func maskPhone(match string) string {
	var digits []byte
	for i := 0; i < len(match); i++ {
		if match[i] >= '0' && match[i] <= '9' {
			digits = append(digits, match[i])
		}
	}
	if len(digits) < 10 {
		return match
	}
	return "***-***-" + string(digits[len(digits)-4:])
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// Back up to a rune boundary.
	for n > 0 && s[n]&0xC0 == 0x80 {
		n--
	}
	return s[:n] + "..."
}
