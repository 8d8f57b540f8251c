// Package phone normalizes Indian customer phone numbers. Numbers are
// stored in E.164 form and converted to the messaging gateway's chat id
// format only at send time.
package phone

import (
	"regexp"
	"strings"
)

var nonDigits = regexp.MustCompile(`\D`)

// FormatE164 normalizes a raw phone number to E.164. Bare 10-digit numbers
// get the +91 country code; 12-digit numbers starting with 91 keep it.
func FormatE164(raw string) string {
	digits := nonDigits.ReplaceAllString(raw, "")
	if strings.HasPrefix(digits, "91") && len(digits) == 12 {
		return "+" + digits
	}
	if len(digits) == 10 {
		return "+91" + digits
	}
	return "+" + digits
}

// ChatID formats a phone number as the gateway chat id, e.g.
// "919876543210@c.us".
func ChatID(raw string) string {
	digits := nonDigits.ReplaceAllString(raw, "")
	if strings.HasPrefix(digits, "91") && len(digits) == 12 {
		return digits + "@c.us"
	}
	if len(digits) == 10 {
		return "91" + digits + "@c.us"
	}
	return digits + "@c.us"
}

// Valid reports whether a number is a plausible Indian mobile number.
func Valid(raw string) bool {
	e164 := FormatE164(raw)
	matched, _ := regexp.MatchString(`^\+91[6-9]\d{9}$`, e164)
	return matched
}
