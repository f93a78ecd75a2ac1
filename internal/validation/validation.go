// Package validation provides field-level validation for form submissions
// and voice webhook payloads.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	apperrors "github.com/posentia/posentia/internal/errors"
)

// Validator accumulates field errors. Each check returns whether it passed
// so callers can skip dependent checks.
type Validator struct {
	fields []apperrors.FieldError
}

// New creates a new Validator.
func New() *Validator {
	return &Validator{}
}

// Fields returns all accumulated field errors.
func (v *Validator) Fields() []apperrors.FieldError {
	return v.fields
}

// IsValid returns true if no validation errors occurred.
func (v *Validator) IsValid() bool {
	return len(v.fields) == 0
}

// AddError records a field error.
func (v *Validator) AddError(field, message string) {
	v.fields = append(v.fields, apperrors.FieldError{Field: field, Message: message})
}

// Err returns a VALIDATION_ERROR carrying every field error, or nil. The
// message of the first failure becomes the error message when message is
// empty.
func (v *Validator) Err(message string) error {
	if v.IsValid() {
		return nil
	}
	if message == "" {
		message = v.fields[0].Field + " " + v.fields[0].Message
	}
	return apperrors.ValidationFailed(message, v.fields...)
}

// Required validates that a string field is not blank.
func (v *Validator) Required(field, value string) bool {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "is required")
		return false
	}
	return true
}

// MaxLength validates string length doesn't exceed maximum.
func (v *Validator) MaxLength(field, value string, maxLen int) bool {
	if utf8.RuneCountInString(value) > maxLen {
		v.AddError(field, fmt.Sprintf("must be at most %d characters", maxLen))
		return false
	}
	return true
}

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Email validates an email address. Empty values pass.
func (v *Validator) Email(field, value string) bool {
	if value == "" {
		return true
	}
	if !emailRegex.MatchString(value) {
		v.AddError(field, "must be a valid email address")
		return false
	}
	return true
}

// TenDigitPhone validates a North American number: exactly ten digits once
// formatting is stripped. Empty values pass.
func (v *Validator) TenDigitPhone(field, value string) bool {
	if value == "" {
		return true
	}
	if len(Digits(value)) != 10 {
		v.AddError(field, "must be 10 digits")
		return false
	}
	return true
}

// e164Regex matches international phone numbers.
var e164Regex = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)

// PhoneNumber validates an E.164-style number. Empty values pass.
func (v *Validator) PhoneNumber(field, value string) bool {
	if value == "" {
		return true
	}
	cleaned := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "").Replace(value)
	if !e164Regex.MatchString(cleaned) {
		v.AddError(field, "must be a valid phone number in E.164 format")
		return false
	}
	return true
}

var urlRegex = regexp.MustCompile(`^https?://[^\s/$.?#].\S*$`)

// URL validates an http(s) URL. Empty values pass.
func (v *Validator) URL(field, value string) bool {
	if value == "" {
		return true
	}
	if !urlRegex.MatchString(value) {
		v.AddError(field, "must be a valid URL")
		return false
	}
	return true
}

// OneOf validates that value is one of the allowed values.
func (v *Validator) OneOf(field, value string, allowed []string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	v.AddError(field, fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")))
	return false
}

// SafeString rejects control characters other than newlines and tabs.
func (v *Validator) SafeString(field, value string) bool {
	for _, r := range value {
		if r < 32 && r != '\n' && r != '\r' && r != '\t' {
			v.AddError(field, "contains invalid control characters")
			return false
		}
	}
	return true
}

// NoScriptTags rejects values carrying script markup.
func (v *Validator) NoScriptTags(field, value string) bool {
	lower := strings.ToLower(value)
	if strings.Contains(lower, "<script") || strings.Contains(lower, "javascript:") {
		v.AddError(field, "contains potentially malicious content")
		return false
	}
	return true
}

// CallEventValidator validates an inbound voice webhook.
type CallEventValidator struct {
	*Validator
}

// NewCallEventValidator creates a CallEvent validator.
func NewCallEventValidator() *CallEventValidator {
	return &CallEventValidator{Validator: New()}
}

// ValidateCallID validates the provider call ID.
func (v *CallEventValidator) ValidateCallID(callID string) {
	if v.Required("call_id", callID) {
		v.MaxLength("call_id", callID, 256)
		v.SafeString("call_id", callID)
	}
}

// ValidatePhoneNumbers validates the optional phone number fields.
func (v *CallEventValidator) ValidatePhoneNumbers(toNumber, fromNumber string) {
	v.PhoneNumber("to_number", toNumber)
	v.PhoneNumber("from_number", fromNumber)
}

// ValidateTranscript validates transcript content.
func (v *CallEventValidator) ValidateTranscript(transcript string) {
	v.MaxLength("transcript", transcript, 1000000)
	v.SafeString("transcript", transcript)
	v.NoScriptTags("transcript", transcript)
}

// ValidateRecordingURL validates the recording URL.
func (v *CallEventValidator) ValidateRecordingURL(url string) {
	if v.URL("recording_url", url) {
		v.MaxLength("recording_url", url, 2048)
	}
}

// Digits returns only the ASCII digits of s.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SanitizeString removes null bytes and replaces other control characters
// (except newlines and tabs) with spaces.
func SanitizeString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	var builder strings.Builder
	for _, r := range s {
		if r < 32 && r != '\n' && r != '\r' && r != '\t' {
			builder.WriteRune(' ')
		} else {
			builder.WriteRune(r)
		}
	}
	return strings.TrimSpace(builder.String())
}
