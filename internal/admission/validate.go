package admission

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Request carries one registration submission as received from the
// form. All structural checks happen here, before the store is ever
// contacted; the uniqueness and capacity decisions are not made here
// because only the store can make them safely.
type Request struct {
	Name           string `json:"name"`
	FathersName    string `json:"fathers_name"`
	Email          string `json:"email"`
	WhatsAppMobile string `json:"whatsapp_mobile"`
	DateOfBirth    string `json:"date_of_birth"`
	TajweedLevel   string `json:"tajweed_level"`
	SlotID         uint64 `json:"slot_id"`
}

// ValidationError reports a malformed or missing field. Recoverable:
// the caller corrects the input and resubmits.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

var (
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRe = regexp.MustCompile(`^\+?[\d\s-]{10,}$`)
)

// tajweedLevels are the accepted values for the tajweed_level field.
var tajweedLevels = map[string]bool{
	"Beginner":     true,
	"Intermediate": true,
	"Advanced":     true,
}

// Validate checks every required field and returns the first failure.
func (r *Request) Validate() *ValidationError {
	if strings.TrimSpace(r.Name) == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	if !emailRe.MatchString(r.Email) {
		return &ValidationError{Field: "email", Message: "valid email is required"}
	}
	if !phoneRe.MatchString(r.WhatsAppMobile) {
		return &ValidationError{Field: "whatsapp_mobile", Message: "valid WhatsApp mobile number is required"}
	}
	if _, err := time.Parse("2006-01-02", r.DateOfBirth); err != nil {
		return &ValidationError{Field: "date_of_birth", Message: "date of birth must be YYYY-MM-DD"}
	}
	if !tajweedLevels[r.TajweedLevel] {
		return &ValidationError{Field: "tajweed_level", Message: "tajweed level must be Beginner, Intermediate or Advanced"}
	}
	if r.SlotID == 0 {
		return &ValidationError{Field: "slot_id", Message: "a time slot must be selected"}
	}
	return nil
}

// NormalizeIdentity derives the uniqueness key from a WhatsApp
// number: spaces and dashes are stripped and a single leading "+" is
// preserved, so "+49 151-234 5678" and "+491512345678" are the same
// person. The key is what the unique index guards, which means the
// same number can never register twice no matter how it is formatted
// or which slot it targets.
func NormalizeIdentity(raw string) string {
	raw = strings.TrimSpace(raw)
	var b strings.Builder
	for i, c := range raw {
		switch {
		case c >= '0' && c <= '9':
			b.WriteRune(c)
		case c == '+' && i == 0:
			b.WriteRune(c)
		}
	}
	return b.String()
}
