package wizard

import (
	"fmt"
	"strings"
)

// MobilePrefix is the fixed country code every mobile number carries.
const MobilePrefix = "+92"

const mobileDigits = 10

// BloodGroups is the fixed nine-value enumeration: the eight ABO/Rh
// types plus "unknown" for patients whose group has not been typed yet.
var BloodGroups = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-", "unknown"}

// ValidationError names the field that failed and why. Validators
// short-circuit, so the first failing rule wins.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

func fail(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Msg: msg}
}

// MinStep and MaxStep bound the wizard.
const (
	MinStep = 1
	MaxStep = 6
)

// requiredSteps are the validators Submit re-runs; step 5 is optional
// medical info and step 6 is covered by the terms check.
var requiredSteps = []int{1, 2, 3, 4}

// ValidateStep runs the validator for one wizard step against the draft.
func ValidateStep(step int, d Draft) *ValidationError {
	switch step {
	case 1:
		return validatePatient(d)
	case 2:
		return validateContact(d)
	case 3:
		return validateHospital(d)
	case 4:
		return validateAccount(d)
	case 5:
		return nil // medical info is optional
	case 6:
		return validateTerms(d)
	default:
		return fail("step", fmt.Sprintf("unknown step %d", step))
	}
}

func validatePatient(d Draft) *ValidationError {
	if strings.TrimSpace(d.PatientName) == "" {
		return fail("patient_name", "patient name is required")
	}
	if d.PatientAge < 0 || d.PatientAge > 120 {
		return fail("patient_age", "age must be between 0 and 120")
	}
	if !ValidBloodGroup(d.BloodGroup) {
		return fail("blood_group", "unknown blood group")
	}
	return nil
}

func validateContact(d Draft) *ValidationError {
	if strings.TrimSpace(d.ContactName) == "" {
		return fail("contact_name", "contact name is required")
	}
	if _, err := NormalizeMobile(d.Mobile); err != nil {
		return fail("mobile", err.Error())
	}
	email := strings.TrimSpace(d.Email)
	if email == "" || !strings.Contains(email, "@") || strings.HasPrefix(email, "@") || strings.HasSuffix(email, "@") {
		return fail("email", "valid email is required")
	}
	return nil
}

func validateHospital(d Draft) *ValidationError {
	if strings.TrimSpace(d.HospitalName) == "" {
		return fail("hospital_name", "hospital name is required")
	}
	if strings.TrimSpace(d.HospitalCity) == "" {
		return fail("hospital_city", "hospital city is required")
	}
	return nil
}

func validateAccount(d Draft) *ValidationError {
	if len(d.Password) < 8 {
		return fail("password", "password must be at least 8 characters")
	}
	if d.Password != d.ConfirmPassword {
		return fail("confirm_password", "passwords do not match")
	}
	return nil
}

func validateTerms(d Draft) *ValidationError {
	if !d.TermsAccepted {
		return fail("terms", "terms must be accepted")
	}
	return nil
}

// ValidBloodGroup reports whether the value is in the fixed enumeration.
func ValidBloodGroup(group string) bool {
	for _, g := range BloodGroups {
		if group == g {
			return true
		}
	}
	return false
}

// NormalizeMobile validates a mobile number: exactly ten digits after
// the fixed country prefix. Bare ten-digit input gets the prefix added.
func NormalizeMobile(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	digits := raw
	if strings.HasPrefix(raw, MobilePrefix) {
		digits = raw[len(MobilePrefix):]
	}
	if len(digits) != mobileDigits {
		return "", fmt.Errorf("mobile must be exactly %d digits after %s", mobileDigits, MobilePrefix)
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("mobile must contain digits only")
		}
	}
	return MobilePrefix + digits, nil
}

// ValidateEmergency checks the reduced-field emergency path.
func ValidateEmergency(r EmergencyRequest) *ValidationError {
	if strings.TrimSpace(r.PatientName) == "" {
		return fail("patient_name", "patient name is required")
	}
	if !ValidBloodGroup(r.BloodGroup) {
		return fail("blood_group", "unknown blood group")
	}
	if strings.TrimSpace(r.ContactName) == "" {
		return fail("contact_name", "contact name is required")
	}
	if _, err := NormalizeMobile(r.Mobile); err != nil {
		return fail("mobile", err.Error())
	}
	if strings.TrimSpace(r.HospitalName) == "" {
		return fail("hospital_name", "hospital name is required")
	}
	return nil
}
