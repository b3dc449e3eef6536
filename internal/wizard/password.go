package wizard

import "unicode"

// StrengthLabel is the four-level password strength indicator shown
// next to the password field.
type StrengthLabel string

const (
	StrengthWeak   StrengthLabel = "weak"
	StrengthFair   StrengthLabel = "fair"
	StrengthGood   StrengthLabel = "good"
	StrengthStrong StrengthLabel = "strong"
)

// PasswordStrength scores a password 0-100: 25 points each for length
// of at least 8, an uppercase letter, a digit and a symbol.
func PasswordStrength(password string) (score int, label StrengthLabel) {
	if len(password) >= 8 {
		score += 25
	}
	var hasUpper, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case !unicode.IsLetter(r) && !unicode.IsNumber(r) && !unicode.IsSpace(r):
			hasSymbol = true
		}
	}
	if hasUpper {
		score += 25
	}
	if hasDigit {
		score += 25
	}
	if hasSymbol {
		score += 25
	}

	switch {
	case score <= 25:
		label = StrengthWeak
	case score == 50:
		label = StrengthFair
	case score == 75:
		label = StrengthGood
	default:
		label = StrengthStrong
	}
	return score, label
}
