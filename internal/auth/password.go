package auth

import (
	"fmt"
	"strings"
	"unicode"
)

// PasswordPolicy mirrors the account password rules: minimum length plus
// required character classes.
type PasswordPolicy struct {
	MinLength      int
	RequireUpper   bool
	RequireLower   bool
	RequireDigit   bool
	RequireSpecial bool
}

// DefaultPasswordPolicy is the policy applied to all registrations.
var DefaultPasswordPolicy = PasswordPolicy{
	MinLength:      8,
	RequireUpper:   true,
	RequireLower:   true,
	RequireDigit:   true,
	RequireSpecial: true,
}

const specialChars = `!@#$%^&*(),.?":{}|<>`

// Validate returns one message per violated rule. An empty slice means the
// password satisfies the policy.
func (p PasswordPolicy) Validate(password string) []string {
	var violations []string
	if len(password) < p.MinLength {
		violations = append(violations, fmt.Sprintf("password must be at least %d characters long", p.MinLength))
	}
	if p.RequireUpper && !strings.ContainsFunc(password, unicode.IsUpper) {
		violations = append(violations, "password must contain at least one uppercase letter")
	}
	if p.RequireLower && !strings.ContainsFunc(password, unicode.IsLower) {
		violations = append(violations, "password must contain at least one lowercase letter")
	}
	if p.RequireDigit && !strings.ContainsFunc(password, unicode.IsDigit) {
		violations = append(violations, "password must contain at least one digit")
	}
	if p.RequireSpecial && !strings.ContainsAny(password, specialChars) {
		violations = append(violations, "password must contain at least one special character")
	}
	return violations
}

// ValidatePassword applies the default policy.
func ValidatePassword(password string) []string {
	return DefaultPasswordPolicy.Validate(password)
}
