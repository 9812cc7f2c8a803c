package password

import (
	"fmt"
	"unicode"
)

// MinLength is the floor for the configurable minimum password length.
const MinLength = 8

// Violation identifies one failed policy rule.
type Violation string

const (
	ViolationTooShort Violation = "too_short"
	ViolationTooLong  Violation = "too_long"
	ViolationNoUpper  Violation = "missing_uppercase"
	ViolationNoLower  Violation = "missing_lowercase"
	ViolationNoDigit  Violation = "missing_digit"
	ViolationNoSymbol Violation = "missing_symbol"
)

// Policy is the password strength rule set. MinLength counts characters.
// MaxLength counts bytes and is also the cap applied by the hasher. Symbols
// are Unicode punctuation or symbol characters; whitespace does not count.
type Policy struct {
	MinLength     int
	MaxLength     int
	RequireUpper  bool
	RequireLower  bool
	RequireDigit  bool
	RequireSymbol bool
}

// DefaultPolicy requires at least eight characters with one upper-case
// letter, one lower-case letter, one digit and one symbol.
func DefaultPolicy() Policy {
	return Policy{
		MinLength:     MinLength,
		MaxLength:     1024,
		RequireUpper:  true,
		RequireLower:  true,
		RequireDigit:  true,
		RequireSymbol: true,
	}
}

// Validate rejects a policy weaker than the built-in floor.
func (p Policy) Validate() error {
	if p.MinLength < MinLength {
		return fmt.Errorf("password min length must be >= %d", MinLength)
	}
	if p.MaxLength <= 0 {
		return fmt.Errorf("password max length must be > 0")
	}
	if p.MaxLength < p.MinLength {
		return fmt.Errorf("password max length must be >= min length")
	}
	return nil
}

// Check evaluates every rule against pw and returns all violations in a
// stable order. An empty result means pw is acceptable.
func (p Policy) Check(pw string) []Violation {
	var (
		upper, lower, digit, symbol bool
		length                      int
	)
	for _, r := range pw {
		length++
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}

	floor := p.MinLength
	if floor < MinLength {
		floor = MinLength
	}

	var out []Violation
	if length < floor {
		out = append(out, ViolationTooShort)
	}
	if p.MaxLength > 0 && len(pw) > p.MaxLength {
		out = append(out, ViolationTooLong)
	}
	if p.RequireUpper && !upper {
		out = append(out, ViolationNoUpper)
	}
	if p.RequireLower && !lower {
		out = append(out, ViolationNoLower)
	}
	if p.RequireDigit && !digit {
		out = append(out, ViolationNoDigit)
	}
	if p.RequireSymbol && !symbol {
		out = append(out, ViolationNoSymbol)
	}
	return out
}

// Describe returns a human-readable sentence for v.
func (v Violation) Describe(p Policy) string {
	switch v {
	case ViolationTooShort:
		return fmt.Sprintf("password must be at least %d characters", max(p.MinLength, MinLength))
	case ViolationTooLong:
		return fmt.Sprintf("password must be at most %d bytes", p.MaxLength)
	case ViolationNoUpper:
		return "password must contain an uppercase letter"
	case ViolationNoLower:
		return "password must contain a lowercase letter"
	case ViolationNoDigit:
		return "password must contain a digit"
	case ViolationNoSymbol:
		return "password must contain a symbol"
	default:
		return string(v)
	}
}
