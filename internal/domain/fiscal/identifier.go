// Package fiscal classifies and checksum-validates Spanish fiscal
// identifiers (NIF, NIE, CIF). All functions are pure and never panic;
// malformed input yields KindInvalid / false.
package fiscal

import (
	"strings"
)

// Kind is the classification of a fiscal identifier
type Kind string

const (
	// KindNIF is the national identifier for individuals: 8 digits + check letter
	KindNIF Kind = "nif"
	// KindNIE is the identifier for foreign residents: X/Y/Z + 7 digits + check letter
	KindNIE Kind = "nie"
	// KindCIF is the identifier for organizations: org letter + 7 digits + check digit or letter
	KindCIF Kind = "cif"
	// KindInvalid marks anything that matches no known shape
	KindInvalid Kind = "invalid"
)

// String returns the string representation of the kind
func (k Kind) String() string {
	return string(k)
}

// checkLetters is the reference alphabet indexed by value mod 23 (NIF/NIE)
const checkLetters = "TRWAGMYFPDXBNJZSQVHLCKE"

// cifControlLetters is the control alphabet indexed by the CIF control digit
const cifControlLetters = "JABCDEFGHI"

// cifOrgLetters is the set of valid CIF leading (organization-type) letters
const cifOrgLetters = "ABCDEFGHJKLMNPQRSUVW"

// cifLetterOnly are leading letters whose control value is officially a
// letter. The reference behavior accepts either representation for the
// remaining letters, and that permissiveness is kept on purpose.
const cifLetterOnly = "KPQSNW"

// Normalize uppercases the input and strips every character outside [A-Z0-9]
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range strings.ToUpper(raw) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Classify returns the shape-based classification of the identifier.
// A non-Invalid kind is necessary but not sufficient for validity; the
// checksum must also pass (see Validate).
func Classify(raw string) Kind {
	s := Normalize(raw)
	if len(s) != 9 {
		return KindInvalid
	}

	switch {
	case isNIFShape(s):
		return KindNIF
	case isNIEShape(s):
		return KindNIE
	case isCIFShape(s):
		return KindCIF
	default:
		return KindInvalid
	}
}

// Validate reports whether the identifier has a known shape and a correct
// check value. It never panics and returns false for any malformed input,
// including the empty string.
func Validate(raw string) bool {
	s := Normalize(raw)
	if len(s) != 9 {
		return false
	}

	switch {
	case isNIFShape(s):
		return validateNIF(s)
	case isNIEShape(s):
		return validateNIE(s)
	case isCIFShape(s):
		return validateCIF(s)
	default:
		return false
	}
}

func isNIFShape(s string) bool {
	for i := 0; i < 8; i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return isUpper(s[8])
}

func isNIEShape(s string) bool {
	if s[0] != 'X' && s[0] != 'Y' && s[0] != 'Z' {
		return false
	}
	for i := 1; i < 8; i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return isUpper(s[8])
}

func isCIFShape(s string) bool {
	if !strings.ContainsRune(cifOrgLetters, rune(s[0])) {
		return false
	}
	for i := 1; i < 8; i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return isDigit(s[8]) || isUpper(s[8])
}

func validateNIF(s string) bool {
	value := 0
	for i := 0; i < 8; i++ {
		value = value*10 + int(s[i]-'0')
	}
	return checkLetters[value%23] == s[8]
}

func validateNIE(s string) bool {
	// X/Y/Z stand in for a leading 0/1/2 digit
	var lead int
	switch s[0] {
	case 'X':
		lead = 0
	case 'Y':
		lead = 1
	case 'Z':
		lead = 2
	}
	value := lead
	for i := 1; i < 8; i++ {
		value = value*10 + int(s[i]-'0')
	}
	return checkLetters[value%23] == s[8]
}

func validateCIF(s string) bool {
	sum := 0
	for i := 0; i < 7; i++ {
		digit := int(s[i+1] - '0')
		if i%2 == 0 {
			doubled := digit * 2
			sum += doubled/10 + doubled%10
		} else {
			sum += digit
		}
	}
	control := (10 - sum%10) % 10

	check := s[8]
	if strings.ContainsRune(cifLetterOnly, rune(s[0])) {
		return check == cifControlLetters[control]
	}
	// Either representation is accepted for the remaining organization types
	return check == byte('0'+control) || check == cifControlLetters[control]
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isUpper(c byte) bool {
	return c >= 'A' && c <= 'Z'
}
