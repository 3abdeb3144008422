// Package isbn validates and converts ISBN identifiers.
package isbn

import (
	"fmt"
	"strings"

	"github.com/and161185/bookshelf/internal/errs"
)

// Validate checks that s is a well-formed ISBN-13 with a correct check digit.
func Validate(s string) error {
	switch {
	case s == "":
		return fmt.Errorf("%w: isbn13 is empty", errs.ErrInvalidInput)
	case len(s) != 13:
		return fmt.Errorf("%w: isbn13 length should be 13", errs.ErrInvalidInput)
	case !strings.HasPrefix(s, "978") && !strings.HasPrefix(s, "979"):
		return fmt.Errorf("%w: isbn13 should start with 978 or 979", errs.ErrInvalidInput)
	case !digits(s):
		return fmt.Errorf("%w: isbn13 should be only numeric", errs.ErrInvalidInput)
	}
	want := checkDigit13(s[:12])
	if got := s[12]; got != want {
		return fmt.Errorf("%w: invalid isbn13 check digit %c, expected %c", errs.ErrInvalidInput, got, want)
	}
	return nil
}

// Clean strips hyphens and surrounding spaces.
func Clean(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "-", "")
}

// FromISBN10 converts a ten character ISBN-10 into its 978-prefixed ISBN-13.
// The ISBN-10 check character is not verified, only its shape.
func FromISBN10(s string) (string, bool) {
	s = Clean(s)
	if len(s) != 10 || !digits(s[:9]) {
		return "", false
	}
	if last := s[9]; (last < '0' || last > '9') && last != 'X' {
		return "", false
	}
	base := "978" + s[:9]
	return base + string(checkDigit13(base)), true
}

// checkDigit13 computes the ISBN-13 check digit for a 12 digit prefix.
func checkDigit13(prefix string) byte {
	sum := 0
	for i := 0; i < len(prefix); i++ {
		n := int(prefix[i] - '0')
		if i%2 == 0 {
			sum += n
		} else {
			sum += 3 * n
		}
	}
	return byte('0' + (10-sum%10)%10)
}

func digits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
