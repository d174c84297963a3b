package paylink

import (
	"regexp"
	"strings"
)

// PresentationMarker prefixes a handle when shown to people ("@alice").
const PresentationMarker = "@"

var (
	handlePattern    = regexp.MustCompile(`^\w{2,32}$`)
	canonicalPattern = regexp.MustCompile(`^[a-z0-9_]{2,32}$`)
)

// Normalize converts a handle into its canonical form: the presentation
// marker is stripped and the remainder is lowercased. It fails with
// invalid_handle_format unless the remainder has 2 to 32 characters drawn
// from letters, digits and underscore.
func Normalize(input string) (string, error) {
	name := strings.TrimPrefix(input, PresentationMarker)
	if !handlePattern.MatchString(name) {
		return "", NewError(ErrCodeInvalidHandleFormat,
			"valid handles have between 2 and 32 characters including letters, numbers and underscore").
			WithDetail("handle", input)
	}
	return strings.ToLower(name), nil
}

// IsCanonical reports whether input is already in canonical form.
func IsCanonical(input string) bool {
	return canonicalPattern.MatchString(input)
}

// IsPresentationForm reports whether input is "@" followed by a canonical handle.
func IsPresentationForm(input string) bool {
	return strings.HasPrefix(input, PresentationMarker) && IsCanonical(input[len(PresentationMarker):])
}

// ToPresentationForm returns "@<canonical>".
func ToPresentationForm(input string) (string, error) {
	canonical, err := Normalize(input)
	if err != nil {
		return "", err
	}
	return PresentationMarker + canonical, nil
}

// LedgerKey normalizes input and right-pads it with zero bytes into the
// fixed-width key the names registry is indexed by.
func LedgerKey(input string) ([32]byte, error) {
	var key [32]byte
	canonical, err := Normalize(input)
	if err != nil {
		return key, err
	}
	copy(key[:], canonical)
	return key, nil
}
