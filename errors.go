package paylink

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure by how callers are expected to react to it.
type ErrorKind string

const (
	// InputError covers malformed handles and malformed intents. Never retried.
	InputError ErrorKind = "input_error"
	// NotFoundError covers unlinked handles and absent chain/token/tag entries.
	NotFoundError ErrorKind = "not_found"
	// SourceUnavailableError is surfaced only after every redundant source failed.
	SourceUnavailableError ErrorKind = "source_unavailable"
	// ValidationFailure means a RoutingDocument failed the validation pipeline.
	ValidationFailure ErrorKind = "validation_failure"
	// SubmissionContention is a nonce race while relaying.
	SubmissionContention ErrorKind = "submission_contention"
	// InternalFault is an unexpected collaborator failure.
	InternalFault ErrorKind = "internal_fault"
)

// Error codes
const (
	ErrCodeInvalidHandleFormat      = "invalid_handle_format"
	ErrCodeHandleNotLinked          = "handle_not_linked"
	ErrCodeNameSourceUnavailable    = "name_source_unavailable"
	ErrCodeInvalidMetadataLocator   = "invalid_metadata_locator"
	ErrCodeMetadataFetchFailed      = "metadata_fetch_failed"
	ErrCodeInvalidMetadataSchema    = "invalid_metadata_schema"
	ErrCodeMetadataValidationFailed = "metadata_validation_failed"
	ErrCodeChainRequiredForToken    = "chain_required_for_token"
	ErrCodeUnknownChain             = "unknown_chain"
	ErrCodeUnknownToken             = "unknown_token"
	ErrCodeUnknownTag               = "unknown_tag"
	ErrCodeGasPriceUnavailable      = "gas_price_unavailable"
	ErrCodeUnknownTokenDecimals     = "unknown_token_decimals"
	ErrCodeUnsupportedChain         = "unsupported_chain"
	ErrCodeWrongChainConnected      = "wrong_chain_connected"
	ErrCodeInvalidAmount            = "invalid_amount"
	ErrCodeSubmissionExhausted      = "submission_exhausted"
)

var codeKinds = map[string]ErrorKind{
	ErrCodeInvalidHandleFormat:      InputError,
	ErrCodeHandleNotLinked:          NotFoundError,
	ErrCodeNameSourceUnavailable:    SourceUnavailableError,
	ErrCodeInvalidMetadataLocator:   InputError,
	ErrCodeMetadataFetchFailed:      SourceUnavailableError,
	ErrCodeInvalidMetadataSchema:    InputError,
	ErrCodeMetadataValidationFailed: ValidationFailure,
	ErrCodeChainRequiredForToken:    InputError,
	ErrCodeUnknownChain:             NotFoundError,
	ErrCodeUnknownToken:             NotFoundError,
	ErrCodeUnknownTag:               NotFoundError,
	ErrCodeGasPriceUnavailable:      SourceUnavailableError,
	ErrCodeUnknownTokenDecimals:     NotFoundError,
	ErrCodeUnsupportedChain:         InputError,
	ErrCodeWrongChainConnected:      InputError,
	ErrCodeInvalidAmount:            InputError,
	ErrCodeSubmissionExhausted:      SubmissionContention,
}

// Error is a business-level failure carrying a stable code.
type Error struct {
	Kind    ErrorKind              `json:"kind"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Err     error                  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new error for a known code. The kind is derived from the code.
func NewError(code, message string) *Error {
	kind, ok := codeKinds[code]
	if !ok {
		kind = InternalFault
	}
	return &Error{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// WithDetail attaches a diagnostic value and returns the same error.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Wrap sets the underlying cause and returns the same error.
func (e *Error) Wrap(err error) *Error {
	e.Err = err
	return e
}

// IsCode reports whether err is (or wraps) a *Error with the given code.
func IsCode(err error, code string) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code == code
	}
	return false
}

// KindOf returns the kind of err, or InternalFault for foreign errors.
func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return InternalFault
}

// ValidationResultOf extracts the diagnostics attached to a
// metadata_validation_failed error.
func ValidationResultOf(err error) *ValidationResult {
	var pe *Error
	if !errors.As(err, &pe) || pe.Details == nil {
		return nil
	}
	result, _ := pe.Details["validation"].(*ValidationResult)
	return result
}
