package relay

import "fmt"

// RelayError is a relay-specific error with a stable machine-readable code.
type RelayError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *RelayError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes, one per distinct validation or execution failure. The HTTP
// layer maps these to statuses; clients branch on them to decide whether a
// retry with a fresh nonce/deadline makes sense.
const (
	ErrCodeMissingFields        = "missing_fields"
	ErrCodeInvalidRequest       = "invalid_request"
	ErrCodeDeadlineExpired      = "deadline_expired"
	ErrCodeSponsorMisconfigured = "sponsor_misconfigured"
	ErrCodeInsufficientFunds    = "insufficient_funds"
	ErrCodeSponsorUnauthorized  = "sponsor_unauthorized"
	ErrCodeTargetNotAllowed     = "target_not_allowed"
	ErrCodeBadSignature         = "bad_signature"
	ErrCodeNonceMismatch        = "nonce_mismatch"
	ErrCodeEstimationFailed     = "estimation_failed"
	ErrCodeCallReverted         = "call_reverted"
	ErrCodeConfirmationTimeout  = "confirmation_timeout"
	ErrCodeInternal             = "internal_error"
)

// NewRelayError creates a new relay error.
func NewRelayError(code, message string, details map[string]interface{}) *RelayError {
	return &RelayError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// Errorf creates a relay error with a formatted message and no details.
func Errorf(code, format string, args ...interface{}) *RelayError {
	return &RelayError{Code: code, Message: fmt.Sprintf(format, args...)}
}
