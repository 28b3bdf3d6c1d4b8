package relay

import "regexp"

var (
	addressPattern = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)
	hexPattern     = regexp.MustCompile(`^0x[a-fA-F0-9]*$`)
	numericPattern = regexp.MustCompile(`^[0-9]+$`)
)

// IsHexAddress reports whether s is a 20-byte hex address with 0x prefix.
func IsHexAddress(s string) bool {
	return addressPattern.MatchString(s)
}

// ValidateRelayRequest performs structural validation of a relay request:
// required fields present and well-formed. It does not consult the chain;
// deadline, nonce, allow-list and signature checks happen in the relayer.
func ValidateRelayRequest(r *RelayRequest) *RelayError {
	if r.User == "" || len(r.Calls) == 0 || r.Signature == "" {
		return NewRelayError(ErrCodeMissingFields, "missing required fields", map[string]interface{}{
			"user":      r.User != "",
			"calls":     len(r.Calls) > 0,
			"signature": r.Signature != "",
		})
	}
	if !addressPattern.MatchString(r.User) {
		return Errorf(ErrCodeInvalidRequest, "invalid user address: %s", r.User)
	}
	if !hexPattern.MatchString(r.Signature) || len(r.Signature) != 132 {
		return Errorf(ErrCodeInvalidRequest, "invalid signature format: expected 65 hex-encoded bytes")
	}
	for i, call := range r.Calls {
		if !addressPattern.MatchString(call.Target) {
			return Errorf(ErrCodeInvalidRequest, "call %d: invalid target address: %s", i, call.Target)
		}
		if call.Value != "" && !numericPattern.MatchString(call.Value) {
			return Errorf(ErrCodeInvalidRequest, "call %d: invalid value: %s", i, call.Value)
		}
		if !hexPattern.MatchString(call.Data) {
			return Errorf(ErrCodeInvalidRequest, "call %d: invalid calldata: not hex", i)
		}
	}
	if r.Deadline <= 0 {
		return Errorf(ErrCodeInvalidRequest, "invalid deadline: %d", r.Deadline)
	}
	return nil
}
