package evm

// EIP-712 domain fixed fields for the batch relayer. Chain ID and verifying
// contract vary per deployment; name and version must match the contract's
// domain separator byte for byte.
const (
	BatchDomainName    = "BatchRelayer"
	BatchDomainVersion = "1"
)

// PrimaryTypeBatchExecution is the primary type of the signed struct.
const PrimaryTypeBatchExecution = "BatchExecution"

// BatchExecutionTypes is the EIP-712 type schema for a relayed batch.
// The Call[] array hash nests into the BatchExecution struct hash, so both
// type definitions must be present and ordered exactly as below.
func BatchExecutionTypes() map[string][]TypedDataField {
	return map[string][]TypedDataField{
		"EIP712Domain": {
			{Name: "name", Type: "string"},
			{Name: "version", Type: "string"},
			{Name: "chainId", Type: "uint256"},
			{Name: "verifyingContract", Type: "address"},
		},
		"BatchExecution": {
			{Name: "user", Type: "address"},
			{Name: "calls", Type: "Call[]"},
			{Name: "nonce", Type: "uint256"},
			{Name: "deadline", Type: "uint256"},
		},
		"Call": {
			{Name: "target", Type: "address"},
			{Name: "value", Type: "uint256"},
			{Name: "data", Type: "bytes"},
		},
	}
}
