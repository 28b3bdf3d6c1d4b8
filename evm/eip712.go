package evm

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// BatchCall is the decoded form of one call as it enters the EIP-712 struct
// hash. Value must be non-nil; Data may be empty.
type BatchCall struct {
	Target string
	Value  *big.Int
	Data   []byte
}

// HashTypedData hashes EIP-712 typed data according to the specification
//
// The hash is computed as: keccak256("\x19\x01" + domainSeparator + structHash)
// and is the digest that gets signed or recovered against.
func HashTypedData(
	domain TypedDataDomain,
	types map[string][]TypedDataField,
	primaryType string,
	message map[string]interface{},
) ([]byte, error) {
	// Convert our types to apitypes format for hashing
	typedData := apitypes.TypedData{
		Types:       make(apitypes.Types),
		PrimaryType: primaryType,
		Domain: apitypes.TypedDataDomain{
			Name:              domain.Name,
			Version:           domain.Version,
			ChainId:           (*math.HexOrDecimal256)(domain.ChainID),
			VerifyingContract: domain.VerifyingContract,
		},
		Message: message,
	}

	for typeName, fields := range types {
		typedFields := make([]apitypes.Type, len(fields))
		for i, field := range fields {
			typedFields[i] = apitypes.Type{
				Name: field.Name,
				Type: field.Type,
			}
		}
		typedData.Types[typeName] = typedFields
	}

	// Add EIP712Domain type if not present
	if _, exists := typedData.Types["EIP712Domain"]; !exists {
		typedData.Types["EIP712Domain"] = []apitypes.Type{
			{Name: "name", Type: "string"},
			{Name: "version", Type: "string"},
			{Name: "chainId", Type: "uint256"},
			{Name: "verifyingContract", Type: "address"},
		}
	}

	dataHash, err := typedData.HashStruct(typedData.PrimaryType, typedData.Message)
	if err != nil {
		return nil, fmt.Errorf("failed to hash struct: %w", err)
	}

	domainSeparator, err := typedData.HashStruct("EIP712Domain", typedData.Domain.Map())
	if err != nil {
		return nil, fmt.Errorf("failed to hash domain: %w", err)
	}

	// EIP-712 digest: 0x19 0x01 <domainSeparator> <dataHash>
	rawData := []byte{0x19, 0x01}
	rawData = append(rawData, domainSeparator...)
	rawData = append(rawData, dataHash...)
	digest := crypto.Keccak256(rawData)

	return digest, nil
}

// BatchDomain builds the batch relayer's EIP-712 domain for a deployment.
func BatchDomain(chainID *big.Int, verifyingContract string) TypedDataDomain {
	return TypedDataDomain{
		Name:              BatchDomainName,
		Version:           BatchDomainVersion,
		ChainID:           chainID,
		VerifyingContract: verifyingContract,
	}
}

// BatchExecutionMessage builds the EIP-712 message map for a batch. Addresses
// are checksummed so hashing is insensitive to caller-supplied casing.
func BatchExecutionMessage(user string, calls []BatchCall, nonce uint64, deadline int64) map[string]interface{} {
	callMaps := make([]interface{}, len(calls))
	for i, call := range calls {
		value := call.Value
		if value == nil {
			value = big.NewInt(0)
		}
		data := call.Data
		if data == nil {
			data = []byte{}
		}
		callMaps[i] = map[string]interface{}{
			"target": common.HexToAddress(call.Target).Hex(),
			"value":  value,
			"data":   data,
		}
	}
	return map[string]interface{}{
		"user":     common.HexToAddress(user).Hex(),
		"calls":    callMaps,
		"nonce":    new(big.Int).SetUint64(nonce),
		"deadline": big.NewInt(deadline),
	}
}

// HashBatchExecution computes the digest a user signs to authorize a batch.
// Any mismatch in domain or field content produces a different digest, which
// is what makes signature verification reject tampered requests.
func HashBatchExecution(
	chainID *big.Int,
	verifyingContract string,
	user string,
	calls []BatchCall,
	nonce uint64,
	deadline int64,
) ([]byte, error) {
	return HashTypedData(
		BatchDomain(chainID, verifyingContract),
		BatchExecutionTypes(),
		PrimaryTypeBatchExecution,
		BatchExecutionMessage(user, calls, nonce, deadline),
	)
}
