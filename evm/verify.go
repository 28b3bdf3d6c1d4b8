package evm

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// HexToBytes decodes a 0x-prefixed (or bare) hex string.
func HexToBytes(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("odd-length hex string")
	}
	return hex.DecodeString(s)
}

// BytesToHex encodes bytes as a 0x-prefixed hex string.
func BytesToHex(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

// RecoverTypedDataSigner recovers the address that produced signature over
// the given 32-byte EIP-712 digest. Accepts both 0/1 and 27/28 recovery ids.
func RecoverTypedDataSigner(digest []byte, signature []byte) (common.Address, error) {
	if len(signature) != 65 {
		return common.Address{}, fmt.Errorf("invalid signature length: %d", len(signature))
	}

	sigCopy := make([]byte, 65)
	copy(sigCopy, signature)
	if sigCopy[64] >= 27 {
		sigCopy[64] -= 27
	}

	pubKey, err := crypto.SigToPub(digest, sigCopy)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover public key: %w", err)
	}

	return crypto.PubkeyToAddress(*pubKey), nil
}

// RecoverBatchSigner recovers the signer of a batch execution payload.
func RecoverBatchSigner(
	chainID *big.Int,
	verifyingContract string,
	user string,
	calls []BatchCall,
	nonce uint64,
	deadline int64,
	signature []byte,
) (common.Address, error) {
	digest, err := HashBatchExecution(chainID, verifyingContract, user, calls, nonce, deadline)
	if err != nil {
		return common.Address{}, err
	}
	return RecoverTypedDataSigner(digest, signature)
}

// VerifyBatchSignature reports whether signature recovers to the claimed
// user under the exact batch relayer domain and struct schema.
func VerifyBatchSignature(
	chainID *big.Int,
	verifyingContract string,
	user string,
	calls []BatchCall,
	nonce uint64,
	deadline int64,
	signature []byte,
) (bool, error) {
	recovered, err := RecoverBatchSigner(chainID, verifyingContract, user, calls, nonce, deadline, signature)
	if err != nil {
		return false, err
	}
	expected := common.HexToAddress(user)
	return bytes.Equal(recovered.Bytes(), expected.Bytes()), nil
}
