package evm

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	relayevm "github.com/somnia-social/relay/evm"
)

// ClientSigner implements relayevm.ClientSigner using an ECDSA private key.
// Signing is purely local: nothing is broadcast and no gas is spent, which
// is the whole point of the gasless flow.
type ClientSigner struct {
	privateKey *ecdsa.PrivateKey
	address    string
}

// NewClientSignerFromPrivateKey creates a client signer from a hex-encoded
// private key (with or without "0x" prefix).
func NewClientSignerFromPrivateKey(privateKeyHex string) (*ClientSigner, error) {
	privateKeyHex = strings.TrimPrefix(privateKeyHex, "0x")

	privateKey, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	return &ClientSigner{
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(privateKey.PublicKey).Hex(),
	}, nil
}

// Address returns the Ethereum address of the signer.
func (s *ClientSigner) Address() string {
	return s.address
}

// SignTypedData signs EIP-712 typed data, returning a 65-byte (r, s, v)
// signature with v in Ethereum's 27/28 form.
func (s *ClientSigner) SignTypedData(
	ctx context.Context,
	domain relayevm.TypedDataDomain,
	types map[string][]relayevm.TypedDataField,
	primaryType string,
	message map[string]interface{},
) ([]byte, error) {
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

	rawData := []byte{0x19, 0x01}
	rawData = append(rawData, domainSeparator...)
	rawData = append(rawData, dataHash...)
	digest := crypto.Keccak256(rawData)

	signature, err := crypto.Sign(digest, s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign: %w", err)
	}

	// Recovery ID 0/1 -> 27/28
	signature[64] += 27

	return signature, nil
}

// SignBatchExecution signs a batch execution payload under the batch relayer
// domain for the given deployment.
func (s *ClientSigner) SignBatchExecution(
	ctx context.Context,
	chainID *big.Int,
	verifyingContract string,
	calls []relayevm.BatchCall,
	nonce uint64,
	deadline int64,
) ([]byte, error) {
	return s.SignTypedData(
		ctx,
		relayevm.BatchDomain(chainID, verifyingContract),
		relayevm.BatchExecutionTypes(),
		relayevm.PrimaryTypeBatchExecution,
		relayevm.BatchExecutionMessage(s.address, calls, nonce, deadline),
	)
}
