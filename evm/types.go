package evm

import (
	"context"
	"math/big"
)

// TypedDataDomain represents the EIP-712 domain separator
type TypedDataDomain struct {
	Name              string   `json:"name"`
	Version           string   `json:"version"`
	ChainID           *big.Int `json:"chainId"`
	VerifyingContract string   `json:"verifyingContract"`
}

// TypedDataField represents a field in EIP-712 typed data
type TypedDataField struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// TransactionReceipt represents the receipt of a mined transaction
type TransactionReceipt struct {
	Status      uint64 `json:"status"`
	BlockNumber uint64 `json:"blockNumber"`
	TxHash      string `json:"transactionHash"`
	GasUsed     uint64 `json:"gasUsed"`
}

// ClientSigner defines client-side signing: a purely local operation over
// the user's key, never an on-chain submission.
type ClientSigner interface {
	// Address returns the signer's Ethereum address
	Address() string

	// SignTypedData signs EIP-712 typed data
	SignTypedData(ctx context.Context, domain TypedDataDomain, types map[string][]TypedDataField, primaryType string, message map[string]interface{}) ([]byte, error)
}

// SponsorSigner defines the operations the relay service performs with the
// sponsor's gas-paying key and its RPC connection. The application-level
// per-user nonce and the sponsor account's own transaction nonce are
// separate spaces; implementations own the latter.
type SponsorSigner interface {
	// Address returns the sponsor's Ethereum address
	Address() string

	// ChainID returns the chain ID of the connected network
	ChainID(ctx context.Context) (*big.Int, error)

	// ReadContract executes a read-only contract call
	ReadContract(ctx context.Context, address string, abiJSON []byte, method string, args ...interface{}) (interface{}, error)

	// NativeBalance returns the native-token balance of an address
	NativeBalance(ctx context.Context, address string) (*big.Int, error)

	// EstimateGas dry-runs the exact calldata the sponsor is about to submit
	EstimateGas(ctx context.Context, to string, data []byte) (uint64, error)

	// SendTransaction signs and submits a transaction from the sponsor key
	// with an explicit gas-limit ceiling, returning the transaction hash
	SendTransaction(ctx context.Context, to string, data []byte, gasLimit uint64) (string, error)

	// WaitForReceipt blocks until the transaction is mined or ctx expires
	WaitForReceipt(ctx context.Context, txHash string) (*TransactionReceipt, error)
}

// TxStatusSuccess is the receipt status of a non-reverted transaction.
const TxStatusSuccess uint64 = 1
