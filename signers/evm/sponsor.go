package evm

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	relayevm "github.com/somnia-social/relay/evm"
)

const (
	readTimeout      = 10 * time.Second
	readRetryTimeout = 5 * time.Second
	receiptPollEvery = time.Second
)

// SponsorSigner holds the sponsor's gas-paying key and its RPC connection.
// The key and its balance are a singleton resource shared across all relay
// requests, so submissions are serialized: nonce fetch, signing and send
// happen under one lock to keep the sponsor account's transaction nonces in
// order. Reads get one bounded retry on transient RPC failure; submission is
// never retried, since a blind resubmit can spend gas twice.
type SponsorSigner struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	client     *ethclient.Client
	chainID    *big.Int

	submitMu sync.Mutex
}

// NewSponsorSigner creates a sponsor signer from a hex private key and an
// RPC endpoint, resolving the chain ID eagerly so a bad endpoint fails at
// startup rather than on the first relay.
func NewSponsorSigner(ctx context.Context, privateKeyHex, rpcURL string) (*SponsorSigner, error) {
	privateKeyHex = strings.TrimPrefix(privateKeyHex, "0x")

	privateKey, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid sponsor private key: %w", err)
	}

	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC: %w", err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}

	return &SponsorSigner{
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(privateKey.PublicKey),
		client:     client,
		chainID:    chainID,
	}, nil
}

// Address returns the sponsor's Ethereum address.
func (s *SponsorSigner) Address() string {
	return s.address.Hex()
}

// ChainID returns the chain ID resolved at construction.
func (s *SponsorSigner) ChainID(ctx context.Context) (*big.Int, error) {
	return s.chainID, nil
}

// withReadRetry runs a ledger read with a timeout and one retry on a
// shorter timeout. Applies to reads only.
func withReadRetry[T any](ctx context.Context, read func(context.Context) (T, error)) (T, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, readTimeout)
	result, err := read(attemptCtx)
	cancel()
	if err == nil || ctx.Err() != nil {
		return result, err
	}

	attemptCtx, cancel = context.WithTimeout(ctx, readRetryTimeout)
	defer cancel()
	return read(attemptCtx)
}

// ReadContract executes a read-only contract call and unpacks the result.
// Single-output methods return the bare value.
func (s *SponsorSigner) ReadContract(
	ctx context.Context,
	contractAddress string,
	abiJSON []byte,
	method string,
	args ...interface{},
) (interface{}, error) {
	contractABI, err := abi.JSON(strings.NewReader(string(abiJSON)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ABI: %w", err)
	}

	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack method call: %w", err)
	}

	to := common.HexToAddress(contractAddress)
	msg := ethereum.CallMsg{
		To:   &to,
		Data: data,
	}

	result, err := withReadRetry(ctx, func(ctx context.Context) ([]byte, error) {
		return s.client.CallContract(ctx, msg, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("contract call failed: %w", err)
	}

	outputs, err := contractABI.Unpack(method, result)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack result: %w", err)
	}

	if len(outputs) == 0 {
		return nil, nil
	}
	if len(outputs) == 1 {
		return outputs[0], nil
	}
	return outputs, nil
}

// NativeBalance returns the native-token balance of an address.
func (s *SponsorSigner) NativeBalance(ctx context.Context, address string) (*big.Int, error) {
	return withReadRetry(ctx, func(ctx context.Context) (*big.Int, error) {
		return s.client.BalanceAt(ctx, common.HexToAddress(address), nil)
	})
}

// EstimateGas dry-runs the exact transaction the sponsor is about to submit.
// An estimation failure means the batch would revert on-chain; callers treat
// it as a rejection without spending gas.
func (s *SponsorSigner) EstimateGas(ctx context.Context, to string, data []byte) (uint64, error) {
	toAddr := common.HexToAddress(to)
	msg := ethereum.CallMsg{
		From: s.address,
		To:   &toAddr,
		Data: data,
	}

	estimateCtx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()
	return s.client.EstimateGas(estimateCtx, msg)
}

// SendTransaction signs and submits a transaction from the sponsor key with
// an explicit gas-limit ceiling. Not retried on failure.
func (s *SponsorSigner) SendTransaction(ctx context.Context, to string, data []byte, gasLimit uint64) (string, error) {
	s.submitMu.Lock()
	defer s.submitMu.Unlock()

	nonce, err := s.client.PendingNonceAt(ctx, s.address)
	if err != nil {
		return "", fmt.Errorf("failed to get sponsor nonce: %w", err)
	}

	gasPrice, err := s.client.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get gas price: %w", err)
	}

	toAddr := common.HexToAddress(to)
	tx := types.NewTransaction(
		nonce,
		toAddr,
		big.NewInt(0),
		gasLimit,
		gasPrice,
		data,
	)

	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(s.chainID), s.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := s.client.SendTransaction(ctx, signedTx); err != nil {
		return "", fmt.Errorf("failed to send transaction: %w", err)
	}

	return signedTx.Hash().Hex(), nil
}

// WaitForReceipt polls for the transaction receipt until the context
// expires. A context timeout here does not mean the transaction failed;
// it may still confirm later, and callers must surface that distinctly.
func (s *SponsorSigner) WaitForReceipt(ctx context.Context, txHash string) (*relayevm.TransactionReceipt, error) {
	hash := common.HexToHash(txHash)

	for {
		receipt, err := s.client.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			return &relayevm.TransactionReceipt{
				Status:      receipt.Status,
				BlockNumber: receipt.BlockNumber.Uint64(),
				TxHash:      receipt.TxHash.Hex(),
				GasUsed:     receipt.GasUsed,
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("timed out waiting for receipt of %s: %w", txHash, ctx.Err())
		case <-time.After(receiptPollEvery):
		}
	}
}
