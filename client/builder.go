package client

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	relay "github.com/somnia-social/relay"
	"github.com/somnia-social/relay/contracts"
	"github.com/somnia-social/relay/evm"
)

// NonceReader reads a user's current relay nonce from the chain.
type NonceReader interface {
	Nonce(ctx context.Context, user string) (uint64, error)
}

// BatchSigner is the slice of signing capability the builder needs from the
// user's wallet. Signing may block on user interaction and costs no gas.
type BatchSigner interface {
	Address() string
	SignBatchExecution(ctx context.Context, chainID *big.Int, verifyingContract string, calls []evm.BatchCall, nonce uint64, deadline int64) ([]byte, error)
}

// Builder assembles relay requests: it encodes actions into ordered calls,
// fetches the current nonce immediately before signing to shrink the race
// window against other in-flight batches for the same user, stamps a
// deadline, and obtains the EIP-712 signature.
type Builder struct {
	chainID        *big.Int
	relayerAddress string
	book           contracts.AddressBook
	signer         BatchSigner
	nonces         NonceReader
	deadlineWindow time.Duration

	now func() time.Time
}

// NewBuilder creates a request builder for one relayer deployment.
func NewBuilder(chainID *big.Int, relayerAddress string, book contracts.AddressBook, signer BatchSigner, nonces NonceReader) *Builder {
	return &Builder{
		chainID:        chainID,
		relayerAddress: relayerAddress,
		book:           book,
		signer:         signer,
		nonces:         nonces,
		deadlineWindow: time.Duration(relay.DefaultDeadlineWindow) * time.Second,
		now:            time.Now,
	}
}

// WithDeadlineWindow overrides the default one-hour deadline horizon. A
// window shorter than expected network latency will expire requests before
// they can be relayed.
func (b *Builder) WithDeadlineWindow(d time.Duration) *Builder {
	b.deadlineWindow = d
	return b
}

// BuildCalls encodes logical actions into ordered calls. Output order
// matches input order; execution order on-chain follows it.
func (b *Builder) BuildCalls(actions []Action) ([]relay.Call, error) {
	if len(actions) == 0 {
		return nil, fmt.Errorf("no actions to encode")
	}
	user := common.HexToAddress(b.signer.Address())
	calls := make([]relay.Call, 0, len(actions))
	for i, action := range actions {
		target, data, err := action.Encode(b.book, user)
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}
		calls = append(calls, relay.Call{
			Target: target,
			Value:  "0",
			Data:   evm.BytesToHex(data),
		})
	}
	return calls, nil
}

// FetchNonce reads the signer's current relay nonce.
func (b *Builder) FetchNonce(ctx context.Context) (uint64, error) {
	return b.nonces.Nonce(ctx, b.signer.Address())
}

// Sign produces a complete signed relay request for the given calls. The
// nonce is fetched here, not earlier, so it is as fresh as possible when
// the wallet prompt appears.
func (b *Builder) Sign(ctx context.Context, calls []relay.Call) (*relay.RelayRequest, error) {
	if len(calls) == 0 {
		return nil, fmt.Errorf("no calls to sign")
	}

	nonce, err := b.FetchNonce(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch nonce: %w", err)
	}

	deadline := b.now().Unix() + int64(b.deadlineWindow/time.Second)

	batchCalls, err := toBatchCalls(calls)
	if err != nil {
		return nil, err
	}

	signature, err := b.signer.SignBatchExecution(ctx, b.chainID, b.relayerAddress, batchCalls, nonce, deadline)
	if err != nil {
		return nil, fmt.Errorf("signing aborted: %w", err)
	}

	return &relay.RelayRequest{
		User:      b.signer.Address(),
		Calls:     calls,
		Nonce:     nonce,
		Deadline:  deadline,
		Signature: evm.BytesToHex(signature),
	}, nil
}

// BuildAndSign is the one-shot path: actions in, signed request out.
func (b *Builder) BuildAndSign(ctx context.Context, actions []Action) (*relay.RelayRequest, error) {
	calls, err := b.BuildCalls(actions)
	if err != nil {
		return nil, err
	}
	return b.Sign(ctx, calls)
}

func toBatchCalls(calls []relay.Call) ([]evm.BatchCall, error) {
	batchCalls := make([]evm.BatchCall, len(calls))
	for i, call := range calls {
		value, ok := call.ValueBig()
		if !ok {
			return nil, fmt.Errorf("call %d: invalid value %q", i, call.Value)
		}
		data, err := evm.HexToBytes(call.Data)
		if err != nil {
			return nil, fmt.Errorf("call %d: invalid calldata: %w", i, err)
		}
		batchCalls[i] = evm.BatchCall{
			Target: call.Target,
			Value:  value,
			Data:   data,
		}
	}
	return batchCalls, nil
}

// RPCNonceReader reads relay nonces over a plain RPC connection. This is the
// unauthenticated read path a client uses; no sponsor key involved.
type RPCNonceReader struct {
	client         *ethclient.Client
	relayerAddress common.Address
}

// NewRPCNonceReader dials the RPC endpoint and binds it to the relayer
// contract address.
func NewRPCNonceReader(ctx context.Context, rpcURL, relayerAddress string) (*RPCNonceReader, error) {
	ethClient, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC: %w", err)
	}
	return &RPCNonceReader{
		client:         ethClient,
		relayerAddress: common.HexToAddress(relayerAddress),
	}, nil
}

// Nonce reads the current relay nonce for a user.
func (r *RPCNonceReader) Nonce(ctx context.Context, user string) (uint64, error) {
	data, err := contracts.PackNonce(common.HexToAddress(user))
	if err != nil {
		return 0, err
	}

	result, err := r.client.CallContract(ctx, ethereum.CallMsg{
		To:   &r.relayerAddress,
		Data: data,
	}, nil)
	if err != nil {
		return 0, fmt.Errorf("nonce read failed: %w", err)
	}

	nonce, err := contracts.UnpackNonce(result)
	if err != nil {
		return 0, err
	}
	return nonce.Uint64(), nil
}
