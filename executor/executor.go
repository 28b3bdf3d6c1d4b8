// Package executor models the batch relayer contract's semantics in
// process: EIP-712 verification, per-user nonces, an owner-gated allow-list
// and ordered call execution. It backs tests and local deployments, standing
// in for the on-chain contract without an RPC endpoint.
package executor

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/somnia-social/relay/evm"
)

// Revert reasons, matching the contract's error taxonomy. The relay service
// classifies estimation failures by these substrings, so the wording is part
// of the interface.
var (
	ErrBadSignature     = errors.New("invalid signature")
	ErrNonceMismatch    = errors.New("nonce mismatch")
	ErrDeadlineExpired  = errors.New("deadline expired")
	ErrTargetNotAllowed = errors.New("target not allowed")
)

// CallRevertedError reports which call in the batch failed. The batch is
// atomic: nothing before or after the failing call is kept.
type CallRevertedError struct {
	Index int
	Cause error
}

func (e *CallRevertedError) Error() string {
	return fmt.Sprintf("call %d reverted: %v", e.Index, e.Cause)
}

func (e *CallRevertedError) Unwrap() error {
	return e.Cause
}

// Target is the minimal callable capability a batch call dispatches into:
// value plus calldata in, return data or an error out. The allow-list is the
// authorization boundary; targets carry no type information.
type Target func(value *big.Int, data []byte) ([]byte, error)

// BatchExecuted is the event emitted once per committed batch.
type BatchExecuted struct {
	User      common.Address
	Nonce     uint64
	CallCount int
}

// Executor executes verified batches against registered targets. All
// executions are serialized under one lock, mirroring the ledger's global
// transaction ordering; that serialization is the concurrency control for
// the nonce store.
type Executor struct {
	chainID *big.Int
	address common.Address // verifying contract address in the EIP-712 domain

	Nonces    *NonceStore
	Allowlist *Allowlist

	mu      sync.Mutex
	targets map[common.Address]Target
	events  []BatchExecuted

	now func() int64
}

// New creates an executor for the given chain ID, relayer address and owner.
func New(chainID *big.Int, address common.Address, owner common.Address) *Executor {
	return &Executor{
		chainID:   chainID,
		address:   address,
		Nonces:    NewNonceStore(),
		Allowlist: NewAllowlist(owner),
		targets:   make(map[common.Address]Target),
		now:       func() int64 { return time.Now().Unix() },
	}
}

// WithClock overrides the time source. Tests use this to cross deadlines
// deterministically.
func (e *Executor) WithClock(now func() int64) *Executor {
	e.now = now
	return e
}

// RegisterTarget installs the callable behind an address. Calls to an
// allow-listed address with no registered target succeed with empty return
// data, the way an external call to codeless account does.
func (e *Executor) RegisterTarget(address common.Address, target Target) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.targets[address] = target
}

// Events returns the BatchExecuted log in emission order.
func (e *Executor) Events() []BatchExecuted {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]BatchExecuted, len(e.events))
	copy(out, e.events)
	return out
}

// RelayBatch verifies and executes one signed batch.
//
// Verifying: the EIP-712 digest is recomputed from the submitted fields, the
// signer must equal the claimed user, the claimed nonce must equal the
// stored nonce, the deadline must not have passed, and every target must be
// allow-listed. Any failure aborts before any state change or call; this is
// the fail-closed boundary.
//
// Executing: the nonce increments before the first call so a reentrant
// batch cannot reuse it, then calls run in order. The batch is atomic: a
// failing call rolls the nonce back and surfaces CallRevertedError.
func (e *Executor) RelayBatch(
	user common.Address,
	calls []evm.BatchCall,
	nonce uint64,
	deadline int64,
	signature []byte,
) (*BatchExecuted, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(calls) == 0 {
		return nil, fmt.Errorf("empty batch")
	}

	// Verifying
	ok, err := evm.VerifyBatchSignature(e.chainID, e.address.Hex(), user.Hex(), calls, nonce, deadline, signature)
	if err != nil || !ok {
		return nil, ErrBadSignature
	}

	stored := e.Nonces.Current(user)
	if nonce != stored {
		return nil, fmt.Errorf("%w: have %d, want %d", ErrNonceMismatch, nonce, stored)
	}

	if e.now() > deadline {
		return nil, ErrDeadlineExpired
	}

	for _, call := range calls {
		if !e.Allowlist.AllowedTarget(common.HexToAddress(call.Target)) {
			return nil, fmt.Errorf("%w: %s", ErrTargetNotAllowed, call.Target)
		}
	}

	// Executing: effects before interactions
	e.Nonces.increment(user)

	for i, call := range calls {
		target := e.targets[common.HexToAddress(call.Target)]
		if target == nil {
			continue
		}
		if _, err := target(call.Value, call.Data); err != nil {
			e.Nonces.set(user, stored)
			return nil, &CallRevertedError{Index: i, Cause: err}
		}
	}

	event := BatchExecuted{User: user, Nonce: nonce, CallCount: len(calls)}
	e.events = append(e.events, event)
	return &event, nil
}
