// Package relay implements the gasless batch-relay service: validation of
// signed EIP-712 batch requests and their submission on-chain from a
// sponsor-controlled, gas-paying key.
package relay

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/somnia-social/relay/contracts"
	"github.com/somnia-social/relay/evm"
)

// Relayer is the trust boundary between unauthenticated clients and the
// sponsor's key. Every request passes the full validation sequence before
// any gas is spent; validation failures are cheap and leave no on-chain
// trace.
type Relayer struct {
	signer         evm.SponsorSigner
	relayerAddress string
	gasLimit       uint64
	confirmWait    time.Duration
	cache          *RelayCache
	logger         *zap.Logger
	now            func() time.Time
}

// RelayerOption configures a Relayer.
type RelayerOption func(*Relayer)

// WithGasLimit overrides the submission gas ceiling.
func WithGasLimit(limit uint64) RelayerOption {
	return func(r *Relayer) { r.gasLimit = limit }
}

// WithConfirmWait bounds how long Relay waits for one confirmation before
// reporting a pending transaction.
func WithConfirmWait(d time.Duration) RelayerOption {
	return func(r *Relayer) { r.confirmWait = d }
}

// WithCache installs an idempotency cache for submissions.
func WithCache(cache *RelayCache) RelayerOption {
	return func(r *Relayer) { r.cache = cache }
}

// WithLogger installs a structured logger.
func WithLogger(logger *zap.Logger) RelayerOption {
	return func(r *Relayer) { r.logger = logger }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) RelayerOption {
	return func(r *Relayer) { r.now = now }
}

// NewRelayer creates a relay service fronting the relayer contract at
// relayerAddress, submitting through signer.
func NewRelayer(signer evm.SponsorSigner, relayerAddress string, opts ...RelayerOption) *Relayer {
	r := &Relayer{
		signer:         signer,
		relayerAddress: relayerAddress,
		gasLimit:       DefaultGasLimit,
		confirmWait:    90 * time.Second,
		logger:         zap.NewNop(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Verify runs the pre-submission validation sequence: structural checks,
// deadline, sponsor configuration and solvency, on-chain sponsor
// authorization, per-target allow-list reads, and a local signature and
// nonce precheck. It fails fast with a distinct error per step and never
// submits a transaction.
//
// The signature and nonce prechecks duplicate work the contract does; the
// duplication buys a precise error before gas estimation and guards against
// configuration drift between service and chain.
func (r *Relayer) Verify(ctx context.Context, req *RelayRequest) *RelayError {
	// 1. Field presence and format
	if rerr := ValidateRelayRequest(req); rerr != nil {
		return rerr
	}

	// 2. Deadline not yet passed; a deadline equal to now is still valid
	if req.Deadline < r.now().Unix() {
		return Errorf(ErrCodeDeadlineExpired, "batch execution deadline has passed")
	}

	// 3. Sponsor key present and well-formed
	if r.signer == nil || !IsHexAddress(r.signer.Address()) {
		return Errorf(ErrCodeSponsorMisconfigured, "sponsor signer not configured")
	}

	// 4. Coarse solvency check
	balance, err := r.signer.NativeBalance(ctx, r.signer.Address())
	if err != nil {
		return Errorf(ErrCodeInternal, "failed to check sponsor balance: %v", err)
	}
	if balance.Sign() == 0 {
		return Errorf(ErrCodeInsufficientFunds, "sponsor wallet has no funds for gas")
	}

	// 5. On-chain sponsor authorization
	authorized, err := r.authorizedSponsor(ctx)
	if err != nil {
		return Errorf(ErrCodeInternal, "failed to read authorized sponsor: %v", err)
	}
	if !strings.EqualFold(authorized.Hex(), r.signer.Address()) {
		return NewRelayError(ErrCodeSponsorUnauthorized, "sponsor wallet not authorized", map[string]interface{}{
			"expected": authorized.Hex(),
			"actual":   r.signer.Address(),
		})
	}

	// 6. Allow-list check, one read per distinct target
	for _, target := range req.Targets() {
		allowed, err := r.targetAllowed(ctx, target)
		if err != nil {
			return Errorf(ErrCodeInternal, "failed to read allow-list for %s: %v", target, err)
		}
		if !allowed {
			return Errorf(ErrCodeTargetNotAllowed, "target contract %s not allowed", target)
		}
	}

	// 7. Local signature and nonce precheck
	currentNonce, err := r.userNonce(ctx, req.User)
	if err != nil {
		return Errorf(ErrCodeInternal, "failed to read nonce for %s: %v", req.User, err)
	}
	if req.Nonce != currentNonce {
		return NewRelayError(ErrCodeNonceMismatch, "invalid nonce - batch may have been executed already", map[string]interface{}{
			"have": req.Nonce,
			"want": currentNonce,
		})
	}

	chainID, err := r.signer.ChainID(ctx)
	if err != nil {
		return Errorf(ErrCodeInternal, "failed to get chain ID: %v", err)
	}
	if rerr := r.verifySignature(chainID, req); rerr != nil {
		return rerr
	}

	return nil
}

// Relay validates and submits one signed batch, waiting for a single
// confirmation. Exactly one transaction is submitted per valid request; the
// idempotency cache coalesces concurrent duplicates and replays terminal
// outcomes to retrying clients.
// On failure the returned response may still carry a transaction hash: a
// confirmation timeout or an on-chain revert happens after submission, and
// clients need the hash to track the pending transaction.
func (r *Relayer) Relay(ctx context.Context, req *RelayRequest) (*RelayResponse, *RelayError) {
	if r.cache == nil {
		return r.relay(ctx, req)
	}

	key := RequestKey(req)
	status, cached, cachedErr, done := r.cache.CheckAndMark(key)
	switch status {
	case StatusCached:
		r.logger.Info("returning cached relay result", zap.String("user", req.User))
		return cached, cachedErr
	case StatusInFlight:
		result, rerr, err := r.cache.WaitForResult(ctx, key, done)
		if err != nil {
			return nil, Errorf(ErrCodeInternal, "cancelled waiting for duplicate relay: %v", err)
		}
		if result != nil || rerr != nil {
			return result, rerr
		}
		// The earlier attempt failed without caching; run our own.
		return r.Relay(ctx, req)
	}

	response, rerr := r.relay(ctx, req)
	if rerr == nil || (rerr.Code == ErrCodeConfirmationTimeout && response != nil) {
		// A confirmation timeout is cached too: the transaction was submitted
		// and the response carries its hash, so a retry within the TTL must
		// replay that hash rather than report a nonce mismatch.
		r.cache.Complete(key, response, rerr, done)
	} else {
		r.cache.Fail(key, done)
	}
	return response, rerr
}

func (r *Relayer) relay(ctx context.Context, req *RelayRequest) (*RelayResponse, *RelayError) {
	if rerr := r.Verify(ctx, req); rerr != nil {
		return nil, rerr
	}

	calldata, err := r.packRelayBatch(req)
	if err != nil {
		return nil, Errorf(ErrCodeInvalidRequest, "failed to encode batch: %v", err)
	}

	// 8a. Dry-run: an estimation failure means the batch would revert
	gas, err := r.signer.EstimateGas(ctx, r.relayerAddress, calldata)
	if err != nil {
		return nil, r.classifyRevert(err)
	}
	if gas > r.gasLimit {
		return nil, Errorf(ErrCodeEstimationFailed, "estimated gas %d exceeds relay ceiling %d", gas, r.gasLimit)
	}

	// 8b. Submit from the sponsor key with the explicit ceiling
	txHash, err := r.signer.SendTransaction(ctx, r.relayerAddress, calldata, r.gasLimit)
	if err != nil {
		return nil, r.classifyRevert(err)
	}

	r.logger.Info("relay transaction submitted",
		zap.String("user", req.User),
		zap.Uint64("nonce", req.Nonce),
		zap.Int("calls", len(req.Calls)),
		zap.String("tx_hash", txHash),
	)

	// 9. Await one confirmation. A timeout is not a failure verdict: the
	// transaction may still confirm, so the hash is reported either way.
	waitCtx, cancel := context.WithTimeout(ctx, r.confirmWait)
	defer cancel()
	receipt, err := r.signer.WaitForReceipt(waitCtx, txHash)
	if err != nil {
		response := &RelayResponse{
			Success: false,
			TxHash:  txHash,
			Error:   "transaction submitted but not yet confirmed",
		}
		return response, Errorf(ErrCodeConfirmationTimeout, "transaction %s submitted but unconfirmed: %v", txHash, err)
	}

	if receipt.Status != evm.TxStatusSuccess {
		r.logger.Warn("relay transaction reverted",
			zap.String("user", req.User),
			zap.String("tx_hash", receipt.TxHash),
		)
		response := &RelayResponse{
			Success:     false,
			TxHash:      receipt.TxHash,
			BlockNumber: receipt.BlockNumber,
			Error:       "transaction reverted on-chain",
		}
		return response, Errorf(ErrCodeCallReverted, "transaction %s reverted on-chain", receipt.TxHash)
	}

	return &RelayResponse{
		Success:     true,
		TxHash:      receipt.TxHash,
		BlockNumber: receipt.BlockNumber,
		GasUsed:     fmt.Sprintf("%d", receipt.GasUsed),
	}, nil
}

// Health reports the sponsor's standing against the contract.
func (r *Relayer) Health(ctx context.Context) (*HealthStatus, error) {
	balance, err := r.signer.NativeBalance(ctx, r.signer.Address())
	if err != nil {
		return nil, fmt.Errorf("failed to check sponsor balance: %w", err)
	}

	authorized, err := r.authorizedSponsor(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read authorized sponsor: %w", err)
	}

	return &HealthStatus{
		Status:            "healthy",
		SponsorAddress:    r.signer.Address(),
		AuthorizedSponsor: authorized.Hex(),
		IsAuthorized:      strings.EqualFold(authorized.Hex(), r.signer.Address()),
		Balance:           balance.String(),
	}, nil
}

func (r *Relayer) verifySignature(chainID *big.Int, req *RelayRequest) *RelayError {
	batchCalls, err := batchCallsOf(req)
	if err != nil {
		return Errorf(ErrCodeInvalidRequest, "%v", err)
	}
	signature, err := evm.HexToBytes(req.Signature)
	if err != nil {
		return Errorf(ErrCodeInvalidRequest, "invalid signature encoding: %v", err)
	}

	valid, err := evm.VerifyBatchSignature(chainID, r.relayerAddress, req.User, batchCalls, req.Nonce, req.Deadline, signature)
	if err != nil || !valid {
		return Errorf(ErrCodeBadSignature, "invalid signature")
	}
	return nil
}

func (r *Relayer) packRelayBatch(req *RelayRequest) ([]byte, error) {
	relayedCalls := make([]contracts.RelayedCall, len(req.Calls))
	for i, call := range req.Calls {
		value, ok := call.ValueBig()
		if !ok {
			return nil, fmt.Errorf("call %d: invalid value %q", i, call.Value)
		}
		data, err := evm.HexToBytes(call.Data)
		if err != nil {
			return nil, fmt.Errorf("call %d: invalid calldata: %w", i, err)
		}
		relayedCalls[i] = contracts.RelayedCall{
			Target: common.HexToAddress(call.Target),
			Value:  value,
			Data:   data,
		}
	}

	signature, err := evm.HexToBytes(req.Signature)
	if err != nil {
		return nil, fmt.Errorf("invalid signature encoding: %w", err)
	}

	return contracts.PackRelayBatch(
		common.HexToAddress(req.User),
		relayedCalls,
		new(big.Int).SetUint64(req.Nonce),
		big.NewInt(req.Deadline),
		signature,
	)
}

// classifyRevert maps an estimation or submission error onto the relay
// error taxonomy so callers can tell a stale nonce (safe to refresh and
// retry) from a bad signature (client bug or tampering) from allow-list
// drift between service and chain.
func (r *Relayer) classifyRevert(err error) *RelayError {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "insufficient funds"):
		return Errorf(ErrCodeInsufficientFunds, "sponsor wallet has insufficient funds")
	case strings.Contains(msg, "nonce"):
		return Errorf(ErrCodeNonceMismatch, "invalid nonce - batch may have been executed already")
	case strings.Contains(msg, "signature"):
		return Errorf(ErrCodeBadSignature, "invalid signature")
	case strings.Contains(msg, "deadline"):
		return Errorf(ErrCodeDeadlineExpired, "batch execution deadline has passed")
	case strings.Contains(msg, "target"), strings.Contains(msg, "allowed"):
		return Errorf(ErrCodeTargetNotAllowed, "target contract not allowed on-chain")
	default:
		return Errorf(ErrCodeEstimationFailed, "gas estimation failed - batch would revert: %v", err)
	}
}

func (r *Relayer) authorizedSponsor(ctx context.Context) (common.Address, error) {
	result, err := r.signer.ReadContract(ctx, r.relayerAddress, []byte(contracts.BatchRelayerABI), "sponsor")
	if err != nil {
		return common.Address{}, err
	}
	return contracts.AsAddress(result)
}

func (r *Relayer) targetAllowed(ctx context.Context, target string) (bool, error) {
	result, err := r.signer.ReadContract(ctx, r.relayerAddress, []byte(contracts.BatchRelayerABI), "allowedTargets", common.HexToAddress(target))
	if err != nil {
		return false, err
	}
	return contracts.AsBool(result)
}

func (r *Relayer) userNonce(ctx context.Context, user string) (uint64, error) {
	result, err := r.signer.ReadContract(ctx, r.relayerAddress, []byte(contracts.BatchRelayerABI), "nonce", common.HexToAddress(user))
	if err != nil {
		return 0, err
	}
	nonce, err := contracts.AsBigInt(result)
	if err != nil {
		return 0, err
	}
	return nonce.Uint64(), nil
}

func batchCallsOf(req *RelayRequest) ([]evm.BatchCall, error) {
	batchCalls := make([]evm.BatchCall, len(req.Calls))
	for i, call := range req.Calls {
		value, ok := call.ValueBig()
		if !ok {
			return nil, fmt.Errorf("call %d: invalid value %q", i, call.Value)
		}
		data, err := evm.HexToBytes(call.Data)
		if err != nil {
			return nil, fmt.Errorf("call %d: invalid calldata: %w", i, err)
		}
		batchCalls[i] = evm.BatchCall{Target: call.Target, Value: value, Data: data}
	}
	return batchCalls, nil
}
