package relay_test

import (
	"context"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	relay "github.com/somnia-social/relay"
	"github.com/somnia-social/relay/contracts"
	"github.com/somnia-social/relay/evm"
	"github.com/somnia-social/relay/executor"
	signersevm "github.com/somnia-social/relay/signers/evm"
)

const (
	relayerAddressHex = "0xC7cFc7a96150816176C44F0CcD1066a781CEEB82"
	postFeedHex       = "0x3feeF59e911f0B2cC641711AAf7fB20F5DE7331A"
	strangerHex       = "0xdE8abe80D03Aa65E8683AA4eEdFa0690B3408d7F"
	sponsorAddressHex = "0x00000000000000000000000000000000000000ee"

	userKey  = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	otherKey = "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"
)

var chainID = big.NewInt(50312)

// stubSponsor implements evm.SponsorSigner against an in-process executor,
// so relayer tests exercise real signatures and real calldata end to end
// without a chain.
type stubSponsor struct {
	exec       *executor.Executor
	address    string
	authorized common.Address
	balance    *big.Int

	estimateErr   error
	estimateCalls int
	sendErr       error
	sendCalls     int
	receiptStatus uint64
	waitErr       error
}

func (s *stubSponsor) Address() string { return s.address }

func (s *stubSponsor) ChainID(ctx context.Context) (*big.Int, error) { return chainID, nil }

func (s *stubSponsor) ReadContract(ctx context.Context, address string, abiJSON []byte, method string, args ...interface{}) (interface{}, error) {
	switch method {
	case "sponsor":
		return s.authorized, nil
	case "allowedTargets":
		return s.exec.Allowlist.AllowedTarget(args[0].(common.Address)), nil
	case "nonce":
		return new(big.Int).SetUint64(s.exec.Nonces.Current(args[0].(common.Address))), nil
	default:
		return nil, fmt.Errorf("unexpected method %s", method)
	}
}

func (s *stubSponsor) NativeBalance(ctx context.Context, address string) (*big.Int, error) {
	return s.balance, nil
}

func (s *stubSponsor) EstimateGas(ctx context.Context, to string, data []byte) (uint64, error) {
	s.estimateCalls++
	if s.estimateErr != nil {
		return 0, s.estimateErr
	}
	return 100_000, nil
}

func (s *stubSponsor) SendTransaction(ctx context.Context, to string, data []byte, gasLimit uint64) (string, error) {
	s.sendCalls++
	if s.sendErr != nil {
		return "", s.sendErr
	}

	input, err := contracts.UnpackRelayBatch(data)
	if err != nil {
		return "", err
	}
	calls := make([]evm.BatchCall, len(input.Calls))
	for i, call := range input.Calls {
		calls[i] = evm.BatchCall{Target: call.Target.Hex(), Value: call.Value, Data: call.Data}
	}

	_, err = s.exec.RelayBatch(input.User, calls, input.Nonce.Uint64(), input.Deadline.Int64(), input.Signature)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("0x%064d", s.sendCalls), nil
}

func (s *stubSponsor) WaitForReceipt(ctx context.Context, txHash string) (*evm.TransactionReceipt, error) {
	if s.waitErr != nil {
		return nil, s.waitErr
	}
	return &evm.TransactionReceipt{
		Status:      s.receiptStatus,
		BlockNumber: 12345,
		TxHash:      txHash,
		GasUsed:     84_000,
	}, nil
}

type relayFixture struct {
	sponsor *stubSponsor
	relayer *relay.Relayer
	signer  *signersevm.ClientSigner
	user    common.Address
}

func newRelayFixture(t *testing.T, opts ...relay.RelayerOption) *relayFixture {
	t.Helper()

	signer, err := signersevm.NewClientSignerFromPrivateKey(userKey)
	if err != nil {
		t.Fatalf("Failed to create signer: %v", err)
	}

	owner := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	exec := executor.New(chainID, common.HexToAddress(relayerAddressHex), owner)
	if err := exec.Allowlist.SetAllowedTarget(owner, common.HexToAddress(postFeedHex), true); err != nil {
		t.Fatalf("Failed to allow target: %v", err)
	}

	sponsor := &stubSponsor{
		exec:          exec,
		address:       sponsorAddressHex,
		authorized:    common.HexToAddress(sponsorAddressHex),
		balance:       big.NewInt(1_000_000_000_000_000_000),
		receiptStatus: evm.TxStatusSuccess,
	}

	return &relayFixture{
		sponsor: sponsor,
		relayer: relay.NewRelayer(sponsor, relayerAddressHex, opts...),
		signer:  signer,
		user:    common.HexToAddress(signer.Address()),
	}
}

// signedRequest builds a fully signed request for a single createPost-style
// call against the allow-listed target.
func (f *relayFixture) signedRequest(t *testing.T, nonce uint64, deadline int64, targets ...string) *relay.RelayRequest {
	t.Helper()

	if len(targets) == 0 {
		targets = []string{postFeedHex}
	}

	calls := make([]relay.Call, len(targets))
	batchCalls := make([]evm.BatchCall, len(targets))
	for i, target := range targets {
		data := []byte{0x01, 0x02, 0x03, byte(i)}
		calls[i] = relay.Call{Target: target, Value: "0", Data: evm.BytesToHex(data)}
		batchCalls[i] = evm.BatchCall{Target: target, Value: big.NewInt(0), Data: data}
	}

	signature, err := f.signer.SignBatchExecution(context.Background(), chainID, relayerAddressHex, batchCalls, nonce, deadline)
	if err != nil {
		t.Fatalf("Failed to sign batch: %v", err)
	}

	return &relay.RelayRequest{
		User:      f.signer.Address(),
		Calls:     calls,
		Nonce:     nonce,
		Deadline:  deadline,
		Signature: evm.BytesToHex(signature),
	}
}

func futureDeadline() int64 {
	return time.Now().Unix() + 3600
}

func TestRelaySuccess(t *testing.T) {
	f := newRelayFixture(t)
	req := f.signedRequest(t, 0, futureDeadline())

	response, rerr := f.relayer.Relay(context.Background(), req)
	if rerr != nil {
		t.Fatalf("Relay failed: %v", rerr)
	}

	if !response.Success {
		t.Error("Expected success response")
	}
	if response.TxHash == "" {
		t.Error("Expected transaction hash")
	}
	if response.BlockNumber != 12345 {
		t.Errorf("Expected block number 12345, got %d", response.BlockNumber)
	}
	if response.GasUsed != "84000" {
		t.Errorf("Expected gas used 84000, got %s", response.GasUsed)
	}
	if got := f.sponsor.exec.Nonces.Current(f.user); got != 1 {
		t.Errorf("Expected on-chain nonce 1, got %d", got)
	}
	if f.sponsor.estimateCalls != 1 || f.sponsor.sendCalls != 1 {
		t.Errorf("Expected one estimate and one send, got %d and %d", f.sponsor.estimateCalls, f.sponsor.sendCalls)
	}
}

func TestRelayReplayRejected(t *testing.T) {
	f := newRelayFixture(t)
	req := f.signedRequest(t, 0, futureDeadline())

	if _, rerr := f.relayer.Relay(context.Background(), req); rerr != nil {
		t.Fatalf("First relay failed: %v", rerr)
	}

	// Identical payload: the advanced nonce rejects it before estimation.
	_, rerr := f.relayer.Relay(context.Background(), req)
	if rerr == nil || rerr.Code != relay.ErrCodeNonceMismatch {
		t.Errorf("Expected nonce mismatch, got %v", rerr)
	}
	if f.sponsor.estimateCalls != 1 {
		t.Errorf("Replay must not reach gas estimation, got %d calls", f.sponsor.estimateCalls)
	}
}

func TestRelayExpiredDeadline(t *testing.T) {
	f := newRelayFixture(t)
	req := f.signedRequest(t, 0, time.Now().Unix()-1)

	_, rerr := f.relayer.Relay(context.Background(), req)
	if rerr == nil || rerr.Code != relay.ErrCodeDeadlineExpired {
		t.Errorf("Expected deadline expired, got %v", rerr)
	}
	if f.sponsor.estimateCalls != 0 || f.sponsor.sendCalls != 0 {
		t.Error("Expired request must not touch the chain")
	}
}

func TestRelayRejectionIsIdempotent(t *testing.T) {
	f := newRelayFixture(t)
	req := f.signedRequest(t, 0, time.Now().Unix()-1)

	for i := 0; i < 3; i++ {
		_, rerr := f.relayer.Relay(context.Background(), req)
		if rerr == nil || rerr.Code != relay.ErrCodeDeadlineExpired {
			t.Fatalf("Attempt %d: expected deadline expired, got %v", i, rerr)
		}
	}
	if f.sponsor.sendCalls != 0 {
		t.Error("Repeated rejections must not accumulate submissions")
	}
	if got := f.sponsor.exec.Nonces.Current(f.user); got != 0 {
		t.Errorf("Repeated rejections must not advance the nonce, got %d", got)
	}
}

func TestRelayDisallowedTarget(t *testing.T) {
	f := newRelayFixture(t)
	req := f.signedRequest(t, 0, futureDeadline(), postFeedHex, strangerHex)

	_, rerr := f.relayer.Relay(context.Background(), req)
	if rerr == nil || rerr.Code != relay.ErrCodeTargetNotAllowed {
		t.Errorf("Expected target not allowed, got %v", rerr)
	}
	if f.sponsor.estimateCalls != 0 {
		t.Error("Disallowed target must be rejected before gas estimation")
	}
}

func TestRelayInsufficientSponsorBalance(t *testing.T) {
	f := newRelayFixture(t)
	f.sponsor.balance = big.NewInt(0)
	req := f.signedRequest(t, 0, futureDeadline())

	_, rerr := f.relayer.Relay(context.Background(), req)
	if rerr == nil || rerr.Code != relay.ErrCodeInsufficientFunds {
		t.Errorf("Expected insufficient funds, got %v", rerr)
	}
	if f.sponsor.estimateCalls != 0 || f.sponsor.sendCalls != 0 {
		t.Error("Broke sponsor must not attempt estimation or submission")
	}
}

func TestRelayUnauthorizedSponsor(t *testing.T) {
	f := newRelayFixture(t)
	f.sponsor.authorized = common.HexToAddress(strangerHex)
	req := f.signedRequest(t, 0, futureDeadline())

	_, rerr := f.relayer.Relay(context.Background(), req)
	if rerr == nil || rerr.Code != relay.ErrCodeSponsorUnauthorized {
		t.Errorf("Expected unauthorized sponsor, got %v", rerr)
	}
}

func TestRelayForgedSignature(t *testing.T) {
	f := newRelayFixture(t)

	// Signed by another key but claiming the fixture user.
	other, err := signersevm.NewClientSignerFromPrivateKey(otherKey)
	if err != nil {
		t.Fatalf("Failed to create signer: %v", err)
	}
	deadline := futureDeadline()
	data := []byte{0x01, 0x02, 0x03, 0x00}
	batchCalls := []evm.BatchCall{{Target: postFeedHex, Value: big.NewInt(0), Data: data}}
	signature, err := other.SignBatchExecution(context.Background(), chainID, relayerAddressHex, batchCalls, 0, deadline)
	if err != nil {
		t.Fatalf("Failed to sign batch: %v", err)
	}

	req := &relay.RelayRequest{
		User:      f.signer.Address(),
		Calls:     []relay.Call{{Target: postFeedHex, Value: "0", Data: evm.BytesToHex(data)}},
		Nonce:     0,
		Deadline:  deadline,
		Signature: evm.BytesToHex(signature),
	}

	_, rerr := f.relayer.Relay(context.Background(), req)
	if rerr == nil || rerr.Code != relay.ErrCodeBadSignature {
		t.Errorf("Expected bad signature, got %v", rerr)
	}
	if f.sponsor.sendCalls != 0 {
		t.Error("Forged request must not be submitted")
	}
}

func TestRelayMissingFields(t *testing.T) {
	f := newRelayFixture(t)

	_, rerr := f.relayer.Relay(context.Background(), &relay.RelayRequest{})
	if rerr == nil || rerr.Code != relay.ErrCodeMissingFields {
		t.Errorf("Expected missing fields, got %v", rerr)
	}
}

func TestRelayRevertClassification(t *testing.T) {
	cases := []struct {
		name     string
		message  string
		wantCode string
	}{
		{"Nonce revert", "execution reverted: nonce mismatch", relay.ErrCodeNonceMismatch},
		{"Signature revert", "execution reverted: invalid signature", relay.ErrCodeBadSignature},
		{"Deadline revert", "execution reverted: deadline expired", relay.ErrCodeDeadlineExpired},
		{"Target revert", "execution reverted: target not allowed", relay.ErrCodeTargetNotAllowed},
		{"Sponsor out of gas money", "insufficient funds for gas * price + value", relay.ErrCodeInsufficientFunds},
		{"Opaque revert", "execution reverted", relay.ErrCodeEstimationFailed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newRelayFixture(t)
			f.sponsor.estimateErr = fmt.Errorf("%s", tc.message)
			req := f.signedRequest(t, 0, futureDeadline())

			_, rerr := f.relayer.Relay(context.Background(), req)
			if rerr == nil || rerr.Code != tc.wantCode {
				t.Errorf("Expected %s, got %v", tc.wantCode, rerr)
			}
			if f.sponsor.sendCalls != 0 {
				t.Error("Failed estimation must prevent submission")
			}
		})
	}
}

func TestRelayConfirmationTimeout(t *testing.T) {
	f := newRelayFixture(t)
	f.sponsor.waitErr = context.DeadlineExceeded
	req := f.signedRequest(t, 0, futureDeadline())

	response, rerr := f.relayer.Relay(context.Background(), req)
	if rerr == nil || rerr.Code != relay.ErrCodeConfirmationTimeout {
		t.Fatalf("Expected confirmation timeout, got %v", rerr)
	}
	if response == nil || response.TxHash == "" {
		t.Error("Timeout response must carry the transaction hash")
	}
}

func TestRelayRevertedReceipt(t *testing.T) {
	f := newRelayFixture(t)
	f.sponsor.receiptStatus = 0
	req := f.signedRequest(t, 0, futureDeadline())

	response, rerr := f.relayer.Relay(context.Background(), req)
	if rerr == nil || rerr.Code != relay.ErrCodeCallReverted {
		t.Fatalf("Expected call reverted, got %v", rerr)
	}
	if response == nil || response.TxHash == "" {
		t.Error("Revert response must carry the transaction hash")
	}
}

func TestRelayCachedDuplicate(t *testing.T) {
	f := newRelayFixture(t, relay.WithCache(relay.NewRelayCache(time.Minute)))
	req := f.signedRequest(t, 0, futureDeadline())

	first, rerr := f.relayer.Relay(context.Background(), req)
	if rerr != nil {
		t.Fatalf("First relay failed: %v", rerr)
	}

	// Byte-identical retry replays the cached result, no second submission.
	second, rerr := f.relayer.Relay(context.Background(), req)
	if rerr != nil {
		t.Fatalf("Duplicate relay failed: %v", rerr)
	}
	if second.TxHash != first.TxHash {
		t.Errorf("Expected cached hash %s, got %s", first.TxHash, second.TxHash)
	}
	if f.sponsor.sendCalls != 1 {
		t.Errorf("Expected exactly one submission, got %d", f.sponsor.sendCalls)
	}
}

func TestRelayCachedConfirmationTimeout(t *testing.T) {
	f := newRelayFixture(t, relay.WithCache(relay.NewRelayCache(time.Minute)))
	f.sponsor.waitErr = context.DeadlineExceeded
	req := f.signedRequest(t, 0, futureDeadline())

	first, rerr := f.relayer.Relay(context.Background(), req)
	if rerr == nil || rerr.Code != relay.ErrCodeConfirmationTimeout {
		t.Fatalf("Expected confirmation timeout, got %v", rerr)
	}
	if first == nil || first.TxHash == "" {
		t.Fatal("Timeout response must carry the transaction hash")
	}

	// The nonce advanced on chain, so an uncached retry would report a
	// nonce mismatch. The cached outcome replays the original hash instead.
	second, rerr := f.relayer.Relay(context.Background(), req)
	if rerr == nil || rerr.Code != relay.ErrCodeConfirmationTimeout {
		t.Fatalf("Expected cached confirmation timeout, got %v", rerr)
	}
	if second == nil || second.TxHash != first.TxHash {
		t.Errorf("Expected cached hash %s, got %+v", first.TxHash, second)
	}
	if f.sponsor.sendCalls != 1 {
		t.Errorf("Expected exactly one submission, got %d", f.sponsor.sendCalls)
	}
}

func TestRelayerHealth(t *testing.T) {
	f := newRelayFixture(t)

	health, err := f.relayer.Health(context.Background())
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}

	if health.Status != "healthy" {
		t.Errorf("Expected healthy, got %s", health.Status)
	}
	if !health.IsAuthorized {
		t.Error("Sponsor should be authorized")
	}
	if health.Balance != "1000000000000000000" {
		t.Errorf("Unexpected balance %s", health.Balance)
	}
}

func TestVerifyDoesNotSubmit(t *testing.T) {
	f := newRelayFixture(t)
	req := f.signedRequest(t, 0, futureDeadline())

	if rerr := f.relayer.Verify(context.Background(), req); rerr != nil {
		t.Fatalf("Verify failed: %v", rerr)
	}
	if f.sponsor.estimateCalls != 0 || f.sponsor.sendCalls != 0 {
		t.Error("Verify must not estimate or submit")
	}
	if got := f.sponsor.exec.Nonces.Current(f.user); got != 0 {
		t.Errorf("Verify must not advance the nonce, got %d", got)
	}
}
