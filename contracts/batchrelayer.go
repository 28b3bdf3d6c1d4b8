package contracts

import (
	"bytes"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// BatchRelayerABI is the relayer contract interface the service talks to:
// the relayBatch entrypoint plus the read surface (nonce, sponsor, owner,
// allowedTargets) and the owner-only allow-list mutations.
const BatchRelayerABI = `[
	{"type":"function","name":"relayBatch","stateMutability":"nonpayable","inputs":[
		{"name":"user","type":"address"},
		{"name":"calls","type":"tuple[]","components":[
			{"name":"target","type":"address"},
			{"name":"value","type":"uint256"},
			{"name":"data","type":"bytes"}
		]},
		{"name":"userNonce","type":"uint256"},
		{"name":"deadline","type":"uint256"},
		{"name":"userSig","type":"bytes"}
	],"outputs":[]},
	{"type":"function","name":"nonce","stateMutability":"view","inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"sponsor","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"owner","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"allowedTargets","stateMutability":"view","inputs":[{"name":"","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"setAllowedTarget","stateMutability":"nonpayable","inputs":[{"name":"target","type":"address"},{"name":"allowed","type":"bool"}],"outputs":[]},
	{"type":"function","name":"batchSetAllowedTargets","stateMutability":"nonpayable","inputs":[{"name":"targets","type":"address[]"},{"name":"allowed","type":"bool[]"}],"outputs":[]}
]`

// RelayedCall mirrors the relayBatch tuple component.
type RelayedCall struct {
	Target common.Address
	Value  *big.Int
	Data   []byte
}

var batchRelayerABI = mustParseABI(BatchRelayerABI)

func mustParseABI(abiJSON string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		panic(fmt.Sprintf("contracts: invalid ABI: %v", err))
	}
	return parsed
}

// PackRelayBatch encodes a relayBatch call.
func PackRelayBatch(user common.Address, calls []RelayedCall, nonce *big.Int, deadline *big.Int, signature []byte) ([]byte, error) {
	return batchRelayerABI.Pack("relayBatch", user, calls, nonce, deadline, signature)
}

// RelayBatchInput is a decoded relayBatch calldata payload.
type RelayBatchInput struct {
	User      common.Address
	Calls     []RelayedCall
	Nonce     *big.Int
	Deadline  *big.Int
	Signature []byte
}

// UnpackRelayBatch decodes relayBatch calldata, selector included.
func UnpackRelayBatch(calldata []byte) (*RelayBatchInput, error) {
	method := batchRelayerABI.Methods["relayBatch"]
	if len(calldata) < 4 || !bytes.Equal(calldata[:4], method.ID) {
		return nil, fmt.Errorf("calldata is not a relayBatch call")
	}

	values, err := method.Inputs.Unpack(calldata[4:])
	if err != nil {
		return nil, fmt.Errorf("failed to unpack relayBatch calldata: %w", err)
	}

	input := &RelayBatchInput{
		User:      *abi.ConvertType(values[0], new(common.Address)).(*common.Address),
		Calls:     *abi.ConvertType(values[1], new([]RelayedCall)).(*[]RelayedCall),
		Nonce:     *abi.ConvertType(values[2], new(*big.Int)).(**big.Int),
		Deadline:  *abi.ConvertType(values[3], new(*big.Int)).(**big.Int),
		Signature: *abi.ConvertType(values[4], new([]byte)).(*[]byte),
	}
	return input, nil
}

// PackNonce encodes a nonce(user) read.
func PackNonce(user common.Address) ([]byte, error) {
	return batchRelayerABI.Pack("nonce", user)
}

// UnpackNonce decodes the result of a nonce(user) read.
func UnpackNonce(result []byte) (*big.Int, error) {
	outputs, err := batchRelayerABI.Unpack("nonce", result)
	if err != nil {
		return nil, err
	}
	nonce, ok := outputs[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected nonce result type %T", outputs[0])
	}
	return nonce, nil
}

// PackSetAllowedTarget encodes an owner-only allow-list mutation.
func PackSetAllowedTarget(target common.Address, allowed bool) ([]byte, error) {
	return batchRelayerABI.Pack("setAllowedTarget", target, allowed)
}

// PackBatchSetAllowedTargets encodes the batched allow-list mutation.
// Targets and flags must be equal length, matching the contract's check.
func PackBatchSetAllowedTargets(targets []common.Address, allowed []bool) ([]byte, error) {
	if len(targets) != len(allowed) {
		return nil, fmt.Errorf("targets and allowed must be equal length: %d != %d", len(targets), len(allowed))
	}
	return batchRelayerABI.Pack("batchSetAllowedTargets", targets, allowed)
}

// AsBool coerces a ReadContract result into a bool.
func AsBool(v interface{}) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("unexpected result type %T, want bool", v)
	}
	return b, nil
}

// AsBigInt coerces a ReadContract result into a *big.Int.
func AsBigInt(v interface{}) (*big.Int, error) {
	n, ok := v.(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected result type %T, want *big.Int", v)
	}
	return n, nil
}

// AsAddress coerces a ReadContract result into an address.
func AsAddress(v interface{}) (common.Address, error) {
	addr, ok := v.(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unexpected result type %T, want common.Address", v)
	}
	return addr, nil
}
