package evm_test

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/somnia-social/relay/evm"
)

const (
	testRelayerAddress = "0xC7cFc7a96150816176C44F0CcD1066a781CEEB82"
	testUserAddress    = "0x1234567890123456789012345678901234567890"
	testTargetAddress  = "0x3feeF59e911f0B2cC641711AAf7fB20F5DE7331A"
)

func testCalls() []evm.BatchCall {
	return []evm.BatchCall{
		{
			Target: testTargetAddress,
			Value:  big.NewInt(0),
			Data:   []byte{0xde, 0xad, 0xbe, 0xef},
		},
	}
}

func TestHashBatchExecution(t *testing.T) {
	chainID := big.NewInt(50312)

	t.Run("Valid batch produces 32-byte digest", func(t *testing.T) {
		digest, err := evm.HashBatchExecution(chainID, testRelayerAddress, testUserAddress, testCalls(), 5, 1900000000)
		if err != nil {
			t.Fatalf("Failed to hash batch: %v", err)
		}
		if len(digest) != 32 {
			t.Errorf("Expected 32-byte digest, got %d bytes", len(digest))
		}
	})

	t.Run("Same inputs produce same digest", func(t *testing.T) {
		digest1, err1 := evm.HashBatchExecution(chainID, testRelayerAddress, testUserAddress, testCalls(), 5, 1900000000)
		digest2, err2 := evm.HashBatchExecution(chainID, testRelayerAddress, testUserAddress, testCalls(), 5, 1900000000)
		if err1 != nil || err2 != nil {
			t.Fatalf("Hashing failed: %v, %v", err1, err2)
		}
		if !bytes.Equal(digest1, digest2) {
			t.Error("Same inputs should produce same digest")
		}
	})

	t.Run("Different chain IDs produce different digests", func(t *testing.T) {
		digest1, _ := evm.HashBatchExecution(big.NewInt(50312), testRelayerAddress, testUserAddress, testCalls(), 5, 1900000000)
		digest2, _ := evm.HashBatchExecution(big.NewInt(1), testRelayerAddress, testUserAddress, testCalls(), 5, 1900000000)
		if bytes.Equal(digest1, digest2) {
			t.Error("Digest must bind the chain ID")
		}
	})

	t.Run("Different verifying contracts produce different digests", func(t *testing.T) {
		digest1, _ := evm.HashBatchExecution(chainID, testRelayerAddress, testUserAddress, testCalls(), 5, 1900000000)
		digest2, _ := evm.HashBatchExecution(chainID, testTargetAddress, testUserAddress, testCalls(), 5, 1900000000)
		if bytes.Equal(digest1, digest2) {
			t.Error("Digest must bind the verifying contract")
		}
	})

	t.Run("Different nonces produce different digests", func(t *testing.T) {
		digest1, _ := evm.HashBatchExecution(chainID, testRelayerAddress, testUserAddress, testCalls(), 5, 1900000000)
		digest2, _ := evm.HashBatchExecution(chainID, testRelayerAddress, testUserAddress, testCalls(), 6, 1900000000)
		if bytes.Equal(digest1, digest2) {
			t.Error("Digest must bind the nonce")
		}
	})

	t.Run("Different deadlines produce different digests", func(t *testing.T) {
		digest1, _ := evm.HashBatchExecution(chainID, testRelayerAddress, testUserAddress, testCalls(), 5, 1900000000)
		digest2, _ := evm.HashBatchExecution(chainID, testRelayerAddress, testUserAddress, testCalls(), 5, 1900000001)
		if bytes.Equal(digest1, digest2) {
			t.Error("Digest must bind the deadline")
		}
	})

	t.Run("Call order changes the digest", func(t *testing.T) {
		callA := evm.BatchCall{Target: testTargetAddress, Value: big.NewInt(0), Data: []byte{0x01}}
		callB := evm.BatchCall{Target: testTargetAddress, Value: big.NewInt(0), Data: []byte{0x02}}

		digest1, err1 := evm.HashBatchExecution(chainID, testRelayerAddress, testUserAddress, []evm.BatchCall{callA, callB}, 5, 1900000000)
		digest2, err2 := evm.HashBatchExecution(chainID, testRelayerAddress, testUserAddress, []evm.BatchCall{callB, callA}, 5, 1900000000)
		if err1 != nil || err2 != nil {
			t.Fatalf("Hashing failed: %v, %v", err1, err2)
		}
		if bytes.Equal(digest1, digest2) {
			t.Error("Digest must bind call order")
		}
	})

	t.Run("Call data changes the digest", func(t *testing.T) {
		calls := testCalls()
		calls[0].Data = []byte{0xca, 0xfe}
		digest1, _ := evm.HashBatchExecution(chainID, testRelayerAddress, testUserAddress, testCalls(), 5, 1900000000)
		digest2, _ := evm.HashBatchExecution(chainID, testRelayerAddress, testUserAddress, calls, 5, 1900000000)
		if bytes.Equal(digest1, digest2) {
			t.Error("Digest must bind call data")
		}
	})
}

func TestBatchDomain(t *testing.T) {
	domain := evm.BatchDomain(big.NewInt(50312), testRelayerAddress)

	if domain.Name != "BatchRelayer" {
		t.Errorf("Expected domain name BatchRelayer, got %s", domain.Name)
	}
	if domain.Version != "1" {
		t.Errorf("Expected domain version 1, got %s", domain.Version)
	}
	if domain.ChainID.Cmp(big.NewInt(50312)) != 0 {
		t.Errorf("Expected chain ID 50312, got %s", domain.ChainID)
	}
	if domain.VerifyingContract != testRelayerAddress {
		t.Errorf("Expected verifying contract %s, got %s", testRelayerAddress, domain.VerifyingContract)
	}
}

func TestBatchExecutionTypes(t *testing.T) {
	types := evm.BatchExecutionTypes()

	for _, typeName := range []string{"EIP712Domain", "BatchExecution", "Call"} {
		if _, ok := types[typeName]; !ok {
			t.Errorf("Missing type definition for %s", typeName)
		}
	}

	batchFields := types["BatchExecution"]
	if len(batchFields) != 4 {
		t.Fatalf("Expected 4 BatchExecution fields, got %d", len(batchFields))
	}
	if batchFields[1].Type != "Call[]" {
		t.Errorf("Expected calls field type Call[], got %s", batchFields[1].Type)
	}
}
