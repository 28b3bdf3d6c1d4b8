package executor_test

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/somnia-social/relay/executor"
)

func TestAllowlist(t *testing.T) {
	owner := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	stranger := common.HexToAddress("0x00000000000000000000000000000000000000bb")
	target := common.HexToAddress(postFeedHex)

	t.Run("Targets are disallowed until explicitly allowed", func(t *testing.T) {
		list := executor.NewAllowlist(owner)
		if list.AllowedTarget(target) {
			t.Error("New allow-list must be empty")
		}
	})

	t.Run("Owner can allow and disallow", func(t *testing.T) {
		list := executor.NewAllowlist(owner)

		if err := list.SetAllowedTarget(owner, target, true); err != nil {
			t.Fatalf("SetAllowedTarget failed: %v", err)
		}
		if !list.AllowedTarget(target) {
			t.Error("Target should be allowed")
		}

		if err := list.SetAllowedTarget(owner, target, false); err != nil {
			t.Fatalf("SetAllowedTarget failed: %v", err)
		}
		if list.AllowedTarget(target) {
			t.Error("Target should be disallowed again")
		}
	})

	t.Run("Non-owner cannot modify", func(t *testing.T) {
		list := executor.NewAllowlist(owner)

		err := list.SetAllowedTarget(stranger, target, true)
		if !errors.Is(err, executor.ErrNotOwner) {
			t.Errorf("Expected ErrNotOwner, got %v", err)
		}
		if list.AllowedTarget(target) {
			t.Error("Rejected update must not apply")
		}
	})

	t.Run("Batch update applies all pairs", func(t *testing.T) {
		list := executor.NewAllowlist(owner)
		other := common.HexToAddress(strangerHex)

		err := list.BatchSetAllowedTargets(owner, []common.Address{target, other}, []bool{true, true})
		if err != nil {
			t.Fatalf("BatchSetAllowedTargets failed: %v", err)
		}
		if !list.AllowedTarget(target) || !list.AllowedTarget(other) {
			t.Error("Both targets should be allowed")
		}
	})

	t.Run("Batch update rejects length mismatch", func(t *testing.T) {
		list := executor.NewAllowlist(owner)

		err := list.BatchSetAllowedTargets(owner, []common.Address{target}, []bool{true, false})
		if !errors.Is(err, executor.ErrLengthMismatch) {
			t.Errorf("Expected ErrLengthMismatch, got %v", err)
		}
	})
}

func TestNonceStore(t *testing.T) {
	store := executor.NewNonceStore()
	user := common.HexToAddress("0x00000000000000000000000000000000000000cc")

	if store.Current(user) != 0 {
		t.Error("Fresh user must start at nonce 0")
	}
}
