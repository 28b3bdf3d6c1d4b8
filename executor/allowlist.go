package executor

import (
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// ErrNotOwner rejects allow-list mutations from anyone but the owner.
var ErrNotOwner = errors.New("caller is not the owner")

// ErrLengthMismatch rejects batched mutations with unequal array lengths.
var ErrLengthMismatch = errors.New("targets and allowed must be equal length")

// Allowlist is the registry of contract addresses permitted as batch
// targets. Entries start false for every address, are flipped explicitly by
// the owner, and never expire on their own.
type Allowlist struct {
	mu      sync.RWMutex
	owner   common.Address
	allowed map[common.Address]bool
}

// NewAllowlist creates an allow-list administered by owner.
func NewAllowlist(owner common.Address) *Allowlist {
	return &Allowlist{
		owner:   owner,
		allowed: make(map[common.Address]bool),
	}
}

// Owner returns the admin address.
func (l *Allowlist) Owner() common.Address {
	return l.owner
}

// SetAllowedTarget flips one entry. Owner only.
func (l *Allowlist) SetAllowedTarget(sender, target common.Address, allowed bool) error {
	if sender != l.owner {
		return ErrNotOwner
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.allowed[target] = allowed
	return nil
}

// BatchSetAllowedTargets flips several entries at once. Owner only; the
// arrays must be equal length.
func (l *Allowlist) BatchSetAllowedTargets(sender common.Address, targets []common.Address, allowed []bool) error {
	if sender != l.owner {
		return ErrNotOwner
	}
	if len(targets) != len(allowed) {
		return ErrLengthMismatch
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, target := range targets {
		l.allowed[target] = allowed[i]
	}
	return nil
}

// AllowedTarget reports whether target may be called from a relayed batch.
func (l *Allowlist) AllowedTarget(target common.Address) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.allowed[target]
}
