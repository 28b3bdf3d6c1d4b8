package executor

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// NonceStore is the per-user replay counter: keyed storage created at zero,
// read before every batch and incremented exactly once per executed batch.
type NonceStore struct {
	mu     sync.Mutex
	nonces map[common.Address]uint64
}

// NewNonceStore creates an empty nonce store.
func NewNonceStore() *NonceStore {
	return &NonceStore{nonces: make(map[common.Address]uint64)}
}

// Current returns the stored nonce for a user; unseen users are at zero.
func (s *NonceStore) Current(user common.Address) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nonces[user]
}

func (s *NonceStore) increment(user common.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nonces[user]++
}

func (s *NonceStore) set(user common.Address, nonce uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nonces[user] = nonce
}
