package relay

import (
	"encoding/json"
	"math/big"
)

// Call is a single contract interaction inside a relayed batch. Order within
// the batch is execution order.
type Call struct {
	Target string `json:"target"` // contract address (hex)
	Value  string `json:"value"`  // native value in wei as decimal string
	Data   string `json:"data"`   // ABI-encoded calldata (hex)
}

// ValueBig parses the call value as a big integer. A missing or empty value
// is treated as zero.
func (c Call) ValueBig() (*big.Int, bool) {
	if c.Value == "" {
		return big.NewInt(0), true
	}
	return new(big.Int).SetString(c.Value, 10)
}

// RelayRequest is the signed payload a user submits to the relay service.
// It is transient: it lives for one client -> server -> chain round trip and
// becomes unusable once the user's on-chain nonce moves past Nonce.
type RelayRequest struct {
	User      string `json:"user"`      // address whose intent is relayed
	Calls     []Call `json:"calls"`     // ordered batch, not reorderable
	Nonce     uint64 `json:"nonce"`     // must equal the stored nonce for User
	Deadline  int64  `json:"deadline"`  // unix seconds; expired when now > deadline
	Signature string `json:"signature"` // EIP-712 signature over the above (hex)
}

// Targets returns the distinct call targets in batch order.
func (r *RelayRequest) Targets() []string {
	seen := make(map[string]bool, len(r.Calls))
	targets := make([]string, 0, len(r.Calls))
	for _, call := range r.Calls {
		if !seen[call.Target] {
			seen[call.Target] = true
			targets = append(targets, call.Target)
		}
	}
	return targets
}

// CanonicalBytes returns a deterministic JSON encoding of the request, used
// as the idempotency-cache key material. Struct field order is fixed, so
// encoding/json output is stable for a given request.
func (r *RelayRequest) CanonicalBytes() []byte {
	b, _ := json.Marshal(r)
	return b
}

// RelayResponse is the terminal outcome of one relay attempt.
type RelayResponse struct {
	Success     bool   `json:"success"`
	TxHash      string `json:"txHash,omitempty"`
	BlockNumber uint64 `json:"blockNumber,omitempty"`
	GasUsed     string `json:"gasUsed,omitempty"`
	Error       string `json:"error,omitempty"`
}

// HealthStatus is returned by the health endpoint.
type HealthStatus struct {
	Status            string `json:"status"`
	SponsorAddress    string `json:"sponsorAddress"`
	AuthorizedSponsor string `json:"authorizedSponsor"`
	IsAuthorized      bool   `json:"isAuthorized"`
	Balance           string `json:"balance"`
}

const (
	// DefaultGasLimit caps how much gas a single relayed batch may consume.
	// Guards the sponsor against a batch that estimates low but burns high.
	DefaultGasLimit uint64 = 5_000_000

	// DefaultDeadlineWindow is the client-side deadline horizon in seconds.
	DefaultDeadlineWindow int64 = 3600
)
