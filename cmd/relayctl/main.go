// relayctl administers a deployed BatchRelayer contract: inspecting sponsor
// status and user nonces, and managing the target allow-list.
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"

	signersevm "github.com/somnia-social/relay/signers/evm"
)

var (
	rpcURL         string
	relayerAddress string
	privateKey     string
)

var rootCmd = &cobra.Command{
	Use:   "relayctl",
	Short: "Administer the batch relayer contract",
	Long: `relayctl inspects and administers a deployed BatchRelayer contract.

Read commands (status, nonce) work with any key. Allow-list changes
require the contract owner's key.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if rpcURL == "" {
			rpcURL = os.Getenv("RPC_URL")
		}
		if relayerAddress == "" {
			relayerAddress = os.Getenv("BATCH_RELAYER_ADDRESS")
		}
		if privateKey == "" {
			privateKey = os.Getenv("OWNER_PRIVATE_KEY")
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rpcURL, "rpc", "", "JSON-RPC endpoint (defaults to RPC_URL env var)")
	rootCmd.PersistentFlags().StringVar(&relayerAddress, "relayer", "", "BatchRelayer contract address (defaults to BATCH_RELAYER_ADDRESS env var)")
	rootCmd.PersistentFlags().StringVar(&privateKey, "key", "", "Private key for transactions (defaults to OWNER_PRIVATE_KEY env var)")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(nonceCmd)
	rootCmd.AddCommand(allowCmd)
}

// dial connects to the chain. Read commands run with an ephemeral key when
// none is configured; eth_call needs no funded account.
func dial(ctx context.Context) (*signersevm.SponsorSigner, error) {
	if rpcURL == "" {
		return nil, fmt.Errorf("RPC endpoint not set (use --rpc or RPC_URL)")
	}
	if relayerAddress == "" {
		return nil, fmt.Errorf("relayer contract address not set (use --relayer or BATCH_RELAYER_ADDRESS)")
	}

	key := privateKey
	if key == "" {
		ephemeral, err := crypto.GenerateKey()
		if err != nil {
			return nil, fmt.Errorf("failed to generate ephemeral key: %w", err)
		}
		key = hex.EncodeToString(crypto.FromECDSA(ephemeral))
	}

	return signersevm.NewSponsorSigner(ctx, key, rpcURL)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
