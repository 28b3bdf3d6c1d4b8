package main

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/somnia-social/relay/contracts"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show contract owner, authorized sponsor, and sponsor balance",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		signer, err := dial(ctx)
		if err != nil {
			return err
		}

		abiJSON := []byte(contracts.BatchRelayerABI)

		ownerResult, err := signer.ReadContract(ctx, relayerAddress, abiJSON, "owner")
		if err != nil {
			return fmt.Errorf("failed to read owner: %w", err)
		}
		owner, err := contracts.AsAddress(ownerResult)
		if err != nil {
			return err
		}

		sponsorResult, err := signer.ReadContract(ctx, relayerAddress, abiJSON, "sponsor")
		if err != nil {
			return fmt.Errorf("failed to read sponsor: %w", err)
		}
		sponsor, err := contracts.AsAddress(sponsorResult)
		if err != nil {
			return err
		}

		balance, err := signer.NativeBalance(ctx, sponsor.Hex())
		if err != nil {
			return fmt.Errorf("failed to read sponsor balance: %w", err)
		}

		fmt.Printf("Relayer contract:   %s\n", relayerAddress)
		fmt.Printf("Owner:              %s\n", owner.Hex())
		fmt.Printf("Authorized sponsor: %s\n", sponsor.Hex())
		fmt.Printf("Sponsor balance:    %s wei\n", balance.String())
		if strings.EqualFold(signer.Address(), owner.Hex()) {
			fmt.Println("Connected key is the contract owner")
		}
		return nil
	},
}

var nonceCmd = &cobra.Command{
	Use:   "nonce <user-address>",
	Short: "Show the current relay nonce for a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user := args[0]
		if !common.IsHexAddress(user) {
			return fmt.Errorf("invalid user address %q", user)
		}

		ctx := cmd.Context()
		signer, err := dial(ctx)
		if err != nil {
			return err
		}

		result, err := signer.ReadContract(ctx, relayerAddress, []byte(contracts.BatchRelayerABI), "nonce", common.HexToAddress(user))
		if err != nil {
			return fmt.Errorf("failed to read nonce: %w", err)
		}
		nonce, err := contracts.AsBigInt(result)
		if err != nil {
			return err
		}

		fmt.Printf("%s nonce: %s\n", common.HexToAddress(user).Hex(), nonce.String())
		return nil
	},
}
