package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/somnia-social/relay/contracts"
)

const adminGasLimit = 200_000

var allowCmd = &cobra.Command{
	Use:   "allow",
	Short: "Inspect and manage the target allow-list",
}

var allowGetCmd = &cobra.Command{
	Use:   "get <target-address>",
	Short: "Show whether a target contract is allow-listed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := args[0]
		if !common.IsHexAddress(target) {
			return fmt.Errorf("invalid target address %q", target)
		}

		ctx := cmd.Context()
		signer, err := dial(ctx)
		if err != nil {
			return err
		}

		result, err := signer.ReadContract(ctx, relayerAddress, []byte(contracts.BatchRelayerABI), "allowedTargets", common.HexToAddress(target))
		if err != nil {
			return fmt.Errorf("failed to read allow-list: %w", err)
		}
		allowed, err := contracts.AsBool(result)
		if err != nil {
			return err
		}

		fmt.Printf("%s allowed: %t\n", common.HexToAddress(target).Hex(), allowed)
		return nil
	},
}

var allowSetCmd = &cobra.Command{
	Use:   "set <target-address> <true|false>",
	Short: "Allow or disallow a target contract (owner only)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := args[0]
		if !common.IsHexAddress(target) {
			return fmt.Errorf("invalid target address %q", target)
		}
		allowed, err := parseBoolArg(args[1])
		if err != nil {
			return err
		}
		if privateKey == "" {
			return fmt.Errorf("owner key required (use --key or OWNER_PRIVATE_KEY)")
		}

		ctx := cmd.Context()
		signer, err := dial(ctx)
		if err != nil {
			return err
		}

		calldata, err := contracts.PackSetAllowedTarget(common.HexToAddress(target), allowed)
		if err != nil {
			return err
		}

		txHash, err := signer.SendTransaction(ctx, relayerAddress, calldata, adminGasLimit)
		if err != nil {
			return fmt.Errorf("failed to submit setAllowedTarget: %w", err)
		}
		fmt.Printf("Transaction submitted: %s\n", txHash)

		receipt, err := signer.WaitForReceipt(ctx, txHash)
		if err != nil {
			return fmt.Errorf("transaction submitted but unconfirmed: %w", err)
		}
		fmt.Printf("Confirmed in block %d\n", receipt.BlockNumber)
		return nil
	},
}

var allowSetBatchCmd = &cobra.Command{
	Use:   "set-batch <true|false> <target-address>...",
	Short: "Allow or disallow several target contracts in one transaction (owner only)",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		allowed, err := parseBoolArg(args[0])
		if err != nil {
			return err
		}
		if privateKey == "" {
			return fmt.Errorf("owner key required (use --key or OWNER_PRIVATE_KEY)")
		}

		targets := make([]common.Address, 0, len(args)-1)
		flags := make([]bool, 0, len(args)-1)
		for _, raw := range args[1:] {
			if !common.IsHexAddress(raw) {
				return fmt.Errorf("invalid target address %q", raw)
			}
			targets = append(targets, common.HexToAddress(raw))
			flags = append(flags, allowed)
		}

		ctx := cmd.Context()
		signer, err := dial(ctx)
		if err != nil {
			return err
		}

		calldata, err := contracts.PackBatchSetAllowedTargets(targets, flags)
		if err != nil {
			return err
		}

		gasLimit := uint64(adminGasLimit) * uint64(len(targets))
		txHash, err := signer.SendTransaction(ctx, relayerAddress, calldata, gasLimit)
		if err != nil {
			return fmt.Errorf("failed to submit batchSetAllowedTargets: %w", err)
		}
		fmt.Printf("Transaction submitted: %s\n", txHash)

		receipt, err := signer.WaitForReceipt(ctx, txHash)
		if err != nil {
			return fmt.Errorf("transaction submitted but unconfirmed: %w", err)
		}
		fmt.Printf("Confirmed in block %d\n", receipt.BlockNumber)
		return nil
	},
}

func parseBoolArg(raw string) (bool, error) {
	switch raw {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, fmt.Errorf("expected true or false, got %q", raw)
	}
}

func init() {
	allowCmd.AddCommand(allowGetCmd)
	allowCmd.AddCommand(allowSetCmd)
	allowCmd.AddCommand(allowSetBatchCmd)
}
