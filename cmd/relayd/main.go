// relayd is the gasless relay daemon: it accepts signed batch requests over
// HTTP and submits them on-chain from the sponsor key.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	relay "github.com/somnia-social/relay"
	"github.com/somnia-social/relay/config"
	relayhttp "github.com/somnia-social/relay/http"
	"github.com/somnia-social/relay/logger"
	signersevm "github.com/somnia-social/relay/signers/evm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog := logger.New(cfg.LogLevel, cfg.LogFile)
	defer zlog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sponsor, err := signersevm.NewSponsorSigner(ctx, cfg.SponsorPrivateKey, cfg.RPCURL)
	if err != nil {
		zlog.Fatal("Failed to initialize sponsor signer", zap.Error(err))
	}

	chainID, err := sponsor.ChainID(ctx)
	if err != nil {
		zlog.Fatal("Failed to get chain ID", zap.Error(err))
	}

	relayer := relay.NewRelayer(
		sponsor,
		cfg.BatchRelayerAddress,
		relay.WithGasLimit(cfg.GasLimit),
		relay.WithConfirmWait(cfg.ConfirmWait),
		relay.WithCache(relay.NewRelayCache(cfg.CacheTTL)),
		relay.WithLogger(zlog),
	)

	zlog.Info("Relay daemon starting",
		zap.String("sponsor", sponsor.Address()),
		zap.String("relayer_contract", cfg.BatchRelayerAddress),
		zap.String("chain_id", chainID.String()),
		zap.String("port", cfg.Port),
	)

	server := relayhttp.NewServer(relayer, relayhttp.WithServerLogger(zlog))
	if err := server.Run(ctx, ":"+cfg.Port); err != nil {
		zlog.Fatal("Server exited with error", zap.Error(err))
	}

	zlog.Info("Relay daemon stopped")
}
