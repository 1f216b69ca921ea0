// Command settlement-worker pops matched trades from SETTLEMENT_QUEUE,
// builds and signs the attestation, and submits the atomic
// [verify, settle] bundle over the configured Solana RPC endpoint. Failed
// settlements are re-queued and retried after a short backoff.
package main

import (
	"context"
	"encoding/hex"
	"os/signal"
	"syscall"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/MDub3y/Hybrid-PERP-DEX/internal/config"
	"github.com/MDub3y/Hybrid-PERP-DEX/internal/domain"
	"github.com/MDub3y/Hybrid-PERP-DEX/internal/fixedpoint"
	"github.com/MDub3y/Hybrid-PERP-DEX/internal/obs"
	"github.com/MDub3y/Hybrid-PERP-DEX/internal/queue"
	"github.com/MDub3y/Hybrid-PERP-DEX/internal/settlement"
)

func main() {
	cfg := config.LoadFromEnv("")

	logger, err := obs.NewLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	q, err := queue.New(cfg.RedisURL)
	if err != nil {
		sugar.Fatalw("connect redis", "err", err)
	}
	defer q.Close()

	signer, err := settlement.EngineSignerFromEnv()
	if err != nil {
		sugar.Fatalw("load engine signing key", "err", err)
	}

	relayerBytes, err := hex.DecodeString(cfg.RelayerKeypairHex)
	if err != nil {
		sugar.Fatalw("decode relayer keypair", "err", err)
	}
	relayerKey := solana.PrivateKey(relayerBytes)

	nonces, err := settlement.OpenNonceCursor(cfg.PebbleDir)
	if err != nil {
		sugar.Fatalw("open nonce cursor", "err", err)
	}
	defer nonces.Close()

	client := &settlement.Client{
		RPC:           rpc.New(cfg.SolanaRPCURL),
		ProgramID:     solana.MustPublicKeyFromBase58(cfg.ProgramID),
		RelayerSigner: relayerKey,
		Signer:        signer,
		Nonces:        nonces,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := obs.RealClock{}
	sugar.Infow("settlement worker started")

	for ctx.Err() == nil {
		payload, ok, err := q.Pop(ctx, queue.SettlementQueue)
		if err != nil {
			sugar.Errorw("pop settlement queue", "err", err)
			<-clock.After(queue.RetryBackoff)
			continue
		}
		if !ok {
			<-clock.After(queue.PollEmptyDelay)
			continue
		}

		wire, err := domain.UnmarshalWireMatchResult(payload)
		if err != nil {
			sugar.Warnw("dropping malformed match result", "err", err)
			continue
		}
		m, err := toMatchResult(wire, cfg.Market)
		if err != nil {
			sugar.Warnw("dropping malformed match result", "err", err)
			continue
		}

		sugar.Infow("settling trade", "trade_id", m.TradeID)
		sig, err := client.SettleTrade(ctx, m)
		if err != nil {
			sugar.Errorw("settlement failed, requeueing", "trade_id", m.TradeID, "err", err)
			_ = q.Requeue(ctx, queue.SettlementQueue, payload)
			<-clock.After(queue.RetryBackoff)
			continue
		}

		sugar.Infow("trade settled", "trade_id", m.TradeID, "tx", sig.String())
	}
}

func toMatchResult(wire domain.WireMatchResult, market domain.MarketTag) (domain.MatchResult, error) {
	price, err := fixedpoint.FromDecimalString(wire.Price)
	if err != nil {
		return domain.MatchResult{}, err
	}
	qty, err := fixedpoint.FromDecimalString(wire.Quantity)
	if err != nil {
		return domain.MatchResult{}, err
	}
	buyer, err := domain.ParseAccountID(wire.BuyerID)
	if err != nil {
		return domain.MatchResult{}, err
	}
	seller, err := domain.ParseAccountID(wire.SellerID)
	if err != nil {
		return domain.MatchResult{}, err
	}
	return domain.MatchResult{
		TradeID:  wire.TradeID,
		Market:   market,
		Price:    price,
		Quantity: qty,
		BuyerID:  buyer,
		SellerID: seller,
	}, nil
}
