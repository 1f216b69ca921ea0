// Command db-processor pops matched trades from DB_QUEUE and idempotently
// persists them to Postgres.
package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/MDub3y/Hybrid-PERP-DEX/internal/config"
	"github.com/MDub3y/Hybrid-PERP-DEX/internal/domain"
	"github.com/MDub3y/Hybrid-PERP-DEX/internal/fixedpoint"
	"github.com/MDub3y/Hybrid-PERP-DEX/internal/obs"
	"github.com/MDub3y/Hybrid-PERP-DEX/internal/persistence"
	"github.com/MDub3y/Hybrid-PERP-DEX/internal/queue"
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

	store, err := persistence.Open(cfg.DatabaseURL)
	if err != nil {
		sugar.Fatalw("connect postgres", "err", err)
	}
	defer store.Close()

	if err := store.EnsureSchema(); err != nil {
		sugar.Fatalw("ensure schema", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := obs.RealClock{}
	sugar.Infow("db processor started")

	for ctx.Err() == nil {
		payload, ok, err := q.Pop(ctx, queue.DBQueue)
		if err != nil {
			sugar.Errorw("pop db queue", "err", err)
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

		if err := store.InsertTrade(m, wire.BuyerID, wire.SellerID, time.Now().UnixMilli()); err != nil {
			sugar.Errorw("persist trade failed, requeueing", "trade_id", m.TradeID, "err", err)
			_ = q.Requeue(ctx, queue.DBQueue, payload)
			<-clock.After(queue.RetryBackoff)
			continue
		}

		sugar.Infow("trade persisted", "trade_id", m.TradeID)
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
