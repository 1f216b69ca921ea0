// Command matching-engine pops orders from ORDER_QUEUE, matches them under
// price-time priority, and broadcasts every fill to DB_QUEUE and
// SETTLEMENT_QUEUE.
package main

import (
	"context"
	"encoding/json"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/MDub3y/Hybrid-PERP-DEX/internal/config"
	"github.com/MDub3y/Hybrid-PERP-DEX/internal/domain"
	"github.com/MDub3y/Hybrid-PERP-DEX/internal/fixedpoint"
	"github.com/MDub3y/Hybrid-PERP-DEX/internal/obs"
	"github.com/MDub3y/Hybrid-PERP-DEX/internal/orderbook"
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

	book := orderbook.New()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := obs.RealClock{}
	sugar.Infow("matching engine started", "market", cfg.Market.String())

	for ctx.Err() == nil {
		payload, ok, err := q.Pop(ctx, queue.OrderQueue)
		if err != nil {
			sugar.Errorw("pop order queue", "err", err)
			<-clock.After(queue.RetryBackoff)
			continue
		}
		if !ok {
			<-clock.After(queue.PollEmptyDelay)
			continue
		}

		order, err := decodeOrder(payload, cfg.Market)
		if err != nil {
			sugar.Warnw("dropping malformed order", "err", err)
			continue
		}

		fills, err := book.Place(order)
		if err != nil {
			sugar.Warnw("order rejected", "err", err)
			continue
		}

		for _, fill := range fills {
			broadcastMatch(ctx, q, sugar, fill)
		}
	}
}

func decodeOrder(payload []byte, market domain.MarketTag) (*domain.Order, error) {
	var wire domain.WireOrder
	if err := json.Unmarshal(payload, &wire); err != nil {
		return nil, err
	}

	userID, err := domain.ParseAccountID(wire.UserID)
	if err != nil {
		return nil, err
	}
	price, err := fixedpoint.FromDecimalString(wire.Price)
	if err != nil {
		return nil, err
	}
	qty, err := fixedpoint.FromDecimalString(wire.Quantity)
	if err != nil {
		return nil, err
	}

	side, err := domain.ParseSide(wire.Side)
	if err != nil {
		return nil, err
	}

	return &domain.Order{
		ID:       wire.UserID + ":" + wire.Price + ":" + wire.Quantity,
		UserID:   userID,
		Market:   market,
		Side:     side,
		Price:    price,
		Quantity: qty,
	}, nil
}

func broadcastMatch(ctx context.Context, q *queue.Client, log *zap.SugaredLogger, m domain.MatchResult) {
	wire := domain.WireMatchResult{
		TradeID:  m.TradeID,
		Price:    fixedpoint.ToDecimalString(m.Price),
		Quantity: fixedpoint.ToDecimalString(m.Quantity),
		BuyerID:  m.BuyerID.String(),
		SellerID: m.SellerID.String(),
	}
	payload, err := wire.Marshal()
	if err != nil {
		log.Errorw("marshal match result", "err", err)
		return
	}

	if err := q.Push(ctx, queue.SettlementQueue, payload); err != nil {
		log.Errorw("push settlement queue", "err", err)
	}
	if err := q.Push(ctx, queue.DBQueue, payload); err != nil {
		log.Errorw("push db queue", "err", err)
	}
	log.Infow("match found", "trade_id", m.TradeID, "price", wire.Price, "quantity", wire.Quantity)
}
