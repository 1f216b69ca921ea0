// Package orderbook implements price-time priority matching for a single
// market: two price-indexed ladders, each a FIFO queue per price level.
package orderbook

import (
	"container/heap"
	"errors"
	"sort"
	"sync"

	"github.com/MDub3y/Hybrid-PERP-DEX/internal/domain"
)

var ErrInvalidOrder = errors.New("orderbook: price and quantity must be positive")

// PriceLevel is an aggregated view of resting quantity at one price.
type PriceLevel struct {
	Price    uint64
	Quantity uint64
}

// Book holds one market's resting orders and produces trades when a new
// order crosses the opposite side.
type Book struct {
	mu sync.Mutex

	bidHeap maxPriceHeap
	askHeap minPriceHeap

	bids map[uint64][]*domain.Order // price -> FIFO queue, descending priority
	asks map[uint64][]*domain.Order // price -> FIFO queue, ascending priority

	lastPrice uint64
	nextTrade uint64
}

// New returns an empty order book for a single market.
func New() *Book {
	return &Book{
		bids:      make(map[uint64][]*domain.Order),
		asks:      make(map[uint64][]*domain.Order),
		nextTrade: 1,
	}
}

func (b *Book) bestBid() (uint64, bool) { return b.bidHeap.Peek() }
func (b *Book) bestAsk() (uint64, bool) { return b.askHeap.Peek() }

func (b *Book) addBid(o *domain.Order) {
	if len(b.bids[o.Price]) == 0 {
		heap.Push(&b.bidHeap, o.Price)
	}
	b.bids[o.Price] = append(b.bids[o.Price], o)
}

func (b *Book) addAsk(o *domain.Order) {
	if len(b.asks[o.Price]) == 0 {
		heap.Push(&b.askHeap, o.Price)
	}
	b.asks[o.Price] = append(b.asks[o.Price], o)
}

func removePrice(h *maxPriceHeap, price uint64) {
	for i := 0; i < h.Len(); i++ {
		if (*h)[i] == price {
			heap.Remove(h, i)
			return
		}
	}
}

func removeAskPrice(h *minPriceHeap, price uint64) {
	for i := 0; i < h.Len(); i++ {
		if (*h)[i] == price {
			heap.Remove(h, i)
			return
		}
	}
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

// Place matches an incoming limit order against the opposite side under
// price-time priority and rests any residual quantity at the order's own
// limit price. Trade price is always the resting (maker) side's price.
func (b *Book) Place(o *domain.Order) ([]domain.MatchResult, error) {
	if o.Price == 0 || o.Quantity == 0 {
		return nil, ErrInvalidOrder
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	var fills []domain.MatchResult

	switch o.Side {
	case domain.Buy:
		for o.Quantity > 0 {
			askPrice, ok := b.bestAsk()
			if !ok || askPrice > o.Price {
				break
			}
			level := b.asks[askPrice]
			if len(level) == 0 {
				delete(b.asks, askPrice)
				removeAskPrice(&b.askHeap, askPrice)
				continue
			}
			maker := level[0]
			qty := min64(o.Quantity, maker.Quantity)
			o.Quantity -= qty
			maker.Quantity -= qty

			fills = append(fills, b.newTrade(askPrice, qty, o.UserID, maker.UserID, o.Market))
			b.lastPrice = askPrice

			if maker.Quantity == 0 {
				b.asks[askPrice] = level[1:]
				if len(b.asks[askPrice]) == 0 {
					delete(b.asks, askPrice)
					removeAskPrice(&b.askHeap, askPrice)
				}
			}
		}
		if o.Quantity > 0 {
			cp := *o
			b.addBid(&cp)
		}

	case domain.Sell:
		for o.Quantity > 0 {
			bidPrice, ok := b.bestBid()
			if !ok || bidPrice < o.Price {
				break
			}
			level := b.bids[bidPrice]
			if len(level) == 0 {
				delete(b.bids, bidPrice)
				removePrice(&b.bidHeap, bidPrice)
				continue
			}
			maker := level[0]
			qty := min64(o.Quantity, maker.Quantity)
			o.Quantity -= qty
			maker.Quantity -= qty

			fills = append(fills, b.newTrade(bidPrice, qty, maker.UserID, o.UserID, o.Market))
			b.lastPrice = bidPrice

			if maker.Quantity == 0 {
				b.bids[bidPrice] = level[1:]
				if len(b.bids[bidPrice]) == 0 {
					delete(b.bids, bidPrice)
					removePrice(&b.bidHeap, bidPrice)
				}
			}
		}
		if o.Quantity > 0 {
			cp := *o
			b.addAsk(&cp)
		}
	}

	return fills, nil
}

func (b *Book) newTrade(price, qty uint64, buyer, seller domain.AccountID, market domain.MarketTag) domain.MatchResult {
	t := domain.MatchResult{
		TradeID:  b.nextTrade,
		Market:   market,
		Price:    price,
		Quantity: qty,
		BuyerID:  buyer,
		SellerID: seller,
	}
	b.nextTrade++
	return t
}

// BidLevels returns aggregated bid levels best-first (highest price first).
func (b *Book) BidLevels() []PriceLevel {
	b.mu.Lock()
	defer b.mu.Unlock()
	return aggregate(b.bids, true)
}

// AskLevels returns aggregated ask levels best-first (lowest price first).
func (b *Book) AskLevels() []PriceLevel {
	b.mu.Lock()
	defer b.mu.Unlock()
	return aggregate(b.asks, false)
}

func aggregate(side map[uint64][]*domain.Order, desc bool) []PriceLevel {
	levels := make([]PriceLevel, 0, len(side))
	for price, orders := range side {
		var qty uint64
		for _, o := range orders {
			qty += o.Quantity
		}
		if qty == 0 {
			continue
		}
		levels = append(levels, PriceLevel{Price: price, Quantity: qty})
	}
	sort.Slice(levels, func(i, j int) bool {
		if desc {
			return levels[i].Price > levels[j].Price
		}
		return levels[i].Price < levels[j].Price
	})
	return levels
}

// LastPrice returns the most recent fill price, or 0 if no trade has
// occurred yet on this book.
func (b *Book) LastPrice() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastPrice
}
