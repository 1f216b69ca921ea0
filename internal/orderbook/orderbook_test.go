package orderbook

import (
	"testing"

	"github.com/MDub3y/Hybrid-PERP-DEX/internal/domain"
)

func acct(b byte) domain.AccountID {
	var id domain.AccountID
	id[0] = b
	return id
}

func order(user domain.AccountID, side domain.Side, price, qty uint64) *domain.Order {
	return &domain.Order{ID: "order", UserID: user, Side: side, Price: price, Quantity: qty}
}

func TestPlace_PassiveRestThenCross(t *testing.T) {
	book := New()
	a, b := acct(1), acct(2)

	if _, err := book.Place(order(a, domain.Sell, 100, 5)); err != nil {
		t.Fatalf("rest sell: %v", err)
	}

	fills, err := book.Place(order(b, domain.Buy, 100, 3))
	if err != nil {
		t.Fatalf("cross buy: %v", err)
	}
	if len(fills) != 1 {
		t.Fatalf("expected 1 fill, got %d", len(fills))
	}
	f := fills[0]
	if f.TradeID != 1 || f.Price != 100 || f.Quantity != 3 || f.BuyerID != b || f.SellerID != a {
		t.Fatalf("unexpected fill: %+v", f)
	}

	asks := book.AskLevels()
	if len(asks) != 1 || asks[0].Price != 100 || asks[0].Quantity != 2 {
		t.Fatalf("expected asks={100:2}, got %+v", asks)
	}
	if bids := book.BidLevels(); len(bids) != 0 {
		t.Fatalf("expected empty bids, got %+v", bids)
	}
}

func TestPlace_PriceImprovementUsesMakerPrice(t *testing.T) {
	book := New()
	a, b := acct(1), acct(2)

	if _, err := book.Place(order(a, domain.Sell, 100, 5)); err != nil {
		t.Fatalf("rest sell: %v", err)
	}

	fills, err := book.Place(order(b, domain.Buy, 110, 5))
	if err != nil {
		t.Fatalf("cross buy: %v", err)
	}
	if len(fills) != 1 || fills[0].Price != 100 || fills[0].Quantity != 5 {
		t.Fatalf("expected maker price 100, qty 5; got %+v", fills)
	}
	if asks := book.AskLevels(); len(asks) != 0 {
		t.Fatalf("expected empty asks, got %+v", asks)
	}
	if bids := book.BidLevels(); len(bids) != 0 {
		t.Fatalf("expected empty bids, got %+v", bids)
	}
}

func TestPlace_FIFOWithinPrice(t *testing.T) {
	book := New()
	a, c, b := acct(1), acct(3), acct(2)

	if _, err := book.Place(order(a, domain.Sell, 100, 2)); err != nil {
		t.Fatalf("rest A: %v", err)
	}
	if _, err := book.Place(order(c, domain.Sell, 100, 2)); err != nil {
		t.Fatalf("rest C: %v", err)
	}

	fills, err := book.Place(order(b, domain.Buy, 100, 3))
	if err != nil {
		t.Fatalf("cross buy: %v", err)
	}
	if len(fills) != 2 {
		t.Fatalf("expected 2 fills, got %d: %+v", len(fills), fills)
	}
	if fills[0].TradeID != 1 || fills[0].Quantity != 2 || fills[0].SellerID != a {
		t.Fatalf("first fill should exhaust A's resting order first: %+v", fills[0])
	}
	if fills[1].TradeID != 2 || fills[1].Quantity != 1 || fills[1].SellerID != c {
		t.Fatalf("second fill should partially consume C: %+v", fills[1])
	}

	asks := book.AskLevels()
	if len(asks) != 1 || asks[0].Price != 100 || asks[0].Quantity != 1 {
		t.Fatalf("expected asks={100:1}, got %+v", asks)
	}
}

func TestPlace_RejectsZeroPriceOrQuantity(t *testing.T) {
	book := New()
	a := acct(1)
	if _, err := book.Place(order(a, domain.Buy, 0, 5)); err == nil {
		t.Fatal("expected error for zero price")
	}
	if _, err := book.Place(order(a, domain.Buy, 100, 0)); err == nil {
		t.Fatal("expected error for zero quantity")
	}
}

func TestPlace_BookNeverCrossesAfterMatch(t *testing.T) {
	book := New()
	a, b, c := acct(1), acct(2), acct(3)

	if _, err := book.Place(order(a, domain.Sell, 105, 5)); err != nil {
		t.Fatal(err)
	}
	if _, err := book.Place(order(b, domain.Buy, 95, 5)); err != nil {
		t.Fatal(err)
	}
	if _, err := book.Place(order(c, domain.Buy, 100, 1)); err != nil {
		t.Fatal(err)
	}

	bids := book.BidLevels()
	asks := book.AskLevels()
	if len(bids) == 0 || len(asks) == 0 {
		return
	}
	if bids[0].Price >= asks[0].Price {
		t.Fatalf("book crossed: best bid %d >= best ask %d", bids[0].Price, asks[0].Price)
	}
}
