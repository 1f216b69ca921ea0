package margin

import (
	"testing"

	"github.com/MDub3y/Hybrid-PERP-DEX/internal/domain"
)

func testMarket() domain.MarketTag { return domain.NewMarketTag("SOL-PERP") }

func TestApplyFill_PnLRealizationOnClose(t *testing.T) {
	acc := NewAccount(domain.AccountID{1}, 1_000_000_000) // ample collateral
	market := testMarket()

	if err := acc.ApplyFill(market, 1_000_000, 100_000_000); err != nil {
		t.Fatalf("open long: %v", err)
	}
	startCollateral := acc.Collateral

	if err := acc.ApplyFill(market, -1_000_000, 150_000_000); err != nil {
		t.Fatalf("close long: %v", err)
	}

	wantPnL := uint64(50_000_000)
	if acc.Collateral != startCollateral+wantPnL {
		t.Fatalf("expected collateral to increase by %d, got delta %d", wantPnL, acc.Collateral-startCollateral)
	}
	if acc.Count != 0 {
		t.Fatalf("expected position slot freed, count=%d", acc.Count)
	}
}

func TestApplyFill_LeverageGuardRejectsOvercommit(t *testing.T) {
	acc := NewAccount(domain.AccountID{1}, 10_000_000) // 10.0 collateral
	market := testMarket()

	err := acc.ApplyFill(market, 2_000_000, 100_000_000) // notional 200.0, 10x cap covers 100.0
	if err != ErrInsufficientCollateral {
		t.Fatalf("expected ErrInsufficientCollateral, got %v", err)
	}
}

func TestApplyFill_FlipRealizesOnlyClosedPortion(t *testing.T) {
	acc := NewAccount(domain.AccountID{1}, 1_000_000_000)
	market := testMarket()

	if err := acc.ApplyFill(market, 1_000_000, 100_000_000); err != nil {
		t.Fatalf("open long 1 @ 100: %v", err)
	}
	before := acc.Collateral

	// Sell 3 units at 150: closes the 1-unit long (realizes PnL) and opens a
	// fresh 2-unit short at the fill price.
	if err := acc.ApplyFill(market, -3_000_000, 150_000_000); err != nil {
		t.Fatalf("flip: %v", err)
	}

	wantPnL := uint64(50_000_000) // only the closed 1-unit portion is realized
	if acc.Collateral != before+wantPnL {
		t.Fatalf("expected realized PnL on closed portion only (+%d), got delta %d", wantPnL, acc.Collateral-before)
	}
	if acc.Count != 1 {
		t.Fatalf("expected one open (flipped) position, count=%d", acc.Count)
	}
	pos := acc.Positions[0]
	if pos.Size != -2_000_000 {
		t.Fatalf("expected residual short of 2 units, got size=%d", pos.Size)
	}
	if pos.AvgEntryPrice != 150_000_000 {
		t.Fatalf("expected flipped position entry price = fill price, got %d", pos.AvgEntryPrice)
	}
}

func TestApplyFill_WeightedAverageEntryOnIncrease(t *testing.T) {
	acc := NewAccount(domain.AccountID{1}, 1_000_000_000)
	market := testMarket()

	if err := acc.ApplyFill(market, 1_000_000, 100_000_000); err != nil {
		t.Fatalf("first leg: %v", err)
	}
	if err := acc.ApplyFill(market, 1_000_000, 200_000_000); err != nil {
		t.Fatalf("second leg: %v", err)
	}

	pos := acc.Positions[0]
	if pos.Size != 2_000_000 {
		t.Fatalf("expected size 2, got %d", pos.Size)
	}
	wantAvg := uint64(150_000_000) // (100+200)/2
	if pos.AvgEntryPrice != wantAvg {
		t.Fatalf("expected weighted average entry %d, got %d", wantAvg, pos.AvgEntryPrice)
	}
}

func TestApplyFill_MaxPositionsReached(t *testing.T) {
	acc := NewAccount(domain.AccountID{1}, 1_000_000_000_000)

	for i := 0; i < MaxPositions; i++ {
		m := domain.NewMarketTag(string(rune('A' + i)))
		if err := acc.ApplyFill(m, 1_000_000, 100_000_000); err != nil {
			t.Fatalf("open position %d: %v", i, err)
		}
	}

	overflow := domain.NewMarketTag("OVERFLOW")
	if err := acc.ApplyFill(overflow, 1_000_000, 100_000_000); err != ErrMaxPositionsReached {
		t.Fatalf("expected ErrMaxPositionsReached, got %v", err)
	}
}
