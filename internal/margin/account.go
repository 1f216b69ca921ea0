// Package margin implements the per-account position and collateral
// bookkeeping applied when a trade settles: weighted-average entry price,
// realized PnL on reduce/flip, and the leverage safety invariant.
package margin

import (
	"errors"

	"github.com/MDub3y/Hybrid-PERP-DEX/internal/domain"
	"github.com/MDub3y/Hybrid-PERP-DEX/internal/fixedpoint"
)

// MaxPositions bounds how many distinct markets one account can carry open
// at once, matching the on-chain account's fixed-size position array.
const MaxPositions = 8

var (
	ErrMaxPositionsReached   = errors.New("margin: account already holds the maximum number of open positions")
	ErrMathOverflow          = errors.New("margin: arithmetic overflow while applying fill")
	ErrInsufficientCollateral = errors.New("margin: collateral insufficient for post-fill leverage")
)

// MaxLeverage is the hardcoded leverage ceiling enforced by checkLeverage:
// collateral * MaxLeverage must cover total notional exposure.
const MaxLeverage = 10

// Position is one open exposure in a single market. Size is signed
// fixed-point (positive long, negative short); zero means the slot is free.
type Position struct {
	Market        domain.MarketTag
	Size          int64
	AvgEntryPrice uint64
}

// Account is the off-chain mirror of a MarginAccount: collateral plus up to
// MaxPositions open positions, and a monotonic nonce used for settlement
// replay protection.
type Account struct {
	Owner      domain.AccountID
	Collateral uint64
	Positions  [MaxPositions]Position
	Count      int
	Nonce      uint64
}

// NewAccount returns a fresh account with the given owner and starting
// collateral, no open positions, and nonce zero.
func NewAccount(owner domain.AccountID, collateral uint64) *Account {
	return &Account{Owner: owner, Collateral: collateral}
}

func absI64(v int64) uint64 {
	if v < 0 {
		return uint64(-v)
	}
	return uint64(v)
}

func (a *Account) findSlot(market domain.MarketTag) int {
	for i := 0; i < a.Count; i++ {
		if a.Positions[i].Market == market {
			return i
		}
	}
	return -1
}

// compact removes the slot at idx by swapping in the last occupied slot,
// so position_count never leaves a gap in the array (Open Question 5).
func (a *Account) compact(idx int) {
	last := a.Count - 1
	a.Positions[idx] = a.Positions[last]
	a.Positions[last] = Position{}
	a.Count--
}

// ApplyFill applies a signed fill (positive = long delta, negative = short
// delta) at the given fixed-point price to the account's position in
// market, realizing PnL on any reducing/flipping portion into collateral,
// then enforces the post-state leverage invariant.
//
// This mirrors apply_fill_to_account in the settlement handler exactly:
// locate-or-open, realize on opposite-direction overlap, update size and
// average entry price, then check collateral*MaxLeverage >= total notional.
func (a *Account) ApplyFill(market domain.MarketTag, sizeDelta int64, price uint64) error {
	idx := a.findSlot(market)
	if idx == -1 {
		if a.Count >= MaxPositions {
			return ErrMaxPositionsReached
		}
		idx = a.Count
		a.Positions[idx] = Position{Market: market}
		a.Count++
	}
	pos := &a.Positions[idx]

	oldSize := pos.Size
	newSize := oldSize + sizeDelta

	sameDirection := (oldSize >= 0 && sizeDelta >= 0) || (oldSize <= 0 && sizeDelta <= 0)

	if !sameDirection {
		closed := min64(absI64(oldSize), absI64(sizeDelta))
		if err := a.realize(pos, price, closed, oldSize < 0); err != nil {
			return err
		}
	}

	switch {
	case newSize == 0:
		pos.Size = 0
		pos.AvgEntryPrice = 0
		a.compact(idx)
		return a.checkLeverage(price)

	case sameDirection:
		if oldSize == 0 {
			pos.AvgEntryPrice = price
		} else {
			weighted, err := weightedAverage(pos.AvgEntryPrice, absI64(oldSize), price, absI64(sizeDelta), absI64(newSize))
			if err != nil {
				return err
			}
			pos.AvgEntryPrice = weighted
		}
		pos.Size = newSize

	case (oldSize > 0 && newSize < 0) || (oldSize < 0 && newSize > 0):
		// Flipped through zero: new entry price is the fill price, and only
		// the portion beyond the close is carried at that price.
		pos.Size = newSize
		pos.AvgEntryPrice = price

	default:
		// Reduced but not flipped or closed.
		pos.Size = newSize
	}

	return a.checkLeverage(price)
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

// realize books the PnL on the closed portion of a reduce/flip into
// collateral. For shorts (wasShort) the sign of (price - entry) is flipped,
// since a short profits when price falls.
func (a *Account) realize(pos *Position, price uint64, closedQty uint64, wasShort bool) error {
	var delta int64
	if price >= pos.AvgEntryPrice {
		diff := price - pos.AvgEntryPrice
		notional, err := fixedpoint.Notional(diff, closedQty)
		if err != nil {
			return ErrMathOverflow
		}
		delta = int64(notional)
	} else {
		diff := pos.AvgEntryPrice - price
		notional, err := fixedpoint.Notional(diff, closedQty)
		if err != nil {
			return ErrMathOverflow
		}
		delta = -int64(notional)
	}
	if wasShort {
		delta = -delta
	}

	if delta >= 0 {
		sum, err := fixedpoint.CheckedAdd(a.Collateral, uint64(delta))
		if err != nil {
			return ErrMathOverflow
		}
		a.Collateral = sum
	} else {
		diff, err := fixedpoint.CheckedSub(a.Collateral, uint64(-delta))
		if err != nil {
			return ErrInsufficientCollateral
		}
		a.Collateral = diff
	}
	return nil
}

func weightedAverage(oldPrice, oldQty, newPrice, newQty, totalQty uint64) (uint64, error) {
	oldNotional, err := fixedpoint.MulDiv(oldPrice, oldQty, 1)
	if err != nil {
		return 0, ErrMathOverflow
	}
	newNotional, err := fixedpoint.MulDiv(newPrice, newQty, 1)
	if err != nil {
		return 0, ErrMathOverflow
	}
	sum, err := fixedpoint.CheckedAdd(oldNotional, newNotional)
	if err != nil {
		return 0, ErrMathOverflow
	}
	if totalQty == 0 {
		return 0, nil
	}
	avg, err := fixedpoint.MulDiv(sum, 1, totalQty)
	if err != nil {
		return 0, ErrMathOverflow
	}
	return avg, nil
}

// checkLeverage enforces collateral * MaxLeverage >= total notional across
// every open position, using the trade's own fill price as the mark price
// for every position (the conservative proxy the spec dictates in lieu of
// an oracle — see Open Question 3).
func (a *Account) checkLeverage(markPrice uint64) error {
	var total uint64
	for i := 0; i < a.Count; i++ {
		notional, err := fixedpoint.Notional(markPrice, absI64(a.Positions[i].Size))
		if err != nil {
			return ErrMathOverflow
		}
		sum, err := fixedpoint.CheckedAdd(total, notional)
		if err != nil {
			return ErrMathOverflow
		}
		total = sum
	}

	covered, err := fixedpoint.CheckedAdd(0, a.Collateral)
	if err != nil {
		return ErrMathOverflow
	}
	scaled := covered * MaxLeverage
	if scaled < covered {
		return ErrMathOverflow
	}
	if scaled < total {
		return ErrInsufficientCollateral
	}
	return nil
}
