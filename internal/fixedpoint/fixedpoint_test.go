package fixedpoint

import "testing"

func TestFromDecimalString_SixDecimalsExact(t *testing.T) {
	v, err := FromDecimalString("100.000001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 100_000_001 {
		t.Fatalf("expected 100000001, got %d", v)
	}
}

func TestFromDecimalString_RejectsTooManyFractionalDigits(t *testing.T) {
	if _, err := FromDecimalString("1.1234567"); err != ErrTooPrecise {
		t.Fatalf("expected ErrTooPrecise, got %v", err)
	}
}

func TestFromDecimalString_RejectsNegative(t *testing.T) {
	if _, err := FromDecimalString("-1.5"); err != ErrNegative {
		t.Fatalf("expected ErrNegative, got %v", err)
	}
}

func TestToDecimalString_RoundTrip(t *testing.T) {
	s := ToDecimalString(100_000_001)
	if s != "100.000001" {
		t.Fatalf("expected 100.000001, got %s", s)
	}
}

func TestNotional_ComputesScaledProduct(t *testing.T) {
	n, err := Notional(100_000_000, 1_000_000) // 100.0 * 1.0
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 100_000_000 {
		t.Fatalf("expected 100000000, got %d", n)
	}
}

func TestMulDiv_DetectsOverflow(t *testing.T) {
	const maxU64 = ^uint64(0)
	if _, err := MulDiv(maxU64, maxU64, 1); err != ErrOverflow {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
}

func TestCheckedSub_DetectsUnderflow(t *testing.T) {
	if _, err := CheckedSub(5, 10); err != ErrOverflow {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
}

func TestCheckedAdd_DetectsOverflow(t *testing.T) {
	const maxU64 = ^uint64(0)
	if _, err := CheckedAdd(maxU64, 1); err != ErrOverflow {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
}
