package domain

import "math/bits"

// ─── Checked Arithmetic ─────────────────────────────────────────────────────
// All currency math goes through these helpers. Overflow is returned as
// ErrArithmeticOverflow, never a wrapped panic, so the host's
// all-or-nothing call semantics can roll the operation back.

// CheckedAdd returns a+b or ErrArithmeticOverflow.
func CheckedAdd(a, b Amount) (Amount, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrArithmeticOverflow
	}
	return sum, nil
}

// CheckedSub returns a-b or ErrArithmeticOverflow on underflow.
func CheckedSub(a, b Amount) (Amount, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, ErrArithmeticOverflow
	}
	return diff, nil
}

// CheckedMulDiv returns floor(a×b/d) using 128-bit intermediate math.
// Errors if d is zero or the quotient does not fit in 64 bits.
func CheckedMulDiv(a, b, d Amount) (Amount, error) {
	if d == 0 {
		return 0, ErrArithmeticOverflow
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= d {
		return 0, ErrArithmeticOverflow
	}
	quo, _ := bits.Div64(hi, lo, d)
	return quo, nil
}

// FeeFor computes the platform fee for a gross amount at feeBps basis
// points. The same computation is used at donation time and re-derived
// at withdrawal, so both sides of the accounting split agree as long as
// the engine's fee configuration is fixed.
func FeeFor(gross Amount, feeBps uint32) (Amount, error) {
	return CheckedMulDiv(gross, Amount(feeBps), TotalBps)
}

// ─── Quadratic Funding ──────────────────────────────────────────────────────

// ISqrt returns the floor of the square root of n, computed with
// deterministic Newton iteration. No floating point is involved, so
// every host computes identical matching allocations.
func ISqrt(n Amount) Amount {
	if n < 2 {
		return n
	}
	// Initial guess: 2^ceil(bits/2) ≥ √n.
	x := Amount(1) << ((bits.Len64(n) + 1) / 2)
	for {
		y := (x + n/x) / 2
		if y >= x {
			return x
		}
		x = y
	}
}

// QFScore computes the quadratic-funding score for a set of donations:
// (Σ √amount)². Rewards many small donors over few large ones. The sum
// of roots for 2^64-1 worth of 1-unit donations cannot overflow a
// uint64 when squared within 128 bits, so the square is checked.
func QFScore(donations []Donation) (Amount, error) {
	var rootSum Amount
	for i := range donations {
		var err error
		rootSum, err = CheckedAdd(rootSum, ISqrt(donations[i].Amount))
		if err != nil {
			return 0, err
		}
	}
	hi, lo := bits.Mul64(rootSum, rootSum)
	if hi != 0 {
		return 0, ErrArithmeticOverflow
	}
	return lo, nil
}
