package model

import (
	"math/big"
	"testing"
)

// TestDecimal128_RoundTripsBoundaryValues: for a fixed set of 128-bit
// signed values (MIN, MAX, ±1, ±2^k boundaries), big-endian encode ->
// decode yields the identical value.
func TestDecimal128_RoundTripsBoundaryValues(t *testing.T) {
	two128 := new(big.Int).Lsh(big.NewInt(1), 128)
	half := new(big.Int).Lsh(big.NewInt(1), 127)

	max := new(big.Int).Sub(half, big.NewInt(1))              // 2^127 - 1
	min := new(big.Int).Neg(half)                              // -2^127
	values := []*big.Int{
		big.NewInt(0),
		big.NewInt(1),
		big.NewInt(-1),
		max,
		min,
		new(big.Int).Lsh(big.NewInt(1), 63),  // 2^63
		new(big.Int).Lsh(big.NewInt(1), 64),  // 2^64
		new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 63)),
		new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 64)),
	}

	for _, v := range values {
		raw := bigIntToBE16(t, v, two128)
		got := NewDecimal128FromBigEndian(raw)

		if got.BigInt().Cmp(v) != 0 {
			t.Fatalf("round trip mismatch: want %s got %s", v, got.BigInt())
		}
		if got.Bytes() != raw {
			t.Fatalf("Bytes() did not reproduce the original wire encoding for %s", v)
		}
	}
}

// bigIntToBE16 renders v's two's-complement 128-bit big-endian form, the
// same representation a producer would put on the wire.
func bigIntToBE16(t *testing.T, v, two128 *big.Int) [16]byte {
	t.Helper()
	u := new(big.Int).Set(v)
	if u.Sign() < 0 {
		u.Add(u, two128)
	}
	b := u.Bytes()
	var out [16]byte
	copy(out[16-len(b):], b)
	return out
}

// TestNewColumn_NullMaskSizedToRowCount checks the column-allocation
// contract: a fresh column's null mask has exactly n entries, all false,
// regardless of tag.
func TestNewColumn_NullMaskSizedToRowCount(t *testing.T) {
	for _, tag := range []WireTag{TagInteger, TagBigint, TagDouble, TagDate, TagTime, TagTimestamp, TagDecimalShort, TagDecimalLong, TagVarchar} {
		col := NewColumn("c", tag, 5)
		if len(col.Nulls) != 5 {
			t.Fatalf("%s: want 5 null-mask entries, got %d", tag, len(col.Nulls))
		}
		for i, n := range col.Nulls {
			if n {
				t.Fatalf("%s: row %d should start non-null", tag, i)
			}
		}
	}
}

func TestPage_EOSSentinelIsDistinguishable(t *testing.T) {
	if !EOS.IsEOS() {
		t.Fatal("EOS must report IsEOS() true")
	}
	p := &Page{NumRows: 1}
	if p.IsEOS() {
		t.Fatal("an ordinary page must not report IsEOS() true")
	}
	var nilPage *Page
	if nilPage.IsEOS() {
		t.Fatal("a nil page must not report IsEOS() true")
	}
}
