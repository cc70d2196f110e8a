package buf

import "testing"

func TestEndianReaders(t *testing.T) {
	b := []byte{0x12, 0x34, 0x56, 0x78, 0x9a, 0xbc, 0xde, 0xf0}

	if got := U16LE(b, 0); got != 0x3412 {
		t.Fatalf("U16LE = 0x%x, want 0x3412", got)
	}
	if got := U16BE(b, 0); got != 0x1234 {
		t.Fatalf("U16BE = 0x%x, want 0x1234", got)
	}
	if got := U32LE(b, 0); got != 0x78563412 {
		t.Fatalf("U32LE = 0x%x, want 0x78563412", got)
	}
	if got := U32BE(b, 0); got != 0x12345678 {
		t.Fatalf("U32BE = 0x%x, want 0x12345678", got)
	}
	if got := U64LE(b, 0); got != 0xf0debc9a78563412 {
		t.Fatalf("U64LE = 0x%x", got)
	}
}

func TestI32LE(t *testing.T) {
	// 0xFFFFFFD0 is the size word of an allocated 0x30-byte registry cell.
	b := []byte{0xd0, 0xff, 0xff, 0xff}
	if v := I32LE(b, 0); v != -0x30 {
		t.Fatalf("I32LE = %d, want %d", v, -0x30)
	}
}

func TestHas(t *testing.T) {
	b := make([]byte, 10)
	if !Has(b, 0, 10) || !Has(b, 9, 1) {
		t.Fatal("Has rejected in-bounds range")
	}
	if Has(b, 9, 2) || Has(b, -1, 1) || Has(b, 0, -1) {
		t.Fatal("Has accepted out-of-bounds range")
	}
}
