package helpers

import (
	"bytes"
	"errors"
	"testing"
)

func TestParseUint64(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    uint64
		wantErr bool
	}{
		{"decimal", "8453", 8453, false},
		{"hex", "0x2105", 8453, false},
		{"upper hex prefix", "0X1", 1, false},
		{"padded", " 42161 ", 42161, false},
		{"max", "0xffffffffffffffff", ^uint64(0), false},
		{"overflow", "0x10000000000000000", 0, true},
		{"empty", "", 0, true},
		{"bare prefix", "0x", 0, true},
		{"negative", "-1", 0, true},
		{"garbage", "eth", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseUint64(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidNumber) {
					t.Fatalf("ParseUint64(%q) error = %v, want ErrInvalidNumber", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseUint64(%q) unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseUint64(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestUint64ToHex(t *testing.T) {
	tests := []struct {
		in   uint64
		want string
	}{
		{0, "0x0"},
		{1, "0x1"},
		{8453, "0x2105"},
		{792703809, "0x2f3fb341"},
	}

	for _, tt := range tests {
		if got := Uint64ToHex(tt.in); got != tt.want {
			t.Errorf("Uint64ToHex(%d) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestHexBytes(t *testing.T) {
	b, err := HexToBytes("0xdeadbeef")
	if err != nil {
		t.Fatalf("HexToBytes failed: %v", err)
	}
	if !bytes.Equal(b, []byte{0xde, 0xad, 0xbe, 0xef}) {
		t.Errorf("HexToBytes = %x", b)
	}
	if got := BytesToHex(b); got != "0xdeadbeef" {
		t.Errorf("BytesToHex = %s", got)
	}

	if _, err := HexToBytes("0xzz"); err == nil {
		t.Error("HexToBytes should reject non-hex input")
	}
}
