// Package helpers provides common utility functions used across the codebase.
package helpers

import (
	"encoding/hex"
	"errors"
	"math/big"
	"strconv"
	"strings"
)

// ErrInvalidNumber is returned when a numeric string cannot be parsed.
var ErrInvalidNumber = errors.New("invalid number")

// HexToUint64 converts a hex string (with or without 0x prefix) to uint64.
func HexToUint64(s string) (uint64, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if s == "" {
		return 0, ErrInvalidNumber
	}
	val, ok := new(big.Int).SetString(s, 16)
	if !ok || !val.IsUint64() {
		return 0, ErrInvalidNumber
	}
	return val.Uint64(), nil
}

// ParseUint64 accepts a decimal string or a 0x prefixed hex string.
func ParseUint64(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return HexToUint64(s)
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, ErrInvalidNumber
	}
	return n, nil
}

// Uint64ToHex converts a uint64 to a hex string with 0x prefix.
func Uint64ToHex(n uint64) string {
	return "0x" + strconv.FormatUint(n, 16)
}

// HexToBytes converts a hex string (with or without 0x prefix) to bytes.
func HexToBytes(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	return hex.DecodeString(s)
}

// BytesToHex converts bytes to a hex string with 0x prefix.
func BytesToHex(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}
