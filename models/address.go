// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ErrMalformedAddress is returned by ParseAddress for anything that is not a
// 0x-prefixed 20-byte hex string.
var ErrMalformedAddress = errors.New("malformed wallet address")

// Address identifies a wallet-controlled account. Always lowercase, always
// 0x-prefixed.
type Address string

// ParseAddress validates and normalizes a wallet address.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return "", ErrMalformedAddress
	}
	if !common.IsHexAddress(s) {
		return "", ErrMalformedAddress
	}
	return Address(strings.ToLower("0x" + s[2:])), nil
}

// MustParseAddress is ParseAddress for constants and tests.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Address) String() string { return string(a) }

// Common returns the go-ethereum form of the address.
func (a Address) Common() common.Address {
	return common.HexToAddress(string(a))
}

// Short renders 0x1234...5678 for log lines and UI labels.
func (a Address) Short() string {
	if len(a) < 10 {
		return string(a)
	}
	return string(a[:6]) + "..." + string(a[len(a)-4:])
}

// IsZero reports the all-zero address, which the ledger returns for an
// account that never delegated.
func (a Address) IsZero() bool {
	return a.Common() == (common.Address{})
}

// AddressFromCommon converts a go-ethereum address back.
func AddressFromCommon(c common.Address) Address {
	return Address(strings.ToLower(c.Hex()))
}
