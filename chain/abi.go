// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package chain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

type commonAddress = common.Address

// governanceABI covers the ERC20Votes delegation surface and the Unlock
// lock's key check.
const governanceABI = `[
	{"type":"function","name":"delegate","stateMutability":"nonpayable",
	 "inputs":[{"name":"delegatee","type":"address"}],"outputs":[]},
	{"type":"function","name":"delegates","stateMutability":"view",
	 "inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"getVotes","stateMutability":"view",
	 "inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getHasValidKey","stateMutability":"view",
	 "inputs":[{"name":"_user","type":"address"}],"outputs":[{"name":"","type":"bool"}]}
]`

var parsedABI = mustParseABI(governanceABI)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}

// method finds an ABI method by its canonical signature.
func method(selector string) (abi.Method, error) {
	for _, m := range parsedABI.Methods {
		if m.Sig == selector {
			return m, nil
		}
	}
	return abi.Method{}, fmt.Errorf("unknown selector %q", selector)
}

// pack encodes call data for selector.
func pack(selector string, args ...any) ([]byte, error) {
	m, err := method(selector)
	if err != nil {
		return nil, err
	}
	data, err := parsedABI.Pack(m.Name, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", selector, err)
	}
	return data, nil
}

// unpack decodes return data for selector.
func unpack(selector string, data []byte) ([]any, error) {
	m, err := method(selector)
	if err != nil {
		return nil, err
	}
	out, err := parsedABI.Unpack(m.Name, data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", selector, err)
	}
	return out, nil
}
