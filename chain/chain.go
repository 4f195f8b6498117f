// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package chain

import (
	"context"
	"fmt"
	"math/big"
	"net/url"
	"strconv"

	"github.com/danielhkuo/devote/models"
)

// Function selectors of the governance token and the membership lock.
const (
	SelectorDelegate       = "delegate(address)"
	SelectorDelegates      = "delegates(address)"
	SelectorGetVotes       = "getVotes(address)"
	SelectorGetHasValidKey = "getHasValidKey(address)"
)

// UnlockCheckout is the hosted checkout that sells keys for a lock.
const UnlockCheckout = "https://app.unlock-protocol.com/checkout"

// CheckoutURL links to the checkout for lock on networkID.
func CheckoutURL(lock models.Address, networkID uint64) string {
	q := url.Values{}
	q.Set("locks", lock.String())
	q.Set("network", strconv.FormatUint(networkID, 10))
	return UnlockCheckout + "?" + q.Encode()
}

// Call is one contract invocation.
type Call struct {
	From     models.Address // empty means the wallet's own account
	Contract models.Address
	Selector string
	Args     []any
}

// Receipt is what a mined transaction leaves behind.
type Receipt struct {
	TxHash      string
	BlockNumber uint64
	Success     bool
}

// Provider is the wallet: it knows the user's accounts and signs for them.
type Provider interface {
	RequestAccounts(ctx context.Context) ([]models.Address, error)
	SignAndSend(ctx context.Context, call Call) (Receipt, error)
	HasMembership(ctx context.Context, contract, holder models.Address, networkID uint64) (bool, error)
}

// Reader performs read-only contract calls.
type Reader interface {
	CallView(ctx context.Context, call Call) ([]any, error)
}

// Ledger is the governance token contract: delegate writes through the
// wallet, delegates/getVotes read through the Reader.
type Ledger struct {
	provider Provider
	reader   Reader
	contract models.Address
}

func NewLedger(provider Provider, reader Reader, contract models.Address) *Ledger {
	return &Ledger{provider: provider, reader: reader, contract: contract}
}

// Delegate sends delegate(target) signed by from and waits for the receipt.
func (l *Ledger) Delegate(ctx context.Context, from, target models.Address) (Receipt, error) {
	return l.provider.SignAndSend(ctx, Call{
		From:     from,
		Contract: l.contract,
		Selector: SelectorDelegate,
		Args:     []any{target.Common()},
	})
}

// Delegates reads the on-chain delegate of account. The zero address means
// the account never delegated.
func (l *Ledger) Delegates(ctx context.Context, account models.Address) (models.Address, error) {
	out, err := l.reader.CallView(ctx, Call{
		Contract: l.contract,
		Selector: SelectorDelegates,
		Args:     []any{account.Common()},
	})
	if err != nil {
		return "", err
	}
	addr, err := single[commonAddress](out, SelectorDelegates)
	if err != nil {
		return "", err
	}
	return models.AddressFromCommon(addr), nil
}

// GetVotes reads the voting weight currently delegated to account.
func (l *Ledger) GetVotes(ctx context.Context, account models.Address) (*big.Int, error) {
	out, err := l.reader.CallView(ctx, Call{
		Contract: l.contract,
		Selector: SelectorGetVotes,
		Args:     []any{account.Common()},
	})
	if err != nil {
		return nil, err
	}
	return single[*big.Int](out, SelectorGetVotes)
}

func single[T any](out []any, selector string) (T, error) {
	var zero T
	if len(out) != 1 {
		return zero, fmt.Errorf("%s: expected 1 return value, got %d", selector, len(out))
	}
	v, ok := out[0].(T)
	if !ok {
		return zero, fmt.Errorf("%s: unexpected return type %T", selector, out[0])
	}
	return v, nil
}
