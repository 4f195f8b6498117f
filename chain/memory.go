// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/danielhkuo/devote/apperr"
	"github.com/danielhkuo/devote/models"
)

// MemoryProvider simulates a wallet plus the governance and lock contracts
// in process. It backs dev mode when no RPC URL is configured, and tests.
type MemoryProvider struct {
	mu sync.Mutex

	networkID uint64
	accounts  []models.Address
	delegates map[models.Address]models.Address
	balances  map[models.Address]*big.Int
	members   map[models.Address]bool

	unavailable   bool
	rejectConnect bool
	sendErr       error
	sendDelay     time.Duration
	sends         int
	block         uint64
}

func NewMemoryProvider(networkID uint64, accounts ...models.Address) *MemoryProvider {
	return &MemoryProvider{
		networkID: networkID,
		accounts:  accounts,
		delegates: make(map[models.Address]models.Address),
		balances:  make(map[models.Address]*big.Int),
		members:   make(map[models.Address]bool),
	}
}

// NewDevProvider is the in-process ledger the server runs on without an RPC
// URL. Its single wallet account is derived from signerKey, or from a fresh
// key when signerKey is empty, and holds a membership key and one token.
func NewDevProvider(networkID uint64, signerKey string) (*MemoryProvider, error) {
	var (
		key *ecdsa.PrivateKey
		err error
	)
	if signerKey != "" {
		key, err = crypto.HexToECDSA(strings.TrimPrefix(signerKey, "0x"))
	} else {
		key, err = crypto.GenerateKey()
	}
	if err != nil {
		return nil, fmt.Errorf("dev wallet key: %w", err)
	}
	account := models.AddressFromCommon(crypto.PubkeyToAddress(key.PublicKey))

	m := NewMemoryProvider(networkID, account)
	m.GrantMembership(account)
	m.SetBalance(account, 1)
	return m, nil
}

// SetAccounts replaces the accounts the wallet will report, first one first.
func (m *MemoryProvider) SetAccounts(accounts ...models.Address) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts = accounts
}

// SetUnavailable makes every call fail with ErrNoProvider.
func (m *MemoryProvider) SetUnavailable(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unavailable = v
}

// SetRejectConnect makes RequestAccounts fail as if the user declined.
func (m *MemoryProvider) SetRejectConnect(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejectConnect = v
}

// FailNextSend makes the next SignAndSend return err.
func (m *MemoryProvider) FailNextSend(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendErr = err
}

// SetSendDelay simulates a slow signature or confirmation.
func (m *MemoryProvider) SetSendDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendDelay = d
}

func (m *MemoryProvider) SetBalance(addr models.Address, amount int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[addr] = big.NewInt(amount)
}

func (m *MemoryProvider) GrantMembership(addr models.Address) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members[addr] = true
}

// Sends counts SignAndSend calls that reached the simulated chain.
func (m *MemoryProvider) Sends() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sends
}

func (m *MemoryProvider) RequestAccounts(ctx context.Context) ([]models.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.unavailable:
		return nil, apperr.ErrNoProvider
	case m.rejectConnect:
		return nil, apperr.ErrUserRejected
	}
	out := make([]models.Address, len(m.accounts))
	copy(out, m.accounts)
	return out, nil
}

func (m *MemoryProvider) SignAndSend(ctx context.Context, call Call) (Receipt, error) {
	m.mu.Lock()
	delay := m.sendDelay
	m.mu.Unlock()
	if delay > 0 {
		select {
		case <-ctx.Done():
			return Receipt{}, ctx.Err()
		case <-time.After(delay):
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unavailable {
		return Receipt{}, apperr.ErrNoProvider
	}
	m.sends++
	if err := m.sendErr; err != nil {
		m.sendErr = nil
		return Receipt{}, err
	}

	from := call.From
	if from == "" {
		if len(m.accounts) == 0 {
			return Receipt{}, apperr.ErrNoProvider
		}
		from = m.accounts[0]
	}

	switch call.Selector {
	case SelectorDelegate:
		target, err := addressArg(call.Args)
		if err != nil {
			return Receipt{}, &apperr.TransactionError{Op: call.Selector, Err: err}
		}
		m.delegates[from] = target
	default:
		return Receipt{}, &apperr.TransactionError{Op: call.Selector, Err: errors.New("execution reverted: unknown function")}
	}

	m.block++
	hash := crypto.Keccak256Hash([]byte(fmt.Sprintf("%s:%s:%d", from, call.Selector, m.block)))
	return Receipt{TxHash: hash.Hex(), BlockNumber: m.block, Success: true}, nil
}

func (m *MemoryProvider) CallView(ctx context.Context, call Call) ([]any, error) {
	account, err := addressArg(call.Args)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", call.Selector, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	switch call.Selector {
	case SelectorDelegates:
		d, ok := m.delegates[account]
		if !ok {
			return []any{common.Address{}}, nil
		}
		return []any{d.Common()}, nil
	case SelectorGetVotes:
		total := new(big.Int)
		for delegator, delegatee := range m.delegates {
			if delegatee != account {
				continue
			}
			if bal, ok := m.balances[delegator]; ok {
				total.Add(total, bal)
			}
		}
		return []any{total}, nil
	case SelectorGetHasValidKey:
		return []any{m.members[account]}, nil
	}
	return nil, fmt.Errorf("call %s: unknown function", call.Selector)
}

func (m *MemoryProvider) HasMembership(ctx context.Context, contract, holder models.Address, networkID uint64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unavailable {
		return false, apperr.ErrNoProvider
	}
	if networkID != 0 && networkID != m.networkID {
		return false, fmt.Errorf("provider is on chain %d, membership lives on %d", m.networkID, networkID)
	}
	return m.members[holder], nil
}

func addressArg(args []any) (models.Address, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("expected 1 argument, got %d", len(args))
	}
	switch v := args[0].(type) {
	case common.Address:
		return models.AddressFromCommon(v), nil
	case models.Address:
		return v, nil
	}
	return "", fmt.Errorf("unexpected argument type %T", args[0])
}

var (
	_ Provider = (*MemoryProvider)(nil)
	_ Reader   = (*MemoryProvider)(nil)
)
