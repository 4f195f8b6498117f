// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/danielhkuo/devote/apperr"
	"github.com/danielhkuo/devote/models"
)

// codeUserRejected is EIP-1193's "user rejected the request".
const codeUserRejected = 4001

// Timeouts bound the two phases of a write.
type Timeouts struct {
	Signature    time.Duration
	Confirmation time.Duration
}

// EthProvider talks JSON-RPC to an EVM node and signs with a configured key.
// Without a key it still serves reads but reports ErrNoProvider for anything
// that needs an account.
type EthProvider struct {
	client   *ethclient.Client
	key      *ecdsa.PrivateKey
	account  models.Address
	timeouts Timeouts
	logger   *slog.Logger
}

// DialEth connects to rpcURL. signerKey is a hex private key, optional.
func DialEth(ctx context.Context, rpcURL, signerKey string, timeouts Timeouts, logger *slog.Logger) (*EthProvider, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", rpcURL, err)
	}

	p := &EthProvider{client: client, timeouts: timeouts, logger: logger}
	if signerKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(signerKey, "0x"))
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("invalid signer key: %w", err)
		}
		p.key = key
		p.account = models.AddressFromCommon(crypto.PubkeyToAddress(key.PublicKey))
	}
	return p, nil
}

func (p *EthProvider) Close() {
	p.client.Close()
}

func (p *EthProvider) RequestAccounts(ctx context.Context) ([]models.Address, error) {
	if p.key == nil {
		return nil, apperr.ErrNoProvider
	}
	return []models.Address{p.account}, nil
}

// SignAndSend builds, signs and broadcasts a legacy transaction, then waits
// for it to be mined. Building and signing run under the signature timeout;
// the wait runs under the confirmation timeout.
func (p *EthProvider) SignAndSend(ctx context.Context, call Call) (Receipt, error) {
	if p.key == nil {
		return Receipt{}, apperr.ErrNoProvider
	}
	if call.From != "" && call.From != p.account {
		return Receipt{}, &apperr.TransactionError{Op: call.Selector, Err: fmt.Errorf("wallet holds %s, cannot sign for %s", p.account, call.From)}
	}
	data, err := pack(call.Selector, call.Args...)
	if err != nil {
		return Receipt{}, err
	}

	sigCtx, cancel := context.WithTimeout(ctx, p.timeouts.Signature)
	tx, err := p.signTx(sigCtx, call.Contract, data)
	cancel()
	if err != nil {
		return Receipt{}, p.classify(call.Selector, "", err, p.timeouts.Signature)
	}

	confirmCtx, cancel := context.WithTimeout(ctx, p.timeouts.Confirmation)
	defer cancel()
	if err := p.client.SendTransaction(confirmCtx, tx); err != nil {
		return Receipt{}, p.classify(call.Selector, tx.Hash().Hex(), err, p.timeouts.Confirmation)
	}
	p.logger.Info("transaction sent", "selector", call.Selector, "tx_hash", tx.Hash().Hex())

	mined, err := bind.WaitMined(confirmCtx, p.client, tx)
	if err != nil {
		return Receipt{}, p.classify(call.Selector, tx.Hash().Hex(), err, p.timeouts.Confirmation)
	}

	receipt := Receipt{
		TxHash:      mined.TxHash.Hex(),
		BlockNumber: mined.BlockNumber.Uint64(),
		Success:     mined.Status == types.ReceiptStatusSuccessful,
	}
	if !receipt.Success {
		return receipt, &apperr.TransactionError{Op: call.Selector, TxHash: receipt.TxHash, Err: errors.New("execution reverted")}
	}
	return receipt, nil
}

func (p *EthProvider) signTx(ctx context.Context, to models.Address, data []byte) (*types.Transaction, error) {
	from := p.account.Common()
	contract := to.Common()

	chainID, err := p.client.ChainID(ctx)
	if err != nil {
		return nil, err
	}
	nonce, err := p.client.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, err
	}
	gasPrice, err := p.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, err
	}
	gas, err := p.client.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &contract, Data: data})
	if err != nil {
		return nil, err
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &contract,
		Value:    big.NewInt(0),
		Gas:      gas,
		GasPrice: gasPrice,
		Data:     data,
	})
	return types.SignTx(tx, types.LatestSignerForChainID(chainID), p.key)
}

func (p *EthProvider) CallView(ctx context.Context, call Call) ([]any, error) {
	data, err := pack(call.Selector, call.Args...)
	if err != nil {
		return nil, err
	}
	contract := call.Contract.Common()
	out, err := p.client.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", call.Selector, err)
	}
	return unpack(call.Selector, out)
}

// HasMembership checks getHasValidKey on the lock contract, refusing to
// answer from the wrong network.
func (p *EthProvider) HasMembership(ctx context.Context, contract, holder models.Address, networkID uint64) (bool, error) {
	chainID, err := p.client.ChainID(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to read chain id: %w", err)
	}
	if networkID != 0 && chainID.Uint64() != networkID {
		return false, fmt.Errorf("provider is on chain %d, membership lives on %d", chainID.Uint64(), networkID)
	}
	out, err := p.CallView(ctx, Call{Contract: contract, Selector: SelectorGetHasValidKey, Args: []any{holder.Common()}})
	if err != nil {
		return false, err
	}
	return single[bool](out, SelectorGetHasValidKey)
}

func (p *EthProvider) classify(op, txHash string, err error, limit time.Duration) error {
	var rpcErr rpc.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &apperr.TimeoutError{Op: op, After: limit}
	case errors.As(err, &rpcErr) && rpcErr.ErrorCode() == codeUserRejected:
		return &apperr.TransactionError{Op: op, TxHash: txHash, Err: apperr.ErrUserRejected}
	}
	return &apperr.TransactionError{Op: op, TxHash: txHash, Err: err}
}

var (
	_ Provider = (*EthProvider)(nil)
	_ Reader   = (*EthProvider)(nil)
)
