// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package chain wraps the external wallet provider and the governance
contracts.

# Provider

A Provider is the wallet: RequestAccounts, SignAndSend and HasMembership.
Two implementations exist:

  - EthProvider: go-ethereum ethclient plus a configured signing key
  - MemoryProvider: in-process simulation used in dev mode and tests

# Ledger

Ledger exposes the fixed ABI of the governance token:

	delegate(address)
	delegates(address) -> address
	getVotes(address) -> uint256

Membership is the Unlock lock's getHasValidKey(address) -> bool.

# Timeouts

EthProvider bounds building and signing with Timeouts.Signature and the
broadcast plus receipt wait with Timeouts.Confirmation. Deadlines surface as
apperr.TimeoutError, reverts and signing failures as apperr.TransactionError.
*/
package chain
