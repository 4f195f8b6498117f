// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package apperr

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNoProvider         = errors.New("no wallet provider available")
	ErrUserRejected       = errors.New("user rejected the request")
	ErrNotConnected       = errors.New("wallet not connected")
	ErrPollNotFound       = errors.New("poll not found")
	ErrPollNotActive      = errors.New("poll is not active")
	ErrInvalidOption      = errors.New("option index out of range")
	ErrMembershipRequired = errors.New("membership key required to vote")
	ErrDuplicateVote      = errors.New("already voted on this poll")
	ErrStewardNotFound    = errors.New("steward not found")
)

// ValidationError rejects user input before any network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func Validation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// InvalidAddressError carries the rejected input.
type InvalidAddressError struct {
	Input string
}

func (e *InvalidAddressError) Error() string {
	return fmt.Sprintf("invalid address %q", e.Input)
}

// TransactionError means the ledger call reverted or was never signed.
type TransactionError struct {
	Op     string
	TxHash string
	Err    error
}

func (e *TransactionError) Error() string {
	if e.TxHash != "" {
		return fmt.Sprintf("%s: transaction %s failed: %v", e.Op, e.TxHash, e.Err)
	}
	return fmt.Sprintf("%s: transaction failed: %v", e.Op, e.Err)
}

func (e *TransactionError) Unwrap() error { return e.Err }

// TimeoutError means an external call outlived its deadline. The outcome of
// the call is unknown.
type TimeoutError struct {
	Op    string
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: timed out after %s", e.Op, e.After)
}

func (e *TimeoutError) Unwrap() error { return context.DeadlineExceeded }

// AuditWriteError is a partial failure: the ledger accepted the delegation
// but the audit record was not written. Every field is needed to replay the
// record by hand.
type AuditWriteError struct {
	Delegator string
	Delegatee string
	TxHash    string
	Revoked   bool
	At        time.Time
	Err       error
}

func (e *AuditWriteError) Error() string {
	return fmt.Sprintf("delegation %s -> %s committed in %s but audit write failed: %v",
		e.Delegator, e.Delegatee, e.TxHash, e.Err)
}

func (e *AuditWriteError) Unwrap() error { return e.Err }

// MembershipError is ErrMembershipRequired with the lock the voter needs a
// key for. CheckoutURL is empty when no checkout is known.
type MembershipError struct {
	Lock        string
	NetworkID   uint64
	CheckoutURL string
}

func (e *MembershipError) Error() string { return ErrMembershipRequired.Error() }

func (e *MembershipError) Unwrap() error { return ErrMembershipRequired }

// StoreError wraps a failure of the relational store. Retryable.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}
