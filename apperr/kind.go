// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package apperr

import "errors"

// Kind groups errors by how a caller should react to them.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindInvalidAddress Kind = "invalid_address"
	KindNoProvider     Kind = "no_provider"
	KindUserRejected   Kind = "user_rejected"
	KindNotConnected   Kind = "not_connected"
	KindNotFound       Kind = "not_found"
	KindNotActive      Kind = "poll_not_active"
	KindInvalidOption  Kind = "invalid_option"
	KindMembership     Kind = "membership_required"
	KindDuplicateVote  Kind = "duplicate_vote"
	KindTransaction    Kind = "transaction"
	KindTimeout        Kind = "timeout"
	KindAuditWrite     Kind = "audit_write"
	KindStore          Kind = "store"
	KindInternal       Kind = "internal"
)

// KindOf classifies err. Order matters: AuditWriteError wraps a store error
// and must not be reported as one, and a ledger write the wallet refused to
// sign is a transaction failure, not a rejected connection.
func KindOf(err error) Kind {
	var (
		validation *ValidationError
		address    *InvalidAddressError
		audit      *AuditWriteError
		timeout    *TimeoutError
		tx         *TransactionError
		store      *StoreError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &audit):
		return KindAuditWrite
	case errors.As(err, &validation):
		return KindValidation
	case errors.As(err, &address):
		return KindInvalidAddress
	case errors.As(err, &timeout):
		return KindTimeout
	case errors.As(err, &tx):
		return KindTransaction
	case errors.Is(err, ErrUserRejected):
		return KindUserRejected
	case errors.Is(err, ErrNoProvider):
		return KindNoProvider
	case errors.Is(err, ErrNotConnected):
		return KindNotConnected
	case errors.Is(err, ErrPollNotFound), errors.Is(err, ErrStewardNotFound):
		return KindNotFound
	case errors.Is(err, ErrPollNotActive):
		return KindNotActive
	case errors.Is(err, ErrInvalidOption):
		return KindInvalidOption
	case errors.Is(err, ErrMembershipRequired):
		return KindMembership
	case errors.Is(err, ErrDuplicateVote):
		return KindDuplicateVote
	case errors.As(err, &store):
		return KindStore
	}
	return KindInternal
}
