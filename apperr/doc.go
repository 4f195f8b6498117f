// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package apperr defines the error taxonomy shared by every manager.

Simple rejections are sentinels (ErrDuplicateVote, ErrPollNotActive, ...).
Failures that need context are struct types: ValidationError,
InvalidAddressError, TransactionError, TimeoutError, AuditWriteError and
StoreError.

AuditWriteError is the partial-failure case: the ledger accepted a
delegation but the audit row is missing. It keeps delegator, delegatee,
tx hash and time so the row can be replayed.

KindOf maps any error to a Kind; the HTTP layer turns Kinds into status
codes.
*/
package apperr
