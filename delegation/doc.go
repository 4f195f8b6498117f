// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package delegation assigns an identity's voting weight on the governance
ledger and keeps an append-only audit history of every assignment.

# Writes

Delegate, DelegateTo and Revoke send delegate(address) through the wallet,
wait for the receipt, then append one record to the delegations table:

	res, err := mgr.Delegate(ctx, sess, "0xabc...")
	res, err := mgr.DelegateTo(ctx, sess, models.StewardTarget("alice-chen"))
	res, err := mgr.Revoke(ctx, sess)

A target that is not a valid address fails with InvalidAddressError before
the wallet is asked anything. If the ledger accepts the call but the insert
fails, the error is an AuditWriteError carrying the transaction hash; the
ledger change stands and Reconcile/RepairAudit bring the history back in
line.

# Reads

GetHistory returns records most recent first, with same-timestamp records in
reverse insertion order. GetCurrentDelegate folds that history: the latest
record's delegatee, or self when there is none or it is a revocation.
History reads go through the cache and every write invalidates the touched
identities.
*/
package delegation
