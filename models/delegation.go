// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "time"

// DelegationRecord is one append-only entry in an identity's delegation
// history. Revocations are records too.
type DelegationRecord struct {
	Delegator Address    `json:"delegator"`
	Delegatee Address    `json:"delegatee"`
	Timestamp time.Time  `json:"timestamp"`
	Revoked   bool       `json:"revoked"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

// CurrentDelegate folds a most-recent-first history down to the identity that
// currently holds self's voting weight.
func CurrentDelegate(self Address, history []DelegationRecord) Address {
	if len(history) == 0 {
		return self
	}
	latest := history[0]
	if latest.Revoked {
		return self
	}
	return latest.Delegatee
}

// TargetKind tags a DelegationTarget.
type TargetKind string

const (
	TargetSelf    TargetKind = "self"
	TargetSteward TargetKind = "steward"
	TargetCustom  TargetKind = "custom"
)

// DelegationTarget is what the user picked: themselves, one of the listed
// stewards, or an arbitrary address. It is resolved to a single Address
// before anything touches the ledger.
type DelegationTarget struct {
	Kind      TargetKind
	StewardID string
	Address   string
}

func SelfTarget() DelegationTarget { return DelegationTarget{Kind: TargetSelf} }

func StewardTarget(id string) DelegationTarget {
	return DelegationTarget{Kind: TargetSteward, StewardID: id}
}

func CustomTarget(addr string) DelegationTarget {
	return DelegationTarget{Kind: TargetCustom, Address: addr}
}

// Steward is a well-known delegate offered to users who don't want to pick
// an address themselves.
type Steward struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Address Address `json:"address"`
}

// StewardWithPower adds on-chain weight for listing.
type StewardWithPower struct {
	Steward
	VotingPower string `json:"voting_power"`
}

// Reconciliation compares the ledger's view of a delegation with the audit
// history kept in the store.
type Reconciliation struct {
	Identity Address `json:"identity"`
	Ledger   Address `json:"ledger_delegate"`
	Audit    Address `json:"audit_delegate"`
	InSync   bool    `json:"in_sync"`
}
