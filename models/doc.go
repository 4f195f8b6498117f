// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines domain, request, and response types for the API.

# Domain Types

  - Address: lowercase 0x-prefixed wallet address (ParseAddress validates)
  - DelegationRecord: one append-only delegation or revocation entry
  - DelegationTarget: self, steward, or custom address (resolved before use)
  - Steward: a listed delegate
  - Poll: proposal with ordered options and a fixed voting window
  - Vote: one (poll, voter, option) record
  - Tally: per-option vote counts, zero-filled

# Poll Status

Status is never stored as truth. It is derived from created_at and duration:

	Pending  now < created_at
	Active   created_at <= now < created_at + duration
	Ended    otherwise

Durations:

	Duration1Day   = "1-day"
	Duration3Days  = "3-days"
	Duration1Week  = "1-week"
	Duration2Weeks = "2-weeks"
	Duration1Month = "1-month"

# Request Types

  - DelegateRequest: kind, steward_id, address
  - CreatePollRequest: title, description, options, duration
  - CastVoteRequest: option_index

# Response Types

  - ConnectResponse, DelegateResponse, HistoryResponse,
    CurrentDelegateResponse, RevocationsResponse
  - ListPollsResponse, CastVoteResponse, TallyResponse, StatsResponse
  - ErrorResponse: error, message, details
*/
package models
