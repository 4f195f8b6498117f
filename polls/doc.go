// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package polls creates governance polls, records member votes and tallies them.

# Status

A poll's status is derived from created_at and its duration every time it is
read:

	Pending  now < created_at
	Active   created_at <= now < created_at + duration
	Ended    otherwise

The status column written at creation is informational only.

# Voting

CastVote enforces one vote per (poll, voter). The check before the insert
saves a round trip; the UNIQUE(poll_id, voter) constraint on the votes table
decides races, and its violation is reported as ErrDuplicateVote.

Tallies are always counted from the votes table, zero-filled to the number
of options, and cached until the next vote on the same poll.
*/
package polls
