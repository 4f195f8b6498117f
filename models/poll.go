// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"errors"
	"strings"
	"time"
)

// ErrUnknownDuration is returned by ParseDuration.
var ErrUnknownDuration = errors.New("unknown poll duration")

// PollDuration is one of the fixed voting windows.
type PollDuration string

const (
	Duration1Day   PollDuration = "1-day"
	Duration3Days  PollDuration = "3-days"
	Duration1Week  PollDuration = "1-week"
	Duration2Weeks PollDuration = "2-weeks"
	Duration1Month PollDuration = "1-month"
)

// Durations lists every accepted window, shortest first.
var Durations = []PollDuration{Duration1Day, Duration3Days, Duration1Week, Duration2Weeks, Duration1Month}

// ParseDuration accepts "1-week", "1 week" and "1 Week".
func ParseDuration(s string) (PollDuration, error) {
	norm := strings.Join(strings.Fields(strings.ToLower(s)), "-")
	for _, d := range Durations {
		if string(d) == norm {
			return d, nil
		}
	}
	return "", ErrUnknownDuration
}

// End returns the instant a window opened at start closes.
func (d PollDuration) End(start time.Time) time.Time {
	switch d {
	case Duration1Day:
		return start.AddDate(0, 0, 1)
	case Duration3Days:
		return start.AddDate(0, 0, 3)
	case Duration1Week:
		return start.AddDate(0, 0, 7)
	case Duration2Weeks:
		return start.AddDate(0, 0, 14)
	case Duration1Month:
		return start.AddDate(0, 1, 0)
	}
	return start
}

// Label is the human form, e.g. "1 Week".
func (d PollDuration) Label() string {
	parts := strings.Split(string(d), "-")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, " ")
}

// PollStatus is derived from created_at and duration; never stored as truth.
type PollStatus string

const (
	StatusActive  PollStatus = "Active"
	StatusPending PollStatus = "Pending"
	StatusEnded   PollStatus = "Ended"
)

type Poll struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Options     []string     `json:"options"`
	Duration    PollDuration `json:"duration"`
	Creator     Address      `json:"creator"`
	CreatedAt   time.Time    `json:"created_at"`
	Status      PollStatus   `json:"status"`
}

// EndsAt is created_at + duration.
func (p Poll) EndsAt() time.Time {
	return p.Duration.End(p.CreatedAt)
}

// StatusAt derives the status at now.
func (p Poll) StatusAt(now time.Time) PollStatus {
	switch {
	case now.Before(p.CreatedAt):
		return StatusPending
	case now.Before(p.EndsAt()):
		return StatusActive
	default:
		return StatusEnded
	}
}

// TimeLeft is zero once the poll has ended.
func (p Poll) TimeLeft(now time.Time) time.Duration {
	left := p.EndsAt().Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

// WithStatus returns a copy with Status derived at now.
func (p Poll) WithStatus(now time.Time) Poll {
	p.Status = p.StatusAt(now)
	return p
}

type Vote struct {
	PollID      string    `json:"poll_id"`
	Voter       Address   `json:"voter"`
	OptionIndex int       `json:"option_index"`
	CastAt      time.Time `json:"cast_at"`
}

// Tally holds one count per option, in option order.
type Tally struct {
	PollID string `json:"poll_id"`
	Counts []int  `json:"counts"`
	Total  int    `json:"total"`
}

// NewTally zero-fills counts for n options.
func NewTally(pollID string, n int) Tally {
	return Tally{PollID: pollID, Counts: make([]int, n)}
}

// Shares returns whole-number percentages per option; all zero when nobody
// has voted.
func (t Tally) Shares() []int {
	shares := make([]int, len(t.Counts))
	if t.Total == 0 {
		return shares
	}
	for i, c := range t.Counts {
		shares[i] = c * 100 / t.Total
	}
	return shares
}
