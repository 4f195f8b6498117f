// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package polls

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/devote/apperr"
	"github.com/danielhkuo/devote/cache"
	"github.com/danielhkuo/devote/chain"
	"github.com/danielhkuo/devote/db"
	"github.com/danielhkuo/devote/events"
	"github.com/danielhkuo/devote/models"
	"github.com/danielhkuo/devote/session"
)

type Config struct {
	Provider chain.Provider
	DB       *sql.DB

	Cache    cache.Cache
	CacheTTL time.Duration

	// Membership is checked on this lock contract and network.
	MembershipContract models.Address
	NetworkID          uint64
	MembershipTimeout  time.Duration

	Logger *slog.Logger
	Now    func() time.Time
}

type Manager struct {
	provider   chain.Provider
	polls      *db.PollRepository
	votes      *db.VoteRepository
	cache      cache.Cache
	cacheTTL   time.Duration
	membership models.Address
	networkID  uint64
	timeout    time.Duration
	events     *events.Fanout
	logger     *slog.Logger
	now        func() time.Time

	// tallyGen counts committed votes per poll so a tally computed before a
	// vote is never left in the cache after it.
	mu       sync.Mutex
	tallyGen map[string]uint64
}

// NewPoll is the raw user submission.
type NewPoll struct {
	Title       string
	Description string
	Options     []string
	Duration    string
}

// ListFilter narrows ListPolls. The zero value lists everything.
type ListFilter struct {
	Creator models.Address
}

func NewManager(cfg Config) *Manager {
	m := &Manager{
		provider:   cfg.Provider,
		polls:      db.NewPollRepository(cfg.DB),
		votes:      db.NewVoteRepository(cfg.DB),
		cache:      cfg.Cache,
		cacheTTL:   cfg.CacheTTL,
		membership: cfg.MembershipContract,
		networkID:  cfg.NetworkID,
		timeout:    cfg.MembershipTimeout,
		logger:     cfg.Logger,
		now:        cfg.Now,
		tallyGen:   make(map[string]uint64),
	}
	if m.cache == nil {
		m.cache = cache.Nop{}
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.now == nil {
		m.now = time.Now
	}
	m.events = events.NewFanout(m.logger)
	return m
}

// Subscribe registers an observer for poll_created and vote_cast events.
func (m *Manager) Subscribe(p events.Publisher) {
	m.events.Add(p)
}

// Validate trims the submission and checks it. It never touches the store.
func (in NewPoll) Validate() (NewPoll, models.PollDuration, error) {
	out := NewPoll{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
	}
	if out.Title == "" {
		return NewPoll{}, "", apperr.Validation("title", "title is required")
	}
	if out.Description == "" {
		return NewPoll{}, "", apperr.Validation("description", "description is required")
	}

	for _, opt := range in.Options {
		if opt = strings.TrimSpace(opt); opt != "" {
			out.Options = append(out.Options, opt)
		}
	}
	if len(out.Options) < 2 {
		return NewPoll{}, "", apperr.Validation("options", "at least two non-empty options are required")
	}

	d, err := models.ParseDuration(in.Duration)
	if err != nil {
		return NewPoll{}, "", apperr.Validation("duration", "must be one of 1 day, 3 days, 1 week, 2 weeks, 1 month")
	}
	out.Duration = string(d)
	return out, d, nil
}

// CreatePoll validates the submission, then stores it with a fresh id.
func (m *Manager) CreatePoll(ctx context.Context, sess session.Session, in NewPoll) (models.Poll, error) {
	if err := sess.Require(); err != nil {
		return models.Poll{}, err
	}
	clean, d, err := in.Validate()
	if err != nil {
		return models.Poll{}, err
	}

	now := m.now().UTC()
	p := models.Poll{
		ID:          uuid.NewString(),
		Title:       clean.Title,
		Description: clean.Description,
		Options:     clean.Options,
		Duration:    d,
		Creator:     sess.Address,
		CreatedAt:   now,
		Status:      models.StatusActive,
	}
	if err := m.polls.Insert(ctx, p); err != nil {
		return models.Poll{}, apperr.Store("create poll", err)
	}

	e := events.New(events.TypePollCreated, sess.Address, now)
	e.PollID = p.ID
	m.events.Publish(ctx, e)

	m.logger.Info("poll created",
		"poll_id", p.ID,
		"creator", p.Creator,
		"options", len(p.Options),
		"duration", p.Duration,
	)
	return p.WithStatus(now), nil
}

// ListPolls returns polls newest first with live status. Rows that do not
// decode or whose id is not a UUID are skipped.
func (m *Manager) ListPolls(ctx context.Context, filter ListFilter) ([]models.Poll, error) {
	rows, skipped, err := m.polls.List(ctx, filter.Creator)
	if err != nil {
		return nil, apperr.Store("list polls", err)
	}
	for _, s := range skipped {
		m.logger.Warn("skipping malformed poll", "poll_id", s.ID, "error", s.Err)
	}

	now := m.now()
	out := make([]models.Poll, 0, len(rows))
	for _, p := range rows {
		if _, err := uuid.Parse(p.ID); err != nil {
			m.logger.Warn("skipping poll with malformed id", "poll_id", p.ID)
			continue
		}
		out = append(out, p.WithStatus(now))
	}
	return out, nil
}

// GetPoll returns ErrPollNotFound for unknown or malformed ids. Any form
// uuid.Parse accepts finds the poll.
func (m *Manager) GetPoll(ctx context.Context, id string) (models.Poll, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return models.Poll{}, apperr.ErrPollNotFound
	}
	p, err := m.polls.Get(ctx, parsed.String())
	if errors.Is(err, db.ErrNotFound) {
		return models.Poll{}, apperr.ErrPollNotFound
	}
	if err != nil {
		return models.Poll{}, apperr.Store("get poll", err)
	}
	return p.WithStatus(m.now()), nil
}

// CastVote records one vote. Checks run in order: session, poll, status,
// option, membership, prior vote. The votes table's (poll_id, voter)
// uniqueness is what actually prevents a second vote; the prior-vote check
// only avoids the insert.
func (m *Manager) CastVote(ctx context.Context, sess session.Session, pollID string, optionIndex int) (models.Vote, error) {
	if err := sess.Require(); err != nil {
		return models.Vote{}, err
	}

	p, err := m.GetPoll(ctx, pollID)
	if err != nil {
		return models.Vote{}, err
	}
	now := m.now().UTC()
	if p.StatusAt(now) != models.StatusActive {
		return models.Vote{}, apperr.ErrPollNotActive
	}
	if optionIndex < 0 || optionIndex >= len(p.Options) {
		return models.Vote{}, apperr.ErrInvalidOption
	}

	if err := m.checkMembership(ctx, sess.Address); err != nil {
		return models.Vote{}, err
	}

	voted, err := m.votes.Exists(ctx, p.ID, sess.Address)
	if err != nil {
		return models.Vote{}, apperr.Store("check vote", err)
	}
	if voted {
		return models.Vote{}, apperr.ErrDuplicateVote
	}

	v := models.Vote{
		PollID:      p.ID,
		Voter:       sess.Address,
		OptionIndex: optionIndex,
		CastAt:      now,
	}
	if err := m.votes.Insert(ctx, v); err != nil {
		if errors.Is(err, db.ErrUniqueViolation) {
			return models.Vote{}, apperr.ErrDuplicateVote
		}
		return models.Vote{}, apperr.Store("cast vote", err)
	}

	m.bumpTally(p.ID)
	if err := m.cache.Delete(ctx, tallyKey(p.ID)); err != nil {
		m.logger.Warn("tally cache invalidation failed", "poll_id", p.ID, "error", err)
	}

	e := events.New(events.TypeVoteCast, sess.Address, now)
	e.PollID = p.ID
	e.OptionIndex = &optionIndex
	m.events.Publish(ctx, e)

	m.logger.Info("vote cast",
		"poll_id", p.ID,
		"voter", sess.Address,
		"option_index", optionIndex,
	)
	return v, nil
}

func (m *Manager) checkMembership(ctx context.Context, voter models.Address) error {
	if m.provider == nil {
		return apperr.ErrNoProvider
	}
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	ok, err := m.provider.HasMembership(ctx, m.membership, voter, m.networkID)
	switch {
	case errors.Is(err, apperr.ErrNoProvider):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return &apperr.TimeoutError{Op: chain.SelectorGetHasValidKey, After: m.timeout}
	case err != nil:
		return &apperr.TransactionError{Op: chain.SelectorGetHasValidKey, Err: err}
	case !ok:
		return &apperr.MembershipError{
			Lock:        m.membership.String(),
			NetworkID:   m.networkID,
			CheckoutURL: chain.CheckoutURL(m.membership, m.networkID),
		}
	}
	return nil
}

// GetTally counts votes per option. Every option gets an entry, zero when
// nobody picked it. Votes whose index is outside the options are ignored.
func (m *Manager) GetTally(ctx context.Context, pollID string) (models.Tally, error) {
	p, err := m.GetPoll(ctx, pollID)
	if err != nil {
		return models.Tally{}, err
	}

	key := tallyKey(p.ID)
	gen := m.tallyGeneration(p.ID)
	var cached models.Tally
	hit, err := m.cache.Get(ctx, key, &cached)
	if err != nil {
		m.logger.Warn("tally cache read failed", "poll_id", p.ID, "error", err)
	}
	if hit && len(cached.Counts) == len(p.Options) {
		return cached, nil
	}

	counts, err := m.votes.CountByOption(ctx, p.ID)
	if err != nil {
		return models.Tally{}, apperr.Store("tally votes", err)
	}

	t := models.NewTally(p.ID, len(p.Options))
	for idx, n := range counts {
		if idx < 0 || idx >= len(t.Counts) {
			continue
		}
		t.Counts[idx] = n
		t.Total += n
	}

	m.fillTally(ctx, key, t, gen)
	return t, nil
}

// fillTally caches t unless a vote committed since gen was read. A vote that
// lands while the entry is being written is caught by the second check.
func (m *Manager) fillTally(ctx context.Context, key string, t models.Tally, gen uint64) {
	if m.tallyGeneration(t.PollID) != gen {
		return
	}
	if err := m.cache.Set(ctx, key, t, m.cacheTTL); err != nil {
		m.logger.Warn("tally cache write failed", "poll_id", t.PollID, "error", err)
		return
	}
	if m.tallyGeneration(t.PollID) != gen {
		if err := m.cache.Delete(ctx, key); err != nil {
			m.logger.Warn("tally cache invalidation failed", "poll_id", t.PollID, "error", err)
		}
	}
}

func (m *Manager) tallyGeneration(pollID string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tallyGen[pollID]
}

func (m *Manager) bumpTally(pollID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tallyGen[pollID]++
}

// VotesCast counts the polls voter has voted on.
func (m *Manager) VotesCast(ctx context.Context, voter models.Address) (int, error) {
	n, err := m.votes.CountByVoter(ctx, voter)
	if err != nil {
		return 0, apperr.Store("count votes", err)
	}
	return n, nil
}

func tallyKey(pollID string) string {
	return "poll:tally:" + pollID
}
