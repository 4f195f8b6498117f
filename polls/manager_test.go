package polls

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/devote/apperr"
	"github.com/danielhkuo/devote/cache"
	"github.com/danielhkuo/devote/chain"
	"github.com/danielhkuo/devote/db"
	"github.com/danielhkuo/devote/models"
	"github.com/danielhkuo/devote/session"
	"github.com/danielhkuo/devote/testutil"
)

type fixture struct {
	conn     *sql.DB
	provider *chain.MemoryProvider
	mgr      *Manager
	alice    session.Session
	bob      session.Session
}

func setup(t *testing.T) *fixture {
	t.Helper()
	conn := testutil.SetupTestDB(t)
	provider := chain.NewMemoryProvider(testutil.TestNetworkID, testutil.Alice)
	provider.GrantMembership(testutil.Alice)
	mgr := NewManager(Config{
		Provider:           provider,
		DB:                 conn,
		Cache:              cache.NewMemory(),
		CacheTTL:           time.Minute,
		MembershipContract: testutil.LockKey,
		NetworkID:          testutil.TestNetworkID,
		MembershipTimeout:  time.Second,
	})
	now := time.Now()
	return &fixture{
		conn:     conn,
		provider: provider,
		mgr:      mgr,
		alice:    session.New(testutil.Alice, now),
		bob:      session.New(testutil.Bob, now),
	}
}

func feeChange() NewPoll {
	return NewPoll{
		Title:       "Fee Change",
		Description: "Lower the protocol fee to 0.3%",
		Options:     []string{"Yes", "No"},
		Duration:    "1 week",
	}
}

func TestCreatePollListedFirstAndActive(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	testutil.CreateTestPoll(t, f.conn, testutil.Bob, time.Now().Add(-time.Hour))

	created, err := f.mgr.CreatePoll(ctx, f.alice, feeChange())
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, created.Status)
	assert.Equal(t, models.Duration1Week, created.Duration)
	_, err = uuid.Parse(created.ID)
	assert.NoError(t, err)

	list, err := f.mgr.ListPolls(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Fee Change", list[0].Title)
	assert.Equal(t, models.StatusActive, list[0].Status)
	assert.Equal(t, []string{"Yes", "No"}, list[0].Options)
}

func TestCreatePollValidation(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(p *NewPoll)
		field string
	}{
		{"blank title", func(p *NewPoll) { p.Title = "   " }, "title"},
		{"blank description", func(p *NewPoll) { p.Description = "" }, "description"},
		{"one option", func(p *NewPoll) { p.Options = []string{"Yes"} }, "options"},
		{"empties discarded", func(p *NewPoll) { p.Options = []string{"Yes", " ", ""} }, "options"},
		{"no options", func(p *NewPoll) { p.Options = nil }, "options"},
		{"unknown duration", func(p *NewPoll) { p.Duration = "1 year" }, "duration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			in := feeChange()
			tt.edit(&in)

			_, err := f.mgr.CreatePoll(context.Background(), f.alice, in)
			var vErr *apperr.ValidationError
			require.True(t, errors.As(err, &vErr), "got %v", err)
			assert.Equal(t, tt.field, vErr.Field)

			list, err := f.mgr.ListPolls(context.Background(), ListFilter{})
			require.NoError(t, err)
			assert.Empty(t, list, "nothing stored for an invalid poll")
			assert.Equal(t, 0, f.provider.Sends())
		})
	}
}

func TestCreatePollTrimsOptions(t *testing.T) {
	f := setup(t)
	in := feeChange()
	in.Options = []string{" Yes ", "", "No", "  "}
	in.Duration = "2-weeks"

	p, err := f.mgr.CreatePoll(context.Background(), f.alice, in)
	require.NoError(t, err)
	assert.Equal(t, []string{"Yes", "No"}, p.Options)
	assert.Equal(t, models.Duration2Weeks, p.Duration)
}

func TestCreatePollNotConnected(t *testing.T) {
	f := setup(t)
	_, err := f.mgr.CreatePoll(context.Background(), session.Session{}, feeChange())
	assert.ErrorIs(t, err, apperr.ErrNotConnected)
}

func TestLiveStatus(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	now := time.Now()

	ended := testutil.CreateTestPoll(t, f.conn, testutil.Bob, now.AddDate(0, 0, -8))
	pending := testutil.CreateTestPoll(t, f.conn, testutil.Bob, now.Add(time.Hour))

	got, err := f.mgr.GetPoll(ctx, ended.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusEnded, got.Status, "stored status is not trusted")

	got, err = f.mgr.GetPoll(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)

	for _, p := range []models.Poll{ended, pending} {
		_, err = f.mgr.CastVote(ctx, f.alice, p.ID, 0)
		assert.ErrorIs(t, err, apperr.ErrPollNotActive)
	}
}

func TestDuplicateVote(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p, err := f.mgr.CreatePoll(ctx, f.alice, feeChange())
	require.NoError(t, err)

	_, err = f.mgr.CastVote(ctx, f.alice, p.ID, 0)
	require.NoError(t, err)

	_, err = f.mgr.CastVote(ctx, f.alice, p.ID, 1)
	assert.ErrorIs(t, err, apperr.ErrDuplicateVote)

	tally, err := f.mgr.GetTally(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0}, tally.Counts)
	assert.Equal(t, 1, tally.Total)
}

func TestConcurrentVotesSameVoter(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p, err := f.mgr.CreatePoll(ctx, f.alice, feeChange())
	require.NoError(t, err)

	const attempts = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		dupes     int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, err := f.mgr.CastVote(ctx, f.alice, p.ID, idx%2)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, apperr.ErrDuplicateVote):
				dupes++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, dupes)

	tally, err := f.mgr.GetTally(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, tally.Total)
}

func TestUniqueConstraintCatchesMissedCheck(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := testutil.CreateTestPoll(t, f.conn, testutil.Bob, time.Now())

	votes := db.NewVoteRepository(f.conn)
	v := models.Vote{PollID: p.ID, Voter: testutil.Alice, OptionIndex: 0, CastAt: time.Now()}
	require.NoError(t, votes.Insert(ctx, v))
	assert.ErrorIs(t, votes.Insert(ctx, v), db.ErrUniqueViolation)
}

func TestCastVoteRejections(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p, err := f.mgr.CreatePoll(ctx, f.alice, feeChange())
	require.NoError(t, err)

	_, err = f.mgr.CastVote(ctx, session.Session{}, p.ID, 0)
	assert.ErrorIs(t, err, apperr.ErrNotConnected)

	_, err = f.mgr.CastVote(ctx, f.alice, uuid.NewString(), 0)
	assert.ErrorIs(t, err, apperr.ErrPollNotFound)

	_, err = f.mgr.CastVote(ctx, f.alice, "not-a-uuid", 0)
	assert.ErrorIs(t, err, apperr.ErrPollNotFound)

	for _, idx := range []int{-1, 2, 100} {
		_, err = f.mgr.CastVote(ctx, f.alice, p.ID, idx)
		assert.ErrorIs(t, err, apperr.ErrInvalidOption, "index %d", idx)
	}

	_, err = f.mgr.CastVote(ctx, f.bob, p.ID, 0)
	assert.ErrorIs(t, err, apperr.ErrMembershipRequired)
	var membership *apperr.MembershipError
	require.True(t, errors.As(err, &membership))
	assert.Equal(t, testutil.LockKey.String(), membership.Lock)
	assert.Equal(t, chain.CheckoutURL(testutil.LockKey, testutil.TestNetworkID), membership.CheckoutURL)

	f.provider.SetUnavailable(true)
	_, err = f.mgr.CastVote(ctx, f.alice, p.ID, 0)
	assert.ErrorIs(t, err, apperr.ErrNoProvider)
	f.provider.SetUnavailable(false)

	tally, err := f.mgr.GetTally(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, tally.Total)
}

func TestMembershipWrongNetwork(t *testing.T) {
	f := setup(t)
	f.mgr.networkID = 1
	p, err := f.mgr.CreatePoll(context.Background(), f.alice, feeChange())
	require.NoError(t, err)

	_, err = f.mgr.CastVote(context.Background(), f.alice, p.ID, 0)
	assert.Equal(t, apperr.KindTransaction, apperr.KindOf(err))
}

func TestTallyZeroFilled(t *testing.T) {
	f := setup(t)
	in := feeChange()
	in.Options = []string{"A", "B", "C"}
	p, err := f.mgr.CreatePoll(context.Background(), f.alice, in)
	require.NoError(t, err)

	tally, err := f.mgr.GetTally(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 0}, tally.Counts)
	assert.Equal(t, []int{0, 0, 0}, tally.Shares())
}

func TestTallyIgnoresOutOfRangeVotes(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := testutil.CreateTestPoll(t, f.conn, testutil.Bob, time.Now())

	votes := db.NewVoteRepository(f.conn)
	require.NoError(t, votes.Insert(ctx, models.Vote{PollID: p.ID, Voter: testutil.Alice, OptionIndex: 1, CastAt: time.Now()}))
	require.NoError(t, votes.Insert(ctx, models.Vote{PollID: p.ID, Voter: testutil.Bob, OptionIndex: 7, CastAt: time.Now()}))

	tally, err := f.mgr.GetTally(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, tally.Counts)
	assert.Equal(t, 1, tally.Total)
}

func TestTallyCacheInvalidatedByVote(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p, err := f.mgr.CreatePoll(ctx, f.alice, feeChange())
	require.NoError(t, err)

	tally, err := f.mgr.GetTally(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, tally.Total)

	_, err = f.mgr.CastVote(ctx, f.alice, p.ID, 1)
	require.NoError(t, err)

	tally, err = f.mgr.GetTally(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, tally.Counts)
}

// voteDuringFill runs onSet once, just before the wrapped cache stores a
// value, to land a vote between a tally count and its cache fill.
type voteDuringFill struct {
	cache.Cache
	onSet func()
}

func (c *voteDuringFill) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if fn := c.onSet; fn != nil {
		c.onSet = nil
		fn()
	}
	return c.Cache.Set(ctx, key, value, ttl)
}

func TestTallyFillDoesNotOutliveConcurrentVote(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	hooked := &voteDuringFill{Cache: cache.NewMemory()}
	mgr := NewManager(Config{
		Provider:           f.provider,
		DB:                 f.conn,
		Cache:              hooked,
		CacheTTL:           time.Minute,
		MembershipContract: testutil.LockKey,
		NetworkID:          testutil.TestNetworkID,
		MembershipTimeout:  time.Second,
	})

	p, err := mgr.CreatePoll(ctx, f.alice, feeChange())
	require.NoError(t, err)

	hooked.onSet = func() {
		_, err := mgr.CastVote(ctx, f.alice, p.ID, 0)
		require.NoError(t, err)
	}

	// Counted before the vote committed.
	stale, err := mgr.GetTally(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stale.Total)

	tally, err := mgr.GetTally(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0}, tally.Counts)
	assert.Equal(t, 1, tally.Total)
}

func TestGetPollAcceptsUUIDForms(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p, err := f.mgr.CreatePoll(ctx, f.alice, feeChange())
	require.NoError(t, err)

	for _, id := range []string{
		strings.ToUpper(p.ID),
		"urn:uuid:" + p.ID,
		"{" + p.ID + "}",
	} {
		got, err := f.mgr.GetPoll(ctx, id)
		require.NoError(t, err, id)
		assert.Equal(t, p.ID, got.ID)
	}

	_, err = f.mgr.CastVote(ctx, f.alice, strings.ToUpper(p.ID), 1)
	require.NoError(t, err)
	tally, err := f.mgr.GetTally(ctx, strings.ToUpper(p.ID))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, tally.Counts)
}

func TestListPollsSkipsMalformedIDs(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	legacy := models.Poll{
		ID:          "legacy-1",
		Title:       "Old",
		Description: "Imported",
		Options:     []string{"A", "B"},
		Duration:    models.Duration1Day,
		Creator:     testutil.Bob,
		CreatedAt:   time.Now(),
		Status:      models.StatusActive,
	}
	require.NoError(t, db.NewPollRepository(f.conn).Insert(ctx, legacy))
	good := testutil.CreateTestPoll(t, f.conn, testutil.Bob, time.Now().Add(-time.Minute))

	list, err := f.mgr.ListPolls(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, good.ID, list[0].ID)
}

func TestListPollsSkipsUndecodableOptions(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	good := testutil.CreateTestPoll(t, f.conn, testutil.Bob, time.Now().Add(-time.Minute))
	_, err := f.conn.ExecContext(ctx, `
		INSERT INTO polls (id, title, description, options, duration, creator, created_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, uuid.NewString(), "Old", "Imported", "{A,B}", "1-week", testutil.Bob.String(), time.Now().UTC(), "Active")
	require.NoError(t, err)

	list, err := f.mgr.ListPolls(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, good.ID, list[0].ID)
}

func TestListPollsByCreator(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	testutil.CreateTestPoll(t, f.conn, testutil.Bob, time.Now().Add(-time.Hour))
	mine, err := f.mgr.CreatePoll(ctx, f.alice, feeChange())
	require.NoError(t, err)

	list, err := f.mgr.ListPolls(ctx, ListFilter{Creator: testutil.Alice})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, mine.ID, list[0].ID)
}

func TestVotesCast(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		p, err := f.mgr.CreatePoll(ctx, f.alice, feeChange())
		require.NoError(t, err)
		_, err = f.mgr.CastVote(ctx, f.alice, p.ID, 0)
		require.NoError(t, err)
	}

	n, err := f.mgr.VotesCast(ctx, testutil.Alice)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = f.mgr.VotesCast(ctx, testutil.Bob)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
