package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/devote/apperr"
	"github.com/danielhkuo/devote/chain"
	"github.com/danielhkuo/devote/db"
	"github.com/danielhkuo/devote/models"
	"github.com/danielhkuo/devote/testutil"
)

type slowProvider struct {
	*chain.MemoryProvider
}

func (p slowProvider) RequestAccounts(ctx context.Context) ([]models.Address, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestConnect(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	provider := chain.NewMemoryProvider(testutil.TestNetworkID, testutil.Alice, testutil.Bob)
	b := NewBinder(provider, conn, time.Second, nil)

	sess, err := b.Connect(context.Background())
	require.NoError(t, err)
	assert.True(t, sess.Connected())
	assert.Equal(t, testutil.Alice, sess.Address, "first authorized account is bound")

	exists, err := db.NewUserRepository(conn).Exists(context.Background(), testutil.Alice)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestConnectErrors(t *testing.T) {
	conn := testutil.SetupTestDB(t)

	tests := []struct {
		name  string
		setup func(p *chain.MemoryProvider)
		want  error
	}{
		{"no provider", func(p *chain.MemoryProvider) { p.SetUnavailable(true) }, apperr.ErrNoProvider},
		{"rejected", func(p *chain.MemoryProvider) { p.SetRejectConnect(true) }, apperr.ErrUserRejected},
		{"no accounts", func(p *chain.MemoryProvider) { p.SetAccounts() }, apperr.ErrNoProvider},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := chain.NewMemoryProvider(testutil.TestNetworkID, testutil.Alice)
			tt.setup(p)
			sess, err := NewBinder(p, conn, time.Second, nil).Connect(context.Background())
			assert.ErrorIs(t, err, tt.want)
			assert.False(t, sess.Connected())
		})
	}

	t.Run("nil provider", func(t *testing.T) {
		_, err := NewBinder(nil, conn, time.Second, nil).Connect(context.Background())
		assert.ErrorIs(t, err, apperr.ErrNoProvider)
	})
}

func TestConnectTimeout(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	p := slowProvider{chain.NewMemoryProvider(testutil.TestNetworkID, testutil.Alice)}

	_, err := NewBinder(p, conn, 20*time.Millisecond, nil).Connect(context.Background())

	var timeout *apperr.TimeoutError
	require.True(t, errors.As(err, &timeout))
	assert.Equal(t, apperr.KindTimeout, apperr.KindOf(err))
}

func TestConnectSurvivesRegistrationFailure(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	provider := chain.NewMemoryProvider(testutil.TestNetworkID, testutil.Alice)
	b := NewBinder(provider, conn, time.Second, nil)

	conn.Close()

	sess, err := b.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testutil.Alice, sess.Address)
}

func TestDisconnect(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	provider := chain.NewMemoryProvider(testutil.TestNetworkID, testutil.Alice)
	b := NewBinder(provider, conn, time.Second, nil)

	sess, err := b.Connect(context.Background())
	require.NoError(t, err)

	b.Disconnect(&sess)
	assert.False(t, sess.Connected())
	assert.ErrorIs(t, sess.Require(), apperr.ErrNotConnected)

	b.Disconnect(&sess)
	b.Disconnect(nil)
	assert.Equal(t, 0, provider.Sends(), "disconnect makes no external call")
}
