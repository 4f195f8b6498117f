package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/devote/models"
)

var (
	alice = models.MustParseAddress("0x1234567890abcdef1234567890abcdef12345678")
	bob   = models.MustParseAddress("0xabcdefabcdefabcdefabcdefabcdefabcdefabcd")
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaPublisher(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{w: w}

	e := New(TypeDelegated, alice, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	e.Target = bob
	e.TxHash = "0xabc"
	require.NoError(t, p.Publish(context.Background(), e))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, string(alice), string(msg.Key))
	assert.Equal(t, "delegated", string(msg.Headers[0].Value))

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, e.ID, decoded.ID)
	assert.Equal(t, bob, decoded.Target)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublisherError(t *testing.T) {
	p := &KafkaPublisher{w: &fakeWriter{err: errors.New("broker down")}}
	err := p.Publish(context.Background(), New(TypeVoteCast, alice, time.Now()))
	assert.ErrorContains(t, err, "broker down")
}

func TestRevocationLog(t *testing.T) {
	log := NewRevocationLog()
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, log.Publish(ctx, New(TypeDelegated, alice, base)))
	first := New(TypeRevoked, alice, base.Add(time.Hour))
	second := New(TypeRevoked, alice, base.Add(2*time.Hour))
	require.NoError(t, log.Publish(ctx, first))
	require.NoError(t, log.Publish(ctx, second))

	assert.Equal(t, 2, log.Count(alice))
	assert.Equal(t, 0, log.Count(bob))

	got := log.Events(alice)
	require.Len(t, got, 2)
	assert.Equal(t, second.ID, got[0].ID)
	assert.Equal(t, "Delegation revoked", got[0].Action)
	assert.Empty(t, log.Events(bob))
}

func TestFanoutSwallowsErrors(t *testing.T) {
	var delivered []Type
	failing := PublisherFunc(func(ctx context.Context, e Event) error {
		return errors.New("boom")
	})
	recording := PublisherFunc(func(ctx context.Context, e Event) error {
		delivered = append(delivered, e.Type)
		return nil
	})

	f := NewFanout(nil, failing)
	f.Add(recording)

	require.NoError(t, f.Publish(context.Background(), New(TypePollCreated, alice, time.Now())))
	assert.Equal(t, []Type{TypePollCreated}, delivered)
}
