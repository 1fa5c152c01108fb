package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeJetStream struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (f *fakeJetStream) Publish(subj string, data []byte, _ ...nats.PubOpt) (*nats.PubAck, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.subjects = append(f.subjects, subj)
	f.payloads = append(f.payloads, data)
	return &nats.PubAck{Stream: "fluentrest-stream"}, nil
}

func TestNATSNotifier(t *testing.T) {
	t.Run("publishes on resource subject", func(t *testing.T) {
		js := &fakeJetStream{}
		n := NewNATSNotifier(js, "")

		err := n.Notify(context.Background(), Event{
			Resource: "addresses",
			Op:       OpCreate,
			ID:       "7",
			Row:      map[string]any{"id": 7, "city": "Oslo"},
		})
		require.NoError(t, err)
		require.Len(t, js.subjects, 1)
		assert.Equal(t, "fluentrest.addresses.create", js.subjects[0])

		var got Event
		require.NoError(t, json.Unmarshal(js.payloads[0], &got))
		assert.Equal(t, "7", got.ID)
		assert.Equal(t, "Oslo", got.Row["city"])
	})

	t.Run("sanitizes subject tokens", func(t *testing.T) {
		n := NewNATSNotifier(&fakeJetStream{}, "app")
		assert.Equal(t, "app.recent_accounts_7_.delete", n.Subject(Event{Resource: "recent.accounts(7)", Op: OpDelete}))
	})

	t.Run("wraps publish errors", func(t *testing.T) {
		n := NewNATSNotifier(&fakeJetStream{err: nats.ErrTimeout}, "app")
		err := n.Notify(context.Background(), Event{Resource: "accounts", Op: OpUpdate})
		require.Error(t, err)
		assert.ErrorIs(t, err, nats.ErrTimeout)
	})

	t.Run("uninitialized", func(t *testing.T) {
		var n *NATSNotifier
		assert.ErrorIs(t, n.Notify(context.Background(), Event{}), errConnNotInitialized)
	})
}

func TestLogNotifier(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	n := LogNotifier{Logger: zap.New(core)}

	require.NoError(t, n.Notify(context.Background(), Event{Resource: "accounts", Op: OpDelete, ID: "42"}))

	entries := logs.FilterMessage("change").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "accounts", fields["resource"])
	assert.Equal(t, "delete", fields["op"])
	assert.Equal(t, "42", fields["id"])
}

func TestMulti(t *testing.T) {
	var calls int
	ok := NotifierFunc(func(context.Context, Event) error { calls++; return nil })
	boom := errors.New("boom")
	failing := NotifierFunc(func(context.Context, Event) error { calls++; return boom })

	err := Multi(ok, failing, ok).Notify(context.Background(), Event{Resource: "accounts", Op: OpCreate})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)

	assert.NoError(t, Nop.Notify(context.Background(), Event{}))
}
