package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/citesync/internal/protocol"
)

func TestSequenceGenerator(t *testing.T) {
	gen := NewSequenceGenerator("trip")
	assert.Equal(t, "trip-0001", gen.Generate())
	assert.Equal(t, "trip-0002", gen.Generate())

	gen = NewSequenceGenerator("")
	assert.Equal(t, "token-0001", gen.Generate())
}

func TestDeterministicClock(t *testing.T) {
	clock := NewDeterministicClock()
	assert.Equal(t, int64(0), clock.Current())
	assert.Equal(t, int64(1), clock.Next())
	assert.Equal(t, int64(2), clock.Next())
	assert.Equal(t, int64(2), clock.Current())

	clock.Reset()
	assert.Equal(t, int64(1), clock.Next())
}

func TestScriptedTransportReplaysInOrder(t *testing.T) {
	wantErr := errors.New("engine unavailable")
	transport := NewScriptedTransport(
		ScriptEntry{Response: protocol.Response{Kind: protocol.KindInitialize}},
		ScriptEntry{Err: wantErr},
	)

	req := protocol.Request{Kind: protocol.KindInitialize}
	resp, err := transport.Roundtrip(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, protocol.KindInitialize, resp.Kind)

	_, err = transport.Roundtrip(context.Background(), req)
	require.ErrorIs(t, err, wantErr)

	// Exhausted script reports, and still records the request.
	_, err = transport.Roundtrip(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exhausted")
	assert.Len(t, transport.Requests(), 3)
}

func TestScriptedTransportBlockHonorsContext(t *testing.T) {
	transport := NewScriptedTransport(
		ScriptEntry{Response: protocol.Response{Kind: protocol.KindInitialize}},
	)
	transport.Block = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := transport.Roundtrip(ctx, protocol.Request{Kind: protocol.KindInitialize})
	require.ErrorIs(t, err, context.Canceled)

	// Unblocking lets the scripted reply through.
	close(transport.Block)
	resp, err := transport.Roundtrip(context.Background(), protocol.Request{Kind: protocol.KindInitialize})
	require.NoError(t, err)
	assert.Equal(t, protocol.KindInitialize, resp.Kind)
}
