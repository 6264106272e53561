package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/citesync/internal/cite"
	"github.com/roach88/citesync/internal/protocol"
	"github.com/roach88/citesync/internal/testutil"
)

func waitOutcome(t *testing.T, ch chan Outcome) Outcome {
	t.Helper()
	select {
	case out := <-ch:
		return out
	case <-time.After(2 * time.Second):
		t.Fatal("no outcome delivered")
		return Outcome{}
	}
}

func registerResponse() protocol.Response {
	return protocol.Response{
		Kind: protocol.KindRegister,
		Register: &protocol.RegisterResponse{
			CitationByIndex: []cite.Record{
				{ID: "c1", Items: []string{"doe2019"}, Properties: cite.Properties{NoteIndex: 1}},
			},
			CitationData: []cite.Update{
				{Position: 0, Text: "Doe, On Things (2019)", ID: "c1"},
			},
		},
	}
}

func TestClientSecondRequestDroppedWhileBusy(t *testing.T) {
	transport := testutil.NewScriptedTransport(
		testutil.ScriptEntry{Response: registerResponse()},
	)
	transport.Block = make(chan struct{})

	outcomes := make(chan Outcome, 1)
	client := NewClient(transport, NewFixedGenerator("t1", "t2"), func(out Outcome) {
		outcomes <- out
	})

	citation := cite.NewRecord([]string{"doe2019"}, 1)
	require.True(t, client.Register(context.Background(), citation, nil, nil))
	assert.False(t, client.Ready())

	// Second request while the first is in flight: silently dropped,
	// never queued.
	assert.False(t, client.Register(context.Background(), citation, nil, nil))
	assert.False(t, client.Initialize(context.Background(), "chicago-note", "en-US", nil))

	close(transport.Block)
	out := waitOutcome(t, outcomes)

	require.NoError(t, out.Err)
	assert.Equal(t, "t1", out.Token)
	assert.True(t, client.Ready())

	// Only the first request reached the transport.
	assert.Len(t, transport.Requests(), 1)
}

func TestClientReadyRestoredBeforeDeliveredOutcomeIsProcessed(t *testing.T) {
	transport := testutil.NewScriptedTransport(
		testutil.ScriptEntry{Response: registerResponse()},
	)

	ready := make(chan bool, 1)
	client := NewClient(transport, NewFixedGenerator("t1"), func(Outcome) {
		ready <- true
	})

	require.True(t, client.Register(context.Background(), cite.NewRecord([]string{"a"}, 1), nil, nil))
	waitDelivered(t, ready)

	require.Eventually(t, client.Ready, time.Second, time.Millisecond)
}

func waitDelivered(t *testing.T, ch chan bool) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("outcome not delivered")
	}
}

func TestClientInitializeDecodesArrivalOrder(t *testing.T) {
	transport := testutil.NewScriptedTransport(testutil.ScriptEntry{
		Response: protocol.Response{
			Kind: protocol.KindInitialize,
			Initialize: &protocol.InitializeResponse{
				Mode: cite.ModeNote,
				RebuildData: []cite.RebuildEntry{
					{ID: "c2", NoteIndex: 1, Text: "second became first"},
					{ID: "c1", NoteIndex: 2, Text: "first became second"},
				},
			},
		},
	})

	outcomes := make(chan Outcome, 1)
	client := NewClient(transport, NewFixedGenerator("t1"), func(out Outcome) {
		outcomes <- out
	})

	require.True(t, client.Initialize(context.Background(), "chicago-note", "en-US", nil))
	out := waitOutcome(t, outcomes)

	require.NoError(t, out.Err)
	assert.Equal(t, cite.ModeNote, out.Mode)
	require.Len(t, out.Updates, 2)

	// Positions are assigned by arrival index, not by any prior order.
	assert.Equal(t, cite.Update{Position: 0, Text: "second became first", ID: "c2"}, out.Updates[0])
	assert.Equal(t, cite.Update{Position: 1, Text: "first became second", ID: "c1"}, out.Updates[1])
}

func TestClientTransportErrorReleasesSlot(t *testing.T) {
	transport := testutil.NewScriptedTransport() // exhausted: every call errors

	outcomes := make(chan Outcome, 1)
	client := NewClient(transport, NewFixedGenerator("t1", "t2"), func(out Outcome) {
		outcomes <- out
	})

	require.True(t, client.Register(context.Background(), cite.NewRecord([]string{"a"}, 1), nil, nil))
	out := waitOutcome(t, outcomes)

	require.Error(t, out.Err)
	assert.Equal(t, "t1", out.Token)
	require.Eventually(t, client.Ready, time.Second, time.Millisecond)
}

func TestClientSnapshotsRecordsAtCall(t *testing.T) {
	transport := testutil.NewScriptedTransport(
		testutil.ScriptEntry{Response: registerResponse()},
	)
	transport.Block = make(chan struct{})

	outcomes := make(chan Outcome, 1)
	client := NewClient(transport, NewFixedGenerator("t1"), func(out Outcome) {
		outcomes <- out
	})

	citation := cite.NewRecord([]string{"doe2019"}, 1)
	require.True(t, client.Register(context.Background(), citation, nil, nil))

	// Mutating the caller's copy after the call must not leak into the
	// in-flight request.
	citation.Items[0] = "mutated"

	close(transport.Block)
	waitOutcome(t, outcomes)

	reqs := transport.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, []string{"doe2019"}, reqs[0].Register.Citation.Items)
}

func TestFixedGenerator(t *testing.T) {
	gen := NewFixedGenerator("a", "b")
	assert.Equal(t, "a", gen.Generate())
	assert.Equal(t, "b", gen.Generate())
	assert.Panics(t, func() { gen.Generate() })
}

func TestUUIDv7GeneratorUnique(t *testing.T) {
	gen := UUIDv7Generator{}
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		token := gen.Generate()
		require.False(t, seen[token], "duplicate token %s", token)
		seen[token] = true
	}
}
