package network

import (
	"context"
	"net"
	"slices"
	"testing"
	"time"

	"brickcat/internal/protocol"
	"brickcat/internal/types"
	"brickcat/internal/wire"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer answers each query on one end of a pipe with the responses
// returned by reply. The pipe is closed when reply returns nil, or after the
// first answer when hangUp is set.
func fakeServer(t *testing.T, hangUp bool, reply func(q protocol.Query) []protocol.Response) *Client {
	t.Helper()
	clientConn, serverConn := net.Pipe()
	t.Cleanup(func() {
		clientConn.Close()
		serverConn.Close()
	})

	go func() {
		defer serverConn.Close()
		for {
			q, err := wire.Receive(serverConn, wire.DefaultLimits(), protocol.DecodeQuery)
			if err != nil {
				return
			}
			resps := reply(q)
			if resps == nil {
				return
			}
			for _, r := range resps {
				if err := wire.Send(serverConn, r, wire.DefaultLimits()); err != nil {
					return
				}
			}
			if hangUp {
				return
			}
		}
	}()
	return NewClient(clientConn, wire.DefaultLimits())
}

func colorStream(ids ...types.ColorID) []protocol.Response {
	var out []protocol.Response
	for _, id := range ids {
		out = append(out, protocol.IterItem{Key: protocol.ColorIDKey{ID: id}})
	}
	return append(out, protocol.IterEnd{})
}

func TestClientBusyGuard(t *testing.T) {
	t.Parallel()

	c := fakeServer(t, false, func(q protocol.Query) []protocol.Response {
		switch q := q.(type) {
		case protocol.Find:
			return colorStream(1, 4, 47)
		case protocol.Get:
			return []protocol.Response{protocol.GetItemResponse{Result: protocol.NotFound{}, Query: q.Item}}
		}
		return nil
	})

	it := c.IterColorIDs()
	first, ok := it.Next()
	require.True(t, ok)
	assert.Equal(t, types.ColorID(1), first)

	_, err := c.Get(protocol.PartFromID{ID: "4070"})
	assert.ErrorIs(t, err, ErrConnectionBusy)
	_, err = c.Find(protocol.FindPartIDs)
	assert.ErrorIs(t, err, ErrConnectionBusy)

	busy := c.IterPartIDs()
	_, ok = busy.Next()
	assert.False(t, ok)
	assert.ErrorIs(t, busy.Err(), ErrConnectionBusy)

	require.NoError(t, it.Drain())

	res, err := c.Get(protocol.PartFromID{ID: "4070"})
	require.NoError(t, err)
	assert.Equal(t, protocol.NotFound{}, res)
}

func TestClientBreakStopsEarly(t *testing.T) {
	t.Parallel()

	c := fakeServer(t, false, func(q protocol.Query) []protocol.Response {
		return colorStream(1, 4, 47, 71)
	})

	it := c.IterColorIDs()
	var seen []types.ColorID
	for id := range it.All() {
		seen = append(seen, id)
		if len(seen) == 2 {
			break
		}
	}
	assert.Equal(t, []types.ColorID{1, 4}, seen)

	_, err := c.Get(protocol.ColorFromID{ID: 1})
	assert.ErrorIs(t, err, ErrConnectionBusy)

	rest := slices.Collect(it.All())
	assert.Equal(t, []types.ColorID{47, 71}, rest)
	require.NoError(t, it.Err())
}

func TestClientUnexpectedResponses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		reply protocol.Response
	}{
		{"stream item for a get", protocol.IterItem{Key: protocol.PartIDKey{ID: "4070"}}},
		{"end marker for a get", protocol.IterEnd{}},
		{"answer for another query", protocol.GetItemResponse{Result: protocol.NotFound{}, Query: protocol.PartFromID{ID: "3001"}}},
		{"color for a part query", protocol.GetItemResponse{Result: protocol.ColorResult{Color: types.Color{ID: 4}}, Query: protocol.PartFromID{ID: "4070"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := fakeServer(t, false, func(protocol.Query) []protocol.Response {
				return []protocol.Response{tt.reply}
			})

			_, err := c.Get(protocol.PartFromID{ID: "4070"})
			assert.ErrorIs(t, err, ErrUnexpectedResponse)

			_, err = c.Get(protocol.PartFromID{ID: "4070"})
			assert.ErrorIs(t, err, ErrConnectionBroken)

			_, ok := c.PartFromID("4070")
			assert.False(t, ok)
		})
	}
}

func TestClientStreamFailureEndsIteration(t *testing.T) {
	t.Parallel()

	t.Run("peer closes mid-stream", func(t *testing.T) {
		t.Parallel()

		c := fakeServer(t, true, func(q protocol.Query) []protocol.Response {
			return colorStream(1, 4)[:2]
		})
		it := c.IterColorIDs()
		ids := slices.Collect(it.All())
		assert.Equal(t, []types.ColorID{1, 4}, ids)
		assert.Error(t, it.Err())

		_, ok := it.Next()
		assert.False(t, ok)

		_, err := c.Get(protocol.ColorFromID{ID: 1})
		assert.ErrorIs(t, err, ErrConnectionBroken)
	})

	t.Run("key of another kind", func(t *testing.T) {
		t.Parallel()

		c := fakeServer(t, false, func(q protocol.Query) []protocol.Response {
			return []protocol.Response{
				protocol.IterItem{Key: protocol.ColorIDKey{ID: 1}},
				protocol.IterItem{Key: protocol.ColorNameKey{Name: "Blue"}},
				protocol.IterEnd{},
			}
		})
		it := c.IterColorIDs()
		assert.Equal(t, []types.ColorID{1}, slices.Collect(it.All()))
		assert.ErrorIs(t, it.Err(), ErrUnexpectedResponse)
	})

	t.Run("get answer inside a stream", func(t *testing.T) {
		t.Parallel()

		c := fakeServer(t, false, func(q protocol.Query) []protocol.Response {
			return []protocol.Response{
				protocol.GetItemResponse{Result: protocol.NotFound{}, Query: protocol.ElementFromID{ID: 1}},
			}
		})
		it, err := c.Find(protocol.FindElementIDs)
		require.NoError(t, err)
		assert.ErrorIs(t, it.Drain(), ErrUnexpectedResponse)
	})
}

func TestClientClosed(t *testing.T) {
	t.Parallel()

	c := fakeServer(t, false, func(q protocol.Query) []protocol.Response { return nil })
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	_, err := c.Get(protocol.PartFromID{ID: "4070"})
	assert.ErrorIs(t, err, ErrConnectionBroken)
	_, ok := c.ColorFromName("Red")
	assert.False(t, ok)
}

func TestClientRejectsInvalidQueries(t *testing.T) {
	t.Parallel()

	c := fakeServer(t, false, func(q protocol.Query) []protocol.Response {
		return colorStream()
	})

	_, err := c.Get(nil)
	assert.ErrorIs(t, err, protocol.ErrUnknownVariant)
	_, err = c.Find(0)
	assert.ErrorIs(t, err, protocol.ErrUnknownVariant)

	it, err := c.Find(protocol.FindColorIDs)
	require.NoError(t, err)
	_, ok := it.Next()
	assert.False(t, ok)
	assert.NoError(t, it.Err(), "an empty stream is only its end marker")
}

func TestDialUnreachable(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err = Dial(ctx, addr, wire.DefaultLimits())
	assert.Error(t, err)
}
