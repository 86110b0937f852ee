package network

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"brickcat/internal/catalog"
	"brickcat/internal/logger"
	"brickcat/internal/protocol"
	"brickcat/internal/types"
	"brickcat/internal/wire"
)

var (
	// ErrConnectionBusy is returned for a query issued while an earlier one
	// is still being answered. Nothing is written to the connection.
	ErrConnectionBusy = errors.New("network: connection busy")
	// ErrConnectionBroken is returned once a connection has failed; it must be
	// closed and redialed.
	ErrConnectionBroken   = errors.New("network: connection broken")
	ErrUnexpectedResponse = errors.New("network: unexpected response")
)

type connState int

const (
	stateIdle connState = iota
	stateAwaitingPoint
	stateDraining
	stateBroken
	stateClosed
)

var _ catalog.Reader = (*Client)(nil)

// Client issues catalog queries over one connection, one query at a time.
// A Find stream must be read to its end (or drained) before the next query.
type Client struct {
	conn   net.Conn
	r      *bufio.Reader
	limits wire.Limits

	mu    sync.Mutex
	state connState
	cause error
}

// Dial connects to a catalog server at addr.
func Dial(ctx context.Context, addr string, limits wire.Limits) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("network: dial %s: %w", addr, err)
	}
	return NewClient(conn, limits), nil
}

// NewClient wraps an established connection.
func NewClient(conn net.Conn, limits wire.Limits) *Client {
	return &Client{conn: conn, r: bufio.NewReader(conn), limits: limits}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == stateClosed {
		return nil
	}
	c.state = stateClosed
	return c.conn.Close()
}

// begin moves an idle connection into next.
func (c *Client) begin(next connState) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case stateIdle:
		c.state = next
		return nil
	case stateAwaitingPoint, stateDraining:
		return ErrConnectionBusy
	case stateBroken:
		return fmt.Errorf("%w: %v", ErrConnectionBroken, c.cause)
	default:
		return fmt.Errorf("%w: closed", ErrConnectionBroken)
	}
}

func (c *Client) finish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == stateAwaitingPoint || c.state == stateDraining {
		c.state = stateIdle
	}
}

// fail marks the connection unusable and returns err.
func (c *Client) fail(err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != stateClosed {
		c.state = stateBroken
		c.cause = err
	}
	return err
}

// Get sends a point query and returns its result. NotFound is a result, not
// an error. Any error leaves the connection broken, except ErrConnectionBusy.
func (c *Client) Get(item protocol.GetItem) (protocol.Result, error) {
	if item == nil {
		return nil, fmt.Errorf("%w: nil get item", protocol.ErrUnknownVariant)
	}
	if err := c.begin(stateAwaitingPoint); err != nil {
		return nil, err
	}
	if err := wire.Send(c.conn, protocol.Get{Item: item}, c.limits); err != nil {
		return nil, c.fail(err)
	}
	resp, err := wire.Receive(c.r, c.limits, protocol.DecodeResponse)
	if err != nil {
		return nil, c.fail(err)
	}
	r, ok := resp.(protocol.GetItemResponse)
	if !ok {
		return nil, c.fail(fmt.Errorf("%w: %T to a get query", ErrUnexpectedResponse, resp))
	}
	if r.Query != item {
		return nil, c.fail(fmt.Errorf("%w: answer for %#v to a query for %#v", ErrUnexpectedResponse, r.Query, item))
	}
	if !resultMatches(item, r.Result) {
		return nil, c.fail(fmt.Errorf("%w: %T for %T", ErrUnexpectedResponse, r.Result, item))
	}
	c.finish()
	return r.Result, nil
}

func resultMatches(item protocol.GetItem, result protocol.Result) bool {
	switch result.(type) {
	case protocol.NotFound:
		return true
	case protocol.PartResult:
		switch item.(type) {
		case protocol.PartFromID, protocol.PartFromName:
			return true
		}
	case protocol.ColorResult:
		switch item.(type) {
		case protocol.ColorFromID, protocol.ColorFromName:
			return true
		}
	case protocol.ElementResult:
		_, ok := item.(protocol.ElementFromID)
		return ok
	}
	return false
}

// Find sends an enumeration query. The connection stays busy until the
// returned iterator reaches the end marker.
func (c *Client) Find(kind protocol.FindKind) (*Iterator[protocol.Key], error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: find kind %d", protocol.ErrUnknownVariant, kind)
	}
	if err := c.begin(stateDraining); err != nil {
		return nil, err
	}
	if err := wire.Send(c.conn, protocol.Find{Kind: kind}, c.limits); err != nil {
		return nil, c.fail(err)
	}
	return newIterator(func() (protocol.Key, bool, error) {
		resp, err := wire.Receive(c.r, c.limits, protocol.DecodeResponse)
		if err != nil {
			return nil, false, c.fail(err)
		}
		switch resp := resp.(type) {
		case protocol.IterItem:
			if resp.Key.Kind() != kind {
				return nil, false, c.fail(fmt.Errorf("%w: %s key in a %s stream", ErrUnexpectedResponse, resp.Key.Kind(), kind))
			}
			return resp.Key, true, nil
		case protocol.IterEnd:
			c.finish()
			return nil, false, nil
		default:
			return nil, false, c.fail(fmt.Errorf("%w: %T in a %s stream", ErrUnexpectedResponse, resp, kind))
		}
	}), nil
}

// lookup runs a point query and unwraps the result. Every failure reads as
// "not found" so callers can fall back to another source.
func lookup[T any](c *Client, item protocol.GetItem, unwrap func(protocol.Result) (T, bool)) (T, bool) {
	var zero T
	res, err := c.Get(item)
	if err != nil {
		logger.Debug("network: lookup %#v: %v", item, err)
		return zero, false
	}
	return unwrap(res)
}

func unwrapPart(r protocol.Result) (types.Part, bool) {
	p, ok := r.(protocol.PartResult)
	return p.Part, ok
}

func unwrapColor(r protocol.Result) (types.Color, bool) {
	col, ok := r.(protocol.ColorResult)
	return col.Color, ok
}

func unwrapElement(r protocol.Result) (types.Element, bool) {
	e, ok := r.(protocol.ElementResult)
	return e.Element, ok
}

func (c *Client) PartFromID(id types.PartID) (types.Part, bool) {
	return lookup(c, protocol.PartFromID{ID: id}, unwrapPart)
}

func (c *Client) PartFromName(name types.PartName) (types.Part, bool) {
	return lookup(c, protocol.PartFromName{Name: name}, unwrapPart)
}

func (c *Client) ColorFromID(id types.ColorID) (types.Color, bool) {
	return lookup(c, protocol.ColorFromID{ID: id}, unwrapColor)
}

func (c *Client) ColorFromName(name types.ColorName) (types.Color, bool) {
	return lookup(c, protocol.ColorFromName{Name: name}, unwrapColor)
}

func (c *Client) ElementFromID(id types.ElementID) (types.Element, bool) {
	return lookup(c, protocol.ElementFromID{ID: id}, unwrapElement)
}

// iterKeys starts a Find and narrows its keys to T. A failure to start the
// query yields an already ended iterator carrying the error.
func iterKeys[T any](c *Client, kind protocol.FindKind, unwrap func(protocol.Key) (T, bool)) *Iterator[T] {
	keys, err := c.Find(kind)
	if err != nil {
		logger.Debug("network: find %s: %v", kind, err)
		return failedIterator[T](err)
	}
	return newIterator(func() (T, bool, error) {
		var zero T
		k, ok := keys.Next()
		if !ok {
			return zero, false, keys.Err()
		}
		v, ok := unwrap(k)
		if !ok {
			return zero, false, c.fail(fmt.Errorf("%w: %T in a %s stream", ErrUnexpectedResponse, k, kind))
		}
		return v, true, nil
	})
}

func (c *Client) IterPartIDs() *Iterator[types.PartID] {
	return iterKeys(c, protocol.FindPartIDs, func(k protocol.Key) (types.PartID, bool) {
		v, ok := k.(protocol.PartIDKey)
		return v.ID, ok
	})
}

func (c *Client) IterPartNames() *Iterator[types.PartName] {
	return iterKeys(c, protocol.FindPartNames, func(k protocol.Key) (types.PartName, bool) {
		v, ok := k.(protocol.PartNameKey)
		return v.Name, ok
	})
}

func (c *Client) IterColorIDs() *Iterator[types.ColorID] {
	return iterKeys(c, protocol.FindColorIDs, func(k protocol.Key) (types.ColorID, bool) {
		v, ok := k.(protocol.ColorIDKey)
		return v.ID, ok
	})
}

func (c *Client) IterColorNames() *Iterator[types.ColorName] {
	return iterKeys(c, protocol.FindColorNames, func(k protocol.Key) (types.ColorName, bool) {
		v, ok := k.(protocol.ColorNameKey)
		return v.Name, ok
	})
}

func (c *Client) IterElementIDs() *Iterator[types.ElementID] {
	return iterKeys(c, protocol.FindElementIDs, func(k protocol.Key) (types.ElementID, bool) {
		v, ok := k.(protocol.ElementIDKey)
		return v.ID, ok
	})
}
