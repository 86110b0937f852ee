// Package dispatch answers protocol queries from a catalog.
package dispatch

import (
	"fmt"
	"iter"

	"brickcat/internal/catalog"
	"brickcat/internal/logger"
	"brickcat/internal/protocol"
	"brickcat/internal/types"
)

// Emit delivers one response to the peer. A non-nil error stops the query.
type Emit func(protocol.Response) error

// Dispatcher is safe for concurrent use as long as its catalog is.
type Dispatcher struct {
	catalog catalog.Catalog
}

func NewDispatcher(c catalog.Catalog) *Dispatcher {
	return &Dispatcher{catalog: c}
}

// Handle answers q through emit. A Get produces exactly one GetItemResponse.
// A Find produces one IterItem per key and then a single IterEnd, unless emit
// fails first, in which case that error is returned and nothing more is sent.
func (d *Dispatcher) Handle(q protocol.Query, emit Emit) error {
	switch q := q.(type) {
	case protocol.Get:
		return emit(protocol.GetItemResponse{Result: d.Lookup(q.Item), Query: q.Item})
	case protocol.Find:
		keys, err := d.Keys(q.Kind)
		if err != nil {
			return err
		}
		var n int
		for key := range keys {
			if err := emit(protocol.IterItem{Key: key}); err != nil {
				return fmt.Errorf("find %s: item %d: %w", q.Kind, n, err)
			}
			n++
		}
		logger.Debug("dispatch: find %s streamed %d keys", q.Kind, n)
		return emit(protocol.IterEnd{})
	default:
		return fmt.Errorf("%w: query %T", protocol.ErrUnknownVariant, q)
	}
}

// Lookup resolves a single item. Absence is reported as NotFound.
func (d *Dispatcher) Lookup(item protocol.GetItem) protocol.Result {
	switch item := item.(type) {
	case protocol.PartFromID:
		if p, ok := d.catalog.PartFromID(item.ID); ok {
			return protocol.PartResult{Part: p}
		}
	case protocol.PartFromName:
		if p, ok := d.catalog.PartFromName(item.Name); ok {
			return protocol.PartResult{Part: p}
		}
	case protocol.ColorFromID:
		if c, ok := d.catalog.ColorFromID(item.ID); ok {
			return protocol.ColorResult{Color: c}
		}
	case protocol.ColorFromName:
		if c, ok := d.catalog.ColorFromName(item.Name); ok {
			return protocol.ColorResult{Color: c}
		}
	case protocol.ElementFromID:
		if e, ok := d.catalog.ElementFromID(item.ID); ok {
			return protocol.ElementResult{Element: e}
		}
	}
	return protocol.NotFound{}
}

// Keys returns the key sequence of one kind, in the catalog's own order.
func (d *Dispatcher) Keys(kind protocol.FindKind) (iter.Seq[protocol.Key], error) {
	switch kind {
	case protocol.FindPartIDs:
		return tagged(d.catalog.PartIDs(), func(v types.PartID) protocol.Key { return protocol.PartIDKey{ID: v} }), nil
	case protocol.FindPartNames:
		return tagged(d.catalog.PartNames(), func(v types.PartName) protocol.Key { return protocol.PartNameKey{Name: v} }), nil
	case protocol.FindColorIDs:
		return tagged(d.catalog.ColorIDs(), func(v types.ColorID) protocol.Key { return protocol.ColorIDKey{ID: v} }), nil
	case protocol.FindColorNames:
		return tagged(d.catalog.ColorNames(), func(v types.ColorName) protocol.Key { return protocol.ColorNameKey{Name: v} }), nil
	case protocol.FindElementIDs:
		return tagged(d.catalog.ElementIDs(), func(v types.ElementID) protocol.Key { return protocol.ElementIDKey{ID: v} }), nil
	default:
		return nil, fmt.Errorf("%w: find kind %d", protocol.ErrUnknownVariant, kind)
	}
}

func tagged[T any](seq iter.Seq[T], key func(T) protocol.Key) iter.Seq[protocol.Key] {
	return func(yield func(protocol.Key) bool) {
		for v := range seq {
			if !yield(key(v)) {
				return
			}
		}
	}
}
