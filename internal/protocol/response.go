package protocol

import (
	"fmt"

	"brickcat/internal/types"
	"brickcat/internal/wire"
)

// Response is a server reply. Implemented by GetItemResponse, IterItem and IterEnd.
type Response interface {
	wire.Marshaler
	isResponse()
}

// Result is the outcome of a Get query.
// Implemented by PartResult, ColorResult, ElementResult and NotFound.
type Result interface {
	isResult()
}

type PartResult struct{ Part types.Part }
type ColorResult struct{ Color types.Color }
type ElementResult struct{ Element types.Element }

// NotFound is a regular answer, not an error.
type NotFound struct{}

func (PartResult) isResult()    {}
func (ColorResult) isResult()   {}
func (ElementResult) isResult() {}
func (NotFound) isResult()      {}

// Key is one enumerated key of a Find stream.
// Implemented by PartIDKey, PartNameKey, ColorIDKey, ColorNameKey and ElementIDKey.
type Key interface {
	Kind() FindKind
}

type PartIDKey struct{ ID types.PartID }
type PartNameKey struct{ Name types.PartName }
type ColorIDKey struct{ ID types.ColorID }
type ColorNameKey struct{ Name types.ColorName }
type ElementIDKey struct{ ID types.ElementID }

func (PartIDKey) Kind() FindKind    { return FindPartIDs }
func (PartNameKey) Kind() FindKind  { return FindPartNames }
func (ColorIDKey) Kind() FindKind   { return FindColorIDs }
func (ColorNameKey) Kind() FindKind { return FindColorNames }
func (ElementIDKey) Kind() FindKind { return FindElementIDs }

// GetItemResponse answers a Get query and echoes the item that was asked for.
type GetItemResponse struct {
	Result Result
	Query  GetItem
}

// IterItem carries one key of a Find stream.
type IterItem struct {
	Key Key
}

// IterEnd terminates a Find stream. It is sent exactly once per Find.
type IterEnd struct{}

func (GetItemResponse) isResponse() {}
func (IterItem) isResponse()        {}
func (IterEnd) isResponse()         {}

func (r GetItemResponse) MarshalWire() ([]byte, error) {
	var body []byte
	switch res := r.Result.(type) {
	case PartResult:
		body = appendMessage(body, fieldResultPart, appendPart(nil, res.Part))
	case ColorResult:
		body = appendMessage(body, fieldResultColor, appendColor(nil, res.Color))
	case ElementResult:
		body = appendMessage(body, fieldResultElement, appendElement(nil, res.Element))
	case NotFound:
		body = appendBool(body, fieldResultNotFound, true)
	default:
		return nil, fmt.Errorf("%w: result %T", ErrUnknownVariant, r.Result)
	}
	query, err := appendSelector(nil, r.Query)
	if err != nil {
		return nil, err
	}
	body = appendMessage(body, fieldResultQuery, query)
	return appendMessage(nil, fieldResponseGetItem, body), nil
}

func (r IterItem) MarshalWire() ([]byte, error) {
	key, err := appendSelector(nil, r.Key)
	if err != nil {
		return nil, err
	}
	return appendMessage(nil, fieldResponseIterItem, key), nil
}

func (IterEnd) MarshalWire() ([]byte, error) {
	return appendBool(nil, fieldResponseIterEnd, true), nil
}

// DecodeResponse parses one Response payload.
func DecodeResponse(b []byte) (Response, error) {
	fields, err := parseFields(b)
	if err != nil {
		return nil, err
	}
	var resp Response
	for _, f := range fields {
		switch f.num {
		case fieldResponseGetItem:
			raw, err := f.message()
			if err != nil {
				return nil, err
			}
			r, err := decodeGetItemResponse(raw)
			if err != nil {
				return nil, err
			}
			resp = r
		case fieldResponseIterItem:
			raw, err := f.message()
			if err != nil {
				return nil, err
			}
			key, err := decodeKey(raw)
			if err != nil {
				return nil, err
			}
			resp = IterItem{Key: key}
		case fieldResponseIterEnd:
			if _, err := f.boolean(); err != nil {
				return nil, err
			}
			resp = IterEnd{}
		}
	}
	if resp == nil {
		return nil, fmt.Errorf("%w: empty response", ErrMalformed)
	}
	return resp, nil
}

func decodeGetItemResponse(b []byte) (GetItemResponse, error) {
	fields, err := parseFields(b)
	if err != nil {
		return GetItemResponse{}, err
	}
	var r GetItemResponse
	for _, f := range fields {
		switch f.num {
		case fieldResultPart:
			raw, err := f.message()
			if err != nil {
				return r, err
			}
			p, err := decodePart(raw)
			if err != nil {
				return r, err
			}
			r.Result = PartResult{Part: p}
		case fieldResultColor:
			raw, err := f.message()
			if err != nil {
				return r, err
			}
			c, err := decodeColor(raw)
			if err != nil {
				return r, err
			}
			r.Result = ColorResult{Color: c}
		case fieldResultElement:
			raw, err := f.message()
			if err != nil {
				return r, err
			}
			e, err := decodeElement(raw)
			if err != nil {
				return r, err
			}
			r.Result = ElementResult{Element: e}
		case fieldResultNotFound:
			if _, err := f.boolean(); err != nil {
				return r, err
			}
			r.Result = NotFound{}
		case fieldResultQuery:
			raw, err := f.message()
			if err != nil {
				return r, err
			}
			item, err := decodeGetItem(raw)
			if err != nil {
				return r, err
			}
			r.Query = item
		}
	}
	if r.Result == nil || r.Query == nil {
		return r, fmt.Errorf("%w: incomplete get_item response", ErrMalformed)
	}
	return r, nil
}

func decodeKey(b []byte) (Key, error) {
	sel, err := decodeSelector(b)
	if err != nil {
		return nil, err
	}
	switch sel.num {
	case fieldSelPartID:
		return PartIDKey{ID: types.PartID(sel.text)}, nil
	case fieldSelPartName:
		return PartNameKey{Name: types.PartName(sel.text)}, nil
	case fieldSelColorID:
		return ColorIDKey{ID: types.ColorID(sel.signed)}, nil
	case fieldSelColorName:
		return ColorNameKey{Name: types.ColorName(sel.text)}, nil
	default:
		return ElementIDKey{ID: types.ElementID(sel.unsigned)}, nil
	}
}
