// Package wire frames serialized values on a byte stream as
// [4-byte little-endian length][payload].
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// HeaderLen is the size of the length prefix.
const HeaderLen = 4

// DefaultMaxFrameBytes bounds a single payload when no limit is configured.
const DefaultMaxFrameBytes = 32 << 20

var (
	ErrFrameTooLarge = errors.New("wire: frame too large")
	ErrShortFrame    = errors.New("wire: short frame")
)

// Marshaler is a value that can serialize itself into a frame payload.
type Marshaler interface {
	MarshalWire() ([]byte, error)
}

// Limits constrains frame encode/decode memory use.
type Limits struct {
	MaxFrameBytes uint32
}

func DefaultLimits() Limits {
	return Limits{MaxFrameBytes: DefaultMaxFrameBytes}
}

func (l Limits) max() uint32 {
	if l.MaxFrameBytes == 0 {
		return DefaultMaxFrameBytes
	}
	return l.MaxFrameBytes
}

// WriteFrame writes the length prefix followed by payload as a single write.
func WriteFrame(w io.Writer, payload []byte, limits Limits) error {
	if uint64(len(payload)) > uint64(limits.max()) {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrFrameTooLarge, len(payload), limits.max())
	}
	buf := make([]byte, HeaderLen+len(payload))
	binary.LittleEndian.PutUint32(buf[:HeaderLen], uint32(len(payload)))
	copy(buf[HeaderLen:], payload)
	_, err := w.Write(buf)
	return err
}

// ReadFrame reads exactly one frame and returns its payload.
//
// A clean close before any header byte is reported as io.EOF so callers can
// tell a disconnect at a message boundary from a truncated frame.
func ReadFrame(r io.Reader, limits Limits) ([]byte, error) {
	var head [HeaderLen]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: header: %v", ErrShortFrame, err)
		}
		return nil, err
	}
	n := binary.LittleEndian.Uint32(head[:])
	if n > limits.max() {
		return nil, fmt.Errorf("%w: declared %d bytes (max %d)", ErrFrameTooLarge, n, limits.max())
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: payload: %v", ErrShortFrame, err)
		}
		return nil, err
	}
	return payload, nil
}

// Send serializes v and writes it as one frame.
func Send(w io.Writer, v Marshaler, limits Limits) error {
	payload, err := v.MarshalWire()
	if err != nil {
		return fmt.Errorf("wire: encode: %w", err)
	}
	return WriteFrame(w, payload, limits)
}

// Receive reads one frame and deserializes it with decode.
func Receive[T any](r io.Reader, limits Limits, decode func([]byte) (T, error)) (T, error) {
	var zero T
	payload, err := ReadFrame(r, limits)
	if err != nil {
		return zero, err
	}
	v, err := decode(payload)
	if err != nil {
		return zero, fmt.Errorf("wire: decode: %w", err)
	}
	return v, nil
}
