package protocol

import "errors"

var (
	ErrMalformed      = errors.New("protocol: malformed message")
	ErrUnknownVariant = errors.New("protocol: unknown variant")
)
