package transport

import (
	"context"
	"errors"
)

// Link is the peripheral connection driven by the session controller.
// Callbacks are invoked sequentially from a single goroutine.
type Link interface {
	OnData(func(chunk []byte))
	OnConnectionChange(func(connected bool))
	Connected() bool
}

// Write capabilities a Link may offer, in order of preference.
type (
	UnackedWriter interface {
		WriteWithoutResponse(ctx context.Context, b []byte) error
	}
	AckedWriter interface {
		WriteWithResponse(ctx context.Context, b []byte) error
	}
	PlainWriter interface {
		Write(ctx context.Context, b []byte) error
	}
)

// WriteFunc is the resolved write path of a link.
type WriteFunc func(ctx context.Context, b []byte) error

var (
	ErrNotWritable  = errors.New("link is not writable")
	ErrDisconnected = errors.New("link disconnected")
)

// Negotiate picks the write call once so the hot path never checks again.
func Negotiate(l Link) (WriteFunc, string, error) {
	switch w := l.(type) {
	case UnackedWriter:
		return w.WriteWithoutResponse, "without-response", nil
	case AckedWriter:
		return w.WriteWithResponse, "with-response", nil
	case PlainWriter:
		return w.Write, "plain", nil
	}
	return nil, "", ErrNotWritable
}
