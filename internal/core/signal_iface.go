package core

import "errors"

// Frame is a raw encoded signal message.
type Frame []byte

// ErrBackpressure is returned by TrySend when the destination's outbound
// buffer is full. The caller drops the frame; nothing at this layer may
// block on a slow peer.
var ErrBackpressure = errors.New("backpressure")

// ErrConnClosed is returned by TrySend after the connection was closed.
var ErrConnClosed = errors.New("connection closed")

// SignalConnection abstracts a system messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	// TrySend queues a frame without blocking.
	TrySend(Frame) error
	Close()
}
