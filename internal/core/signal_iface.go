package core

import (
	"errors"

	"github.com/dkeye/rendezvous/internal/domain"
)

//go:generate mockgen -destination=mocks/signal_connection_mock.go -package=mocks . SignalConnection

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

// SessionID is the opaque handle of one live transport channel.
type SessionID string

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
// Send never blocks: it enqueues or fails with ErrBackpressure / ErrConnClosed.
type SignalConnection interface {
	Send(domain.Message) error
	Close()
}
