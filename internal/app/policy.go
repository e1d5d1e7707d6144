package app

import (
	"errors"

	"github.com/dkeye/rendezvous/internal/core"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropMessage
	KickSession
)

// Policy decides what happens to a session whose Send failed.
type Policy interface {
	OnBackPressure(sid core.SessionID, err error) BackpressureAction
}

// SimplePolicy kicks sessions that cannot keep up and ignores sends to
// sessions that are already closing.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(_ core.SessionID, err error) BackpressureAction {
	if errors.Is(err, core.ErrBackpressure) {
		return KickSession
	}
	return DropMessage
}
