// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
)

const (
	MaxPeerIDLen        = 128
	MaxNegotiationIDLen = 128
)

var (
	ErrPeerIDEmpty          = errors.New("peer id empty")
	ErrPeerIDTooLong        = errors.New("peer id too long")
	ErrNegotiationIDEmpty   = errors.New("negotiation id empty")
	ErrNegotiationIDTooLong = errors.New("negotiation id too long")
)

// PeerID is the logical identity a client announces with "connect".
// It survives reconnects and may be shared by several live sessions.
type PeerID string

// NegotiationID names one offer/answer exchange. It travels as
// data.connectionId on the wire and is unrelated to PeerID.
type NegotiationID string

func ValidatePeerID(id PeerID) error {
	if len(id) == 0 {
		return ErrPeerIDEmpty
	}
	if len(id) > MaxPeerIDLen {
		return ErrPeerIDTooLong
	}
	return nil
}

func ValidateNegotiationID(id NegotiationID) error {
	if len(id) == 0 {
		return ErrNegotiationIDEmpty
	}
	if len(id) > MaxNegotiationIDLen {
		return ErrNegotiationIDTooLong
	}
	return nil
}

// Pairing is the resolved offerer/answerer of a negotiation.
// Answerer stays empty until an answer arrives.
type Pairing struct {
	Offerer  PeerID `json:"offerer"`
	Answerer PeerID `json:"answerer,omitempty"`
}

// Complete reports whether both sides are known.
func (p Pairing) Complete() bool {
	return p.Offerer != "" && p.Answerer != ""
}

// Other returns the counterpart of id, or "" if id is not part of p.
func (p Pairing) Other(id PeerID) PeerID {
	switch id {
	case p.Offerer:
		return p.Answerer
	case p.Answerer:
		return p.Offerer
	}
	return ""
}
