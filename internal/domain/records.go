package domain

import "time"

// Offer and Answer are immutable once created.
type Offer struct {
	SDP          string        `json:"sdp"`
	ConnectionID NegotiationID `json:"connectionId"`
	Datetime     int64         `json:"datetime"`
}

type Answer struct {
	SDP          string        `json:"sdp"`
	ConnectionID NegotiationID `json:"connectionId"`
	Datetime     int64         `json:"datetime"`
}

// Candidate is one buffered ICE candidate. Datetime starts as the arrival
// time and is rewritten when the negotiation is answered. A nil
// SDPMLineIndex or SDPMid is relayed as null.
type Candidate struct {
	Candidate     string        `json:"candidate"`
	SDPMLineIndex *uint16       `json:"sdpMLineIndex"`
	SDPMid        *string       `json:"sdpMid"`
	ConnectionID  NegotiationID `json:"connectionId"`
	Datetime      int64         `json:"datetime"`
}

// Timestamp converts t to the wire representation (unix milliseconds).
func Timestamp(t time.Time) int64 {
	return t.UnixMilli()
}

func NewOffer(p SessionPayload, now time.Time) Offer {
	return Offer{SDP: p.SDP, ConnectionID: p.ConnectionID, Datetime: Timestamp(now)}
}

func NewAnswer(p SessionPayload, now time.Time) Answer {
	return Answer{SDP: p.SDP, ConnectionID: p.ConnectionID, Datetime: Timestamp(now)}
}

func NewCandidate(p CandidatePayload, now time.Time) Candidate {
	c := Candidate{
		Candidate:    p.Candidate,
		ConnectionID: p.ConnectionID,
		Datetime:     Timestamp(now),
	}
	if p.SDPMLineIndex != nil {
		idx := *p.SDPMLineIndex
		c.SDPMLineIndex = &idx
	}
	if p.SDPMid != nil {
		mid := *p.SDPMid
		c.SDPMid = &mid
	}
	return c
}
