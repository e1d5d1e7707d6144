package domain

import "encoding/json"

type MessageType string

const (
	TypeConnect    MessageType = "connect"
	TypeDisconnect MessageType = "disconnect"
	TypeOffer      MessageType = "offer"
	TypeAnswer     MessageType = "answer"
	TypeCandidate  MessageType = "candidate"
)

// Envelope is one decoded inbound frame. Data is decoded per type by the
// handler that owns it.
type Envelope struct {
	Type MessageType     `json:"type"`
	From PeerID          `json:"from"`
	To   PeerID          `json:"to"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Message is one outbound frame. Data carries a relay-stamped record.
type Message struct {
	Type MessageType `json:"type"`
	From PeerID      `json:"from"`
	To   PeerID      `json:"to"`
	Data any         `json:"data,omitempty"`
}

// SessionPayload is the data of offer and answer messages.
type SessionPayload struct {
	SDP          string        `json:"sdp"`
	ConnectionID NegotiationID `json:"connectionId"`
}

// CandidatePayload is the data of candidate messages. sdpMLineIndex and
// sdpMid may be null.
type CandidatePayload struct {
	Candidate     string        `json:"candidate"`
	SDPMLineIndex *uint16       `json:"sdpMLineIndex"`
	SDPMid        *string       `json:"sdpMid"`
	ConnectionID  NegotiationID `json:"connectionId"`
}
