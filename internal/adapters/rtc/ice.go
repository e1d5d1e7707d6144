// Package rtc holds the little WebRTC knowledge a signaling relay needs:
// which ICE servers to hand to clients and whether an SDP parses.
package rtc

import (
	"errors"
	"fmt"

	"github.com/dkeye/rendezvous/internal/domain"
	"github.com/pion/webrtc/v4"
)

var ErrInvalidSDP = errors.New("invalid sdp")

const DefaultSTUN = "stun:stun.l.google.com:19302"

// ICEServers builds the server list advertised to clients. An empty list
// falls back to a public STUN server.
func ICEServers(urls []string) []webrtc.ICEServer {
	if len(urls) == 0 {
		urls = []string{DefaultSTUN}
	}
	return []webrtc.ICEServer{{URLs: urls}}
}

// ValidateSDP parses sdp as a session description of the given kind.
func ValidateSDP(kind domain.MessageType, sdp string) error {
	desc := webrtc.SessionDescription{Type: webrtc.NewSDPType(string(kind)), SDP: sdp}
	if desc.Type == webrtc.SDPTypeUnknown {
		return fmt.Errorf("%w: unexpected kind %q", ErrInvalidSDP, kind)
	}
	if _, err := desc.Unmarshal(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSDP, err)
	}
	return nil
}
