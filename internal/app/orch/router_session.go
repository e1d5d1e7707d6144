package orch

import (
	"github.com/dkeye/rendezvous/internal/core"
	"github.com/dkeye/rendezvous/internal/domain"
	"github.com/rs/zerolog/log"
)

func (r *Router) onConnect(sid core.SessionID, env domain.Envelope) error {
	r.state.Registry.Bind(sid, env.From)
	conn, _ := r.state.Registry.Conn(sid)
	ack := domain.Message{Type: domain.TypeConnect, From: env.From, To: env.From}
	if err := conn.Send(ack); err != nil {
		r.onSendError(targetOf(sid, conn), err)
	}
	return nil
}

// onDisconnect tells every peer that ever completed a pairing with the
// sender, including pairings since restarted by a re-offer, then forgets
// the sender's identity, negotiations and pairing history. The
// sending session stays open.
func (r *Router) onDisconnect(sid core.SessionID, env domain.Envelope) error {
	from := env.From
	notified := 0
	for _, peer := range r.state.Pairings.PeersOf(from) {
		msg := domain.Message{Type: domain.TypeDisconnect, From: from, To: peer}
		notified += r.deliver(r.state.Registry.SessionsFor(peer), msg)
	}

	r.state.Registry.DropIdentity(from)
	negotiations := r.state.Pairings.NegotiationsOf(from)
	for _, n := range negotiations {
		r.state.Evict(n)
	}
	r.state.Pairings.Forget(from)
	log.Info().
		Str("module", "orch").
		Str("sid", string(sid)).
		Str("peer", string(from)).
		Int("notified", notified).
		Int("negotiations", len(negotiations)).
		Msg("peer disconnected")
	return nil
}
