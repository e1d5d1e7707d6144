package orch

import (
	"fmt"

	"github.com/dkeye/rendezvous/internal/app"
	"github.com/dkeye/rendezvous/internal/core"
	"github.com/dkeye/rendezvous/internal/domain"
	"github.com/rs/zerolog/log"
)

func (r *Router) decodeSession(env domain.Envelope) (domain.SessionPayload, error) {
	var p domain.SessionPayload
	if err := decodeData(env, &p); err != nil {
		return p, err
	}
	if err := domain.ValidateNegotiationID(p.ConnectionID); err != nil {
		return p, err
	}
	if p.SDP == "" {
		return p, fmt.Errorf("%w: sdp", ErrMissingField)
	}
	if r.validate != nil {
		if err := r.validate(env.Type, p.SDP); err != nil {
			return p, err
		}
	}
	return p, nil
}

func (r *Router) onOffer(sid core.SessionID, env domain.Envelope) error {
	p, err := r.decodeSession(env)
	if err != nil {
		return err
	}
	now := r.now()
	r.state.Pairings.SetOfferer(p.ConnectionID, env.From)
	r.state.Touch(p.ConnectionID, now)

	offer := domain.NewOffer(p, now)
	var sent int
	if r.mode == ModePrivate {
		msg := domain.Message{Type: domain.TypeOffer, From: env.From, To: env.To, Data: offer}
		sent = r.deliver(r.state.Registry.SessionsFor(env.To), msg)
	} else {
		msg := domain.Message{Type: domain.TypeOffer, From: env.From, To: "", Data: offer}
		sent = r.deliver(r.state.Registry.AllSessions(), msg)
	}
	log.Debug().
		Str("module", "orch").
		Str("sid", string(sid)).
		Str("peer", string(env.From)).
		Str("negotiation", string(p.ConnectionID)).
		Str("mode", string(r.mode)).
		Int("sent_to", sent).
		Msg("offer relayed")
	return nil
}

// onAnswer completes the pairing: the answer names the original offerer
// in "to".
func (r *Router) onAnswer(sid core.SessionID, env domain.Envelope) error {
	p, err := r.decodeSession(env)
	if err != nil {
		return err
	}
	now := r.now()
	r.state.Pairings.Complete(p.ConnectionID, env.To, env.From)
	r.state.Touch(p.ConnectionID, now)
	restamped := r.state.Candidates.Restamp(p.ConnectionID, domain.Timestamp(now))

	msg := domain.Message{Type: domain.TypeAnswer, From: env.From, To: env.To, Data: domain.NewAnswer(p, now)}
	sent := r.deliver(r.state.Registry.SessionsFor(env.To), msg)
	log.Debug().
		Str("module", "orch").
		Str("sid", string(sid)).
		Str("peer", string(env.From)).
		Str("negotiation", string(p.ConnectionID)).
		Int("restamped", restamped).
		Int("sent_to", sent).
		Msg("answer relayed")
	return nil
}

// onCandidate buffers the candidate and relays it if the destination is
// live. Nothing is replayed later.
func (r *Router) onCandidate(sid core.SessionID, env domain.Envelope) error {
	var p domain.CandidatePayload
	if err := decodeData(env, &p); err != nil {
		return err
	}
	if err := domain.ValidateNegotiationID(p.ConnectionID); err != nil {
		return err
	}
	now := r.now()
	c := domain.NewCandidate(p, now)
	r.state.Candidates.Append(p.ConnectionID, env.From, c)
	r.state.Touch(p.ConnectionID, now)

	msg := domain.Message{Type: domain.TypeCandidate, From: env.From, To: env.To, Data: c}
	sent := r.deliver(r.state.Registry.SessionsFor(env.To), msg)
	log.Debug().
		Str("module", "orch").
		Str("sid", string(sid)).
		Str("peer", string(env.From)).
		Str("negotiation", string(p.ConnectionID)).
		Int("sent_to", sent).
		Msg("candidate relayed")
	return nil
}

func targetOf(sid core.SessionID, conn core.SignalConnection) app.Target {
	return app.Target{SID: sid, Conn: conn}
}
