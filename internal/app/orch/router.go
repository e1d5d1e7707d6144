// Package orch routes signaling messages between sessions. The Router is
// the only writer of app.State.
package orch

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dkeye/rendezvous/internal/app"
	"github.com/dkeye/rendezvous/internal/core"
	"github.com/dkeye/rendezvous/internal/domain"
	"github.com/rs/zerolog/log"
)

var (
	ErrMissingField = errors.New("missing field")
	ErrBadPayload   = errors.New("bad payload")
)

type RelayMode string

const (
	// ModePrivate delivers offers only to the sessions of the "to" peer.
	ModePrivate RelayMode = "private"
	// ModePublic broadcasts offers to every open session.
	ModePublic RelayMode = "public"
)

// ParseMode maps a configured mode to a RelayMode. Anything other than
// "private" is public.
func ParseMode(s string) RelayMode {
	if s == string(ModePrivate) {
		return ModePrivate
	}
	return ModePublic
}

// SDPValidator rejects an offer or answer SDP. A rejected message is
// dropped like any other malformed message.
type SDPValidator func(kind domain.MessageType, sdp string) error

type Options struct {
	Mode        RelayMode
	Policy      app.Policy
	ValidateSDP SDPValidator
	Now         func() time.Time
}

type Router struct {
	mu    sync.Mutex
	state *app.State

	mode     RelayMode
	policy   app.Policy
	validate SDPValidator
	now      func() time.Time
}

func NewRouter(state *app.State, opts Options) *Router {
	if state == nil {
		state = app.NewState()
	}
	if opts.Mode == "" {
		opts.Mode = ModePublic
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Router{
		state:    state,
		mode:     opts.Mode,
		policy:   opts.Policy,
		validate: opts.ValidateSDP,
		now:      opts.Now,
	}
}

func (r *Router) Mode() RelayMode { return r.mode }

func (r *Router) OnOpen(sid core.SessionID, conn core.SignalConnection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Registry.OnOpen(sid, conn)
}

// OnClose forgets sid. Pairings and candidates it produced stay until a
// disconnect or a sweep removes them.
func (r *Router) OnClose(sid core.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Registry.OnClose(sid)
}

// Dispatch handles one inbound message from sid to completion. Malformed
// messages and unknown types are dropped without a reply.
func (r *Router) Dispatch(sid core.SessionID, env domain.Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.state.Registry.Conn(sid); !ok {
		log.Debug().Str("module", "orch").Str("sid", string(sid)).Str("type", string(env.Type)).Msg("message from unknown session")
		return
	}
	if err := domain.ValidatePeerID(env.From); err != nil {
		r.drop(sid, env, err)
		return
	}

	var err error
	switch env.Type {
	case domain.TypeConnect:
		err = r.onConnect(sid, env)
	case domain.TypeDisconnect:
		err = r.onDisconnect(sid, env)
	case domain.TypeOffer:
		err = r.onOffer(sid, env)
	case domain.TypeAnswer:
		err = r.onAnswer(sid, env)
	case domain.TypeCandidate:
		err = r.onCandidate(sid, env)
	default:
		log.Debug().Str("module", "orch").Str("sid", string(sid)).Str("type", string(env.Type)).Msg("unknown message type")
		return
	}
	if err != nil {
		r.drop(sid, env, err)
	}
}

func (r *Router) drop(sid core.SessionID, env domain.Envelope, err error) {
	log.Debug().Err(err).
		Str("module", "orch").
		Str("sid", string(sid)).
		Str("type", string(env.Type)).
		Str("peer", string(env.From)).
		Msg("dropped malformed message")
}

func decodeData(env domain.Envelope, v any) error {
	if len(env.Data) == 0 {
		return fmt.Errorf("%w: data", ErrMissingField)
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	return nil
}

// deliver sends msg to every target and returns how many accepted it.
func (r *Router) deliver(targets []app.Target, msg domain.Message) int {
	sent := 0
	for _, t := range targets {
		if err := t.Conn.Send(msg); err != nil {
			r.onSendError(t, err)
			continue
		}
		sent++
	}
	return sent
}

func (r *Router) onSendError(t app.Target, err error) {
	action := app.DropMessage
	if r.policy != nil {
		action = r.policy.OnBackPressure(t.SID, err)
	}
	log.Warn().Err(err).Str("module", "orch").Str("sid", string(t.SID)).Int("action", int(action)).Msg("send failed")
	if action == app.KickSession {
		r.state.Registry.OnClose(t.SID)
		t.Conn.Close()
	}
}
