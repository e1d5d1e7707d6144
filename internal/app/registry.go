package app

import (
	"cmp"
	"slices"

	"github.com/dkeye/rendezvous/internal/core"
	"github.com/dkeye/rendezvous/internal/domain"
	"github.com/rs/zerolog/log"
)

type sessionEntry struct {
	Conn  core.SignalConnection
	Peers map[domain.PeerID]struct{}
}

// Registry is the session registry and the identity registry in one:
// sessions maps a live channel to the identities it speaks for, peers maps
// an identity to every live channel speaking for it. Both sides are kept
// in step by every mutation.
//
// Registry is not safe for concurrent use; the Router serializes access.
type Registry struct {
	sessions map[core.SessionID]*sessionEntry
	peers    map[domain.PeerID]map[core.SessionID]struct{}
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[core.SessionID]*sessionEntry),
		peers:    make(map[domain.PeerID]map[core.SessionID]struct{}),
	}
}

// OnOpen registers sid with no identities. Re-opening a known sid keeps
// its bindings and swaps the connection.
func (r *Registry) OnOpen(sid core.SessionID, conn core.SignalConnection) {
	if e, ok := r.sessions[sid]; ok {
		e.Conn = conn
		return
	}
	r.sessions[sid] = &sessionEntry{Conn: conn, Peers: make(map[domain.PeerID]struct{})}
	log.Debug().Str("module", "app.registry").Str("sid", string(sid)).Msg("session opened")
}

// OnClose drops sid from every identity and forgets it. It reports false
// when sid was already gone.
func (r *Registry) OnClose(sid core.SessionID) bool {
	e, ok := r.sessions[sid]
	if !ok {
		return false
	}
	for peer := range e.Peers {
		r.unlink(peer, sid)
	}
	delete(r.sessions, sid)
	log.Debug().Str("module", "app.registry").Str("sid", string(sid)).Int("peers", len(e.Peers)).Msg("session closed")
	return true
}

// Bind makes sid act on behalf of peer. Binding twice is a no-op.
func (r *Registry) Bind(sid core.SessionID, peer domain.PeerID) bool {
	e, ok := r.sessions[sid]
	if !ok {
		return false
	}
	e.Peers[peer] = struct{}{}
	set, ok := r.peers[peer]
	if !ok {
		set = make(map[core.SessionID]struct{})
		r.peers[peer] = set
	}
	set[sid] = struct{}{}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("peer", string(peer)).Int("sessions", len(set)).Msg("bound peer")
	return true
}

// DropIdentity forgets peer entirely. Its sessions stay open.
func (r *Registry) DropIdentity(peer domain.PeerID) {
	for sid := range r.peers[peer] {
		if e, ok := r.sessions[sid]; ok {
			delete(e.Peers, peer)
		}
	}
	delete(r.peers, peer)
}

func (r *Registry) unlink(peer domain.PeerID, sid core.SessionID) {
	set, ok := r.peers[peer]
	if !ok {
		return
	}
	delete(set, sid)
	if len(set) == 0 {
		delete(r.peers, peer)
	}
}

// Target is a resolved destination channel.
type Target struct {
	SID  core.SessionID
	Conn core.SignalConnection
}

// SessionsFor returns the live sessions of peer ordered by sid.
func (r *Registry) SessionsFor(peer domain.PeerID) []Target {
	set := r.peers[peer]
	out := make([]Target, 0, len(set))
	for sid := range set {
		if e, ok := r.sessions[sid]; ok {
			out = append(out, Target{SID: sid, Conn: e.Conn})
		}
	}
	sortTargets(out)
	return out
}

// AllSessions returns every open session ordered by sid.
func (r *Registry) AllSessions() []Target {
	out := make([]Target, 0, len(r.sessions))
	for sid, e := range r.sessions {
		out = append(out, Target{SID: sid, Conn: e.Conn})
	}
	sortTargets(out)
	return out
}

// Conn returns the connection of an open session.
func (r *Registry) Conn(sid core.SessionID) (core.SignalConnection, bool) {
	e, ok := r.sessions[sid]
	if !ok {
		return nil, false
	}
	return e.Conn, true
}

// Counts reports open sessions and identities with at least one session.
func (r *Registry) Counts() (sessions, identities int) {
	return len(r.sessions), len(r.peers)
}

func sortTargets(ts []Target) {
	slices.SortFunc(ts, func(a, b Target) int { return cmp.Compare(a.SID, b.SID) })
}
