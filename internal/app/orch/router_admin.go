package orch

import (
	"time"

	"github.com/dkeye/rendezvous/internal/domain"
	"github.com/rs/zerolog/log"
)

type Stats struct {
	Mode                  RelayMode `json:"mode"`
	Sessions              int       `json:"sessions"`
	Identities            int       `json:"identities"`
	Pairings              int       `json:"pairings"`
	CandidateNegotiations int       `json:"candidate_negotiations"`
	Negotiations          int       `json:"negotiations"`
}

func (r *Router) Snapshot() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	sessions, identities := r.state.Registry.Counts()
	return Stats{
		Mode:                  r.mode,
		Sessions:              sessions,
		Identities:            identities,
		Pairings:              r.state.Pairings.Len(),
		CandidateNegotiations: r.state.Candidates.Len(),
		Negotiations:          r.state.Negotiations(),
	}
}

// NegotiationView is a read-only copy of one negotiation.
type NegotiationView struct {
	ID         domain.NegotiationID                 `json:"connectionId"`
	Pairing    *domain.Pairing                      `json:"pairing,omitempty"`
	Candidates map[domain.PeerID][]domain.Candidate `json:"candidates"`
}

// Negotiation reports what is known about n; ok is false when nothing is.
func (r *Router) Negotiation(n domain.NegotiationID) (NegotiationView, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	view := NegotiationView{ID: n, Candidates: make(map[domain.PeerID][]domain.Candidate)}
	p, paired := r.state.Pairings.Get(n)
	if paired {
		view.Pairing = &p
	}
	for _, from := range r.state.Candidates.Contributors(n) {
		view.Candidates[from] = r.state.Candidates.Get(n, from)
	}
	return view, paired || len(view.Candidates) > 0
}

// Sweep evicts negotiations idle for at least ttl.
func (r *Router) Sweep(ttl time.Duration) []domain.NegotiationID {
	r.mu.Lock()
	defer r.mu.Unlock()
	evicted := r.state.SweepIdle(r.now(), ttl)
	if len(evicted) > 0 {
		log.Info().Str("module", "orch").Int("evicted", len(evicted)).Dur("ttl", ttl).Msg("swept idle negotiations")
	}
	return evicted
}
