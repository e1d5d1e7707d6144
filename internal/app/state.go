package app

import (
	"slices"
	"time"

	"github.com/dkeye/rendezvous/internal/domain"
)

// State is everything the router mutates. It is owned by exactly one
// Router and has no internal locking.
type State struct {
	Registry   *Registry
	Pairings   *PairingTable
	Candidates *CandidateStore

	activity map[domain.NegotiationID]time.Time
}

func NewState() *State {
	return &State{
		Registry:   NewRegistry(),
		Pairings:   NewPairingTable(),
		Candidates: NewCandidateStore(),
		activity:   make(map[domain.NegotiationID]time.Time),
	}
}

// Touch records activity on n.
func (s *State) Touch(n domain.NegotiationID, at time.Time) {
	s.activity[n] = at
}

// Evict drops the pairing, buffered candidates and activity of n.
func (s *State) Evict(n domain.NegotiationID) {
	s.Pairings.Delete(n)
	s.Candidates.Delete(n)
	delete(s.activity, n)
}

// SweepIdle evicts every negotiation whose last activity is at least ttl
// before now and returns the evicted ids.
func (s *State) SweepIdle(now time.Time, ttl time.Duration) []domain.NegotiationID {
	if ttl <= 0 {
		return nil
	}
	var evicted []domain.NegotiationID
	for n, at := range s.activity {
		if now.Sub(at) >= ttl {
			evicted = append(evicted, n)
		}
	}
	for _, n := range evicted {
		s.Evict(n)
	}
	slices.Sort(evicted)
	return evicted
}

// Negotiations is the number of negotiations with tracked activity.
func (s *State) Negotiations() int { return len(s.activity) }
