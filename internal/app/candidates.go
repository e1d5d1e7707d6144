package app

import (
	"slices"

	"github.com/dkeye/rendezvous/internal/domain"
)

// CandidateStore buffers ICE candidates per negotiation and contributor.
// Sequences are append-only; only Restamp touches stored entries.
type CandidateStore struct {
	byNegotiation map[domain.NegotiationID]map[domain.PeerID][]domain.Candidate
}

// NewCandidateStore returns an empty store.
func NewCandidateStore() *CandidateStore {
	return &CandidateStore{byNegotiation: make(map[domain.NegotiationID]map[domain.PeerID][]domain.Candidate)}
}

// Append adds c to the end of from's sequence under n. Stored candidates
// are never removed or reordered individually.
func (s *CandidateStore) Append(n domain.NegotiationID, from domain.PeerID, c domain.Candidate) {
	m, ok := s.byNegotiation[n]
	if !ok {
		m = make(map[domain.PeerID][]domain.Candidate)
		s.byNegotiation[n] = m
	}
	m[from] = append(m[from], c)
}

// Get returns a copy of the candidates from contributed to n, in arrival order.
func (s *CandidateStore) Get(n domain.NegotiationID, from domain.PeerID) []domain.Candidate {
	return slices.Clone(s.byNegotiation[n][from])
}

func (s *CandidateStore) Contributors(n domain.NegotiationID) []domain.PeerID {
	m := s.byNegotiation[n]
	out := make([]domain.PeerID, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Restamp sets the datetime of every candidate buffered under n to ts.
func (s *CandidateStore) Restamp(n domain.NegotiationID, ts int64) int {
	count := 0
	for _, list := range s.byNegotiation[n] {
		for i := range list {
			list[i].Datetime = ts
			count++
		}
	}
	return count
}

func (s *CandidateStore) Delete(n domain.NegotiationID) {
	delete(s.byNegotiation, n)
}

// Len is the number of negotiations holding candidates.
func (s *CandidateStore) Len() int { return len(s.byNegotiation) }
