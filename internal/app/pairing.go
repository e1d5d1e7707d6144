package app

import (
	"slices"

	"github.com/dkeye/rendezvous/internal/domain"
)

// participation is what one identity has done so far: who it completed a
// pairing with and which negotiations it took part in. Re-offers never
// shrink it; only Forget does.
type participation struct {
	peers        map[domain.PeerID]struct{}
	negotiations map[domain.NegotiationID]struct{}
}

// PairingTable resolves a negotiation to its offerer and answerer.
type PairingTable struct {
	pairs   map[domain.NegotiationID]domain.Pairing
	history map[domain.PeerID]*participation
}

// NewPairingTable returns an empty table.
func NewPairingTable() *PairingTable {
	return &PairingTable{
		pairs:   make(map[domain.NegotiationID]domain.Pairing),
		history: make(map[domain.PeerID]*participation),
	}
}

func (t *PairingTable) participant(peer domain.PeerID) *participation {
	p, ok := t.history[peer]
	if !ok {
		p = &participation{
			peers:        make(map[domain.PeerID]struct{}),
			negotiations: make(map[domain.NegotiationID]struct{}),
		}
		t.history[peer] = p
	}
	return p
}

// SetOfferer starts (or restarts) negotiation n. Any earlier pairing for n
// is replaced, answerer included; the participants' history is kept.
func (t *PairingTable) SetOfferer(n domain.NegotiationID, offerer domain.PeerID) {
	t.pairs[n] = domain.Pairing{Offerer: offerer}
	t.participant(offerer).negotiations[n] = struct{}{}
}

// Complete writes both slots of n and records offerer and answerer as
// paired with each other.
func (t *PairingTable) Complete(n domain.NegotiationID, offerer, answerer domain.PeerID) {
	t.pairs[n] = domain.Pairing{Offerer: offerer, Answerer: answerer}
	for _, id := range []domain.PeerID{offerer, answerer} {
		if id != "" {
			t.participant(id).negotiations[n] = struct{}{}
		}
	}
	if offerer != "" && answerer != "" && offerer != answerer {
		t.participant(offerer).peers[answerer] = struct{}{}
		t.participant(answerer).peers[offerer] = struct{}{}
	}
}

// Get returns the current pairing of n.
func (t *PairingTable) Get(n domain.NegotiationID) (domain.Pairing, bool) {
	p, ok := t.pairs[n]
	return p, ok
}

// PeersOf lists every identity that ever completed a pairing with peer.
func (t *PairingTable) PeersOf(peer domain.PeerID) []domain.PeerID {
	p, ok := t.history[peer]
	if !ok {
		return []domain.PeerID{}
	}
	out := make([]domain.PeerID, 0, len(p.peers))
	for id := range p.peers {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// NegotiationsOf lists the negotiations peer ever took part in on either
// side, including ones since restarted by someone else.
func (t *PairingTable) NegotiationsOf(peer domain.PeerID) []domain.NegotiationID {
	p, ok := t.history[peer]
	if !ok {
		return nil
	}
	out := make([]domain.NegotiationID, 0, len(p.negotiations))
	for n := range p.negotiations {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

// Forget drops peer's history and removes it from its partners' peer sets.
func (t *PairingTable) Forget(peer domain.PeerID) {
	p, ok := t.history[peer]
	if !ok {
		return
	}
	for other := range p.peers {
		if op, ok := t.history[other]; ok {
			delete(op.peers, peer)
		}
	}
	delete(t.history, peer)
}

// Delete removes the pairing of n and the references its current
// participants hold to it.
func (t *PairingTable) Delete(n domain.NegotiationID) {
	if p, ok := t.pairs[n]; ok {
		for _, id := range []domain.PeerID{p.Offerer, p.Answerer} {
			if h, ok := t.history[id]; ok {
				delete(h.negotiations, n)
			}
		}
	}
	delete(t.pairs, n)
}

func (t *PairingTable) Len() int { return len(t.pairs) }
