package orch

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/rendezvous/internal/app"
	"github.com/dkeye/rendezvous/internal/core"
	"github.com/dkeye/rendezvous/internal/core/mocks"
	"github.com/dkeye/rendezvous/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type recordingConn struct {
	mu     sync.Mutex
	msgs   []domain.Message
	closed bool
}

func (c *recordingConn) Send(m domain.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return core.ErrConnClosed
	}
	c.msgs = append(c.msgs, m)
	return nil
}

func (c *recordingConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *recordingConn) take() []domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.msgs
	c.msgs = nil
	return out
}

var fixedNow = time.UnixMilli(1700000000000)

type fixture struct {
	t      *testing.T
	router *Router
	state  *app.State
	conns  map[core.SessionID]*recordingConn
	clock  time.Time
}

func newFixture(t *testing.T, mode RelayMode) *fixture {
	f := &fixture{t: t, state: app.NewState(), conns: map[core.SessionID]*recordingConn{}, clock: fixedNow}
	f.router = NewRouter(f.state, Options{
		Mode:   mode,
		Policy: app.SimplePolicy{},
		Now:    func() time.Time { return f.clock },
	})
	return f
}

func (f *fixture) open(sid core.SessionID) *recordingConn {
	c := &recordingConn{}
	f.conns[sid] = c
	f.router.OnOpen(sid, c)
	return c
}

func (f *fixture) connect(sid core.SessionID, peer domain.PeerID) {
	f.router.Dispatch(sid, domain.Envelope{Type: domain.TypeConnect, From: peer})
	f.conns[sid].take()
}

func (f *fixture) send(sid core.SessionID, typ domain.MessageType, from, to domain.PeerID, data any) {
	raw, err := json.Marshal(data)
	require.NoError(f.t, err)
	f.router.Dispatch(sid, domain.Envelope{Type: typ, From: from, To: to, Data: raw})
}

func (f *fixture) clear() {
	for _, c := range f.conns {
		c.take()
	}
}

func sessionData(n domain.NegotiationID) domain.SessionPayload {
	return domain.SessionPayload{SDP: "v=0", ConnectionID: n}
}

func candidateData(n domain.NegotiationID, c string) map[string]any {
	return map[string]any{"candidate": c, "sdpMLineIndex": 0, "sdpMid": "0", "connectionId": string(n)}
}

func TestConnectAcknowledgesSenderOnly(t *testing.T) {
	f := newFixture(t, ModePrivate)
	a := f.open("s1")
	other := f.open("s2")

	f.router.Dispatch("s1", domain.Envelope{Type: domain.TypeConnect, From: "alice"})

	assert.Equal(t, []domain.Message{{Type: domain.TypeConnect, From: "alice", To: "alice"}}, a.take())
	assert.Empty(t, other.take())
}

func TestIdentityMultiplicity(t *testing.T) {
	f := newFixture(t, ModePrivate)
	f.open("a1")
	b1 := f.open("b1")
	b2 := f.open("b2")
	f.connect("a1", "alice")
	f.connect("b1", "bob")
	f.connect("b2", "bob")

	f.send("a1", domain.TypeCandidate, "alice", "bob", candidateData("n1", "c1"))

	assert.Len(t, b1.take(), 1)
	assert.Len(t, b2.take(), 1)
}

func TestOfferPrivateMode(t *testing.T) {
	f := newFixture(t, ModePrivate)
	a := f.open("a1")
	b := f.open("b1")
	c := f.open("c1")
	f.connect("a1", "alice")
	f.connect("b1", "bob")
	f.connect("c1", "carol")

	f.send("a1", domain.TypeOffer, "alice", "bob", sessionData("n1"))

	got := b.take()
	require.Len(t, got, 1)
	assert.Equal(t, domain.Message{
		Type: domain.TypeOffer,
		From: "alice",
		To:   "bob",
		Data: domain.Offer{SDP: "v=0", ConnectionID: "n1", Datetime: fixedNow.UnixMilli()},
	}, got[0])
	assert.Empty(t, a.take())
	assert.Empty(t, c.take())

	p, ok := f.state.Pairings.Get("n1")
	require.True(t, ok)
	assert.Equal(t, domain.Pairing{Offerer: "alice"}, p)
}

func TestOfferPublicModeBroadcastsWithEmptyTo(t *testing.T) {
	f := newFixture(t, ModePublic)
	a := f.open("a1")
	b := f.open("b1")
	anon := f.open("x1")
	f.connect("a1", "alice")
	f.connect("b1", "bob")

	f.send("a1", domain.TypeOffer, "alice", "bob", sessionData("n1"))

	for _, c := range []*recordingConn{a, b, anon} {
		got := c.take()
		require.Len(t, got, 1)
		assert.Equal(t, domain.PeerID(""), got[0].To)
		assert.Equal(t, domain.PeerID("alice"), got[0].From)
	}
}

func TestPairingCompletionAndRestamp(t *testing.T) {
	f := newFixture(t, ModePrivate)
	a := f.open("a1")
	f.open("b1")
	f.connect("a1", "alice")
	f.connect("b1", "bob")

	f.send("a1", domain.TypeOffer, "alice", "bob", sessionData("n1"))
	f.send("a1", domain.TypeCandidate, "alice", "bob", candidateData("n1", "a-c1"))
	f.send("b1", domain.TypeCandidate, "bob", "alice", candidateData("n1", "b-c1"))
	f.clear()

	f.clock = fixedNow.Add(5 * time.Second)
	f.send("b1", domain.TypeAnswer, "bob", "alice", sessionData("n1"))

	p, ok := f.state.Pairings.Get("n1")
	require.True(t, ok)
	assert.Equal(t, domain.Pairing{Offerer: "alice", Answerer: "bob"}, p)

	got := a.take()
	require.Len(t, got, 1)
	assert.Equal(t, domain.TypeAnswer, got[0].Type)
	assert.Equal(t, domain.Answer{SDP: "v=0", ConnectionID: "n1", Datetime: f.clock.UnixMilli()}, got[0].Data)

	for _, from := range []domain.PeerID{"alice", "bob"} {
		list := f.state.Candidates.Get("n1", from)
		require.Len(t, list, 1)
		assert.Equal(t, f.clock.UnixMilli(), list[0].Datetime)
	}
}

func TestCandidateAttributionPreservesOrder(t *testing.T) {
	f := newFixture(t, ModePrivate)
	f.open("a1")
	f.open("b1")
	f.connect("a1", "alice")
	f.connect("b1", "bob")

	f.send("a1", domain.TypeCandidate, "alice", "bob", candidateData("n1", "a1"))
	f.send("b1", domain.TypeCandidate, "bob", "alice", candidateData("n1", "b1"))
	f.send("a1", domain.TypeCandidate, "alice", "bob", candidateData("n1", "a2"))

	alice := f.state.Candidates.Get("n1", "alice")
	require.Len(t, alice, 2)
	assert.Equal(t, "a1", alice[0].Candidate)
	assert.Equal(t, "a2", alice[1].Candidate)
	bob := f.state.Candidates.Get("n1", "bob")
	require.Len(t, bob, 1)
	assert.Equal(t, "b1", bob[0].Candidate)
}

func TestCandidateToUnreachableIsBuffered(t *testing.T) {
	f := newFixture(t, ModePrivate)
	a := f.open("a1")
	f.connect("a1", "alice")

	f.send("a1", domain.TypeCandidate, "alice", "nobody", candidateData("n1", "c1"))

	assert.Empty(t, a.take())
	list := f.state.Candidates.Get("n1", "alice")
	require.Len(t, list, 1)
	zero, mid := uint16(0), "0"
	assert.Equal(t, domain.Candidate{
		Candidate:     "c1",
		SDPMLineIndex: &zero,
		SDPMid:        &mid,
		ConnectionID:  "n1",
		Datetime:      fixedNow.UnixMilli(),
	}, list[0])
}

func TestDisconnectFanOut(t *testing.T) {
	f := newFixture(t, ModePrivate)
	a1 := f.open("a1")
	a2 := f.open("a2")
	b := f.open("b1")
	f.connect("a1", "alice")
	f.connect("a2", "alice")
	f.connect("b1", "bob")

	f.send("a1", domain.TypeOffer, "alice", "bob", sessionData("n1"))
	f.send("b1", domain.TypeAnswer, "bob", "alice", sessionData("n1"))
	f.send("a1", domain.TypeOffer, "alice", "bob", sessionData("n2"))
	f.send("b1", domain.TypeAnswer, "bob", "alice", sessionData("n2"))
	f.send("b1", domain.TypeCandidate, "bob", "alice", candidateData("n1", "c1"))
	f.clear()

	f.router.Dispatch("b1", domain.Envelope{Type: domain.TypeDisconnect, From: "bob"})

	want := []domain.Message{{Type: domain.TypeDisconnect, From: "bob", To: "alice"}}
	assert.Equal(t, want, a1.take())
	assert.Equal(t, want, a2.take())
	assert.Empty(t, b.take())

	assert.Empty(t, f.state.Registry.SessionsFor("bob"))
	_, ok := f.state.Pairings.Get("n1")
	assert.False(t, ok)
	assert.Empty(t, f.state.Candidates.Get("n1", "bob"))

	// The session survives and sends to bob now reach nobody.
	_, ok = f.state.Registry.Conn("b1")
	assert.True(t, ok)
	f.send("a1", domain.TypeCandidate, "alice", "bob", candidateData("n3", "c2"))
	assert.Empty(t, b.take())
}

func TestDisconnectAfterRenegotiationNotifiesFormerPeer(t *testing.T) {
	f := newFixture(t, ModePrivate)
	a := f.open("a1")
	b := f.open("b1")
	f.connect("a1", "alice")
	f.connect("b1", "bob")

	f.send("a1", domain.TypeOffer, "alice", "bob", sessionData("n1"))
	f.send("b1", domain.TypeAnswer, "bob", "alice", sessionData("n1"))
	f.send("b1", domain.TypeCandidate, "bob", "alice", candidateData("n1", "b-c1"))
	f.send("a1", domain.TypeOffer, "alice", "bob", sessionData("n1"))
	f.clear()

	f.router.Dispatch("b1", domain.Envelope{Type: domain.TypeDisconnect, From: "bob"})

	assert.Equal(t, []domain.Message{{Type: domain.TypeDisconnect, From: "bob", To: "alice"}}, a.take())
	assert.Empty(t, b.take())
	assert.Empty(t, f.state.Candidates.Get("n1", "bob"))
	_, ok := f.state.Pairings.Get("n1")
	assert.False(t, ok)
	assert.Empty(t, f.state.Pairings.PeersOf("alice"))
}

func TestCandidateNullFieldsRelayedAsNull(t *testing.T) {
	f := newFixture(t, ModePrivate)
	f.open("a1")
	b := f.open("b1")
	f.connect("a1", "alice")
	f.connect("b1", "bob")

	f.router.Dispatch("a1", domain.Envelope{
		Type: domain.TypeCandidate, From: "alice", To: "bob",
		Data: json.RawMessage(`{"candidate":"c1","sdpMLineIndex":null,"sdpMid":"audio","connectionId":"n1"}`),
	})

	got := b.take()
	require.Len(t, got, 1)
	raw, err := json.Marshal(got[0].Data)
	require.NoError(t, err)
	assert.JSONEq(t, `{"candidate":"c1","sdpMLineIndex":null,"sdpMid":"audio","connectionId":"n1","datetime":1700000000000}`, string(raw))
}

func TestDisconnectWithoutPairingNotifiesNobody(t *testing.T) {
	f := newFixture(t, ModePrivate)
	a := f.open("a1")
	f.open("b1")
	f.connect("a1", "alice")
	f.connect("b1", "bob")
	f.send("a1", domain.TypeOffer, "alice", "bob", sessionData("n1"))
	f.clear()

	f.router.Dispatch("b1", domain.Envelope{Type: domain.TypeDisconnect, From: "bob"})
	assert.Empty(t, a.take())
}

func TestIdempotentClose(t *testing.T) {
	f := newFixture(t, ModePrivate)
	f.open("a1")
	b := f.open("b1")
	f.connect("a1", "alice")
	f.connect("b1", "bob")

	f.router.OnClose("a1")
	f.router.OnClose("a1")

	assert.Empty(t, f.state.Registry.SessionsFor("alice"))
	require.Len(t, f.state.Registry.SessionsFor("bob"), 1)

	f.send("b1", domain.TypeCandidate, "bob", "bob", candidateData("n1", "self"))
	assert.Len(t, b.take(), 1)
}

func TestMalformedAndUnknownDropped(t *testing.T) {
	f := newFixture(t, ModePrivate)
	a := f.open("a1")
	f.open("b1")
	f.connect("a1", "alice")
	f.connect("b1", "bob")

	f.router.Dispatch("a1", domain.Envelope{Type: "ping", From: "alice"})
	f.router.Dispatch("a1", domain.Envelope{Type: domain.TypeConnect})
	f.router.Dispatch("a1", domain.Envelope{Type: domain.TypeOffer, From: "alice", To: "bob", Data: json.RawMessage(`{"sdp":`)})
	f.router.Dispatch("a1", domain.Envelope{Type: domain.TypeOffer, From: "alice", To: "bob"})
	f.send("a1", domain.TypeOffer, "alice", "bob", domain.SessionPayload{SDP: "v=0"})
	f.send("a1", domain.TypeAnswer, "alice", "bob", domain.SessionPayload{ConnectionID: "n1"})
	f.send("a1", domain.TypeCandidate, "alice", "bob", map[string]any{"candidate": "c"})
	f.router.Dispatch("ghost", domain.Envelope{Type: domain.TypeConnect, From: "ghost"})

	for _, c := range f.conns {
		assert.Empty(t, c.take())
	}
	assert.Empty(t, a.take())
	assert.Equal(t, 0, f.state.Pairings.Len())
	assert.Equal(t, 0, f.state.Candidates.Len())
	assert.Empty(t, f.state.Registry.SessionsFor("ghost"))
}

func TestSDPValidatorRejects(t *testing.T) {
	state := app.NewState()
	r := NewRouter(state, Options{
		Mode: ModePrivate,
		ValidateSDP: func(kind domain.MessageType, sdp string) error {
			if sdp != "ok" {
				return ErrBadPayload
			}
			return nil
		},
	})
	b := &recordingConn{}
	r.OnOpen("b1", b)
	r.OnOpen("a1", &recordingConn{})
	r.Dispatch("b1", domain.Envelope{Type: domain.TypeConnect, From: "bob"})
	b.take()

	bad, _ := json.Marshal(domain.SessionPayload{SDP: "nope", ConnectionID: "n1"})
	r.Dispatch("a1", domain.Envelope{Type: domain.TypeOffer, From: "alice", To: "bob", Data: bad})
	assert.Empty(t, b.take())

	good, _ := json.Marshal(domain.SessionPayload{SDP: "ok", ConnectionID: "n1"})
	r.Dispatch("a1", domain.Envelope{Type: domain.TypeOffer, From: "alice", To: "bob", Data: good})
	assert.Len(t, b.take(), 1)
}

func TestBackpressureKicksSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	slow := mocks.NewMockSignalConnection(ctrl)

	f := newFixture(t, ModePrivate)
	f.open("a1")
	f.connect("a1", "alice")
	f.router.OnOpen("b1", slow)

	slow.EXPECT().Send(domain.Message{Type: domain.TypeConnect, From: "bob", To: "bob"}).Return(nil)
	f.router.Dispatch("b1", domain.Envelope{Type: domain.TypeConnect, From: "bob"})

	slow.EXPECT().Send(gomock.Any()).Return(core.ErrBackpressure)
	slow.EXPECT().Close().Times(1)
	f.send("a1", domain.TypeCandidate, "alice", "bob", candidateData("n1", "c1"))

	assert.Empty(t, f.state.Registry.SessionsFor("bob"))
	_, ok := f.state.Registry.Conn("b1")
	assert.False(t, ok)

	// A later transport close for the kicked session is harmless.
	f.router.OnClose("b1")
}

func TestSweepAndNegotiationView(t *testing.T) {
	f := newFixture(t, ModePrivate)
	f.open("a1")
	f.connect("a1", "alice")
	f.send("a1", domain.TypeOffer, "alice", "bob", sessionData("n1"))
	f.send("a1", domain.TypeCandidate, "alice", "bob", candidateData("n1", "c1"))

	view, ok := f.router.Negotiation("n1")
	require.True(t, ok)
	require.NotNil(t, view.Pairing)
	assert.Equal(t, domain.PeerID("alice"), view.Pairing.Offerer)
	assert.Len(t, view.Candidates["alice"], 1)

	stats := f.router.Snapshot()
	assert.Equal(t, Stats{Mode: ModePrivate, Sessions: 1, Identities: 1, Pairings: 1, CandidateNegotiations: 1, Negotiations: 1}, stats)

	f.clock = fixedNow.Add(time.Minute)
	assert.Empty(t, f.router.Sweep(2*time.Minute))
	assert.Equal(t, []domain.NegotiationID{"n1"}, f.router.Sweep(time.Minute))

	_, ok = f.router.Negotiation("n1")
	assert.False(t, ok)
}

func TestParseMode(t *testing.T) {
	assert.Equal(t, ModePrivate, ParseMode("private"))
	assert.Equal(t, ModePublic, ParseMode("public"))
	assert.Equal(t, ModePublic, ParseMode(""))
	assert.Equal(t, ModePublic, ParseMode("Private"))
}
