package client

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidmesh/vidmesh/internal/core"
	"github.com/vidmesh/vidmesh/internal/domain"
	"github.com/vidmesh/vidmesh/internal/proto"
)

// --- fakes shared by the client package tests ---

type relayCall struct {
	kind    proto.RelayKind
	roomID  domain.RoomID
	target  domain.EndpointID
	payload json.RawMessage
}

type fakeTransport struct {
	mu          sync.Mutex
	events      chan *proto.ServerEvent
	joins       []domain.RoomID
	leaves      []domain.RoomID
	relays      []relayCall
	trackStates []proto.TrackState
	relayErrFor map[domain.EndpointID]error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		events:      make(chan *proto.ServerEvent),
		relayErrFor: make(map[domain.EndpointID]error),
	}
}

func (t *fakeTransport) Events() <-chan *proto.ServerEvent { return t.events }

func (t *fakeTransport) SendJoin(roomID domain.RoomID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.joins = append(t.joins, roomID)
	return nil
}

func (t *fakeTransport) SendLeave(roomID domain.RoomID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.leaves = append(t.leaves, roomID)
	return nil
}

func (t *fakeTransport) SendRelay(kind proto.RelayKind, roomID domain.RoomID, target domain.EndpointID, payload json.RawMessage) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.relayErrFor[target]; err != nil {
		return err
	}
	t.relays = append(t.relays, relayCall{kind: kind, roomID: roomID, target: target, payload: payload})
	return nil
}

func (t *fakeTransport) SendTrackState(roomID domain.RoomID, kind string, enabled bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.trackStates = append(t.trackStates, proto.TrackState{RoomID: roomID, Kind: kind, Enabled: enabled})
	return nil
}

func (t *fakeTransport) Close() error { return nil }

func (t *fakeTransport) relaysTo(target domain.EndpointID, kind proto.RelayKind) []relayCall {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []relayCall
	for _, r := range t.relays {
		if r.target == target && r.kind == kind {
			out = append(out, r)
		}
	}
	return out
}

type fakeMediaConn struct {
	mu      sync.Mutex
	remote  domain.EndpointID
	started bool
	closed  bool

	offersMade    int
	answersMade   int
	answerApplied bool
	candidates    []webrtc.ICECandidateInit
	tracks        map[core.SourceSlot]webrtc.TrackLocal
	removed       []core.SourceSlot
	replaceCalls  int

	onICECandidate      func(webrtc.ICECandidateInit)
	onTrack             func(*webrtc.TrackRemote)
	onNegotiationNeeded func()
	onClosed            func()
}

func newFakeMediaConn(remote domain.EndpointID) *fakeMediaConn {
	return &fakeMediaConn{remote: remote, tracks: make(map[core.SourceSlot]webrtc.TrackLocal)}
}

func (c *fakeMediaConn) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = true
	return nil
}

func (c *fakeMediaConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeMediaConn) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeMediaConn) CreateAndSetOffer() (webrtc.SessionDescription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offersMade++
	return webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "v=0 offer"}, nil
}

func (c *fakeMediaConn) ApplyOfferAndCreateAnswer(webrtc.SessionDescription) (webrtc.SessionDescription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.answersMade++
	return webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "v=0 answer"}, nil
}

func (c *fakeMediaConn) ApplyAnswer(webrtc.SessionDescription) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.answerApplied = true
	return nil
}

func (c *fakeMediaConn) AddICECandidate(ci webrtc.ICECandidateInit) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.candidates = append(c.candidates, ci)
	return nil
}

func (c *fakeMediaConn) AddTrack(slot core.SourceSlot, track webrtc.TrackLocal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tracks[slot] = track
	return nil
}

func (c *fakeMediaConn) ReplaceTrack(slot core.SourceSlot, track webrtc.TrackLocal) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replaceCalls++
	if _, ok := c.tracks[slot]; !ok {
		return false, nil
	}
	c.tracks[slot] = track
	return true, nil
}

func (c *fakeMediaConn) RemoveTrack(slot core.SourceSlot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tracks, slot)
	c.removed = append(c.removed, slot)
	return nil
}

func (c *fakeMediaConn) OnICECandidate(fn func(webrtc.ICECandidateInit)) { c.onICECandidate = fn }
func (c *fakeMediaConn) OnTrack(fn func(*webrtc.TrackRemote))           { c.onTrack = fn }
func (c *fakeMediaConn) OnNegotiationNeeded(fn func())                  { c.onNegotiationNeeded = fn }
func (c *fakeMediaConn) OnClosed(fn func())                             { c.onClosed = fn }

// connRecorder hands out fake connections and remembers every one, in
// creation order, so tests can inspect replaced links too.
type connRecorder struct {
	mu    sync.Mutex
	conns []*fakeMediaConn
}

func (r *connRecorder) factory(remote domain.EndpointID) (core.MediaConnection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := newFakeMediaConn(remote)
	r.conns = append(r.conns, c)
	return c, nil
}

func (r *connRecorder) connFor(remote domain.EndpointID) *fakeMediaConn {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.conns) - 1; i >= 0; i-- {
		if r.conns[i].remote == remote {
			return r.conns[i]
		}
	}
	return nil
}

type fakeTrack struct {
	id   string
	kind webrtc.RTPCodecType
}

func (t *fakeTrack) Bind(webrtc.TrackLocalContext) (webrtc.RTPCodecParameters, error) {
	return webrtc.RTPCodecParameters{}, nil
}
func (t *fakeTrack) Unbind(webrtc.TrackLocalContext) error { return nil }
func (t *fakeTrack) ID() string                            { return t.id }
func (t *fakeTrack) RID() string                           { return "" }
func (t *fakeTrack) StreamID() string                      { return "local" }
func (t *fakeTrack) Kind() webrtc.RTPCodecType             { return t.kind }

func newTestSession(t *testing.T, localID domain.EndpointID, cb Callbacks) (*Session, *fakeTransport, *connRecorder) {
	t.Helper()
	transport := newFakeTransport()
	rec := &connRecorder{}
	s := NewSession(transport, rec.factory, cb)
	s.handle(&proto.ServerEvent{Type: proto.TypeWelcome, PeerID: localID})
	require.NoError(t, s.JoinRoom("r1"))
	return s, transport, rec
}

func descPayload(t *testing.T, sdpType webrtc.SDPType, sdp string) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(webrtc.SessionDescription{Type: sdpType, SDP: sdp})
	require.NoError(t, err)
	return b
}

// --- tests ---

func TestSession_OffersToPeersItOutranks(t *testing.T) {
	s, transport, rec := newTestSession(t, "z", Callbacks{})

	s.handle(&proto.ServerEvent{Type: proto.TypeRoomPeers, Peers: []proto.PeerInfo{
		{PeerID: "a", UserID: "alice"},
		{PeerID: "m", UserID: "mary"},
	}})

	for _, remote := range []domain.EndpointID{"a", "m"} {
		require.Len(t, transport.relaysTo(remote, proto.RelayOffer), 1, "offer to %s", remote)
		state, ok := s.PeerState(remote)
		require.True(t, ok)
		assert.Equal(t, StateNegotiating, state)
		assert.True(t, rec.connFor(remote).started)
		assert.Equal(t, 1, rec.connFor(remote).offersMade)
	}
}

func TestSession_WaitsForOfferFromHigherPeer(t *testing.T) {
	s, transport, rec := newTestSession(t, "a", Callbacks{})

	s.handle(&proto.ServerEvent{Type: proto.TypePeerJoined, PeerID: "z", UserID: "zed"})

	assert.Empty(t, transport.relaysTo("z", proto.RelayOffer))
	_, ok := s.PeerState("z")
	assert.False(t, ok)
	assert.Nil(t, rec.connFor("z"))
}

func TestSession_AnswersIncomingOffer(t *testing.T) {
	s, transport, rec := newTestSession(t, "a", Callbacks{})

	s.handle(&proto.ServerEvent{
		Type:    proto.TypeOffer,
		PeerID:  "z",
		Payload: descPayload(t, webrtc.SDPTypeOffer, "v=0"),
	})

	require.Len(t, transport.relaysTo("z", proto.RelayAnswer), 1)
	state, ok := s.PeerState("z")
	require.True(t, ok)
	assert.Equal(t, StateConnected, state)
	assert.Equal(t, 1, rec.connFor("z").answersMade)
}

func TestSession_AnswerCompletesNegotiation(t *testing.T) {
	s, transport, rec := newTestSession(t, "z", Callbacks{})
	s.handle(&proto.ServerEvent{Type: proto.TypePeerJoined, PeerID: "a", UserID: "alice"})
	require.Len(t, transport.relaysTo("a", proto.RelayOffer), 1)

	s.handle(&proto.ServerEvent{
		Type:    proto.TypeAnswer,
		PeerID:  "a",
		Payload: descPayload(t, webrtc.SDPTypeAnswer, "v=0"),
	})

	state, ok := s.PeerState("a")
	require.True(t, ok)
	assert.Equal(t, StateConnected, state)
	assert.True(t, rec.connFor("a").answerApplied)
}

func TestSession_UnexpectedAnswerDropped(t *testing.T) {
	s, _, rec := newTestSession(t, "z", Callbacks{})

	s.handle(&proto.ServerEvent{
		Type:    proto.TypeAnswer,
		PeerID:  "a",
		Payload: descPayload(t, webrtc.SDPTypeAnswer, "v=0"),
	})

	_, ok := s.PeerState("a")
	assert.False(t, ok)
	assert.Nil(t, rec.connFor("a"))
}

func TestSession_GlareRightfulOffererIgnoresRemoteOffer(t *testing.T) {
	s, transport, rec := newTestSession(t, "z", Callbacks{})
	s.handle(&proto.ServerEvent{Type: proto.TypePeerJoined, PeerID: "a", UserID: "alice"})
	require.Len(t, transport.relaysTo("a", proto.RelayOffer), 1)

	// The lower-priority peer offers anyway; ours stays on the table.
	s.handle(&proto.ServerEvent{
		Type:    proto.TypeOffer,
		PeerID:  "a",
		Payload: descPayload(t, webrtc.SDPTypeOffer, "v=0"),
	})

	assert.Empty(t, transport.relaysTo("a", proto.RelayAnswer))
	assert.Equal(t, 0, rec.connFor("a").answersMade)
	state, ok := s.PeerState("a")
	require.True(t, ok)
	assert.Equal(t, StateNegotiating, state)
}

func TestSession_RenegotiationGlareResolvedOnSameConnection(t *testing.T) {
	s, transport, rec := newTestSession(t, "a", Callbacks{})

	// Establish the pair as answerer first.
	s.handle(&proto.ServerEvent{
		Type:    proto.TypeOffer,
		PeerID:  "z",
		Payload: descPayload(t, webrtc.SDPTypeOffer, "v=0"),
	})
	conn := rec.connFor("z")
	require.NotNil(t, conn)

	// A local track addition makes us renegotiate toward z.
	conn.onNegotiationNeeded()
	require.Len(t, transport.relaysTo("z", proto.RelayOffer), 1)

	// z offers at the same time. It outranks us, so our offer is
	// abandoned and we answer theirs — on the established connection.
	// Tearing it down here would strand z's side of the pairing.
	s.handle(&proto.ServerEvent{
		Type:    proto.TypeOffer,
		PeerID:  "z",
		Payload: descPayload(t, webrtc.SDPTypeOffer, "v=1"),
	})

	assert.False(t, conn.IsClosed())
	require.Same(t, conn, rec.connFor("z"))
	require.Len(t, rec.conns, 1)
	assert.Equal(t, 2, conn.answersMade)
	require.Len(t, transport.relaysTo("z", proto.RelayAnswer), 2)
	state, ok := s.PeerState("z")
	require.True(t, ok)
	assert.Equal(t, StateConnected, state)
}

func TestSession_CandidatesFlushedInArrivalOrder(t *testing.T) {
	s, _, rec := newTestSession(t, "z", Callbacks{})
	s.handle(&proto.ServerEvent{Type: proto.TypePeerJoined, PeerID: "a", UserID: "alice"})
	conn := rec.connFor("a")

	for _, c := range []string{"cand-1", "cand-2", "cand-3"} {
		payload, err := json.Marshal(webrtc.ICECandidateInit{Candidate: c})
		require.NoError(t, err)
		s.handle(&proto.ServerEvent{Type: proto.TypeICECandidate, PeerID: "a", Payload: payload})
	}
	// Nothing applied before the remote description is set.
	assert.Empty(t, conn.candidates)

	s.handle(&proto.ServerEvent{
		Type:    proto.TypeAnswer,
		PeerID:  "a",
		Payload: descPayload(t, webrtc.SDPTypeAnswer, "v=0"),
	})

	require.Len(t, conn.candidates, 3)
	for i, want := range []string{"cand-1", "cand-2", "cand-3"} {
		assert.Equal(t, want, conn.candidates[i].Candidate)
	}

	// Later candidates apply immediately.
	payload, err := json.Marshal(webrtc.ICECandidateInit{Candidate: "cand-4"})
	require.NoError(t, err)
	s.handle(&proto.ServerEvent{Type: proto.TypeICECandidate, PeerID: "a", Payload: payload})
	assert.Len(t, conn.candidates, 4)
}

func TestSession_CandidateForUnknownPeerDropped(t *testing.T) {
	s, _, rec := newTestSession(t, "z", Callbacks{})
	payload, err := json.Marshal(webrtc.ICECandidateInit{Candidate: "stray"})
	require.NoError(t, err)

	s.handle(&proto.ServerEvent{Type: proto.TypeICECandidate, PeerID: "ghost", Payload: payload})

	assert.Nil(t, rec.connFor("ghost"))
}

func TestSession_PeerDisconnectedClosesOnlyThatPeer(t *testing.T) {
	var left []domain.EndpointID
	s, _, rec := newTestSession(t, "z", Callbacks{
		OnPeerLeft: func(peer domain.EndpointID) { left = append(left, peer) },
	})
	s.handle(&proto.ServerEvent{Type: proto.TypeRoomPeers, Peers: []proto.PeerInfo{
		{PeerID: "a", UserID: "alice"},
		{PeerID: "b", UserID: "bob"},
	}})

	s.handle(&proto.ServerEvent{Type: proto.TypePeerDisconnected, PeerID: "a"})

	assert.True(t, rec.connFor("a").IsClosed())
	assert.False(t, rec.connFor("b").IsClosed())
	_, ok := s.PeerState("a")
	assert.False(t, ok)
	_, ok = s.PeerState("b")
	assert.True(t, ok)
	assert.Equal(t, []domain.EndpointID{"a"}, left)
}

func TestSession_RelayFailureTearsDownOnePairOnly(t *testing.T) {
	transport := newFakeTransport()
	transport.relayErrFor["a"] = errors.New("target peer not found")
	rec := &connRecorder{}
	s := NewSession(transport, rec.factory, Callbacks{})
	s.handle(&proto.ServerEvent{Type: proto.TypeWelcome, PeerID: "z"})
	require.NoError(t, s.JoinRoom("r1"))

	s.handle(&proto.ServerEvent{Type: proto.TypeRoomPeers, Peers: []proto.PeerInfo{
		{PeerID: "a", UserID: "alice"},
		{PeerID: "b", UserID: "bob"},
	}})

	_, ok := s.PeerState("a")
	assert.False(t, ok)
	assert.True(t, rec.connFor("a").IsClosed())

	state, ok := s.PeerState("b")
	require.True(t, ok)
	assert.Equal(t, StateNegotiating, state)
	require.Len(t, transport.relaysTo("b", proto.RelayOffer), 1)
}

func TestSession_RemoteTracksTracked(t *testing.T) {
	var gotPeer domain.EndpointID
	s, _, rec := newTestSession(t, "z", Callbacks{
		OnRemoteTrack: func(peer domain.EndpointID, track *webrtc.TrackRemote) { gotPeer = peer },
	})
	s.handle(&proto.ServerEvent{Type: proto.TypePeerJoined, PeerID: "a", UserID: "alice"})

	track := &webrtc.TrackRemote{}
	rec.connFor("a").onTrack(track)

	assert.Equal(t, domain.EndpointID("a"), gotPeer)
	tracks := s.RemoteTracks()
	require.Len(t, tracks[domain.EndpointID("a")], 1)
	assert.Same(t, track, tracks[domain.EndpointID("a")][0])

	s.handle(&proto.ServerEvent{Type: proto.TypePeerDisconnected, PeerID: "a"})
	assert.Empty(t, s.RemoteTracks())
}

func TestSession_LeaveRoomReleasesEverything(t *testing.T) {
	s, transport, rec := newTestSession(t, "z", Callbacks{})
	s.handle(&proto.ServerEvent{Type: proto.TypeRoomPeers, Peers: []proto.PeerInfo{
		{PeerID: "a", UserID: "alice"},
		{PeerID: "b", UserID: "bob"},
	}})

	s.LeaveRoom()

	assert.Equal(t, []domain.RoomID{"r1"}, transport.leaves)
	for _, remote := range []domain.EndpointID{"a", "b"} {
		assert.True(t, rec.connFor(remote).IsClosed())
		_, ok := s.PeerState(remote)
		assert.False(t, ok)
	}
}

func TestSession_AttachTrackFansOutToAllPeers(t *testing.T) {
	s, _, rec := newTestSession(t, "z", Callbacks{})
	s.handle(&proto.ServerEvent{Type: proto.TypeRoomPeers, Peers: []proto.PeerInfo{
		{PeerID: "a", UserID: "alice"},
		{PeerID: "b", UserID: "bob"},
	}})

	track := &fakeTrack{id: "cam", kind: webrtc.RTPCodecTypeVideo}
	s.AttachTrack(core.SlotCamera, track)

	for _, remote := range []domain.EndpointID{"a", "b"} {
		assert.Same(t, track, rec.connFor(remote).tracks[core.SlotCamera], "peer %s", remote)
	}

	// New peers pick up the already attached track on creation.
	s.handle(&proto.ServerEvent{
		Type:    proto.TypeOffer,
		PeerID:  "zz",
		Payload: descPayload(t, webrtc.SDPTypeOffer, "v=0"),
	})
	assert.Same(t, track, rec.connFor("zz").tracks[core.SlotCamera])
}

func TestSession_ReplaceTrackFallsBackToAdd(t *testing.T) {
	s, _, rec := newTestSession(t, "z", Callbacks{})
	s.handle(&proto.ServerEvent{Type: proto.TypePeerJoined, PeerID: "a", UserID: "alice"})

	first := &fakeTrack{id: "cam-1", kind: webrtc.RTPCodecTypeVideo}
	s.AttachTrack(core.SlotCamera, first)

	// A peer that joins later has no sender for the slot yet.
	s.handle(&proto.ServerEvent{
		Type:    proto.TypeOffer,
		PeerID:  "zz",
		Payload: descPayload(t, webrtc.SDPTypeOffer, "v=0"),
	})
	conn := rec.connFor("zz")
	delete(conn.tracks, core.SlotCamera)

	second := &fakeTrack{id: "cam-2", kind: webrtc.RTPCodecTypeVideo}
	s.ReplaceTrack(core.SlotCamera, second)

	assert.Same(t, second, rec.connFor("a").tracks[core.SlotCamera])
	assert.Same(t, second, conn.tracks[core.SlotCamera])
	assert.Equal(t, 1, conn.replaceCalls)
}

func TestSession_MuteTrackPausesEverySender(t *testing.T) {
	s, _, rec := newTestSession(t, "z", Callbacks{})
	s.handle(&proto.ServerEvent{Type: proto.TypeRoomPeers, Peers: []proto.PeerInfo{
		{PeerID: "a", UserID: "alice"},
		{PeerID: "b", UserID: "bob"},
	}})
	track := &fakeTrack{id: "cam", kind: webrtc.RTPCodecTypeVideo}
	s.AttachTrack(core.SlotCamera, track)

	s.MuteTrack(core.SlotCamera)

	for _, remote := range []domain.EndpointID{"a", "b"} {
		got, ok := rec.connFor(remote).tracks[core.SlotCamera]
		require.True(t, ok, "peer %s", remote)
		assert.Nil(t, got, "peer %s still carries the live track", remote)
	}

	// Restoring swaps the live track back in; no offer beyond the
	// initial discovery one.
	s.ReplaceTrack(core.SlotCamera, track)
	for _, remote := range []domain.EndpointID{"a", "b"} {
		conn := rec.connFor(remote)
		assert.Same(t, track, conn.tracks[core.SlotCamera])
		assert.Equal(t, 1, conn.offersMade)
	}
}

func TestSession_MutedSlotNotSentToNewPeers(t *testing.T) {
	s, _, rec := newTestSession(t, "z", Callbacks{})
	track := &fakeTrack{id: "cam", kind: webrtc.RTPCodecTypeVideo}
	s.AttachTrack(core.SlotCamera, track)
	s.MuteTrack(core.SlotCamera)

	s.handle(&proto.ServerEvent{
		Type:    proto.TypeOffer,
		PeerID:  "zz",
		Payload: descPayload(t, webrtc.SDPTypeOffer, "v=0"),
	})
	conn := rec.connFor("zz")
	_, ok := conn.tracks[core.SlotCamera]
	assert.False(t, ok)

	// Unmuting adds the missing sender for the late peer.
	s.ReplaceTrack(core.SlotCamera, track)
	assert.Same(t, track, conn.tracks[core.SlotCamera])
}

func TestSession_ReplaceTrackKeepsConnectionEstablished(t *testing.T) {
	s, _, rec := newTestSession(t, "a", Callbacks{})
	s.handle(&proto.ServerEvent{
		Type:    proto.TypeOffer,
		PeerID:  "z",
		Payload: descPayload(t, webrtc.SDPTypeOffer, "v=0"),
	})
	s.AttachTrack(core.SlotCamera, &fakeTrack{id: "cam-1", kind: webrtc.RTPCodecTypeVideo})
	conn := rec.connFor("z")

	s.ReplaceTrack(core.SlotCamera, &fakeTrack{id: "cam-2", kind: webrtc.RTPCodecTypeVideo})

	state, ok := s.PeerState("z")
	require.True(t, ok)
	assert.Equal(t, StateConnected, state)
	assert.Equal(t, 1, conn.replaceCalls)
	assert.Equal(t, 0, conn.offersMade)
}

func TestSession_DetachTrackRemovesEverywhere(t *testing.T) {
	s, _, rec := newTestSession(t, "z", Callbacks{})
	s.handle(&proto.ServerEvent{Type: proto.TypePeerJoined, PeerID: "a", UserID: "alice"})
	track := &fakeTrack{id: "screen", kind: webrtc.RTPCodecTypeVideo}
	s.AttachTrack(core.SlotScreen, track)

	s.DetachTrack(core.SlotScreen)

	conn := rec.connFor("a")
	assert.NotContains(t, conn.tracks, core.SlotScreen)
	assert.Equal(t, []core.SourceSlot{core.SlotScreen}, conn.removed)
}

func TestSession_TrackStateEventReachesCallback(t *testing.T) {
	type stateChange struct {
		peer    domain.EndpointID
		kind    string
		enabled bool
	}
	var changes []stateChange
	s, _, _ := newTestSession(t, "z", Callbacks{
		OnPeerTrackState: func(peer domain.EndpointID, kind string, enabled bool) {
			changes = append(changes, stateChange{peer, kind, enabled})
		},
	})

	s.handle(&proto.ServerEvent{Type: proto.TypeTrackState, PeerID: "a", Kind: "audio", Enabled: false})

	require.Len(t, changes, 1)
	assert.Equal(t, stateChange{"a", "audio", false}, changes[0])
}

func TestSession_AnnounceTrackState(t *testing.T) {
	s, transport, _ := newTestSession(t, "z", Callbacks{})

	s.AnnounceTrackState("video", false)

	require.Len(t, transport.trackStates, 1)
	assert.Equal(t, proto.TrackState{RoomID: "r1", Kind: "video", Enabled: false}, transport.trackStates[0])
}
