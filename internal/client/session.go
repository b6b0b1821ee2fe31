package client

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/vidmesh/vidmesh/internal/core"
	"github.com/vidmesh/vidmesh/internal/domain"
	"github.com/vidmesh/vidmesh/internal/proto"
)

// ConnectionFactory builds one media connection toward a remote
// endpoint. Wired to rtc.NewConnection in the binary, faked in tests.
type ConnectionFactory func(remote domain.EndpointID) (core.MediaConnection, error)

// Callbacks surface session events to the embedding application. All
// are optional and must not block.
type Callbacks struct {
	OnRemoteTrack    func(peer domain.EndpointID, track *webrtc.TrackRemote)
	OnPeerLeft       func(peer domain.EndpointID)
	OnPeerTrackState func(peer domain.EndpointID, kind string, enabled bool)
	OnError          func(message string)
}

// Session drives one full-mesh call for the local participant. It owns
// the peer map (one link per remote endpoint, created idempotently) and
// propagates local track mutations to every open connection.
type Session struct {
	transport Transport
	factory   ConnectionFactory
	cb        Callbacks

	mu           sync.Mutex
	localID      domain.EndpointID
	roomID       domain.RoomID
	peers        map[domain.EndpointID]*peerLink
	localTracks  map[core.SourceSlot]webrtc.TrackLocal
	muted        map[core.SourceSlot]bool
	remoteTracks map[domain.EndpointID][]*webrtc.TrackRemote
}

func NewSession(transport Transport, factory ConnectionFactory, cb Callbacks) *Session {
	return &Session{
		transport:    transport,
		factory:      factory,
		cb:           cb,
		peers:        make(map[domain.EndpointID]*peerLink),
		localTracks:  make(map[core.SourceSlot]webrtc.TrackLocal),
		muted:        make(map[core.SourceSlot]bool),
		remoteTracks: make(map[domain.EndpointID][]*webrtc.TrackRemote),
	}
}

// Run consumes transport events until the channel closes. Start it
// before JoinRoom so the welcome event is seen first.
func (s *Session) Run() {
	for ev := range s.transport.Events() {
		s.handle(ev)
	}
	log.Info().Str("module", "client.session").Msg("signaling channel closed")
	s.teardownAll()
}

func (s *Session) handle(ev *proto.ServerEvent) {
	switch ev.Type {
	case proto.TypeWelcome:
		s.mu.Lock()
		s.localID = ev.PeerID
		s.mu.Unlock()
		log.Info().Str("module", "client.session").Str("ep", string(ev.PeerID)).Msg("welcome")
	case proto.TypeRoomPeers:
		for _, p := range ev.Peers {
			s.discoverPeer(p.PeerID)
		}
	case proto.TypePeerJoined:
		log.Info().Str("module", "client.session").Str("peer", string(ev.PeerID)).Str("user", string(ev.UserID)).Msg("peer joined")
		s.discoverPeer(ev.PeerID)
	case proto.TypePeerDisconnected:
		s.teardownPeer(ev.PeerID)
		if s.cb.OnPeerLeft != nil {
			s.cb.OnPeerLeft(ev.PeerID)
		}
	case proto.TypeOffer:
		s.handleOffer(ev.PeerID, ev.Payload)
	case proto.TypeAnswer:
		s.handleAnswer(ev.PeerID, ev.Payload)
	case proto.TypeICECandidate:
		s.handleCandidate(ev.PeerID, ev.Payload)
	case proto.TypeTrackState:
		if s.cb.OnPeerTrackState != nil {
			s.cb.OnPeerTrackState(ev.PeerID, ev.Kind, ev.Enabled)
		}
	case proto.TypeError:
		log.Warn().Str("module", "client.session").Str("message", ev.Message).Msg("gateway error")
		if s.cb.OnError != nil {
			s.cb.OnError(ev.Message)
		}
	}
}

// JoinRoom asks the gateway for membership. Discovery of existing
// members arrives as a room-peers event.
func (s *Session) JoinRoom(roomID domain.RoomID) error {
	s.mu.Lock()
	s.roomID = roomID
	s.mu.Unlock()
	return s.transport.SendJoin(roomID)
}

// LeaveRoom leaves the room and synchronously releases every peer
// connection; in-flight negotiations are abandoned.
func (s *Session) LeaveRoom() {
	s.mu.Lock()
	roomID := s.roomID
	s.roomID = ""
	s.mu.Unlock()
	if roomID != "" {
		if err := s.transport.SendLeave(roomID); err != nil {
			log.Warn().Err(err).Str("module", "client.session").Msg("leave send failed")
		}
	}
	s.teardownAll()
}

// discoverPeer starts the offerer flow toward a newly known remote if
// the tiebreak says we offer; otherwise we wait for its offer. Creation
// is idempotent per remote endpoint.
func (s *Session) discoverPeer(remote domain.EndpointID) {
	s.mu.Lock()
	local := s.localID
	if remote == local {
		s.mu.Unlock()
		return
	}
	if _, exists := s.peers[remote]; exists {
		s.mu.Unlock()
		return
	}
	if !shouldOffer(local, remote) {
		s.mu.Unlock()
		return
	}
	link, err := s.newLinkLocked(remote)
	if err != nil {
		s.mu.Unlock()
		log.Error().Err(err).Str("module", "client.session").Str("peer", string(remote)).Msg("peer connection setup failed")
		return
	}
	link.state = StateNegotiating
	link.awaitingAnswer = true
	offer, err := link.conn.CreateAndSetOffer()
	roomID := s.roomID
	s.mu.Unlock()
	if err != nil {
		s.failPeer(remote, fmt.Errorf("%w: %v", core.ErrNegotiationFailed, err))
		return
	}
	s.sendDescription(proto.RelayOffer, roomID, remote, offer)
}

func (s *Session) handleOffer(remote domain.EndpointID, payload json.RawMessage) {
	var offer webrtc.SessionDescription
	if err := json.Unmarshal(payload, &offer); err != nil {
		log.Warn().Err(err).Str("module", "client.session").Msg("bad offer payload")
		return
	}

	s.mu.Lock()
	link, exists := s.peers[remote]
	if exists && link.awaitingAnswer {
		if shouldOffer(s.localID, remote) {
			// We are the rightful offerer for this pair; the remote is
			// violating the tiebreak. Keep our offer on the table.
			s.mu.Unlock()
			log.Warn().Str("module", "client.session").Str("peer", string(remote)).Msg("ignoring glare offer from lower-priority peer")
			return
		}
		// Their offer wins; abandon ours and answer on the same
		// connection. The rtc adapter rolls back the pending local
		// offer before applying theirs, so an established pairing
		// survives crossing renegotiations intact.
		log.Info().Str("module", "client.session").Str("peer", string(remote)).Msg("glare: yielding to remote offer")
		link.awaitingAnswer = false
		link.remoteSet = false
	}
	if !exists {
		var err error
		link, err = s.newLinkLocked(remote)
		if err != nil {
			s.mu.Unlock()
			log.Error().Err(err).Str("module", "client.session").Str("peer", string(remote)).Msg("peer connection setup failed")
			return
		}
	}
	link.state = StateNegotiating
	answer, err := link.conn.ApplyOfferAndCreateAnswer(offer)
	if err == nil {
		err = link.remoteReady()
	}
	if err == nil {
		link.state = StateConnected
	}
	roomID := s.roomID
	s.mu.Unlock()

	if err != nil {
		s.failPeer(remote, fmt.Errorf("%w: %v", core.ErrNegotiationFailed, err))
		return
	}
	s.sendDescription(proto.RelayAnswer, roomID, remote, answer)
}

func (s *Session) handleAnswer(remote domain.EndpointID, payload json.RawMessage) {
	var answer webrtc.SessionDescription
	if err := json.Unmarshal(payload, &answer); err != nil {
		log.Warn().Err(err).Str("module", "client.session").Msg("bad answer payload")
		return
	}

	s.mu.Lock()
	link, exists := s.peers[remote]
	if !exists || !link.awaitingAnswer {
		s.mu.Unlock()
		log.Debug().Str("module", "client.session").Str("peer", string(remote)).Msg("unexpected answer dropped")
		return
	}
	err := link.conn.ApplyAnswer(answer)
	if err == nil {
		link.awaitingAnswer = false
		err = link.remoteReady()
	}
	if err == nil {
		link.state = StateConnected
	}
	s.mu.Unlock()

	if err != nil {
		s.failPeer(remote, fmt.Errorf("%w: %v", core.ErrNegotiationFailed, err))
	}
}

func (s *Session) handleCandidate(remote domain.EndpointID, payload json.RawMessage) {
	var ci webrtc.ICECandidateInit
	if err := json.Unmarshal(payload, &ci); err != nil {
		log.Warn().Err(err).Str("module", "client.session").Msg("bad candidate payload")
		return
	}
	s.mu.Lock()
	link, exists := s.peers[remote]
	var err error
	if exists {
		err = link.addCandidate(ci)
	}
	s.mu.Unlock()
	if !exists {
		log.Debug().Str("module", "client.session").Str("peer", string(remote)).Msg("candidate for unknown peer dropped")
		return
	}
	if err != nil {
		log.Warn().Err(err).Str("module", "client.session").Str("peer", string(remote)).Msg("candidate apply failed")
	}
}

// newLinkLocked creates and wires a media connection; s.mu must be held.
// Current local tracks are attached before any negotiation.
func (s *Session) newLinkLocked(remote domain.EndpointID) (*peerLink, error) {
	conn, err := s.factory(remote)
	if err != nil {
		return nil, err
	}
	link := &peerLink{id: remote, conn: conn, state: StateIdle}

	conn.OnICECandidate(func(ci webrtc.ICECandidateInit) {
		s.sendCandidate(remote, ci)
	})
	conn.OnTrack(func(track *webrtc.TrackRemote) {
		s.addRemoteTrack(remote, track)
	})
	conn.OnNegotiationNeeded(func() {
		s.renegotiate(remote)
	})
	conn.OnClosed(func() {
		go s.teardownPeer(remote)
	})

	for slot, track := range s.localTracks {
		if s.muted[slot] {
			continue
		}
		if err := conn.AddTrack(slot, track); err != nil {
			conn.Close()
			return nil, err
		}
	}
	if err := conn.Start(); err != nil {
		conn.Close()
		return nil, err
	}
	s.peers[remote] = link
	return link, nil
}

// renegotiate sends a fresh offer over an established connection after
// a sender was added or removed. Initial negotiation is driven
// explicitly, so anything not yet connected is skipped here.
func (s *Session) renegotiate(remote domain.EndpointID) {
	s.mu.Lock()
	link, exists := s.peers[remote]
	if !exists || link.state != StateConnected || link.awaitingAnswer {
		s.mu.Unlock()
		return
	}
	link.awaitingAnswer = true
	link.remoteSet = false
	offer, err := link.conn.CreateAndSetOffer()
	roomID := s.roomID
	s.mu.Unlock()
	if err != nil {
		s.failPeer(remote, fmt.Errorf("%w: %v", core.ErrNegotiationFailed, err))
		return
	}
	log.Info().Str("module", "client.session").Str("peer", string(remote)).Msg("renegotiating")
	s.sendDescription(proto.RelayOffer, roomID, remote, offer)
}

func (s *Session) sendDescription(kind proto.RelayKind, roomID domain.RoomID, remote domain.EndpointID, desc webrtc.SessionDescription) {
	payload, err := json.Marshal(desc)
	if err != nil {
		log.Error().Err(err).Str("module", "client.session").Msg("description marshal")
		return
	}
	if err := s.transport.SendRelay(kind, roomID, remote, payload); err != nil {
		// A failed relay affects this pair only.
		s.failPeer(remote, err)
	}
}

func (s *Session) sendCandidate(remote domain.EndpointID, ci webrtc.ICECandidateInit) {
	s.mu.Lock()
	roomID := s.roomID
	s.mu.Unlock()
	if roomID == "" {
		return
	}
	payload, err := json.Marshal(ci)
	if err != nil {
		log.Error().Err(err).Str("module", "client.session").Msg("candidate marshal")
		return
	}
	if err := s.transport.SendRelay(proto.RelayCandidate, roomID, remote, payload); err != nil {
		log.Warn().Err(err).Str("module", "client.session").Str("peer", string(remote)).Msg("candidate relay failed")
	}
}

func (s *Session) addRemoteTrack(remote domain.EndpointID, track *webrtc.TrackRemote) {
	s.mu.Lock()
	// Immutable-replace so interleaved callbacks from different
	// connections never lose updates.
	next := make(map[domain.EndpointID][]*webrtc.TrackRemote, len(s.remoteTracks)+1)
	for k, v := range s.remoteTracks {
		next[k] = v
	}
	next[remote] = append(append([]*webrtc.TrackRemote{}, next[remote]...), track)
	s.remoteTracks = next
	s.mu.Unlock()
	if s.cb.OnRemoteTrack != nil {
		s.cb.OnRemoteTrack(remote, track)
	}
}

// failPeer tears down one pairing after an unrecoverable error for it.
// The rest of the mesh keeps running.
func (s *Session) failPeer(remote domain.EndpointID, err error) {
	log.Warn().Err(err).Str("module", "client.session").Str("peer", string(remote)).Msg("tearing down peer")
	s.teardownPeer(remote)
}

func (s *Session) teardownPeer(remote domain.EndpointID) {
	s.mu.Lock()
	link, exists := s.peers[remote]
	if exists {
		delete(s.peers, remote)
		link.close()
	}
	if _, ok := s.remoteTracks[remote]; ok {
		next := make(map[domain.EndpointID][]*webrtc.TrackRemote, len(s.remoteTracks))
		for k, v := range s.remoteTracks {
			if k != remote {
				next[k] = v
			}
		}
		s.remoteTracks = next
	}
	s.mu.Unlock()
}

func (s *Session) teardownAll() {
	s.mu.Lock()
	links := s.peers
	s.peers = make(map[domain.EndpointID]*peerLink)
	s.remoteTracks = make(map[domain.EndpointID][]*webrtc.TrackRemote)
	s.mu.Unlock()
	for _, link := range links {
		link.close()
	}
}

// PeerState reports the negotiation state for one remote endpoint.
func (s *Session) PeerState(remote domain.EndpointID) (NegotiationState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	link, ok := s.peers[remote]
	if !ok {
		return StateClosed, false
	}
	return link.state, true
}

// RemoteTracks returns the current inbound track map keyed by remote
// endpoint. The returned map is a private snapshot.
func (s *Session) RemoteTracks() map[domain.EndpointID][]*webrtc.TrackRemote {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remoteTracks
}

// --- TrackSink: local media mutations fanning out to all peers ---

// AttachTrack adds a new outbound source to every open connection.
// Connections gaining a sender of a previously absent kind will request
// renegotiation on their own.
func (s *Session) AttachTrack(slot core.SourceSlot, track webrtc.TrackLocal) {
	s.mu.Lock()
	s.localTracks[slot] = track
	delete(s.muted, slot)
	remotes := make([]domain.EndpointID, 0, len(s.peers))
	for id := range s.peers {
		remotes = append(remotes, id)
	}
	for _, id := range remotes {
		if err := s.peers[id].conn.AddTrack(slot, track); err != nil {
			log.Warn().Err(err).Str("module", "client.session").Str("peer", string(id)).Str("slot", slot.String()).Msg("add track failed")
		}
	}
	s.mu.Unlock()
}

// ReplaceTrack swaps the track on every peer's existing sender without
// renegotiating; peers lacking a sender for the slot get one added,
// which triggers renegotiation for them alone.
func (s *Session) ReplaceTrack(slot core.SourceSlot, track webrtc.TrackLocal) {
	s.mu.Lock()
	s.localTracks[slot] = track
	delete(s.muted, slot)
	for id, link := range s.peers {
		replaced, err := link.conn.ReplaceTrack(slot, track)
		if err != nil {
			log.Warn().Err(err).Str("module", "client.session").Str("peer", string(id)).Str("slot", slot.String()).Msg("replace track failed")
			continue
		}
		if !replaced {
			if err := link.conn.AddTrack(slot, track); err != nil {
				log.Warn().Err(err).Str("module", "client.session").Str("peer", string(id)).Str("slot", slot.String()).Msg("add track failed")
			}
		}
	}
	s.mu.Unlock()
}

// MuteTrack pauses the slot's outbound source on every existing sender
// without renegotiating. Peers that connect while the slot is muted get
// no sender for it; the next ReplaceTrack or AttachTrack restores the
// flow (and adds senders where missing).
func (s *Session) MuteTrack(slot core.SourceSlot) {
	s.mu.Lock()
	s.muted[slot] = true
	for id, link := range s.peers {
		if _, err := link.conn.ReplaceTrack(slot, nil); err != nil {
			log.Warn().Err(err).Str("module", "client.session").Str("peer", string(id)).Str("slot", slot.String()).Msg("mute track failed")
		}
	}
	s.mu.Unlock()
}

func (s *Session) DetachTrack(slot core.SourceSlot) {
	s.mu.Lock()
	delete(s.localTracks, slot)
	delete(s.muted, slot)
	for id, link := range s.peers {
		if err := link.conn.RemoveTrack(slot); err != nil {
			log.Warn().Err(err).Str("module", "client.session").Str("peer", string(id)).Str("slot", slot.String()).Msg("remove track failed")
		}
	}
	s.mu.Unlock()
}

// AnnounceTrackState publishes a mute/unmute change through the
// signaling layer instead of letting receivers poll track flags.
func (s *Session) AnnounceTrackState(kind string, enabled bool) {
	s.mu.Lock()
	roomID := s.roomID
	s.mu.Unlock()
	if roomID == "" {
		return
	}
	if err := s.transport.SendTrackState(roomID, kind, enabled); err != nil {
		log.Warn().Err(err).Str("module", "client.session").Msg("track-state send failed")
	}
}

var _ TrackSink = (*Session)(nil)
