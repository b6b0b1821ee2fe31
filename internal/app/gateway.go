package app

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/vidmesh/vidmesh/internal/core"
	"github.com/vidmesh/vidmesh/internal/domain"
	"github.com/vidmesh/vidmesh/internal/proto"
)

// Gateway brokers signaling between endpoints: membership bookkeeping
// via Presence, pairwise relays, and room-wide event fan-out. It is
// never on the media path.
//
// Relay errors are returned to the caller; the signal adapter turns
// them into an error event for the offending endpoint only. Nothing
// here ever terminates a connection or affects other endpoints.
type Gateway struct {
	presence *Presence
	policy   Policy

	mu    sync.RWMutex
	conns map[domain.EndpointID]core.SignalConnection
}

func NewGateway(presence *Presence, policy Policy) *Gateway {
	return &Gateway{
		presence: presence,
		policy:   policy,
		conns:    make(map[domain.EndpointID]core.SignalConnection),
	}
}

func (g *Gateway) Presence() *Presence { return g.presence }

// Connect registers an authenticated endpoint and tells it its own id.
func (g *Gateway) Connect(ep domain.EndpointID, userID domain.UserID, conn core.SignalConnection) {
	g.mu.Lock()
	g.conns[ep] = conn
	g.mu.Unlock()
	g.presence.SetUser(ep, userID)
	log.Info().Str("module", "app.gateway").Str("ep", string(ep)).Str("user", string(userID)).Msg("endpoint connected")
	g.unicast(ep, proto.Welcome{Type: proto.TypeWelcome, PeerID: ep, UserID: userID})
}

func (g *Gateway) connOf(ep domain.EndpointID) (core.SignalConnection, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	c, ok := g.conns[ep]
	return c, ok
}

// Join adds ep to the room and notifies both sides of the membership
// change. Joining twice is a no-op apart from resending the member
// list, which supports client retry logic.
func (g *Gateway) Join(ep domain.EndpointID, roomID domain.RoomID) error {
	userID, ok := g.presence.UserOf(ep)
	if !ok {
		return core.ErrUnauthorized
	}
	if err := domain.ValidateRoomID(roomID); err != nil {
		return err
	}

	added := g.presence.AddMember(roomID, ep)
	g.unicast(ep, proto.RoomPeers{Type: proto.TypeRoomPeers, Peers: g.Peers(roomID, ep)})
	if added {
		g.broadcast(roomID, proto.PeerJoined{Type: proto.TypePeerJoined, PeerID: ep, UserID: userID}, ep)
		log.Info().Str("module", "app.gateway").Str("ep", string(ep)).Str("room", string(roomID)).Msg("joined room")
	}
	return nil
}

// Leave removes ep from the room. Not being a member is routine (a
// client that never fully joined disconnecting) and not an error.
func (g *Gateway) Leave(ep domain.EndpointID, roomID domain.RoomID) {
	if !g.presence.RemoveMember(roomID, ep) {
		return
	}
	g.broadcast(roomID, proto.PeerDisconnected{Type: proto.TypePeerDisconnected, PeerID: ep}, ep)
	log.Info().Str("module", "app.gateway").Str("ep", string(ep)).Str("room", string(roomID)).Msg("left room")
}

// Relay forwards one offer/answer/candidate payload to exactly one
// target, tagged with the sender id. Validation order: self-target,
// target connected, same room.
func (g *Gateway) Relay(kind proto.RelayKind, sender domain.EndpointID, roomID domain.RoomID, target domain.EndpointID, payload json.RawMessage) error {
	if !kind.Valid() {
		return core.ErrInvalidTarget
	}
	if target == sender {
		return core.ErrInvalidTarget
	}
	conn, ok := g.connOf(target)
	if !ok {
		return core.ErrTargetNotFound
	}
	if !g.presence.IsMember(roomID, sender) || !g.presence.IsMember(roomID, target) {
		return core.ErrNotInSameRoom
	}

	frame, err := json.Marshal(proto.NewRelayEvent(kind, sender, payload))
	if err != nil {
		return err
	}
	if err := conn.TrySend(core.Frame(frame)); err != nil {
		// The target raced us into disconnect; fail soft toward the sender.
		log.Warn().Err(err).Str("module", "app.gateway").Str("target", string(target)).Msg("relay send failed")
		return core.ErrTargetNotFound
	}
	return nil
}

// TrackState broadcasts a local mute/unmute or track swap announcement
// to the rest of the room, so receivers never poll track flags.
func (g *Gateway) TrackState(sender domain.EndpointID, roomID domain.RoomID, kind string, enabled bool) error {
	if !g.presence.IsMember(roomID, sender) {
		return core.ErrNotInSameRoom
	}
	g.broadcast(roomID, proto.TrackStateEvent{Type: proto.TypeTrackState, PeerID: sender, Kind: kind, Enabled: enabled}, sender)
	return nil
}

// NotifyRoom implements core.RoomNotifier for collaborators outside the
// signaling path (chat push, admin HTTP).
func (g *Gateway) NotifyRoom(roomID domain.RoomID, event any) {
	g.broadcast(roomID, event, "")
}

// Disconnect performs the equivalent of Leave for every room the
// endpoint belonged to, then forgets it. Safe to call for endpoints
// that joined nothing, and idempotent.
func (g *Gateway) Disconnect(ep domain.EndpointID) {
	rooms := g.presence.DropEndpoint(ep)
	for _, roomID := range rooms {
		g.broadcast(roomID, proto.PeerDisconnected{Type: proto.TypePeerDisconnected, PeerID: ep}, ep)
	}
	g.mu.Lock()
	delete(g.conns, ep)
	g.mu.Unlock()
	if len(rooms) > 0 {
		log.Info().Str("module", "app.gateway").Str("ep", string(ep)).Int("rooms", len(rooms)).Msg("endpoint disconnected")
	}
}

// Peers lists the room's members as {peerId, userId} pairs, excluding
// the given endpoint.
func (g *Gateway) Peers(roomID domain.RoomID, exclude domain.EndpointID) []proto.PeerInfo {
	members := g.presence.MembersOf(roomID)
	out := make([]proto.PeerInfo, 0, len(members))
	for _, ep := range members {
		if ep == exclude {
			continue
		}
		userID, _ := g.presence.UserOf(ep)
		out = append(out, proto.PeerInfo{PeerID: ep, UserID: userID})
	}
	return out
}

func (g *Gateway) unicast(ep domain.EndpointID, event any) {
	conn, ok := g.connOf(ep)
	if !ok {
		return
	}
	frame, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("module", "app.gateway").Msg("unicast marshal")
		return
	}
	g.deliver(ep, conn, core.Frame(frame))
}

func (g *Gateway) broadcast(roomID domain.RoomID, event any, exclude domain.EndpointID) {
	frame, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("module", "app.gateway").Msg("broadcast marshal")
		return
	}
	for _, ep := range g.presence.MembersOf(roomID) {
		if ep == exclude {
			continue
		}
		if conn, ok := g.connOf(ep); ok {
			g.deliver(ep, conn, core.Frame(frame))
		}
	}
}

func (g *Gateway) deliver(ep domain.EndpointID, conn core.SignalConnection, frame core.Frame) {
	if err := conn.TrySend(frame); err == nil {
		return
	}
	if g.policy == nil {
		return
	}
	switch g.policy.OnBackpressure(ep) {
	case KickEndpoint:
		log.Warn().Str("module", "app.gateway").Str("ep", string(ep)).Msg("kicking slow endpoint")
		conn.Close()
		g.Disconnect(ep)
	case DropFrame, NoAction:
		log.Debug().Str("module", "app.gateway").Str("ep", string(ep)).Msg("frame dropped on backpressure")
	}
}
