// Package proto defines the signaling wire protocol. Every message is a
// JSON object with a "type" discriminator; SDP and ICE payloads are
// carried as raw JSON the gateway never inspects.
package proto

import (
	"encoding/json"
	"fmt"

	"github.com/vidmesh/vidmesh/internal/domain"
)

type Type string

const (
	TypeJoinRoom         Type = "join-room"
	TypeLeaveRoom        Type = "leave-room"
	TypeWelcome          Type = "welcome"
	TypeRoomPeers        Type = "room-peers"
	TypePeerJoined       Type = "peer-joined"
	TypePeerDisconnected Type = "peer-disconnected"
	TypeOffer            Type = "offer"
	TypeAnswer           Type = "answer"
	TypeICECandidate     Type = "ice-candidate"
	TypeTrackState       Type = "track-state"
	TypeError            Type = "error"
	TypePing             Type = "ping"
	TypePong             Type = "pong"
)

// RelayKind is the closed set of message kinds the gateway forwards
// pairwise. One relay path handles all three; validation happens once.
type RelayKind Type

const (
	RelayOffer     = RelayKind(TypeOffer)
	RelayAnswer    = RelayKind(TypeAnswer)
	RelayCandidate = RelayKind(TypeICECandidate)
)

func (k RelayKind) Valid() bool {
	switch k {
	case RelayOffer, RelayAnswer, RelayCandidate:
		return true
	}
	return false
}

type Envelope struct {
	Type Type `json:"type"`
}

type PeerInfo struct {
	PeerID domain.EndpointID `json:"peerId"`
	UserID domain.UserID     `json:"userId"`
}

// --- client to server ---

type JoinRoom struct {
	Type   Type          `json:"type"`
	RoomID domain.RoomID `json:"roomId"`
}

type LeaveRoom struct {
	Type   Type          `json:"type"`
	RoomID domain.RoomID `json:"roomId"`
}

// RelayRequest is the common shape of offer/answer/ice-candidate
// requests. Exactly one of the payload fields is set, matching Type.
type RelayRequest struct {
	Type         Type              `json:"type"`
	RoomID       domain.RoomID     `json:"roomId"`
	TargetPeerID domain.EndpointID `json:"targetPeerId"`
	Offer        json.RawMessage   `json:"offer,omitempty"`
	Answer       json.RawMessage   `json:"answer,omitempty"`
	Candidate    json.RawMessage   `json:"candidate,omitempty"`
}

func (r *RelayRequest) Payload() json.RawMessage {
	switch RelayKind(r.Type) {
	case RelayOffer:
		return r.Offer
	case RelayAnswer:
		return r.Answer
	case RelayCandidate:
		return r.Candidate
	}
	return nil
}

func NewRelayRequest(kind RelayKind, roomID domain.RoomID, target domain.EndpointID, payload json.RawMessage) (RelayRequest, error) {
	r := RelayRequest{Type: Type(kind), RoomID: roomID, TargetPeerID: target}
	switch kind {
	case RelayOffer:
		r.Offer = payload
	case RelayAnswer:
		r.Answer = payload
	case RelayCandidate:
		r.Candidate = payload
	default:
		return r, fmt.Errorf("unknown relay kind %q", kind)
	}
	return r, nil
}

type TrackState struct {
	Type    Type          `json:"type"`
	RoomID  domain.RoomID `json:"roomId,omitempty"`
	Kind    string        `json:"kind"`
	Enabled bool          `json:"enabled"`
}

// --- server to client ---

type Welcome struct {
	Type   Type              `json:"type"`
	PeerID domain.EndpointID `json:"peerId"`
	UserID domain.UserID     `json:"userId"`
}

type RoomPeers struct {
	Type  Type       `json:"type"`
	Peers []PeerInfo `json:"peers"`
}

type PeerJoined struct {
	Type   Type              `json:"type"`
	PeerID domain.EndpointID `json:"peerId"`
	UserID domain.UserID     `json:"userId"`
}

type PeerDisconnected struct {
	Type   Type              `json:"type"`
	PeerID domain.EndpointID `json:"peerId"`
}

// RelayEvent is a relayed payload tagged with the sender's endpoint id
// so the receiver knows whom to reply to.
type RelayEvent struct {
	Type      Type              `json:"type"`
	PeerID    domain.EndpointID `json:"peerId"`
	Offer     json.RawMessage   `json:"offer,omitempty"`
	Answer    json.RawMessage   `json:"answer,omitempty"`
	Candidate json.RawMessage   `json:"candidate,omitempty"`
}

func (e *RelayEvent) Payload() json.RawMessage {
	switch RelayKind(e.Type) {
	case RelayOffer:
		return e.Offer
	case RelayAnswer:
		return e.Answer
	case RelayCandidate:
		return e.Candidate
	}
	return nil
}

func NewRelayEvent(kind RelayKind, sender domain.EndpointID, payload json.RawMessage) RelayEvent {
	e := RelayEvent{Type: Type(kind), PeerID: sender}
	switch kind {
	case RelayOffer:
		e.Offer = payload
	case RelayAnswer:
		e.Answer = payload
	case RelayCandidate:
		e.Candidate = payload
	}
	return e
}

type TrackStateEvent struct {
	Type    Type              `json:"type"`
	PeerID  domain.EndpointID `json:"peerId"`
	Kind    string            `json:"kind"`
	Enabled bool              `json:"enabled"`
}

type ErrorEvent struct {
	Type    Type   `json:"type"`
	Message string `json:"message"`
}

// ServerEvent is the decoded union of everything the server can send.
// Only the fields relevant to Type are populated.
type ServerEvent struct {
	Type    Type
	PeerID  domain.EndpointID
	UserID  domain.UserID
	Peers   []PeerInfo
	Payload json.RawMessage
	Kind    string
	Enabled bool
	Message string
}

// DecodeServerEvent parses one server frame into the union form the
// client session consumes.
func DecodeServerEvent(data []byte) (*ServerEvent, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	ev := &ServerEvent{Type: env.Type}
	switch env.Type {
	case TypeWelcome:
		var m Welcome
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		ev.PeerID, ev.UserID = m.PeerID, m.UserID
	case TypeRoomPeers:
		var m RoomPeers
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		ev.Peers = m.Peers
	case TypePeerJoined:
		var m PeerJoined
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		ev.PeerID, ev.UserID = m.PeerID, m.UserID
	case TypePeerDisconnected:
		var m PeerDisconnected
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		ev.PeerID = m.PeerID
	case TypeOffer, TypeAnswer, TypeICECandidate:
		var m RelayEvent
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		ev.PeerID, ev.Payload = m.PeerID, m.Payload()
	case TypeTrackState:
		var m TrackStateEvent
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		ev.PeerID, ev.Kind, ev.Enabled = m.PeerID, m.Kind, m.Enabled
	case TypeError:
		var m ErrorEvent
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		ev.Message = m.Message
	case TypePong:
	default:
		return nil, fmt.Errorf("unknown server event %q", env.Type)
	}
	return ev, nil
}
