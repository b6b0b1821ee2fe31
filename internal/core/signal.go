package core

import "github.com/vidmesh/vidmesh/internal/domain"

// Frame is a raw wire payload, already marshalled.
type Frame []byte

// SignalConnection abstracts a signaling transport endpoint.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// TokenVerifier resolves an opaque bearer credential into a user id.
// Credential issuance lives outside this system.
type TokenVerifier interface {
	Verify(token string) (domain.UserID, error)
}

// RoomNotifier is the gateway's broadcast capability, passed explicitly
// to collaborators (chat push, admin HTTP).
type RoomNotifier interface {
	NotifyRoom(roomID domain.RoomID, event any)
}
