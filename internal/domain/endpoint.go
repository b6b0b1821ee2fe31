package domain

import "github.com/google/uuid"

// EndpointID identifies one live signaling connection. It is assigned by
// the gateway on upgrade and never reused; a reconnecting client gets a
// fresh one.
type EndpointID string

func NewEndpointID() EndpointID {
	return EndpointID(uuid.NewString())
}
