package app

import "github.com/vidmesh/vidmesh/internal/domain"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	KickEndpoint
)

// Policy decides what happens to an endpoint whose send buffer is full.
type Policy interface {
	OnBackpressure(ep domain.EndpointID) BackpressureAction
}

// SimplePolicy drops the frame. A slow video-call participant loses a
// membership notification at worst; kicking it would tear down its
// whole mesh for a transient stall.
type SimplePolicy struct{}

func (SimplePolicy) OnBackpressure(domain.EndpointID) BackpressureAction {
	return DropFrame
}
