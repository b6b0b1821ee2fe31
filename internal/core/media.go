package core

import "github.com/pion/webrtc/v4"

// SourceSlot names a logical outbound media source. Camera and screen
// are independent slots so both video streams can be sent at once.
type SourceSlot int

const (
	SlotCamera SourceSlot = iota
	SlotMicrophone
	SlotScreen
)

func (s SourceSlot) String() string {
	switch s {
	case SlotCamera:
		return "camera"
	case SlotMicrophone:
		return "microphone"
	case SlotScreen:
		return "screen"
	}
	return "unknown"
}

// Kind maps a slot onto the wire-level track kind used by track-state
// events and by replaceTrack compatibility checks.
func (s SourceSlot) Kind() string {
	if s == SlotMicrophone {
		return "audio"
	}
	return "video"
}

// MediaConnection is one peer connection to one remote endpoint.
// Implemented on pion in adapters/rtc; faked in tests.
type MediaConnection interface {
	// Start configures internal callbacks. Set the On* hooks before calling it.
	Start() error
	Close()
	IsClosed() bool

	CreateAndSetOffer() (webrtc.SessionDescription, error)
	ApplyOfferAndCreateAnswer(webrtc.SessionDescription) (webrtc.SessionDescription, error)
	ApplyAnswer(webrtc.SessionDescription) error
	AddICECandidate(webrtc.ICECandidateInit) error

	// AddTrack attaches a local track under a slot. Adding a slot that had
	// no sender yet makes the connection require renegotiation.
	AddTrack(slot SourceSlot, track webrtc.TrackLocal) error
	// ReplaceTrack swaps the track on the slot's existing sender without
	// renegotiating. Returns false when the slot has no sender yet.
	ReplaceTrack(slot SourceSlot, track webrtc.TrackLocal) (bool, error)
	RemoveTrack(slot SourceSlot) error

	OnICECandidate(func(webrtc.ICECandidateInit))
	OnTrack(func(track *webrtc.TrackRemote))
	OnNegotiationNeeded(func())
	OnClosed(func())
}

// MediaSource is one acquired local capture source.
type MediaSource interface {
	Track() webrtc.TrackLocal
	// OnEnded fires when the source stops outside our control, e.g. the
	// OS-level "stop sharing" affordance.
	OnEnded(func())
	Close() error
}

// MediaProvider acquires capture sources. The devices adapter backs it
// with pion/mediadevices; tests use fakes.
type MediaProvider interface {
	Camera() (MediaSource, error)
	Microphone() (MediaSource, error)
	Screen() (MediaSource, error)
}
