package client

import (
	"github.com/pion/webrtc/v4"

	"github.com/vidmesh/vidmesh/internal/core"
	"github.com/vidmesh/vidmesh/internal/domain"
)

type NegotiationState int

const (
	StateIdle NegotiationState = iota
	StateNegotiating
	StateConnected
	StateClosed
)

func (s NegotiationState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateNegotiating:
		return "negotiating"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// shouldOffer is the glare tiebreak: for any pair, the endpoint with
// the lexicographically larger id offers and the smaller one answers,
// so two simultaneous discoveries can never produce crossing offers
// that both get answered.
func shouldOffer(local, remote domain.EndpointID) bool {
	return local > remote
}

// peerLink is the per-remote-endpoint connection record. Fields are
// guarded by the owning session's mutex.
type peerLink struct {
	id   domain.EndpointID
	conn core.MediaConnection

	state          NegotiationState
	awaitingAnswer bool
	remoteSet      bool
	pending        []webrtc.ICECandidateInit
}

// addCandidate applies the candidate if the remote description is
// already set, otherwise queues it. Early candidates must not be
// dropped; they are flushed in arrival order by remoteReady.
func (p *peerLink) addCandidate(ci webrtc.ICECandidateInit) error {
	if !p.remoteSet {
		p.pending = append(p.pending, ci)
		return nil
	}
	return p.conn.AddICECandidate(ci)
}

// remoteReady marks the remote description set and flushes queued
// candidates in order.
func (p *peerLink) remoteReady() error {
	p.remoteSet = true
	for _, ci := range p.pending {
		if err := p.conn.AddICECandidate(ci); err != nil {
			return err
		}
	}
	p.pending = nil
	return nil
}

func (p *peerLink) close() {
	if p.state == StateClosed {
		return
	}
	p.state = StateClosed
	p.pending = nil
	p.conn.Close()
}
