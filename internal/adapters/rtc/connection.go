// Package rtc implements core.MediaConnection on pion/webrtc.
package rtc

import (
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/vidmesh/vidmesh/internal/core"
	"github.com/vidmesh/vidmesh/internal/domain"
)

type Connection struct {
	pc     *webrtc.PeerConnection
	remote domain.EndpointID

	mu      sync.Mutex
	senders map[core.SourceSlot]*webrtc.RTPSender
	closed  bool

	onICE         func(webrtc.ICECandidateInit)
	onTrack       func(track *webrtc.TrackRemote)
	onNegotiation func()
	onClosed      func()
}

func ConfigWithSTUN(urls []string) webrtc.Configuration {
	if len(urls) == 0 {
		urls = []string{"stun:stun.l.google.com:19302"}
	}
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{{URLs: urls}},
	}
}

func NewConnection(cfg webrtc.Configuration, remote domain.EndpointID) (*Connection, error) {
	pc, err := webrtc.NewPeerConnection(cfg)
	if err != nil {
		return nil, err
	}
	return &Connection{
		pc:      pc,
		remote:  remote,
		senders: make(map[core.SourceSlot]*webrtc.RTPSender),
	}, nil
}

func (c *Connection) Start() error {
	c.pc.OnICEConnectionStateChange(func(s webrtc.ICEConnectionState) {
		log.Info().Str("module", "rtc").Str("remote", string(c.remote)).Str("ice_state", s.String()).Msg("ICE state")
	})

	c.pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		log.Info().Str("module", "rtc").Str("remote", string(c.remote)).Str("peer_state", s.String()).Msg("peer state")
		if s == webrtc.PeerConnectionStateFailed || s == webrtc.PeerConnectionStateClosed {
			c.mu.Lock()
			cb := c.onClosed
			c.mu.Unlock()
			if cb != nil {
				cb()
			}
		}
	})

	c.pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		c.mu.Lock()
		cb := c.onICE
		c.mu.Unlock()
		if cand != nil && cb != nil {
			cb(cand.ToJSON())
		}
	})

	c.pc.OnNegotiationNeeded(func() {
		c.mu.Lock()
		cb := c.onNegotiation
		c.mu.Unlock()
		if cb != nil {
			cb()
		}
	})

	c.pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		log.Info().
			Str("module", "rtc").
			Str("remote", string(c.remote)).
			Str("kind", track.Kind().String()).
			Str("stream_id", track.StreamID()).
			Msg("remote track")
		c.mu.Lock()
		cb := c.onTrack
		c.mu.Unlock()
		if cb != nil {
			cb(track)
		}
	})

	return nil
}

// CreateAndSetOffer produces a trickle-ICE offer; candidates follow via
// OnICECandidate as they are gathered.
func (c *Connection) CreateAndSetOffer() (webrtc.SessionDescription, error) {
	offer, err := c.pc.CreateOffer(nil)
	if err != nil {
		return webrtc.SessionDescription{}, err
	}
	if err := c.pc.SetLocalDescription(offer); err != nil {
		return webrtc.SessionDescription{}, err
	}
	return offer, nil
}

// ApplyOfferAndCreateAnswer answers a remote offer. A crossing
// renegotiation offer can arrive while our own offer is pending; the
// pending local offer is rolled back so the answer happens on this
// connection rather than a replacement one.
func (c *Connection) ApplyOfferAndCreateAnswer(offer webrtc.SessionDescription) (webrtc.SessionDescription, error) {
	if c.pc.SignalingState() == webrtc.SignalingStateHaveLocalOffer {
		rollback := webrtc.SessionDescription{Type: webrtc.SDPTypeRollback}
		if err := c.pc.SetLocalDescription(rollback); err != nil {
			return webrtc.SessionDescription{}, err
		}
	}
	if err := c.pc.SetRemoteDescription(offer); err != nil {
		return webrtc.SessionDescription{}, err
	}
	answer, err := c.pc.CreateAnswer(nil)
	if err != nil {
		return webrtc.SessionDescription{}, err
	}
	if err := c.pc.SetLocalDescription(answer); err != nil {
		return webrtc.SessionDescription{}, err
	}
	return answer, nil
}

func (c *Connection) ApplyAnswer(answer webrtc.SessionDescription) error {
	return c.pc.SetRemoteDescription(answer)
}

func (c *Connection) AddICECandidate(ci webrtc.ICECandidateInit) error {
	return c.pc.AddICECandidate(ci)
}

func (c *Connection) AddTrack(slot core.SourceSlot, track webrtc.TrackLocal) error {
	sender, err := c.pc.AddTrack(track)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.senders[slot] = sender
	c.mu.Unlock()
	return nil
}

func (c *Connection) ReplaceTrack(slot core.SourceSlot, track webrtc.TrackLocal) (bool, error) {
	c.mu.Lock()
	sender, ok := c.senders[slot]
	c.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := sender.ReplaceTrack(track); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Connection) RemoveTrack(slot core.SourceSlot) error {
	c.mu.Lock()
	sender, ok := c.senders[slot]
	if ok {
		delete(c.senders, slot)
	}
	c.mu.Unlock()
	if !ok {
		return nil
	}
	return c.pc.RemoveTrack(sender)
}

func (c *Connection) OnICECandidate(fn func(webrtc.ICECandidateInit)) {
	c.mu.Lock()
	c.onICE = fn
	c.mu.Unlock()
}

func (c *Connection) OnTrack(fn func(track *webrtc.TrackRemote)) {
	c.mu.Lock()
	c.onTrack = fn
	c.mu.Unlock()
}

func (c *Connection) OnNegotiationNeeded(fn func()) {
	c.mu.Lock()
	c.onNegotiation = fn
	c.mu.Unlock()
}

func (c *Connection) OnClosed(fn func()) {
	c.mu.Lock()
	c.onClosed = fn
	c.mu.Unlock()
}

func (c *Connection) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Connection) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()
	if err := c.pc.Close(); err != nil {
		log.Error().Err(err).Str("module", "rtc").Str("remote", string(c.remote)).Msg("close error")
	} else {
		log.Info().Str("module", "rtc").Str("remote", string(c.remote)).Msg("closed")
	}
}
