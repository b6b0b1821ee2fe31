package client

import (
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/vidmesh/vidmesh/internal/core"
)

// TrackSink receives local media mutations and fans them out across
// the mesh. Implemented by Session; faked in tests.
type TrackSink interface {
	AttachTrack(slot core.SourceSlot, track webrtc.TrackLocal)
	ReplaceTrack(slot core.SourceSlot, track webrtc.TrackLocal)
	MuteTrack(slot core.SourceSlot)
	DetachTrack(slot core.SourceSlot)
	AnnounceTrackState(kind string, enabled bool)
}

// MediaState is a read-only snapshot of the local media flags.
type MediaState struct {
	VideoEnabled  bool
	AudioEnabled  bool
	ScreenSharing bool
}

// MediaController acquires and releases local capture sources and
// keeps the sink in step. An acquisition failure leaves every prior
// source untouched; the call simply proceeds without that media kind.
type MediaController struct {
	provider core.MediaProvider
	sink     TrackSink

	mu           sync.Mutex
	camera       core.MediaSource
	microphone   core.MediaSource
	screen       core.MediaSource
	videoEnabled bool
	audioEnabled bool
	sharing      bool
}

func NewMediaController(provider core.MediaProvider, sink TrackSink) *MediaController {
	return &MediaController{provider: provider, sink: sink}
}

// EnableCamera acquires the camera on first use (adding a sender on
// every open connection); after a disable it restores the paused track
// on every sender without renegotiating.
func (m *MediaController) EnableCamera() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.camera == nil {
		src, err := m.provider.Camera()
		if err != nil {
			return err
		}
		m.camera = src
		m.sink.AttachTrack(core.SlotCamera, src.Track())
	} else if !m.videoEnabled {
		m.sink.ReplaceTrack(core.SlotCamera, m.camera.Track())
	}
	if m.videoEnabled {
		return nil
	}
	m.videoEnabled = true
	m.sink.AnnounceTrackState("video", true)
	return nil
}

// DisableCamera pauses the outbound camera on every sender. The capture
// source stays acquired so re-enabling is a plain track swap.
func (m *MediaController) DisableCamera() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.videoEnabled {
		return
	}
	m.videoEnabled = false
	m.sink.MuteTrack(core.SlotCamera)
	m.sink.AnnounceTrackState("video", false)
}

func (m *MediaController) EnableMicrophone() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.microphone == nil {
		src, err := m.provider.Microphone()
		if err != nil {
			return err
		}
		m.microphone = src
		m.sink.AttachTrack(core.SlotMicrophone, src.Track())
	} else if !m.audioEnabled {
		m.sink.ReplaceTrack(core.SlotMicrophone, m.microphone.Track())
	}
	if m.audioEnabled {
		return nil
	}
	m.audioEnabled = true
	m.sink.AnnounceTrackState("audio", true)
	return nil
}

func (m *MediaController) DisableMicrophone() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.audioEnabled {
		return
	}
	m.audioEnabled = false
	m.sink.MuteTrack(core.SlotMicrophone)
	m.sink.AnnounceTrackState("audio", false)
}

// SwitchCamera re-acquires the camera (e.g. after a device change) and
// swaps the track on every open sender without renegotiating.
func (m *MediaController) SwitchCamera() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.camera == nil {
		return core.ErrDeviceUnavailable
	}
	src, err := m.provider.Camera()
	if err != nil {
		return err
	}
	old := m.camera
	m.camera = src
	// While disabled only the source swaps; the next enable sends the
	// new track.
	if m.videoEnabled {
		m.sink.ReplaceTrack(core.SlotCamera, src.Track())
	}
	if err := old.Close(); err != nil {
		log.Warn().Err(err).Str("module", "client.media").Msg("old camera close")
	}
	return nil
}

// StartScreenShare acquires the screen as a second video stream,
// coexisting with the camera. An OS-side "stop sharing" ends it the
// same way StopScreenShare does.
func (m *MediaController) StartScreenShare() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sharing {
		return nil
	}
	src, err := m.provider.Screen()
	if err != nil {
		return err
	}
	src.OnEnded(func() {
		log.Info().Str("module", "client.media").Msg("screen capture ended by source")
		m.StopScreenShare()
	})
	m.screen = src
	m.sharing = true
	m.sink.AttachTrack(core.SlotScreen, src.Track())
	return nil
}

func (m *MediaController) StopScreenShare() {
	m.mu.Lock()
	if !m.sharing {
		m.mu.Unlock()
		return
	}
	m.sharing = false
	src := m.screen
	m.screen = nil
	m.mu.Unlock()

	m.sink.DetachTrack(core.SlotScreen)
	if src != nil {
		if err := src.Close(); err != nil {
			log.Warn().Err(err).Str("module", "client.media").Msg("screen close")
		}
	}
}

func (m *MediaController) State() MediaState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MediaState{
		VideoEnabled:  m.videoEnabled,
		AudioEnabled:  m.audioEnabled,
		ScreenSharing: m.sharing,
	}
}

// Close releases every acquired source. Called on call end.
func (m *MediaController) Close() {
	m.StopScreenShare()
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, src := range []core.MediaSource{m.camera, m.microphone} {
		if src == nil {
			continue
		}
		if err := src.Close(); err != nil {
			log.Warn().Err(err).Str("module", "client.media").Msg("source close")
		}
	}
	m.camera, m.microphone = nil, nil
	m.videoEnabled, m.audioEnabled = false, false
}
