// Package devices backs core.MediaProvider with pion/mediadevices.
// The binary that uses it must blank-import the capture drivers it
// needs (camera, microphone, screen).
package devices

import (
	"fmt"
	"strings"

	"github.com/pion/mediadevices"
	"github.com/pion/mediadevices/pkg/codec/opus"
	"github.com/pion/mediadevices/pkg/codec/vpx"
	"github.com/pion/mediadevices/pkg/prop"
	"github.com/pion/webrtc/v4"

	"github.com/vidmesh/vidmesh/internal/core"
)

type Provider struct {
	codec *mediadevices.CodecSelector
}

func NewProvider() (*Provider, error) {
	vp8, err := vpx.NewVP8Params()
	if err != nil {
		return nil, err
	}
	vp8.BitRate = 500_000
	opusParams, err := opus.NewParams()
	if err != nil {
		return nil, err
	}
	selector := mediadevices.NewCodecSelector(
		mediadevices.WithVideoEncoders(&vp8),
		mediadevices.WithAudioEncoders(&opusParams),
	)
	return &Provider{codec: selector}, nil
}

func (p *Provider) Camera() (core.MediaSource, error) {
	stream, err := mediadevices.GetUserMedia(mediadevices.MediaStreamConstraints{
		Video: func(c *mediadevices.MediaTrackConstraints) {
			c.Width = prop.Int(640)
			c.Height = prop.Int(480)
		},
		Codec: p.codec,
	})
	if err != nil {
		return nil, classify(err)
	}
	return firstTrack(stream.GetVideoTracks())
}

func (p *Provider) Microphone() (core.MediaSource, error) {
	stream, err := mediadevices.GetUserMedia(mediadevices.MediaStreamConstraints{
		Audio: func(c *mediadevices.MediaTrackConstraints) {},
		Codec: p.codec,
	})
	if err != nil {
		return nil, classify(err)
	}
	return firstTrack(stream.GetAudioTracks())
}

func (p *Provider) Screen() (core.MediaSource, error) {
	stream, err := mediadevices.GetDisplayMedia(mediadevices.MediaStreamConstraints{
		Video: func(c *mediadevices.MediaTrackConstraints) {},
		Codec: p.codec,
	})
	if err != nil {
		return nil, classify(err)
	}
	return firstTrack(stream.GetVideoTracks())
}

func firstTrack(tracks []mediadevices.Track) (core.MediaSource, error) {
	if len(tracks) == 0 {
		return nil, fmt.Errorf("%w: no track in stream", core.ErrDeviceUnavailable)
	}
	return &source{track: tracks[0]}, nil
}

func classify(err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "permission") || strings.Contains(msg, "denied") {
		return fmt.Errorf("%w: %v", core.ErrPermissionDenied, err)
	}
	return fmt.Errorf("%w: %v", core.ErrDeviceUnavailable, err)
}

type source struct {
	track mediadevices.Track
}

func (s *source) Track() webrtc.TrackLocal { return s.track }

func (s *source) OnEnded(fn func()) {
	s.track.OnEnded(func(error) { fn() })
}

func (s *source) Close() error { return s.track.Close() }
