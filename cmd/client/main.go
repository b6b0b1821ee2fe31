// Headless call client: joins a room, publishes camera and microphone,
// and logs the remote tracks it receives. Useful for soak-testing a
// mesh without a browser.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	// Capture drivers register themselves on import.
	_ "github.com/pion/mediadevices/pkg/driver/camera"
	_ "github.com/pion/mediadevices/pkg/driver/microphone"
	_ "github.com/pion/mediadevices/pkg/driver/screen"

	"github.com/vidmesh/vidmesh/internal/adapters/auth"
	"github.com/vidmesh/vidmesh/internal/adapters/rtc"
	"github.com/vidmesh/vidmesh/internal/client"
	"github.com/vidmesh/vidmesh/internal/client/devices"
	"github.com/vidmesh/vidmesh/internal/core"
	"github.com/vidmesh/vidmesh/internal/domain"
)

func main() {
	var (
		server = flag.String("server", "ws://localhost:8080/api/ws/signal", "signal endpoint URL")
		room   = flag.String("room", "lobby", "room id to join")
		user   = flag.String("user", "headless", "user id to authenticate as")
		token  = flag.String("token", "", "bearer token (overrides -secret)")
		secret = flag.String("secret", "", "shared secret to self-issue a token")
		stun   = flag.String("stun", "stun:stun.l.google.com:19302", "comma-separated STUN URLs")
		video  = flag.Bool("video", true, "publish camera")
		audio  = flag.Bool("audio", true, "publish microphone")
	)
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cred := *token
	if cred == "" {
		if *secret == "" {
			log.Fatal().Msg("either -token or -secret is required")
		}
		cred = auth.NewHMACVerifier(*secret).Issue(domain.UserID(*user))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	transport, err := client.Dial(ctx, *server, cred)
	if err != nil {
		log.Fatal().Err(err).Msg("dial signal endpoint")
	}
	defer transport.Close()

	rtcConfig := rtc.ConfigWithSTUN(strings.Split(*stun, ","))
	factory := func(remote domain.EndpointID) (core.MediaConnection, error) {
		return rtc.NewConnection(rtcConfig, remote)
	}

	session := client.NewSession(transport, factory, client.Callbacks{
		OnRemoteTrack: func(peer domain.EndpointID, track *webrtc.TrackRemote) {
			log.Info().Str("peer", string(peer)).Str("kind", track.Kind().String()).Msg("remote track")
		},
		OnPeerLeft: func(peer domain.EndpointID) {
			log.Info().Str("peer", string(peer)).Msg("peer left")
		},
		OnPeerTrackState: func(peer domain.EndpointID, kind string, enabled bool) {
			log.Info().Str("peer", string(peer)).Str("kind", kind).Bool("enabled", enabled).Msg("peer track state")
		},
		OnError: func(message string) {
			log.Warn().Str("message", message).Msg("gateway error")
		},
	})
	go session.Run()

	if err := session.JoinRoom(domain.RoomID(*room)); err != nil {
		log.Fatal().Err(err).Msg("join room")
	}

	provider, err := devices.NewProvider()
	if err != nil {
		log.Fatal().Err(err).Msg("codec setup")
	}
	media := client.NewMediaController(provider, session)
	defer media.Close()

	// Acquisition failures leave us receive-only; the call still proceeds.
	if *video {
		if err := media.EnableCamera(); err != nil && !core.IsMediaAcquisition(err) {
			log.Fatal().Err(err).Msg("camera setup")
		} else if err != nil {
			log.Warn().Err(err).Msg("camera unavailable, continuing without video")
		}
	}
	if *audio {
		if err := media.EnableMicrophone(); err != nil && !core.IsMediaAcquisition(err) {
			log.Fatal().Err(err).Msg("microphone setup")
		} else if err != nil {
			log.Warn().Err(err).Msg("microphone unavailable, continuing without audio")
		}
	}

	<-ctx.Done()
	log.Info().Msg("leaving room")
	session.LeaveRoom()
}
