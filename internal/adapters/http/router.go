package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/vidmesh/vidmesh/internal/adapters/auth"
	"github.com/vidmesh/vidmesh/internal/adapters/signal"
	"github.com/vidmesh/vidmesh/internal/app"
	"github.com/vidmesh/vidmesh/internal/config"
	"github.com/vidmesh/vidmesh/internal/core"
	"github.com/vidmesh/vidmesh/internal/domain"
)

// SetupRouter wires HTTP routes (REST + WS) against the gateway. The
// notifier is the gateway's broadcast capability for non-signaling code
// paths (chat push).
func SetupRouter(ctx context.Context, cfg *config.Config, ctl *signal.Controller, gw *app.Gateway, issuer *auth.HMACVerifier, notifier core.RoomNotifier) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("VidmeshSessions", store))

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	api := r.Group("/api")

	// POST /api/auth/guest — mint a guest identity and its bearer token.
	// Real deployments replace this with the external auth service.
	api.POST("/auth/guest", func(c *gin.Context) {
		var req struct {
			Username string `json:"username"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
			return
		}
		user, err := domain.NewUser(req.Username)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		sess := sessions.Default(c)
		sess.Set("user_id", string(user.ID))
		sess.Set("username", user.Username)
		if err := sess.Save(); err != nil {
			log.Error().Err(err).Str("module", "adapters.http").Msg("session save")
		}
		c.JSON(http.StatusOK, gin.H{
			"user":  user,
			"token": issuer.Issue(user.ID),
		})
	})

	// GET /api/auth/me — session view.
	api.GET("/auth/me", func(c *gin.Context) {
		sess := sessions.Default(c)
		id, _ := sess.Get("user_id").(string)
		if id == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "no session"})
			return
		}
		name, _ := sess.Get("username").(string)
		c.JSON(http.StatusOK, domain.User{ID: domain.UserID(id), Username: name})
	})

	// GET /api/rooms — live signaling rooms (ephemeral presence, not the
	// persistent roster).
	api.GET("/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"rooms": gw.Presence().Snapshot()})
	})

	// GET /api/rooms/:id/peers — who is currently signed into a room.
	api.GET("/rooms/:id/peers", func(c *gin.Context) {
		roomID := domain.RoomID(c.Param("id"))
		c.JSON(http.StatusOK, gin.H{"peers": gw.Peers(roomID, "")})
	})

	// POST /api/rooms/:id/notify — push an out-of-band event (e.g. a
	// persisted chat message) to everyone signed into the room.
	api.POST("/rooms/:id/notify", func(c *gin.Context) {
		roomID := domain.RoomID(c.Param("id"))
		var body json.RawMessage
		if err := c.BindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
			return
		}
		notifier.NotifyRoom(roomID, body)
		c.Status(http.StatusAccepted)
	})

	api.GET("/ws/signal", func(c *gin.Context) {
		ctl.HandleSignal(ctx, c)
	})

	return r
}
