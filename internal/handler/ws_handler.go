package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/stemsi/roster-backend/internal/middleware"
	"github.com/stemsi/roster-backend/internal/response"
	"github.com/stemsi/roster-backend/internal/service"
	ws "github.com/stemsi/roster-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler pushes committed audit entries to connected admins.
type WSHandler struct {
	auditService *service.AuditService
	log          zerolog.Logger
	upgrader     websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(auditService *service.AuditService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		auditService: auditService,
		log:          log.With().Str("component", "ws_handler").Logger(),
		upgrader:     buildUpgrader(allowedOrigins),
	}
}

// AuditStream godoc
// WS /ws/v1/audit/stream
// Authorization happens before the upgrade so a guest gets a normal JSON 403.
func (h *WSHandler) AuditStream(c *gin.Context) {
	identity := middleware.GetIdentity(c)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	entries, err := h.auditService.Stream(ctx, identity)
	if err != nil {
		response.Error(c, h.log, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	log := h.log.With().Int("identity_id", identity.ID).Logger()
	log.Info().Msg("Audit stream connected")
	defer log.Info().Msg("Audit stream disconnected")

	go func() {
		_ = ws.KeepReading(conn)
		cancel()
	}()

	if err := ws.WriteTyped(conn, ws.HelloFrame{Event: ws.EventHello, Username: identity.Username}); err != nil {
		return
	}

	ticker := time.NewTicker(ws.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case entry, ok := <-entries:
			if !ok {
				_ = ws.WriteError(conn, "audit stream closed")
				return
			}
			if err := ws.WriteAudit(conn, entry); err != nil {
				log.Debug().Err(err).Msg("Audit frame write failed")
				return
			}
		case <-ticker.C:
			if err := ws.WritePing(conn); err != nil {
				return
			}
		}
	}
}
