package ws

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"public-chat/internal/auth"
	"public-chat/internal/observability"
)

// TokenValidator parses optional session tokens on the handshake.
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// RealtimeHandler serves GET /v1/realtime. Reads are public; a token only
// attaches an identity to the connection.
type RealtimeHandler struct {
	hub    *Hub
	tokens TokenValidator
}

// NewRealtimeHandler constructs a RealtimeHandler.
func NewRealtimeHandler(hub *Hub, tokens TokenValidator) *RealtimeHandler {
	return &RealtimeHandler{hub: hub, tokens: tokens}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection and registers it on the requested channels.
func (h *RealtimeHandler) Handle(c *gin.Context) {
	channels := uniqueChannels(c.QueryArray("channels[]"))
	if len(channels) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing channels"})
		return
	}

	ctx, span := otel.Tracer("chatd/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	span.SetAttributes(attribute.StringSlice("realtime.channels", channels))
	c.Request = c.Request.WithContext(ctx)

	userID, ok := h.identify(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		Project:     c.Query("project"),
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     observability.TraceID(ctx),
		ConnectedAt: time.Now(),
	}
	sub := NewSubscriber(conn, info, channels)
	h.hub.Add(sub)

	observability.IncWSActive()
	publishWSEvent(ctx, "ws_connect", info, "")

	// Clients never send frames we act on; reading detects the close.
	go func() {
		var closeReason string
		defer func() {
			h.hub.Remove(sub)
			observability.DecWSActive()
			publishWSEvent(ctx, "ws_disconnect", info, closeReason)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				closeReason = err.Error()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					publishWSEvent(ctx, "ws_error", info, closeReason)
				}
				return
			}
		}
	}()
}

// identify returns the token's user, "" for anonymous, or false for a bad token.
func (h *RealtimeHandler) identify(c *gin.Context) (string, bool) {
	token := c.Query("token")
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return "", false
		}
		token = parts[1]
	}
	if token == "" || h.tokens == nil {
		return "", true
	}
	claims, err := h.tokens.Validate(token)
	if err != nil {
		return "", false
	}
	return claims.Subject, true
}

func uniqueChannels(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, ch := range raw {
		ch = strings.TrimSpace(ch)
		if ch == "" {
			continue
		}
		if _, ok := seen[ch]; ok {
			continue
		}
		seen[ch] = struct{}{}
		out = append(out, ch)
	}
	return out
}
