package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"marketchat/internal/domain"
	"marketchat/internal/presence"
)

// eventTimeout bounds the store work done for a single inbound event.
const eventTimeout = 10 * time.Second

// Authenticator resolves the bearer token presented at upgrade.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.User, error)
}

type wsAuthError struct {
	status int
	msg    string
}

func (e wsAuthError) Error() string {
	return e.msg
}

// Gateway accepts socket connections, binds them to users and feeds their
// events to the relay.
type Gateway struct {
	hub         *Hub
	presence    *presence.Directory[*Client]
	relay       *Relay
	auth        Authenticator
	upgrader    websocket.Upgrader
	checkOrigin func(*http.Request) bool
	logger      *slog.Logger
}

func NewGateway(hub *Hub, dir *presence.Directory[*Client], relay *Relay, auth Authenticator, allowedOrigins []string, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	checkOrigin := makeCheckOrigin(allowedOrigins)
	return &Gateway{
		hub:         hub,
		presence:    dir,
		relay:       relay,
		auth:        auth,
		checkOrigin: checkOrigin,
		upgrader: websocket.Upgrader{
			CheckOrigin:  checkOrigin,
			Subprotocols: []string{"bearer"},
		},
		logger: logger,
	}
}

func normalizeAllowedOrigins(origins []string) map[string]struct{} {
	res := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		o := strings.TrimRight(strings.TrimSpace(strings.ToLower(origin)), "/")
		if o != "" {
			res[o] = struct{}{}
		}
	}
	return res
}

func makeCheckOrigin(allowedOrigins []string) func(r *http.Request) bool {
	allowed := normalizeAllowedOrigins(allowedOrigins)
	if _, wildcard := allowed["*"]; wildcard {
		return func(*http.Request) bool { return true }
	}

	return func(r *http.Request) bool {
		origin := strings.TrimSpace(strings.ToLower(r.Header.Get("Origin")))
		if origin == "" {
			// non-browser clients send no Origin
			return true
		}
		if _, ok := allowed[origin]; ok {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return false
		}
		_, ok := allowed[fmt.Sprintf("%s://%s", u.Scheme, u.Host)]
		return ok
	}
}

// extractToken looks for the credential in the Authorization header, the
// "bearer, <token>" subprotocol pair, then the token query parameter.
func extractToken(r *http.Request) (string, error) {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(authHeader) > len("bearer ") && strings.EqualFold(authHeader[:len("bearer ")], "bearer ") {
		if token := strings.TrimSpace(authHeader[len("bearer "):]); token != "" {
			return token, nil
		}
	}

	if protocolHeader := r.Header.Get("Sec-WebSocket-Protocol"); protocolHeader != "" {
		parts := strings.Split(protocolHeader, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if len(parts) >= 2 && strings.EqualFold(parts[0], "bearer") && parts[1] != "" {
			return parts[1], nil
		}
	}

	if token := strings.TrimSpace(r.URL.Query().Get("token")); token != "" {
		return token, nil
	}

	return "", wsAuthError{status: http.StatusUnauthorized, msg: "missing bearer token"}
}

// ServeHTTP upgrades an authenticated request and runs the connection until
// it closes.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !g.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	tokenStr, err := extractToken(r)
	if err != nil {
		authErr := err.(wsAuthError)
		http.Error(w, authErr.msg, authErr.status)
		return
	}
	user, err := g.auth.Authenticate(r.Context(), tokenStr)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Debug("upgrade failed", "error", err)
		return
	}

	c := newClient(conn, user.ID, g.logger)
	g.hub.Add(c)
	c.logger.Debug("connection opened")
	go c.writeLoop()

	defer g.disconnect(c)
	g.readLoop(c)
}

func (g *Gateway) readLoop(c *Client) {
	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("read failed", "error", err)
			}
			return
		}

		var in inbound
		if err := json.Unmarshal(data, &in); err != nil {
			g.relay.reject(c, "", CodeInvalidInput, "malformed event")
			continue
		}
		if err := g.relay.validateInbound(&in); err != nil {
			g.relay.reject(c, in.Type, CodeInvalidInput, err.Error())
			continue
		}

		if in.Type == EventIdentify {
			g.identify(c, &in)
			continue
		}
		if c.UserID() == 0 {
			g.relay.reject(c, in.Type, CodeUnauthorized, "identify first")
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
		g.relay.dispatch(ctx, c, &in)
		cancel()
	}
}

// identify binds the connection to the user its token was issued for. A
// user id that disagrees with the token is refused.
func (g *Gateway) identify(c *Client, in *inbound) {
	if in.UserID != 0 && in.UserID != c.authUserID {
		c.logger.Warn("identify with foreign user id refused", "claimed_user_id", in.UserID)
		g.relay.reject(c, in.Type, CodeUnauthorized, "user id does not match credentials")
		return
	}

	g.presence.Register(c.authUserID, c)
	c.identify(c.authUserID)
	c.logger.Info("user identified")

	g.hub.SendTo(c, identifiedEvent{Type: EventIdentified, UserID: c.authUserID})
	g.hub.BroadcastAll(presenceEvent{Type: EventUserOnline, UserID: c.authUserID})
}

func (g *Gateway) disconnect(c *Client) {
	g.hub.Remove(c)
	c.Close()
	if userID, removed := g.presence.Unregister(c); removed {
		g.hub.BroadcastAll(presenceEvent{Type: EventUserOffline, UserID: userID})
	}
	c.logger.Debug("connection closed")
}
