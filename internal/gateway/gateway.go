// Package gateway owns the websocket edge: upgrade, first-frame JWT auth,
// room membership bookkeeping and dispatch of real-time events into the
// routing service.
package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/carvalholeo/sistema-caronas-sub000/internal/contextx"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/domain/user"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/jwt"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/logger"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/ports"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/routing"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Gateway handles websocket connections with JWT auth.
type Gateway struct {
	log    *logger.Logger
	jwtMgr *jwt.Manager
	rides  ports.RideLifecycle
	router *routing.Service
	rooms  *Rooms
}

func New(log *logger.Logger, jwtMgr *jwt.Manager, rides ports.RideLifecycle, router *routing.Service, rooms *Rooms) *Gateway {
	return &Gateway{
		log:    log,
		jwtMgr: jwtMgr,
		rides:  rides,
		router: router,
		rooms:  rooms,
	}
}

// HandleWS upgrades the request and runs the connection until the peer
// disconnects. The first frame must be the auth message; no other event is
// processed before it succeeds.
func (g *Gateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Error(r.Context(), "websocket_upgrade_failed", "Failed to upgrade to WebSocket", err, nil)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(1 << 20) // 1 MiB
	if err := conn.SetReadDeadline(time.Now().Add(10 * time.Second)); err != nil {
		g.log.Error(r.Context(), "ws_set_deadline_failed", "Failed to set initial read deadline", err, nil)
		return
	}

	c, ok := g.authenticate(r.Context(), conn)
	if !ok {
		return
	}

	g.rooms.register(c)
	defer g.teardown(c)

	g.log.Info(r.Context(), "ws_connected", "WebSocket connected", map[string]any{
		"user_id": c.userID,
		"conn_id": c.id,
	})

	_ = conn.SetReadDeadline(time.Now().Add(wsReadWindow))
	conn.SetPongHandler(func(_ string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadWindow))
	})

	// ping loop keeps half-open connections from lingering
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := c.ping(); err != nil {
					_ = conn.Close()
					return
				}
			}
		}
	}()

	g.readLoop(r.Context(), c)
}

// authenticate reads and validates the first frame. On failure an
// auth_error message is sent and the connection is dropped.
func (g *Gateway) authenticate(ctx context.Context, conn *websocket.Conn) (*client, bool) {
	mt, first, err := conn.ReadMessage()
	if err != nil {
		g.log.Error(ctx, "ws_auth_read_failed", "Failed to read auth message", err, nil)
		return nil, false
	}
	if mt != websocket.TextMessage {
		g.sendAuthError(conn, "auth message must be in text format")
		return nil, false
	}

	identity, err := jwt.ValidateWSAuth(first, g.jwtMgr)
	if err != nil {
		g.log.Error(ctx, "ws_auth_failed", "Invalid auth message or token", err, nil)
		g.sendAuthError(conn, "authentication failed: invalid token")
		return nil, false
	}

	c := &client{
		id:           uuid.NewString(),
		userID:       identity.UserID,
		capabilities: identity.Capabilities,
		conn:         conn,
	}

	if err := c.sendJSON(map[string]any{
		"type":      "auth_success",
		"message":   "Authentication successful",
		"success":   true,
		"user_id":   c.userID,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		g.log.Error(ctx, "ws_auth_success_failed", "Failed to send auth success message", err, nil)
		return nil, false
	}
	return c, true
}

func (g *Gateway) sendAuthError(conn *websocket.Conn, message string) {
	payload, _ := json.Marshal(map[string]any{
		"type":    "auth_error",
		"error":   message,
		"success": false,
	})
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	_ = conn.WriteMessage(websocket.TextMessage, payload)
}

func (g *Gateway) readLoop(ctx context.Context, c *client) {
	for {
		_ = c.conn.SetReadDeadline(time.Now().Add(wsReadWindow))
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				g.log.Error(ctx, "ws_unexpected_close", "Connection closed unexpectedly", err, map[string]any{
					"user_id": c.userID,
				})
				c.writeClose(websocket.CloseInternalServerErr, "internal error")
			} else {
				g.log.Info(ctx, "ws_connection_closed", "Connection closed normally", map[string]any{
					"user_id": c.userID,
				})
				c.writeClose(websocket.CloseNormalClosure, "bye")
			}
			return
		}

		var raw struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(payload, &raw); err != nil {
			g.sendError(c, "bad json")
			continue
		}

		evCtx := contextx.WithNewRequestID(ctx)
		switch raw.Type {
		case routing.EventJoinRoom:
			g.handleJoin(evCtx, c, raw.Data)
		case routing.EventStartSharing:
			g.handleSharing(evCtx, c, raw.Data, true)
		case routing.EventStopSharing:
			g.handleSharing(evCtx, c, raw.Data, false)
		case routing.EventUpdateLocation:
			g.handleUpdate(evCtx, c, raw.Data)
		default:
			g.sendError(c, "unknown event type")
		}
	}
}

func (g *Gateway) handleJoin(ctx context.Context, c *client, data json.RawMessage) {
	var req routing.RoomRequest
	if err := json.Unmarshal(data, &req); err != nil || req.RideID == "" {
		g.sendError(c, "bad join payload")
		return
	}
	ctx = contextx.WithRideID(ctx, req.RideID)

	if err := g.rides.AuthorizeRoomJoin(ctx, req.RideID, c.userID); err != nil {
		g.log.Info(ctx, "room_join_denied", "Room join refused", map[string]any{
			"user_id": c.userID,
		})
		g.sendError(c, "not authorized to join this ride's room")
		return
	}

	room := routing.RoomName(req.RideID)
	g.rooms.Join(room, c.id)
	_ = c.sendJSON(routing.Event{Type: routing.EventJoinedRoom, Data: routing.RoomRequest{RideID: req.RideID}})

	// replay cached markers so the joiner starts with a populated map
	g.router.SeedJoin(ctx, req.RideID, c.id, c.userID)

	g.log.Info(ctx, "room_joined", "Connection joined ride room", map[string]any{
		"user_id": c.userID,
		"room":    room,
	})
}

func (g *Gateway) handleSharing(ctx context.Context, c *client, data json.RawMessage, start bool) {
	var req routing.RoomRequest
	if err := json.Unmarshal(data, &req); err != nil || req.RideID == "" {
		g.sendError(c, "bad sharing payload")
		return
	}
	if !c.capabilities.Has(user.CapLocationShare) {
		g.sendError(c, "missing location sharing permission")
		return
	}
	ctx = contextx.WithRideID(ctx, req.RideID)

	var err error
	if start {
		err = g.router.StartSharing(ctx, req.RideID, c.userID)
	} else {
		err = g.router.StopSharing(ctx, req.RideID, c.userID)
	}
	if err != nil {
		g.log.Error(ctx, "sharing_marker_failed", "Failed to record sharing marker", err, map[string]any{
			"user_id": c.userID,
		})
		g.sendError(c, "failed to record sharing state")
	}
}

func (g *Gateway) handleUpdate(ctx context.Context, c *client, data json.RawMessage) {
	var req routing.PositionUpdate
	if err := json.Unmarshal(data, &req); err != nil || req.RideID == "" {
		g.sendError(c, "bad location payload")
		return
	}
	if !c.capabilities.Has(user.CapLocationUpdate) {
		g.sendError(c, "missing location update permission")
		return
	}
	if req.Latitude < -90 || req.Latitude > 90 || req.Longitude < -180 || req.Longitude > 180 {
		g.sendError(c, "coordinates out of range")
		return
	}
	ctx = contextx.WithRideID(ctx, req.RideID)

	if err := g.router.Route(ctx, c.id, c.userID, req.RideID, req.Latitude, req.Longitude); err != nil {
		g.log.Error(ctx, "location_route_failed", "Failed to route location update", err, map[string]any{
			"user_id": c.userID,
		})
	}
}

// teardown leaves every room the connection joined and tells the remaining
// members to retire the participant's marker.
func (g *Gateway) teardown(c *client) {
	ctx := context.Background()
	rooms := g.rooms.unregister(c.id)
	for _, room := range rooms {
		rideID := strings.TrimPrefix(room, "ride-location-")
		g.router.ForgetPosition(ctx, rideID, c.userID)

		removed := routing.Event{Type: routing.EventParticipantRemoved, Data: routing.ParticipantRemoved{UserID: c.userID}}
		for _, member := range g.rooms.Members(room) {
			_ = g.rooms.Send(member.ConnID, removed)
		}
	}

	g.log.Info(ctx, "ws_disconnected", "WebSocket disconnected", map[string]any{
		"user_id": c.userID,
		"conn_id": c.id,
	})
}

func (g *Gateway) sendError(c *client, message string) {
	_ = c.sendJSON(routing.Event{Type: routing.EventLocationError, Data: routing.Notice{Message: message}})
}
