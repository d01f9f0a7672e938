// Package gateway is the real-time channel: it binds websocket connections
// to rooms, replays history to joiners, and fans accepted comments out to
// every room member in durable append order.
package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/SaeKazamatsuri/BEAVER-server/pkg/session"
	"github.com/SaeKazamatsuri/BEAVER-server/pkg/stamp"
	"github.com/gorilla/websocket"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// Gateway accepts websocket connections and routes room events.
type Gateway struct {
	registry *session.Registry
	catalog  *stamp.Catalog
	hub      *Hub
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// Config holds gateway dependencies.
type Config struct {
	Registry *session.Registry
	Catalog  *stamp.Catalog
	Logger   zerolog.Logger
}

// New creates a gateway over the given registry and stamp catalog.
func New(cfg Config) *Gateway {
	return &Gateway{
		registry: cfg.Registry,
		catalog:  cfg.Catalog,
		hub:      NewHub(cfg.Logger),
		logger:   cfg.Logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Page and socket may be served from different origins.
			},
		},
	}
}

// Hub exposes the membership table, mainly for the status surface.
func (g *Gateway) Hub() *Hub {
	return g.hub
}

// HandleWebSocket upgrades the connection and starts serving it. A session
// query parameter joins the connection immediately, mirroring the page
// clients that identify their room at connect time.
func (g *Gateway) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Error().Err(err).Msg("Failed to upgrade connection")
		return
	}

	clientID, _ := gonanoid.New()
	client := newClient(clientID, conn)
	g.hub.Add(client)

	g.logger.Info().
		Str("clientId", clientID).
		Str("ip", r.RemoteAddr).
		Msg("Client connected")

	go client.writePump()

	if raw := r.URL.Query().Get("session"); raw != "" {
		g.join(client, raw)
	}

	go g.readLoop(client)
}

func (g *Gateway) readLoop(client *Client) {
	defer func() {
		g.hub.Remove(client)
		client.close()
		g.logger.Info().Str("clientId", client.ID).Msg("Client disconnected")
	}()

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				g.logger.Error().Err(err).Str("clientId", client.ID).Msg("WebSocket error")
			}
			return
		}
		g.handleEvent(client, data)
	}
}

func (g *Gateway) handleEvent(client *Client, data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		g.logger.Warn().Err(err).Str("clientId", client.ID).Msg("Unparseable frame, ignoring")
		return
	}

	switch env.Event {
	case EventJoin:
		var req JoinRequest
		if len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, &req); err != nil {
				g.logger.Warn().Err(err).Str("clientId", client.ID).Msg("Bad join payload, ignoring")
				return
			}
		}
		g.join(client, req.Session)

	case EventHistoryRequest:
		var req HistoryRequest
		if len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, &req); err != nil {
				g.logger.Warn().Err(err).Str("clientId", client.ID).Msg("Bad history payload, ignoring")
				return
			}
		}
		g.sendHistory(client, g.resolveKey(client, req.Session))

	case EventNewComment:
		var req CommentRequest
		if len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, &req); err != nil {
				g.logger.Warn().Err(err).Str("clientId", client.ID).Msg("Bad comment payload, ignoring")
				return
			}
		}
		g.submit(client, req)

	default:
		g.logger.Debug().Str("clientId", client.ID).Str("event", env.Event).Msg("Unknown event, ignoring")
	}
}

// resolveKey picks the session for an operation: the explicit name if
// supplied, else the connection's joined room, else the default key.
func (g *Gateway) resolveKey(client *Client, raw string) string {
	if raw != "" {
		return session.SanitizeKey(raw)
	}
	if client.room != "" {
		return client.room
	}
	return session.DefaultKey
}

// join binds the connection to its room and replays history to it alone.
// The binding is fixed for the connection lifetime: a repeat join only
// resends the bound room's history.
func (g *Gateway) join(client *Client, raw string) {
	key := session.SanitizeKey(raw)
	if client.room != "" {
		if key != client.room {
			g.logger.Warn().
				Str("clientId", client.ID).
				Str("room", client.room).
				Str("requested", key).
				Msg("Connection already joined, keeping existing room")
		}
		key = client.room
	} else {
		if _, err := g.registry.Ensure(key); err != nil {
			g.logger.Error().Err(err).Str("session", key).Msg("Failed to ensure session")
			return
		}
		g.hub.Join(client, key)
		client.room = key
		g.logger.Info().Str("clientId", client.ID).Str("room", key).Msg("Client joined room")
	}

	g.sendHistory(client, key)
}

// sendHistory delivers the room's full ordered history to one connection.
func (g *Gateway) sendHistory(client *Client, key string) {
	history, err := g.registry.History(key)
	if err != nil {
		g.logger.Error().Err(err).Str("session", key).Msg("Failed to load history")
		return
	}

	for i := range history {
		history[i] = g.decorate(history[i])
	}

	frame, err := marshalEvent(EventHistory, history)
	if err != nil {
		g.logger.Error().Err(err).Str("session", key).Msg("Failed to marshal history")
		return
	}

	if !client.enqueue(frame) && !client.isClosed() {
		g.logger.Warn().Str("clientId", client.ID).Msg("Client send buffer full, dropping connection")
		client.close()
	}
}

// submit validates, persists, and broadcasts one comment. A persistence
// failure drops the message silently from the client's point of view.
func (g *Gateway) submit(client *Client, req CommentRequest) {
	key := g.resolveKey(client, req.Session)

	msg := session.Message{
		Name:     req.Name,
		RealName: req.RealName,
		Text:     req.Text,
		Time:     time.Now().Format(session.TimeLayout),
		Stamp:    req.Stamp,
	}
	if msg.Name == "" {
		msg.Name = session.AnonymousName
	}
	if msg.Stamp != "" && !g.catalog.IsValid(msg.Stamp) {
		g.logger.Debug().
			Str("session", key).
			Str("stamp", msg.Stamp).
			Msg("Unknown stamp reference dropped")
		msg.Stamp = ""
	}

	// Delivery runs inside the registry's per-session critical section so
	// room members observe comments in exactly the order they were appended.
	_, err := g.registry.Append(key, msg, func(stored session.Message) {
		frame, merr := marshalEvent(EventNewComment, g.decorate(stored))
		if merr != nil {
			g.logger.Error().Err(merr).Str("session", key).Msg("Failed to marshal comment")
			return
		}
		g.hub.Broadcast(key, frame)
	})
	if err != nil {
		g.logger.Error().Err(err).Str("session", key).Msg("Comment dropped")
		return
	}

	g.logger.Info().
		Str("session", key).
		Str("name", msg.Name).
		Str("text", msg.Text).
		Msg("Comment relayed")
}

// decorate recomputes the derived stamp URL; it is never read from storage.
func (g *Gateway) decorate(msg session.Message) session.Message {
	if msg.Stamp != "" {
		msg.StampURL = g.catalog.URLFor(msg.Stamp)
	}
	return msg
}
