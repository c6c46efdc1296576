package handlers

import (
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/roadwatch/roadwatch-api/models"
)

// WebSocket upgrader
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Adjust CORS as needed, e.g., check r.Header.Get("Origin")
	},
}

type wsClient struct {
	conn     *websocket.Conn
	userID   string
	channels map[string]bool
}

// BroadcastHub tracks connected dashboard clients (conn -> client state).
// Channel joins are recorded but delivery is intentionally unscoped:
// every event goes to every connected client and clients filter locally
// by comparing payload identifiers against their own context.
type BroadcastHub struct {
	clients map[*websocket.Conn]*wsClient
	mutex   sync.Mutex
}

var hub = &BroadcastHub{
	clients: make(map[*websocket.Conn]*wsClient),
}

type wsInbound struct {
	Event   string `json:"event"`
	Channel string `json:"channel"`
}

type wsOutbound struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// HandleEventsWebSocket upgrades the connection and keeps the client
// registered with the hub until it disconnects. Clients may send
// join_channel / leave_channel messages to record channel membership.
func HandleEventsWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().Errorf("websocket upgrade error: %v", err)
		return
	}

	userID := r.URL.Query().Get("userId")
	if userID == "" {
		conn.Close()
		return
	}

	client := &wsClient{conn: conn, userID: userID, channels: make(map[string]bool)}
	hub.mutex.Lock()
	hub.clients[conn] = client
	hub.mutex.Unlock()
	zap.S().Debugf("user %s connected to /ws", userID)

	for {
		var msg wsInbound
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		switch msg.Event {
		case "join_channel":
			if validChannel(msg.Channel) {
				hub.mutex.Lock()
				client.channels[msg.Channel] = true
				hub.mutex.Unlock()
				zap.S().Debugf("user %s joined channel %s", userID, msg.Channel)
			} else {
				zap.S().Debugf("user %s asked to join unknown channel %q", userID, msg.Channel)
			}
		case "leave_channel":
			hub.mutex.Lock()
			delete(client.channels, msg.Channel)
			hub.mutex.Unlock()
		}
	}

	hub.mutex.Lock()
	delete(hub.clients, conn)
	hub.mutex.Unlock()
	conn.Close()
	zap.S().Debugf("user %s disconnected from /ws", userID)
}

// validChannel reports whether a join request names a channel the hub
// recognizes: the admin dashboard channel or a per-report channel
func validChannel(channel string) bool {
	return channel == models.ChannelAdmin || strings.HasPrefix(channel, "report:")
}

// Broadcast delivers a typed event to all connected clients. Delivery
// is best-effort, at-most-once: a client that cannot be written to is
// dropped and must converge via its own re-fetch.
func Broadcast(topic string, data interface{}) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()

	for conn, client := range hub.clients {
		if err := conn.WriteJSON(wsOutbound{Event: topic, Data: data}); err != nil {
			zap.S().Warnf("dropping websocket client %s: %v", client.userID, err)
			delete(hub.clients, conn)
			conn.Close()
		}
	}
}

// ConnectedClients returns the number of live hub connections
func ConnectedClients() int {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	return len(hub.clients)
}
