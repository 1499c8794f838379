package server

import (
	"encoding/json"
	"net/http"

	"terminal-bridge/src/analysis"
	"terminal-bridge/src/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// handleWebsockets is the main Hub loop
func (s *FastAPIServer) handleWebsockets() {
	for {
		select {
		case <-s.done:
			return

		case client := <-s.unregister:
			if s.removeClient(client) {
				s.Bridge.OnDisconnect(client.id)
			}

		case message := <-s.broadcast:
			var slow []*Client
			s.clientsMu.RLock()
			for _, client := range s.clients {
				select {
				case client.send <- message:
				default:
					slow = append(slow, client)
				}
			}
			s.clientsMu.RUnlock()

			// Slow consumers are dropped so the hub never blocks
			for _, client := range slow {
				s.Logger.Warning("Dropping slow client %s", client.id)
				if s.removeClient(client) {
					s.Bridge.OnDisconnect(client.id)
				}
			}
		}
	}
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) addClient(c *Client) {
	s.clientsMu.Lock()
	s.clients[c.id] = c
	n := len(s.clients)
	s.clientsMu.Unlock()
	s.Metrics.SetClients(n)
}

// removeClient reports whether the client was still registered.
func (s *FastAPIServer) removeClient(c *Client) bool {
	s.clientsMu.Lock()
	current, ok := s.clients[c.id]
	if ok && current == c {
		delete(s.clients, c.id)
		close(c.send)
	}
	n := len(s.clients)
	s.clientsMu.Unlock()
	s.Metrics.SetClients(n)
	return ok && current == c
}

// ClientCount returns the number of open websocket clients.
func (s *FastAPIServer) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// -----------------------------------------------------------------------------
// IDistributor Implementation
// -----------------------------------------------------------------------------

// EmitTo queues one event for a client without blocking.
func (s *FastAPIServer) EmitTo(clientID string, event string, payload interface{}) bool {
	message, err := encodeEnvelope(event, payload)
	if err != nil {
		s.Logger.Error("Failed to encode %s: %v", event, err)
		return false
	}

	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	client, ok := s.clients[clientID]
	if !ok {
		return false
	}
	select {
	case client.send <- message:
		return true
	default:
		s.Logger.Debug("Send buffer full for %s, dropping %s", clientID, event)
		return false
	}
}

// -----------------------------------------------------------------------------

// Broadcast queues an event for every client through the hub.
func (s *FastAPIServer) Broadcast(event string, payload interface{}) {
	message, err := encodeEnvelope(event, payload)
	if err != nil {
		s.Logger.Error("Failed to encode %s: %v", event, err)
		return
	}

	select {
	case s.broadcast <- message:
	case <-s.done:
	default:
		s.Logger.Warning("Broadcast queue full, dropping %s", event)
	}
}

func encodeEnvelope(event string, payload interface{}) ([]byte, error) {
	return json.Marshal(models.MEnvelope{Event: event, Data: payload})
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) handleWebSocket(c *gin.Context) {
	timeframe := c.DefaultQuery("timeframe", analysis.BaseTimeframe)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		id:   uuid.NewString(),
		hub:  s,
		conn: conn,
		// Buffered channel to prevent blocking the engine loops
		send: make(chan []byte, 256),
	}
	s.addClient(client)

	go client.writePump()
	go client.readPump()

	s.Bridge.OnConnect(client.id, timeframe)
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

func (s *FastAPIServer) HandleClientMessage(client *Client, message []byte) {
	var cmd models.MClientCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.Logger.Info("Failed to parse command from %s: %v, disconnecting client", client.id, err)
		client.conn.Close()
		return
	}
	s.Bridge.OnCommand(client.id, cmd.Event, cmd.Data.Timeframe)
}
