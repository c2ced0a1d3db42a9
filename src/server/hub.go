package server

import (
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"symbollist-observer/src/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// clientReply is a message for one client, delivered by the hub so that it
// never races with the hub closing the client's channel.
type clientReply struct {
	client  *Client
	message *models.MStreamMessage
}

// runHub owns client registration and fan-out until Stop.
func (s *APIServer) runHub() {
	for {
		select {
		case <-s.done:
			s.stateMutex.Lock()
			for client := range s.clients {
				delete(s.clients, client)
				close(client.send)
			}
			s.stateMutex.Unlock()
			return

		case client := <-s.register:
			s.stateMutex.Lock()
			s.clients[client] = struct{}{}
			history := s.history.GetAll()
			s.stateMutex.Unlock()

			// Replay recent records on connect
			if len(history) > 0 {
				client.send <- newStreamMessage(models.StreamHistory, history)
			}

		case client := <-s.unregister:
			s.stateMutex.Lock()
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				close(client.send)
			}
			s.stateMutex.Unlock()

		case reply := <-s.replies:
			s.stateMutex.Lock()
			if _, ok := s.clients[reply.client]; ok {
				select {
				case reply.client.send <- reply.message:
				default:
				}
			}
			s.stateMutex.Unlock()

		case records := <-s.broadcast:
			s.stateMutex.Lock()
			for _, r := range records {
				s.history.Append(r)
			}
			for client := range s.clients {
				selected := client.selectRecords(records)
				if len(selected) == 0 {
					continue
				}
				select {
				case client.send <- newStreamMessage(models.StreamRecords, selected):
				default:
					// Client too slow, disconnect to prevent Hub blocking
					delete(s.clients, client)
					close(client.send)
				}
			}
			s.stateMutex.Unlock()
		}
	}
}

func newStreamMessage(kind string, records []models.DecodedRecord) *models.MStreamMessage {
	return &models.MStreamMessage{
		Type:      kind,
		Timestamp: time.Now().UnixMilli(),
		Records:   records,
	}
}

func sortEntries(entries []models.WatchEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Identity.Key() < entries[j].Identity.Key()
	})
}

// -----------------------------------------------------------------------------
// Data Exchange Interface Implementation
// -----------------------------------------------------------------------------

// Broadcast queues records for every connected client.
func (s *APIServer) Broadcast(records []models.DecodedRecord) {
	if len(records) == 0 {
		return
	}
	select {
	case s.broadcast <- records:
	case <-s.done:
	}
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

func (s *APIServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		hub:  s,
		conn: conn,
		// Buffered channel to prevent blocking the Hub loop
		send: make(chan interface{}, 256),
	}

	select {
	case s.register <- client:
	case <-s.done:
		conn.Close()
		return
	}

	// Start goroutines for reading/writing
	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

// HandleClientMessage applies a subscribe command and answers with the
// matching history.
func (s *APIServer) HandleClientMessage(client *Client, message []byte) {
	var cmd models.MStreamCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.Logger.Info("Failed to parse client command: %v, disconnecting client", err)
		client.conn.Close()
		return
	}

	switch cmd.Command {
	case "subscribe":
		names := make([]string, 0, len(cmd.Items))
		for _, item := range cmd.Items {
			names = append(names, s.itemName(item))
		}
		client.setItems(names)
	case "unsubscribe":
		client.setItems(nil)
	default:
		return
	}

	s.stateMutex.RLock()
	history := client.selectRecords(s.history.GetAll())
	s.stateMutex.RUnlock()

	select {
	case s.replies <- clientReply{client: client, message: newStreamMessage(models.StreamHistory, history)}:
	case <-s.done:
	}
}
