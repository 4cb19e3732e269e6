package websocket

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type UnicastMessage struct {
	UserID  uuid.UUID
	Message []byte
}

// Hub maintains the set of live clients, indexed by user, and routes
// messages to every connection of one user.
type Hub struct {
	// Registered clients by user.
	clients map[uuid.UUID]map[*Client]struct{}

	unicast chan UnicastMessage

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Channel to signal termination
	stop     chan struct{}
	stopOnce sync.Once

	mu          sync.RWMutex
	connections int

	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		unicast:    make(chan UnicastMessage),
		register:   make(chan *Client),
		unregister: make(chan *Client),

		clients: make(map[uuid.UUID]map[*Client]struct{}),
		stop:    make(chan struct{}),
		logger:  logger.Named("ws_hub"),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.add(client)
			h.logger.Debug("client registered", zap.String("user_id", client.userID.String()))
		case client := <-h.unregister:
			if h.remove(client) {
				h.logger.Debug("client unregistered", zap.String("user_id", client.userID.String()))
			}
		case msg := <-h.unicast:
			for client := range h.clients[msg.UserID] {
				select {
				case client.send <- msg.Message:
				default:
					h.logger.Warn("dropping slow client", zap.String("user_id", msg.UserID.String()))
					h.remove(client)
				}
			}
		case <-h.stop:
			h.logger.Info("stopping hub")
			for _, set := range h.clients {
				for client := range set {
					h.remove(client)
				}
			}
			return
		}
	}
}

func (h *Hub) add(c *Client) {
	set, ok := h.clients[c.userID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.userID] = set
	}
	set[c] = struct{}{}

	h.mu.Lock()
	h.connections++
	h.mu.Unlock()
	liveConnections.Inc()
}

func (h *Hub) remove(c *Client) bool {
	set, ok := h.clients[c.userID]
	if !ok {
		return false
	}
	if _, ok := set[c]; !ok {
		return false
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.userID)
	}
	close(c.send)

	h.mu.Lock()
	h.connections--
	h.mu.Unlock()
	liveConnections.Dec()
	return true
}

// Connections reports how many clients are currently registered.
func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.connections
}

func (h *Hub) SendToUser(userID uuid.UUID, message []byte) {
	select {
	case h.unicast <- UnicastMessage{UserID: userID, Message: message}:
	case <-h.stop:
	}
}

func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stop)
	})
}
