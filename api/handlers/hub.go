package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/linesmerrill/dharma-case-api/cases"
)

const (
	caseUpdatedEvent = "case_updated"
	writeWait        = 10 * time.Second
	clientBuffer     = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HubMessage is the frame pushed to websocket clients
type HubMessage struct {
	Event string      `json:"event"`
	Data  cases.Event `json:"data"`
}

// Hub fans committed case events out to connected websocket clients. Each
// client has its own buffered queue; a client that falls behind is dropped.
type Hub struct {
	mutex   sync.Mutex
	clients map[string]chan HubMessage
}

// NewHub returns an empty Hub
func NewHub() *Hub {
	return &Hub{clients: make(map[string]chan HubMessage)}
}

// CaseChanged queues the event for every client
func (h *Hub) CaseChanged(_ context.Context, e cases.Event) {
	msg := HubMessage{Event: caseUpdatedEvent, Data: e}

	h.mutex.Lock()
	defer h.mutex.Unlock()
	for id, queue := range h.clients {
		select {
		case queue <- msg:
		default:
			zap.S().Warnw("dropping slow websocket client", "clientId", id)
			delete(h.clients, id)
			close(queue)
		}
	}
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

func (h *Hub) register() (string, chan HubMessage) {
	id := uuid.New().String()
	queue := make(chan HubMessage, clientBuffer)
	h.mutex.Lock()
	h.clients[id] = queue
	h.mutex.Unlock()
	return id, queue
}

func (h *Hub) unregister(id string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if queue, ok := h.clients[id]; ok {
		delete(h.clients, id)
		close(queue)
	}
}

// HandleCasesWebSocket upgrades the connection and streams case events until
// the client goes away
func (h *Hub) HandleCasesWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().Errorw("websocket upgrade error", "error", err)
		return
	}
	defer conn.Close()

	id, queue := h.register()
	defer h.unregister(id)
	zap.S().Infow("client connected to /ws/cases", "clientId", id)

	// reads only detect the close; the feed is one way
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			zap.S().Infow("client disconnected from /ws/cases", "clientId", id)
			return
		case <-r.Context().Done():
			return
		case msg, ok := <-queue:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "too slow"),
					time.Now().Add(writeWait))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				zap.S().Warnw("error sending case event", "clientId", id, "error", err)
				return
			}
		}
	}
}
