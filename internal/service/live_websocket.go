package service

import (
	"CasinoApi/internal/middleware"
	"CasinoApi/internal/settle"
	"CasinoApi/pkg/logger"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

var LiveFeedWS *LiveFeedWebsocketService

func init() {
	LiveFeedWS = NewLiveFeedWebsocketService()
}

// LiveFeedWebsocketService fans settlement events out to connected clients.
// It implements the settlement engine's Feed interface; a slow or dead
// client is dropped, never allowed to stall a settlement pass.
type LiveFeedWebsocketService struct {
	connections      map[int64]*websocket.Conn
	lastActivityTime map[int64]time.Time
	recent           []settle.Event
	mu               sync.Mutex
}

func NewLiveFeedWebsocketService() *LiveFeedWebsocketService {
	service := &LiveFeedWebsocketService{
		connections:      make(map[int64]*websocket.Conn),
		lastActivityTime: make(map[int64]time.Time),
	}
	go service.cleanupInactiveConnections()
	return service
}

func (w *LiveFeedWebsocketService) cleanupInactiveConnections() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		w.mu.Lock()
		now := time.Now()
		for userID, lastActivity := range w.lastActivityTime {
			if now.Sub(lastActivity) > 30*time.Minute {
				if conn, ok := w.connections[userID]; ok {
					conn.Close()
					delete(w.connections, userID)
					delete(w.lastActivityTime, userID)
				}
			}
		}
		w.mu.Unlock()
	}
}

// Publish broadcasts one settlement event and keeps it in the recent window.
func (w *LiveFeedWebsocketService) Publish(event settle.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.recent = append(w.recent, event)
	if len(w.recent) > 50 {
		w.recent = w.recent[len(w.recent)-50:]
	}

	for userID, conn := range w.connections {
		if err := conn.WriteJSON(event); err != nil {
			conn.Close()
			delete(w.connections, userID)
			delete(w.lastActivityTime, userID)
		}
	}
}

// GetRecentEvents handles GET requests for the latest settlement events.
func (w *LiveFeedWebsocketService) GetRecentEvents(c *gin.Context) {
	w.mu.Lock()
	events := make([]settle.Event, len(w.recent))
	copy(events, w.recent)
	w.mu.Unlock()

	if len(events) < 1 {
		c.String(404, "[]")
		return
	}
	c.JSON(200, events)
}

// LiveFeedWebsocketHandler upgrades the connection and registers it with the
// fan-out map. Incoming messages only refresh the activity timestamp.
func (w *LiveFeedWebsocketService) LiveFeedWebsocketHandler(c *gin.Context) {
	userID, err := middleware.GetUserIDFromGinContext(c)
	if err != nil {
		logger.Error("Error retrieving user ID: %v", err)
		c.Status(500)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed: %v", err)
		return
	}

	w.mu.Lock()
	if old, ok := w.connections[userID]; ok {
		old.Close()
	}
	w.connections[userID] = conn
	w.lastActivityTime[userID] = time.Now()
	w.mu.Unlock()

	logger.Info("User %d connected to live feed", userID)

	defer func() {
		w.mu.Lock()
		delete(w.connections, userID)
		delete(w.lastActivityTime, userID)
		w.mu.Unlock()
		conn.Close()
		logger.Info("User %d disconnected from live feed", userID)
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
		w.mu.Lock()
		w.lastActivityTime[userID] = time.Now()
		w.mu.Unlock()
	}
}
