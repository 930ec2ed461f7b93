// Package sse provides Server-Sent Events support for real-time notifications.
package sse

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"loancrm_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// EventType represents different types of SSE events
type EventType string

const (
	EventToast                  EventType = "toast"
	EventNotification           EventType = "notification"
	EventConversionWizardOpened EventType = "conversion_wizard_opened"
	EventLeadConverted          EventType = "lead_converted"
)

const (
	clientBuffer      = 32
	heartbeatInterval = 25 * time.Second
)

// Event represents an SSE event payload
type Event struct {
	Type    EventType `json:"type"`
	LeadID  uuid.UUID `json:"leadId,omitempty"`
	Message string    `json:"message,omitempty"`
	Data    any       `json:"data,omitempty"`
}

// client represents a connected SSE client
type client struct {
	userID uuid.UUID
	events chan Event
	done   chan struct{}
	once   sync.Once
}

func (c *client) stop() {
	c.once.Do(func() { close(c.done) })
}

// Service manages SSE connections and event delivery
type Service struct {
	mu      sync.RWMutex
	clients map[uuid.UUID][]*client // userID -> clients
	log     *logger.Logger
}

// New creates a new SSE service
func New(log *logger.Logger) *Service {
	return &Service{
		clients: make(map[uuid.UUID][]*client),
		log:     log,
	}
}

func (s *Service) addClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c.userID] = append(s.clients[c.userID], c)
}

func (s *Service) removeClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clients := s.clients[c.userID]
	for i, cl := range clients {
		if cl == c {
			s.clients[c.userID] = append(clients[:i], clients[i+1:]...)
			break
		}
	}
	if len(s.clients[c.userID]) == 0 {
		delete(s.clients, c.userID)
	}
	c.stop()
}

// Publish sends an event to every connection of a user. Slow connections drop
// events instead of blocking the publisher.
func (s *Service) Publish(userID uuid.UUID, event Event) int {
	s.mu.RLock()
	clients := append([]*client(nil), s.clients[userID]...)
	s.mu.RUnlock()

	delivered := 0
	for _, c := range clients {
		select {
		case c.events <- event:
			delivered++
		default:
			s.log.Warn("sse buffer full, event dropped", "userId", userID, "event", event.Type)
		}
	}

	s.log.Debug("sse event published", "event", event.Type, "userId", userID, "clients", len(clients))
	return delivered
}

// Subscription is one open connection for a user.
type Subscription struct {
	svc    *Service
	client *client
}

// Events yields the events published to the user.
func (s *Subscription) Events() <-chan Event { return s.client.events }

// Done is closed when the service shuts the connection down.
func (s *Subscription) Done() <-chan struct{} { return s.client.done }

// Cancel removes the subscription. It is safe to call more than once.
func (s *Subscription) Cancel() { s.svc.removeClient(s.client) }

// Subscribe registers a connection for userID.
func (s *Service) Subscribe(userID uuid.UUID) *Subscription {
	cl := &client{
		userID: userID,
		events: make(chan Event, clientBuffer),
		done:   make(chan struct{}),
	}
	s.addClient(cl)
	return &Subscription{svc: s, client: cl}
}

// ConnectedClients returns the number of open connections for a user.
func (s *Service) ConnectedClients(userID uuid.UUID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients[userID])
}

// Handler returns a Gin handler for SSE connections
func (s *Service) Handler(getUserID func(*gin.Context) (uuid.UUID, bool)) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := getUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")
		c.Writer.Header().Set("X-Accel-Buffering", "no")

		sub := s.Subscribe(userID)
		defer sub.Cancel()

		c.SSEvent("connected", gin.H{"userId": userID})
		c.Writer.Flush()
		s.log.Debug("sse client connected", "userId", userID)

		heartbeat := time.NewTicker(heartbeatInterval)
		defer heartbeat.Stop()

		clientGone := c.Request.Context().Done()
		for {
			select {
			case <-clientGone:
				s.log.Debug("sse client disconnected", "userId", userID)
				return
			case <-sub.Done():
				return
			case <-heartbeat.C:
				c.SSEvent("ping", gin.H{"ts": time.Now().Unix()})
				c.Writer.Flush()
			case event := <-sub.Events():
				data, err := json.Marshal(event)
				if err != nil {
					s.log.Error("sse event marshal failed", "event", event.Type, "error", err)
					continue
				}
				c.SSEvent(string(event.Type), string(data))
				c.Writer.Flush()
			}
		}
	}
}

// Close disconnects every client.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, clients := range s.clients {
		for _, c := range clients {
			c.stop()
		}
	}
	s.clients = make(map[uuid.UUID][]*client)
}
