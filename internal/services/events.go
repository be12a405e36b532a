package services

import (
	"slices"
	"sync"
	"time"

	"github.com/pixelforge/nexus/internal/models"
)

type EventType string

const (
	EventProjectCreated   EventType = "project.created"
	EventProjectStatus    EventType = "project.status"
	EventMemberAssigned   EventType = "member.assigned"
	EventMemberRemoved    EventType = "member.removed"
	EventDocumentUploaded EventType = "document.uploaded"
	EventDocumentDeleted  EventType = "document.deleted"
)

// Event is a change notification pushed to connected clients.
// It names what changed; clients refetch the resource.
type Event struct {
	Type       EventType `json:"type"`
	ProjectID  string    `json:"project_id"`
	UserID     string    `json:"user_id,omitempty"`
	DocumentID string    `json:"document_id,omitempty"`
	Status     string    `json:"status,omitempty"`
	At         time.Time `json:"at"`
}

const subscriberBuffer = 100

type subscriber struct {
	identity models.Identity
	ch       chan Event
}

// EventHub fans project events out to subscribers that can see the project.
type EventHub struct {
	clients map[string]*subscriber
	mu      sync.RWMutex
}

func NewEventHub() *EventHub {
	return &EventHub{
		clients: make(map[string]*subscriber),
	}
}

// Subscribe registers a client and returns its event channel.
// Subscribing an existing clientID replaces the previous channel.
func (h *EventHub) Subscribe(clientID string, id models.Identity) <-chan Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	if old, ok := h.clients[clientID]; ok {
		close(old.ch)
	}
	sub := &subscriber{identity: id, ch: make(chan Event, subscriberBuffer)}
	h.clients[clientID] = sub
	return sub.ch
}

func (h *EventHub) Unsubscribe(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sub, ok := h.clients[clientID]; ok {
		close(sub.ch)
		delete(h.clients, clientID)
	}
}

// Publish delivers ev to every subscriber with access to project, plus the
// users listed in also (e.g. a member who was just removed).
// Slow clients drop events instead of blocking the publisher.
func (h *EventHub) Publish(ev Event, project *models.Project, also ...string) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.clients {
		if !CanAccessProject(sub.identity, project) && !slices.Contains(also, sub.identity.ID) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
		}
	}
}

func (h *EventHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
