package sse

import (
	"context"
	"sync"

	"ms-membership/internal/models"
)

const clientBuffer = 10

// RegistrationFeed fans registration notifications out to live subscribers
// of each event.
type RegistrationFeed struct {
	mu      sync.RWMutex
	clients map[string][]chan models.Notification
}

func NewRegistrationFeed() *RegistrationFeed {
	return &RegistrationFeed{clients: make(map[string][]chan models.Notification)}
}

// Subscribe returns a channel that receives the event's notifications until
// ctx is done, at which point the channel is closed.
func (f *RegistrationFeed) Subscribe(ctx context.Context, eventID string) <-chan models.Notification {
	ch := make(chan models.Notification, clientBuffer)

	f.mu.Lock()
	f.clients[eventID] = append(f.clients[eventID], ch)
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.remove(eventID, ch)
	}()
	return ch
}

func (f *RegistrationFeed) Name() string { return "sse" }

// Notify never blocks; a subscriber with a full buffer misses the message.
func (f *RegistrationFeed) Notify(ctx context.Context, n models.Notification) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, ch := range f.clients[n.EventID] {
		select {
		case ch <- n:
		default:
		}
	}
	return nil
}

func (f *RegistrationFeed) remove(eventID string, ch chan models.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()

	clients := f.clients[eventID]
	for i, c := range clients {
		if c == ch {
			f.clients[eventID] = append(clients[:i], clients[i+1:]...)
			close(ch)
			break
		}
	}
	if len(f.clients[eventID]) == 0 {
		delete(f.clients, eventID)
	}
}

// ClientCount returns the number of live subscribers for an event.
func (f *RegistrationFeed) ClientCount(eventID string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.clients[eventID])
}
