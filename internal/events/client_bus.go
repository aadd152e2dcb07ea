// Package events provides the non-blocking broadcast buses that connect
// the dispatch cores to their fan-out subscribers: the client bus
// (signed Notifications to every client interface) and the endpoint
// bus (ValidatedNotifications to a single endpoint's notify task). Both
// are adapted from the same nil-safe, lock-protected, per-subscriber-
// buffered broadcast bus shape; a slow or absent subscriber never
// blocks the publisher, matching the lag-drop trade-off of spec §5.
package events

import (
	"sync"

	"github.com/kwheelans/pass-it-on/internal/notification"
)

// ClientBus broadcasts signed Notifications from the client signing
// task to every subscribed client interface's send task.
type ClientBus struct {
	mu         sync.RWMutex
	subs       map[chan notification.Notification]struct{}
	recvToSend map[<-chan notification.Notification]chan notification.Notification
}

// NewClientBus creates an empty bus ready for use.
func NewClientBus() *ClientBus {
	return &ClientBus{
		subs:       make(map[chan notification.Notification]struct{}),
		recvToSend: make(map[<-chan notification.Notification]chan notification.Notification),
	}
}

// Publish sends n to every subscriber. Non-blocking: a subscriber whose
// buffer is full misses the message rather than stalling the signer.
// Safe to call on a nil receiver.
func (b *ClientBus) Publish(n notification.Notification) {
	if b == nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- n:
		default:
		}
	}
}

// Subscribe returns a receive-only channel of buffered Notifications.
// Callers must Unsubscribe when done to avoid leaking the entry.
func (b *ClientBus) Subscribe(bufSize int) <-chan notification.Notification {
	ch := make(chan notification.Notification, bufSize)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[ch] = struct{}{}
	b.recvToSend[ch] = ch
	return ch
}

// Unsubscribe removes and closes a subscription. Safe to call twice.
func (b *ClientBus) Unsubscribe(ch <-chan notification.Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sendCh, ok := b.recvToSend[ch]
	if !ok {
		return
	}
	delete(b.subs, sendCh)
	delete(b.recvToSend, ch)
	close(sendCh)
}

// SubscriberCount reports the number of active subscribers.
func (b *ClientBus) SubscriberCount() int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
