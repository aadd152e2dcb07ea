package events

import (
	"sync"

	"github.com/kwheelans/pass-it-on/internal/notification"
)

// EndpointBus broadcasts ValidatedNotifications from the server's
// validator task to an endpoint's notify task. In practice an endpoint
// runs a single notify task, so the bus normally has one subscriber,
// but the mechanics are identical to ClientBus to allow more.
type EndpointBus struct {
	mu         sync.RWMutex
	subs       map[chan notification.ValidatedNotification]struct{}
	recvToSend map[<-chan notification.ValidatedNotification]chan notification.ValidatedNotification
}

// NewEndpointBus creates an empty bus ready for use.
func NewEndpointBus() *EndpointBus {
	return &EndpointBus{
		subs:       make(map[chan notification.ValidatedNotification]struct{}),
		recvToSend: make(map[<-chan notification.ValidatedNotification]chan notification.ValidatedNotification),
	}
}

// Publish sends vn to every subscriber without blocking; a subscriber
// whose buffer is full misses the message. Safe on a nil receiver.
func (b *EndpointBus) Publish(vn notification.ValidatedNotification) {
	if b == nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- vn:
		default:
		}
	}
}

// Subscribe returns a receive-only channel of buffered ValidatedNotifications.
func (b *EndpointBus) Subscribe(bufSize int) <-chan notification.ValidatedNotification {
	ch := make(chan notification.ValidatedNotification, bufSize)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[ch] = struct{}{}
	b.recvToSend[ch] = ch
	return ch
}

// Unsubscribe removes and closes a subscription. Safe to call twice.
func (b *EndpointBus) Unsubscribe(ch <-chan notification.ValidatedNotification) {
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
