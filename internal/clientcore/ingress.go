package clientcore

import (
	"sync"
	"time"

	"github.com/kwheelans/pass-it-on/internal/notification"
)

// Ingress feeds ClientReadyMessages to the client dispatch loop. Two
// implementations exist (see spec §9's open question on the client
// ingress shape): QueueIngress, a bounded channel, and ListIngress, a
// shared mutex-protected list woken by sync.Cond instead of polling.
type Ingress interface {
	// Messages returns the channel the dispatch loop drains. Closed
	// once the ingress is shut down and fully drained.
	Messages() <-chan notification.ClientReadyMessage
}

// QueueIngress is a bounded FIFO: Push blocks (respecting ctx-like
// cancellation via TryPush) once the buffer is full.
type QueueIngress struct {
	ch chan notification.ClientReadyMessage
}

// NewQueueIngress creates a QueueIngress with the given buffer size.
func NewQueueIngress(bufSize int) *QueueIngress {
	return &QueueIngress{ch: make(chan notification.ClientReadyMessage, bufSize)}
}

// Push enqueues msg, blocking if the buffer is full.
func (q *QueueIngress) Push(msg notification.ClientReadyMessage) {
	q.ch <- msg
}

// TryPush enqueues msg without blocking, reporting whether it fit.
func (q *QueueIngress) TryPush(msg notification.ClientReadyMessage) bool {
	select {
	case q.ch <- msg:
		return true
	default:
		return false
	}
}

// Close signals no further messages will be pushed, letting the
// dispatch loop exit once the buffer drains.
func (q *QueueIngress) Close() { close(q.ch) }

func (q *QueueIngress) Messages() <-chan notification.ClientReadyMessage { return q.ch }

// ListIngress holds pending messages in a plain slice behind a mutex,
// waking the drain loop with sync.Cond the moment a message arrives
// rather than polling on an interval. A short fallback tick remains as
// a safety net against a missed/lost signal, mirroring the resilience
// of a periodic check without paying its latency in the common case.
type ListIngress struct {
	mu     sync.Mutex
	cond   *sync.Cond
	list   []notification.ClientReadyMessage
	closed bool

	out chan notification.ClientReadyMessage
}

// NewListIngress creates a ListIngress and starts its drain loop plus
// a once-a-second safety-net broadcast, in case a Push's Signal is
// ever missed between a waiter checking the list and calling Wait.
func NewListIngress() *ListIngress {
	l := &ListIngress{out: make(chan notification.ClientReadyMessage)}
	l.cond = sync.NewCond(&l.mu)
	go l.drain()
	go l.pokePeriodically()
	return l
}

func (l *ListIngress) pokePeriodically() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for range ticker.C {
		l.cond.Broadcast()
	}
}

// Push appends msg and wakes the drain loop.
func (l *ListIngress) Push(msg notification.ClientReadyMessage) {
	l.mu.Lock()
	l.list = append(l.list, msg)
	l.mu.Unlock()
	l.cond.Signal()
}

// Close signals no further messages will be pushed.
func (l *ListIngress) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	l.cond.Signal()
}

func (l *ListIngress) Messages() <-chan notification.ClientReadyMessage { return l.out }

func (l *ListIngress) drain() {
	defer close(l.out)

	for {
		l.mu.Lock()
		for len(l.list) == 0 && !l.closed {
			l.cond.Wait()
		}
		if len(l.list) == 0 && l.closed {
			l.mu.Unlock()
			return
		}
		msg := l.list[0]
		l.list = l.list[1:]
		l.mu.Unlock()

		l.out <- msg
	}
}
