package clientcore

import (
	"testing"
	"time"

	"github.com/kwheelans/pass-it-on/internal/notification"
)

func TestQueueIngressPreservesOrder(t *testing.T) {
	q := NewQueueIngress(10)
	q.Push(notification.NewClientReadyMessage("a", "1"))
	q.Push(notification.NewClientReadyMessage("b", "2"))
	q.Close()

	first := <-q.Messages()
	second := <-q.Messages()
	if first.NotificationName != "a" || second.NotificationName != "b" {
		t.Fatalf("unexpected order: %s, %s", first.NotificationName, second.NotificationName)
	}
	if _, ok := <-q.Messages(); ok {
		t.Fatalf("expected channel to be closed after draining")
	}
}

func TestQueueIngressTryPushRespectsCapacity(t *testing.T) {
	q := NewQueueIngress(1)
	if !q.TryPush(notification.NewClientReadyMessage("a", "1")) {
		t.Fatalf("expected first push to succeed")
	}
	if q.TryPush(notification.NewClientReadyMessage("b", "2")) {
		t.Fatalf("expected second push to fail on a full buffer")
	}
}

func TestListIngressDeliversPushedMessages(t *testing.T) {
	l := NewListIngress()
	l.Push(notification.NewClientReadyMessage("a", "1"))

	select {
	case msg := <-l.Messages():
		if msg.NotificationName != "a" {
			t.Fatalf("unexpected notification name: %s", msg.NotificationName)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message from ListIngress")
	}
}

func TestListIngressClosesAfterDraining(t *testing.T) {
	l := NewListIngress()
	l.Push(notification.NewClientReadyMessage("a", "1"))
	l.Close()

	<-l.Messages()
	select {
	case _, ok := <-l.Messages():
		if ok {
			t.Fatalf("expected channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for ListIngress to close")
	}
}
