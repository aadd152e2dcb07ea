package notification

import (
	"strconv"
	"time"
)

// Message is the opaque textual payload carried by a Notification, plus
// the creation timestamp in nanoseconds since the Unix epoch. Immutable
// after construction; time is set once and never rewritten downstream.
type Message struct {
	Text string `json:"text"`
	Time uint64 `json:"time"`
}

// NewMessage creates a Message stamped with the current time.
func NewMessage(text string) Message {
	return Message{Text: text, Time: uint64(time.Now().UnixNano())}
}

// macInput returns the exact byte sequence the MAC is computed over:
// utf8(text) || ascii_decimal(time). Both sides of the wire must agree
// on this encoding for validation to succeed.
func (m Message) macInput() []byte {
	b := make([]byte, 0, len(m.Text)+20)
	b = append(b, m.Text...)
	b = strconv.AppendUint(b, m.Time, 10)
	return b
}

// Sign computes the MAC for this message under the given notification
// key (Kn), returning the 32-byte Key representing it.
func (m Message) Sign(notificationKey Key) Key {
	h := Generate(string(m.macInput()), notificationKey)
	return h
}

// Notification is the signed wire envelope transmitted between client
// and server: a Message plus the hex-encoded MAC over it under some
// notification key. The key field is a MAC, not an identifier.
type Notification struct {
	Message Message `json:"message"`
	Key     string  `json:"key"`
}

// Sign builds a Notification for the given message text under the
// notification-name key Kn, stamping the message with the current time.
func Sign(text string, notificationKey Key) Notification {
	m := NewMessage(text)
	return SignMessage(m, notificationKey)
}

// SignMessage builds a Notification for an already-constructed message.
// Used by tests that need deterministic timestamps and by the client
// dispatch loop, which constructs the Message once at ingress time.
func SignMessage(m Message, notificationKey Key) Notification {
	return Notification{Message: m, Key: m.Sign(notificationKey).ToHex()}
}

// ValidateKey reports whether n's MAC matches what recomputing under
// notificationKey would produce.
func (n Notification) ValidateKey(notificationKey Key) bool {
	return n.Message.Sign(notificationKey).ToHex() == n.Key
}

// ValidateSet reports whether n's MAC matches any key in keys, the
// validation rule for a single endpoint (sub-name, key-set) pair.
// Short-circuits on the first match.
func (n Notification) ValidateSet(keys []Key) bool {
	for _, k := range keys {
		if n.ValidateKey(k) {
			return true
		}
	}
	return false
}

// ClientReadyMessage is the client-side pairing of a Message with the
// notification name it should be signed under. It is never serialized;
// it exists only inside the client ingress queue, converted into a
// Notification at signing time.
type ClientReadyMessage struct {
	Message          Message
	NotificationName string
}

// NewClientReadyMessage stamps text with the current time and pairs it
// with a notification name, ready to hand to the client ingress queue.
func NewClientReadyMessage(notificationName, text string) ClientReadyMessage {
	return ClientReadyMessage{Message: NewMessage(text), NotificationName: notificationName}
}

// ValidatedNotification is the server-side pairing of a Message with a
// sub-name after it has matched an endpoint's key-set. Never
// serialized; sub-name is empty for most endpoints and carries the
// target room identifier for Matrix.
type ValidatedNotification struct {
	Message Message
	SubName string
}
