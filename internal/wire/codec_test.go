package wire

import (
	"testing"

	"github.com/kwheelans/pass-it-on/internal/notification"
)

func testKey(t *testing.T) notification.Key {
	t.Helper()
	master, err := notification.FromSlice([]byte("UVXu7wtbXHWNgAr6rWyPnaZbZK9aYin8"))
	if err != nil {
		t.Fatalf("master key: %v", err)
	}
	return notification.Generate("test1", master)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	n := notification.SignMessage(notification.Message{Text: "hello", Time: 1_000_000_000}, testKey(t))

	encoded, err := Encode(n)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if decoded != n {
		t.Fatalf("round trip mismatch: got %+v, want %+v", decoded, n)
	}
}

func TestDecodeStreamMultiFrame(t *testing.T) {
	k := testKey(t)
	a := notification.SignMessage(notification.Message{Text: "a", Time: 1}, k)
	c := notification.SignMessage(notification.Message{Text: "c", Time: 3}, k)

	ea, err := Encode(a)
	if err != nil {
		t.Fatalf("encode a: %v", err)
	}
	ec, err := Encode(c)
	if err != nil {
		t.Fatalf("encode c: %v", err)
	}

	bad := []byte(`{"message":{"text":"b","time":bad},"key":"deadbeef"}`)

	payload := append(append(append([]byte{}, ea...), bad...), ec...)

	results := DecodeStream(payload)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	if results[0].Err != nil || results[0].Notification != a {
		t.Fatalf("frame 0: got %+v", results[0])
	}
	if results[1].Err == nil {
		t.Fatalf("frame 1: expected error, got none")
	}
	if results[2].Err != nil || results[2].Notification != c {
		t.Fatalf("frame 2: got %+v", results[2])
	}
}

func TestDecodeStreamEmpty(t *testing.T) {
	if results := DecodeStream([]byte("   \n  ")); len(results) != 0 {
		t.Fatalf("expected no results, got %d", len(results))
	}
}

func TestDecodeStreamGarbageToken(t *testing.T) {
	k := testKey(t)
	a := notification.SignMessage(notification.Message{Text: "a", Time: 1}, k)
	c := notification.SignMessage(notification.Message{Text: "c", Time: 3}, k)

	ea, err := Encode(a)
	if err != nil {
		t.Fatalf("encode a: %v", err)
	}
	ec, err := Encode(c)
	if err != nil {
		t.Fatalf("encode c: %v", err)
	}

	payload := append(append(append([]byte{}, ea...), []byte(" garbage ")...), ec...)

	results := DecodeStream(payload)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	if results[0].Err != nil || results[0].Notification != a {
		t.Fatalf("frame 0: got %+v", results[0])
	}
	if results[1].Err == nil {
		t.Fatalf("frame 1: expected error for stray token, got none")
	}
	if results[2].Err != nil || results[2].Notification != c {
		t.Fatalf("frame 2: got %+v", results[2])
	}
}
