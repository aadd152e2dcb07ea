package notification

import "testing"

// TestSignVerifyHappyPath is scenario 1 from spec §8: master key M,
// notification name "test1", message text "hello" at a fixed time.
// Validation succeeds under the derived key for "test1" and fails for
// any other notification name.
func TestSignVerifyHappyPath(t *testing.T) {
	master, err := FromSlice([]byte("UVXu7wtbXHWNgAr6rWyPnaZbZK9aYin8"))
	if err != nil {
		t.Fatalf("master key: %v", err)
	}

	kn := Generate("test1", master)
	msg := Message{Text: "hello", Time: 1_000_000_000}
	n := SignMessage(msg, kn)

	if !n.ValidateKey(kn) {
		t.Fatalf("expected notification to validate under its own key")
	}

	other := Generate("test2", master)
	if n.ValidateKey(other) {
		t.Fatalf("expected notification to fail validation under a different name's key")
	}
}

func TestSignIsDeterministicAndBindsFields(t *testing.T) {
	master, _ := FromSlice([]byte("UVXu7wtbXHWNgAr6rWyPnaZbZK9aYin8"))
	kn := Generate("test1", master)

	m := Message{Text: "hello", Time: 1_000_000_000}
	a := SignMessage(m, kn)
	b := SignMessage(m, kn)
	if a.Key != b.Key {
		t.Fatalf("signing the same message twice should produce the same MAC")
	}

	withDifferentText := SignMessage(Message{Text: "hellp", Time: m.Time}, kn)
	if withDifferentText.Key == a.Key {
		t.Fatalf("altering text should change the MAC")
	}

	withDifferentTime := SignMessage(Message{Text: m.Text, Time: m.Time + 1}, kn)
	if withDifferentTime.Key == a.Key {
		t.Fatalf("altering time should change the MAC")
	}
}

func TestValidateSet(t *testing.T) {
	master, _ := FromSlice([]byte("UVXu7wtbXHWNgAr6rWyPnaZbZK9aYin8"))
	kn1 := Generate("n1", master)
	kn2 := Generate("n2", master)

	n := Sign("hi", kn1)

	if !n.ValidateSet([]Key{kn2, kn1}) {
		t.Fatalf("expected match within key set")
	}
	if n.ValidateSet([]Key{kn2}) {
		t.Fatalf("expected no match against unrelated key set")
	}
}

func TestNewClientReadyMessage(t *testing.T) {
	crm := NewClientReadyMessage("alerts", "disk full")
	if crm.NotificationName != "alerts" {
		t.Fatalf("unexpected notification name: %s", crm.NotificationName)
	}
	if crm.Message.Text != "disk full" {
		t.Fatalf("unexpected text: %s", crm.Message.Text)
	}
	if crm.Message.Time == 0 {
		t.Fatalf("expected a non-zero timestamp")
	}
}
