package endpoint

import "testing"

func TestCanonicalizeRoom(t *testing.T) {
	cases := []struct {
		room    string
		want    string
		wantErr bool
	}{
		{room: "#general", want: "#general:example.com"},
		{room: "#general:elsewhere.com", want: "#general:elsewhere.com"},
		{room: "!abc123", want: "!abc123:example.com"},
		{room: "general", wantErr: true},
		{room: "general:example.com", wantErr: true},
	}

	for _, c := range cases {
		got, err := canonicalizeRoom(c.room, "example.com")
		if c.wantErr {
			if err == nil {
				t.Errorf("room %q: expected error, got none", c.room)
			}
			continue
		}
		if err != nil {
			t.Errorf("room %q: unexpected error: %v", c.room, err)
			continue
		}
		if got != c.want {
			t.Errorf("room %q: got %q, want %q", c.room, got, c.want)
		}
	}
}

func TestMatrixConfigRoomsMergesNotifications(t *testing.T) {
	cfg := MatrixConfig{
		Rooms: []MatrixRoomConfig{
			{Room: "#r1:example.com", Notifications: []string{"a"}},
			{Room: "#r1:example.com", Notifications: []string{"b"}},
			{Room: "#r2:example.com", Notifications: []string{"c"}},
		},
	}

	merged := cfg.rooms()
	if len(merged["#r1:example.com"]) != 2 {
		t.Fatalf("expected 2 merged notifications for r1, got %v", merged["#r1:example.com"])
	}
	if len(merged["#r2:example.com"]) != 1 {
		t.Fatalf("expected 1 notification for r2, got %v", merged["#r2:example.com"])
	}
}
