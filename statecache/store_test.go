package statecache

import "testing"

func TestPresenceKey(t *testing.T) {
	if got := presenceKey("alice@x.com"); got != "presence:alice@x.com" {
		t.Errorf("expected %q, got %q", "presence:alice@x.com", got)
	}
}

func TestMarksKey(t *testing.T) {
	if got := marksKey(42); got != "marks:42" {
		t.Errorf("expected %q, got %q", "marks:42", got)
	}
}

func TestMarkField(t *testing.T) {
	cases := []struct {
		userID string
		kind   string
		want   string
	}{
		{"alice@x.com", "delivered", "alice@x.com:delivered"},
		{"alice@x.com", "read", "alice@x.com:read"},
	}
	for _, tc := range cases {
		if got := markField(tc.userID, tc.kind); got != tc.want {
			t.Errorf("markField(%q, %q): expected %q, got %q", tc.userID, tc.kind, tc.want, got)
		}
	}
}

func TestBoolField(t *testing.T) {
	if boolField(true) != 1 || boolField(false) != 0 {
		t.Error("expected online to encode as 1 and offline as 0")
	}
}
