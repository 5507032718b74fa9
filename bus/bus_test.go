package bus

import (
	"testing"

	"github.com/murmur/chat-sdk/chat"
)

func TestPublishFansOutInOrder(t *testing.T) {
	b := New()

	var order []string
	b.Listen(func(ev chat.Event) { order = append(order, "first") })
	b.Listen(func(ev chat.Event) { order = append(order, "second") })
	b.Listen(func(ev chat.Event) { order = append(order, "third") })

	b.Publish(chat.TypingChanged{RoomID: 1, UserID: "alice@x.com", Typing: true})

	if len(order) != 3 {
		t.Fatalf("expected 3 handler invocations, got %d", len(order))
	}
	for i, want := range []string{"first", "second", "third"} {
		if order[i] != want {
			t.Errorf("index %d: expected %q, got %q", i, want, order[i])
		}
	}
}

func TestPublishDeliversEvent(t *testing.T) {
	b := New()

	var got chat.Event
	b.Listen(func(ev chat.Event) { got = ev })

	sent := chat.PresenceChanged{UserID: "alice@x.com", Online: true}
	b.Publish(sent)

	ev, ok := got.(chat.PresenceChanged)
	if !ok {
		t.Fatalf("expected PresenceChanged, got %T", got)
	}
	if ev.UserID != "alice@x.com" || !ev.Online {
		t.Errorf("unexpected event: %+v", ev)
	}
}

func TestListenIgnoresNilHandler(t *testing.T) {
	b := New()
	b.Listen(nil)

	// Must not panic.
	b.Publish(chat.TypingChanged{RoomID: 1})
}

func TestPublishWithNoListeners(t *testing.T) {
	b := New()

	// Must not panic.
	b.Publish(chat.CommentReceived{})
}

func TestSubjectFor(t *testing.T) {
	cases := []struct {
		name string
		ev   chat.Event
		want string
	}{
		{"comment", chat.CommentReceived{}, "chat.comment"},
		{"typing", chat.TypingChanged{RoomID: 42}, "chat.typing.42"},
		{"delivery", chat.DeliveryReceived{RoomID: 42}, "chat.delivery.42"},
		{"read", chat.ReadReceived{RoomID: 7}, "chat.read.7"},
		{"presence", chat.PresenceChanged{UserID: "alice@x.com"}, "chat.presence.alice@x.com"},
	}
	for _, tc := range cases {
		if got := subjectFor(tc.ev); got != tc.want {
			t.Errorf("%s: expected subject %q, got %q", tc.name, tc.want, got)
		}
	}
}
