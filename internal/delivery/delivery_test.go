// internal/delivery/delivery_test.go
// Package delivery provides unit tests for delivery routing, caption
// parsing, and repeat-query suppression.
package delivery

import (
	"context"
	"testing"
	"time"

	"github.com/sarabot/sara-catalog-go/internal/model"
)

// recordingMessenger implements Messenger for testing and records what was
// sent.
type recordingMessenger struct {
	forwards []int64
	links    []string
}

// ForwardByRef implements Messenger for testing.
func (m *recordingMessenger) ForwardByRef(ctx context.Context, chatID string, msgID int64) error {
	m.forwards = append(m.forwards, msgID)
	return nil
}

// SendByLink implements Messenger for testing.
func (m *recordingMessenger) SendByLink(ctx context.Context, chatID, title, link string) error {
	m.links = append(m.links, link)
	return nil
}

// TestDeliverByRef verifies a record with a forwardable position goes out
// as a forward, not a link.
func TestDeliverByRef(t *testing.T) {
	msgr := &recordingMessenger{}
	d := NewDeliverer(msgr, nil)

	sent, err := d.Deliver(context.Background(), "chat-1", "sender-1", "inception", model.MediaRecord{Title: "Inception", MsgID: 101})
	if err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}
	if !sent {
		t.Fatal("expected delivery")
	}
	if len(msgr.forwards) != 1 || msgr.forwards[0] != 101 {
		t.Errorf("forwards = %v, want [101]", msgr.forwards)
	}
	if len(msgr.links) != 0 {
		t.Errorf("unexpected link sends: %v", msgr.links)
	}
}

// TestDeliverByLink verifies a record carrying only a link goes out as a
// titled link message.
func TestDeliverByLink(t *testing.T) {
	msgr := &recordingMessenger{}
	d := NewDeliverer(msgr, nil)

	sent, err := d.Deliver(context.Background(), "chat-1", "sender-1", "tdk", model.MediaRecord{Title: "The Dark Knight", FileURL: "https://example.com/tdk"})
	if err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}
	if !sent {
		t.Fatal("expected delivery")
	}
	if len(msgr.links) != 1 || msgr.links[0] != "https://example.com/tdk" {
		t.Errorf("links = %v, want the record URL", msgr.links)
	}
}

// TestDeliverNoReference verifies a record with no usable reference is
// reported undeliverable without an error.
func TestDeliverNoReference(t *testing.T) {
	msgr := &recordingMessenger{}
	d := NewDeliverer(msgr, nil)

	sent, err := d.Deliver(context.Background(), "chat-1", "sender-1", "x", model.MediaRecord{Title: "Broken"})
	if err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}
	if sent {
		t.Error("expected no delivery for a reference-less record")
	}
}

// TestDeliverSuppressesRepeats verifies the same sender repeating the same
// query inside the window gets exactly one delivery, while a different
// sender is unaffected.
func TestDeliverSuppressesRepeats(t *testing.T) {
	msgr := &recordingMessenger{}
	d := NewDeliverer(msgr, NewSuppressor(time.Minute))
	rec := model.MediaRecord{Title: "Inception", MsgID: 101}
	ctx := context.Background()

	if sent, _ := d.Deliver(ctx, "chat-1", "sender-1", "inception", rec); !sent {
		t.Fatal("first delivery must go out")
	}
	if sent, _ := d.Deliver(ctx, "chat-1", "sender-1", "inception", rec); sent {
		t.Error("repeat within window must be suppressed")
	}
	if sent, _ := d.Deliver(ctx, "chat-1", "sender-2", "inception", rec); !sent {
		t.Error("a different sender must not be suppressed")
	}
	if len(msgr.forwards) != 2 {
		t.Errorf("forwards = %v, want two deliveries", msgr.forwards)
	}
}

// TestSuppressorNormalizedKey verifies suppression keys on the normalized
// query: cosmetic differences in the raw text still count as a repeat.
func TestSuppressorNormalizedKey(t *testing.T) {
	msgr := &recordingMessenger{}
	d := NewDeliverer(msgr, NewSuppressor(time.Minute))
	rec := model.MediaRecord{Title: "Inception", MsgID: 101}
	ctx := context.Background()

	if sent, _ := d.Deliver(ctx, "chat-1", "sender-1", "Inception (2010)", rec); !sent {
		t.Fatal("first delivery must go out")
	}
	if sent, _ := d.Deliver(ctx, "chat-1", "sender-1", "inception 2010 1080p", rec); sent {
		t.Error("normalized-equal repeat must be suppressed")
	}
}

// TestSuppressorWindowExpires verifies the suppression lifts after the
// window passes.
func TestSuppressorWindowExpires(t *testing.T) {
	s := NewSuppressor(50 * time.Millisecond)

	if !s.Allow("sender-1", "inception") {
		t.Fatal("first occurrence must be allowed")
	}
	if s.Allow("sender-1", "inception") {
		t.Fatal("repeat within window must be denied")
	}

	time.Sleep(120 * time.Millisecond)
	if !s.Allow("sender-1", "inception") {
		t.Error("occurrence after window must be allowed again")
	}
}

// TestParseCaption verifies title and link extraction from upload captions.
func TestParseCaption(t *testing.T) {
	cases := []struct {
		name      string
		caption   string
		wantTitle string
		wantLink  string
	}{
		{
			name:      "title and link on separate lines",
			caption:   "Inception 2010\nWatch here: https://example.com/inc",
			wantTitle: "Inception 2010",
			wantLink:  "https://example.com/inc",
		},
		{
			name:      "leading blank lines skipped",
			caption:   "\n\n  The Dark Knight  \n",
			wantTitle: "The Dark Knight",
			wantLink:  "",
		},
		{
			name:      "link only",
			caption:   "http://example.com/x",
			wantTitle: "http://example.com/x",
			wantLink:  "http://example.com/x",
		},
		{
			name:      "empty caption",
			caption:   "   \n  ",
			wantTitle: "",
			wantLink:  "",
		},
	}

	for _, tc := range cases {
		title, link := ParseCaption(tc.caption)
		if title != tc.wantTitle || link != tc.wantLink {
			t.Errorf("%s: ParseCaption = (%q, %q), want (%q, %q)", tc.name, title, link, tc.wantTitle, tc.wantLink)
		}
	}
}
