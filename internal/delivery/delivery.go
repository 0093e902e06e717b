// internal/delivery/delivery.go
// Package delivery resolves a matched record into an outbound action on a
// chat transport. It owns the fallback order between the two reference
// types and the repeat-query suppression that keeps a chatty requester from
// flooding the transport.
package delivery

import (
	"context"
	"log/slog"

	"github.com/sarabot/sara-catalog-go/internal/match"
	"github.com/sarabot/sara-catalog-go/internal/model"
)

// Messenger is the outbound chat transport. Implementations deliver either
// by forwarding a stored position from the source channel or by sending a
// titled link.
type Messenger interface {
	// ForwardByRef relays the stored message position to the destination chat.
	ForwardByRef(ctx context.Context, chatID string, msgID int64) error

	// SendByLink sends the record's title and direct link to the destination chat.
	SendByLink(ctx context.Context, chatID, title, link string) error
}

// LogMessenger writes deliveries to the structured log instead of a chat
// transport. It is the default when no transport is configured and the
// implementation used by tests.
type LogMessenger struct{}

// ForwardByRef logs the forward instead of performing it.
func (LogMessenger) ForwardByRef(ctx context.Context, chatID string, msgID int64) error {
	slog.Info("delivery forward", "chat_id", chatID, "msg_id", msgID)
	return nil
}

// SendByLink logs the link send instead of performing it.
func (LogMessenger) SendByLink(ctx context.Context, chatID, title, link string) error {
	slog.Info("delivery link", "chat_id", chatID, "title", title, "link", link)
	return nil
}

// Deliverer routes one matched record to a destination chat. Records carry
// exactly one reference, so the routing is a branch, not a retry chain: a
// forwardable position goes out as a forward, a link goes out as a titled
// message, and a record with neither is reported undeliverable.
type Deliverer struct {
	messenger  Messenger
	suppressor *Suppressor
}

// NewDeliverer builds a Deliverer. A nil suppressor disables repeat-query
// suppression.
func NewDeliverer(m Messenger, s *Suppressor) *Deliverer {
	return &Deliverer{messenger: m, suppressor: s}
}

// Deliver sends the record to the chat, or reports that the sender's repeat
// of the same query was suppressed. The bool result is true when a message
// actually went out.
func (d *Deliverer) Deliver(ctx context.Context, chatID, senderID, query string, rec model.MediaRecord) (bool, error) {
	if d.suppressor != nil && !d.suppressor.Allow(senderID, match.Normalize(query)) {
		slog.Debug("delivery suppressed", "chat_id", chatID, "sender_id", senderID)
		return false, nil
	}

	switch {
	case rec.HasMsgID():
		if err := d.messenger.ForwardByRef(ctx, chatID, rec.MsgID); err != nil {
			return false, err
		}
	case rec.FileURL != "":
		if err := d.messenger.SendByLink(ctx, chatID, rec.Title, rec.FileURL); err != nil {
			return false, err
		}
	default:
		slog.Warn("record has no usable delivery reference", "title", rec.Title)
		return false, nil
	}
	return true, nil
}
