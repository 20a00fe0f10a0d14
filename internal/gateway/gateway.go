// Package gateway abstracts outbound Telegram delivery so the moderation
// core can be exercised without a live bot.
package gateway

import (
	"context"

	"github.com/subgatebot/subgate/internal/content"
)

// MessageRef identifies a delivered message inside a chat.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// SendOpts carries the per-message knobs the core needs; everything else is
// left to the transport defaults.
type SendOpts struct {
	ReplyTo   int
	HTML      bool
	NoPreview bool
	Silent    bool
}

// Gateway is the outbound side of the messaging transport.
type Gateway interface {
	// SendText delivers a text message and returns its reference.
	SendText(ctx context.Context, chatID int64, text string, opts SendOpts) (MessageRef, error)
	// SendPart delivers a single content part. The extra string is appended
	// to the part's caption (or text) and rendered as HTML when non-empty.
	SendPart(ctx context.Context, chatID int64, part content.Part, extra string, opts SendOpts) (MessageRef, error)
	// SendAlbum delivers multi-part content as one media group, preserving
	// order and spoiler flags. extra is appended to the first caption.
	SendAlbum(ctx context.Context, chatID int64, parts []content.Part, extra string) ([]MessageRef, error)
	// EditText replaces the text of a previously sent message.
	EditText(ctx context.Context, ref MessageRef, text string, opts SendOpts) error
}
