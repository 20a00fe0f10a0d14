package gateway

import (
	"context"
	"fmt"

	"github.com/subgatebot/subgate/core/logger"
	"github.com/subgatebot/subgate/core/telegram/format"
	"github.com/subgatebot/subgate/internal/content"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

// Telebot delivers messages through a live telebot instance. Bounded retry of
// transient transport failures happens below this layer, in the HTTP client.
type Telebot struct {
	bot *tele.Bot
}

// NewTelebot wraps a bot into the Gateway interface.
func NewTelebot(bot *tele.Bot) *Telebot {
	return &Telebot{bot: bot}
}

func sendOptions(opts SendOpts) *tele.SendOptions {
	so := &tele.SendOptions{
		DisableNotification:   opts.Silent,
		DisableWebPagePreview: opts.NoPreview,
		AllowWithoutReply:     true,
	}
	if opts.HTML {
		so.ParseMode = tele.ModeHTML
	}
	if opts.ReplyTo != 0 {
		so.ReplyTo = &tele.Message{ID: opts.ReplyTo}
	}
	return so
}

// mergeCaption joins a part's plain-text caption with appended HTML extra
// content. The caption is escaped whenever the result will be parsed as HTML.
func mergeCaption(cap, extra string) (string, bool) {
	if extra == "" {
		return cap, false
	}
	return format.EscapeHTML(cap) + extra, true
}

// sendable converts one part into the telebot payload for single delivery.
// The second return reports whether the payload must be sent in HTML mode.
func sendable(part content.Part, extra string) (interface{}, bool) {
	cap, html := mergeCaption(part.Caption, extra)
	file := tele.File{FileID: part.FileID}
	switch part.Kind {
	case content.KindText:
		if extra != "" {
			return format.EscapeHTML(part.Text) + extra, true
		}
		return part.Text, false
	case content.KindPhoto:
		return &tele.Photo{File: file, Caption: cap, HasSpoiler: part.Spoiler}, html
	case content.KindVideo:
		return &tele.Video{File: file, Caption: cap, HasSpoiler: part.Spoiler}, html
	case content.KindAnimation:
		return &tele.Animation{File: file, Caption: cap, HasSpoiler: part.Spoiler}, html
	case content.KindAudio:
		return &tele.Audio{File: file, Caption: cap}, html
	case content.KindVoice:
		return &tele.Voice{File: file, Caption: cap}, html
	case content.KindDocument:
		return &tele.Document{File: file, Caption: cap}, html
	case content.KindSticker:
		return &tele.Sticker{File: file}, false
	}
	return nil, false
}

// SendText implements Gateway.
func (t *Telebot) SendText(ctx context.Context, chatID int64, text string, opts SendOpts) (MessageRef, error) {
	msg, err := t.bot.Send(tele.ChatID(chatID), text, sendOptions(opts))
	if err != nil {
		logger.Warn(ctx, "gateway", "send.text.fail",
			slog.Int64("chat_id", chatID),
			slog.String("err", err.Error()),
		)
		return MessageRef{}, fmt.Errorf("send text to %d: %w", chatID, err)
	}
	return MessageRef{ChatID: chatID, MessageID: msg.ID}, nil
}

// SendPart implements Gateway.
func (t *Telebot) SendPart(ctx context.Context, chatID int64, part content.Part, extra string, opts SendOpts) (MessageRef, error) {
	payload, html := sendable(part, extra)
	if payload == nil {
		return MessageRef{}, fmt.Errorf("send part to %d: unsupported kind %s", chatID, part.Kind)
	}
	if html {
		opts.HTML = true
	}
	msg, err := t.bot.Send(tele.ChatID(chatID), payload, sendOptions(opts))
	if err != nil {
		logger.Warn(ctx, "gateway", "send.part.fail",
			slog.Int64("chat_id", chatID),
			slog.String("kind", part.Kind.String()),
			slog.String("err", err.Error()),
		)
		return MessageRef{}, fmt.Errorf("send %s to %d: %w", part.Kind, chatID, err)
	}
	return MessageRef{ChatID: chatID, MessageID: msg.ID}, nil
}

// SendAlbum implements Gateway. Parts that cannot be grouped are skipped;
// the caller validated album composition at intake. A non-empty extra forces
// HTML mode for the whole album, so every caption gets escaped.
func (t *Telebot) SendAlbum(ctx context.Context, chatID int64, parts []content.Part, extra string) ([]MessageRef, error) {
	html := extra != ""
	album := make(tele.Album, 0, len(parts))
	for _, part := range parts {
		if !part.Kind.Albumable() {
			continue
		}
		cap := part.Caption
		if html {
			cap = format.EscapeHTML(cap)
			if len(album) == 0 {
				cap += extra
			}
		}
		file := tele.File{FileID: part.FileID}
		switch part.Kind {
		case content.KindPhoto:
			album = append(album, &tele.Photo{File: file, Caption: cap, HasSpoiler: part.Spoiler})
		case content.KindVideo:
			album = append(album, &tele.Video{File: file, Caption: cap, HasSpoiler: part.Spoiler})
		}
	}
	if len(album) == 0 {
		return nil, fmt.Errorf("send album to %d: no groupable parts", chatID)
	}

	so := &tele.SendOptions{AllowWithoutReply: true}
	if html {
		so.ParseMode = tele.ModeHTML
	}
	msgs, err := t.bot.SendAlbum(tele.ChatID(chatID), album, so)
	if err != nil {
		logger.Warn(ctx, "gateway", "send.album.fail",
			slog.Int64("chat_id", chatID),
			slog.Int("parts", len(album)),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("send album to %d: %w", chatID, err)
	}
	refs := make([]MessageRef, 0, len(msgs))
	for _, m := range msgs {
		refs = append(refs, MessageRef{ChatID: chatID, MessageID: m.ID})
	}
	return refs, nil
}

// EditText implements Gateway.
func (t *Telebot) EditText(ctx context.Context, ref MessageRef, text string, opts SendOpts) error {
	stored := tele.StoredMessage{
		ChatID:    ref.ChatID,
		MessageID: fmt.Sprintf("%d", ref.MessageID),
	}
	if _, err := t.bot.Edit(stored, text, sendOptions(opts)); err != nil {
		logger.Warn(ctx, "gateway", "edit.fail",
			slog.Int64("chat_id", ref.ChatID),
			slog.Int("message_id", ref.MessageID),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("edit message %d in %d: %w", ref.MessageID, ref.ChatID, err)
	}
	return nil
}
