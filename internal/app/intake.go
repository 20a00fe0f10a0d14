package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/subgatebot/subgate/core/logger"
	"github.com/subgatebot/subgate/core/telegram/callbacks"
	tghelpers "github.com/subgatebot/subgate/core/telegram/helpers"
	"github.com/subgatebot/subgate/core/telegram/keyboard"
	"github.com/subgatebot/subgate/internal/aggregator"
	"github.com/subgatebot/subgate/internal/content"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

// Callback actions on the submitter's anonymity prompt.
const (
	cbSubmitReal = "sub_real"
	cbSubmitAnon = "sub_anon"
	cbSubmitDrop = "sub_cancel"
)

// Abandoned prompts are dropped after this window; a press on an expired
// prompt reports expiry to the submitter.
const (
	choiceTTL   = time.Hour
	choiceSweep = 10 * time.Minute
)

// choiceTable holds assembled bundles awaiting the submitter's anonymity
// choice. Message ids are per-chat sequences, so entries are keyed by
// (owner, prompt message id); the prompt lives in the owner's private chat.
type choiceTable struct {
	cache *gocache.Cache
}

func newChoiceTable() *choiceTable {
	return &choiceTable{cache: gocache.New(choiceTTL, choiceSweep)}
}

func choiceKey(owner int64, promptID int) string {
	return fmt.Sprintf("%d:%d", owner, promptID)
}

func (t *choiceTable) put(owner int64, promptID int, b aggregator.Bundle) {
	t.cache.SetDefault(choiceKey(owner, promptID), b)
}

// take removes and returns the bundle for a prompt. One-shot: a second
// button press on the same prompt finds nothing.
func (t *choiceTable) take(owner int64, promptID int) (aggregator.Bundle, bool) {
	key := choiceKey(owner, promptID)
	v, ok := t.cache.Get(key)
	if !ok {
		return aggregator.Bundle{}, false
	}
	t.cache.Delete(key)
	return v.(aggregator.Bundle), true
}

func (t *choiceTable) size() int {
	return t.cache.ItemCount()
}

// handleIncoming accepts submitter content from private chats and feeds it
// into the aggregation pipeline. Everything else (group chatter that is not
// a command or an active reply session) is ignored.
func (a *App) handleIncoming(c tele.Context) error {
	m := c.Message()
	if m == nil || c.Chat() == nil || c.Chat().Type != tele.ChatPrivate {
		return nil
	}
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	ctx := tghelpers.BuildContext(c)

	if a.ledger.IsBanned(sender.ID) {
		logger.Info(ctx, "intake", "submission.blocked", slog.Int64("user_id", sender.ID))
		return c.Send("🚫 You are banned from submitting.")
	}

	part, ok := extractPart(m)
	if !ok {
		return c.Send("❓ This content type is not supported. Send text, photos, videos, audio, files or stickers.")
	}

	_, _, _, _, _, agg := a.runtime()
	item := aggregator.Item{
		GroupKey:  groupKey(m),
		Owner:     sender.ID,
		OwnerName: displayName(sender),
		Forwarded: isForwarded(m),
		OriginTag: originTag(m),
		Part:      part,
	}
	if err := agg.Ingest(ctx, item); err != nil {
		logger.Error(ctx, "intake", "ingest.failed", slog.Any("error", err))
		return c.Send("⚠️ The service is shutting down, please try again later.")
	}
	return nil
}

// onBundle prompts the submitter to pick attribution for the assembled
// bundle. Forwarded content keeps its source, so the anonymity choice is
// not offered for it.
func (a *App) onBundle(ctx context.Context, b aggregator.Bundle) {
	a.mu.RLock()
	bot := a.bot
	a.mu.RUnlock()
	if bot == nil {
		return
	}

	owner := strconv.FormatInt(b.Owner, 10)

	var markup *tele.ReplyMarkup
	var text string
	if b.Forwarded {
		text = "📬 Got it! Forwarded content keeps its original source. Submit for review?"
		markup = keyboard.InlineButtonsRows(
			[]keyboard.InlineBtn{{Text: "✅ Submit", Unique: cbSubmitReal, Data: owner}},
			[]keyboard.InlineBtn{{Text: "❌ Cancel", Unique: cbSubmitDrop, Data: owner}},
		)
	} else {
		text = "📬 Got it! How should your submission be published?"
		markup = keyboard.InlineButtonsRows(
			[]keyboard.InlineBtn{{Text: "👤 With my name", Unique: cbSubmitReal, Data: owner}},
			[]keyboard.InlineBtn{{Text: "🕶 Anonymously", Unique: cbSubmitAnon, Data: owner}},
			[]keyboard.InlineBtn{{Text: "❌ Cancel", Unique: cbSubmitDrop, Data: owner}},
		)
	}

	opts := &tele.SendOptions{ReplyTo: &tele.Message{ID: b.Parts[0].Sequence, Chat: &tele.Chat{ID: b.Owner}}, AllowWithoutReply: true}
	msg, err := bot.Send(tele.ChatID(b.Owner), text, markup, opts)
	if err != nil {
		logger.Error(ctx, "intake", "prompt.failed",
			slog.Int64("user_id", b.Owner),
			slog.Any("error", err),
		)
		return
	}
	a.choices.put(b.Owner, msg.ID, b)
}

// handleSubmitChoice finalizes the submitter's button press: register for
// review or drop the bundle.
func (a *App) handleSubmitChoice(c tele.Context, anonymous, cancel bool) error {
	cb := c.Callback()
	if cb == nil || cb.Message == nil || cb.Message.Chat == nil {
		return nil
	}
	ctx := tghelpers.BuildContext(c)

	bundle, ok := a.choices.take(cb.Message.Chat.ID, cb.Message.ID)
	if !ok {
		return c.Edit("⌛ This submission prompt has expired.")
	}
	owner, err := callbacks.PayloadInt64(c)
	if err != nil || owner != bundle.Owner || c.Sender() == nil || c.Sender().ID != bundle.Owner {
		// Only the submitter may decide; put the bundle back.
		a.choices.put(bundle.Owner, cb.Message.ID, bundle)
		return nil
	}

	if cancel {
		logger.Info(ctx, "intake", "submission.cancelled", slog.Int64("user_id", bundle.Owner))
		return c.Edit("🗑 Submission cancelled.")
	}

	sub := content.NewSubmission(bundle.Owner, bundle.OwnerName, bundle.Parts)
	sub.Anonymous = anonymous && !bundle.Forwarded
	sub.Forwarded = bundle.Forwarded
	sub.OriginTag = bundle.OriginTag
	sub.OriginMsgID = int64(bundle.Parts[0].Sequence)

	_, reg, _, _, _, _ := a.runtime()
	refs, err := reg.Register(ctx, sub, a.settings.ReviewGroupID())
	if err != nil {
		if errors.Is(err, content.ErrNotConfigured) {
			return c.Edit("🛠 The service is not fully set up yet. Please try again later.")
		}
		logger.Error(ctx, "intake", "register.failed", slog.Any("error", err))
		return c.Edit("⚠️ Could not hand your submission to the review team. Please try again.")
	}

	a.sendReviewCard(ctx, sub, refs[0].MessageID)
	return c.Edit("✅ Submitted for review! You will hear back once it is decided.")
}
