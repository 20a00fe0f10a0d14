package app

import (
	"context"
	"fmt"

	"github.com/subgatebot/subgate/core/logger"
	"github.com/subgatebot/subgate/core/telegram/format"
	"github.com/subgatebot/subgate/core/telegram/keyboard"
	"github.com/subgatebot/subgate/internal/content"
	"github.com/subgatebot/subgate/internal/review"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

// Callback actions on the review-group status card.
const (
	cbReviewOK = "rv_ok"
	cbReviewNo = "rv_no"
)

// sendReviewCard posts the status card under the forwarded content and
// indexes it so replies to the card resolve the submission too.
func (a *App) sendReviewCard(ctx context.Context, sub *content.Submission, firstRefID int) {
	a.mu.RLock()
	bot := a.bot
	a.mu.RUnlock()
	groupID := a.settings.ReviewGroupID()
	if bot == nil || groupID == 0 {
		return
	}

	markup := keyboard.InlineButtonsRows([]keyboard.InlineBtn{
		{Text: "✅ Approve", Unique: cbReviewOK},
		{Text: "🚫 Reject", Unique: cbReviewNo},
	})
	opts := &tele.SendOptions{
		ParseMode:         tele.ModeHTML,
		ReplyTo:           &tele.Message{ID: firstRefID, Chat: &tele.Chat{ID: groupID}},
		AllowWithoutReply: true,
	}

	msg, err := bot.Send(tele.ChatID(groupID), reviewCardText(sub), markup, opts)
	if err != nil {
		logger.Warn(ctx, "review", "card.send_failed",
			slog.String("submission_id", sub.ID.String()),
			slog.Any("error", err),
		)
		return
	}

	_, reg, _, _, _, _ := a.runtime()
	reg.Attach(sub, msg.ID)
}

func reviewCardText(sub *content.Submission) string {
	return fmt.Sprintf(
		"📨 %s\n\n<b>From:</b> %s (%d)\n<b>Source:</b> %s\n<b>Parts:</b> %d\n<b>Status:</b> ⏳ pending\n\nReply with /ok, /no, /re, /warn or use the buttons.",
		format.Bold("New submission"),
		format.UserLink(sub.Owner, sub.OwnerName),
		sub.Owner,
		sourceLabel(sub),
		len(sub.Parts),
	)
}

func sourceLabel(sub *content.Submission) string {
	switch {
	case sub.Forwarded && sub.OriginTag != "":
		return "forwarded from " + format.EscapeHTML(sub.OriginTag)
	case sub.Forwarded:
		return "forwarded"
	case sub.Anonymous:
		return "anonymous"
	default:
		return "with name"
	}
}

// outcomeCardText renders the decided state of the status card.
func outcomeCardText(out review.Outcome) string {
	sub := out.Sub
	d := sub.Decision()

	var head string
	switch {
	case out.Status == content.StatusApproved && out.PublishErr != nil:
		head = "⚠️ " + format.Bold("Submission accepted, but publishing failed")
	case out.Status == content.StatusApproved:
		head = "✅ " + format.Bold("Submission accepted")
	default:
		head = "🚫 " + format.Bold("Submission rejected")
	}

	text := fmt.Sprintf(
		"%s\n\n<b>From:</b> %s (%d)\n<b>Reviewer:</b> %s",
		head,
		format.UserLink(sub.Owner, sub.OwnerName),
		sub.Owner,
		format.UserLink(d.ReviewerID, d.ReviewerName),
	)
	if d.Note != "" {
		text += "\n<b>Note:</b> " + format.EscapeHTML(d.Note)
	}
	if out.PostLink != "" {
		text += "\n" + format.Link(out.PostLink, "View the post")
	}
	if out.PublishErr != nil {
		text += "\n<b>Error:</b> " + format.EscapeHTML(out.PublishErr.Error())
	}
	return text
}
