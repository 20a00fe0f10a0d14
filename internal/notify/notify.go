// Package notify delivers decision notices to submitters. Outcome notices
// ride the async dispatcher: they must never block or fail the already
// committed moderation transition. Reply-mode relays go out synchronously
// so the reviewer learns immediately when the submitter is unreachable.
package notify

import (
	"context"
	"fmt"

	"github.com/subgatebot/subgate/core/logger"
	"github.com/subgatebot/subgate/core/telegram/format"
	"github.com/subgatebot/subgate/core/telegram/sender"
	"github.com/subgatebot/subgate/internal/gateway"
	"github.com/subgatebot/subgate/internal/warnings"
	"log/slog"
)

// Notifier formats and sends submitter-facing notices.
type Notifier struct {
	gw   gateway.Gateway
	disp *sender.Dispatcher
}

// New wires the notifier to the gateway and the async send queue.
func New(gw gateway.Gateway, disp *sender.Dispatcher) *Notifier {
	return &Notifier{gw: gw, disp: disp}
}

// Approved tells the submitter their item was published, with a link when
// one is available. replyTo anchors the notice to the submitter's original
// message so they see which submission was decided.
func (n *Notifier) Approved(ctx context.Context, userID int64, replyTo int, link, comment string) {
	text := "🎉 Your submission has been accepted!"
	if comment != "" {
		text += "\n\n" + format.Bold("Editor's note:") + " " + format.EscapeHTML(comment)
	}
	if link != "" {
		text += "\n\n" + format.Link(link, "View the post")
	}
	n.send(ctx, "notify_approved", userID, replyTo, text)
}

// Rejected tells the submitter their item was declined.
func (n *Notifier) Rejected(ctx context.Context, userID int64, replyTo int, reason string) {
	text := "😔 Sorry, your submission was not accepted."
	if reason != "" {
		text += "\n\n" + format.Bold("Reason:") + " " + format.EscapeHTML(reason)
	}
	n.send(ctx, "notify_rejected", userID, replyTo, text)
}

// Warned tells the submitter about a warning and how close they are to a
// ban.
func (n *Notifier) Warned(ctx context.Context, userID int64, count int, reason string) {
	text := fmt.Sprintf("⚠️ You have received a warning (%d/%d).", count, warnings.Threshold)
	if reason != "" {
		text += "\n\n" + format.Bold("Reason:") + " " + format.EscapeHTML(reason)
	}
	text += fmt.Sprintf("\n\nReaching %d warnings results in a ban.", warnings.Threshold)
	n.send(ctx, "notify_warned", userID, 0, text)
}

// Banned tells the submitter they can no longer submit.
func (n *Notifier) Banned(ctx context.Context, userID int64) {
	n.send(ctx, "notify_banned", userID, 0, "🚫 You have been banned from submitting.")
}

// Unbanned tells the submitter they may submit again.
func (n *Notifier) Unbanned(ctx context.Context, userID int64) {
	n.send(ctx, "notify_unbanned", userID, 0, "✅ Your ban has been lifted. You may submit again.")
}

// Relay forwards one reviewer message to the submitter synchronously.
func (n *Notifier) Relay(ctx context.Context, userID int64, text string) error {
	full := "💬 " + format.Bold("Message from the review team:") + "\n\n" + format.EscapeHTML(text)
	_, err := n.gw.SendText(ctx, userID, full, gateway.SendOpts{HTML: true, NoPreview: true})
	return err
}

// send enqueues an outcome notice. Queue saturation is logged and dropped:
// a missed courtesy notice must not stall moderation.
func (n *Notifier) send(ctx context.Context, action string, userID int64, replyTo int, text string) {
	err := n.disp.Enqueue(ctx, action, "sendMessage", func() error {
		_, serr := n.gw.SendText(ctx, userID, text, gateway.SendOpts{ReplyTo: replyTo, HTML: true, NoPreview: true})
		return serr
	})
	if err != nil {
		logger.Warn(ctx, "notify", "notice.dropped",
			slog.String("action", action),
			slog.Int64("user_id", userID),
			slog.Any("error", err),
		)
	}
}
