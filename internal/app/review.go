package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tghelpers "github.com/subgatebot/subgate/core/telegram/helpers"
	"github.com/subgatebot/subgate/internal/content"
	"github.com/subgatebot/subgate/internal/gateway"
	"github.com/subgatebot/subgate/internal/review"

	tele "gopkg.in/telebot.v4"
)

var errNoReplyTarget = errors.New("command must reply to a submission message")

// replyTarget returns the message id of the replied-to submission message.
func replyTarget(c tele.Context) (int, error) {
	m := c.Message()
	if m == nil || m.ReplyTo == nil {
		return 0, errNoReplyTarget
	}
	return m.ReplyTo.ID, nil
}

// inReviewGroup reports whether the update originates from the configured
// review group.
func (a *App) inReviewGroup(c tele.Context) bool {
	groupID := a.settings.ReviewGroupID()
	return groupID != 0 && c.Chat() != nil && c.Chat().ID == groupID
}

func (a *App) requireReviewGroup(c tele.Context) bool {
	if a.inReviewGroup(c) {
		return true
	}
	_ = c.Send("❌ This command only works in the review group.")
	return false
}

func payload(c tele.Context) string {
	m := c.Message()
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m.Payload)
}

// blockedOwnerRefused rejects acting on content from a banned submitter.
// Decisions and relays require an /unban first; only /ban and /unban
// themselves stay available.
func (a *App) blockedOwnerRefused(c tele.Context, msgID int) bool {
	_, reg, _, _, _, _ := a.runtime()
	sub, err := reg.Resolve(msgID)
	if err != nil {
		return false
	}
	if !a.settings.IsBlocked(sub.Owner) {
		return false
	}
	_ = c.Send(fmt.Sprintf("⚠️ Submitter %d is banned; /unban them first.", sub.Owner))
	return true
}

func (a *App) cmdApprove(c tele.Context) error {
	if !a.requireReviewGroup(c) {
		return nil
	}
	target, err := replyTarget(c)
	if err != nil {
		return c.Send("❌ Reply to a submission message with /ok [comment].")
	}
	if a.blockedOwnerRefused(c, target) {
		return nil
	}
	ctx := tghelpers.BuildContext(c)

	_, _, machine, _, _, _ := a.runtime()
	out, err := machine.Approve(ctx, target, c.Sender().ID, displayName(c.Sender()), payload(c))
	if err != nil {
		return a.reportDecisionError(c, err)
	}
	return a.finalizeDecision(ctx, c, out)
}

func (a *App) cmdReject(c tele.Context) error {
	if !a.requireReviewGroup(c) {
		return nil
	}
	target, err := replyTarget(c)
	if err != nil {
		return c.Send("❌ Reply to a submission message with /no [reason].")
	}
	if a.blockedOwnerRefused(c, target) {
		return nil
	}
	ctx := tghelpers.BuildContext(c)

	_, _, machine, _, _, _ := a.runtime()
	out, err := machine.Reject(ctx, target, c.Sender().ID, displayName(c.Sender()), payload(c))
	if err != nil {
		return a.reportDecisionError(c, err)
	}
	return a.finalizeDecision(ctx, c, out)
}

// handleReviewDecision carries the button-triggered equivalents of /ok and
// /no. The pressed card is itself an indexed reference.
func (a *App) handleReviewDecision(c tele.Context, approve bool) error {
	cb := c.Callback()
	if cb == nil || cb.Message == nil {
		return nil
	}
	if !a.inReviewGroup(c) {
		return nil
	}
	if a.blockedOwnerRefused(c, cb.Message.ID) {
		return nil
	}
	ctx := tghelpers.BuildContext(c)

	_, _, machine, _, _, _ := a.runtime()
	var out review.Outcome
	var err error
	if approve {
		out, err = machine.Approve(ctx, cb.Message.ID, c.Sender().ID, displayName(c.Sender()), "")
	} else {
		out, err = machine.Reject(ctx, cb.Message.ID, c.Sender().ID, displayName(c.Sender()), "")
	}
	if err != nil {
		return a.reportDecisionError(c, err)
	}
	return a.finalizeDecision(ctx, c, out)
}

// finalizeDecision updates the status card, notifies the submitter and
// acknowledges the reviewer.
func (a *App) finalizeDecision(ctx context.Context, c tele.Context, out review.Outcome) error {
	gw, reg, _, notifier, _, _ := a.runtime()
	sub := out.Sub

	refs := reg.Refs(sub)
	if groupID := a.settings.ReviewGroupID(); groupID != 0 && len(refs) > 0 {
		card := gateway.MessageRef{ChatID: groupID, MessageID: refs[len(refs)-1]}
		_ = gw.EditText(ctx, card, outcomeCardText(out), gateway.SendOpts{HTML: true, NoPreview: true})
	}

	d := sub.Decision()
	if out.Status == content.StatusApproved {
		notifier.Approved(ctx, sub.Owner, int(sub.OriginMsgID), out.PostLink, d.Note)
	} else {
		notifier.Rejected(ctx, sub.Owner, int(sub.OriginMsgID), d.Note)
	}

	if out.PublishErr != nil {
		return c.Send(fmt.Sprintf("⚠️ Decision recorded, but publishing failed: %s", out.PublishErr))
	}
	return nil
}

func (a *App) reportDecisionError(c tele.Context, err error) error {
	switch {
	case errors.Is(err, content.ErrNotFound):
		return c.Send("❌ That message is not a tracked submission.")
	case errors.Is(err, content.ErrAlreadyResolved):
		return c.Send("ℹ️ This submission has already been decided.")
	case errors.Is(err, content.ErrNotConfigured):
		return c.Send("🛠 No publish channel configured. Run /setchannel first.")
	default:
		return c.Send(fmt.Sprintf("⚠️ Operation failed: %s", err))
	}
}

// resolveTargetUser maps the replied-to submission message to its owner.
func (a *App) resolveTargetUser(c tele.Context) (*content.Submission, error) {
	target, err := replyTarget(c)
	if err != nil {
		return nil, err
	}
	_, reg, _, _, _, _ := a.runtime()
	return reg.Resolve(target)
}

func (a *App) cmdReplyMode(c tele.Context) error {
	if !a.requireReviewGroup(c) {
		return nil
	}
	sub, err := a.resolveTargetUser(c)
	if err != nil {
		return c.Send("❌ Reply to a submission message with /re [text].")
	}
	if a.settings.IsBlocked(sub.Owner) {
		return c.Send(fmt.Sprintf("⚠️ Submitter %d is banned; /unban them first.", sub.Owner))
	}
	ctx := tghelpers.BuildContext(c)

	_, _, _, _, sessions, _ := a.runtime()
	sessions.Enter(ctx, c.Sender().ID, sub.Owner)

	if text := payload(c); text != "" {
		if err := sessions.Echo(ctx, sub.Owner, text); err != nil {
			return c.Send(fmt.Sprintf("⚠️ Could not deliver the message: %s", err))
		}
	}
	return c.Send("💬 Reply mode on: your plain messages here now go to this submitter. Use /unre to stop.")
}

func (a *App) cmdReplyModeOff(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	_, _, _, _, sessions, _ := a.runtime()
	if sessions.Exit(ctx, c.Sender().ID) {
		return c.Send("💬 Reply mode off.")
	}
	return c.Send("ℹ️ Reply mode was not active.")
}

func (a *App) cmdEcho(c tele.Context) error {
	if !a.requireReviewGroup(c) {
		return nil
	}
	sub, err := a.resolveTargetUser(c)
	if err != nil {
		return c.Send("❌ Reply to a submission message with /echo <text>.")
	}
	if a.settings.IsBlocked(sub.Owner) {
		return c.Send(fmt.Sprintf("⚠️ Submitter %d is banned; /unban them first.", sub.Owner))
	}
	text := payload(c)
	if text == "" {
		return c.Send("❌ Usage: /echo <text>.")
	}
	ctx := tghelpers.BuildContext(c)

	_, _, _, _, sessions, _ := a.runtime()
	if err := sessions.Echo(ctx, sub.Owner, text); err != nil {
		return c.Send(fmt.Sprintf("⚠️ Could not deliver the message: %s", err))
	}
	return c.Send("💬 Delivered.")
}

// relaySessionText decides whether a plain message belongs to an active
// reply session and relays it. Only review-group messages are candidates:
// a reviewer's private chat with the bot stays a submission channel even
// while they hold a session. Returns a notice to show the reviewer when
// the relay is refused or fails.
func (a *App) relaySessionText(ctx context.Context, chatID, senderID int64, text string) (handled bool, notice string) {
	groupID := a.settings.ReviewGroupID()
	if groupID == 0 || chatID != groupID {
		return false, ""
	}
	_, _, _, _, sessions, _ := a.runtime()
	if sessions == nil {
		return false, ""
	}
	target, active := sessions.Target(senderID)
	if !active {
		return false, ""
	}
	if a.settings.IsBlocked(target) {
		return true, fmt.Sprintf("⚠️ Submitter %d is banned; /unban them first.", target)
	}
	if _, err := sessions.RouteIfActive(ctx, senderID, text); err != nil {
		return true, fmt.Sprintf("⚠️ Could not deliver the message: %s", err)
	}
	return true, ""
}

// interceptReplySession wires relaySessionText before the plain-text
// intake path.
func (a *App) interceptReplySession(c tele.Context) (bool, error) {
	if c.Sender() == nil || c.Chat() == nil {
		return false, nil
	}
	ctx := tghelpers.BuildContext(c)
	handled, notice := a.relaySessionText(ctx, c.Chat().ID, c.Sender().ID, c.Text())
	if notice != "" {
		return handled, c.Send(notice)
	}
	return handled, nil
}

func (a *App) cmdWarn(c tele.Context) error {
	if !a.requireReviewGroup(c) {
		return nil
	}
	sub, err := a.resolveTargetUser(c)
	if err != nil {
		return c.Send("❌ Reply to a submission message with /warn [reason].")
	}
	ctx := tghelpers.BuildContext(c)
	reason := payload(c)

	count, autoBanned, err := a.ledger.Warn(ctx, sub.Owner)
	if err != nil {
		return c.Send(fmt.Sprintf("⚠️ Warning not saved: %s", err))
	}

	_, _, _, notifier, _, _ := a.runtime()
	notifier.Warned(ctx, sub.Owner, count, reason)
	if autoBanned {
		notifier.Banned(ctx, sub.Owner)
		return c.Send(fmt.Sprintf("⚠️ Warning %d recorded — user %d is now banned.", count, sub.Owner))
	}
	return c.Send(fmt.Sprintf("⚠️ Warning %d recorded for user %d.", count, sub.Owner))
}

func (a *App) cmdBan(c tele.Context) error {
	if !a.requireReviewGroup(c) {
		return nil
	}
	sub, err := a.resolveTargetUser(c)
	if err != nil {
		return c.Send("❌ Reply to a submission message with /ban.")
	}
	ctx := tghelpers.BuildContext(c)

	changed, err := a.ledger.Ban(ctx, sub.Owner)
	if err != nil {
		return c.Send(fmt.Sprintf("⚠️ Ban not saved: %s", err))
	}
	if !changed {
		return c.Send("ℹ️ This user is already banned.")
	}
	_, _, _, notifier, _, _ := a.runtime()
	notifier.Banned(ctx, sub.Owner)
	return c.Send(fmt.Sprintf("🚫 User %d banned.", sub.Owner))
}

func (a *App) cmdUnban(c tele.Context) error {
	if !a.requireReviewGroup(c) {
		return nil
	}
	sub, err := a.resolveTargetUser(c)
	if err != nil {
		return c.Send("❌ Reply to a submission message with /unban.")
	}
	ctx := tghelpers.BuildContext(c)

	changed, err := a.ledger.Unban(ctx, sub.Owner)
	if err != nil {
		return c.Send(fmt.Sprintf("⚠️ Unban not saved: %s", err))
	}
	if !changed {
		return c.Send("ℹ️ This user is not banned.")
	}
	_, _, _, notifier, _, _ := a.runtime()
	notifier.Unbanned(ctx, sub.Owner)
	return c.Send(fmt.Sprintf("✅ User %d unbanned.", sub.Owner))
}
