// Package review decides the fate of pending submissions. Approval
// publishes all parts to the bound channel with optional attribution,
// reviewer comment and footer; rejection only records the decision. Either
// way the first transition wins and everything later sees AlreadyResolved.
package review

import (
	"context"
	"time"

	"github.com/subgatebot/subgate/core/logger"
	"github.com/subgatebot/subgate/core/telegram/format"
	"github.com/subgatebot/subgate/internal/content"
	"github.com/subgatebot/subgate/internal/gateway"
	"github.com/subgatebot/subgate/internal/registry"
	"github.com/subgatebot/subgate/internal/store"
	"log/slog"
)

// Outcome reports what a decision did. PublishErr is set when the decision
// was recorded but channel delivery failed; the transition is never rolled
// back for delivery trouble, the reviewer just gets told.
type Outcome struct {
	Sub        *content.Submission
	Status     content.Status
	PostLink   string
	PublishErr error
}

// Machine applies moderation decisions.
type Machine struct {
	gw      gateway.Gateway
	reg     *registry.Registry
	rt      *store.Runtime
	botName string
}

// NewMachine wires the decision flow.
func NewMachine(gw gateway.Gateway, reg *registry.Registry, rt *store.Runtime, botName string) *Machine {
	return &Machine{gw: gw, reg: reg, rt: rt, botName: botName}
}

// Approve resolves the submission behind refMsgID, transitions it to
// Approved and publishes it. Publishing requires a bound channel; that is
// checked before the transition so a misconfigured bot never burns a
// submission's single decision. Concurrent decisions race on the
// submission's own transition, not on machine state.
func (m *Machine) Approve(ctx context.Context, refMsgID int, reviewerID int64, reviewerName, comment string) (Outcome, error) {
	sub, err := m.reg.Resolve(refMsgID)
	if err != nil {
		return Outcome{}, err
	}

	snap := m.rt.View()
	if snap.ChannelID == 0 {
		return Outcome{}, content.ErrNotConfigured
	}

	decision := content.Decision{
		ReviewerID:   reviewerID,
		ReviewerName: reviewerName,
		Note:         comment,
		At:           time.Now(),
	}
	if err := sub.Resolve(content.StatusApproved, decision); err != nil {
		return Outcome{}, err
	}

	out := Outcome{Sub: sub, Status: content.StatusApproved}
	refs, perr := m.publish(ctx, sub, snap, comment, reviewerName)
	if perr != nil {
		logger.Warn(ctx, "review", "publish.failed",
			slog.String("submission_id", sub.ID.String()),
			slog.Any("error", perr),
		)
		out.PublishErr = perr
		return out, nil
	}

	if len(refs) > 0 {
		out.PostLink = PostLink(snap.ChannelID, snap.ChannelName, refs[0].MessageID)
	}
	logger.Info(ctx, "review", "submission.approved",
		slog.String("submission_id", sub.ID.String()),
		slog.Int64("reviewer_id", reviewerID),
		slog.String("post_link", out.PostLink),
	)
	return out, nil
}

// Reject resolves the submission behind refMsgID and transitions it to
// Rejected. Nothing is published.
func (m *Machine) Reject(ctx context.Context, refMsgID int, reviewerID int64, reviewerName, reason string) (Outcome, error) {
	sub, err := m.reg.Resolve(refMsgID)
	if err != nil {
		return Outcome{}, err
	}

	decision := content.Decision{
		ReviewerID:   reviewerID,
		ReviewerName: reviewerName,
		Note:         reason,
		At:           time.Now(),
	}
	if err := sub.Resolve(content.StatusRejected, decision); err != nil {
		return Outcome{}, err
	}

	logger.Info(ctx, "review", "submission.rejected",
		slog.String("submission_id", sub.ID.String()),
		slog.Int64("reviewer_id", reviewerID),
	)
	return Outcome{Sub: sub, Status: content.StatusRejected}, nil
}

// publish sends all parts to the channel in origin order, appending the
// extra block (comment, attribution, footer) to the first message.
func (m *Machine) publish(ctx context.Context, sub *content.Submission, snap store.Snapshot, comment, reviewerName string) ([]gateway.MessageRef, error) {
	extra := m.extraBlock(sub, snap, comment, reviewerName)

	if albumable(sub.Parts) {
		return m.gw.SendAlbum(ctx, snap.ChannelID, sub.Parts, extra)
	}

	var refs []gateway.MessageRef
	for i, p := range sub.Parts {
		e := ""
		if i == 0 {
			e = extra
		}
		ref, err := m.gw.SendPart(ctx, snap.ChannelID, p, e, gateway.SendOpts{HTML: true})
		if err != nil {
			return refs, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// extraBlock assembles the HTML appended to a published post: the reviewer
// comment, then attribution for non-anonymous submissions, then the footer.
func (m *Machine) extraBlock(sub *content.Submission, snap store.Snapshot, comment, reviewerName string) string {
	var b []byte
	if comment != "" {
		b = append(b, "\n\n"...)
		b = append(b, format.Bold("Editor ("+reviewerName+"):")...)
		b = append(b, '\n')
		b = append(b, format.EscapeHTML(comment)...)
	}
	if !sub.Anonymous {
		b = append(b, "\n\nvia "...)
		if sub.Forwarded && sub.OriginTag != "" {
			b = append(b, format.EscapeHTML(sub.OriginTag)...)
		} else {
			b = append(b, format.UserLink(sub.Owner, sub.OwnerName)...)
		}
	}
	b = append(b, Footer(snap, m.botName)...)
	return string(b)
}

func albumable(parts []content.Part) bool {
	if len(parts) < 2 {
		return false
	}
	for _, p := range parts {
		if !p.Kind.Albumable() {
			return false
		}
	}
	return true
}
