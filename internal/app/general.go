package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/subgatebot/subgate/core/buildinfo"
	coretelegram "github.com/subgatebot/subgate/core/telegram"
	"github.com/subgatebot/subgate/core/telegram/commands"
	tghelpers "github.com/subgatebot/subgate/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

const helpText = `📮 <b>Send me anything you want to share.</b>

Text, photos, videos, GIFs, audio, voice notes, documents and stickers all work. Albums are kept together.

After you send something I will ask whether to submit it with your name or anonymously. Forwarded messages keep their original attribution and cannot be anonymous.

The review team decides what gets published. You will get a message either way.`

const reviewHelpText = `🛠 <b>Review commands</b> — reply to a submission message:

/ok [comment] — approve and publish, optionally with an editor comment
/no [reason] — reject, optionally with a reason
/re [text] — open a reply session with the submitter (plain messages relay until /unre)
/echo &lt;text&gt; — send one message to the submitter without a session
/warn [reason] — warn the submitter (three warnings ban automatically)
/ban, /unban — block or unblock the submitter

Anywhere:
/unre — leave reply mode
/status — queue and configuration overview`

func (a *App) cmdStart(c tele.Context) error {
	if c.Chat() == nil || c.Chat().Type != tele.ChatPrivate {
		return nil
	}
	return tghelpers.SendHTML(c, helpText)
}

func (a *App) cmdHelp(c tele.Context) error {
	if a.inReviewGroup(c) {
		return tghelpers.SendHTML(c, reviewHelpText)
	}
	return tghelpers.SendHTML(c, helpText)
}

func (a *App) cmdReviewHelp(c tele.Context) error {
	return tghelpers.SendHTML(c, reviewHelpText)
}

func (a *App) cmdAbout(c tele.Context) error {
	a.mu.RLock()
	botName := a.botName
	a.mu.RUnlock()
	return tghelpers.SendHTML(c, fmt.Sprintf(
		"📮 <b>@%s</b> collects submissions, passes them through a review team and publishes the approved ones.\n\nSend /help to learn how to submit.",
		botName))
}

func (a *App) cmdVersion(c tele.Context) error {
	return c.Send(fmt.Sprintf("Version: %s (commit %s, built %s)",
		buildinfo.Version, buildinfo.Commit, buildinfo.Date))
}

// cmdStatus reports queue depth and the current configuration.
func (a *App) cmdStatus(c tele.Context) error {
	_, reg, _, _, _, agg := a.runtime()
	snap := a.settings.View()

	var b strings.Builder
	b.WriteString("📊 <b>Status</b>\n")
	fmt.Fprintf(&b, "Uptime: %s\n", time.Since(a.startAt).Round(time.Second))
	fmt.Fprintf(&b, "Pending submissions: %d\n", reg.Pending())
	fmt.Fprintf(&b, "Open media groups: %d\n", agg.PendingGroups())
	fmt.Fprintf(&b, "Awaiting anonymity choice: %d\n", a.choices.size())
	b.WriteString("\n⚙️ <b>Configuration</b>\n")
	if snap.ReviewGroupID != 0 {
		fmt.Fprintf(&b, "Review group: %d\n", snap.ReviewGroupID)
	} else {
		b.WriteString("Review group: not set\n")
	}
	switch {
	case snap.ChannelName != "":
		fmt.Fprintf(&b, "Channel: @%s\n", snap.ChannelName)
	case snap.ChannelID != 0:
		fmt.Fprintf(&b, "Channel: %d\n", snap.ChannelID)
	default:
		b.WriteString("Channel: not set\n")
	}
	fmt.Fprintf(&b, "Footer: %v\n", snap.FooterEnabled)
	if snap.ChatLink != "" {
		fmt.Fprintf(&b, "Chat link: %s\n", snap.ChatLink)
	}
	fmt.Fprintf(&b, "Blocked users: %d, users with warnings: %d", len(snap.Blocked), len(snap.Warnings))
	return tghelpers.SendHTML(c, b.String())
}

func (a *App) registerCommands(reg *coretelegram.Registry) {
	reg.RegisterCommand("/start", commands.Command{
		Handler:     a.cmdStart,
		Description: "How to submit content",
	})
	reg.RegisterCommand("/help", commands.Command{
		Handler:     a.cmdHelp,
		Description: "Show help",
	})
	reg.RegisterCommand("/about", commands.Command{
		Handler:     a.cmdAbout,
		Description: "What this bot does",
	})
	reg.RegisterCommand("/version", commands.Command{
		Handler:     a.cmdVersion,
		Description: "Show build version",
		Hidden:      true,
	})

	reg.RegisterCommand("/ok", commands.Command{
		Handler:     a.cmdApprove,
		Description: "Approve the replied-to submission",
		Hidden:      true,
	})
	reg.RegisterCommand("/no", commands.Command{
		Handler:     a.cmdReject,
		Description: "Reject the replied-to submission",
		Hidden:      true,
	})
	reg.RegisterCommand("/re", commands.Command{
		Handler:     a.cmdReplyMode,
		Description: "Open a reply session with the submitter",
		Hidden:      true,
	})
	reg.RegisterCommand("/unre", commands.Command{
		Handler:     a.cmdReplyModeOff,
		Description: "Leave reply mode",
		Hidden:      true,
	})
	reg.RegisterCommand("/echo", commands.Command{
		Handler:     a.cmdEcho,
		Description: "Send one message to the submitter",
		Hidden:      true,
	})
	reg.RegisterCommand("/warn", commands.Command{
		Handler:     a.cmdWarn,
		Description: "Warn the submitter",
		Hidden:      true,
	})
	reg.RegisterCommand("/ban", commands.Command{
		Handler:     a.cmdBan,
		Description: "Ban the submitter",
		Hidden:      true,
	})
	reg.RegisterCommand("/unban", commands.Command{
		Handler:     a.cmdUnban,
		Description: "Unban the submitter",
		Hidden:      true,
	})
	reg.RegisterCommand("/pwshelp", commands.Command{
		Handler:     a.cmdReviewHelp,
		Description: "Review command reference",
		Hidden:      true,
	})
	reg.RegisterCommand("/status", commands.Command{
		Handler:     a.cmdStatus,
		Description: "Queue and configuration overview",
		AdminOnly:   true,
	})

	reg.RegisterCommand("/setgroup", commands.Command{
		Handler:     a.cmdSetGroup,
		Description: "Bind this group as the review group",
		AdminOnly:   true,
	})
	reg.RegisterCommand("/setchannel", commands.Command{
		Handler:     a.cmdSetChannel,
		Description: "Set the publish channel",
		AdminOnly:   true,
	})
	reg.RegisterCommand("/setchatlink", commands.Command{
		Handler:     a.cmdSetChatLink,
		Description: "Set the discussion chat link",
		AdminOnly:   true,
	})
	reg.RegisterCommand("/setemoji", commands.Command{
		Handler:     a.cmdSetEmoji,
		Description: "Set the three footer emojis",
		AdminOnly:   true,
	})
	reg.RegisterCommand("/footer", commands.Command{
		Handler:     a.cmdFooter,
		Description: "Toggle the post footer",
		AdminOnly:   true,
	})
}

func (a *App) registerCallbacks(reg *coretelegram.Registry) error {
	bind := map[string]tele.HandlerFunc{
		cbSubmitReal: func(c tele.Context) error { return a.handleSubmitChoice(c, false, false) },
		cbSubmitAnon: func(c tele.Context) error { return a.handleSubmitChoice(c, true, false) },
		cbSubmitDrop: func(c tele.Context) error { return a.handleSubmitChoice(c, false, true) },
		cbReviewOK:   func(c tele.Context) error { return a.handleReviewDecision(c, true) },
		cbReviewNo:   func(c tele.Context) error { return a.handleReviewDecision(c, false) },
	}
	for key, h := range bind {
		if err := reg.RegisterCallback(key, h); err != nil {
			return err
		}
	}
	return nil
}
