package app

import (
	"fmt"
	"strconv"
	"strings"

	tghelpers "github.com/subgatebot/subgate/core/telegram/helpers"
	"github.com/subgatebot/subgate/internal/store"

	tele "gopkg.in/telebot.v4"
)

// cmdSetGroup binds the group the command was sent in as the review group.
func (a *App) cmdSetGroup(c tele.Context) error {
	chat := c.Chat()
	if chat == nil || (chat.Type != tele.ChatGroup && chat.Type != tele.ChatSuperGroup) {
		return c.Send("❌ Run /setgroup inside the group that should receive submissions.")
	}
	ctx := tghelpers.BuildContext(c)
	if err := a.settings.Update(ctx, func(s *store.Snapshot) {
		s.ReviewGroupID = chat.ID
	}); err != nil {
		return c.Send(fmt.Sprintf("⚠️ Setting not saved: %s", err))
	}
	return c.Send("✅ This group now receives submissions for review.")
}

// cmdSetChannel stores the publish channel, given as @username or numeric id.
func (a *App) cmdSetChannel(c tele.Context) error {
	arg := payload(c)
	if arg == "" {
		return c.Send("❌ Usage: /setchannel <@channel|id>.")
	}
	ctx := tghelpers.BuildContext(c)

	// Resolve the chat so misconfigured targets fail here, not at publish.
	var chat *tele.Chat
	var err error
	if strings.HasPrefix(arg, "@") {
		chat, err = a.bot.ChatByUsername(arg)
	} else {
		var id int64
		id, err = strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return c.Send("❌ Channel must be an @username or a numeric id.")
		}
		chat, err = a.bot.ChatByID(id)
	}
	if err != nil {
		return c.Send(fmt.Sprintf("❌ Cannot access %s: %s", arg, err))
	}

	if err := a.settings.Update(ctx, func(s *store.Snapshot) {
		s.ChannelID = chat.ID
		s.ChannelName = chat.Username
	}); err != nil {
		return c.Send(fmt.Sprintf("⚠️ Setting not saved: %s", err))
	}
	return c.Send(fmt.Sprintf("✅ Approved submissions now publish to %s.", arg))
}

func (a *App) cmdSetChatLink(c tele.Context) error {
	link := payload(c)
	if link == "" {
		return c.Send("❌ Usage: /setchatlink <url>.")
	}
	if !strings.HasPrefix(link, "https://") && !strings.HasPrefix(link, "http://") {
		return c.Send("❌ The chat link must be a full URL.")
	}
	ctx := tghelpers.BuildContext(c)
	if err := a.settings.Update(ctx, func(s *store.Snapshot) {
		s.ChatLink = link
	}); err != nil {
		return c.Send(fmt.Sprintf("⚠️ Setting not saved: %s", err))
	}
	return c.Send("✅ Chat link saved for the post footer.")
}

// cmdSetEmoji replaces the three footer emojis: submit, channel, chat.
func (a *App) cmdSetEmoji(c tele.Context) error {
	parts := strings.Fields(payload(c))
	if len(parts) != 3 {
		return c.Send("❌ Usage: /setemoji <submit> <channel> <chat> — exactly three emojis.")
	}
	ctx := tghelpers.BuildContext(c)
	if err := a.settings.Update(ctx, func(s *store.Snapshot) {
		s.Emojis = parts
	}); err != nil {
		return c.Send(fmt.Sprintf("⚠️ Setting not saved: %s", err))
	}
	return c.Send("✅ Footer emojis updated.")
}

func (a *App) cmdFooter(c tele.Context) error {
	arg := strings.ToLower(payload(c))
	var enable bool
	switch arg {
	case "on":
		enable = true
	case "off":
		enable = false
	default:
		return c.Send("❌ Usage: /footer on|off.")
	}
	ctx := tghelpers.BuildContext(c)
	if err := a.settings.Update(ctx, func(s *store.Snapshot) {
		s.FooterEnabled = enable
	}); err != nil {
		return c.Send(fmt.Sprintf("⚠️ Setting not saved: %s", err))
	}
	if enable {
		return c.Send("✅ Post footer enabled.")
	}
	return c.Send("✅ Post footer disabled.")
}
