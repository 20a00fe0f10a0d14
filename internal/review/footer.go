package review

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/subgatebot/subgate/core/telegram/format"
	"github.com/subgatebot/subgate/internal/store"
)

// defaultEmojis decorate the footer segments when none are configured.
var defaultEmojis = []string{"📮", "📣", "💬"}

// Footer renders the trailing promo line appended to published posts:
// a submit link, the channel link, and - when configured - the chat link.
// Returns "" when the footer is disabled.
func Footer(snap store.Snapshot, botName string) string {
	if !snap.FooterEnabled {
		return ""
	}

	var segs []string
	if botName != "" {
		segs = append(segs, emoji(snap.Emojis, 0)+format.Link("https://t.me/"+botName, "Submit"))
	}
	if link := ChannelLink(snap.ChannelID, snap.ChannelName); link != "" {
		segs = append(segs, emoji(snap.Emojis, 1)+format.Link(link, "Channel"))
	}
	if snap.ChatLink != "" {
		segs = append(segs, emoji(snap.Emojis, 2)+format.Link(snap.ChatLink, "Chat"))
	}
	if len(segs) == 0 {
		return ""
	}
	return "\n\n" + strings.Join(segs, " | ")
}

func emoji(configured []string, i int) string {
	set := configured
	if len(set) == 0 {
		set = defaultEmojis
	}
	if i < len(set) && set[i] != "" {
		return set[i] + " "
	}
	if i < len(defaultEmojis) {
		return defaultEmojis[i] + " "
	}
	return ""
}

// ChannelLink builds a t.me link to the channel itself: by public username
// when known, otherwise the private /c/ form.
func ChannelLink(channelID int64, channelName string) string {
	if channelName != "" {
		return "https://t.me/" + strings.TrimPrefix(channelName, "@")
	}
	if internal := internalChatID(channelID); internal != "" {
		return "https://t.me/c/" + internal
	}
	return ""
}

// PostLink builds a t.me link to a specific published message.
func PostLink(channelID int64, channelName string, messageID int) string {
	if channelName != "" {
		return fmt.Sprintf("https://t.me/%s/%d", strings.TrimPrefix(channelName, "@"), messageID)
	}
	if internal := internalChatID(channelID); internal != "" {
		return fmt.Sprintf("https://t.me/c/%s/%d", internal, messageID)
	}
	return ""
}

// internalChatID strips the -100 supergroup/channel marker Telegram
// prepends to API chat ids, yielding the id t.me/c/ links use.
func internalChatID(chatID int64) string {
	if chatID >= 0 {
		return ""
	}
	s := strconv.FormatInt(-chatID, 10)
	return strings.TrimPrefix(s, "100")
}
