package review

import (
	"strings"
	"testing"

	"github.com/subgatebot/subgate/internal/store"
)

func TestFooterDisabled(t *testing.T) {
	snap := store.Snapshot{ChannelID: -100123, ChannelName: "chan"}
	if got := Footer(snap, "bot"); got != "" {
		t.Fatalf("disabled footer must be empty, got %q", got)
	}
}

func TestFooterSegments(t *testing.T) {
	snap := store.Snapshot{
		FooterEnabled: true,
		ChannelID:     -1001234567890,
		ChannelName:   "mychannel",
		ChatLink:      "https://t.me/mychat",
	}
	got := Footer(snap, "subgate_bot")

	for _, want := range []string{
		`<a href="https://t.me/subgate_bot">Submit</a>`,
		`<a href="https://t.me/mychannel">Channel</a>`,
		`<a href="https://t.me/mychat">Chat</a>`,
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("footer missing %q:\n%s", want, got)
		}
	}
	if !strings.HasPrefix(got, "\n\n") {
		t.Fatalf("footer must be separated from the body: %q", got)
	}
}

func TestFooterChatSegmentOnlyWhenConfigured(t *testing.T) {
	snap := store.Snapshot{
		FooterEnabled: true,
		ChannelID:     -100123,
		ChannelName:   "chan",
	}
	got := Footer(snap, "bot")
	if strings.Contains(got, "Chat</a>") {
		t.Fatalf("chat segment must be absent without a chat link: %q", got)
	}
	if !strings.Contains(got, "Channel</a>") {
		t.Fatalf("channel segment must always be present: %q", got)
	}
}

func TestFooterCustomEmojis(t *testing.T) {
	snap := store.Snapshot{
		FooterEnabled: true,
		ChannelName:   "chan",
		Emojis:        []string{"🦆", "🦆", "🦆"},
	}
	got := Footer(snap, "bot")
	if !strings.Contains(got, "🦆 <a") {
		t.Fatalf("custom emoji not applied: %q", got)
	}
	if strings.Contains(got, "📮") {
		t.Fatalf("default emoji must be overridden: %q", got)
	}
}

func TestChannelAndPostLinks(t *testing.T) {
	cases := []struct {
		name      string
		channelID int64
		username  string
		wantChan  string
		wantPost  string
	}{
		{"public", -1001234567890, "mychannel", "https://t.me/mychannel", "https://t.me/mychannel/55"},
		{"public at-prefixed", 0, "@mychannel", "https://t.me/mychannel", "https://t.me/mychannel/55"},
		{"private", -1001234567890, "", "https://t.me/c/1234567890", "https://t.me/c/1234567890/55"},
		{"unbound", 0, "", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ChannelLink(tc.channelID, tc.username); got != tc.wantChan {
				t.Fatalf("ChannelLink: got %q, want %q", got, tc.wantChan)
			}
			if got := PostLink(tc.channelID, tc.username, 55); got != tc.wantPost {
				t.Fatalf("PostLink: got %q, want %q", got, tc.wantPost)
			}
		})
	}
}
