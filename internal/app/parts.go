package app

import (
	"fmt"

	"github.com/subgatebot/subgate/internal/content"

	tele "gopkg.in/telebot.v4"
)

// extractPart maps an inbound Telegram message onto a content part.
// Returns ok=false for update kinds the submission pipeline does not accept
// (contacts, polls, locations and the like).
func extractPart(m *tele.Message) (content.Part, bool) {
	if m == nil {
		return content.Part{}, false
	}

	part := content.Part{Sequence: m.ID}
	switch {
	case m.Photo != nil:
		part.Kind = content.KindPhoto
		part.FileID = m.Photo.FileID
		part.Caption = m.Caption
		part.Spoiler = m.HasMediaSpoiler
	case m.Video != nil:
		part.Kind = content.KindVideo
		part.FileID = m.Video.FileID
		part.Caption = m.Caption
		part.Spoiler = m.HasMediaSpoiler
	case m.Animation != nil:
		part.Kind = content.KindAnimation
		part.FileID = m.Animation.FileID
		part.Caption = m.Caption
		part.Spoiler = m.HasMediaSpoiler
	case m.Audio != nil:
		part.Kind = content.KindAudio
		part.FileID = m.Audio.FileID
		part.Caption = m.Caption
	case m.Voice != nil:
		part.Kind = content.KindVoice
		part.FileID = m.Voice.FileID
		part.Caption = m.Caption
	case m.Document != nil:
		part.Kind = content.KindDocument
		part.FileID = m.Document.FileID
		part.Caption = m.Caption
	case m.Sticker != nil:
		part.Kind = content.KindSticker
		part.FileID = m.Sticker.FileID
	case m.Text != "":
		part.Kind = content.KindText
		part.Text = m.Text
	default:
		return content.Part{}, false
	}
	return part, true
}

// groupKey derives the aggregation key for a message. Empty for standalone
// messages, which bypass the buffer.
func groupKey(m *tele.Message) string {
	if m == nil || m.AlbumID == "" {
		return ""
	}
	return fmt.Sprintf("%d:%s", m.Chat.ID, m.AlbumID)
}

// isForwarded reports whether the message carries a forward origin.
func isForwarded(m *tele.Message) bool {
	if m == nil {
		return false
	}
	return m.OriginalSender != nil || m.OriginalChat != nil || m.OriginalSenderName != ""
}

// originTag renders a display label for the forward origin, used for
// attribution when the submitter keeps the source visible.
func originTag(m *tele.Message) string {
	switch {
	case m == nil:
		return ""
	case m.OriginalChat != nil && m.OriginalChat.Title != "":
		return m.OriginalChat.Title
	case m.OriginalSender != nil:
		return displayName(m.OriginalSender)
	case m.OriginalSenderName != "":
		return m.OriginalSenderName
	}
	return ""
}

// displayName renders a user's visible name, preferring the full name over
// the handle.
func displayName(u *tele.User) string {
	if u == nil {
		return ""
	}
	name := u.FirstName
	if u.LastName != "" {
		name += " " + u.LastName
	}
	if name == "" {
		name = u.Username
	}
	if name == "" {
		name = fmt.Sprintf("user %d", u.ID)
	}
	return name
}
