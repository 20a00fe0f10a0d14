// Package store persists the bot's moderation settings: the bound review
// group and target channel, footer configuration, the sender blocklist and
// per-user warning counts. Two backends exist, a JSON file and Postgres;
// both hold the same document.
package store

import "context"

// Snapshot is the full persisted state. Values are copied on every read so
// callers can never alias the stored document.
type Snapshot struct {
	ReviewGroupID int64           `json:"review_group_id"`
	ChannelID     int64           `json:"channel_id"`
	ChannelName   string          `json:"channel_name,omitempty"`
	ChatLink      string          `json:"chat_link,omitempty"`
	FooterEnabled bool            `json:"footer_enabled"`
	Emojis        []string        `json:"emojis,omitempty"`
	Blocked       map[int64]bool  `json:"blocked,omitempty"`
	Warnings      map[int64]int   `json:"warnings,omitempty"`
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := s
	if s.Emojis != nil {
		out.Emojis = append([]string(nil), s.Emojis...)
	}
	if s.Blocked != nil {
		out.Blocked = make(map[int64]bool, len(s.Blocked))
		for k, v := range s.Blocked {
			out.Blocked[k] = v
		}
	}
	if s.Warnings != nil {
		out.Warnings = make(map[int64]int, len(s.Warnings))
		for k, v := range s.Warnings {
			out.Warnings[k] = v
		}
	}
	return out
}

func (s *Snapshot) ensureMaps() {
	if s.Blocked == nil {
		s.Blocked = make(map[int64]bool)
	}
	if s.Warnings == nil {
		s.Warnings = make(map[int64]int)
	}
}

// Store loads and saves the settings document.
type Store interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, s Snapshot) error
}
