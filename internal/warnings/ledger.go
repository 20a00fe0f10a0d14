// Package warnings maintains per-user warning counts and the sender
// blocklist. Reaching the warning threshold escalates to a ban exactly
// once; manual bans and unbans never touch the counts.
package warnings

import (
	"context"
	"sync"

	"github.com/subgatebot/subgate/core/logger"
	"github.com/subgatebot/subgate/internal/store"
	"log/slog"
)

// Threshold is the warning count at which a user is banned automatically.
const Threshold = 3

// Ledger serializes warning and blocklist mutations over the shared
// settings runtime. The mutex makes the count/escalation check atomic
// against concurrent reviewer commands on the same user.
type Ledger struct {
	mu sync.Mutex
	rt *store.Runtime
}

// NewLedger wraps the settings runtime.
func NewLedger(rt *store.Runtime) *Ledger {
	return &Ledger{rt: rt}
}

// Warn increments the user's warning count. When the new count reaches the
// threshold and the user is not yet blocked, the user is banned and
// autoBanned is true; warns past the threshold keep counting but never ban
// a second time.
func (l *Ledger) Warn(ctx context.Context, userID int64) (count int, autoBanned bool, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	err = l.rt.Update(ctx, func(s *store.Snapshot) {
		s.Warnings[userID]++
		count = s.Warnings[userID]
		if count >= Threshold && !s.Blocked[userID] {
			s.Blocked[userID] = true
			autoBanned = true
		}
	})
	if err != nil {
		return count, autoBanned, err
	}

	logger.Info(ctx, "warnings", "user.warned",
		slog.Int64("user_id", userID),
		slog.Int("count", count),
		slog.Bool("auto_banned", autoBanned),
	)
	return count, autoBanned, nil
}

// Count returns the user's current warning count.
func (l *Ledger) Count(userID int64) int {
	return l.rt.View().Warnings[userID]
}

// IsBanned reports blocklist membership.
func (l *Ledger) IsBanned(userID int64) bool {
	return l.rt.IsBlocked(userID)
}

// Ban adds the user to the blocklist. Banning an already-banned user is a
// no-op and reports changed=false.
func (l *Ledger) Ban(ctx context.Context, userID int64) (changed bool, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	err = l.rt.Update(ctx, func(s *store.Snapshot) {
		if !s.Blocked[userID] {
			s.Blocked[userID] = true
			changed = true
		}
	})
	if err != nil {
		return changed, err
	}
	if changed {
		logger.Info(ctx, "warnings", "user.banned", slog.Int64("user_id", userID))
	}
	return changed, nil
}

// Unban removes the user from the blocklist. The warning count is kept.
func (l *Ledger) Unban(ctx context.Context, userID int64) (changed bool, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	err = l.rt.Update(ctx, func(s *store.Snapshot) {
		if s.Blocked[userID] {
			delete(s.Blocked, userID)
			changed = true
		}
	})
	if err != nil {
		return changed, err
	}
	if changed {
		logger.Info(ctx, "warnings", "user.unbanned", slog.Int64("user_id", userID))
	}
	return changed, nil
}
