// Package replymode lets a reviewer hold a direct-message session with a
// submitter. While a session is active every plain message from that
// reviewer is relayed verbatim to the session target; /echo relays once
// without touching session state.
package replymode

import (
	"context"
	"sync"

	"github.com/subgatebot/subgate/core/logger"
	"log/slog"
)

// Relayer delivers one text to one user. Satisfied by the notification
// dispatcher's synchronous relay path.
type Relayer interface {
	Relay(ctx context.Context, userID int64, text string) error
}

// Router keeps one session per reviewer. Entering again overwrites the
// previous target: last write wins, sessions never queue.
type Router struct {
	relay Relayer

	mu       sync.RWMutex
	sessions map[int64]int64 // reviewer id -> target user id
}

// NewRouter builds a router relaying through r.
func NewRouter(r Relayer) *Router {
	return &Router{relay: r, sessions: make(map[int64]int64)}
}

// Enter opens (or redirects) the reviewer's session.
func (r *Router) Enter(ctx context.Context, reviewerID, targetID int64) {
	r.mu.Lock()
	prev, had := r.sessions[reviewerID]
	r.sessions[reviewerID] = targetID
	r.mu.Unlock()

	if had && prev != targetID {
		logger.Info(ctx, "replymode", "session.redirected",
			slog.Int64("reviewer_id", reviewerID),
			slog.Int64("from", prev),
			slog.Int64("to", targetID),
		)
		return
	}
	logger.Info(ctx, "replymode", "session.opened",
		slog.Int64("reviewer_id", reviewerID),
		slog.Int64("target_id", targetID),
	)
}

// Exit closes the reviewer's session. Reports whether one was open.
func (r *Router) Exit(ctx context.Context, reviewerID int64) bool {
	r.mu.Lock()
	_, had := r.sessions[reviewerID]
	delete(r.sessions, reviewerID)
	r.mu.Unlock()

	if had {
		logger.Info(ctx, "replymode", "session.closed", slog.Int64("reviewer_id", reviewerID))
	}
	return had
}

// Target returns the reviewer's current session target, if any.
func (r *Router) Target(reviewerID int64) (int64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.sessions[reviewerID]
	return t, ok
}

// RouteIfActive relays text to the reviewer's session target. Reports
// false without side effects when no session is open, so the caller can
// fall through to normal handling.
func (r *Router) RouteIfActive(ctx context.Context, reviewerID int64, text string) (bool, error) {
	target, ok := r.Target(reviewerID)
	if !ok {
		return false, nil
	}
	if err := r.relay.Relay(ctx, target, text); err != nil {
		return true, err
	}
	return true, nil
}

// Echo relays once without creating or touching a session.
func (r *Router) Echo(ctx context.Context, targetID int64, text string) error {
	return r.relay.Relay(ctx, targetID, text)
}
