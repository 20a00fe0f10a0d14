// Package registry tracks in-flight submissions across the active review
// window. Registering a submission delivers its parts to the review group
// and indexes every resulting message id back to the submission, so
// reviewer commands replying to any part resolve the same item.
package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/subgatebot/subgate/core/logger"
	"github.com/subgatebot/subgate/internal/content"
	"github.com/subgatebot/subgate/internal/gateway"
	"log/slog"
)

// Registry keeps pending submissions in memory. State is process-lifetime:
// a restart closes the review window for everything in flight.
type Registry struct {
	gw gateway.Gateway

	mu     sync.RWMutex
	byID   map[string]*content.Submission // submission id -> submission
	byRef  map[int]*content.Submission    // review-group message id -> submission
	refIDs map[string][]int               // submission id -> review-group message ids
}

// New builds an empty registry delivering through gw.
func New(gw gateway.Gateway) *Registry {
	return &Registry{
		gw:     gw,
		byID:   make(map[string]*content.Submission),
		byRef:  make(map[int]*content.Submission),
		refIDs: make(map[string][]int),
	}
}

// Register delivers the submission to the review group and indexes the
// resulting message ids. When delivery fails nothing is registered, so the
// caller can tell the submitter the service is not ready.
func (r *Registry) Register(ctx context.Context, sub *content.Submission, groupID int64) ([]gateway.MessageRef, error) {
	if groupID == 0 {
		return nil, content.ErrNotConfigured
	}

	var refs []gateway.MessageRef
	var err error
	if albumable(sub.Parts) {
		refs, err = r.gw.SendAlbum(ctx, groupID, sub.Parts, "")
	} else {
		for _, p := range sub.Parts {
			ref, serr := r.gw.SendPart(ctx, groupID, p, "", gateway.SendOpts{})
			if serr != nil {
				err = serr
				break
			}
			refs = append(refs, ref)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("deliver to review group: %w", err)
	}
	if len(refs) == 0 {
		return nil, fmt.Errorf("deliver to review group: no messages sent")
	}

	r.mu.Lock()
	id := sub.ID.String()
	r.byID[id] = sub
	for _, ref := range refs {
		r.byRef[ref.MessageID] = sub
		r.refIDs[id] = append(r.refIDs[id], ref.MessageID)
	}
	r.mu.Unlock()

	logger.Info(ctx, "registry", "submission.registered",
		slog.String("submission_id", id),
		slog.Int64("user_id", sub.Owner),
		slog.Int("parts", len(sub.Parts)),
		slog.Int("review_msgs", len(refs)),
	)
	return refs, nil
}

// Attach indexes an extra review-group message id (the status card) to an
// already-registered submission, so replies to it resolve too.
func (r *Registry) Attach(sub *content.Submission, messageID int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := sub.ID.String()
	if _, ok := r.byID[id]; !ok {
		return
	}
	r.byRef[messageID] = sub
	r.refIDs[id] = append(r.refIDs[id], messageID)
}

// Resolve finds the submission a review-group message id points at.
func (r *Registry) Resolve(messageID int) (*content.Submission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sub, ok := r.byRef[messageID]
	if !ok {
		return nil, content.ErrNotFound
	}
	return sub, nil
}

// Refs returns the review-group message ids recorded for the submission.
func (r *Registry) Refs(sub *content.Submission) []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]int, len(r.refIDs[sub.ID.String()]))
	copy(out, r.refIDs[sub.ID.String()])
	return out
}

// Pending counts submissions still awaiting a decision.
func (r *Registry) Pending() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, sub := range r.byID {
		if sub.Status() == content.StatusPending {
			n++
		}
	}
	return n
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
