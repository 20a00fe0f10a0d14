package content

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound indicates a reference that does not map to a tracked submission.
	ErrNotFound = errors.New("submission not found")
	// ErrAlreadyResolved indicates a decision was already applied to the submission.
	ErrAlreadyResolved = errors.New("submission already resolved")
	// ErrNotConfigured indicates the review group or publish channel is not set up.
	ErrNotConfigured = errors.New("moderation target not configured")
	// ErrBlockedSender indicates the submitter is on the blocklist.
	ErrBlockedSender = errors.New("sender is blocked")
)

// Status is the lifecycle state of a submission. Transitions are one-shot:
// Pending may move to Approved or Rejected, terminal states never change.
type Status int

const (
	StatusPending Status = iota
	StatusApproved
	StatusRejected
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusApproved:
		return "approved"
	case StatusRejected:
		return "rejected"
	}
	return "unknown"
}

// Decision records who resolved a submission and with what note.
type Decision struct {
	ReviewerID   int64
	ReviewerName string
	Note         string
	At           time.Time
}

// Submission is one reviewable unit: a single message or a whole album.
// The mutex serializes decision attempts; all other fields are written once
// at registration and read-only afterwards.
type Submission struct {
	ID        uuid.UUID
	Owner     int64
	OwnerName string
	// OriginMsgID is the submitter-side message the outcome notice replies to.
	OriginMsgID int64
	Parts       []Part
	Anonymous   bool
	// Forwarded marks content the submitter relayed from elsewhere; such
	// submissions always carry attribution.
	Forwarded bool
	OriginTag string
	CreatedAt time.Time

	mu       sync.Mutex
	status   Status
	decision Decision
}

// NewSubmission builds a pending submission owned by the given user.
func NewSubmission(owner int64, ownerName string, parts []Part) *Submission {
	return &Submission{
		ID:        uuid.New(),
		Owner:     owner,
		OwnerName: ownerName,
		Parts:     parts,
		CreatedAt: time.Now(),
		status:    StatusPending,
	}
}

// Status returns the current lifecycle state.
func (s *Submission) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Decision returns the recorded decision; meaningful only once resolved.
func (s *Submission) Decision() Decision {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.decision
}

// Resolve applies a terminal state exactly once. The first caller wins;
// every later attempt gets ErrAlreadyResolved and causes no state change.
func (s *Submission) Resolve(to Status, d Decision) error {
	if to != StatusApproved && to != StatusRejected {
		return errors.New("resolve: target state must be terminal")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusPending {
		return ErrAlreadyResolved
	}
	s.status = to
	s.decision = d
	return nil
}

// FirstSequence returns the sequence key of the first part, or 0 when empty.
func (s *Submission) FirstSequence() int {
	if len(s.Parts) == 0 {
		return 0
	}
	return s.Parts[0].Sequence
}
