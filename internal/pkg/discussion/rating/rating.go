// Package rating implements the post-discussion peer rating workflow: score
// collection against the server-supplied rubric, completeness validation and
// a submit-at-most-once HTTP hand-off. Its state is deliberately independent
// of the session lifecycle machine; transcript events keep flowing while a
// submission is in flight.
package rating

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Score bounds of the rubric. Values outside the range are rejected, not
// clamped.
const (
	MinScore = 1
	MaxScore = 5
)

// SubmissionState tracks the one-shot submission guard.
type SubmissionState int

const (
	NotSubmitted SubmissionState = iota
	Submitting
	Submitted
	Failed
)

func (s SubmissionState) String() string {
	switch s {
	case NotSubmitted:
		return "not submitted"
	case Submitting:
		return "submitting"
	case Submitted:
		return "submitted"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// ErrIncompleteRatings blocks submission while any peer×criterion cell is
// unset.
var ErrIncompleteRatings = errors.New("rating: all peers must be scored on every criterion")

// ErrMissingDiscussionID blocks submission when the end event never delivered
// a discussion id.
var ErrMissingDiscussionID = errors.New("rating: discussion id is not known")

// ErrSubmissionInFlight reports a second submit while the first is pending.
var ErrSubmissionInFlight = errors.New("rating: submission already in flight")

// ErrScoreOutOfRange reports a score outside MinScore..MaxScore.
var ErrScoreOutOfRange = errors.New("rating: score must be between 1 and 5")

// SubmissionError wraps a failed HTTP submission. The server-provided message
// is surfaced verbatim when present; the task remains resubmittable.
type SubmissionError struct {
	Message string
	Err     error
}

func (e *SubmissionError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("rating: submission failed: %s", e.Message)
	}
	return fmt.Sprintf("rating: submission failed: %v", e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// Submitter is the HTTP collaborator that delivers the final ratings.
type Submitter interface {
	SubmitFinalRatings(ctx context.Context, discussionID string, ratings map[string]map[string]int) error
}

// Task collects per-peer, per-criterion scores for one ended discussion.
// Created when an end or rating_info event carries both users and criteria;
// discarded when the room is left. Safe for concurrent use: the HTTP
// submission runs off the UI loop, so all state sits behind a mutex. The
// lock is never held across the submitter call.
type Task struct {
	mu       sync.Mutex
	peers    []string
	criteria []string
	scores   map[string]map[string]int
	state    SubmissionState
	reason   string
}

// NewTask builds a task for the given participants, excluding self, keeping
// the server's criterion order.
func NewTask(self string, users, criteria []string) *Task {
	t := &Task{
		criteria: append([]string(nil), criteria...),
		scores:   make(map[string]map[string]int),
	}
	seen := make(map[string]struct{}, len(users))
	for _, u := range users {
		if u == self || u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		t.peers = append(t.peers, u)
	}
	return t
}

// Peers returns the users to be rated, in arrival order.
func (t *Task) Peers() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.peers...)
}

// Criteria returns the rubric in server order.
func (t *Task) Criteria() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.criteria...)
}

// State reports the submission state.
func (t *Task) State() SubmissionState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// FailureReason returns the surfaced message of the last failed submission.
func (t *Task) FailureReason() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reason
}

// Score returns the stored value for one cell, or 0 when unset.
func (t *Task) Score(peer, criterion string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.scores[peer][criterion]
}

// SetScore records one cell of the grid. Unknown peers or criteria and
// out-of-range values are rejected and leave the grid untouched, as are
// edits while a submission is in flight.
func (t *Task) SetScore(peer, criterion string, value int) error {
	if value < MinScore || value > MaxScore {
		return ErrScoreOutOfRange
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == Submitting {
		return ErrSubmissionInFlight
	}
	if !contains(t.peers, peer) {
		return fmt.Errorf("rating: unknown peer %q", peer)
	}
	if !contains(t.criteria, criterion) {
		return fmt.Errorf("rating: unknown criterion %q", criterion)
	}
	if t.scores[peer] == nil {
		t.scores[peer] = make(map[string]int)
	}
	t.scores[peer][criterion] = value
	return nil
}

// IsComplete reports whether every peer has a score for every criterion.
func (t *Task) IsComplete() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.isCompleteLocked()
}

func (t *Task) isCompleteLocked() bool {
	for _, p := range t.peers {
		for _, c := range t.criteria {
			if t.scores[p][c] < MinScore {
				return false
			}
		}
	}
	return true
}

// Submit validates the grid and hands it to the submitter exactly once.
// After a success further calls are no-ops returning nil; after a failure the
// task stays resubmittable. The submitter sees a snapshot taken under the
// lock, and the Submitting guard holds across the whole call.
func (t *Task) Submit(ctx context.Context, discussionID string, submitter Submitter) error {
	t.mu.Lock()
	switch t.state {
	case Submitted:
		t.mu.Unlock()
		return nil
	case Submitting:
		t.mu.Unlock()
		return ErrSubmissionInFlight
	}
	if !t.isCompleteLocked() {
		t.mu.Unlock()
		return ErrIncompleteRatings
	}
	if discussionID == "" {
		t.mu.Unlock()
		return ErrMissingDiscussionID
	}
	t.state = Submitting
	grid := t.snapshotLocked()
	t.mu.Unlock()

	err := submitter.SubmitFinalRatings(ctx, discussionID, grid)

	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		t.state = Failed
		var sub *SubmissionError
		if errors.As(err, &sub) {
			t.reason = sub.Message
			return err
		}
		t.reason = err.Error()
		return &SubmissionError{Err: err}
	}
	t.state = Submitted
	t.reason = ""
	return nil
}

func (t *Task) snapshotLocked() map[string]map[string]int {
	out := make(map[string]map[string]int, len(t.scores))
	for peer, row := range t.scores {
		cp := make(map[string]int, len(row))
		for c, v := range row {
			cp[c] = v
		}
		out[peer] = cp
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
