// Package session implements the discussion session core: the typed event
// decoder, the ordered transcript with optimistic reconciliation, the
// lifecycle state machine and the outbound command encoder. All mutation goes
// through Session.Apply on a single event loop; UI layers only read.
package session

import (
	"context"
	"time"

	discussion "go-parley/internal/pkg/discussion/domain"
	"go-parley/internal/pkg/discussion/rating"
)

// WaitingPrompt is the annotation shown while the room waits for the ready
// check. Cleared from the transcript once the discussion starts.
const WaitingPrompt = "Type '+' when you are ready to start"

// Sender delivers an encoded outbound frame to the connection adapter.
type Sender interface {
	Send(payload []byte) error
}

// Session owns the per-room-membership state: transcript, lifecycle and the
// rating task once one is spawned. Construct on room join, discard on leave;
// never share across rooms.
type Session struct {
	username string

	transcript *Transcript
	lifecycle  *Lifecycle
	ratingTask *rating.Task

	sender  Sender
	observe func(error)
	closed  bool
}

// Option configures a Session.
type Option func(*Session)

// WithErrorObserver routes non-fatal errors (dropped frames, send failures)
// to the given callback instead of discarding them.
func WithErrorObserver(fn func(error)) Option {
	return func(s *Session) { s.observe = fn }
}

// NewSession constructs the state for a fresh room membership. The transcript
// opens with the waiting prompt annotation.
func NewSession(username string, sender Sender, opts ...Option) *Session {
	s := &Session{
		username:   username,
		transcript: NewTranscript(),
		lifecycle:  NewLifecycle(),
		sender:     sender,
		observe:    func(error) {},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.transcript.AppendSystem(discussion.NewSystemNote(discussion.KindSystemNote, WaitingPrompt, time.Time{}))
	return s
}

// Username returns the local participant identity.
func (s *Session) Username() string { return s.username }

// Transcript exposes the ordered message log for rendering.
func (s *Session) Transcript() *Transcript { return s.transcript }

// Lifecycle exposes the phase machine for rendering and input gating.
func (s *Session) Lifecycle() *Lifecycle { return s.lifecycle }

// RatingTask returns the active rating task, or nil before one is spawned.
func (s *Session) RatingTask() *rating.Task { return s.ratingTask }

// HandleFrame decodes one raw inbound frame and applies it. Decode failures
// are reported to the error observer and the frame is dropped; nothing here
// is fatal to the connection.
func (s *Session) HandleFrame(raw []byte) {
	if s.closed {
		return
	}
	ev, err := DecodeFrame(raw)
	if err != nil {
		s.observe(err)
		return
	}
	s.Apply(ev)
}

// Apply advances the session state by one typed event. Events are processed
// strictly in arrival order; the caller serializes invocations.
func (s *Session) Apply(ev Event) {
	if s.closed {
		return
	}
	switch e := ev.(type) {
	case SystemEvent:
		s.transcript.AppendSystem(discussion.NewSystemNote(discussion.KindSystemNote, e.Body, e.At))
	case DiscussionStartEvent:
		s.transcript.AppendSystem(discussion.NewSystemNote(discussion.KindSystemNote, e.Body, e.At))
		s.transcript.RemoveSystemNotes(WaitingPrompt)
		s.lifecycle.Start()
	case TimerEvent:
		s.transcript.AppendSystem(discussion.NewSystemNote(discussion.KindTimer, e.Body, e.At))
	case ChatEvent:
		s.transcript.Reconcile(e.CorrelationID, discussion.Message{
			ID:        e.ID,
			Kind:      discussion.KindChat,
			Author:    e.Author,
			Body:      e.Body,
			CreatedAt: e.At,
			Votes:     discussion.Votes{Up: e.Likes, Down: e.Dislikes},
		})
	case VoteUpdateEvent:
		s.transcript.ApplyVoteUpdate(e.MessageID, e.Likes, e.Dislikes)
	case DiscussionEndEvent:
		s.transcript.AppendSystem(discussion.NewSystemNote(discussion.KindDiscussionBoundary, e.Body, e.At))
		s.lifecycle.End(e.DiscussionID)
		if len(e.Users) > 0 && len(e.Criteria) > 0 {
			s.ratingTask = rating.NewTask(s.username, e.Users, e.Criteria)
			s.lifecycle.OpenRating()
		}
	case RatingInfoEvent:
		s.ratingTask = rating.NewTask(s.username, e.Users, e.Criteria)
		s.lifecycle.OpenRating()
	}
}

// SubmitRatings validates and submits the rating task through the HTTP
// collaborator. Submission state lives on the task, independent of the
// lifecycle machine; transcript events keep flowing while the call is in
// flight.
func (s *Session) SubmitRatings(ctx context.Context, submitter rating.Submitter) error {
	if s.ratingTask == nil {
		return ErrNoRatingTask
	}
	return s.ratingTask.Submit(ctx, s.lifecycle.DiscussionID(), submitter)
}

// Close discards the session. Late frames and command sends become no-ops; an
// in-flight rating submission is not cancelled, its result is simply ignored.
func (s *Session) Close() {
	s.closed = true
	s.ratingTask = nil
}
