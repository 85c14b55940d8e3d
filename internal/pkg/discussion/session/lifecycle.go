package session

import (
	discussion "go-parley/internal/pkg/discussion/domain"
)

// Lifecycle tracks the discussion phase and the input-lockout state for one
// room membership. Transitions happen solely in response to decoded server
// events and are monotonic: no event ever moves the machine backwards, and
// Locked is terminal until the room is left.
type Lifecycle struct {
	phase        discussion.Phase
	inputLocked  bool
	ratingOpen   bool
	discussionID string
}

// NewLifecycle returns a machine in the Waiting phase with input unlocked.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{phase: discussion.PhaseWaiting}
}

func (l *Lifecycle) Phase() discussion.Phase { return l.phase }
func (l *Lifecycle) InputLocked() bool       { return l.inputLocked }
func (l *Lifecycle) RatingOpen() bool        { return l.ratingOpen }
func (l *Lifecycle) DiscussionID() string    { return l.discussionID }

// Start moves Waiting → Active and unlocks free-text input. Receiving a start
// while already Active (or later) is a no-op.
func (l *Lifecycle) Start() {
	if l.phase != discussion.PhaseWaiting {
		return
	}
	l.phase = discussion.PhaseActive
	l.inputLocked = false
}

// End moves Active → Ended and locks input. Side effects are idempotent:
// duplicate end events re-apply the lock and may fill in a discussion id that
// arrived late, but never regress the phase.
func (l *Lifecycle) End(discussionID string) {
	if l.phase == discussion.PhaseWaiting || l.phase == discussion.PhaseActive {
		l.phase = discussion.PhaseEnded
	}
	l.inputLocked = true
	if discussionID != "" {
		l.discussionID = discussionID
	}
}

// OpenRating flags that rating metadata has arrived and locks the machine.
// RatingOpen is a flag rather than a distinct phase, since rating_info can
// still arrive after the end event already opened the form.
func (l *Lifecycle) OpenRating() {
	l.ratingOpen = true
	l.Lock()
}

// Lock moves the machine into its terminal phase. Only leaving the room
// exits it.
func (l *Lifecycle) Lock() {
	l.phase = discussion.PhaseLocked
	l.inputLocked = true
}
