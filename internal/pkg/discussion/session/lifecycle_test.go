package session

import (
	"testing"

	discussion "go-parley/internal/pkg/discussion/domain"
)

func TestLifecycleHappyPath(t *testing.T) {
	l := NewLifecycle()
	if l.Phase() != discussion.PhaseWaiting {
		t.Fatalf("initial phase = %v, want waiting", l.Phase())
	}
	if l.InputLocked() {
		t.Fatal("input must start unlocked")
	}

	l.Start()
	if l.Phase() != discussion.PhaseActive {
		t.Fatalf("after start phase = %v, want active", l.Phase())
	}

	l.End("d1")
	if l.Phase() != discussion.PhaseEnded {
		t.Fatalf("after end phase = %v, want ended", l.Phase())
	}
	if !l.InputLocked() {
		t.Error("end must lock input")
	}
	if l.DiscussionID() != "d1" {
		t.Errorf("discussion id = %q, want d1", l.DiscussionID())
	}
}

func TestLifecycleStartIsIdempotent(t *testing.T) {
	l := NewLifecycle()
	l.Start()
	l.Start()
	if l.Phase() != discussion.PhaseActive {
		t.Fatalf("phase = %v, want active", l.Phase())
	}
}

func TestLifecycleDuplicateEndKeepsID(t *testing.T) {
	l := NewLifecycle()
	l.Start()
	l.End("d1")
	// a duplicate end without an id must not erase the stored one
	l.End("")
	if l.DiscussionID() != "d1" {
		t.Errorf("discussion id = %q, want d1", l.DiscussionID())
	}
	if l.Phase() != discussion.PhaseEnded {
		t.Errorf("phase = %v, want ended", l.Phase())
	}
}

func TestLifecycleLockedIsTerminal(t *testing.T) {
	l := NewLifecycle()
	l.Start()
	l.OpenRating()

	if l.Phase() != discussion.PhaseLocked {
		t.Fatalf("phase = %v, want locked", l.Phase())
	}
	if !l.RatingOpen() {
		t.Fatal("rating must be flagged open")
	}

	// no event returns the machine to active or waiting
	l.Start()
	if l.Phase() != discussion.PhaseLocked {
		t.Errorf("start after lock moved phase to %v", l.Phase())
	}
	l.End("late")
	if l.Phase() != discussion.PhaseLocked {
		t.Errorf("end after lock moved phase to %v", l.Phase())
	}
	if !l.InputLocked() {
		t.Error("input must stay locked")
	}
}

func TestLifecycleLockFromWaiting(t *testing.T) {
	// rating_info may arrive without a discussion ever starting locally
	l := NewLifecycle()
	l.Lock()
	if l.Phase() != discussion.PhaseLocked {
		t.Fatalf("phase = %v, want locked", l.Phase())
	}
}
