package session

import (
	"fmt"
	"strings"

	discussion "go-parley/internal/pkg/discussion/domain"
)

// Transcript is the ordered log of messages and system annotations for one
// room membership. Order is insertion order, not timestamp order: jittered
// server timestamps are kept as delivered. The transcript is append-only
// except for the single pending→confirmed replacement and the removal of the
// stale waiting prompt when a discussion starts.
//
// It is mutated only from the session event loop, so it carries no lock.
type Transcript struct {
	entries []discussion.Message
}

// NewTranscript returns an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{}
}

// AppendSystem appends a server annotation. System entries are never
// reconciled.
func (t *Transcript) AppendSystem(msg discussion.Message) {
	t.entries = append(t.entries, msg)
}

// AppendOptimistic inserts a pending entry at the tail the moment the local
// user sends, before server confirmation, so the sender sees their own
// message without round-trip latency.
func (t *Transcript) AppendOptimistic(correlationID discussion.CorrelationID, author, body string) error {
	for _, m := range t.entries {
		if m.Pending && m.CorrelationID == correlationID {
			return fmt.Errorf("correlation id %s already pending", correlationID)
		}
	}
	msg, err := discussion.NewPendingMessage(correlationID, author, body)
	if err != nil {
		return err
	}
	t.entries = append(t.entries, msg)
	return nil
}

// Reconcile removes the pending entry matching correlationID, if any, and
// appends the confirmed entry at the tail. A confirmation with no matching
// pending entry is appended regardless: confirmations are never dropped.
func (t *Transcript) Reconcile(correlationID discussion.CorrelationID, confirmed discussion.Message) {
	if !correlationID.IsZero() {
		for i, m := range t.entries {
			if m.Pending && m.CorrelationID == correlationID {
				t.entries = append(t.entries[:i], t.entries[i+1:]...)
				break
			}
		}
	}
	confirmed.Pending = false
	confirmed.CorrelationID = ""
	t.entries = append(t.entries, confirmed)
}

// ApplyVoteUpdate mutates the tally of the message with the given server id
// in place. Unknown ids are a no-op.
func (t *Transcript) ApplyVoteUpdate(messageID string, up, down uint) {
	for i := range t.entries {
		if t.entries[i].ID == messageID {
			t.entries[i].Votes = discussion.Votes{Up: up, Down: down}
			return
		}
	}
}

// RemoveSystemNotes drops system annotations whose body contains substr.
// Used to clear the stale "type '+' to start" prompt once a discussion
// starts.
func (t *Transcript) RemoveSystemNotes(substr string) {
	kept := t.entries[:0]
	for _, m := range t.entries {
		if m.Kind == discussion.KindSystemNote && strings.Contains(m.Body, substr) {
			continue
		}
		kept = append(kept, m)
	}
	t.entries = kept
}

// Len reports the number of entries.
func (t *Transcript) Len() int { return len(t.entries) }

// Messages returns a copy of the entries in insertion order.
func (t *Transcript) Messages() []discussion.Message {
	out := make([]discussion.Message, len(t.entries))
	copy(out, t.entries)
	return out
}
