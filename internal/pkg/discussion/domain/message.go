package discussion

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SystemAuthor is the sentinel identity attached to server-generated
// annotations (joins, leaves, timers, discussion boundaries).
const SystemAuthor = "system"

// MessageKind classifies transcript entries.
type MessageKind int16

const (
	KindChat MessageKind = iota
	KindSystemNote
	KindTimer
	KindDiscussionBoundary
)

func (k MessageKind) String() string {
	switch k {
	case KindChat:
		return "chat"
	case KindSystemNote:
		return "system"
	case KindTimer:
		return "timer"
	case KindDiscussionBoundary:
		return "boundary"
	default:
		return "unknown"
	}
}

// CorrelationID ties an optimistically inserted message to the server
// confirmation that later replaces it. It is a dedicated type rather than a
// bare string so it can never collide with a server-assigned message id.
type CorrelationID string

// NewCorrelationID returns a fresh client-generated correlation id.
func NewCorrelationID() CorrelationID {
	return CorrelationID("temp-" + uuid.NewString())
}

// ParseCorrelationID converts a wire tempId into a CorrelationID. Empty input
// yields the zero value, meaning "no correlation".
func ParseCorrelationID(s string) CorrelationID {
	return CorrelationID(strings.TrimSpace(s))
}

func (c CorrelationID) IsZero() bool { return c == "" }

func (c CorrelationID) String() string { return string(c) }

// Votes is the running tally attached to a chat message.
type Votes struct {
	Up   uint
	Down uint
}

// Message is one transcript entry. While Pending it carries only a
// CorrelationID; once the server confirms it, ID is set and the correlation id
// is cleared.
type Message struct {
	ID            string
	CorrelationID CorrelationID
	Kind          MessageKind
	Author        string
	Body          string
	CreatedAt     time.Time
	Votes         Votes
	Pending       bool
}

// NewSystemNote builds a server annotation entry attributed to the system
// identity regardless of what the frame carried.
func NewSystemNote(kind MessageKind, body string, at time.Time) Message {
	if at.IsZero() {
		at = time.Now()
	}
	return Message{
		Kind:      kind,
		Author:    SystemAuthor,
		Body:      body,
		CreatedAt: at,
	}
}

// NewPendingMessage builds the optimistic local entry for a just-sent chat
// message, before any server confirmation.
func NewPendingMessage(correlationID CorrelationID, author, body string) (Message, error) {
	body = strings.TrimSpace(body)
	if correlationID.IsZero() {
		return Message{}, errors.New("correlation id is required for a pending message")
	}
	if author == "" || body == "" {
		return Message{}, errors.New("author and body are required")
	}
	return Message{
		CorrelationID: correlationID,
		Kind:          KindChat,
		Author:        author,
		Body:          body,
		CreatedAt:     time.Now(),
		Pending:       true,
	}, nil
}

// Key returns the stable identity UI consumers may rely on across re-renders:
// the server id once confirmed, the correlation id while pending.
func (m Message) Key() string {
	if m.ID != "" {
		return m.ID
	}
	return m.CorrelationID.String()
}
