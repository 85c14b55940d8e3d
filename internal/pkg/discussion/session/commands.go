package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	discussion "go-parley/internal/pkg/discussion/domain"
)

// Vote directions on the wire.
const (
	VoteUp   = 1
	VoteDown = -1
)

var (
	// ErrNotWaiting rejects a ready check outside the Waiting phase.
	ErrNotWaiting = errors.New("session: ready check is only valid while waiting")
	// ErrInputLocked rejects chat sends when the discussion is not active or
	// input is locked.
	ErrInputLocked = errors.New("session: input is locked")
	// ErrOwnMessageVote rejects voting on the local user's own message. A UX
	// guard; the server enforces the rule authoritatively.
	ErrOwnMessageVote = errors.New("session: cannot vote on own message")
	// ErrNoRatingTask reports a rating operation before any task exists.
	ErrNoRatingTask = errors.New("session: no rating task")
	// ErrSessionClosed reports a command on a session that was already torn
	// down. Inbound frames on a closed session are dropped silently, but an
	// outbound command must not look like a success.
	ErrSessionClosed = errors.New("session: closed")
)

type readyCheckFrame struct {
	Type     string `json:"type"`
	Username string `json:"username"`
}

type chatFrame struct {
	Type     string `json:"type"`
	Content  string `json:"content"`
	Username string `json:"username"`
	TempID   string `json:"tempId"`
}

// voteFrame is the per-message vote. A dedicated frame type; it never carries
// final discussion ratings, which travel over HTTP only.
type voteFrame struct {
	Type      string `json:"type"`
	MessageID string `json:"messageID"`
	Vote      int    `json:"vote"`
	Username  string `json:"username"`
}

// SendReadyCheck signals readiness to start the timed discussion. Valid only
// while the session is still waiting.
func (s *Session) SendReadyCheck() error {
	if s.closed {
		return ErrSessionClosed
	}
	if s.lifecycle.Phase() != discussion.PhaseWaiting {
		return ErrNotWaiting
	}
	payload, err := json.Marshal(readyCheckFrame{Type: "ready_check", Username: s.username})
	if err != nil {
		return err
	}
	return s.sender.Send(payload)
}

// SendChatMessage inserts the message optimistically and encodes the outbound
// frame with a fresh correlation id. Valid only while the discussion is
// active and input is unlocked.
func (s *Session) SendChatMessage(body string) (discussion.CorrelationID, error) {
	if s.closed {
		return "", ErrSessionClosed
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return "", errors.New("session: empty message")
	}
	if s.lifecycle.Phase() != discussion.PhaseActive || s.lifecycle.InputLocked() {
		return "", ErrInputLocked
	}

	correlationID := discussion.NewCorrelationID()
	if err := s.transcript.AppendOptimistic(correlationID, s.username, body); err != nil {
		return "", err
	}
	payload, err := json.Marshal(chatFrame{
		Type:     "usual",
		Content:  body,
		Username: s.username,
		TempID:   correlationID.String(),
	})
	if err != nil {
		return "", err
	}
	if err := s.sender.Send(payload); err != nil {
		return "", fmt.Errorf("session: send chat: %w", err)
	}
	return correlationID, nil
}

// SendVote encodes an up/down vote on another participant's message. Voting
// on the local user's own message is suppressed before any frame is encoded.
func (s *Session) SendVote(messageID string, direction int) error {
	if s.closed {
		return ErrSessionClosed
	}
	if direction != VoteUp && direction != VoteDown {
		return fmt.Errorf("session: invalid vote direction %d", direction)
	}
	for _, m := range s.transcript.Messages() {
		if m.ID == messageID && m.Author == s.username {
			return ErrOwnMessageVote
		}
	}
	payload, err := json.Marshal(voteFrame{
		Type:      "vote",
		MessageID: messageID,
		Vote:      direction,
		Username:  s.username,
	})
	if err != nil {
		return err
	}
	return s.sender.Send(payload)
}
