package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	discussion "go-parley/internal/pkg/discussion/domain"
)

// Event is one decoded inbound frame. The set of implementations is closed;
// the reducer switches over it exhaustively.
type Event interface {
	isEvent()
}

// SystemEvent covers "system", "userJoined" and "userLeft" frames. They are
// rendered as system annotations with the author forced to the system
// identity.
type SystemEvent struct {
	Body string
	At   time.Time
}

// DiscussionStartEvent marks the transition into the active discussion. It is
// also appended to the transcript as a system annotation.
type DiscussionStartEvent struct {
	Body string
	At   time.Time
}

// TimerEvent is a countdown reminder tick. Every tick is its own transcript
// entry; ticks are never deduplicated.
type TimerEvent struct {
	Body string
	At   time.Time
}

// ChatEvent is a confirmed "usual" chat message. CorrelationID is set when the
// frame echoes back a tempId for reconciliation.
type ChatEvent struct {
	ID            string
	CorrelationID discussion.CorrelationID
	Author        string
	Body          string
	At            time.Time
	Likes         uint
	Dislikes      uint
}

// VoteUpdateEvent carries the authoritative tally for one message.
type VoteUpdateEvent struct {
	MessageID string
	Likes     uint
	Dislikes  uint
}

// DiscussionEndEvent ends the discussion. Users and Criteria are optional;
// when both are present a rating task is spawned.
type DiscussionEndEvent struct {
	Body         string
	At           time.Time
	DiscussionID string
	Users        []string
	Criteria     []string
}

// RatingInfoEvent signals that peer rating is required. It always implies
// input lockout.
type RatingInfoEvent struct {
	Users    []string
	Criteria []string
}

func (SystemEvent) isEvent()          {}
func (DiscussionStartEvent) isEvent() {}
func (TimerEvent) isEvent()           {}
func (ChatEvent) isEvent()            {}
func (VoteUpdateEvent) isEvent()      {}
func (DiscussionEndEvent) isEvent()   {}
func (RatingInfoEvent) isEvent()      {}

// ErrUnknownEventType reports a frame whose type is outside the recognized
// set. Such frames are dropped, never fatal to the connection.
var ErrUnknownEventType = errors.New("unknown event type")

// DecodeError wraps any failure to turn a raw frame into a typed event.
type DecodeError struct {
	FrameType string
	Err       error
}

func (e *DecodeError) Error() string {
	if e.FrameType == "" {
		return fmt.Sprintf("decode frame: %v", e.Err)
	}
	return fmt.Sprintf("decode %q frame: %v", e.FrameType, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// inboundFrame is the superset of fields any server frame may carry.
type inboundFrame struct {
	Type         string    `json:"type"`
	Content      string    `json:"content"`
	Username     string    `json:"username"`
	ID           string    `json:"id"`
	TempID       string    `json:"tempId"`
	Timestamp    time.Time `json:"timestamp"`
	LikeCount    uint      `json:"likeCount"`
	DislikeCount uint      `json:"dislikeCount"`
	MessageID    string    `json:"messageID"`
	DiscussionID string    `json:"discussionID"`
	Users        []string  `json:"users"`
	Criteria     []string  `json:"criteria"`
}

// DecodeFrame parses one raw inbound frame into exactly one typed event.
// Malformed or unrecognized frames return a *DecodeError; callers log and
// drop them.
func DecodeFrame(raw []byte) (Event, error) {
	var f inboundFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, &DecodeError{Err: err}
	}

	switch f.Type {
	case "system", "userJoined", "userLeft":
		return SystemEvent{Body: f.Content, At: f.Timestamp}, nil
	case "discussion_start":
		return DiscussionStartEvent{Body: f.Content, At: f.Timestamp}, nil
	case "timer":
		return TimerEvent{Body: f.Content, At: f.Timestamp}, nil
	case "usual":
		if f.ID == "" {
			return nil, &DecodeError{FrameType: f.Type, Err: errors.New("missing id")}
		}
		if f.Username == "" {
			return nil, &DecodeError{FrameType: f.Type, Err: errors.New("missing username")}
		}
		return ChatEvent{
			ID:            f.ID,
			CorrelationID: discussion.ParseCorrelationID(f.TempID),
			Author:        f.Username,
			Body:          f.Content,
			At:            f.Timestamp,
			Likes:         f.LikeCount,
			Dislikes:      f.DislikeCount,
		}, nil
	case "vote_update":
		if f.MessageID == "" {
			return nil, &DecodeError{FrameType: f.Type, Err: errors.New("missing messageID")}
		}
		return VoteUpdateEvent{MessageID: f.MessageID, Likes: f.LikeCount, Dislikes: f.DislikeCount}, nil
	case "discussion_end":
		return DiscussionEndEvent{
			Body:         f.Content,
			At:           f.Timestamp,
			DiscussionID: f.DiscussionID,
			Users:        f.Users,
			Criteria:     f.Criteria,
		}, nil
	case "rating_info":
		if len(f.Users) == 0 || len(f.Criteria) == 0 {
			return nil, &DecodeError{FrameType: f.Type, Err: errors.New("missing users or criteria")}
		}
		return RatingInfoEvent{Users: f.Users, Criteria: f.Criteria}, nil
	default:
		return nil, &DecodeError{FrameType: f.Type, Err: ErrUnknownEventType}
	}
}
