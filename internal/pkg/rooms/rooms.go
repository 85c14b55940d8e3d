// Package rooms consumes the room list update stream: the server pushes the
// full visible room set over a websocket and the client narrows it with a
// topic/subtopic filter frame. Pure display data; joining a room is handled
// by the discussion session.
package rooms

import (
	"encoding/json"
	"fmt"
)

// Summary is one room as advertised on the list stream.
type Summary struct {
	ID               int      `json:"id"`
	Name             string   `json:"name"`
	Open             bool     `json:"open"`
	Users            int      `json:"users"`
	MaxUsers         int      `json:"maxUsers"`
	Mode             string   `json:"mode"`
	SubType          string   `json:"subType"`
	TopicID          int      `json:"topic"`
	SubtopicID       int      `json:"subtopic"`
	CustomTopic      string   `json:"customTopic"`
	CustomSubtopic   string   `json:"customSubtopic"`
	Description      string   `json:"description"`
	Purpose          string   `json:"purpose"`
	KeyQuestions     []string `json:"keyQuestions"`
	Tags             []string `json:"tags"`
	DontJoin         bool     `json:"dontJoin"`
	DiscussionActive bool     `json:"discussionActive"`
	Duration         int      `json:"duration"` // minutes
	StartTime        string   `json:"startTime,omitempty"`
}

// Full reports whether the room cannot accept another participant.
func (s Summary) Full() bool {
	return s.MaxUsers > 0 && s.Users >= s.MaxUsers
}

// Sender delivers an encoded frame to the room updates connection.
type Sender interface {
	Send(payload []byte) error
}

type listFrame struct {
	Type  string    `json:"type"`
	Rooms []Summary `json:"rooms"`
}

type filterFrame struct {
	Type     string `json:"type"`
	Topic    int    `json:"topic"`
	Subtopic int    `json:"subtopic"`
}

// AllTopics selects every topic or subtopic in a filter.
const AllTopics = 0

// Watcher holds the latest room set and the active filter for one list
// subscription.
type Watcher struct {
	sender   Sender
	rooms    []Summary
	topic    int
	subtopic int
}

// NewWatcher builds a watcher over the given connection.
func NewWatcher(sender Sender) *Watcher {
	return &Watcher{sender: sender}
}

// HandleFrame applies one raw frame from the list stream. Frames of other
// types are ignored; malformed payloads are reported.
func (w *Watcher) HandleFrame(raw []byte) error {
	var f listFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("rooms: decode list frame: %w", err)
	}
	if f.Type != "roomList" {
		return nil
	}
	w.rooms = f.Rooms
	return nil
}

// SetFilter updates the topic/subtopic filter and pushes it to the server.
// Changing the topic resets the subtopic.
func (w *Watcher) SetFilter(topic, subtopic int) error {
	if topic != w.topic {
		subtopic = AllTopics
	}
	w.topic, w.subtopic = topic, subtopic

	payload, err := json.Marshal(filterFrame{Type: "filter", Topic: topic, Subtopic: subtopic})
	if err != nil {
		return err
	}
	return w.sender.Send(payload)
}

// Filter returns the active topic/subtopic selection.
func (w *Watcher) Filter() (topic, subtopic int) {
	return w.topic, w.subtopic
}

// Rooms returns the latest advertised room set.
func (w *Watcher) Rooms() []Summary {
	out := make([]Summary, len(w.rooms))
	copy(out, w.rooms)
	return out
}
