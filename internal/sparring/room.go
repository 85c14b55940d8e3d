package sparring

import (
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// member is one connected participant. Writes are serialized per connection.
type member struct {
	username string
	ws       *websocket.Conn
	mu       sync.Mutex
}

func (m *member) send(payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_ = m.ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return m.ws.WriteMessage(websocket.TextMessage, payload)
}

type tally struct {
	up   uint
	down uint
}

// room is one practice discussion. All state behind the mutex; the timer
// goroutine and every member's read loop share it.
type room struct {
	name string

	mu           sync.Mutex
	members      []*member
	ready        map[string]bool
	active       bool
	ended        bool
	nextID       int
	tallies      map[string]*tally
	authors      map[string]string // message id -> author
	participants []string
	discussionID string
}

func newRoom(name string) *room {
	return &room{
		name:    name,
		ready:   make(map[string]bool),
		tallies: make(map[string]*tally),
		authors: make(map[string]string),
	}
}

// broadcast sends frame to every member. exclude, when non-empty, skips that
// username.
func (r *room) broadcast(frame any, exclude string) {
	payload, err := json.Marshal(frame)
	if err != nil {
		return
	}
	r.mu.Lock()
	members := append([]*member(nil), r.members...)
	r.mu.Unlock()

	for _, m := range members {
		if exclude != "" && m.username == exclude {
			continue
		}
		_ = m.send(payload)
	}
}

func (r *room) add(m *member) {
	r.mu.Lock()
	r.members = append(r.members, m)
	r.mu.Unlock()
}

// remove drops the member and reports the remaining member count.
func (r *room) remove(m *member) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, cur := range r.members {
		if cur == m {
			r.members = append(r.members[:i], r.members[i+1:]...)
			break
		}
	}
	delete(r.ready, m.username)
	return len(r.members)
}

// markReady records the ready check and reports whether everyone present is
// now ready (minimum two participants).
func (r *room) markReady(username string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active || r.ended {
		return false
	}
	r.ready[username] = true
	return len(r.members) >= 2 && len(r.ready) == len(r.members)
}

// begin flips the room into the active discussion and freezes the
// participant list.
func (r *room) begin(discussionID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = true
	r.discussionID = discussionID
	r.participants = r.participants[:0]
	for _, m := range r.members {
		r.participants = append(r.participants, m.username)
	}
	return append([]string(nil), r.participants...)
}

// finish ends the discussion once; later calls report false.
func (r *room) finish() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ended {
		return false
	}
	r.active = false
	r.ended = true
	return true
}

// assignID hands out the next message id.
func (r *room) assignID(author string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	id := r.name + "-" + strconv.Itoa(r.nextID)
	r.authors[id] = author
	return id
}

// vote applies one up/down vote. Self votes and unknown messages are
// rejected; the returned flag says whether a tally update should go out.
func (r *room) vote(messageID, voter string, direction int) (up, down uint, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	author, known := r.authors[messageID]
	if !known || author == voter {
		return 0, 0, false
	}
	t := r.tallies[messageID]
	if t == nil {
		t = &tally{}
		r.tallies[messageID] = t
	}
	switch {
	case direction > 0:
		t.up++
	case direction < 0:
		t.down++
	default:
		return 0, 0, false
	}
	return t.up, t.down, true
}

func (r *room) isActive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}
