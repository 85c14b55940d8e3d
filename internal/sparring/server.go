// Package sparring is a local practice server speaking the discussion wire
// contract: ready checks, timer ticks, vote tallies, a discussion end
// carrying the rating rubric, and the final rating endpoint. It exists so the
// client can be exercised offline and in integration tests; it is not the
// production orchestrator and decides nothing beyond the minimum the
// contract requires.
package sparring

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// DefaultCriteria is the rubric handed out with every discussion end.
var DefaultCriteria = []string{"professionalism", "arguments_quality", "politeness"}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Local practice server; any origin may connect.
		return true
	},
}

// Server hosts practice rooms. Construct with New, mount Engine on a
// listener.
type Server struct {
	engine   *gin.Engine
	duration time.Duration
	tick     time.Duration
	criteria []string

	mu      sync.Mutex
	rooms   map[string]*room
	ratings map[string]map[string]map[string]int // discussion id -> rater -> scores
}

// Option configures the server.
type Option func(*Server)

// WithDiscussionLength sets how long a started discussion runs.
func WithDiscussionLength(d time.Duration) Option {
	return func(s *Server) { s.duration = d }
}

// WithTimerInterval sets the cadence of timer reminder frames.
func WithTimerInterval(d time.Duration) Option {
	return func(s *Server) { s.tick = d }
}

// WithCriteria overrides the rating rubric.
func WithCriteria(criteria []string) Option {
	return func(s *Server) { s.criteria = criteria }
}

// New builds the server and its routes.
func New(opts ...Option) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		engine:   gin.New(),
		duration: 5 * time.Minute,
		tick:     time.Minute,
		criteria: DefaultCriteria,
		rooms:    make(map[string]*room),
		ratings:  make(map[string]map[string]map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.engine.GET("/ws/chat/:room", s.handleSocket)
	s.engine.POST("/rate/final", s.handleFinalRating)
	return s
}

// Engine exposes the router for mounting on a listener or test server.
func (s *Server) Engine() *gin.Engine { return s.engine }

// Run serves on addr until the listener fails.
func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}

func (s *Server) room(name string) *room {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.rooms[name]
	if r == nil {
		r = newRoom(name)
		s.rooms[name] = r
	}
	return r
}

func (s *Server) dropEmptyRoom(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r := s.rooms[name]; r != nil {
		r.mu.Lock()
		empty := len(r.members) == 0
		r.mu.Unlock()
		if empty {
			delete(s.rooms, name)
		}
	}
}

type inboundFrame struct {
	Type      string `json:"type"`
	Content   string `json:"content"`
	Username  string `json:"username"`
	TempID    string `json:"tempId"`
	MessageID string `json:"messageID"`
	Vote      int    `json:"vote"`
}

type systemFrame struct {
	Type      string    `json:"type"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type chatOutFrame struct {
	Type         string    `json:"type"`
	ID           string    `json:"id"`
	TempID       string    `json:"tempId,omitempty"`
	Content      string    `json:"content"`
	Username     string    `json:"username"`
	Timestamp    time.Time `json:"timestamp"`
	LikeCount    uint      `json:"likeCount"`
	DislikeCount uint      `json:"dislikeCount"`
}

type voteUpdateFrame struct {
	Type         string `json:"type"`
	MessageID    string `json:"messageID"`
	LikeCount    uint   `json:"likeCount"`
	DislikeCount uint   `json:"dislikeCount"`
}

type endFrame struct {
	Type         string    `json:"type"`
	Content      string    `json:"content"`
	Timestamp    time.Time `json:"timestamp"`
	DiscussionID string    `json:"discussionID"`
	Users        []string  `json:"users"`
	Criteria     []string  `json:"criteria"`
}

func (s *Server) handleSocket(c *gin.Context) {
	username := c.Query("username")
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "username is required"})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	roomName := c.Param("room")
	r := s.room(roomName)
	m := &member{username: username, ws: ws}
	r.add(m)
	r.broadcast(systemFrame{Type: "userJoined", Content: username + " joined the room", Timestamp: time.Now()}, "")

	defer func() {
		_ = ws.Close()
		if left := r.remove(m); left == 0 {
			s.dropEmptyRoom(roomName)
		} else {
			r.broadcast(systemFrame{Type: "userLeft", Content: username + " left the room", Timestamp: time.Now()}, "")
		}
	}()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}

		switch frame.Type {
		case "ready_check":
			r.broadcast(systemFrame{Type: "system", Content: username + " is ready", Timestamp: time.Now()}, "")
			if r.markReady(username) {
				s.startDiscussion(r)
			}
		case "usual":
			if !r.isActive() {
				continue
			}
			out := chatOutFrame{
				Type:      "usual",
				ID:        r.assignID(username),
				TempID:    frame.TempID,
				Content:   frame.Content,
				Username:  username,
				Timestamp: time.Now(),
			}
			r.broadcast(out, "")
		case "vote":
			up, down, ok := r.vote(frame.MessageID, username, frame.Vote)
			if !ok {
				continue
			}
			r.broadcast(voteUpdateFrame{
				Type:         "vote_update",
				MessageID:    frame.MessageID,
				LikeCount:    up,
				DislikeCount: down,
			}, "")
		}
	}
}

func (s *Server) startDiscussion(r *room) {
	users := r.begin(uuid.NewString())
	r.broadcast(systemFrame{Type: "discussion_start", Content: "Discussion started, good luck", Timestamp: time.Now()}, "")
	go s.runTimer(r, users)
}

func (s *Server) runTimer(r *room, users []string) {
	deadline := time.Now().Add(s.duration)
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for now := range ticker.C {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		r.broadcast(systemFrame{
			Type:      "timer",
			Content:   remaining.Round(time.Second).String() + " remaining",
			Timestamp: now,
		}, "")
	}

	if !r.finish() {
		return
	}
	r.mu.Lock()
	discussionID := r.discussionID
	r.mu.Unlock()
	r.broadcast(endFrame{
		Type:         "discussion_end",
		Content:      "Discussion over, rate your opponents",
		Timestamp:    time.Now(),
		DiscussionID: discussionID,
		Users:        users,
		Criteria:     append([]string(nil), s.criteria...),
	}, "")
}

type finalRatingRequest struct {
	DiscussionID string                    `json:"discussionId"`
	Ratings      map[string]map[string]int `json:"ratings"`
}

func (s *Server) handleFinalRating(c *gin.Context) {
	username := c.Query("username")
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "username is required"})
		return
	}

	var req finalRatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid rating payload"})
		return
	}
	if req.DiscussionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "discussionId is required"})
		return
	}
	for peer, row := range req.Ratings {
		for criterion, score := range row {
			if score < 1 || score > 5 {
				c.JSON(http.StatusBadRequest, gin.H{
					"message": "score out of range for " + peer + "/" + criterion,
				})
				return
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	byRater := s.ratings[req.DiscussionID]
	if byRater == nil {
		byRater = make(map[string]map[string]int)
		s.ratings[req.DiscussionID] = byRater
	}
	if _, dup := byRater[username]; dup {
		c.JSON(http.StatusConflict, gin.H{"message": "ratings already submitted"})
		return
	}
	flat := make(map[string]int)
	for peer, row := range req.Ratings {
		for criterion, score := range row {
			flat[peer+"/"+criterion] = score
		}
	}
	byRater[username] = flat

	c.JSON(http.StatusOK, gin.H{"status": "accepted"})
}
