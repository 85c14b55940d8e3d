package session

import (
	"encoding/json"
	"errors"
	"testing"

	discussion "go-parley/internal/pkg/discussion/domain"
)

type captureSender struct {
	frames [][]byte
	err    error
}

func (c *captureSender) Send(payload []byte) error {
	if c.err != nil {
		return c.err
	}
	c.frames = append(c.frames, payload)
	return nil
}

func (c *captureSender) last(t *testing.T) map[string]any {
	t.Helper()
	if len(c.frames) == 0 {
		t.Fatal("no frame was sent")
	}
	var out map[string]any
	if err := json.Unmarshal(c.frames[len(c.frames)-1], &out); err != nil {
		t.Fatalf("unmarshal outbound frame: %v", err)
	}
	return out
}

func TestFullDiscussionScenario(t *testing.T) {
	sender := &captureSender{}
	s := NewSession("amy", sender)

	for _, raw := range []string{
		`{"type":"discussion_start","content":"Discussion started"}`,
		`{"type":"usual","id":"1","username":"bob","content":"hi"}`,
		`{"type":"discussion_end","content":"Discussion over","discussionID":"d1","users":["bob","amy"],"criteria":["politeness"]}`,
	} {
		s.HandleFrame([]byte(raw))
	}

	if got := s.Transcript().Len(); got != 3 {
		t.Fatalf("transcript has %d entries, want 3 (start note, chat, end note)", got)
	}
	if s.Lifecycle().Phase() != discussion.PhaseLocked {
		t.Errorf("phase = %v, want locked", s.Lifecycle().Phase())
	}
	task := s.RatingTask()
	if task == nil {
		t.Fatal("end event with rubric must spawn a rating task")
	}
	peers := task.Peers()
	if len(peers) != 1 || peers[0] != "bob" {
		t.Errorf("peers = %v, want [bob] (self excluded)", peers)
	}
	if s.Lifecycle().DiscussionID() != "d1" {
		t.Errorf("discussion id = %q, want d1", s.Lifecycle().DiscussionID())
	}
}

func TestOptimisticSendThenConfirmation(t *testing.T) {
	sender := &captureSender{}
	s := NewSession("amy", sender)
	s.HandleFrame([]byte(`{"type":"discussion_start","content":"go"}`))

	corr, err := s.SendChatMessage("my point")
	if err != nil {
		t.Fatalf("send chat: %v", err)
	}
	lengthBefore := s.Transcript().Len()

	frame := sender.last(t)
	if frame["type"] != "usual" || frame["tempId"] != corr.String() {
		t.Fatalf("unexpected outbound frame: %v", frame)
	}

	confirmation, _ := json.Marshal(map[string]any{
		"type": "usual", "id": "42", "tempId": corr.String(),
		"username": "amy", "content": "my point",
	})
	s.HandleFrame(confirmation)

	if got := s.Transcript().Len(); got != lengthBefore {
		t.Fatalf("confirmation must replace, not append: %d -> %d", lengthBefore, got)
	}
	msgs := s.Transcript().Messages()
	last := msgs[len(msgs)-1]
	if last.ID != "42" {
		t.Errorf("final entry id = %q, want 42", last.ID)
	}
	if last.Pending {
		t.Error("final entry must not be pending")
	}
}

func TestReadyCheckOnlyWhileWaiting(t *testing.T) {
	sender := &captureSender{}
	s := NewSession("amy", sender)

	if err := s.SendReadyCheck(); err != nil {
		t.Fatalf("ready check while waiting: %v", err)
	}
	frame := sender.last(t)
	if frame["type"] != "ready_check" || frame["username"] != "amy" {
		t.Errorf("unexpected frame: %v", frame)
	}

	s.HandleFrame([]byte(`{"type":"discussion_start","content":"go"}`))
	if err := s.SendReadyCheck(); !errors.Is(err, ErrNotWaiting) {
		t.Fatalf("expected ErrNotWaiting once active, got %v", err)
	}
}

func TestChatSendRejectedOutsideActiveDiscussion(t *testing.T) {
	sender := &captureSender{}
	s := NewSession("amy", sender)

	if _, err := s.SendChatMessage("too early"); !errors.Is(err, ErrInputLocked) {
		t.Fatalf("expected ErrInputLocked while waiting, got %v", err)
	}

	s.HandleFrame([]byte(`{"type":"discussion_start","content":"go"}`))
	s.HandleFrame([]byte(`{"type":"discussion_end","content":"over","discussionID":"d1"}`))
	if _, err := s.SendChatMessage("too late"); !errors.Is(err, ErrInputLocked) {
		t.Fatalf("expected ErrInputLocked after end, got %v", err)
	}
}

func TestSelfVoteSuppressedBeforeEncoding(t *testing.T) {
	sender := &captureSender{}
	s := NewSession("amy", sender)
	s.HandleFrame([]byte(`{"type":"discussion_start","content":"go"}`))
	s.HandleFrame([]byte(`{"type":"usual","id":"5","username":"amy","content":"mine"}`))

	sent := len(sender.frames)
	if err := s.SendVote("5", VoteUp); !errors.Is(err, ErrOwnMessageVote) {
		t.Fatalf("expected ErrOwnMessageVote, got %v", err)
	}
	if len(sender.frames) != sent {
		t.Error("no frame may be encoded for a self vote")
	}
}

func TestVoteOnPeerMessage(t *testing.T) {
	sender := &captureSender{}
	s := NewSession("amy", sender)
	s.HandleFrame([]byte(`{"type":"usual","id":"6","username":"bob","content":"theirs"}`))

	if err := s.SendVote("6", VoteDown); err != nil {
		t.Fatalf("vote: %v", err)
	}
	frame := sender.last(t)
	if frame["type"] != "vote" || frame["messageID"] != "6" || frame["vote"] != float64(-1) {
		t.Errorf("unexpected vote frame: %v", frame)
	}
}

func TestVoteUpdateFlowsIntoTranscript(t *testing.T) {
	s := NewSession("amy", &captureSender{})
	s.HandleFrame([]byte(`{"type":"usual","id":"6","username":"bob","content":"claim"}`))
	s.HandleFrame([]byte(`{"type":"vote_update","messageID":"6","likeCount":4,"dislikeCount":2}`))

	for _, m := range s.Transcript().Messages() {
		if m.ID == "6" {
			if m.Votes.Up != 4 || m.Votes.Down != 2 {
				t.Errorf("tally = %d/%d, want 4/2", m.Votes.Up, m.Votes.Down)
			}
			return
		}
	}
	t.Fatal("message 6 not found")
}

func TestUnknownFrameReportedNotFatal(t *testing.T) {
	var observed []error
	s := NewSession("amy", &captureSender{}, WithErrorObserver(func(err error) {
		observed = append(observed, err)
	}))
	before := s.Transcript().Len()

	s.HandleFrame([]byte(`{"type":"telemetry","content":"?"}`))

	if len(observed) != 1 {
		t.Fatalf("expected 1 observed error, got %d", len(observed))
	}
	if !errors.Is(observed[0], ErrUnknownEventType) {
		t.Errorf("observed %v, want ErrUnknownEventType", observed[0])
	}
	if s.Transcript().Len() != before {
		t.Error("unknown frame must not change the transcript")
	}

	// the session keeps working afterwards
	s.HandleFrame([]byte(`{"type":"usual","id":"1","username":"bob","content":"still here"}`))
	if s.Transcript().Len() != before+1 {
		t.Error("session stopped processing after an unknown frame")
	}
}

func TestRatingInfoLocksAndSpawnsTask(t *testing.T) {
	s := NewSession("amy", &captureSender{})
	s.HandleFrame([]byte(`{"type":"discussion_start","content":"go"}`))
	s.HandleFrame([]byte(`{"type":"rating_info","users":["bob","eve","amy"],"criteria":["politeness","arguments_quality"]}`))

	if s.Lifecycle().Phase() != discussion.PhaseLocked {
		t.Errorf("phase = %v, want locked", s.Lifecycle().Phase())
	}
	if !s.Lifecycle().InputLocked() {
		t.Error("rating_info must lock input")
	}
	task := s.RatingTask()
	if task == nil {
		t.Fatal("rating_info must spawn a task")
	}
	if got := task.Peers(); len(got) != 2 {
		t.Errorf("peers = %v, want bob and eve", got)
	}
}

func TestTimerTicksAreNotDeduplicated(t *testing.T) {
	s := NewSession("amy", &captureSender{})
	before := s.Transcript().Len()
	s.HandleFrame([]byte(`{"type":"timer","content":"5 minutes left"}`))
	s.HandleFrame([]byte(`{"type":"timer","content":"5 minutes left"}`))
	if got := s.Transcript().Len() - before; got != 2 {
		t.Fatalf("expected 2 timer entries, got %d", got)
	}
}

func TestDuplicateEndAppendsButStaysIdempotent(t *testing.T) {
	s := NewSession("amy", &captureSender{})
	s.HandleFrame([]byte(`{"type":"discussion_start","content":"go"}`))
	s.HandleFrame([]byte(`{"type":"discussion_end","content":"over","discussionID":"d1"}`))
	mid := s.Transcript().Len()
	s.HandleFrame([]byte(`{"type":"discussion_end","content":"over","discussionID":"d1"}`))

	// at-least-once delivery: each received frame is recorded...
	if got := s.Transcript().Len(); got != mid+1 {
		t.Errorf("transcript entries = %d, want %d", got, mid+1)
	}
	// ...but lifecycle flags stay idempotent
	if s.Lifecycle().Phase() != discussion.PhaseEnded {
		t.Errorf("phase = %v, want ended", s.Lifecycle().Phase())
	}
	if s.Lifecycle().DiscussionID() != "d1" {
		t.Errorf("discussion id = %q, want d1", s.Lifecycle().DiscussionID())
	}
}

func TestWaitingPromptClearedOnStart(t *testing.T) {
	s := NewSession("amy", &captureSender{})
	found := false
	for _, m := range s.Transcript().Messages() {
		if m.Body == WaitingPrompt {
			found = true
		}
	}
	if !found {
		t.Fatal("fresh session must show the waiting prompt")
	}

	s.HandleFrame([]byte(`{"type":"discussion_start","content":"go"}`))
	for _, m := range s.Transcript().Messages() {
		if m.Body == WaitingPrompt {
			t.Fatal("waiting prompt must be cleared on discussion start")
		}
	}
}

func TestClosedSessionDropsFramesAndRejectsCommands(t *testing.T) {
	sender := &captureSender{}
	s := NewSession("amy", sender)
	s.Close()

	before := s.Transcript().Len()
	s.HandleFrame([]byte(`{"type":"usual","id":"1","username":"bob","content":"late"}`))
	if s.Transcript().Len() != before {
		t.Error("closed session must ignore frames")
	}

	// commands must not pretend to succeed
	if err := s.SendReadyCheck(); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("SendReadyCheck = %v, want ErrSessionClosed", err)
	}
	corr, err := s.SendChatMessage("late words")
	if !errors.Is(err, ErrSessionClosed) {
		t.Errorf("SendChatMessage = %v, want ErrSessionClosed", err)
	}
	if !corr.IsZero() {
		t.Errorf("closed session returned correlation id %q", corr)
	}
	if err := s.SendVote("1", VoteUp); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("SendVote = %v, want ErrSessionClosed", err)
	}
	if len(sender.frames) != 0 {
		t.Error("closed session must not encode frames")
	}
}
