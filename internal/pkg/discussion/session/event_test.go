package session

import (
	"errors"
	"testing"
)

func TestDecodeChatFrame(t *testing.T) {
	raw := []byte(`{"type":"usual","id":"42","tempId":"temp-1","username":"bob","content":"hi","likeCount":3,"dislikeCount":1}`)
	ev, err := DecodeFrame(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	chat, ok := ev.(ChatEvent)
	if !ok {
		t.Fatalf("expected ChatEvent, got %T", ev)
	}
	if chat.ID != "42" || chat.Author != "bob" || chat.Body != "hi" {
		t.Errorf("unexpected event: %+v", chat)
	}
	if chat.CorrelationID.String() != "temp-1" {
		t.Errorf("correlation id = %q, want temp-1", chat.CorrelationID)
	}
	if chat.Likes != 3 || chat.Dislikes != 1 {
		t.Errorf("tally = %d/%d, want 3/1", chat.Likes, chat.Dislikes)
	}
}

func TestDecodeChatFrameDefaultsVotesToZero(t *testing.T) {
	ev, err := DecodeFrame([]byte(`{"type":"usual","id":"1","username":"amy","content":"x"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	chat := ev.(ChatEvent)
	if chat.Likes != 0 || chat.Dislikes != 0 {
		t.Errorf("absent counts must default to zero, got %d/%d", chat.Likes, chat.Dislikes)
	}
	if !chat.CorrelationID.IsZero() {
		t.Errorf("absent tempId must yield zero correlation id, got %q", chat.CorrelationID)
	}
}

func TestDecodeSystemVariants(t *testing.T) {
	for _, typ := range []string{"system", "userJoined", "userLeft"} {
		ev, err := DecodeFrame([]byte(`{"type":"` + typ + `","content":"note"}`))
		if err != nil {
			t.Fatalf("decode %s: %v", typ, err)
		}
		if _, ok := ev.(SystemEvent); !ok {
			t.Errorf("%s decoded to %T, want SystemEvent", typ, ev)
		}
	}
}

func TestDecodeDiscussionEnd(t *testing.T) {
	raw := []byte(`{"type":"discussion_end","content":"time is up","discussionID":"d1","users":["bob","amy"],"criteria":["politeness"]}`)
	ev, err := DecodeFrame(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	end := ev.(DiscussionEndEvent)
	if end.DiscussionID != "d1" {
		t.Errorf("discussion id = %q", end.DiscussionID)
	}
	if len(end.Users) != 2 || len(end.Criteria) != 1 {
		t.Errorf("unexpected rubric payload: %+v", end)
	}
}

func TestDecodeDiscussionEndWithoutRubric(t *testing.T) {
	// users and criteria are optional on the end event
	ev, err := DecodeFrame([]byte(`{"type":"discussion_end","content":"done"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	end := ev.(DiscussionEndEvent)
	if end.Users != nil || end.Criteria != nil {
		t.Errorf("expected empty rubric, got %+v", end)
	}
}

func TestDecodeVoteUpdateRequiresMessageID(t *testing.T) {
	_, err := DecodeFrame([]byte(`{"type":"vote_update","likeCount":1}`))
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected *DecodeError, got %v", err)
	}
}

func TestDecodeUnknownType(t *testing.T) {
	_, err := DecodeFrame([]byte(`{"type":"telemetry"}`))
	if !errors.Is(err, ErrUnknownEventType) {
		t.Fatalf("expected ErrUnknownEventType, got %v", err)
	}
}

func TestDecodeMalformedJSON(t *testing.T) {
	_, err := DecodeFrame([]byte(`{nope`))
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected *DecodeError, got %v", err)
	}
}

func TestDecodeRatingInfoRequiresRubric(t *testing.T) {
	if _, err := DecodeFrame([]byte(`{"type":"rating_info","users":["bob"]}`)); err == nil {
		t.Fatal("rating_info without criteria must fail to decode")
	}
	ev, err := DecodeFrame([]byte(`{"type":"rating_info","users":["bob"],"criteria":["politeness"]}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := ev.(RatingInfoEvent); !ok {
		t.Fatalf("expected RatingInfoEvent, got %T", ev)
	}
}
