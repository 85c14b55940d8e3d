// Package api is the HTTP collaborator client: auth, archive reads and the
// final rating submission. The websocket stream is handled elsewhere; this
// client covers only request/response traffic.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go-parley/internal/pkg/discussion/rating"
)

// Client talks to the discussion platform's HTTP surface. Zero-value is not
// usable; construct with NewClient.
type Client struct {
	baseURL  string
	username string
	token    string
	client   *http.Client
}

// NewClient builds a client for the given base URL and user identity. The
// bearer token may be set later once auth completes.
func NewClient(baseURL, username string) *Client {
	return &Client{
		baseURL:  baseURL,
		username: username,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetToken installs the bearer credential used on authenticated calls.
func (c *Client) SetToken(token string) { c.token = token }

// Username returns the identity the client was built for.
func (c *Client) Username() string { return c.username }

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// Login exchanges credentials for a bearer token and installs it on the
// client.
func (c *Client) Login(ctx context.Context, password string) (string, error) {
	var out loginResponse
	if err := c.postJSON(ctx, "/login", credentials{Username: c.username, Password: password}, &out); err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	c.token = out.Token
	return out.Token, nil
}

// Register creates an account. The caller still logs in afterwards.
func (c *Client) Register(ctx context.Context, password string) error {
	if err := c.postJSON(ctx, "/register", credentials{Username: c.username, Password: password}, nil); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	return nil
}

type finalRatingRequest struct {
	DiscussionID string                    `json:"discussionId"`
	Ratings      map[string]map[string]int `json:"ratings"`
}

type errorBody struct {
	Message string `json:"message"`
}

// SubmitFinalRatings posts the completed rating grid for one ended
// discussion. Non-2xx responses surface the server-provided message verbatim
// when present. Satisfies rating.Submitter.
func (c *Client) SubmitFinalRatings(ctx context.Context, discussionID string, ratings map[string]map[string]int) error {
	body, err := json.Marshal(finalRatingRequest{DiscussionID: discussionID, Ratings: ratings})
	if err != nil {
		return err
	}

	endpoint := c.baseURL + "/rate/final?username=" + url.QueryEscape(c.username)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return &rating.SubmissionError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		_ = json.NewDecoder(resp.Body).Decode(&eb)
		if eb.Message == "" {
			eb.Message = fmt.Sprintf("rating submission rejected with status %d", resp.StatusCode)
		}
		return &rating.SubmissionError{
			Message: eb.Message,
			Err:     fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}
	return nil
}

var _ rating.Submitter = (*Client)(nil)

// ArchivedMessage is one transcript entry as stored server-side.
type ArchivedMessage struct {
	Type     string `json:"type"`
	Content  string `json:"content"`
	Username string `json:"username"`
}

// ArchivedDiscussion is the archive detail payload.
type ArchivedDiscussion struct {
	ID           int               `json:"id"`
	RoomID       int               `json:"roomId"`
	Mode         string            `json:"mode"`
	SubType      string            `json:"subtype"`
	Duration     int               `json:"duration"`
	StartTime    time.Time         `json:"startTime"`
	EndTime      time.Time         `json:"endTime"`
	Messages     []ArchivedMessage `json:"messages"`
	Creator      string            `json:"creator"`
	KeyQuestions []string          `json:"keyQuestions"`
	Tags         []string          `json:"tags"`
	Participants []string          `json:"participants"`
	Topic        string            `json:"topic"`
	Subtopic     string            `json:"subtopic"`
	Description  string            `json:"description"`
	Purpose      string            `json:"purpose"`
}

// ArchivePage is one page of the user's past discussions.
type ArchivePage struct {
	Data  []ArchivedDiscussion `json:"data"`
	Total int                  `json:"total"`
}

// Archive lists the user's past discussions, newest first, paginated.
func (c *Client) Archive(ctx context.Context, page, limit int) (ArchivePage, error) {
	q := url.Values{}
	q.Set("username", c.username)
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))

	var out ArchivePage
	if err := c.getJSON(ctx, "/archive?"+q.Encode(), &out); err != nil {
		return ArchivePage{}, fmt.Errorf("archive: %w", err)
	}
	return out, nil
}

// Discussion fetches one archived discussion by id.
func (c *Client) Discussion(ctx context.Context, id int) (ArchivedDiscussion, error) {
	var out ArchivedDiscussion
	if err := c.getJSON(ctx, "/discussion/"+strconv.Itoa(id), &out); err != nil {
		return ArchivedDiscussion{}, fmt.Errorf("discussion %d: %w", id, err)
	}
	return out, nil
}

// CreateRoomRequest mirrors the room creation form.
type CreateRoomRequest struct {
	Name     string   `json:"name"`
	Password string   `json:"password,omitempty"`
	Open     bool     `json:"open"`
	MaxUsers int      `json:"maxUsers"`
	Mode     string   `json:"mode"`
	SubType  string   `json:"subType"`
	Topic    int      `json:"topic,omitempty"`
	Subtopic int      `json:"subtopic,omitempty"`
	Timer    int      `json:"timer"`
	Purpose  string   `json:"purpose,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Hidden   bool     `json:"hidden"`
}

type createRoomResponse struct {
	ID int `json:"id"`
}

// CreateRoom creates a chat room and returns its id.
func (c *Client) CreateRoom(ctx context.Context, req CreateRoomRequest) (int, error) {
	var out createRoomResponse
	if err := c.postJSON(ctx, "/createChatroom/", req, &out); err != nil {
		return 0, fmt.Errorf("create room: %w", err)
	}
	return out.ID, nil
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return c.do(req, out)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		_ = json.NewDecoder(resp.Body).Decode(&eb)
		if eb.Message != "" {
			return fmt.Errorf("%s: %s", resp.Status, eb.Message)
		}
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
