// Package tui renders the client: room list, live discussion, rating form
// and archive browser. It is display logic only; every rule lives in the
// session core, and the TUI just reads its state and forwards intents.
package tui

import (
	"context"
	"fmt"
	neturl "net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"go-parley/internal/infrastructure/api"
	archiveport "go-parley/internal/infrastructure/archive/port"
	"go-parley/internal/infrastructure/config"
	"go-parley/internal/infrastructure/realtime"
	discussion "go-parley/internal/pkg/discussion/domain"
	"go-parley/internal/pkg/discussion/session"
	"go-parley/internal/pkg/rooms"
)

type mode int

const (
	modeRooms mode = iota
	modeChat
	modeArchive
)

// noticeLog collects non-fatal session errors for display. Held by pointer so
// the session observer survives bubbletea's model copying.
type noticeLog struct {
	last string
}

type (
	chatFrameMsg   []byte
	chatClosedMsg  struct{}
	roomsFrameMsg  []byte
	roomsClosedMsg struct{}

	chatConnectedMsg struct {
		conn *realtime.Connection
		room string
	}
	roomsConnectedMsg struct {
		conn *realtime.Connection
	}
	ratingSubmittedMsg struct{ err error }
	archivePageMsg     struct {
		page    api.ArchivePage
		pageNum int
		err     error
	}
	archiveSavedMsg struct{ err error }
	roomCreatedMsg  struct{ id int }
	errMsg          struct{ err error }
)

// Model is the top-level bubbletea model.
type Model struct {
	cfg    config.Config
	client *api.Client
	store  archiveport.Store // nil disables local archiving

	mode mode

	roomsConn *realtime.Connection
	watcher   *rooms.Watcher

	conn     *realtime.Connection
	sess     *session.Session
	roomName string
	saved    bool
	notices  *noticeLog

	archive  api.ArchivePage
	pageNum  int
	detail   string
	pageSize int

	vp     viewport.Model
	input  textinput.Model
	status string
	errTxt string
	ready  bool
}

// New builds the model. When initialRoom is non-empty the client joins it
// directly, otherwise it starts on the room list.
func New(cfg config.Config, client *api.Client, store archiveport.Store, initialRoom string) Model {
	ti := textinput.New()
	ti.Placeholder = "type here"
	ti.Focus()
	ti.CharLimit = 500

	m := Model{
		cfg:      cfg,
		client:   client,
		store:    store,
		notices:  &noticeLog{},
		pageSize: 9,
		input:    ti,
		roomName: initialRoom,
	}
	if initialRoom != "" {
		m.mode = modeChat
	}
	return m
}

func (m Model) Init() tea.Cmd {
	if m.roomName != "" {
		return tea.Batch(textinput.Blink, m.connectChatCmd(m.roomName, ""))
	}
	return tea.Batch(textinput.Blink, m.connectRoomsCmd())
}

// connectChatCmd dials the room socket. password is only needed for closed
// rooms and travels as a query parameter next to the identity.
func (m Model) connectChatCmd(room, password string) tea.Cmd {
	cfg := m.cfg
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		url := cfg.WebsocketURL("/ws/chat/"+room) + "?username=" + cfg.Username
		if password != "" {
			url += "&password=" + neturl.QueryEscape(password)
		}
		conn, err := realtime.Dial(ctx, url, nil)
		if err != nil {
			return errMsg{fmt.Errorf("join %s: %w", room, err)}
		}
		return chatConnectedMsg{conn: conn, room: room}
	}
}

func (m Model) connectRoomsCmd() tea.Cmd {
	cfg := m.cfg
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		conn, err := realtime.Dial(ctx, cfg.WebsocketURL("/roomUpdates"), nil)
		if err != nil {
			return errMsg{fmt.Errorf("room updates: %w", err)}
		}
		return roomsConnectedMsg{conn: conn}
	}
}

func waitChatFrame(conn *realtime.Connection) tea.Cmd {
	return func() tea.Msg {
		raw, ok := <-conn.Frames()
		if !ok {
			return chatClosedMsg{}
		}
		return chatFrameMsg(raw)
	}
}

func waitRoomsFrame(conn *realtime.Connection) tea.Cmd {
	return func() tea.Msg {
		raw, ok := <-conn.Frames()
		if !ok {
			return roomsClosedMsg{}
		}
		return roomsFrameMsg(raw)
	}
}

// submitRatingsCmd captures the task and discussion id on the update loop;
// only the HTTP call itself runs in the command goroutine. The task's own
// lock covers its state transitions.
func (m Model) submitRatingsCmd() tea.Cmd {
	task := m.sess.RatingTask()
	id := m.sess.Lifecycle().DiscussionID()
	client := m.client
	return func() tea.Msg {
		if task == nil {
			return ratingSubmittedMsg{err: session.ErrNoRatingTask}
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return ratingSubmittedMsg{err: task.Submit(ctx, id, client)}
	}
}

func (m Model) createRoomCmd(name string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		id, err := client.CreateRoom(ctx, api.CreateRoomRequest{
			Name:     name,
			Open:     true,
			MaxUsers: 2,
			Mode:     "debate",
			Timer:    5,
		})
		if err != nil {
			return errMsg{err}
		}
		return roomCreatedMsg{id: id}
	}
}

func (m Model) fetchArchiveCmd(page int) tea.Cmd {
	client, size := m.client, m.pageSize
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		out, err := client.Archive(ctx, page, size)
		return archivePageMsg{page: out, pageNum: page, err: err}
	}
}

// saveTranscriptCmd persists a record snapshotted on the update loop; the
// command goroutine only performs the write.
func (m Model) saveTranscriptCmd(rec archiveport.Record) tea.Cmd {
	store := m.store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return archiveSavedMsg{err: store.Save(ctx, rec)}
	}
}

// snapshotRecord copies the session state into an archive record. Must run on
// the update loop, before any further frame mutates the transcript.
func (m Model) snapshotRecord() archiveport.Record {
	rec := archiveport.Record{
		DiscussionID: m.sess.Lifecycle().DiscussionID(),
		Room:         m.roomName,
		EndedAt:      time.Now(),
		Messages:     m.sess.Transcript().Messages(),
	}
	if task := m.sess.RatingTask(); task != nil {
		rec.Participants = task.Peers()
	}
	return rec
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.vp = viewport.New(msg.Width, max(msg.Height-4, 3))
		m.ready = true
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.teardown()
			return m, tea.Quit
		case tea.KeyEnter:
			return m.handleInput()
		}

	case chatConnectedMsg:
		m.conn = msg.conn
		m.roomName = msg.room
		m.saved = false
		notices := m.notices
		m.sess = session.NewSession(m.cfg.Username, msg.conn, session.WithErrorObserver(func(err error) {
			notices.last = err.Error()
		}))
		m.mode = modeChat
		m.status = "joined " + msg.room
		m.refresh()
		return m, waitChatFrame(msg.conn)

	case roomsConnectedMsg:
		m.roomsConn = msg.conn
		m.watcher = rooms.NewWatcher(msg.conn)
		m.status = "watching rooms"
		m.refresh()
		return m, waitRoomsFrame(msg.conn)

	case chatFrameMsg:
		if m.sess == nil || m.conn == nil {
			return m, nil
		}
		m.sess.HandleFrame(msg)
		var cmds []tea.Cmd
		cmds = append(cmds, waitChatFrame(m.conn))
		if !m.saved && m.store != nil && m.sess.Lifecycle().DiscussionID() != "" {
			m.saved = true
			cmds = append(cmds, m.saveTranscriptCmd(m.snapshotRecord()))
		}
		m.refresh()
		return m, tea.Batch(cmds...)

	case chatClosedMsg:
		m.status = "connection closed — /quit to leave"
		return m, nil

	case roomsFrameMsg:
		if m.watcher == nil || m.roomsConn == nil {
			return m, nil
		}
		if err := m.watcher.HandleFrame(msg); err != nil {
			m.errTxt = err.Error()
		}
		if m.mode == modeRooms {
			m.refresh()
		}
		return m, waitRoomsFrame(m.roomsConn)

	case roomsClosedMsg:
		if m.mode == modeRooms {
			m.status = "room stream closed"
		}
		return m, nil

	case ratingSubmittedMsg:
		if msg.err != nil {
			m.errTxt = msg.err.Error()
		} else {
			m.status = "ratings submitted"
			m.errTxt = ""
		}
		m.refresh()
		return m, nil

	case archivePageMsg:
		if msg.err != nil {
			m.errTxt = msg.err.Error()
			return m, nil
		}
		m.archive = msg.page
		m.pageNum = msg.pageNum
		m.detail = ""
		m.mode = modeArchive
		m.refresh()
		return m, nil

	case roomCreatedMsg:
		m.status = fmt.Sprintf("room %d created", msg.id)
		return m, m.connectChatCmd(strconv.Itoa(msg.id), "")

	case archiveSavedMsg:
		if msg.err != nil {
			m.errTxt = "local archive: " + msg.err.Error()
		} else {
			m.status = "transcript archived locally"
		}
		return m, nil

	case errMsg:
		m.errTxt = msg.err.Error()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) teardown() {
	if m.sess != nil {
		m.sess.Close()
	}
	if m.conn != nil {
		m.conn.Close(1000, "leaving")
	}
	if m.roomsConn != nil {
		m.roomsConn.Close(1000, "leaving")
	}
}

func (m Model) handleInput() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	m.input.SetValue("")
	if text == "" {
		return m, nil
	}
	m.errTxt = ""

	switch m.mode {
	case modeRooms:
		return m.handleRoomsInput(text)
	case modeArchive:
		return m.handleArchiveInput(text)
	default:
		return m.handleChatInput(text)
	}
}

func (m Model) handleRoomsInput(text string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(text)
	switch fields[0] {
	case "/quit":
		m.teardown()
		return m, tea.Quit
	case "/archive":
		return m, m.fetchArchiveCmd(1)
	case "/create":
		if len(fields) < 2 {
			m.errTxt = "usage: /create <room-name>"
			return m, nil
		}
		return m, m.createRoomCmd(strings.Join(fields[1:], " "))
	case "/filter":
		topic, subtopic := rooms.AllTopics, rooms.AllTopics
		if len(fields) > 1 {
			topic, _ = strconv.Atoi(fields[1])
		}
		if len(fields) > 2 {
			subtopic, _ = strconv.Atoi(fields[2])
		}
		if m.watcher != nil {
			if err := m.watcher.SetFilter(topic, subtopic); err != nil {
				m.errTxt = err.Error()
			}
		}
		return m, nil
	case "/join":
		if len(fields) < 2 {
			m.errTxt = "usage: /join <room-id> [password]"
			return m, nil
		}
		password := ""
		if len(fields) > 2 {
			password = fields[2]
		}
		return m, m.connectChatCmd(fields[1], password)
	default:
		id, err := strconv.Atoi(fields[0])
		if err != nil {
			m.errTxt = "enter a room number, /join, /filter, /archive or /quit"
			return m, nil
		}
		return m, m.connectChatCmd(strconv.Itoa(id), "")
	}
}

func (m Model) handleArchiveInput(text string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(text)
	switch fields[0] {
	case "/back":
		if m.roomName != "" && m.sess != nil {
			m.mode = modeChat
		} else {
			m.mode = modeRooms
		}
		m.refresh()
		return m, nil
	case "/next":
		return m, m.fetchArchiveCmd(m.pageNum + 1)
	case "/prev":
		if m.pageNum > 1 {
			return m, m.fetchArchiveCmd(m.pageNum - 1)
		}
		return m, nil
	case "/quit":
		m.teardown()
		return m, tea.Quit
	default:
		idx, err := strconv.Atoi(fields[0])
		if err != nil || idx < 1 || idx > len(m.archive.Data) {
			m.errTxt = "enter a listed discussion number, /next, /prev or /back"
			return m, nil
		}
		m.detail = renderArchiveDetail(m.archive.Data[idx-1])
		m.refresh()
		return m, nil
	}
}

func (m Model) handleChatInput(text string) (tea.Model, tea.Cmd) {
	if m.sess == nil {
		return m, nil
	}
	fields := strings.Fields(text)

	switch fields[0] {
	case "/quit":
		m.teardown()
		return m, tea.Quit
	case "/archive":
		return m, m.fetchArchiveCmd(1)
	case "/vote":
		if len(fields) != 3 {
			m.errTxt = "usage: /vote <message-id> +|-"
			return m, nil
		}
		direction := session.VoteUp
		if fields[2] == "-" || fields[2] == "-1" {
			direction = session.VoteDown
		}
		if err := m.sess.SendVote(fields[1], direction); err != nil {
			m.errTxt = err.Error()
		}
		return m, nil
	case "/rate":
		if len(fields) != 4 {
			m.errTxt = "usage: /rate <peer> <criterion> <1-5>"
			return m, nil
		}
		task := m.sess.RatingTask()
		if task == nil {
			m.errTxt = "no rating task yet"
			return m, nil
		}
		score, err := strconv.Atoi(fields[3])
		if err != nil {
			m.errTxt = "score must be a number"
			return m, nil
		}
		if err := task.SetScore(fields[1], fields[2], score); err != nil {
			m.errTxt = err.Error()
		}
		m.refresh()
		return m, nil
	case "/submit":
		return m, m.submitRatingsCmd()
	}

	// mirror the wire rules: before the discussion starts only "+" does
	// anything, and it signals readiness
	if m.sess.Lifecycle().Phase() == discussion.PhaseWaiting {
		if text == "+" {
			if err := m.sess.SendReadyCheck(); err != nil {
				m.errTxt = err.Error()
			}
		} else {
			m.errTxt = "send '+' when you are ready"
		}
		return m, nil
	}

	if _, err := m.sess.SendChatMessage(text); err != nil {
		m.errTxt = err.Error()
		return m, nil
	}
	m.refresh()
	return m, nil
}

func (m *Model) refresh() {
	if !m.ready {
		return
	}
	switch m.mode {
	case modeRooms:
		m.vp.SetContent(m.renderRoomList())
	case modeArchive:
		if m.detail != "" {
			m.vp.SetContent(m.detail)
		} else {
			m.vp.SetContent(m.renderArchiveList())
		}
	default:
		m.vp.SetContent(m.renderChat())
		m.vp.GotoBottom()
	}
}

func (m Model) renderChat() string {
	if m.sess == nil {
		return systemStyle.Render("connecting…")
	}
	out := renderTranscript(m.sess.Transcript().Messages(), m.cfg.Username)
	if m.sess.Lifecycle().RatingOpen() {
		if task := m.sess.RatingTask(); task != nil {
			out += "\n" + renderRatingForm(task)
		}
	}
	if m.notices.last != "" {
		out += "\n" + helpStyle.Render("note: "+m.notices.last)
	}
	return out
}

func (m Model) renderRoomList() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Rooms") + "\n")
	if m.watcher == nil || len(m.watcher.Rooms()) == 0 {
		b.WriteString(systemStyle.Render("no rooms yet") + "\n")
	}
	if m.watcher != nil {
		for _, r := range m.watcher.Rooms() {
			state := "waiting"
			if r.DiscussionActive {
				state = "in progress"
			}
			lock := ""
			if !r.Open {
				lock = " 🔒"
			}
			b.WriteString(fmt.Sprintf("%3d. %s%s (%d/%d, %s)\n", r.ID, r.Name, lock, r.Users, r.MaxUsers, state))
		}
	}
	b.WriteString(helpStyle.Render("\nenter a room number to join · /join <id> [password] · /create <name> · /filter <topic> [subtopic] · /archive · /quit"))
	return b.String()
}

func (m Model) renderArchiveList() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Archive — page %d (%d total)", m.pageNum, m.archive.Total)) + "\n")
	for i, d := range m.archive.Data {
		topic := d.Topic
		if topic == "" {
			topic = "(no topic)"
		}
		b.WriteString(fmt.Sprintf("%3d. %s — %s, %d participants\n", i+1, topic, d.Mode, len(d.Participants)))
	}
	b.WriteString(helpStyle.Render("\nenter a number for details · /next · /prev · /back"))
	return b.String()
}

func renderArchiveDetail(d api.ArchivedDiscussion) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(d.Topic) + "\n")
	b.WriteString(systemStyle.Render(fmt.Sprintf("%s/%s · %d min · %s", d.Mode, d.SubType, d.Duration, strings.Join(d.Participants, ", "))) + "\n\n")
	for _, msg := range d.Messages {
		if msg.Type == "usual" {
			b.WriteString(authorStyle.Render(msg.Username) + " " + msg.Content + "\n")
		} else {
			b.WriteString(systemStyle.Render("• "+msg.Content) + "\n")
		}
	}
	b.WriteString(helpStyle.Render("\n/back to return"))
	return b.String()
}

func (m Model) View() string {
	if !m.ready {
		return "loading…"
	}
	header := titleStyle.Render("parley")
	if m.roomName != "" && m.mode == modeChat {
		header += systemStyle.Render("  room " + m.roomName + " · " + m.sessPhase())
	}
	status := statusStyle.Render(m.status)
	if m.errTxt != "" {
		status = errorStyle.Render(m.errTxt)
	}
	return header + "\n" + m.vp.View() + "\n" + status + "\n" + m.input.View()
}

func (m Model) sessPhase() string {
	if m.sess == nil {
		return "connecting"
	}
	return m.sess.Lifecycle().Phase().String()
}
