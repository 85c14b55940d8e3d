package tui

import (
	"fmt"
	"strings"

	discussion "go-parley/internal/pkg/discussion/domain"
)

// renderTranscript formats the message log for the viewport. One line per
// entry; chat messages show id and tally so votes can be cast by id.
func renderTranscript(msgs []discussion.Message, self string) string {
	var b strings.Builder
	for _, m := range msgs {
		switch m.Kind {
		case discussion.KindSystemNote:
			b.WriteString(systemStyle.Render("• " + m.Body))
		case discussion.KindTimer:
			b.WriteString(timerStyle.Render("⏳ " + m.Body))
		case discussion.KindDiscussionBoundary:
			b.WriteString(boundaryStyle.Render("■ " + m.Body))
		case discussion.KindChat:
			b.WriteString(renderChatLine(m, self))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func renderChatLine(m discussion.Message, self string) string {
	name := authorStyle
	if m.Author == self {
		name = ownAuthorStyle
	}
	line := name.Render(m.Author) + " " + m.Body
	if m.Pending {
		return pendingStyle.Render(line + " (sending…)")
	}
	tally := fmt.Sprintf("[%s] ▲%d ▼%d", m.ID, m.Votes.Up, m.Votes.Down)
	return line + " " + voteStyle.Render(tally)
}
