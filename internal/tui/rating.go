package tui

import (
	"fmt"
	"strings"

	"go-parley/internal/pkg/discussion/rating"
)

// renderRatingForm shows the peer×criterion grid with the scores entered so
// far. Cells are filled with /rate and the grid is sent with /submit.
func renderRatingForm(task *rating.Task) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Rate the participants") + "\n")

	for _, peer := range task.Peers() {
		b.WriteString(authorStyle.Render(peer) + "\n")
		for _, criterion := range task.Criteria() {
			score := task.Score(peer, criterion)
			cell := "·····"
			if score > 0 {
				cell = strings.Repeat("★", score) + strings.Repeat("☆", rating.MaxScore-score)
			}
			b.WriteString(fmt.Sprintf("  %-20s %s\n", criterion, cell))
		}
	}

	switch task.State() {
	case rating.Submitted:
		b.WriteString(statusStyle.Render("✓ ratings submitted") + "\n")
	case rating.Submitting:
		b.WriteString(statusStyle.Render("submitting…") + "\n")
	case rating.Failed:
		b.WriteString(errorStyle.Render("submission failed: "+task.FailureReason()) + "\n")
		b.WriteString(helpStyle.Render("fix and /submit again") + "\n")
	default:
		if task.IsComplete() {
			b.WriteString(helpStyle.Render("all cells filled — /submit to send") + "\n")
		} else {
			b.WriteString(helpStyle.Render("/rate <peer> <criterion> <1-5>, then /submit") + "\n")
		}
	}
	return b.String()
}
