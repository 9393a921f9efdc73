package commands

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"ivar-client/chat"
)

const bubbleWidth = 72

var (
	ownBubble = lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)
	peerBubble = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("237")).
			Padding(0, 1)
	metaStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	titleStyle = lipgloss.NewStyle().Bold(true)
)

// renderItem draws one bubble. The sender and time line is drawn under the
// last bubble of a run, i.e. the newest message, which is the one that does
// not continue the bubble after it.
func renderItem(item chat.Item, peerName string) string {
	style, align, name := peerBubble, lipgloss.Left, peerName
	if item.Own {
		style, align, name = ownBubble, lipgloss.Right, "You"
	}

	block := style.MaxWidth(bubbleWidth).Render(item.Message.Content)
	if !item.Continuation {
		meta := name
		if item.Time != "" {
			meta += " · " + item.Time
		}
		block = lipgloss.JoinVertical(align, block, metaStyle.Render(meta))
	}
	return lipgloss.PlaceHorizontal(bubbleWidth, align, block)
}

// renderItems draws items (newest first) top to bottom, oldest first.
func renderItems(items []chat.Item, peerName string) string {
	lines := make([]string, 0, len(items))
	for i := len(items) - 1; i >= 0; i-- {
		lines = append(lines, renderItem(items[i], peerName))
	}
	return strings.Join(lines, "\n")
}

func renderHeader(v chat.View) string {
	return titleStyle.Render("Chat with "+v.Peer.DisplayName()) + "\n" +
		metaStyle.Render("Type your message and press Enter to send. Type 'exit' to quit.")
}

func renderError(err error) string {
	return errorStyle.Render("Could not load the conversation: "+err.Error()) + "\n" +
		metaStyle.Render("Type /retry to try again.")
}
