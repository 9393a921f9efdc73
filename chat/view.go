package chat

import "ivar-client/models"

// Item is one rendered message bubble.
type Item struct {
	Message models.Message
	Own     bool
	// Continuation hides avatar and name chrome: the previous bubble has the same sender.
	Continuation bool
	Time         string
}

type View struct {
	State State
	Self  string
	Peer  models.User
	Err   error
	Items []Item // newest first
}

// View snapshots the conversation for rendering.
func (c *Conversation) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	grouping := DeriveGrouping(c.messages, c.window)
	items := make([]Item, len(c.messages))
	for i, m := range c.messages {
		items[i] = Item{
			Message:      m,
			Own:          m.Sender == c.selfID,
			Continuation: grouping[i],
			Time:         FormatTimestamp(m.Timestamp),
		}
	}
	return View{State: c.state, Self: c.selfID, Peer: c.peer, Err: c.err, Items: items}
}
