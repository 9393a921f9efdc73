// Package chat reconciles a direct conversation's persisted history with the
// frames that arrive or leave over the real-time channel, and derives the
// view model the terminal renders.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"ivar-client/metrics"
	"ivar-client/models"
	"ivar-client/store"
)

type State int

const (
	Idle State = iota
	Loading
	Ready
	Error
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Error:
		return "error"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// HistoryFetcher loads participants and persisted messages for a user pair.
type HistoryFetcher interface {
	GetChatInfo(ctx context.Context, req models.ChatInfoRequest) (models.ChatInfo, error)
}

// Sender transmits a frame on the real-time channel.
type Sender interface {
	Send(ctx context.Context, msg models.Message) error
}

// Dispatcher receives session store actions, e.g. *store.Store.
type Dispatcher interface {
	Dispatch(action store.Action)
}

var errMissingParticipant = errors.New("chat: self and peer ids are required")

// Conversation is the state of one open direct conversation view. Every
// event (history result, inbound frame, send) is applied under one lock, so
// each is processed to completion before the next is observed.
type Conversation struct {
	history HistoryFetcher
	sender  Sender
	chats   Dispatcher
	window  time.Duration
	now     func() time.Time

	mu       sync.Mutex
	state    State
	selfID   string
	peer     models.User
	tag      uuid.UUID
	messages []models.Message // newest first
	err      error

	changes chan struct{}
}

type Option func(*Conversation)

// WithGroupingWindow bounds bubble grouping by time. Zero (the default) is adjacency only.
func WithGroupingWindow(d time.Duration) Option {
	return func(c *Conversation) { c.window = d }
}

func WithClock(now func() time.Time) Option {
	return func(c *Conversation) { c.now = now }
}

func NewConversation(history HistoryFetcher, sender Sender, chats Dispatcher, opts ...Option) *Conversation {
	c := &Conversation{
		history: history,
		sender:  sender,
		chats:   chats,
		now:     time.Now,
		changes: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open loads the history of the conversation between selfID and peerID and
// blocks until the fetch finishes. Opening the pair that is already loading
// or ready does nothing. Opening a different pair abandons the previous one:
// its in-flight result is discarded when it arrives.
func (c *Conversation) Open(ctx context.Context, selfID, peerID string) error {
	if selfID == "" || peerID == "" {
		return errMissingParticipant
	}

	c.mu.Lock()
	if c.selfID == selfID && c.peer.ID == peerID && (c.state == Loading || c.state == Ready) {
		c.mu.Unlock()
		return nil
	}
	tag := c.begin(selfID, peerID)
	c.mu.Unlock()
	c.notify()

	return c.load(ctx, tag, selfID, peerID)
}

// Retry re-fetches history after a failed load. It is a no-op in any other state.
func (c *Conversation) Retry(ctx context.Context) error {
	c.mu.Lock()
	if c.state != Error {
		c.mu.Unlock()
		return nil
	}
	selfID, peerID := c.selfID, c.peer.ID
	tag := c.begin(selfID, peerID)
	c.mu.Unlock()
	c.notify()

	return c.load(ctx, tag, selfID, peerID)
}

func (c *Conversation) begin(selfID, peerID string) uuid.UUID {
	c.tag = uuid.New()
	c.selfID = selfID
	c.peer = models.User{ID: peerID}
	c.state = Loading
	c.messages = nil
	c.err = nil
	return c.tag
}

func (c *Conversation) load(ctx context.Context, tag uuid.UUID, selfID, peerID string) error {
	info, err := c.history.GetChatInfo(ctx, models.ChatInfoRequest{Users: []string{selfID, peerID}})
	if err != nil {
		c.OnHistoryFailed(tag, err)
		return fmt.Errorf("load chat history: %w", err)
	}

	if peer, ok := info.Peer(selfID); ok {
		c.mu.Lock()
		if c.tag == tag && peer.ID == c.peer.ID {
			c.peer = peer
		}
		c.mu.Unlock()
	}
	c.OnHistoryLoaded(tag, info.Messages)
	return nil
}

// OnHistoryLoaded replaces the local sequence wholesale with the fetched
// history, newest first. Results for a tag that is no longer current are
// dropped and false is returned.
func (c *Conversation) OnHistoryLoaded(tag uuid.UUID, messages []models.Message) bool {
	c.mu.Lock()
	if tag != c.tag || c.state == Closed || c.state == Idle {
		c.mu.Unlock()
		log.Printf("chat: discarding stale history result")
		return false
	}
	c.messages = newestFirst(messages)
	c.state = Ready
	c.err = nil
	c.mu.Unlock()

	c.notify()
	return true
}

// OnHistoryFailed moves a loading conversation into Error until Retry.
func (c *Conversation) OnHistoryFailed(tag uuid.UUID, err error) bool {
	c.mu.Lock()
	if tag != c.tag || c.state != Loading {
		c.mu.Unlock()
		return false
	}
	c.state = Error
	c.err = err
	c.mu.Unlock()

	log.Printf("chat: history fetch failed: %v", err)
	c.notify()
	return true
}

// OnInboundFrame prepends a frame from the open peer. The channel is shared
// with every other view, so frames from anyone else are dropped here.
func (c *Conversation) OnInboundFrame(msg models.Message) bool {
	c.mu.Lock()
	if c.state != Loading && c.state != Ready {
		c.mu.Unlock()
		metrics.IncFrameDiscarded("inactive")
		return false
	}
	if msg.Sender != c.peer.ID {
		c.mu.Unlock()
		metrics.IncFrameDiscarded("other_peer")
		return false
	}
	c.messages = prepend(c.messages, msg)
	c.mu.Unlock()

	c.notify()
	return true
}

// SendMessage transmits content to the peer and shows it locally without
// waiting for an echo. Empty content, or a conversation whose history has not
// loaded, is a no-op reported as sent == false with a nil error. The first
// message of an empty conversation also puts the peer on the chat list.
func (c *Conversation) SendMessage(ctx context.Context, content string) (msg models.Message, sent bool, err error) {
	if content == "" {
		return models.Message{}, false, nil
	}

	c.mu.Lock()
	if c.state != Ready {
		c.mu.Unlock()
		return models.Message{}, false, nil
	}
	msg = models.Message{
		Sender:    c.selfID,
		Recipient: c.peer.ID,
		Content:   content,
		Timestamp: c.now().UTC().Format(models.TimestampLayout),
	}
	tag := c.tag
	first := len(c.messages) == 0
	peer := models.User{ID: c.peer.ID, Username: c.peer.DisplayName()}
	c.mu.Unlock()

	if err := c.sender.Send(ctx, msg); err != nil {
		return msg, false, fmt.Errorf("send message: %w", err)
	}

	c.mu.Lock()
	if c.tag != tag || c.state != Ready {
		// Sent, but the user has moved on to another conversation.
		c.mu.Unlock()
		return msg, true, nil
	}
	c.messages = prepend(c.messages, msg)
	c.mu.Unlock()

	if first && c.chats != nil {
		c.chats.Dispatch(store.TouchChat{User: peer})
	}
	c.notify()
	return msg, true, nil
}

// Close discards the conversation. Late results for it are ignored.
func (c *Conversation) Close() {
	c.mu.Lock()
	c.state = Closed
	c.messages = nil
	c.err = nil
	c.mu.Unlock()
	c.notify()
}

// Follow feeds frames into OnInboundFrame until ctx ends or frames closes.
func (c *Conversation) Follow(ctx context.Context, frames <-chan models.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-frames:
			if !ok {
				return
			}
			c.OnInboundFrame(msg)
		}
	}
}

// Changes signals after every visible change. Signals coalesce.
func (c *Conversation) Changes() <-chan struct{} {
	return c.changes
}

func (c *Conversation) notify() {
	select {
	case c.changes <- struct{}{}:
	default:
	}
}

func (c *Conversation) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Conversation) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Conversation) currentTag() uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tag
}

func (c *Conversation) Peer() models.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.peer
}

// Messages returns a copy of the visible sequence, newest first.
func (c *Conversation) Messages() []models.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Message{}, c.messages...)
}

func newestFirst(messages []models.Message) []models.Message {
	out := append([]models.Message{}, messages...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Time().After(out[j].Time())
	})
	return out
}

func prepend(list []models.Message, msg models.Message) []models.Message {
	out := make([]models.Message, 0, len(list)+1)
	out = append(out, msg)
	return append(out, list...)
}
