package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ivar-client/models"
)

func recv(t *testing.T, sub *Subscription) models.Message {
	t.Helper()
	select {
	case msg, ok := <-sub.C():
		require.True(t, ok, "subscription closed")
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
		return models.Message{}
	}
}

func TestBusDeliversInOrderToEverySubscriber(t *testing.T) {
	bus := NewBus()
	defer bus.Close()
	a := bus.Subscribe(nil)
	b := bus.Subscribe(nil)

	for _, content := range []string{"1", "2", "3"} {
		bus.Publish(models.Message{Sender: "u2", Content: content})
	}

	for _, sub := range []*Subscription{a, b} {
		assert.Equal(t, "1", recv(t, sub).Content)
		assert.Equal(t, "2", recv(t, sub).Content)
		assert.Equal(t, "3", recv(t, sub).Content)
	}
}

func TestBusFiltersByPeer(t *testing.T) {
	bus := NewBus()
	defer bus.Close()
	fromBob := bus.Subscribe(FromPeer("bob"))
	others := bus.Subscribe(func(m models.Message) bool { return m.Sender != "bob" })

	bus.Publish(models.Message{Sender: "carol", Content: "c"})
	bus.Publish(models.Message{Sender: "bob", Content: "b"})

	assert.Equal(t, "b", recv(t, fromBob).Content)
	assert.Equal(t, "c", recv(t, others).Content)

	select {
	case msg := <-fromBob.C():
		t.Fatalf("unexpected frame %+v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBusPublishDoesNotBlockOnSlowReader(t *testing.T) {
	bus := NewBus()
	defer bus.Close()
	sub := bus.Subscribe(nil)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			bus.Publish(models.Message{Sender: "u2"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked")
	}
	recv(t, sub)
}

func TestSubscriptionCloseDetaches(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(nil)
	require.Equal(t, 1, bus.size())

	sub.Close()
	sub.Close()
	assert.Equal(t, 0, bus.size())

	_, ok := <-sub.C()
	assert.False(t, ok)
	bus.Publish(models.Message{Sender: "u2"})
}

// wsBackend is a minimal /ws/{userId} endpoint.
type wsBackend struct {
	upgrader websocket.Upgrader
	conns    atomic.Int32
	paths    sync.Map
	received chan models.Message
	// onConnect runs once per connection with its index (starting at 1).
	onConnect func(n int32, conn *websocket.Conn)
}

func newWSBackend(t *testing.T, onConnect func(n int32, conn *websocket.Conn)) (*wsBackend, string) {
	t.Helper()
	b := &wsBackend{received: make(chan models.Message, 16), onConnect: onConnect}
	srv := httptest.NewServer(http.HandlerFunc(b.handle))
	t.Cleanup(srv.Close)
	return b, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func (b *wsBackend) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	n := b.conns.Add(1)
	b.paths.Store(n, r.URL.EscapedPath())
	go func() {
		for {
			var msg models.Message
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			b.received <- msg
		}
	}()
	if b.onConnect != nil {
		b.onConnect(n, conn)
	}
}

func runChannel(t *testing.T, ch *Channel) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = ch.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return cancel
}

func TestChannelDeliversFramesAndSends(t *testing.T) {
	backend, wsURL := newWSBackend(t, func(n int32, conn *websocket.Conn) {
		_ = conn.WriteJSON(models.Message{Sender: "u2", Recipient: "u1", Content: "first"})
		_ = conn.WriteMessage(websocket.TextMessage, []byte("not json"))
		_ = conn.WriteJSON(models.Message{Sender: "u2", Recipient: "u1", Content: "second"})
	})

	ch := New(wsURL, "u1", WithBackoff(10*time.Millisecond, 50*time.Millisecond))
	sub := ch.Subscribe(FromPeer("u2"))
	runChannel(t, ch)

	assert.Equal(t, "first", recv(t, sub).Content)
	assert.Equal(t, "second", recv(t, sub).Content)

	require.Eventually(t, ch.Connected, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, ch.Send(context.Background(), models.Message{Sender: "u1", Recipient: "u2", Content: "hi"}))

	select {
	case msg := <-backend.received:
		assert.Equal(t, "hi", msg.Content)
	case <-time.After(2 * time.Second):
		t.Fatal("backend never received the frame")
	}

	path, _ := backend.paths.Load(int32(1))
	assert.Equal(t, "/ws/u1", path)
}

func TestChannelReconnectsAfterDrop(t *testing.T) {
	backend, wsURL := newWSBackend(t, func(n int32, conn *websocket.Conn) {
		if n == 1 {
			_ = conn.Close()
			return
		}
		_ = conn.WriteJSON(models.Message{Sender: "u2", Content: "after reconnect"})
	})

	var transitions atomic.Int32
	ch := New(wsURL, "u1",
		WithBackoff(10*time.Millisecond, 50*time.Millisecond),
		WithStateHook(func(bool) { transitions.Add(1) }),
	)
	sub := ch.Subscribe(nil)
	runChannel(t, ch)

	assert.Equal(t, "after reconnect", recv(t, sub).Content)
	assert.GreaterOrEqual(t, backend.conns.Load(), int32(2))
	assert.GreaterOrEqual(t, transitions.Load(), int32(3))
}

func TestChannelSendWhileDisconnected(t *testing.T) {
	ch := New("ws://127.0.0.1:1", "u1")
	err := ch.Send(context.Background(), models.Message{Sender: "u1", Recipient: "u2", Content: "hi"})
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.False(t, ch.Connected())
}

func TestChannelRunStopsOnCancelAndClosesBus(t *testing.T) {
	ch := New("ws://127.0.0.1:1", "u1", WithBackoff(10*time.Millisecond, 20*time.Millisecond))
	sub := ch.Subscribe(nil)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- ch.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
	_, ok := <-sub.C()
	assert.False(t, ok)
}

func TestChannelURLEscapesUserID(t *testing.T) {
	ch := New("wss://chat.example.com/", "user/1")
	assert.Equal(t, "wss://chat.example.com/ws/user%2F1", ch.URL())
}
