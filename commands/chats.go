package commands

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"

	"ivar-client/chat"
	"ivar-client/realtime"
)

// Chats lists recent conversations, most recent first.
func (a *App) Chats(args []string) {
	if a.usage(args, "Usage: chats") {
		return
	}
	if _, ok := a.currentUser(); !ok {
		return
	}

	list := a.store.State().ChatList
	if len(list) == 0 {
		a.println("No conversations yet. Use `chat --user:<name>` to start one.")
		return
	}
	a.println("Recent conversations:")
	for _, u := range list {
		a.printf("  %s\n", u.DisplayName())
	}
}

// Chat opens a direct conversation and reads lines to send until "exit".
func (a *App) Chat(args []string) {
	if a.usage(args,
		"Usage: chat [--user:<username or id>]",
		"Inside a chat: type a message and press Enter, /retry reloads after an error, exit leaves.",
	) {
		return
	}
	self, ok := a.currentUser()
	if !ok {
		return
	}
	ch := a.liveChannel()
	if ch == nil {
		a.println("Not connected. Please login again.")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	name := a.argOrAsk(parseArgs(args), "user", "", "Enter username: ")
	if name == "" {
		a.println("Username is required.")
		return
	}
	peer := a.resolveUser(ctx, self, name)
	if peer.ID == self.ID {
		a.println("You cannot chat with yourself.")
		return
	}

	conv := chat.NewConversation(a.api, ch, a.store, chat.WithGroupingWindow(a.cfg.GroupingWindow))
	defer conv.Close()

	// The conversation's subscription is live before the watcher starts
	// skipping this peer, and the watcher resumes before it goes away.
	sub := ch.Subscribe(realtime.FromPeer(peer.ID))
	a.setActivePeer(peer.ID)
	defer func() {
		a.setActivePeer("")
		sub.Close()
	}()

	go conv.Follow(ctx, sub.C())
	rendered := make(chan struct{})
	go func() {
		defer close(rendered)
		a.render(ctx, conv)
	}()
	defer func() {
		cancel()
		<-rendered
	}()

	if err := conv.Open(ctx, self.ID, peer.ID); err != nil {
		log.Printf("commands: open chat with %s: %v", peer.ID, err)
	}

	for {
		line, err := a.in.ReadString('\n')
		line = strings.TrimSpace(line)

		switch {
		case line == "exit":
			a.println("Exiting chat...")
			return
		case line == "/retry":
			if err := conv.Retry(ctx); err != nil {
				log.Printf("commands: retry chat with %s: %v", peer.ID, err)
			}
		case line != "":
			_, sent, serr := conv.SendMessage(ctx, line)
			switch {
			case serr != nil:
				a.printf("Failed to send message: %v\n", serr)
			case !sent && conv.State() == chat.Error:
				a.println("The conversation failed to load. Type /retry to try again.")
			case !sent:
				a.println("The conversation is still loading, try again in a moment.")
			}
		}

		if err != nil {
			if !errors.Is(err, io.EOF) {
				a.printf("Failed to read input: %v\n", err)
			}
			return
		}
	}
}

// render redraws the conversation on every change until ctx ends. After the
// history lands the full view is drawn once; after that only new bubbles are.
func (a *App) render(ctx context.Context, conv *chat.Conversation) {
	var (
		last  chat.State = -1
		shown int
	)
	for {
		select {
		case <-ctx.Done():
			return
		case <-conv.Changes():
		}

		v := conv.View()
		switch v.State {
		case chat.Loading:
			if last != chat.Loading {
				a.println(metaStyle.Render("Loading conversation..."))
			}
		case chat.Error:
			if last != chat.Error {
				a.println(renderError(v.Err))
			}
		case chat.Ready:
			if last != chat.Ready {
				a.println(renderHeader(v))
				if len(v.Items) > 0 {
					a.println(renderItems(v.Items, v.Peer.DisplayName()))
				}
			} else if len(v.Items) > shown {
				a.println(renderItems(v.Items[:len(v.Items)-shown], v.Peer.DisplayName()))
			}
		}
		last, shown = v.State, len(v.Items)
	}
}
