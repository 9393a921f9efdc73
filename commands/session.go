package commands

import (
	"context"
	"log"

	"ivar-client/models"
	"ivar-client/realtime"
	"ivar-client/store"
)

func (a *App) Login(args []string) {
	if a.usage(args,
		"Usage: login [--id:<user id>] [--username:<username>]",
		"If no id/username is provided, CURRENT_USER_ID/CURRENT_USERNAME or an interactive prompt is used.",
	) {
		return
	}
	if u := a.store.State().CurrentUser; u.ID != "" {
		a.printf("You are already logged in as %s.\n", u.DisplayName())
		return
	}

	kv := parseArgs(args)
	id := a.argOrAsk(kv, "id", a.cfg.CurrentUserID, "Enter user id: ")
	username := a.argOrAsk(kv, "username", a.cfg.CurrentUsername, "Enter username: ")
	if id == "" || username == "" {
		a.println("User id and username are required.")
		return
	}

	ctx := context.Background()
	user := models.User{ID: id, Username: username}
	a.store.Dispatch(store.SetCurrentUser{User: user})

	if err := a.api.CreateUser(ctx, models.CreateUserRequest{ID: id, Username: username}); err != nil {
		a.printf("Login failed: %v\n", err)
		a.logout()
		return
	}

	chats, err := a.api.ListChats(ctx, id)
	if err != nil {
		log.Printf("commands: list chats: %v", err)
	}
	a.store.Dispatch(store.SetChatList{Users: chats})

	a.startChannel(id)
	a.printf("Login successful! Signed in as %s.\n", username)

	requests, err := a.api.ListPendingRequests(ctx, id)
	if err != nil {
		log.Printf("commands: pending requests: %v", err)
		return
	}
	incoming := 0
	for _, r := range requests {
		if r.Direction(username) == models.Incoming {
			incoming++
		}
	}
	if incoming > 0 {
		a.printf("You have %d pending friend request(s)!\n please use `requests` command to view them\n", incoming)
	}
}

func (a *App) Logout(args []string) {
	if a.usage(args, "Usage: logout") {
		return
	}
	if _, ok := a.currentUser(); !ok {
		return
	}
	a.logout()
	a.println("Logged out.")
}

func (a *App) WhoAmI(args []string) {
	u, ok := a.currentUser()
	if !ok {
		return
	}
	status := "offline"
	if ch := a.liveChannel(); ch != nil && ch.Connected() {
		status = "online"
	}
	a.printf("%s (id %s, %s)\n", u.Username, u.ID, status)
}

// logout stops the channel and resets the session store.
func (a *App) logout() {
	a.stopChannel()
	a.store.Dispatch(store.ClearState{})
}

// Shutdown releases the session without printing anything.
func (a *App) Shutdown() {
	a.stopChannel()
}

// startChannel opens the one websocket of this session and the dashboard
// subscriber that notices messages from peers whose chat is not open.
func (a *App) startChannel(userID string) {
	ch := realtime.New(a.cfg.ServiceWSURL, userID,
		realtime.WithBackoff(a.cfg.ReconnectMinDelay, a.cfg.ReconnectMaxDelay),
		realtime.WithStateHook(func(up bool) {
			if up {
				log.Printf("commands: realtime connected")
			} else {
				log.Printf("commands: realtime disconnected")
			}
		}),
	)
	sub := ch.Subscribe(func(m models.Message) bool {
		return m.Sender != a.activePeer()
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	a.mu.Lock()
	a.channel = ch
	a.stop = cancel
	a.done = done
	a.mu.Unlock()

	go func() {
		defer close(done)
		if err := ch.Run(ctx); err != nil && ctx.Err() == nil {
			log.Printf("commands: realtime stopped: %v", err)
		}
	}()
	go a.watch(sub)
}

func (a *App) stopChannel() {
	a.mu.Lock()
	cancel, done := a.stop, a.done
	a.channel, a.stop, a.done = nil, nil, nil
	a.openPeer = ""
	a.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// watch surfaces messages arriving outside the open conversation and keeps
// their senders at the top of the chat list.
func (a *App) watch(sub *realtime.Subscription) {
	for msg := range sub.C() {
		peer := a.knownUser(msg.Sender)
		a.store.Dispatch(store.TouchChat{User: peer})
		a.printf("\n[new message from %s] use `chat --user:%s` to reply\n", peer.DisplayName(), peer.DisplayName())
	}
}

func (a *App) knownUser(id string) models.User {
	for _, u := range a.store.State().ChatList {
		if u.ID == id {
			return u
		}
	}
	return models.User{ID: id}
}
