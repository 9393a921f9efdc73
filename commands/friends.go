package commands

import (
	"context"
	"strconv"
	"strings"

	"ivar-client/gateway"
	"ivar-client/models"
)

func (a *App) Friends(args []string) {
	if a.usage(args, "Usage: friends") {
		return
	}
	u, ok := a.currentUser()
	if !ok {
		return
	}

	friends, err := a.api.ListFriends(context.Background(), u.ID)
	if err != nil {
		a.printf("Failed to fetch friends: %v\n", err)
		return
	}
	if len(friends) == 0 {
		a.println("No friends yet. Use `add --username:<name>` to send a request.")
		return
	}
	a.println("Friends:")
	for _, f := range friends {
		a.printf("  %s (id %s)\n", f.Username, f.ID)
	}
}

func (a *App) Requests(args []string) {
	if a.usage(args, "Usage: requests") {
		return
	}
	u, ok := a.currentUser()
	if !ok {
		return
	}

	requests, err := a.api.ListPendingRequests(context.Background(), u.ID)
	if err != nil {
		a.printf("Failed to fetch pending requests: %v\n", err)
		return
	}
	if len(requests) == 0 {
		a.println("No pending friend requests.")
		return
	}

	a.println("Pending Friend Requests:")
	for _, r := range requests {
		label := "Incoming"
		if r.Direction(u.Username) == models.Outgoing {
			label = "Outgoing"
		}
		a.printf("Request ID: %d | %-8s | %s\n", r.ID, label, r.Other(u.Username).Username)
	}
}

func (a *App) AddFriend(args []string) {
	if a.usage(args,
		"Usage: add [--username:<username>]",
		"If no username is provided, you will be prompted interactively.",
	) {
		return
	}
	u, ok := a.currentUser()
	if !ok {
		return
	}

	username := a.argOrAsk(parseArgs(args), "username", "", "Enter username to add: ")
	err := a.api.SendFriendRequest(context.Background(), models.SendFriendRequestRequest{
		UsernameA: u.Username,
		UsernameB: username,
	})
	switch {
	case err == nil:
		a.println("Friend request sent successfully!")
	case gateway.IsKind(err, gateway.KindNotFound):
		a.printf("No user named %q.\n", username)
	default:
		a.printf("Failed to send friend request: %v\n", err)
	}
}

func (a *App) Respond(args []string) {
	if a.usage(args,
		"Usage: respond [--id:<request id>] [--action:accept|reject]",
		"Missing values are prompted for interactively.",
	) {
		return
	}
	if _, ok := a.currentUser(); !ok {
		return
	}

	kv := parseArgs(args)
	rawID := a.argOrAsk(kv, "id", "", "Enter the request id you want to respond to: ")
	id, err := strconv.Atoi(rawID)
	if err != nil {
		a.println("Invalid request id.")
		return
	}

	action := strings.ToLower(a.argOrAsk(kv, "action", "", "Enter action (accept/reject): "))
	var status models.FriendRequestStatus
	switch action {
	case "accept":
		status = models.StatusAccepted
	case "reject":
		status = models.StatusRejected
	default:
		a.println("Invalid action. Must be 'accept' or 'reject'.")
		return
	}

	if err := a.api.UpdateFriendRequest(context.Background(), models.UpdateFriendRequestRequest{ID: id, Status: status}); err != nil {
		a.printf("Error: %v\n", err)
		return
	}
	a.printf("Friend request %d %s.\n", id, status)
}

func (a *App) Unfriend(args []string) {
	if a.usage(args, "Usage: unfriend [--username:<username>]") {
		return
	}
	u, ok := a.currentUser()
	if !ok {
		return
	}

	ctx := context.Background()
	name := a.argOrAsk(parseArgs(args), "username", "", "Enter username to remove: ")
	if name == "" {
		a.println("Username is required.")
		return
	}
	friend := a.resolveUser(ctx, u, name)

	if err := a.api.RemoveFriend(ctx, models.RemoveFriendRequest{CurrentUserID: u.ID, ToRemoveUserID: friend.ID}); err != nil {
		a.printf("Failed to remove friend: %v\n", err)
		return
	}
	a.printf("Removed %s from your friends.\n", friend.DisplayName())
}
