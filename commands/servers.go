package commands

import (
	"context"

	"ivar-client/models"
)

func (a *App) Servers(args []string) {
	if a.usage(args, "Usage: servers") {
		return
	}
	if _, ok := a.currentUser(); !ok {
		return
	}

	servers, err := a.api.ListServers(context.Background())
	if err != nil {
		a.printf("Failed to fetch servers: %v\n", err)
		return
	}
	if len(servers) == 0 {
		a.println("No servers.")
		return
	}
	a.println("Servers:")
	for _, s := range servers {
		a.printf("  %-20s id %s\n", s.Name, s.ID)
	}
}

func (a *App) CreateServer(args []string) {
	if a.usage(args, "Usage: create-server [--name:<server name>]") {
		return
	}
	u, ok := a.currentUser()
	if !ok {
		return
	}

	name := a.argOrAsk(parseArgs(args), "name", "", "Enter server name: ")
	if err := a.api.CreateServer(context.Background(), models.CreateServerRequest{Name: name, OwnerID: u.ID}); err != nil {
		a.printf("Failed to create server: %v\n", err)
		return
	}
	a.printf("Server %q created.\n", name)
}

func (a *App) Invite(args []string) {
	if a.usage(args, "Usage: invite [--server:<server id>]") {
		return
	}
	if _, ok := a.currentUser(); !ok {
		return
	}

	serverID := a.argOrAsk(parseArgs(args), "server", "", "Enter server id: ")
	code, err := a.api.CreateInvite(context.Background(), serverID)
	if err != nil {
		a.printf("Failed to create invite: %v\n", err)
		return
	}
	a.printf("Invite code: %s\n", code)
}
