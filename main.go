package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"ivar-client/commands"
	"ivar-client/config"
	"ivar-client/gateway"
	"ivar-client/metrics"
	"ivar-client/store"
	"ivar-client/tracing"

	"github.com/c-bata/go-prompt"
)

var (
	app           *commands.App
	shutdownTrace tracing.ShutdownFunc
)

func clearScreen() {
	switch runtime.GOOS {
	case "windows":
		cmd := exec.Command("cmd", "/c", "cls")
		cmd.Stdout = os.Stdout
		cmd.Run()
	default: // Linux, macOS
		cmd := exec.Command("clear")
		cmd.Stdout = os.Stdout
		cmd.Run()
	}
}

func printHelp() {
	fmt.Println("\n=== Ivar Chat CLI Help ===")
	fmt.Println("\nSession Commands:")
	fmt.Printf("%-20s : %s\n", "login", "Sign in and connect to real-time chat")
	fmt.Printf("%-20s   %s\n", "", "Usage: login --id:yourid --username:yourname")
	fmt.Printf("%-20s : %s\n", "logout", "Disconnect and clear the session")
	fmt.Printf("%-20s : %s\n", "whoami", "Show the signed-in user")

	fmt.Println("\nChat Commands:")
	fmt.Printf("%-20s : %s\n", "chats", "List recent conversations")
	fmt.Printf("%-20s : %s\n", "chat", "Open a direct conversation")
	fmt.Printf("%-20s   %s\n", "", "Usage: chat --user:username")

	fmt.Println("\nFriend Management:")
	fmt.Printf("%-20s : %s\n", "friends", "List your friends")
	fmt.Printf("%-20s : %s\n", "requests", "View incoming and outgoing friend requests")
	fmt.Printf("%-20s : %s\n", "add", "Send a friend request")
	fmt.Printf("%-20s   %s\n", "", "Usage: add --username:targetuser")
	fmt.Printf("%-20s : %s\n", "respond", "Accept or reject a friend request")
	fmt.Printf("%-20s   %s\n", "", "Usage: respond --id:3 --action:accept")
	fmt.Printf("%-20s : %s\n", "unfriend", "Remove a friend")
	fmt.Printf("%-20s   %s\n", "", "Usage: unfriend --username:friend")

	fmt.Println("\nServers:")
	fmt.Printf("%-20s : %s\n", "servers", "List servers")
	fmt.Printf("%-20s : %s\n", "create-server", "Create a server you own")
	fmt.Printf("%-20s   %s\n", "", "Usage: create-server --name:myserver")
	fmt.Printf("%-20s : %s\n", "invite", "Create an invite code for a server")
	fmt.Printf("%-20s   %s\n", "", "Usage: invite --server:serverid")

	fmt.Println("\nSystem Commands:")
	fmt.Printf("%-20s : %s\n", "clear", "Clear the terminal screen")
	fmt.Printf("%-20s : %s\n", "exit", "Logout and exit the application")
	fmt.Printf("%-20s : %s\n", "help", "Show this help message")

	fmt.Println("\nNote: Most commands require you to be logged in first.")
}

func executor(input string) {
	args := strings.Fields(input)
	if len(args) == 0 {
		return
	}
	cmd := strings.ToLower(args[0])
	cmdArgs := args[1:]

	switch cmd {
	case "login":
		app.Login(cmdArgs)
	case "logout":
		app.Logout(cmdArgs)
	case "whoami":
		app.WhoAmI(cmdArgs)
	case "chats":
		app.Chats(cmdArgs)
	case "chat":
		app.Chat(cmdArgs)
	case "friends":
		app.Friends(cmdArgs)
	case "requests":
		app.Requests(cmdArgs)
	case "add":
		app.AddFriend(cmdArgs)
	case "respond":
		app.Respond(cmdArgs)
	case "unfriend":
		app.Unfriend(cmdArgs)
	case "servers":
		app.Servers(cmdArgs)
	case "create-server":
		app.CreateServer(cmdArgs)
	case "invite":
		app.Invite(cmdArgs)
	case "help":
		printHelp()
	case "clear":
		clearScreen()
	case "exit":
		quit()
		os.Exit(0)
	default:
		fmt.Println("Unknown command. Type 'help' for a list of commands.")
	}
}

// quit closes the session and flushes pending spans.
func quit() {
	app.Shutdown()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTrace(ctx); err != nil {
		log.Printf("tracing: shutdown: %v", err)
	}
}

func noCompleter(d prompt.Document) []prompt.Suggest {
	return []prompt.Suggest{} // return empty slice
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	shutdownTrace, err = tracing.Setup(ctx, cfg.TraceEndpoint)
	if err != nil {
		log.Fatalf("tracing: %v", err)
	}
	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr); err != nil {
				log.Printf("metrics: %v", err)
			}
		}()
	}

	api := gateway.New(cfg.ServiceURL, gateway.WithTimeout(cfg.RequestTimeout))
	app = commands.NewApp(cfg, api, store.New(), os.Stdin, os.Stdout)

	fmt.Println("Welcome to Ivar Chat")
	fmt.Println("Type 'help' to see available commands")
	if cfg.CurrentUserID != "" && cfg.CurrentUsername != "" {
		app.Login(nil)
	}

	p := prompt.New(
		executor,
		noCompleter, // empty completer instead of nil
		prompt.OptionPrefix("> "),
		prompt.OptionLivePrefix(app.Prefix),
		prompt.OptionTitle("Ivar Chat"),
		prompt.OptionHistory([]string{}),
	)
	p.Run()
	quit()
}
