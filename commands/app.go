// Package commands implements the terminal views: one exported method per
// user intent, driven by the go-prompt executor in main.
package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"

	"ivar-client/config"
	"ivar-client/gateway"
	"ivar-client/models"
	"ivar-client/realtime"
	"ivar-client/store"
)

var helpRegex = regexp.MustCompile(`^--help$|^-h$`)

// App holds the session shared by every command.
type App struct {
	cfg   config.Config
	api   *gateway.Client
	store *store.Store
	in    *bufio.Reader

	outMu sync.Mutex
	out   io.Writer

	mu       sync.Mutex
	channel  *realtime.Channel
	stop     context.CancelFunc
	done     chan struct{}
	openPeer string
	prefix   string
}

const defaultPrefix = "> "

func NewApp(cfg config.Config, api *gateway.Client, st *store.Store, in io.Reader, out io.Writer) *App {
	a := &App{
		cfg:    cfg,
		api:    api,
		store:  st,
		in:     bufio.NewReader(in),
		out:    out,
		prefix: defaultPrefix,
	}
	// The App lives as long as the store, so the listener is never removed.
	st.Subscribe(a.sessionChanged)
	return a
}

func (a *App) Store() *store.Store { return a.store }

// Prefix is the live prompt prefix: the signed-in username, or "> " when
// signed out.
func (a *App) Prefix() (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.prefix, true
}

func (a *App) sessionChanged(s store.State) {
	prefix := defaultPrefix
	if s.CurrentUser.ID != "" {
		prefix = s.CurrentUser.DisplayName() + defaultPrefix
	}
	a.mu.Lock()
	a.prefix = prefix
	a.mu.Unlock()
}

func (a *App) printf(format string, args ...any) {
	a.outMu.Lock()
	defer a.outMu.Unlock()
	fmt.Fprintf(a.out, format, args...)
}

func (a *App) println(args ...any) {
	a.outMu.Lock()
	defer a.outMu.Unlock()
	fmt.Fprintln(a.out, args...)
}

// currentUser returns the logged-in user, or prints a hint and false.
func (a *App) currentUser() (models.User, bool) {
	u := a.store.State().CurrentUser
	if u.ID == "" {
		a.println("You must login first using the login command.")
		return models.User{}, false
	}
	return u, true
}

// usage prints the help lines and reports true when args ask for help.
func (a *App) usage(args []string, lines ...string) bool {
	for _, arg := range args {
		if helpRegex.MatchString(arg) {
			for _, l := range lines {
				a.println(l)
			}
			return true
		}
	}
	return false
}

// parseArgs collects --key:value pairs. Other tokens are ignored.
func parseArgs(args []string) map[string]string {
	out := make(map[string]string)
	for _, arg := range args {
		if !strings.HasPrefix(arg, "--") {
			continue
		}
		key, value, ok := strings.Cut(strings.TrimPrefix(arg, "--"), ":")
		if !ok || key == "" {
			continue
		}
		out[strings.ToLower(key)] = value
	}
	return out
}

// ask reads one trimmed line after printing label.
func (a *App) ask(label string) string {
	a.printf("%s", label)
	line, _ := a.in.ReadString('\n')
	return strings.TrimSpace(line)
}

// argOrAsk returns --key from args, else fallback, else an interactive answer.
func (a *App) argOrAsk(args map[string]string, key, fallback, label string) string {
	if v := strings.TrimSpace(args[key]); v != "" {
		return v
	}
	if fallback != "" {
		return fallback
	}
	return a.ask(label)
}

func (a *App) activePeer() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.openPeer
}

func (a *App) setActivePeer(id string) {
	a.mu.Lock()
	a.openPeer = id
	a.mu.Unlock()
}

func (a *App) liveChannel() *realtime.Channel {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.channel
}

// resolveUser maps a username or id to a known user from the chat list or
// friends. Unknown names are taken to be ids.
func (a *App) resolveUser(ctx context.Context, self models.User, name string) models.User {
	for _, u := range a.store.State().ChatList {
		if u.ID == name || u.Username == name {
			return u
		}
	}
	friends, err := a.api.ListFriends(ctx, self.ID)
	if err == nil {
		for _, u := range friends {
			if u.ID == name || u.Username == name {
				return u
			}
		}
	}
	return models.User{ID: name}
}
