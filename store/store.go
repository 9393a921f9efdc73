// Package store holds the process-wide session state: who is logged in and
// which peers show up in the recent conversations list.
package store

import (
	"sync"

	"ivar-client/models"
)

type State struct {
	ChatList    []models.User
	CurrentUser models.User
}

// Initial is the state before login and after logout.
func Initial() State {
	return State{ChatList: []models.User{}, CurrentUser: models.User{}}
}

// Action is a state transition. The set is closed; see Reduce.
type Action interface {
	isAction()
}

type SetCurrentUser struct{ User models.User }

type SetChatList struct{ Users []models.User }

// AddChat prepends a peer unconditionally, so the same peer can appear twice.
type AddChat struct{ User models.User }

// TouchChat moves a peer to the front of the chat list, inserting it if absent.
type TouchChat struct{ User models.User }

type ClearState struct{}

func (SetCurrentUser) isAction() {}
func (SetChatList) isAction()    {}
func (AddChat) isAction()        {}
func (TouchChat) isAction()      {}
func (ClearState) isAction()     {}

// Reduce applies an action and returns the next state. The input is never mutated.
func Reduce(state State, action Action) State {
	switch a := action.(type) {
	case SetCurrentUser:
		state.CurrentUser = a.User
		return state
	case SetChatList:
		state.ChatList = append([]models.User{}, a.Users...)
		return state
	case AddChat:
		state.ChatList = prepend(state.ChatList, a.User)
		return state
	case TouchChat:
		rest := make([]models.User, 0, len(state.ChatList))
		for _, u := range state.ChatList {
			if u.ID != a.User.ID {
				rest = append(rest, u)
			}
		}
		state.ChatList = prepend(rest, a.User)
		return state
	case ClearState:
		return Initial()
	default:
		return state
	}
}

func prepend(list []models.User, u models.User) []models.User {
	out := make([]models.User, 0, len(list)+1)
	out = append(out, u)
	return append(out, list...)
}

// Store serializes dispatches against a single State.
type Store struct {
	mu        sync.Mutex
	state     State
	listeners map[int]func(State)
	nextID    int
}

func New() *Store {
	return &Store{state: Initial(), listeners: make(map[int]func(State))}
}

// Dispatch reduces the action and notifies listeners with the new state.
func (s *Store) Dispatch(action Action) {
	s.mu.Lock()
	s.state = Reduce(s.state, action)
	next := s.copyState()
	listeners := make([]func(State), 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(next)
	}
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyState()
}

// Subscribe registers fn for every subsequent dispatch. The returned func removes it.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) copyState() State {
	return State{
		ChatList:    append([]models.User{}, s.state.ChatList...),
		CurrentUser: s.state.CurrentUser,
	}
}
