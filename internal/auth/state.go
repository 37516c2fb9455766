// Package auth gates the task store behind a signed-in session. The session
// moves through a closed set of states driven by a pure reducer; Gate runs
// the side effects (credential storage, calls to the identity service).
package auth

import "time"

// User is the signed-in account.
type User struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Picture   string     `json:"picture,omitempty"`
	Verified  bool       `json:"verified"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// State is one of Unauthenticated, Authenticating, Authenticated or Failed.
type State interface {
	state()
}

type Unauthenticated struct{}

type Authenticating struct{}

type Authenticated struct {
	User  User
	Token string
}

type Failed struct {
	Reason string
}

func (Unauthenticated) state() {}
func (Authenticating) state()  {}
func (Authenticated) state()   {}
func (Failed) state()          {}

// Event drives a transition.
type Event interface {
	event()
}

// Started begins a sign-in attempt.
type Started struct{}

// Succeeded carries a verified session. It also replaces the token of an
// already authenticated session after a refresh.
type Succeeded struct {
	User  User
	Token string
}

// Rejected ends a sign-in attempt with a user-visible reason.
type Rejected struct {
	Reason string
}

// LoggedOut clears the session from any state.
type LoggedOut struct{}

// ErrorCleared dismisses a failure.
type ErrorCleared struct{}

// NothingStored ends the start-up check when no usable credential exists.
type NothingStored struct{}

func (Started) event()       {}
func (Succeeded) event()     {}
func (Rejected) event()      {}
func (LoggedOut) event()     {}
func (ErrorCleared) event()  {}
func (NothingStored) event() {}

// Reduce returns the state after e. Events that make no sense in s leave it
// unchanged.
func Reduce(s State, e Event) State {
	if _, ok := e.(LoggedOut); ok {
		return Unauthenticated{}
	}
	switch s.(type) {
	case Unauthenticated, Failed:
		switch e.(type) {
		case Started:
			return Authenticating{}
		case ErrorCleared:
			return Unauthenticated{}
		}
	case Authenticating:
		switch e := e.(type) {
		case Succeeded:
			return Authenticated{User: e.User, Token: e.Token}
		case Rejected:
			return Failed{Reason: e.Reason}
		case NothingStored:
			return Unauthenticated{}
		}
	case Authenticated:
		if e, ok := e.(Succeeded); ok {
			return Authenticated{User: e.User, Token: e.Token}
		}
	}
	return s
}
