// Package session tracks who is signed in.
//
// Identity operations publish auth-state events on a Redis channel. Each API
// process holds one Directory with a single subscription to that channel;
// the subscription goroutine is the only writer of the in-memory view, and
// request handlers read it through the auth gate.
package session

import "context"

// State is the gate outcome for one protected request.
type State int

const (
	Loading State = iota
	Authenticated
	Unauthenticated
)

func (s State) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	case Unauthenticated:
		return "unauthenticated"
	default:
		return "loading"
	}
}

// User is the signed-in identity as seen by request handlers.
type User struct {
	ID        string `json:"user_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	SessionID string `json:"sid"`
}

// EventKind names an auth-state change.
type EventKind string

const (
	SignedIn  EventKind = "signed_in"
	Updated   EventKind = "updated"
	SignedOut EventKind = "signed_out"
)

// Event is one auth-state change for a user. User is empty for SignedOut.
type Event struct {
	Kind   EventKind `json:"kind"`
	UserID string    `json:"user_id"`
	User   User      `json:"user"`
}

type ctxKey struct{}

// WithUser stores u in ctx.
func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// FromContext returns the user stored by WithUser.
func FromContext(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(ctxKey{}).(User)
	return u, ok && u.ID != ""
}
