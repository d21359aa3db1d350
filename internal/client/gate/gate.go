/*
Package gate decides whether a protected view may render.

The decision depends only on the session state it is given. The gate never calls the
network and never changes the session.
*/
package gate

import (
	"popx/internal/client/session"
)

// SignInPath is where unauthenticated navigation is sent.
const SignInPath = "/signin"

// Decision is the outcome of evaluating the gate.
type Decision struct {
	// Allow is true when the protected view may render.
	Allow bool

	// RedirectTo is the sign-in entry point when Allow is false.
	RedirectTo string
}

// Evaluate lets the view render when an identity is present and redirects otherwise.
func Evaluate(s session.State) Decision {
	if s.Identity == nil {
		return Decision{RedirectTo: SignInPath}
	}
	return Decision{Allow: true}
}

// StateSource is anything that can report the current session state.
type StateSource interface {
	State() session.State
}

// Protect wraps view so it only runs for an authenticated session. Otherwise redirect
// receives the sign-in path and view is skipped. The state view sees is the one the
// gate evaluated.
func Protect(src StateSource, view func(session.State) error, redirect func(to string) error) func() error {
	return func() error {
		s := src.State()
		d := Evaluate(s)
		if !d.Allow {
			return redirect(d.RedirectTo)
		}
		return view(s)
	}
}
