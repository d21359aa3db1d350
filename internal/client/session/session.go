/*
Package session implements the client-side session: the one place that owns the current
identity, the bearer token and the loading/error flags.

Every public operation resolves to an Outcome and never returns an error or panics across
the package boundary. State changes are whole-value swaps under a mutex. Logout and purge
advance an epoch; completions that started under an older epoch are dropped, so a late
response can never bring back a session the user already left.
*/
package session

import (
	"context"
	"net/http"
	"sync"
	"time"

	"popx/internal/client/tokenstore"
	"popx/internal/pkg/logx"
)

// Messages used when the server gives none.
const (
	MsgSessionChanged   = "Session changed. Please try again."
	MsgNotAuthenticated = "Not authenticated. Please sign in."
	MsgSignInAgain      = "Please sign in again."
	MsgLoginFailed      = "Invalid email or password."
	MsgRegisterFailed   = "Registration failed. Please try again."
	MsgUpdateFailed     = "Profile update failed. Please try again."
	MsgNetwork          = "Could not reach the server. Please try again."
)

const defaultTimeout = 10 * time.Second

// Identity is the server's public view of the signed-in account.
type Identity struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	ProfileImage string `json:"profileImage"`
}

// State is a snapshot of the session. Identity is nil when signed out.
type State struct {
	Identity *Identity
	Token    string
	Loading  bool
	Error    string
}

// Authenticated reports whether an identity is present.
func (s State) Authenticated() bool {
	return s.Identity != nil
}

func (s State) clone() State {
	if s.Identity != nil {
		id := *s.Identity
		s.Identity = &id
	}
	return s
}

// Outcome is the result of every public operation.
type Outcome struct {
	Success bool
	Error   string
}

func ok() Outcome { return Outcome{Success: true} }

func fail(msg string) Outcome { return Outcome{Error: msg} }

// Client is the session client. Create one per process with New and share it.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  tokenstore.Store

	// persistMu serializes the transitions that change the session token, so the stored
	// copy and the in-memory one move together. It is taken before mu, and token store
	// I/O happens under persistMu only, never under mu.
	persistMu sync.Mutex

	mu      sync.Mutex
	state   State
	epoch   uint64
	subs    map[int]func(State)
	nextSub int
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for all calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http = &http.Client{Timeout: d}
		}
	}
}

// New creates a signed-out Client talking to baseURL and persisting its token in tokens.
// Call Init to restore a persisted session.
func New(baseURL string, tokens tokenstore.Store, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultTimeout},
		tokens:  tokens,
		subs:    make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns a copy of the current state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Subscribe registers fn to receive every new state. The returned func unsubscribes.
// fn runs on the goroutine that changed the state and must not block.
func (c *Client) Subscribe(fn func(State)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// swapLocked installs next and returns what subscribers need. c.mu must be held.
func (c *Client) swapLocked(next State) (State, []func(State)) {
	c.state = next
	subs := make([]func(State), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	return c.state.clone(), subs
}

func notify(snap State, subs []func(State)) {
	for _, fn := range subs {
		fn(snap)
	}
}

// begin marks the start of a mutation and returns the session it started under.
func (c *Client) begin() sent {
	c.mu.Lock()
	next := c.state
	next.Loading = true
	next.Error = ""
	snap, subs := c.swapLocked(next)
	start := sent{token: c.state.Token, epoch: c.epoch}
	c.mu.Unlock()

	notify(snap, subs)
	return start
}

// apply replaces the state with fn(current) while the session start began under is
// still current: same epoch and same token.
func (c *Client) apply(start sent, fn func(State) State) bool {
	c.mu.Lock()
	if c.epoch != start.epoch || c.state.Token != start.token {
		c.mu.Unlock()
		return false
	}
	snap, subs := c.swapLocked(fn(c.state))
	c.mu.Unlock()

	notify(snap, subs)
	return true
}

// adoptToken persists token and makes it the session token, unless the session moved on.
// The epoch cannot advance while persistMu is held, so the check stays valid across the save.
func (c *Client) adoptToken(ctx context.Context, epoch uint64, token string) bool {
	c.persistMu.Lock()

	c.mu.Lock()
	current := c.epoch == epoch
	c.mu.Unlock()
	if !current {
		c.persistMu.Unlock()
		return false
	}

	if err := c.tokens.Save(ctx, token); err != nil {
		logx.Warn("session: failed to persist token, keeping it in memory only", "error", err.Error())
	}

	c.mu.Lock()
	snap, subs := c.swapLocked(State{Token: token, Loading: true})
	c.mu.Unlock()
	c.persistMu.Unlock()

	notify(snap, subs)
	return true
}

// purge clears the persisted token and the identity together, and ends the epoch.
// When token is non-empty the purge only happens if it is still the session token,
// so a rejection of an old token cannot end a newer session.
func (c *Client) purge(token, msg string) bool {
	c.persistMu.Lock()

	c.mu.Lock()
	stale := token != "" && c.state.Token != token
	c.mu.Unlock()
	if stale {
		c.persistMu.Unlock()
		return false
	}

	if err := c.tokens.Clear(context.Background()); err != nil {
		logx.Warn("session: failed to clear persisted token", "error", err.Error())
	}

	c.mu.Lock()
	c.epoch++
	snap, subs := c.swapLocked(State{Error: msg})
	c.mu.Unlock()
	c.persistMu.Unlock()

	notify(snap, subs)
	return true
}

// commitIdentity ends a successful fetch or update. It applies only while the session that
// sent the request, identified by epoch and token, is still the current one.
func (c *Client) commitIdentity(epoch uint64, token string, id Identity) bool {
	c.mu.Lock()
	if c.epoch != epoch || c.state.Token != token {
		c.mu.Unlock()
		return false
	}
	snap, subs := c.swapLocked(State{Identity: &id, Token: token})
	c.mu.Unlock()

	notify(snap, subs)
	return true
}

// Init restores a persisted session. Without a stored token the client stays signed out
// and Init succeeds; with one it is loaded and the identity fetched.
func (c *Client) Init(ctx context.Context) Outcome {
	c.persistMu.Lock()
	token, err := c.tokens.Load(ctx)
	if err != nil {
		logx.Warn("session: failed to load persisted token", "error", err.Error())
		token = ""
	}

	next := State{}
	if token != "" {
		next = State{Token: token, Loading: true}
	}
	c.mu.Lock()
	snap, subs := c.swapLocked(next)
	c.mu.Unlock()
	c.persistMu.Unlock()
	notify(snap, subs)

	if token == "" {
		return ok()
	}
	return c.fetchIdentity(ctx)
}

// Logout forgets the session locally. It makes no network call and cannot fail.
// The server does not revoke the token; it stays valid until it expires.
func (c *Client) Logout() {
	c.purge("", "")
}
