// Package client implements the GoPanel session lifecycle: login, restore,
// logout, connectivity polling and panel requests. Views plug in through
// Presenter.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/NicolasHaas/gopanel/pkg/api"
	"github.com/NicolasHaas/gopanel/pkg/crypto"
	"github.com/NicolasHaas/gopanel/pkg/model"
	"github.com/NicolasHaas/gopanel/pkg/session"
)

var (
	ErrTokenRequired  = errors.New("client: access token required")
	ErrBusy           = errors.New("client: login already in progress")
	ErrSessionExpired = errors.New("client: session expired")
)

const logoutTimeout = 10 * time.Second

// State represents the controller's session state.
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticating
	StateAuthenticated
	StateExpiring // between a rejected session and the forced logout
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateExpiring:
		return "expiring"
	default:
		return "unknown"
	}
}

// Backend is the subset of the panel API the controller uses.
type Backend interface {
	HealthChecker
	SessionVerifier
	TokenLogin(ctx context.Context, accessToken string) (*api.LoginData, error)
	Logout(ctx context.Context, token string) error
	CreatePanel(ctx context.Context, token string, req model.ResourceRequest) (*model.CreationResult, error)
}

// Options tunes a Controller. Zero delays apply changes immediately.
type Options struct {
	Clock           clockwork.Clock
	ViewSwitchDelay time.Duration // after a successful login
	ExpiryDelay     time.Duration // between "session expired" and the logout
	ActionsDelay    time.Duration // before offering copy/open actions
}

// Controller owns the session and drives the view.
type Controller struct {
	backend  Backend
	store    *session.Store
	verifier *Verifier
	view     Presenter
	clock    clockwork.Clock
	opts     Options

	mu          sync.Mutex
	state       State
	selectedRAM model.RAMSize
	closed      bool // set by Close; no new pending work after it

	// detached logout sends and scheduled transitions
	pending sync.WaitGroup

	// OnStateChange, when set, is called after every transition.
	OnStateChange func(state State)
}

// NewController wires a controller. The store should not be shared with
// another controller.
func NewController(backend Backend, store *session.Store, view Presenter, opts Options) *Controller {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Controller{
		backend:     backend,
		store:       store,
		verifier:    NewVerifier(backend),
		view:        view,
		clock:       opts.Clock,
		opts:        opts,
		state:       StateUnauthenticated,
		selectedRAM: model.DefaultRAM,
	}
}

// State returns the current session state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Username returns the logged-in username, or "".
func (c *Controller) Username() string {
	return c.store.Username()
}

func (c *Controller) setState(state State) {
	c.mu.Lock()
	prev := c.state
	c.state = state
	c.mu.Unlock()

	c.notifyStateChange(prev, state)
}

// notifyStateChange must be called without c.mu held.
func (c *Controller) notifyStateChange(prev, state State) {
	if prev == state {
		return
	}
	slog.Debug("session state", "from", prev.String(), "to", state.String())
	if c.OnStateChange != nil {
		c.OnStateChange(state)
	}
}

// SelectRAM sets the allocation used by the next CreatePanel.
func (c *Controller) SelectRAM(size model.RAMSize) error {
	if !size.Valid() {
		return fmt.Errorf("client: select ram %q: %w", size, model.ErrInvalidRAM)
	}
	c.mu.Lock()
	c.selectedRAM = size
	c.mu.Unlock()
	return nil
}

// SelectedRAM returns the allocation used by the next CreatePanel.
func (c *Controller) SelectedRAM() model.RAMSize {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectedRAM
}

// Restore brings back a persisted session if it is fresh and the backend
// still accepts it. Otherwise the login screen is shown. A session the
// backend rejects is cleared; stale or partial fields are left in storage
// and overwritten by the next login.
func (c *Controller) Restore(ctx context.Context) bool {
	if c.store.Load() {
		sess, _ := c.store.Current()
		if c.verifier.Verify(ctx, sess.Token) {
			slog.InfoContext(ctx, "session restored", "user", sess.Username, "token", crypto.Fingerprint(sess.Token))
			c.setState(StateAuthenticated)
			c.view.ShowScreen(ScreenPanel, sess.Username)
			c.view.HideOutput(OutputPanel)
			return true
		}
		c.store.Clear()
	}

	c.setState(StateUnauthenticated)
	c.view.ShowScreen(ScreenLogin, "")
	c.view.HideOutput(OutputLogin)
	return false
}

// Login exchanges an access token for a session.
func (c *Controller) Login(ctx context.Context, accessToken string) error {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		c.view.RenderOutput(OutputLogin, "Please enter your access token", KindError)
		c.view.Notify("Token required", KindError)
		return ErrTokenRequired
	}

	c.mu.Lock()
	if c.state == StateAuthenticating {
		c.mu.Unlock()
		return ErrBusy
	}
	prev := c.state
	c.state = StateAuthenticating
	c.mu.Unlock()
	c.notifyStateChange(prev, StateAuthenticating)

	c.view.SetLoading(ActionLogin, true)
	defer c.view.SetLoading(ActionLogin, false)
	c.view.RenderOutput(OutputLogin, "Authenticating...", KindLoading)

	data, err := c.backend.TokenLogin(ctx, accessToken)
	if err != nil {
		if prev == StateAuthenticating {
			prev = StateUnauthenticated
		}
		c.setState(prev)
		msg := api.Message(err)
		if msg == "" {
			msg = "Authentication failed"
		}
		slog.InfoContext(ctx, "login failed", "err", err)
		c.view.RenderOutput(OutputLogin, "Login failed: "+msg, KindError)
		c.view.Notify("Login failed", KindError)
		return fmt.Errorf("client: login: %w", err)
	}

	// a failed write still leaves a usable in-memory session
	_ = c.store.Save(data.Username, data.SessionToken)
	c.setState(StateAuthenticated)
	slog.InfoContext(ctx, "logged in", "user", data.Username, "token", crypto.Fingerprint(data.SessionToken))

	c.view.RenderOutput(OutputLogin, "Login successful! Redirecting...", KindSuccess)
	c.view.Notify("Login successful", KindSuccess)
	c.view.ResetForms(ScreenLogin)

	c.after(c.opts.ViewSwitchDelay, func() {
		if c.State() != StateAuthenticated {
			return
		}
		c.view.ShowScreen(ScreenPanel, c.store.Username())
		c.view.HideOutput(OutputPanel)
	})
	return nil
}

// Logout ends the session locally and, best effort, on the backend. The
// backend is told at most once from a detached goroutine; its answer is
// never awaited and never surfaced.
func (c *Controller) Logout(ctx context.Context) {
	if token := c.store.Token(); token != "" {
		c.notifyLogout(ctx, token)
	}

	c.store.Clear()
	c.mu.Lock()
	c.selectedRAM = model.DefaultRAM
	c.mu.Unlock()
	c.setState(StateUnauthenticated)

	c.view.ResetForms(ScreenLogin)
	c.view.ResetForms(ScreenPanel)
	c.view.ShowScreen(ScreenLogin, "")
	c.view.HideOutput(OutputLogin)
	c.view.Notify("Logged out successfully", KindInfo)
	slog.InfoContext(ctx, "logged out")
}

func (c *Controller) notifyLogout(ctx context.Context, token string) {
	if !c.track() {
		slog.DebugContext(ctx, "controller closed, logout not sent")
		return
	}
	go func() {
		defer c.pending.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), logoutTimeout)
		defer cancel()
		if err := c.backend.Logout(ctx, token); err != nil {
			slog.DebugContext(ctx, "logout notification failed", "err", err)
		}
	}()
}

// expire reports the lost session and schedules the logout transition.
func (c *Controller) expire() {
	c.view.RenderOutput(OutputPanel, "Session expired. Please login again.", KindError)

	c.mu.Lock()
	prev := c.state
	if prev == StateExpiring {
		c.mu.Unlock()
		return
	}
	c.state = StateExpiring
	c.mu.Unlock()
	c.notifyStateChange(prev, StateExpiring)
	slog.Info("session expired", "logout_in", c.opts.ExpiryDelay)

	c.after(c.opts.ExpiryDelay, func() {
		// a new login during the delay wins
		if c.State() != StateExpiring {
			return
		}
		c.Logout(context.Background())
	})
}

// after runs f once d has elapsed on the controller's clock, or right away
// when d is not positive. Close waits for it; after Close, delayed work is
// dropped.
func (c *Controller) after(d time.Duration, f func()) {
	if d <= 0 {
		f()
		return
	}
	if !c.track() {
		return
	}
	c.clock.AfterFunc(d, func() {
		defer c.pending.Done()
		f()
	})
}

// track registers one unit of pending work unless the controller is closed.
func (c *Controller) track() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.pending.Add(1)
	return true
}

// Close stops scheduling new work and waits for scheduled transitions and
// detached logout sends.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.pending.Wait()
}
