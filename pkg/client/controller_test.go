package client

import (
	"context"
	"net/http"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NicolasHaas/gopanel/pkg/api"
	"github.com/NicolasHaas/gopanel/pkg/datastore"
	"github.com/NicolasHaas/gopanel/pkg/model"
	"github.com/NicolasHaas/gopanel/pkg/session"
)

func TestLoginSuccess(t *testing.T) {
	h := newHarness(t, defaultDelays)
	h.backend.reply(api.PathTokenLogin, http.StatusOK, `{"success":true,"data":{"username":"bob","sessionToken":"tok1"}}`)

	require.NoError(t, h.ctrl.Login(t.Context(), "  abc123 "))

	sess, ok := h.store.Current()
	require.True(t, ok)
	assert.Equal(t, "bob", sess.Username)
	assert.Equal(t, "tok1", sess.Token)
	assert.WithinDuration(t, h.clock.Now(), sess.IssuedAt, time.Second)

	issued, _, _ := h.kv.Get(session.KeyIssued)
	assert.Equal(t, strconv.FormatInt(epoch.UnixMilli(), 10), issued)

	assert.Equal(t, rendered{"Login successful! Redirecting...", KindSuccess}, h.view.output(OutputLogin))
	assert.Equal(t, note{"Login successful", KindSuccess}, h.view.lastNote())
	assert.Equal(t, StateAuthenticated, h.ctrl.State())
	assert.False(t, h.view.loading[ActionLogin])

	screen, _ := h.view.current()
	assert.Equal(t, ScreenLogin, screen, "view switched before the delay")

	h.clock.Advance(defaultDelays.ViewSwitchDelay)
	h.flush()

	screen, user := h.view.current()
	assert.Equal(t, ScreenPanel, screen)
	assert.Equal(t, "bob", user)
}

func TestLoginEmptyTokenSendsNothing(t *testing.T) {
	h := newHarness(t, defaultDelays)

	err := h.ctrl.Login(t.Context(), "   ")
	require.ErrorIs(t, err, ErrTokenRequired)

	assert.Zero(t, h.backend.total())
	assert.Equal(t, rendered{"Please enter your access token", KindError}, h.view.output(OutputLogin))
	assert.Equal(t, note{"Token required", KindError}, h.view.lastNote())
	assert.Equal(t, StateUnauthenticated, h.ctrl.State())
}

func TestLoginFailure(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"refused with message", http.StatusOK, `{"success":false,"message":"Invalid token"}`, "Login failed: Invalid token"},
		{"server error", http.StatusInternalServerError, `oops`, "Login failed: Authentication failed"},
		{"missing session token", http.StatusOK, `{"success":true,"data":{"username":"bob"}}`, "Login failed: Authentication failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, defaultDelays)
			h.backend.reply(api.PathTokenLogin, tt.status, tt.body)

			require.Error(t, h.ctrl.Login(t.Context(), "abc123"))

			assert.Equal(t, rendered{tt.want, KindError}, h.view.output(OutputLogin))
			assert.Equal(t, note{"Login failed", KindError}, h.view.lastNote())
			assert.Equal(t, StateUnauthenticated, h.ctrl.State())
			_, ok := h.store.Current()
			assert.False(t, ok)
			assert.Zero(t, h.kv.Len())
		})
	}
}

func TestRestore(t *testing.T) {
	t.Run("fresh and accepted", func(t *testing.T) {
		h := newHarness(t, defaultDelays)
		require.NoError(t, h.store.Save("bob", "tok1"))
		h.backend.reply(api.PathVerifySession, http.StatusOK, `{"success":true}`)
		h.clock.Advance(time.Hour)

		require.True(t, h.ctrl.Restore(t.Context()))

		screen, user := h.view.current()
		assert.Equal(t, ScreenPanel, screen)
		assert.Equal(t, "bob", user)
		assert.Equal(t, []string{"Bearer tok1"}, h.backend.calls(api.PathVerifySession))
		assert.Equal(t, StateAuthenticated, h.ctrl.State())
	})

	t.Run("rejected", func(t *testing.T) {
		h := newHarness(t, defaultDelays)
		require.NoError(t, h.store.Save("bob", "tok1"))
		h.backend.reply(api.PathVerifySession, http.StatusUnauthorized, `{"success":false}`)

		require.False(t, h.ctrl.Restore(t.Context()))

		screen, _ := h.view.current()
		assert.Equal(t, ScreenLogin, screen)
		assert.Zero(t, h.kv.Len())
		assert.Equal(t, StateUnauthenticated, h.ctrl.State())
	})

	t.Run("expired", func(t *testing.T) {
		h := newHarness(t, defaultDelays)
		require.NoError(t, h.store.Save("bob", "tok1"))
		h.clock.Advance(model.SessionTTL)

		require.False(t, h.ctrl.Restore(t.Context()))

		assert.Empty(t, h.backend.calls(api.PathVerifySession))
		assert.Equal(t, 3, h.kv.Len(), "stale fields stay until the next login")
		_, held := h.store.Current()
		assert.False(t, held)
	})

	t.Run("nothing stored", func(t *testing.T) {
		h := newHarness(t, defaultDelays)

		require.False(t, h.ctrl.Restore(t.Context()))

		assert.Zero(t, h.backend.total())
		screen, _ := h.view.current()
		assert.Equal(t, ScreenLogin, screen)
	})
}

func TestLogout(t *testing.T) {
	h := loggedIn(t, defaultDelays)
	h.backend.reply(api.PathLogout, http.StatusInternalServerError, `ignored`)
	require.NoError(t, h.ctrl.SelectRAM(model.RAM4GB))

	h.ctrl.Logout(t.Context())
	h.ctrl.Logout(t.Context())
	h.flush()

	assert.Equal(t, []string{"Bearer tok1"}, h.backend.calls(api.PathLogout), "backend told exactly once")
	assert.Zero(t, h.kv.Len())
	assert.Equal(t, model.DefaultRAM, h.ctrl.SelectedRAM())
	assert.Equal(t, StateUnauthenticated, h.ctrl.State())
	assert.Equal(t, note{"Logged out successfully", KindInfo}, h.view.lastNote())

	screen, user := h.view.current()
	assert.Equal(t, ScreenLogin, screen)
	assert.Empty(t, user)
}

func TestLogoutBeforeViewSwitch(t *testing.T) {
	h := newHarness(t, defaultDelays)
	h.backend.reply(api.PathTokenLogin, http.StatusOK, `{"success":true,"data":{"username":"bob","sessionToken":"tok1"}}`)
	h.backend.reply(api.PathLogout, http.StatusOK, `{}`)

	require.NoError(t, h.ctrl.Login(t.Context(), "abc123"))
	h.ctrl.Logout(t.Context())
	h.clock.Advance(defaultDelays.ViewSwitchDelay)
	h.flush()

	screen, _ := h.view.current()
	assert.Equal(t, ScreenLogin, screen, "stale view switch must not fire")
}

func TestSelectRAM(t *testing.T) {
	h := newHarness(t, Options{})

	assert.Equal(t, model.DefaultRAM, h.ctrl.SelectedRAM())
	require.NoError(t, h.ctrl.SelectRAM(model.RAMUnlimited))
	assert.Equal(t, model.RAMUnlimited, h.ctrl.SelectedRAM())

	require.ErrorIs(t, h.ctrl.SelectRAM("1500"), model.ErrInvalidRAM)
	assert.Equal(t, model.RAMUnlimited, h.ctrl.SelectedRAM())
}

func TestStateChangeHook(t *testing.T) {
	h := newHarness(t, Options{})
	h.backend.reply(api.PathTokenLogin, http.StatusOK, `{"success":true,"data":{"username":"bob","sessionToken":"tok1"}}`)

	var seen []State
	h.ctrl.OnStateChange = func(s State) { seen = append(seen, s) }

	require.NoError(t, h.ctrl.Login(t.Context(), "abc123"))
	assert.Equal(t, []State{StateAuthenticating, StateAuthenticated}, seen)
}

// slowLogin holds every TokenLogin until release is closed.
type slowLogin struct {
	Backend
	release chan struct{}
	calls   atomic.Int32
}

func (b *slowLogin) TokenLogin(ctx context.Context, _ string) (*api.LoginData, error) {
	b.calls.Add(1)
	select {
	case <-b.release:
		return &api.LoginData{Username: "bob", SessionToken: "tok1"}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestConcurrentLoginsRefused(t *testing.T) {
	const logins = 8
	b := &slowLogin{release: make(chan struct{})}
	clock := clockwork.NewFakeClockAt(epoch)
	ctrl := NewController(b, session.NewStore(datastore.NewMemory(), clock, 0), newFakeView(), Options{Clock: clock})

	results := make(chan error, logins)
	for range logins {
		go func() { results <- ctrl.Login(t.Context(), "abc123") }()
	}

	for i := 0; i < logins-1; i++ {
		select {
		case err := <-results:
			require.ErrorIs(t, err, ErrBusy)
		case <-time.After(2 * time.Second):
			t.Fatalf("only %d of %d concurrent logins were refused", i, logins-1)
		}
	}
	close(b.release)
	require.NoError(t, <-results)

	assert.EqualValues(t, 1, b.calls.Load())
	assert.Equal(t, StateAuthenticated, ctrl.State())
}

func TestCloseStopsNewWork(t *testing.T) {
	h := loggedIn(t, defaultDelays)
	h.backend.reply(api.PathLogout, http.StatusOK, `{}`)

	h.ctrl.Close()
	h.ctrl.Logout(t.Context())
	h.ctrl.Close()

	assert.Empty(t, h.backend.calls(api.PathLogout), "no detached send after Close")
	assert.Zero(t, h.kv.Len())
	assert.Equal(t, StateUnauthenticated, h.ctrl.State())

	require.NoError(t, h.ctrl.Login(t.Context(), "abc123"))
	h.clock.Advance(defaultDelays.ViewSwitchDelay)
	h.ctrl.Close()

	screen, _ := h.view.current()
	assert.Equal(t, ScreenLogin, screen, "delayed view switch scheduled after Close")
}
