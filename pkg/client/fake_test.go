package client

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/NicolasHaas/gopanel/pkg/api"
	"github.com/NicolasHaas/gopanel/pkg/datastore"
	"github.com/NicolasHaas/gopanel/pkg/model"
	"github.com/NicolasHaas/gopanel/pkg/session"
)

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type rendered struct {
	Text string
	Kind Kind
}

type note struct {
	Text string
	Kind Kind
}

// fakeView records what the controller asks a view to do.
type fakeView struct {
	mu       sync.Mutex
	screen   Screen
	user     string
	outputs  map[Output]rendered
	hidden   map[Output]bool
	loading  map[Action]bool
	notes    []note
	actions  []model.Affordance
	resets   []Screen
	statuses []model.ConnectivityStatus
	copied   []string
	opened   []string
	copyErr  error
}

func newFakeView() *fakeView {
	return &fakeView{
		outputs: map[Output]rendered{},
		hidden:  map[Output]bool{},
		loading: map[Action]bool{},
	}
}

func (v *fakeView) SetStatus(status model.ConnectivityStatus) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.statuses = append(v.statuses, status)
}

func (v *fakeView) ShowScreen(screen Screen, username string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.screen, v.user = screen, username
}

func (v *fakeView) RenderOutput(out Output, text string, kind Kind) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.outputs[out] = rendered{Text: text, Kind: kind}
	v.hidden[out] = false
}

func (v *fakeView) HideOutput(out Output) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.hidden[out] = true
}

func (v *fakeView) SetLoading(action Action, loading bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.loading[action] = loading
}

func (v *fakeView) Notify(text string, kind Kind) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.notes = append(v.notes, note{Text: text, Kind: kind})
}

func (v *fakeView) OfferActions(actions []model.Affordance) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.actions = actions
}

func (v *fakeView) ResetForms(screen Screen) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.resets = append(v.resets, screen)
}

func (v *fakeView) CopyText(text string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.copyErr != nil {
		return v.copyErr
	}
	v.copied = append(v.copied, text)
	return nil
}

func (v *fakeView) OpenURL(rawURL string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.opened = append(v.opened, rawURL)
	return nil
}

func (v *fakeView) current() (Screen, string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.screen, v.user
}

func (v *fakeView) output(out Output) rendered {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.outputs[out]
}

func (v *fakeView) lastNote() note {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.notes) == 0 {
		return note{}
	}
	return v.notes[len(v.notes)-1]
}

func (v *fakeView) offered() []model.Affordance {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.actions
}

// backend is an httptest panel API with per-path canned replies.
type backend struct {
	mu      sync.Mutex
	replies map[string]reply
	hits    map[string][]string // path -> Authorization headers
}

type reply struct {
	status int
	body   string
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_, _ = io.Copy(io.Discard, r.Body)
	b.mu.Lock()
	b.hits[r.URL.Path] = append(b.hits[r.URL.Path], r.Header.Get("Authorization"))
	rep, ok := b.replies[r.URL.Path]
	b.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.WriteHeader(rep.status)
	_, _ = io.WriteString(w, rep.body)
}

func (b *backend) reply(path string, status int, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.replies[path] = reply{status: status, body: body}
}

func (b *backend) calls(path string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.hits[path]...)
}

func (b *backend) total() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, h := range b.hits {
		n += len(h)
	}
	return n
}

type harness struct {
	ctrl    *Controller
	view    *fakeView
	backend *backend
	api     *api.Client
	store   *session.Store
	kv      *datastore.Memory
	clock   *clockwork.FakeClock
}

// defaultDelays mirrors the interactive client.
var defaultDelays = Options{
	ViewSwitchDelay: 1500 * time.Millisecond,
	ExpiryDelay:     2 * time.Second,
	ActionsDelay:    time.Second,
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	b := &backend{replies: map[string]reply{}, hits: map[string][]string{}}
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)

	apiClient, err := api.New(srv.URL)
	require.NoError(t, err)

	clock := clockwork.NewFakeClockAt(epoch)
	kv := datastore.NewMemory()
	store := session.NewStore(kv, clock, 0)
	view := newFakeView()

	opts.Clock = clock
	ctrl := NewController(apiClient, store, view, opts)
	return &harness{ctrl: ctrl, view: view, backend: b, api: apiClient, store: store, kv: kv, clock: clock}
}

// flush waits for scheduled transitions and detached sends without closing
// the controller.
func (h *harness) flush() {
	h.ctrl.pending.Wait()
}

// loggedIn returns a harness holding bob's session on the panel screen.
func loggedIn(t *testing.T, opts Options) *harness {
	t.Helper()
	h := newHarness(t, opts)
	h.backend.reply(api.PathTokenLogin, http.StatusOK, `{"success":true,"data":{"username":"bob","sessionToken":"tok1"}}`)
	require.NoError(t, h.ctrl.Login(t.Context(), "abc123"))
	if opts.ViewSwitchDelay > 0 {
		h.clock.Advance(opts.ViewSwitchDelay)
	}
	h.flush()
	return h
}

var errClipboard = errors.New("clipboard unavailable")
