// Package console renders the panel client as plain text lines, for the
// command-line tool and for scripting.
package console

import (
	"fmt"
	"io"
	"sync"

	"github.com/NicolasHaas/gopanel/pkg/client"
	"github.com/NicolasHaas/gopanel/pkg/model"
)

// Presenter writes controller output to w. Loading messages and
// notifications are only written when Verbose is set.
type Presenter struct {
	mu      sync.Mutex
	w       io.Writer
	Verbose bool

	status model.ConnectivityStatus
	shown  []model.Affordance
}

var _ client.Presenter = (*Presenter)(nil)

// New creates a Presenter writing to w.
func New(w io.Writer) *Presenter {
	return &Presenter{w: w}
}

func (p *Presenter) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprintf(p.w, format, args...)
}

func (p *Presenter) SetStatus(status model.ConnectivityStatus) {
	p.mu.Lock()
	p.status = status
	p.mu.Unlock()
	if status != model.StatusChecking || p.Verbose {
		p.printf("backend: %s\n", status.Label())
	}
}

// Status returns the last connectivity status received.
func (p *Presenter) Status() model.ConnectivityStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Presenter) ShowScreen(screen client.Screen, username string) {
	if screen == client.ScreenPanel && p.Verbose {
		p.printf("signed in as %s\n", username)
	}
}

func (p *Presenter) RenderOutput(_ client.Output, text string, kind client.Kind) {
	switch kind {
	case client.KindLoading:
		if p.Verbose {
			p.printf("%s\n", text)
		}
	case client.KindError:
		p.printf("error: %s\n", text)
	default:
		p.printf("%s\n", text)
	}
}

func (p *Presenter) HideOutput(client.Output)       {}
func (p *Presenter) SetLoading(client.Action, bool) {}
func (p *Presenter) ResetForms(client.Screen)       {}

func (p *Presenter) Notify(text string, kind client.Kind) {
	if p.Verbose {
		p.printf("[%s] %s\n", kind, text)
	}
}

func (p *Presenter) OfferActions(actions []model.Affordance) {
	p.mu.Lock()
	p.shown = actions
	p.mu.Unlock()
	for _, a := range actions {
		if a.Kind == model.AffordanceOpen {
			p.printf("%s: %s\n", a.Label, a.Value)
		}
	}
}

// Offered returns the actions from the last OfferActions call.
func (p *Presenter) Offered() []model.Affordance {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shown
}

// CopyText has no clipboard to use; it writes text instead.
func (p *Presenter) CopyText(text string) error {
	p.printf("%s\n", text)
	return nil
}

// OpenURL prints the URL for the user to open.
func (p *Presenter) OpenURL(rawURL string) error {
	p.printf("open %s\n", rawURL)
	return nil
}
