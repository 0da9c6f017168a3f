package ui

import (
	"net/url"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/NicolasHaas/gopanel/pkg/client"
	"github.com/NicolasHaas/gopanel/pkg/model"
)

const noticeDuration = 4 * time.Second

var _ client.Presenter = (*App)(nil)

// Presenter methods may be called from any goroutine; widget changes go
// through fyne.Do.

func (a *App) SetStatus(status model.ConnectivityStatus) {
	fyne.Do(func() {
		a.statusLabel.SetText(status.Label())
		switch status {
		case model.StatusConnected:
			a.statusLabel.Importance = widget.SuccessImportance
		case model.StatusDisconnected:
			a.statusLabel.Importance = widget.DangerImportance
		default:
			a.statusLabel.Importance = widget.MediumImportance
		}
		a.statusLabel.Refresh()
	})
}

func (a *App) ShowScreen(screen client.Screen, username string) {
	fyne.Do(func() {
		a.current = screen
		switch screen {
		case client.ScreenPanel:
			a.userLabel.SetText("Logged in as " + username)
			a.body.Objects = []fyne.CanvasObject{a.panelScreen}
			a.window.Canvas().Focus(a.usernameEntry)
		default:
			a.body.Objects = []fyne.CanvasObject{a.loginScreen}
			a.window.Canvas().Focus(a.tokenEntry)
		}
		a.body.Refresh()
	})
}

func (a *App) outputLabel(out client.Output) *widget.Label {
	if out == client.OutputPanel {
		return a.panelOutput
	}
	return a.loginOutput
}

func (a *App) RenderOutput(out client.Output, text string, kind client.Kind) {
	fyne.Do(func() {
		l := a.outputLabel(out)
		l.Importance = importance(kind)
		l.SetText(text)
		l.Show()
	})
}

func (a *App) HideOutput(out client.Output) {
	fyne.Do(func() {
		a.outputLabel(out).Hide()
		if out == client.OutputPanel {
			a.actionBox.RemoveAll()
		}
	})
}

func (a *App) SetLoading(action client.Action, loading bool) {
	fyne.Do(func() {
		btn, prog := a.loginBtn, a.loginProgress
		if action == client.ActionCreate {
			btn, prog = a.createBtn, a.createProg
		}
		if loading {
			btn.Disable()
			prog.Show()
			prog.Start()
			return
		}
		prog.Stop()
		prog.Hide()
		btn.Enable()
	})
}

func (a *App) Notify(text string, kind client.Kind) {
	a.notice.show(text, kind)
}

func (a *App) OfferActions(actions []model.Affordance) {
	fyne.Do(func() {
		a.actionBox.RemoveAll()
		for _, action := range actions {
			icon := theme.ContentCopyIcon()
			if action.Kind == model.AffordanceOpen {
				icon = theme.ComputerIcon()
			}
			a.actionBox.Add(widget.NewButtonWithIcon(action.Label, icon, func() { a.act(action) }))
		}
	})
}

func (a *App) ResetForms(screen client.Screen) {
	fyne.Do(func() {
		if screen == client.ScreenPanel {
			a.usernameEntry.SetText("")
			a.ramSelect.SetSelected(model.DefaultRAM.Label())
			return
		}
		a.tokenEntry.SetText("")
	})
}

func (a *App) CopyText(text string) error {
	fyne.Do(func() {
		a.window.Clipboard().SetContent(text)
	})
	return nil
}

func (a *App) OpenURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	return a.fyneApp.OpenURL(u)
}

func importance(kind client.Kind) widget.Importance {
	switch kind {
	case client.KindSuccess:
		return widget.SuccessImportance
	case client.KindError:
		return widget.DangerImportance
	case client.KindLoading:
		return widget.LowImportance
	default:
		return widget.MediumImportance
	}
}

// notice is a one-line message that hides itself after noticeDuration.
type notice struct {
	label *widget.Label

	mu  sync.Mutex
	gen int
}

func newNotice() *notice {
	l := widget.NewLabel("")
	l.Alignment = fyne.TextAlignCenter
	l.Hide()
	return &notice{label: l}
}

func (n *notice) show(text string, kind client.Kind) {
	n.mu.Lock()
	n.gen++
	gen := n.gen
	n.mu.Unlock()

	fyne.Do(func() {
		n.label.Importance = importance(kind)
		n.label.SetText(text)
		n.label.Show()
	})
	time.AfterFunc(noticeDuration, func() {
		n.mu.Lock()
		stale := gen != n.gen
		n.mu.Unlock()
		if !stale {
			fyne.Do(n.label.Hide)
		}
	})
}
