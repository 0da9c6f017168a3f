// Package ui provides the Fyne-based GUI for the GoPanel client.
package ui

import (
	"context"
	"log/slog"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"

	"github.com/NicolasHaas/gopanel/pkg/client"
	"github.com/NicolasHaas/gopanel/pkg/config"
	"github.com/NicolasHaas/gopanel/pkg/model"
	"github.com/NicolasHaas/gopanel/pkg/panel"
	"github.com/NicolasHaas/gopanel/pkg/version"
)

// App is the main GUI application.
type App struct {
	fyneApp fyne.App
	window  fyne.Window
	cfg     *config.Config
	rt      *panel.Runtime

	ctx    context.Context
	cancel context.CancelFunc

	// Login screen
	loginScreen   fyne.CanvasObject
	tokenEntry    *widget.Entry
	loginBtn      *widget.Button
	loginProgress *widget.ProgressBarInfinite
	loginOutput   *widget.Label

	// Panel screen
	panelScreen   fyne.CanvasObject
	userLabel     *widget.Label
	usernameEntry *escEntry
	ramSelect     *widget.Select
	createBtn     *widget.Button
	createProg    *widget.ProgressBarInfinite
	panelOutput   *widget.Label
	actionBox     *fyne.Container

	// Shared
	body        *fyne.Container
	statusLabel *widget.Label
	notice      *notice
	current     client.Screen
}

// NewApp creates the GUI and assembles the client behind it.
func NewApp(cfg *config.Config) (*App, error) {
	a := &App{
		fyneApp: app.NewWithID("id.my.gopanel.client"),
		cfg:     cfg,
	}
	a.window = a.fyneApp.NewWindow("GoPanel")
	a.window.Resize(fyne.NewSize(560, 620))
	a.window.SetMaster()

	// the runtime does not touch the view until Start
	rt, err := panel.Open(cfg, a, panel.Dependencies{})
	if err != nil {
		return nil, err
	}
	a.rt = rt
	a.ctx, a.cancel = context.WithCancel(context.Background())
	a.buildUI()
	return a, nil
}

// Run shows the window and blocks until it is closed.
func (a *App) Run() {
	a.bindKeys()
	a.window.SetCloseIntercept(func() {
		a.cancel()
		if err := a.rt.Close(); err != nil {
			slog.Warn("close client", "err", err)
		}
		a.fyneApp.Quit()
	})

	go func() {
		restored := a.rt.Start(a.ctx)
		slog.Debug("startup complete", "restored", restored)
	}()
	a.window.ShowAndRun()
}

func (a *App) buildUI() {
	a.statusLabel = widget.NewLabel(model.StatusChecking.Label())
	a.statusLabel.TextStyle = fyne.TextStyle{Italic: true}

	versionLabel := widget.NewLabel(version.String())
	versionLabel.TextStyle = fyne.TextStyle{Italic: true}
	versionLabel.Importance = widget.LowImportance

	a.notice = newNotice()

	a.loginScreen = a.buildLoginScreen()
	a.panelScreen = a.buildPanelScreen()
	a.body = container.NewStack(a.loginScreen)
	a.current = client.ScreenLogin

	statusBar := container.NewHBox(a.statusLabel, layout.NewSpacer(), versionLabel)
	content := container.NewBorder(
		a.notice.label,
		statusBar,
		nil, nil,
		container.NewPadded(a.body),
	)
	a.window.SetContent(content)
}

func (a *App) buildLoginScreen() fyne.CanvasObject {
	title := widget.NewLabelWithStyle("GoPanel", fyne.TextAlignCenter, fyne.TextStyle{Bold: true})

	a.tokenEntry = widget.NewPasswordEntry()
	a.tokenEntry.SetPlaceHolder("Access token")
	a.tokenEntry.OnSubmitted = func(string) { a.submitLogin() }

	a.loginBtn = widget.NewButton("Login", a.submitLogin)
	a.loginBtn.Importance = widget.HighImportance

	a.loginProgress = widget.NewProgressBarInfinite()
	a.loginProgress.Hide()

	a.loginOutput = widget.NewLabel("")
	a.loginOutput.Wrapping = fyne.TextWrapWord
	a.loginOutput.Hide()

	return container.NewVBox(
		layout.NewSpacer(),
		title,
		a.tokenEntry,
		a.loginBtn,
		a.loginProgress,
		a.loginOutput,
		layout.NewSpacer(),
	)
}

func (a *App) buildPanelScreen() fyne.CanvasObject {
	a.userLabel = widget.NewLabel("")
	a.userLabel.TextStyle = fyne.TextStyle{Bold: true}

	logoutBtn := widget.NewButton("Logout", a.logout)
	header := container.NewHBox(a.userLabel, layout.NewSpacer(), logoutBtn)

	a.usernameEntry = newEscEntry(a.logout)
	a.usernameEntry.SetPlaceHolder("Panel username")
	a.usernameEntry.OnSubmitted = func(string) { a.submitCreate() }

	labels := make([]string, len(model.RAMSizes))
	for i, size := range model.RAMSizes {
		labels[i] = size.Label()
	}
	a.ramSelect = widget.NewSelect(labels, func(label string) {
		for _, size := range model.RAMSizes {
			if size.Label() == label {
				_ = a.rt.Controller.SelectRAM(size)
				return
			}
		}
	})
	a.ramSelect.SetSelected(model.DefaultRAM.Label())

	a.createBtn = widget.NewButton("Create Panel", a.submitCreate)
	a.createBtn.Importance = widget.HighImportance

	a.createProg = widget.NewProgressBarInfinite()
	a.createProg.Hide()

	a.panelOutput = widget.NewLabel("")
	a.panelOutput.Wrapping = fyne.TextWrapWord
	a.panelOutput.TextStyle = fyne.TextStyle{Monospace: true}
	a.panelOutput.Hide()

	a.actionBox = container.NewHBox()

	form := widget.NewForm(
		widget.NewFormItem("Username", a.usernameEntry),
		widget.NewFormItem("RAM", a.ramSelect),
	)
	result := container.NewVScroll(container.NewVBox(a.panelOutput, a.actionBox))
	return container.NewBorder(
		container.NewVBox(header, widget.NewSeparator(), form, a.createBtn, a.createProg),
		nil, nil, nil,
		result,
	)
}

// bindKeys routes Escape on the panel screen to logout when no widget has
// focus; the username entry handles its own Escape. Enter is handled by each
// entry's OnSubmitted.
func (a *App) bindKeys() {
	a.window.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		if ev.Name == fyne.KeyEscape && a.current == client.ScreenPanel {
			a.logout()
		}
	})
}

func (a *App) logout() {
	go a.rt.Controller.Logout(a.ctx)
}

func (a *App) submitLogin() {
	token := a.tokenEntry.Text
	go func() {
		_ = a.rt.Controller.Login(a.ctx, token)
	}()
}

func (a *App) submitCreate() {
	username := a.usernameEntry.Text
	fyne.Do(func() { a.actionBox.RemoveAll() })
	go func() {
		_, _ = a.rt.Controller.CreatePanel(a.ctx, username)
	}()
}

func (a *App) act(action model.Affordance) {
	if err := a.rt.Controller.Act(action); err != nil {
		slog.Debug("action failed", "label", action.Label, "err", err)
		if action.Kind == model.AffordanceOpen {
			dialog.ShowError(err, a.window)
		}
	}
}
