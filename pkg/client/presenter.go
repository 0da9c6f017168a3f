package client

import "github.com/NicolasHaas/gopanel/pkg/model"

// Screen is a top-level view.
type Screen int

const (
	ScreenLogin Screen = iota
	ScreenPanel
)

// Output is a message area belonging to a screen.
type Output int

const (
	OutputLogin Output = iota
	OutputPanel
)

// Kind styles outputs and notifications.
type Kind int

const (
	KindInfo Kind = iota
	KindLoading
	KindSuccess
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindInfo:
		return "info"
	case KindLoading:
		return "loading"
	case KindSuccess:
		return "success"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// Action identifies a user-triggered operation that can show progress.
type Action int

const (
	ActionLogin Action = iota
	ActionCreate
)

// StatusSink receives connectivity updates.
type StatusSink interface {
	SetStatus(status model.ConnectivityStatus)
}

// Presenter is everything the controller needs from a view. Implementations
// must be safe to call from any goroutine.
type Presenter interface {
	StatusSink

	// ShowScreen switches to screen; username is shown on the panel screen.
	ShowScreen(screen Screen, username string)
	RenderOutput(out Output, text string, kind Kind)
	HideOutput(out Output)
	SetLoading(action Action, loading bool)
	Notify(text string, kind Kind)
	// OfferActions presents affordances attached to the panel output.
	OfferActions(actions []model.Affordance)
	// ResetForms clears the inputs of screen.
	ResetForms(screen Screen)
	CopyText(text string) error
	OpenURL(rawURL string) error
}
