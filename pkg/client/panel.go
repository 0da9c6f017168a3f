package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/NicolasHaas/gopanel/pkg/api"
	"github.com/NicolasHaas/gopanel/pkg/model"
)

// CreatePanel provisions a panel for username with the selected RAM
// allocation. Input is validated before anything is sent; a missing or
// rejected session leads to the expiry transition.
func (c *Controller) CreatePanel(ctx context.Context, username string) (*model.CreationResult, error) {
	req, err := c.ValidateRequest(username)
	if err != nil {
		return nil, err
	}

	sess, ok := c.store.Current()
	if !ok || c.State() != StateAuthenticated {
		c.expire()
		return nil, ErrSessionExpired
	}

	c.view.SetLoading(ActionCreate, true)
	defer c.view.SetLoading(ActionCreate, false)
	c.view.RenderOutput(OutputPanel, "Creating panel...", KindLoading)

	result, err := c.backend.CreatePanel(ctx, sess.Token, req)
	if err != nil {
		if api.IsUnauthorized(err) {
			c.expire()
			return nil, fmt.Errorf("%w: %w", ErrSessionExpired, err)
		}
		msg := api.Message(err)
		if msg == "" {
			msg = "Panel creation failed"
		}
		slog.WarnContext(ctx, "create panel failed", "target", req.TargetUsername, "ram", string(req.RAM), "err", err)
		c.view.RenderOutput(OutputPanel, "Panel creation failed: "+msg, KindError)
		c.view.Notify("Panel creation failed", KindError)
		return nil, fmt.Errorf("client: create panel: %w", err)
	}

	slog.InfoContext(ctx, "panel created", "target", req.TargetUsername, "ram", string(req.RAM), "server", result.Server.ID.String())
	c.view.RenderOutput(OutputPanel, FormatReport(*result, c.clock.Now(), sess.Username), KindSuccess)
	c.view.Notify("Panel created successfully", KindSuccess)

	actions := result.Affordances()
	c.after(c.opts.ActionsDelay, func() {
		c.view.OfferActions(actions)
	})
	return result, nil
}

// ValidateRequest builds the request CreatePanel would send for username and
// the selected RAM, reporting invalid input to the view. It never touches
// the backend.
func (c *Controller) ValidateRequest(username string) (model.ResourceRequest, error) {
	req := model.NewResourceRequest(username, c.SelectedRAM())
	if err := req.Validate(); err != nil {
		c.reportInvalid(err)
		return model.ResourceRequest{}, err
	}
	return req, nil
}

func (c *Controller) reportInvalid(err error) {
	switch {
	case errors.Is(err, model.ErrUsernameRequired):
		c.view.RenderOutput(OutputPanel, "Please enter a username", KindError)
		c.view.Notify("Username required", KindError)
	case errors.Is(err, model.ErrUsernameTooShort):
		c.view.RenderOutput(OutputPanel, fmt.Sprintf("Username must be at least %d characters", model.MinTargetUsernameLength), KindError)
		c.view.Notify("Username too short", KindError)
	default:
		c.view.RenderOutput(OutputPanel, "Please select a valid RAM allocation", KindError)
		c.view.Notify("Invalid RAM allocation", KindError)
	}
}

// Act performs an affordance offered with a creation report.
func (c *Controller) Act(a model.Affordance) error {
	switch a.Kind {
	case model.AffordanceCopy:
		if err := c.view.CopyText(a.Value); err != nil {
			slog.Debug("copy failed", "label", a.Label, "err", err)
			c.view.Notify("Copy failed", KindError)
			return fmt.Errorf("client: copy: %w", err)
		}
		c.view.Notify("Copied to clipboard", KindSuccess)
		return nil
	case model.AffordanceOpen:
		u, err := url.Parse(a.Value)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			c.view.Notify("Invalid panel URL", KindError)
			return fmt.Errorf("client: open %q: not an http(s) URL", a.Value)
		}
		if err := c.view.OpenURL(u.String()); err != nil {
			c.view.Notify("Could not open panel", KindError)
			return fmt.Errorf("client: open: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("client: unknown affordance kind %d", a.Kind)
	}
}
