package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/NicolasHaas/gopanel/pkg/model"
)

// LoginData is the payload of a successful token login.
type LoginData struct {
	Username     string `json:"username"`
	SessionToken string `json:"sessionToken"`
}

type tokenLoginRequest struct {
	AccessToken string `json:"accessToken"`
}

type createPanelRequest struct {
	Username string `json:"username"`
	RAM      string `json:"ram"`
}

// Health probes GET /api/test. It returns nil when the backend answers 2xx
// with success:true.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.call(ctx, http.MethodGet, PathHealth, "", nil)
	return err
}

// VerifySession asks the backend whether token is still valid.
func (c *Client) VerifySession(ctx context.Context, token string) error {
	_, err := c.call(ctx, http.MethodPost, PathVerifySession, token, nil)
	return err
}

// TokenLogin exchanges an access token for a session.
func (c *Client) TokenLogin(ctx context.Context, accessToken string) (*LoginData, error) {
	data, err := c.call(ctx, http.MethodPost, PathTokenLogin, "", tokenLoginRequest{AccessToken: accessToken})
	if err != nil {
		return nil, err
	}
	var out LoginData
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("api: %s: decode data: %w", PathTokenLogin, err)
	}
	if out.SessionToken == "" {
		return nil, fmt.Errorf("api: %s: response carries no session token", PathTokenLogin)
	}
	return &out, nil
}

// Logout tells the backend to drop token. The response body is ignored;
// only transport failures are reported.
func (c *Client) Logout(ctx context.Context, token string) error {
	resp, err := c.send(ctx, http.MethodPost, PathLogout, token, nil)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

// CreatePanel submits req on behalf of the session holding token.
func (c *Client) CreatePanel(ctx context.Context, token string, req model.ResourceRequest) (*model.CreationResult, error) {
	data, err := c.call(ctx, http.MethodPost, PathCreatePanel, token, createPanelRequest{
		Username: req.TargetUsername,
		RAM:      string(req.RAM),
	})
	if err != nil {
		return nil, err
	}
	var out model.CreationResult
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("api: %s: decode data: %w", PathCreatePanel, err)
	}
	return &out, nil
}
