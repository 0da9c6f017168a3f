// Package panel assembles a GoPanel client from configuration: local
// storage, the backend API client, the session store, the connectivity
// poller and the controller.
package panel

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/jonboulle/clockwork"

	"github.com/NicolasHaas/gopanel/pkg/api"
	"github.com/NicolasHaas/gopanel/pkg/client"
	"github.com/NicolasHaas/gopanel/pkg/config"
	"github.com/NicolasHaas/gopanel/pkg/crypto"
	"github.com/NicolasHaas/gopanel/pkg/datastore"
	"github.com/NicolasHaas/gopanel/pkg/session"
	"github.com/NicolasHaas/gopanel/pkg/version"
)

// Dependencies overrides parts of the assembled client. Zero values mean
// the production implementation.
type Dependencies struct {
	Clock      clockwork.Clock
	KV         datastore.KV // defaults to the SQLite file from the config
	HTTPClient *http.Client
}

// Runtime is an assembled client.
type Runtime struct {
	Config     *config.Config
	API        *api.Client
	Sessions   *session.Store
	Poller     *client.Poller
	Controller *client.Controller

	kv datastore.KV
}

// Open builds a Runtime that drives view.
func Open(cfg *config.Config, view client.Presenter, deps Dependencies) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}

	kv := deps.KV
	if kv == nil {
		var err error
		if kv, err = OpenStorage(cfg); err != nil {
			return nil, err
		}
	}

	opts := []api.Option{
		api.WithTimeout(cfg.RequestTimeout),
		api.WithUserAgent(version.UserAgent()),
	}
	if deps.HTTPClient != nil {
		opts = append(opts, api.WithHTTPClient(deps.HTTPClient))
	}
	apiClient, err := api.New(cfg.BackendURL, opts...)
	if err != nil {
		_ = kv.Close()
		return nil, fmt.Errorf("panel: %w", err)
	}

	sessions := session.NewStore(kv, deps.Clock, cfg.SessionTTL)
	rt := &Runtime{
		Config:   cfg,
		API:      apiClient,
		Sessions: sessions,
		Poller:   client.NewPoller(apiClient, view, deps.Clock, cfg.PollInterval),
		Controller: client.NewController(apiClient, sessions, view, client.Options{
			Clock:           deps.Clock,
			ViewSwitchDelay: cfg.ViewSwitchDelay,
			ExpiryDelay:     cfg.ExpiryDelay,
			ActionsDelay:    cfg.ActionsDelay,
		}),
		kv: kv,
	}
	slog.Debug("client assembled", "backend", apiClient.BaseURL(), "db", cfg.DBPath, "encrypt", cfg.Encrypt)
	return rt, nil
}

// OpenStorage opens the local SQLite store named by cfg, sealing values
// with a key kept next to it when encryption is enabled.
func OpenStorage(cfg *config.Config) (*datastore.SQLite, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("panel: create data dir: %w", err)
	}

	var opts []datastore.Option
	if cfg.Encrypt {
		key, err := crypto.LoadOrCreateKey(cfg.KeyPath(), crypto.Chacha20KeySize)
		if err != nil {
			return nil, fmt.Errorf("panel: storage key: %w", err)
		}
		sealer, err := crypto.NewSealer(crypto.XChaCha20Poly1305, key)
		if err != nil {
			return nil, fmt.Errorf("panel: storage key: %w", err)
		}
		opts = append(opts, datastore.WithSealer(sealer))
	}

	st, err := datastore.Open(cfg.DBPath, opts...)
	if err != nil {
		return nil, fmt.Errorf("panel: open storage: %w", err)
	}
	return st, nil
}

// Start restores a persisted session and then polls connectivity until
// ctx is cancelled. It returns once the session is restored or rejected.
func (r *Runtime) Start(ctx context.Context) bool {
	go r.Poller.Run(ctx)
	return r.Controller.Restore(ctx)
}

// Close waits for pending controller work and closes storage.
func (r *Runtime) Close() error {
	r.Controller.Close()
	return r.kv.Close()
}
