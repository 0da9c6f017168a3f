package client

import (
	"context"
	"log/slog"

	"github.com/NicolasHaas/gopanel/pkg/crypto"
)

// SessionVerifier confirms a bearer token with the backend.
type SessionVerifier interface {
	VerifySession(ctx context.Context, token string) error
}

// Verifier turns the backend's answer into a yes/no. A refused token and an
// unreachable backend look the same to callers.
type Verifier struct {
	backend SessionVerifier
}

// NewVerifier creates a Verifier.
func NewVerifier(backend SessionVerifier) *Verifier {
	return &Verifier{backend: backend}
}

// Verify returns true only if the backend accepted token. An empty token is
// rejected without contacting the backend.
func (v *Verifier) Verify(ctx context.Context, token string) bool {
	if token == "" {
		return false
	}
	if err := v.backend.VerifySession(ctx, token); err != nil {
		slog.InfoContext(ctx, "session verification failed", "token", crypto.Fingerprint(token), "err", err)
		return false
	}
	return true
}
