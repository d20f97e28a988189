package hub

import (
	"errors"
	"net/http"
	"strings"
)

// ErrUnauthenticated rejects a connection attempt before any registry entry
// or transport resource is created for it.
var ErrUnauthenticated = errors.New("unauthenticated")

// TokenVerifier validates a bearer credential and extracts a user identity.
type TokenVerifier interface {
	Verify(token string) (userID string, err error)
}

// Gate decides admission at connection-establishment time. Admission is
// all-or-nothing and evaluated synchronously before the upgrade.
type Gate struct {
	verifier TokenVerifier
}

func NewGate(verifier TokenVerifier) *Gate {
	return &Gate{verifier: verifier}
}

// Admit verifies the credential on the upgrade request and returns the user
// identity it belongs to.
func (g *Gate) Admit(r *http.Request) (string, error) {
	token := bearerToken(r)
	if token == "" {
		return "", ErrUnauthenticated
	}
	userID, err := g.verifier.Verify(token)
	if err != nil {
		return "", ErrUnauthenticated
	}
	return userID, nil
}

// Browsers cannot set headers on a WebSocket handshake, so the token is
// accepted from the Authorization header or the token query parameter.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return r.URL.Query().Get("token")
}
