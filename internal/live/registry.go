package live

import (
	"errors"
	"sort"
)

// Close codes sent to clients whose handshake token is rejected.
const (
	CloseMissingToken = 4001
	CloseInvalidToken = 4002
)

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
)

// TokenVerifier resolves a bearer token to the identity it was issued for.
type TokenVerifier interface {
	VerifyToken(token string) (Identity, error)
}

// VerifierFunc adapts a function to TokenVerifier.
type VerifierFunc func(token string) (Identity, error)

func (f VerifierFunc) VerifyToken(token string) (Identity, error) {
	return f(token)
}

// AuthError is returned by Authenticate and carries the close code and
// reason the transport sends before dropping the socket.
type AuthError struct {
	Code   int
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	return e.Reason
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Authenticate validates the raw handshake token.
func Authenticate(v TokenVerifier, rawToken string) (Identity, error) {
	if rawToken == "" {
		return Identity{}, &AuthError{Code: CloseMissingToken, Reason: "missing_token", Err: ErrMissingToken}
	}
	identity, err := v.VerifyToken(rawToken)
	if err != nil || identity.UserID == "" {
		return Identity{}, &AuthError{Code: CloseInvalidToken, Reason: "invalid_token", Err: ErrInvalidToken}
	}
	return identity, nil
}

// registry tracks live connections by id. Guarded by Coordinator.mu.
type registry struct {
	conns map[ConnID]*Conn
}

func newRegistry() *registry {
	return &registry{conns: make(map[ConnID]*Conn)}
}

func (r *registry) add(c *Conn) {
	r.conns[c.id] = c
}

// remove reports whether the connection was still registered.
func (r *registry) remove(id ConnID) bool {
	if _, ok := r.conns[id]; !ok {
		return false
	}
	delete(r.conns, id)
	return true
}

func (r *registry) get(id ConnID) (*Conn, bool) {
	c, ok := r.conns[id]
	return c, ok
}

func (r *registry) len() int {
	return len(r.conns)
}

// all returns every registered connection ordered by id.
func (r *registry) all() []*Conn {
	out := make([]*Conn, 0, len(r.conns))
	for _, c := range r.conns {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}
