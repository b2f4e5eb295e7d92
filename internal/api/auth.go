package api

import (
	"context"
	"net/http"
	"strings"
)

// User is the authenticated caller.
type User struct {
	ID   string
	Name string
}

// Editor returns the display name used for edit attribution.
func (u User) Editor() string {
	if u.Name != "" {
		return u.Name
	}
	return u.ID
}

// Authenticator answers whether a request is authenticated, and as whom.
type Authenticator interface {
	Authenticate(r *http.Request) (User, bool)
}

// HeaderAuthenticator trusts identity headers set by an authenticating
// proxy in front of the service.
type HeaderAuthenticator struct {
	IDHeader   string
	NameHeader string
}

func (a HeaderAuthenticator) Authenticate(r *http.Request) (User, bool) {
	id := strings.TrimSpace(r.Header.Get(a.IDHeader))
	if id == "" {
		return User{}, false
	}
	u := User{ID: id}
	if a.NameHeader != "" {
		u.Name = strings.TrimSpace(r.Header.Get(a.NameHeader))
	}
	return u, true
}

type userKey struct{}

// WithUser returns ctx carrying u.
func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// UserFrom returns the user stored by WithUser.
func UserFrom(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(userKey{}).(User)
	return u, ok
}

func requireUser(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := auth.Authenticate(r)
			if !ok {
				writeJSON(w, http.StatusUnauthorized, errorBody{Error: "authentication required"})
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}

func userOf(r *http.Request) User {
	u, _ := UserFrom(r.Context())
	return u
}
