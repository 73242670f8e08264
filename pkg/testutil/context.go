package testutil

import (
	"net/http"
	"time"

	id "trustbank/pkg/domain"
	"trustbank/pkg/requestcontext"
)

// WithPrincipal attaches an authenticated principal to the request context.
// This simulates what the auth middleware does after validating a token.
func WithPrincipal(req *http.Request, userID id.UserID, role requestcontext.Role, displayName string) *http.Request {
	return req.WithContext(requestcontext.WithPrincipal(req.Context(), userID, role, displayName))
}

// AsCustomer attaches a customer principal with the given display name.
func AsCustomer(req *http.Request, userID id.UserID, displayName string) *http.Request {
	return WithPrincipal(req, userID, requestcontext.RoleCustomer, displayName)
}

// AsAdmin attaches an administrator principal with the given display name.
func AsAdmin(req *http.Request, userID id.UserID, displayName string) *http.Request {
	return WithPrincipal(req, userID, requestcontext.RoleAdmin, displayName)
}

// WithRequestTime pins the request-scoped clock read by services.
func WithRequestTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}
