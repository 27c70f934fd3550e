package testutil

import (
	"net/http"

	"taskportal/pkg/domain"
	"taskportal/pkg/requestcontext"
)

// WithAuth adds the user ID and role to the request context, as RequireAuth
// would for a verified bearer token.
func WithAuth(req *http.Request, userID domain.UserID, role domain.Role) *http.Request {
	ctx := requestcontext.WithUserID(req.Context(), userID)
	ctx = requestcontext.WithRole(ctx, role)
	return req.WithContext(ctx)
}
