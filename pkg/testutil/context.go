package testutil

import (
	"net/http"

	"intakedesk/pkg/requestcontext"
)

// WithAdmin attaches an admin identity to the request context, as the
// authorization gate would after a successful check.
func WithAdmin(req *http.Request, email string) *http.Request {
	ctx := requestcontext.WithAdmin(req.Context(), requestcontext.AdminIdentity{
		UserID: "admin-user",
		Email:  email,
		Method: requestcontext.AuthMethodBearer,
	})
	return req.WithContext(ctx)
}
