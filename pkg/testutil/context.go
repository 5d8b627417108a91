package testutil

import (
	"net/http"

	"intake/pkg/requestcontext"
)

// WithReviewer adds an authenticated reviewer to the request context.
// This simulates what the reviewer auth middleware does for valid tokens.
func WithReviewer(req *http.Request, reviewerID string) *http.Request {
	return req.WithContext(requestcontext.WithReviewerID(req.Context(), reviewerID))
}
