// Package auth guards clinician-only routes with a bearer token.
package auth

import (
	"log/slog"
	"net/http"
	"strings"

	dErrors "intake/pkg/domain-errors"
	"intake/pkg/platform/httputil"
	"intake/pkg/requestcontext"
)

// ReviewerValidator resolves a bearer token to a reviewer id.
type ReviewerValidator interface {
	ReviewerID(tokenString string) (string, error)
}

// RequireReviewer rejects requests without a valid clinician token and
// stores the reviewer id in the context otherwise.
func RequireReviewer(validator ReviewerValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			const bearerPrefix = "Bearer "
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
			if !ok || strings.TrimSpace(token) == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Missing or invalid Authorization header"))
				return
			}

			reviewerID, err := validator.ReviewerID(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				if dErrors.HasCode(err, dErrors.CodeForbidden) {
					httputil.WriteError(w, err)
					return
				}
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Invalid or expired token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithReviewerID(ctx, reviewerID)))
		})
	}
}
