package middleware

import (
	"context"

	"github.com/benvon/manasmitra/internal/request"
)

// SetProfileInContext is a helper function for testing - scopes ctx to a profile
// This is exported so other test packages can use it
func SetProfileInContext(ctx context.Context, profileID string) context.Context {
	return request.WithProfileID(ctx, profileID)
}
