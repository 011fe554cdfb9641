// Package testutil provides common helpers for service and integration
// tests.
package testutil

import (
	"context"
	"testing"
	"time"

	id "addresshub/pkg/domain"
	"addresshub/pkg/requestcontext"
)

// Context returns a context cancelled on test cleanup.
func Context(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	t.Cleanup(cancel)
	return ctx
}

// AuthedContext returns a context carrying the acting user, the way the auth
// middleware leaves it for handlers and services.
func AuthedContext(t *testing.T, userID id.UserID) context.Context {
	t.Helper()
	return requestcontext.WithUserID(Context(t), userID)
}

// FrozenContext pins the request clock, so assertions on persisted
// timestamps are exact.
func FrozenContext(t *testing.T, userID id.UserID, now time.Time) context.Context {
	t.Helper()
	return requestcontext.WithTime(AuthedContext(t, userID), now)
}
