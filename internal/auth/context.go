package auth

import (
	"context"

	"github.com/google/uuid"
)

type ownerIDKey struct{}

func ContextWithOwnerID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ownerIDKey{}, id)
}

// OwnerIDFromContext returns the ledger owner authenticated for the request.
func OwnerIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(ownerIDKey{}).(uuid.UUID)
	return id, ok
}
