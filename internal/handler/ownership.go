package handler

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/josh-kwaku/rice-ledger/internal/auth"
)

// ownerFromContext returns the authenticated ledger owner. Every record
// route is scoped to it, so another owner's record ids read as not found.
func ownerFromContext(r *http.Request) (uuid.UUID, *AppError) {
	owner, ok := auth.OwnerIDFromContext(r.Context())
	if !ok || owner == uuid.Nil {
		return uuid.Nil, ErrMissingToken
	}
	return owner, nil
}
