// Package store persists uploaded certificates.
package store

import (
	"context"

	"gradverify/internal/certificate/models"
)

// Store saves certificates and returns the earliest match for a query.
// Implementations return sentinel.ErrNotFound on a miss.
type Store interface {
	Save(ctx context.Context, cert models.Certificate) error
	FindFirst(ctx context.Context, q models.Query) (models.Certificate, error)
}
