package repositories

import (
	"context"

	"github.com/SAP-F-2025/exam-engine/internal/models"
)

// UserRepository is a read-only view over the identity provider.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]*models.User, error)
}
