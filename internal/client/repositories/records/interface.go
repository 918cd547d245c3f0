package records

import (
	"context"

	"github.com/dmitrijs2005/tailorbook/internal/client/models"
)

// Repository loads and stores the full record collection at once.
type Repository interface {
	Load(ctx context.Context) ([]models.Record, error)
	Save(ctx context.Context, records []models.Record) error
}
