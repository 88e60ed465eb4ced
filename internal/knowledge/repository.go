package knowledge

import (
	"context"

	"github.com/hyperjump/lexsy/internal/models"
)

// Repository persists client partitions. Implementations must create a
// partition on its first Append, assign ids 1, 2, 3... per partition in
// insertion order, and reject embeddings whose length differs from the
// partition's first record with models.ErrDimensionMismatch.
type Repository interface {
	// Append stores rec and returns its partition-local id. rec.ID and
	// rec.CreatedAt are set on success.
	Append(ctx context.Context, rec *models.KnowledgeRecord) (int64, error)
	// List returns every record of a partition ordered by id. An absent
	// partition yields an empty slice.
	List(ctx context.Context, clientID int64) ([]*models.KnowledgeRecord, error)
	// Count returns the number of records in a partition.
	Count(ctx context.Context, clientID int64) (int, error)
	// Dimensions returns the partition's embedding length, or 0 when the
	// partition does not exist.
	Dimensions(ctx context.Context, clientID int64) (int, error)
	Close() error
}

func dimensionMismatch(clientID int64, got, want int) error {
	return models.Errorf(models.KindDimensionMismatch,
		"client %d stores %d-dimensional embeddings, got %d", clientID, want, got)
}
