package knowledge

import (
	"context"
	"sync"
	"time"

	"github.com/hyperjump/lexsy/internal/models"
)

// MemoryRepository keeps partitions in process memory.
type MemoryRepository struct {
	mu         sync.Mutex
	partitions map[int64]*memoryPartition
}

type memoryPartition struct {
	mu         sync.RWMutex
	dimensions int
	records    []*models.KnowledgeRecord
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{partitions: make(map[int64]*memoryPartition)}
}

// partition returns the partition for clientID, creating it when create is set.
func (m *MemoryRepository) partition(clientID int64, create bool) *memoryPartition {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.partitions[clientID]
	if !ok && create {
		p = &memoryPartition{}
		m.partitions[clientID] = p
	}
	return p
}

// Append stores a copy of rec.
func (m *MemoryRepository) Append(ctx context.Context, rec *models.KnowledgeRecord) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	p := m.partition(rec.ClientID, true)
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.dimensions == 0 {
		p.dimensions = len(rec.Embedding)
	} else if len(rec.Embedding) != p.dimensions {
		return 0, dimensionMismatch(rec.ClientID, len(rec.Embedding), p.dimensions)
	}

	rec.ID = int64(len(p.records)) + 1
	rec.CreatedAt = time.Now().UTC()
	stored := *rec
	stored.Embedding = append([]float32(nil), rec.Embedding...)
	p.records = append(p.records, &stored)
	return rec.ID, nil
}

// List returns copies of the partition's records.
func (m *MemoryRepository) List(ctx context.Context, clientID int64) ([]*models.KnowledgeRecord, error) {
	p := m.partition(clientID, false)
	if p == nil {
		return []*models.KnowledgeRecord{}, nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*models.KnowledgeRecord, len(p.records))
	for i, r := range p.records {
		c := *r
		out[i] = &c
	}
	return out, nil
}

// Count returns the number of records for clientID.
func (m *MemoryRepository) Count(ctx context.Context, clientID int64) (int, error) {
	p := m.partition(clientID, false)
	if p == nil {
		return 0, nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.records), nil
}

// Dimensions returns the partition's embedding length.
func (m *MemoryRepository) Dimensions(ctx context.Context, clientID int64) (int, error) {
	p := m.partition(clientID, false)
	if p == nil {
		return 0, nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.dimensions, nil
}

// Close is a no-op for MemoryRepository.
func (m *MemoryRepository) Close() error {
	return nil
}
