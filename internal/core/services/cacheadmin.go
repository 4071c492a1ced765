package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/ragdex/internal/core/domain"
	"github.com/custodia-labs/ragdex/internal/core/ports/driven"
	"github.com/custodia-labs/ragdex/internal/core/ports/driving"
	"github.com/custodia-labs/ragdex/internal/logger"
)

// Ensure CacheAdminService implements the interface.
var _ driving.CacheAdminService = (*CacheAdminService)(nil)

// CacheAdminService provides inspection and maintenance of the answer cache.
type CacheAdminService struct {
	cache driven.ResponseCache
}

// NewCacheAdminService creates a new cache admin service.
func NewCacheAdminService(cache driven.ResponseCache) *CacheAdminService {
	return &CacheAdminService{cache: cache}
}

// List returns entries newest first, optionally filtered.
func (s *CacheAdminService) List(ctx context.Context, category, collection string) ([]domain.CacheEntry, error) {
	entries, err := s.cache.List(ctx, category, collection)
	if err != nil {
		return nil, fmt.Errorf("list cache entries: %w", err)
	}
	return entries, nil
}

// Delete removes a single entry by ID.
func (s *CacheAdminService) Delete(ctx context.Context, id int64) error {
	if err := s.cache.Delete(ctx, id); err != nil {
		return err
	}
	logger.Info("Deleted cache entry %d", id)
	return nil
}

// PurgeAll removes every entry.
func (s *CacheAdminService) PurgeAll(ctx context.Context) error {
	if err := s.cache.PurgeAll(ctx); err != nil {
		return err
	}
	logger.Info("Purged answer cache")
	return nil
}

// Feedback records a user verdict against the most recent matching entry.
func (s *CacheAdminService) Feedback(ctx context.Context, query, stateHash string, fb domain.Feedback) error {
	return s.cache.UpdateFeedback(ctx, query, stateHash, fb)
}
