package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"content-query-service/internal/domain"
	"content-query-service/internal/metrics"
)

// PostIndexer writes posts to a search index.
type PostIndexer interface {
	IndexPosts(ctx context.Context, posts []*domain.Post) error
	DeletePosts(ctx context.Context, ids []int64) error
	IDs(ctx context.Context) ([]int64, error)
}

// IndexService feeds the local search index from the content store.
type IndexService struct {
	store     domain.PostStore
	index     PostIndexer
	batchSize int
	logger    *zap.Logger
}

// NewIndexService creates a new IndexService.
func NewIndexService(store domain.PostStore, index PostIndexer, batchSize int, logger *zap.Logger) *IndexService {
	if batchSize <= 0 {
		batchSize = 200
	}
	return &IndexService{
		store:     store,
		index:     index,
		batchSize: batchSize,
		logger:    logger,
	}
}

// IndexResult holds the result of an index run.
type IndexResult struct {
	Count    int
	Removed  int
	Batches  int
	Duration time.Duration
	Error    error
}

// Rebuild walks every post in id order and writes it to the index in
// batches, then removes documents whose post is gone from the store. Posts
// indexed before a failure stay indexed and nothing is removed.
func (s *IndexService) Rebuild(ctx context.Context) IndexResult {
	start := time.Now()
	result := IndexResult{}
	seen := make(map[int64]struct{})

	s.logger.Info("starting search index rebuild", zap.Int("batch_size", s.batchSize))

	var afterID int64
	for {
		if err := ctx.Err(); err != nil {
			result.Error = err
			break
		}

		posts, err := s.store.ListAfter(ctx, afterID, s.batchSize)
		if err != nil {
			result.Error = fmt.Errorf("listing posts after %d: %w", afterID, err)
			break
		}
		if len(posts) == 0 {
			break
		}

		if err := s.index.IndexPosts(ctx, posts); err != nil {
			result.Error = fmt.Errorf("indexing batch after %d: %w", afterID, err)
			break
		}

		for _, p := range posts {
			seen[p.ID] = struct{}{}
		}
		result.Count += len(posts)
		result.Batches++
		metrics.IndexedPostsTotal.Add(float64(len(posts)))
		afterID = posts[len(posts)-1].ID

		if len(posts) < s.batchSize {
			break
		}
	}

	if result.Error == nil {
		result.Removed, result.Error = s.prune(ctx, seen)
	}

	result.Duration = time.Since(start)

	if result.Error != nil {
		s.logger.Warn("search index rebuild failed",
			zap.Int("indexed", result.Count),
			zap.Error(result.Error),
		)
		return result
	}

	s.logger.Info("search index rebuild completed",
		zap.Int("indexed", result.Count),
		zap.Int("removed", result.Removed),
		zap.Int("batches", result.Batches),
		zap.Duration("duration", result.Duration),
	)

	return result
}

// prune deletes indexed documents that are not in seen.
func (s *IndexService) prune(ctx context.Context, seen map[int64]struct{}) (int, error) {
	indexed, err := s.index.IDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing indexed posts: %w", err)
	}

	var stale []int64
	for _, id := range indexed {
		if _, ok := seen[id]; !ok {
			stale = append(stale, id)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}

	if err := s.index.DeletePosts(ctx, stale); err != nil {
		return 0, fmt.Errorf("removing stale posts: %w", err)
	}
	s.logger.Debug("removed stale posts from index", zap.Int64s("ids", stale))
	return len(stale), nil
}
