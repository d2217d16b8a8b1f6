package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"content-query-service/internal/domain"
)

type memStore struct {
	posts []*domain.Post // sorted by id
	err   error
	calls int
}

func (m *memStore) GetByIDs(context.Context, []int64) ([]*domain.Post, error) {
	return nil, nil
}

func (m *memStore) ListAfter(_ context.Context, afterID int64, limit int) ([]*domain.Post, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	var out []*domain.Post
	for _, p := range m.posts {
		if p.ID > afterID && len(out) < limit {
			out = append(out, p)
		}
	}
	return out, nil
}

type recordingIndex struct {
	batches [][]int64
	failOn  int
	indexed map[int64]bool
	deleted []int64
}

func (r *recordingIndex) IDs(context.Context) ([]int64, error) {
	var ids []int64
	for id := range r.indexed {
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *recordingIndex) DeletePosts(_ context.Context, ids []int64) error {
	r.deleted = append(r.deleted, ids...)
	for _, id := range ids {
		delete(r.indexed, id)
	}
	return nil
}

func (r *recordingIndex) IndexPosts(_ context.Context, posts []*domain.Post) error {
	if r.failOn > 0 && len(r.batches)+1 == r.failOn {
		return errors.New("disk full")
	}
	if r.indexed == nil {
		r.indexed = make(map[int64]bool)
	}
	ids := make([]int64, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
		r.indexed[p.ID] = true
	}
	r.batches = append(r.batches, ids)
	return nil
}

func storeWith(n int) *memStore {
	s := &memStore{}
	for i := 1; i <= n; i++ {
		s.posts = append(s.posts, &domain.Post{ID: int64(i * 10)})
	}
	return s
}

func TestIndexService_RebuildBatches(t *testing.T) {
	store := storeWith(5)
	index := &recordingIndex{}
	svc := NewIndexService(store, index, 2, zap.NewNop())

	result := svc.Rebuild(context.Background())

	require.NoError(t, result.Error)
	assert.Equal(t, 5, result.Count)
	assert.Equal(t, 3, result.Batches)
	assert.Equal(t, [][]int64{{10, 20}, {30, 40}, {50}}, index.batches)
}

func TestIndexService_RebuildRemovesDeletedPosts(t *testing.T) {
	index := &recordingIndex{indexed: map[int64]bool{10: true, 15: true, 99: true}}
	svc := NewIndexService(storeWith(2), index, 2, zap.NewNop())

	result := svc.Rebuild(context.Background())

	require.NoError(t, result.Error)
	assert.Equal(t, 2, result.Count)
	assert.Equal(t, 2, result.Removed)
	assert.ElementsMatch(t, []int64{15, 99}, index.deleted)
	assert.Equal(t, map[int64]bool{10: true, 20: true}, index.indexed)
}

func TestIndexService_RebuildExactMultiple(t *testing.T) {
	store := storeWith(4)
	svc := NewIndexService(store, &recordingIndex{}, 2, zap.NewNop())

	result := svc.Rebuild(context.Background())

	require.NoError(t, result.Error)
	assert.Equal(t, 4, result.Count)
	assert.Equal(t, 3, store.calls, "a final empty page ends the walk")
}

func TestIndexService_RebuildErrors(t *testing.T) {
	storeErr := &memStore{err: errors.New("db down")}
	result := NewIndexService(storeErr, &recordingIndex{}, 2, zap.NewNop()).Rebuild(context.Background())
	require.Error(t, result.Error)
	assert.Contains(t, result.Error.Error(), "listing posts")

	index := &recordingIndex{failOn: 2}
	result = NewIndexService(storeWith(5), index, 2, zap.NewNop()).Rebuild(context.Background())
	require.Error(t, result.Error)
	assert.Equal(t, 2, result.Count, "first batch stays indexed")
	assert.Empty(t, index.deleted, "nothing is pruned after a failed walk")
}

func TestIndexService_RebuildCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := NewIndexService(storeWith(3), &recordingIndex{}, 2, zap.NewNop()).Rebuild(ctx)
	assert.ErrorIs(t, result.Error, context.Canceled)
	assert.Zero(t, result.Count)
}
