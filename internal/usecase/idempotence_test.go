package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memIdempotence struct {
	seen   map[string]bool
	before time.Time
}

func (r *memIdempotence) MakeRecord(_ context.Context, id string) (bool, error) {
	if r.seen[id] {
		return false, nil
	}
	r.seen[id] = true
	return true, nil
}

func (r *memIdempotence) Prune(_ context.Context, before time.Time) (int, error) {
	r.before = before
	return len(r.seen), nil
}

func TestIdempotence(t *testing.T) {
	repo := &memIdempotence{seen: make(map[string]bool)}
	u := NewIdempotence(repo, 72*time.Hour)
	ctx := context.Background()

	first, err := u.Execute(ctx, "telegram1:1")
	require.NoError(t, err)
	assert.True(t, first)

	again, err := u.Execute(ctx, "telegram1:1")
	require.NoError(t, err)
	assert.False(t, again)

	now := time.Date(2024, 5, 4, 0, 0, 0, 0, time.UTC)
	removed, err := u.Prune(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, now.Add(-72*time.Hour), repo.before)
}
