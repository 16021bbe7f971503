package usecase

import (
	"context"
	"time"
)

type Idempotence struct {
	repo      idempotenceRepository
	retention time.Duration
}

func NewIdempotence(repo idempotenceRepository, retention time.Duration) *Idempotence {
	return &Idempotence{
		repo:      repo,
		retention: retention,
	}
}

func (u *Idempotence) Execute(ctx context.Context, id string) (bool, error) {
	return u.repo.MakeRecord(ctx, id)
}

// Prune forgets updates older than the retention window.
func (u *Idempotence) Prune(ctx context.Context, now time.Time) (int, error) {
	return u.repo.Prune(ctx, now.Add(-u.retention))
}
