package services

import (
	"context"
	"fmt"
	"time"
)

// PurgeExpiredTrash hard-deletes the quotes of every operator that have
// been in the trash for longer than retention.
func PurgeExpiredTrash(ctx context.Context, store QuoteStore, retention time.Duration, now time.Time) (int, error) {
	if retention <= 0 {
		return 0, fmt.Errorf("purge trash: retention must be positive, got %s", retention)
	}
	n, err := store.PurgeTrash(ctx, now.Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("purge trash: %w", err)
	}
	return n, nil
}
