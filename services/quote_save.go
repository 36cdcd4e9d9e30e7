package services

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// SaveQuote validates q, recomputes its totals and persists it.
//
// A new quote gets its display number from the settings counter unless one
// was typed; the store resolves it, advances the counter and records the
// attachment defaults in the same transaction as the insert. An existing quote keeps
// its stored number when the submitted one is blank and never touches the
// counter.
func SaveQuote(ctx context.Context, store Store, sess Session, q *Quote) (*Quote, error) {
	if q == nil {
		return nil, fmt.Errorf("save quote: nil quote")
	}
	if err := Validate(q); err != nil {
		return nil, err
	}
	q.Recalculate()
	if q.Date.IsZero() {
		q.Date = time.Now()
	}
	q.OperatorID = sess.OperatorID

	if q.IsNew() {
		q.Number = strings.TrimSpace(q.Number)
		saved, err := store.CreateQuote(ctx, sess, q, AttachmentUsageOf(q))
		if err != nil {
			return nil, fmt.Errorf("create quote: %w", err)
		}
		return saved, nil
	}

	if strings.TrimSpace(q.Number) == "" {
		prev, err := store.GetQuote(ctx, sess, q.ID)
		if err != nil {
			return nil, fmt.Errorf("load quote %s: %w", q.ID, err)
		}
		q.Number = prev.Number
	} else {
		q.Number = strings.TrimSpace(q.Number)
	}

	saved, err := store.UpdateQuote(ctx, sess, q)
	if err != nil {
		return nil, fmt.Errorf("update quote %s: %w", q.ID, err)
	}
	return saved, nil
}
