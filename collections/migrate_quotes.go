package collections

import (
	"context"
	"fmt"
	"time"

	"github.com/pocketbase/pocketbase/core"

	"preventivi/logging"
)

// quoteSummary is the part of the quote document mirrored into columns.
type quoteSummary struct {
	Number   string    `json:"number"`
	Date     time.Time `json:"date"`
	Total    float64   `json:"total"`
	Customer struct {
		Name string `json:"name"`
	} `json:"customer"`
}

// BackfillQuoteColumns fills the number, customer_name, date and total
// columns of quotes whose data was written without them (admin imports,
// older records). The columns drive listing and search. Safe to call on
// every startup -- returns early if nothing to migrate.
func BackfillQuoteColumns(app core.App, log *logging.Logger) error {
	quotesCol, err := app.FindCollectionByNameOrId(Quotes)
	if err != nil {
		return fmt.Errorf("migrate: could not find quotes collection: %w", err)
	}

	stale, err := app.FindRecordsByFilter(
		quotesCol,
		"number = '' && customer_name = ''",
		"",
		0,
		0,
		nil,
	)
	if err != nil {
		return fmt.Errorf("migrate: could not query quotes: %w", err)
	}

	if len(stale) == 0 {
		return nil
	}

	ctx := context.Background()
	log.Info(log.WithField(ctx, "count", len(stale)), "migrate: backfilling quote columns")

	for _, rec := range stale {
		var s quoteSummary
		if err := rec.UnmarshalJSONField("data", &s); err != nil {
			log.Error(log.WithQuote(ctx, rec.Id), "migrate: unreadable quote data", err)
			continue
		}

		rec.Set("number", s.Number)
		rec.Set("customer_name", s.Customer.Name)
		rec.Set("total", s.Total)
		if !s.Date.IsZero() {
			rec.Set("date", s.Date)
		}
		if err := app.Save(rec); err != nil {
			log.Error(log.WithQuote(ctx, rec.Id), "migrate: failed to backfill quote", err)
			continue
		}
	}

	log.Info(ctx, "migrate: quote column backfill complete")
	return nil
}
