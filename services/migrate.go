package services

import (
	"context"
	"fmt"
	"sort"
)

// MigrationReport counts what MigrateData copied.
type MigrationReport struct {
	Customers int  `json:"customers"`
	Articles  int  `json:"articles"`
	Quotes    int  `json:"quotes"`
	Trashed   int  `json:"trashed"`
	Settings  bool `json:"settings"`
}

// MigrateData copies the operator's data from one store to another:
// customers, articles, quotes (trashed ones stay trashed) and finally the
// settings, so the destination counter ends up equal to the source one.
// Customer references inside quotes are remapped to the new customer IDs.
func MigrateData(ctx context.Context, from, to Store, sess Session) (*MigrationReport, error) {
	report := &MigrationReport{}

	customers, err := from.ListCustomers(ctx, sess, "")
	if err != nil {
		return report, fmt.Errorf("read customers: %w", err)
	}
	customerIDs := make(map[string]string, len(customers))
	for _, c := range customers {
		oldID := c.ID
		c.ID = ""
		saved, err := to.SaveCustomer(ctx, sess, &c)
		if err != nil {
			return report, fmt.Errorf("copy customer %q: %w", c.Name, err)
		}
		customerIDs[oldID] = saved.ID
		report.Customers++
	}

	articles, err := from.ListArticles(ctx, sess, "")
	if err != nil {
		return report, fmt.Errorf("read articles: %w", err)
	}
	for i := range articles {
		articles[i].ID = ""
	}
	n, err := to.SaveArticles(ctx, sess, articles)
	if err != nil {
		return report, fmt.Errorf("copy articles: %w", err)
	}
	report.Articles = n

	settings, err := from.LoadSettings(ctx, sess)
	if err != nil {
		return report, fmt.Errorf("read settings: %w", err)
	}

	active, err := from.ListQuotes(ctx, sess, QuoteFilter{})
	if err != nil {
		return report, fmt.Errorf("read quotes: %w", err)
	}
	trashed, err := from.ListTrash(ctx, sess)
	if err != nil {
		return report, fmt.Errorf("read trash: %w", err)
	}

	all := append(append([]Quote{}, active...), trashed...)
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	for _, q := range all {
		wasTrashed := q.DeletedAt != nil

		q.ID = ""
		q.DeletedAt = nil
		if id, ok := customerIDs[q.Customer.CustomerID]; ok {
			q.Customer.CustomerID = id
		} else {
			q.Customer.CustomerID = ""
		}

		saved, err := to.CreateQuote(ctx, sess, &q, AttachmentUsageOf(&q))
		if err != nil {
			return report, fmt.Errorf("copy quote %q: %w", q.Number, err)
		}
		report.Quotes++

		if wasTrashed {
			if err := to.TrashQuote(ctx, sess, saved.ID); err != nil {
				return report, fmt.Errorf("trash quote %q: %w", q.Number, err)
			}
			report.Trashed++
		}
	}

	current, err := to.LoadSettings(ctx, sess)
	if err != nil {
		return report, fmt.Errorf("read destination settings: %w", err)
	}
	settings.ID = current.ID
	if _, err := to.SaveSettings(ctx, sess, settings); err != nil {
		return report, fmt.Errorf("copy settings: %w", err)
	}
	report.Settings = true

	return report, nil
}
