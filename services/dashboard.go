package services

import (
	"context"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// DashboardRecent is how many of the newest quotes the dashboard lists.
const DashboardRecent = 5

// Dashboard summarises the operator's activity for the landing page.
type Dashboard struct {
	QuoteCount   int     `json:"quoteCount"`
	ArticleCount int     `json:"articleCount"`
	TotalAmount  float64 `json:"totalAmount"`
	Recent       []Quote `json:"recent"`
}

// LoadDashboard counts the operator's live quotes and the article catalog,
// sums the quote totals and keeps the newest quotes. Trashed quotes are not
// counted.
func LoadDashboard(ctx context.Context, store Store, sess Session) (*Dashboard, error) {
	var (
		quotes   []Quote
		articles []Article
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		quotes, err = store.ListQuotes(gctx, sess, QuoteFilter{})
		return err
	})
	g.Go(func() error {
		var err error
		articles, err = store.ListArticles(gctx, sess, "")
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sum := decimal.Zero
	for _, q := range quotes {
		sum = sum.Add(decimal.NewFromFloat(q.Total))
	}
	total, _ := sum.Round(2).Float64()

	recent := quotes[:min(len(quotes), DashboardRecent)]
	if recent == nil {
		recent = []Quote{}
	}
	return &Dashboard{
		QuoteCount:   len(quotes),
		ArticleCount: len(articles),
		TotalAmount:  total,
		Recent:       recent,
	}, nil
}
