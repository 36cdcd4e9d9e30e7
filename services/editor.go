package services

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// EditorData is the reference data the quote editor needs before it can
// open: settings, the catalogs and the most recent quote (nil when none).
type EditorData struct {
	Settings  *Settings  `json:"settings"`
	Articles  []Article  `json:"articles"`
	Customers []Customer `json:"customers"`
	LastQuote *Quote     `json:"lastQuote,omitempty"`
}

// LoadEditorData fetches the editor's reference data concurrently. Either
// everything loads or nothing is returned; a cancelled ctx yields
// context.Canceled.
func LoadEditorData(ctx context.Context, store Store, sess Session) (*EditorData, error) {
	var data EditorData
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s, err := store.LoadSettings(gctx, sess)
		data.Settings = s
		return err
	})
	g.Go(func() error {
		a, err := store.ListArticles(gctx, sess, "")
		data.Articles = a
		return err
	})
	g.Go(func() error {
		c, err := store.ListCustomers(gctx, sess, "")
		data.Customers = c
		return err
	})
	g.Go(func() error {
		q, err := store.LastQuote(gctx, sess)
		data.LastQuote = q
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &data, nil
}
