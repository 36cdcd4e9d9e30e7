package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"
)

const (
	colSettings  = "settings"
	colQuotes    = "quotes"
	colArticles  = "articles"
	colCustomers = "customers"
)

// RecordStore is the embedded Store backed by PocketBase collections.
// Quotes and settings keep their full JSON in a "data" column alongside the
// few columns used for filtering.
type RecordStore struct {
	app core.App
	now func() time.Time
}

var _ Store = (*RecordStore)(nil)

// NewRecordStore returns a Store reading and writing app's collections.
func NewRecordStore(app core.App) *RecordStore {
	return &RecordStore{app: app, now: time.Now}
}

// ── Settings ──────────────────────────────────────────────────────────────

func (s *RecordStore) LoadSettings(ctx context.Context, sess Session) (*Settings, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rec, err := s.settingsRecord(s.app, sess)
	if err != nil {
		return nil, err
	}
	return settingsFromRecord(rec)
}

func (s *RecordStore) SaveSettings(ctx context.Context, sess Session, in *Settings) (*Settings, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := Validate(in); err != nil {
		return nil, err
	}

	var out *Settings
	err := s.app.RunInTransaction(func(txApp core.App) error {
		rec, err := s.settingsRecord(txApp, sess)
		if err != nil {
			return err
		}
		if err := writeSettings(rec, in); err != nil {
			return err
		}
		if err := txApp.Save(rec); err != nil {
			return fmt.Errorf("save settings: %w", err)
		}
		out, err = settingsFromRecord(rec)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// settingsRecord finds the operator's settings record, creating it with
// DefaultSettings on first access.
func (s *RecordStore) settingsRecord(app core.App, sess Session) (*core.Record, error) {
	rec, err := app.FindFirstRecordByFilter(colSettings, "operator = {:op}", map[string]any{"op": sess.OperatorID})
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find settings: %w", err)
	}

	col, err := app.FindCollectionByNameOrId(colSettings)
	if err != nil {
		return nil, fmt.Errorf("settings collection: %w", err)
	}
	rec = core.NewRecord(col)
	rec.Set("operator", sess.OperatorID)
	if err := writeSettings(rec, DefaultSettings(sess.OperatorID, s.now())); err != nil {
		return nil, err
	}
	if err := app.Save(rec); err != nil {
		return nil, fmt.Errorf("create default settings: %w", err)
	}
	return rec, nil
}

func writeSettings(rec *core.Record, in *Settings) error {
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	counter := in.NextQuoteNumber
	if counter < 1 {
		counter = 1
	}
	rec.Set("data", types.JSONRaw(data))
	rec.Set("next_quote_number", counter)
	return nil
}

func settingsFromRecord(rec *core.Record) (*Settings, error) {
	var out Settings
	if err := rec.UnmarshalJSONField("data", &out); err != nil {
		return nil, fmt.Errorf("decode settings %s: %w", rec.Id, err)
	}
	out.ID = rec.Id
	out.OperatorID = rec.GetString("operator")
	out.NextQuoteNumber = rec.GetInt("next_quote_number")
	return &out, nil
}

// ── Quotes ────────────────────────────────────────────────────────────────

func (s *RecordStore) GetQuote(ctx context.Context, sess Session, id string) (*Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rec, err := s.quoteRecord(s.app, sess, id)
	if err != nil {
		return nil, err
	}
	return quoteFromRecord(rec)
}

func (s *RecordStore) LastQuote(ctx context.Context, sess Session) (*Quote, error) {
	list, err := s.findQuotes(ctx, sess, "deleted_at = ''", nil, 1, 0)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return &list[0], nil
}

func (s *RecordStore) ListQuotes(ctx context.Context, sess Session, f QuoteFilter) ([]Quote, error) {
	filter := "deleted_at = ''"
	params := map[string]any{}
	if search := strings.TrimSpace(f.Search); search != "" {
		filter += " && (number ~ {:search} || customer_name ~ {:search})"
		params["search"] = search
	}
	return s.findQuotes(ctx, sess, filter, params, f.Limit, f.Offset)
}

func (s *RecordStore) ListTrash(ctx context.Context, sess Session) ([]Quote, error) {
	return s.findQuotes(ctx, sess, "deleted_at != ''", nil, 0, 0)
}

func (s *RecordStore) findQuotes(ctx context.Context, sess Session, filter string, params map[string]any, limit, offset int) ([]Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if params == nil {
		params = map[string]any{}
	}
	params["op"] = sess.OperatorID

	records, err := s.app.FindRecordsByFilter(colQuotes, "operator = {:op} && "+filter, "-created", limit, offset, params)
	if err != nil {
		return nil, fmt.Errorf("list quotes: %w", err)
	}
	out := make([]Quote, 0, len(records))
	for _, rec := range records {
		q, err := quoteFromRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, *q)
	}
	return out, nil
}

func (s *RecordStore) CreateQuote(ctx context.Context, sess Session, q *Quote, usage AttachmentUsage) (*Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out *Quote
	err := s.app.RunInTransaction(func(txApp core.App) error {
		settingsRec, err := s.settingsRecord(txApp, sess)
		if err != nil {
			return err
		}
		settings, err := settingsFromRecord(settingsRec)
		if err != nil {
			return err
		}

		col, err := txApp.FindCollectionByNameOrId(colQuotes)
		if err != nil {
			return fmt.Errorf("quotes collection: %w", err)
		}

		cp := *q
		cp.ID = ""
		cp.OperatorID = sess.OperatorID
		cp.Number = ResolveDisplayNumber(q.Number, settings)
		cp.DeletedAt = nil

		rec := core.NewRecord(col)
		rec.Set("operator", sess.OperatorID)
		if err := writeQuote(rec, &cp); err != nil {
			return err
		}
		if err := txApp.Save(rec); err != nil {
			return fmt.Errorf("insert quote: %w", err)
		}

		settings.NextQuoteNumber++
		settings.AttachmentDefaults = settings.AttachmentDefaults.Remember(usage)
		if err := writeSettings(settingsRec, settings); err != nil {
			return err
		}
		if err := txApp.Save(settingsRec); err != nil {
			return fmt.Errorf("advance quote counter: %w", err)
		}

		out, err = quoteFromRecord(rec)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *RecordStore) UpdateQuote(ctx context.Context, sess Session, q *Quote) (*Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rec, err := s.quoteRecord(s.app, sess, q.ID)
	if err != nil {
		return nil, err
	}
	prev, err := quoteFromRecord(rec)
	if err != nil {
		return nil, err
	}

	cp := *q
	cp.OperatorID = sess.OperatorID
	cp.DeletedAt = prev.DeletedAt
	if err := writeQuote(rec, &cp); err != nil {
		return nil, err
	}
	if err := s.app.Save(rec); err != nil {
		return nil, fmt.Errorf("update quote: %w", err)
	}
	return quoteFromRecord(rec)
}

func (s *RecordStore) TrashQuote(ctx context.Context, sess Session, id string) error {
	return s.setDeleted(ctx, sess, id, s.now().UTC())
}

func (s *RecordStore) RestoreQuote(ctx context.Context, sess Session, id string) error {
	return s.setDeleted(ctx, sess, id, time.Time{})
}

func (s *RecordStore) setDeleted(ctx context.Context, sess Session, id string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rec, err := s.quoteRecord(s.app, sess, id)
	if err != nil {
		return err
	}
	if at.IsZero() {
		rec.Set("deleted_at", "")
	} else {
		rec.Set("deleted_at", at)
	}
	if err := s.app.Save(rec); err != nil {
		return fmt.Errorf("update quote %s: %w", id, err)
	}
	return nil
}

func (s *RecordStore) DeleteQuote(ctx context.Context, sess Session, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rec, err := s.quoteRecord(s.app, sess, id)
	if err != nil {
		return err
	}
	if err := s.app.Delete(rec); err != nil {
		return fmt.Errorf("delete quote %s: %w", id, err)
	}
	return nil
}

func (s *RecordStore) PurgeTrash(ctx context.Context, cutoff time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	records, err := s.app.FindRecordsByFilter(
		colQuotes,
		"deleted_at != '' && deleted_at < {:cutoff}",
		"", 0, 0,
		map[string]any{"cutoff": cutoff.UTC().Format(types.DefaultDateLayout)},
	)
	if err != nil {
		return 0, fmt.Errorf("find expired trash: %w", err)
	}

	purged := 0
	err = s.app.RunInTransaction(func(txApp core.App) error {
		for _, rec := range records {
			if err := txApp.Delete(rec); err != nil {
				return fmt.Errorf("purge quote %s: %w", rec.Id, err)
			}
			purged++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return purged, nil
}

// quoteRecord loads a quote owned by the session's operator.
func (s *RecordStore) quoteRecord(app core.App, sess Session, id string) (*core.Record, error) {
	rec, err := app.FindRecordById(colQuotes, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find quote %s: %w", id, err)
	}
	if rec.GetString("operator") != sess.OperatorID {
		return nil, ErrNotFound
	}
	return rec, nil
}

func writeQuote(rec *core.Record, q *Quote) error {
	data, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("encode quote: %w", err)
	}
	rec.Set("data", types.JSONRaw(data))
	rec.Set("number", q.Number)
	rec.Set("customer_name", q.Customer.Name)
	rec.Set("date", q.Date)
	rec.Set("total", q.Total)
	if q.DeletedAt != nil {
		rec.Set("deleted_at", *q.DeletedAt)
	}
	return nil
}

func quoteFromRecord(rec *core.Record) (*Quote, error) {
	var q Quote
	if err := rec.UnmarshalJSONField("data", &q); err != nil {
		return nil, fmt.Errorf("decode quote %s: %w", rec.Id, err)
	}
	q.ID = rec.Id
	q.OperatorID = rec.GetString("operator")
	q.Number = rec.GetString("number")
	q.CreatedAt = rec.GetDateTime("created").Time()
	q.DeletedAt = nil
	if d := rec.GetDateTime("deleted_at"); !d.IsZero() {
		t := d.Time()
		q.DeletedAt = &t
	}
	return &q, nil
}

// ── Catalog ───────────────────────────────────────────────────────────────

func (s *RecordStore) ListArticles(ctx context.Context, sess Session, search string) ([]Article, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	filter, params := "id != ''", map[string]any{}
	if search = strings.TrimSpace(search); search != "" {
		filter = "code ~ {:search} || description ~ {:search}"
		params["search"] = search
	}
	records, err := s.app.FindRecordsByFilter(colArticles, filter, "code", 0, 0, params)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	out := make([]Article, 0, len(records))
	for _, rec := range records {
		out = append(out, Article{
			ID:          rec.Id,
			Code:        rec.GetString("code"),
			Description: rec.GetString("description"),
			Unit:        rec.GetString("unit"),
			UnitPrice:   rec.GetFloat("unit_price"),
			VATRate:     rec.GetFloat("vat_rate"),
		})
	}
	return out, nil
}

func (s *RecordStore) SaveArticles(ctx context.Context, sess Session, articles []Article) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	written := 0
	err := s.app.RunInTransaction(func(txApp core.App) error {
		col, err := txApp.FindCollectionByNameOrId(colArticles)
		if err != nil {
			return fmt.Errorf("articles collection: %w", err)
		}
		for _, a := range articles {
			rec, err := txApp.FindFirstRecordByData(colArticles, "code", a.Code)
			if err != nil {
				if !errors.Is(err, sql.ErrNoRows) {
					return fmt.Errorf("find article %s: %w", a.Code, err)
				}
				rec = core.NewRecord(col)
			}
			rec.Set("code", a.Code)
			rec.Set("description", a.Description)
			rec.Set("unit", a.Unit)
			rec.Set("unit_price", a.UnitPrice)
			rec.Set("vat_rate", a.VATRate)
			if err := txApp.Save(rec); err != nil {
				return fmt.Errorf("save article %s: %w", a.Code, err)
			}
			written++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

func (s *RecordStore) ListCustomers(ctx context.Context, sess Session, search string) ([]Customer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	filter, params := "id != ''", map[string]any{}
	if search = strings.TrimSpace(search); search != "" {
		filter = "name ~ {:search} || vat_number ~ {:search}"
		params["search"] = search
	}
	records, err := s.app.FindRecordsByFilter(colCustomers, filter, "name", 0, 0, params)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	out := make([]Customer, 0, len(records))
	for _, rec := range records {
		out = append(out, customerFromRecord(rec))
	}
	return out, nil
}

func (s *RecordStore) GetCustomer(ctx context.Context, sess Session, id string) (*Customer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rec, err := s.app.FindRecordById(colCustomers, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find customer %s: %w", id, err)
	}
	c := customerFromRecord(rec)
	return &c, nil
}

func (s *RecordStore) SaveCustomer(ctx context.Context, sess Session, c *Customer) (*Customer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := Validate(c); err != nil {
		return nil, err
	}

	var rec *core.Record
	if c.ID != "" {
		found, err := s.app.FindRecordById(colCustomers, c.ID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("find customer %s: %w", c.ID, err)
		}
		rec = found
	} else {
		col, err := s.app.FindCollectionByNameOrId(colCustomers)
		if err != nil {
			return nil, fmt.Errorf("customers collection: %w", err)
		}
		rec = core.NewRecord(col)
	}

	rec.Set("name", c.Name)
	rec.Set("address", c.Address)
	rec.Set("vat_number", c.VATNumber)
	rec.Set("email", c.Email)
	rec.Set("phone", c.Phone)
	if err := s.app.Save(rec); err != nil {
		return nil, fmt.Errorf("save customer: %w", err)
	}
	out := customerFromRecord(rec)
	return &out, nil
}

func customerFromRecord(rec *core.Record) Customer {
	return Customer{
		ID:        rec.Id,
		Name:      rec.GetString("name"),
		Address:   rec.GetString("address"),
		VATNumber: rec.GetString("vat_number"),
		Email:     rec.GetString("email"),
		Phone:     rec.GetString("phone"),
	}
}
