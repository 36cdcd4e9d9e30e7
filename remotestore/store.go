// Package remotestore implements services.Store on a relational database
// through gorm: PostgreSQL in production, SQLite for local use and tests.
package remotestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"preventivi/services"
)

// Store is the remote services.Store.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

var _ services.Store = (*Store)(nil)

// Open connects to the database with the named driver ("postgres" or
// "sqlite") and migrates the schema.
func Open(driver, dsn string) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}

	if driver == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("sqlite handle: %w", err)
		}
		// one writer at a time; sqlite has no row locks
		sqlDB.SetMaxOpenConns(1)
	}

	return New(db)
}

// New wraps an open gorm connection and migrates the schema.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&settingsRow{}, &quoteRow{}, &articleRow{}, &customerRow{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func parseID(id string) (uuid.UUID, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, services.ErrNotFound
	}
	return u, nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return services.ErrNotFound
	}
	return err
}

// ── Settings ──────────────────────────────────────────────────────────────

func (s *Store) LoadSettings(ctx context.Context, sess services.Session) (*services.Settings, error) {
	row, err := s.settingsRow(s.db.WithContext(ctx), sess, false)
	if err != nil {
		return nil, err
	}
	return row.toSettings(), nil
}

func (s *Store) SaveSettings(ctx context.Context, sess services.Session, in *services.Settings) (*services.Settings, error) {
	if err := services.Validate(in); err != nil {
		return nil, err
	}

	var out *services.Settings
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := s.settingsRow(tx, sess, true)
		if err != nil {
			return err
		}
		row.Data = *in
		row.NextQuoteNumber = max(in.NextQuoteNumber, 1)
		if err := tx.Save(row).Error; err != nil {
			return fmt.Errorf("save settings: %w", err)
		}
		out = row.toSettings()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// settingsRow loads the operator's settings, creating the defaults on first
// access. With lock the row is selected FOR UPDATE.
func (s *Store) settingsRow(tx *gorm.DB, sess services.Session, lock bool) (*settingsRow, error) {
	find := func(dest *settingsRow) error {
		q := tx.Where("operator_id = ?", sess.OperatorID)
		if lock {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		return q.First(dest).Error
	}

	var row settingsRow
	err := find(&row)
	if err == nil {
		return &row, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find settings: %w", err)
	}

	def := services.DefaultSettings(sess.OperatorID, s.now())
	created := settingsRow{OperatorID: sess.OperatorID, NextQuoteNumber: def.NextQuoteNumber, Data: *def}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&created).Error; err != nil {
		return nil, fmt.Errorf("create default settings: %w", err)
	}
	// a concurrent first access may have won the insert
	var stored settingsRow
	if err := find(&stored); err != nil {
		return nil, fmt.Errorf("find settings: %w", err)
	}
	return &stored, nil
}

// ── Quotes ────────────────────────────────────────────────────────────────

func (s *Store) GetQuote(ctx context.Context, sess services.Session, id string) (*services.Quote, error) {
	row, err := s.quoteRow(s.db.WithContext(ctx), sess, id, false)
	if err != nil {
		return nil, err
	}
	q := row.toQuote()
	return &q, nil
}

func (s *Store) quoteRow(tx *gorm.DB, sess services.Session, id string, withTrashed bool) (*quoteRow, error) {
	uid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	if withTrashed {
		tx = tx.Unscoped()
	}
	var row quoteRow
	if err := tx.Where("id = ? AND operator_id = ?", uid, sess.OperatorID).First(&row).Error; err != nil {
		return nil, notFound(err)
	}
	return &row, nil
}

func (s *Store) LastQuote(ctx context.Context, sess services.Session) (*services.Quote, error) {
	list, err := s.ListQuotes(ctx, sess, services.QuoteFilter{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return &list[0], nil
}

func (s *Store) ListQuotes(ctx context.Context, sess services.Session, f services.QuoteFilter) ([]services.Quote, error) {
	q := s.db.WithContext(ctx).Where("operator_id = ?", sess.OperatorID)
	if search := strings.ToLower(strings.TrimSpace(f.Search)); search != "" {
		like := "%" + search + "%"
		q = q.Where("LOWER(number) LIKE ? OR LOWER(customer_name) LIKE ?", like, like)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}

	var rows []quoteRow
	if err := q.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list quotes: %w", err)
	}
	return toQuotes(rows), nil
}

func (s *Store) ListTrash(ctx context.Context, sess services.Session) ([]services.Quote, error) {
	var rows []quoteRow
	err := s.db.WithContext(ctx).Unscoped().
		Where("operator_id = ? AND deleted_at IS NOT NULL", sess.OperatorID).
		Order("deleted_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list trash: %w", err)
	}
	return toQuotes(rows), nil
}

func toQuotes(rows []quoteRow) []services.Quote {
	out := make([]services.Quote, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toQuote())
	}
	return out
}

func (s *Store) CreateQuote(ctx context.Context, sess services.Session, q *services.Quote, usage services.AttachmentUsage) (*services.Quote, error) {
	var out services.Quote
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		settings, err := s.settingsRow(tx, sess, true)
		if err != nil {
			return err
		}

		cp := *q
		cp.OperatorID = sess.OperatorID
		cp.Number = services.ResolveDisplayNumber(q.Number, settings.toSettings())

		var row quoteRow
		row.fill(&cp)
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("insert quote: %w", err)
		}

		settings.NextQuoteNumber++
		settings.Data.AttachmentDefaults = settings.Data.AttachmentDefaults.Remember(usage)
		if err := tx.Save(settings).Error; err != nil {
			return fmt.Errorf("advance quote counter: %w", err)
		}

		out = row.toQuote()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) UpdateQuote(ctx context.Context, sess services.Session, q *services.Quote) (*services.Quote, error) {
	db := s.db.WithContext(ctx)
	row, err := s.quoteRow(db, sess, q.ID, true)
	if err != nil {
		return nil, err
	}

	cp := *q
	cp.OperatorID = sess.OperatorID
	row.fill(&cp)
	if err := db.Unscoped().Save(row).Error; err != nil {
		return nil, fmt.Errorf("update quote: %w", err)
	}
	out := row.toQuote()
	return &out, nil
}

func (s *Store) TrashQuote(ctx context.Context, sess services.Session, id string) error {
	db := s.db.WithContext(ctx)
	row, err := s.quoteRow(db, sess, id, false)
	if err != nil {
		return err
	}
	if err := db.Delete(row).Error; err != nil {
		return fmt.Errorf("trash quote %s: %w", id, err)
	}
	return nil
}

func (s *Store) RestoreQuote(ctx context.Context, sess services.Session, id string) error {
	db := s.db.WithContext(ctx)
	row, err := s.quoteRow(db, sess, id, true)
	if err != nil {
		return err
	}
	if err := db.Unscoped().Model(row).Update("deleted_at", nil).Error; err != nil {
		return fmt.Errorf("restore quote %s: %w", id, err)
	}
	return nil
}

func (s *Store) DeleteQuote(ctx context.Context, sess services.Session, id string) error {
	db := s.db.WithContext(ctx)
	row, err := s.quoteRow(db, sess, id, true)
	if err != nil {
		return err
	}
	if err := db.Unscoped().Delete(row).Error; err != nil {
		return fmt.Errorf("delete quote %s: %w", id, err)
	}
	return nil
}

func (s *Store) PurgeTrash(ctx context.Context, cutoff time.Time) (int, error) {
	res := s.db.WithContext(ctx).Unscoped().
		Where("deleted_at IS NOT NULL AND deleted_at < ?", cutoff).
		Delete(&quoteRow{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge trash: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}

// ── Catalog ───────────────────────────────────────────────────────────────

func (s *Store) ListArticles(ctx context.Context, sess services.Session, search string) ([]services.Article, error) {
	q := s.db.WithContext(ctx)
	if search = strings.ToLower(strings.TrimSpace(search)); search != "" {
		like := "%" + search + "%"
		q = q.Where("LOWER(code) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	var rows []articleRow
	if err := q.Order("code").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	out := make([]services.Article, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toArticle())
	}
	return out, nil
}

func (s *Store) SaveArticles(ctx context.Context, sess services.Session, articles []services.Article) (int, error) {
	if len(articles) == 0 {
		return 0, nil
	}
	// one row per code, last one wins
	byCode := make(map[string]int, len(articles))
	rows := make([]articleRow, 0, len(articles))
	for _, a := range articles {
		if i, ok := byCode[a.Code]; ok {
			rows[i].Description, rows[i].Unit = a.Description, a.Unit
			rows[i].UnitPrice, rows[i].VATRate = a.UnitPrice, a.VATRate
			continue
		}
		byCode[a.Code] = len(rows)
		rows = append(rows, articleRow{
			Code:        a.Code,
			Description: a.Description,
			Unit:        a.Unit,
			UnitPrice:   a.UnitPrice,
			VATRate:     a.VATRate,
		})
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"description", "unit", "unit_price", "vat_rate", "updated_at"}),
	}).Create(&rows)
	if res.Error != nil {
		return 0, fmt.Errorf("save articles: %w", res.Error)
	}
	return len(rows), nil
}

func (s *Store) ListCustomers(ctx context.Context, sess services.Session, search string) ([]services.Customer, error) {
	q := s.db.WithContext(ctx)
	if search = strings.ToLower(strings.TrimSpace(search)); search != "" {
		like := "%" + search + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(vat_number) LIKE ?", like, like)
	}
	var rows []customerRow
	if err := q.Order("name").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	out := make([]services.Customer, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toCustomer())
	}
	return out, nil
}

func (s *Store) GetCustomer(ctx context.Context, sess services.Session, id string) (*services.Customer, error) {
	uid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	var row customerRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", uid).Error; err != nil {
		return nil, notFound(err)
	}
	c := row.toCustomer()
	return &c, nil
}

func (s *Store) SaveCustomer(ctx context.Context, sess services.Session, c *services.Customer) (*services.Customer, error) {
	if err := services.Validate(c); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)

	var row customerRow
	if c.ID != "" {
		uid, err := parseID(c.ID)
		if err != nil {
			return nil, err
		}
		if err := db.First(&row, "id = ?", uid).Error; err != nil {
			return nil, notFound(err)
		}
	}
	row.Name = c.Name
	row.Address = c.Address
	row.VATNumber = c.VATNumber
	row.Email = c.Email
	row.Phone = c.Phone
	if err := db.Save(&row).Error; err != nil {
		return nil, fmt.Errorf("save customer: %w", err)
	}
	out := row.toCustomer()
	return &out, nil
}
