package services

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned when a record does not exist or belongs to
// another operator.
var ErrNotFound = errors.New("not found")

// Session identifies the authenticated operator. It is passed explicitly
// to every store call.
type Session struct {
	OperatorID string
	Username   string
}

// QuoteFilter narrows a quote listing. Search matches the display number or
// the customer name, case-insensitively.
type QuoteFilter struct {
	Search string
	Limit  int
	Offset int
}

// SettingsStore reads and writes the operator's settings.
type SettingsStore interface {
	// LoadSettings returns the operator's settings, creating the defaults
	// on first access.
	LoadSettings(ctx context.Context, sess Session) (*Settings, error)
	SaveSettings(ctx context.Context, sess Session, s *Settings) (*Settings, error)
}

// QuoteStore persists quotes. CreateQuote is the only two-record write: in
// one transaction it resolves a blank number with ResolveDisplayNumber,
// inserts the quote, advances the settings counter by one and remembers the
// attachment defaults.
type QuoteStore interface {
	GetQuote(ctx context.Context, sess Session, id string) (*Quote, error)
	// LastQuote returns the most recently created non-trashed quote, or
	// nil when the operator has none.
	LastQuote(ctx context.Context, sess Session) (*Quote, error)
	ListQuotes(ctx context.Context, sess Session, f QuoteFilter) ([]Quote, error)
	CreateQuote(ctx context.Context, sess Session, q *Quote, usage AttachmentUsage) (*Quote, error)
	UpdateQuote(ctx context.Context, sess Session, q *Quote) (*Quote, error)

	TrashQuote(ctx context.Context, sess Session, id string) error
	RestoreQuote(ctx context.Context, sess Session, id string) error
	DeleteQuote(ctx context.Context, sess Session, id string) error
	ListTrash(ctx context.Context, sess Session) ([]Quote, error)
	// PurgeTrash hard-deletes quotes of every operator trashed before cutoff.
	PurgeTrash(ctx context.Context, cutoff time.Time) (int, error)
}

// CatalogStore reads the shared article and customer catalogs.
type CatalogStore interface {
	ListArticles(ctx context.Context, sess Session, search string) ([]Article, error)
	ListCustomers(ctx context.Context, sess Session, search string) ([]Customer, error)
	GetCustomer(ctx context.Context, sess Session, id string) (*Customer, error)
	// SaveCustomer inserts c when its ID is empty, else updates it.
	SaveCustomer(ctx context.Context, sess Session, c *Customer) (*Customer, error)
	// SaveArticles upserts by code and returns how many rows were written.
	SaveArticles(ctx context.Context, sess Session, articles []Article) (int, error)
}

// Store is the full persistence boundary used by the handlers.
type Store interface {
	SettingsStore
	QuoteStore
	CatalogStore
}

// DefaultSettings returns the settings a new operator starts with.
func DefaultSettings(operatorID string, now time.Time) *Settings {
	return &Settings{
		OperatorID:        operatorID,
		CompanyName:       "La Mia Azienda",
		CompanyAddress:    "Via Roma 1, 00100 Roma",
		CompanyVAT:        "12345678901",
		CompanyEmail:      "info@azienda.it",
		CompanyPhone:      "06 123456",
		BankInfo:          "IBAN: IT00 X 00000 00000 000000000000",
		NextQuoteNumber:   1,
		QuoteNumberPrefix: now.Format("2006") + "-",
		DefaultVAT:        22,
	}
}

// AttachmentUsage is the attachment layout a newly saved quote used: its
// position and, when it has attachments, the first one's layout.
type AttachmentUsage struct {
	Position string
	Layout   *AttachmentLayout
}

// AttachmentUsageOf captures the attachment layout of q.
func AttachmentUsageOf(q *Quote) AttachmentUsage {
	u := AttachmentUsage{Position: strings.TrimSpace(q.AttachmentsPosition)}
	if len(q.Attachments) > 0 {
		layout := q.Attachments[0].Layout
		u.Layout = &layout
	}
	return u
}

// Remember folds u over the stored defaults. A blank position or a quote
// without attachments keeps what was remembered before.
func (d AttachmentDefaults) Remember(u AttachmentUsage) AttachmentDefaults {
	if u.Position != "" {
		d.Position = u.Position
	}
	if u.Layout != nil {
		d.Layout = *u.Layout
	}
	return d
}
