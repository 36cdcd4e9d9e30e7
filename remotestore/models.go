package remotestore

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"preventivi/services"
)

// settingsRow holds one operator's settings. The counter lives in its own
// column so it can be locked and incremented.
type settingsRow struct {
	ID              uuid.UUID         `gorm:"type:uuid;primaryKey"`
	OperatorID      string            `gorm:"uniqueIndex;not null"`
	NextQuoteNumber int               `gorm:"not null;default:1"`
	Data            services.Settings `gorm:"serializer:json;type:text"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (settingsRow) TableName() string { return "settings" }

// quoteRow keeps the full quote as JSON next to the columns used to list
// and search. DeletedAt drives the trash.
type quoteRow struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	OperatorID   string    `gorm:"index;not null"`
	Number       string    `gorm:"index"`
	CustomerName string    `gorm:"index"`
	Date         time.Time
	Total        float64
	Data         services.Quote `gorm:"serializer:json;type:text"`
	CreatedAt    time.Time      `gorm:"index"`
	UpdatedAt    time.Time
	DeletedAt    gorm.DeletedAt `gorm:"index"`
}

func (quoteRow) TableName() string { return "quotes" }

type articleRow struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Code        string    `gorm:"uniqueIndex;not null"`
	Description string    `gorm:"not null"`
	Unit        string
	UnitPrice   float64
	VATRate     float64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (articleRow) TableName() string { return "articles" }

type customerRow struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"index;not null"`
	Address   string
	VATNumber string
	Email     string
	Phone     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (customerRow) TableName() string { return "customers" }

func (r *settingsRow) BeforeCreate(*gorm.DB) error { r.ID = ensureID(r.ID); return nil }
func (r *quoteRow) BeforeCreate(*gorm.DB) error    { r.ID = ensureID(r.ID); return nil }
func (r *articleRow) BeforeCreate(*gorm.DB) error  { r.ID = ensureID(r.ID); return nil }
func (r *customerRow) BeforeCreate(*gorm.DB) error { r.ID = ensureID(r.ID); return nil }

func ensureID(id uuid.UUID) uuid.UUID {
	if id == uuid.Nil {
		return uuid.New()
	}
	return id
}

func (r *settingsRow) toSettings() *services.Settings {
	s := r.Data
	s.ID = r.ID.String()
	s.OperatorID = r.OperatorID
	s.NextQuoteNumber = r.NextQuoteNumber
	return &s
}

func (r *quoteRow) toQuote() services.Quote {
	q := r.Data
	q.ID = r.ID.String()
	q.OperatorID = r.OperatorID
	q.Number = r.Number
	q.CreatedAt = r.CreatedAt
	q.DeletedAt = nil
	if r.DeletedAt.Valid {
		t := r.DeletedAt.Time
		q.DeletedAt = &t
	}
	return q
}

func (r *quoteRow) fill(q *services.Quote) {
	data := *q
	data.ID = ""
	data.DeletedAt = nil
	r.OperatorID = q.OperatorID
	r.Number = q.Number
	r.CustomerName = q.Customer.Name
	r.Date = q.Date
	r.Total = q.Total
	r.Data = data
}

func (r *articleRow) toArticle() services.Article {
	return services.Article{
		ID:          r.ID.String(),
		Code:        r.Code,
		Description: r.Description,
		Unit:        r.Unit,
		UnitPrice:   r.UnitPrice,
		VATRate:     r.VATRate,
	}
}

func (r *customerRow) toCustomer() services.Customer {
	return services.Customer{
		ID:        r.ID.String(),
		Name:      r.Name,
		Address:   r.Address,
		VATNumber: r.VATNumber,
		Email:     r.Email,
		Phone:     r.Phone,
	}
}
