package services

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Attachment placement relative to the economic offer.
const (
	AttachmentsBefore = "before"
	AttachmentsAfter  = "after"
)

// Product-image fit modes.
const (
	FitContain = "contain"
	FitCover   = "cover"
)

// LineItem is one priced row of a quote. Total is derived and is rewritten
// by every recalculation.
type LineItem struct {
	ArticleID   string  `json:"articleId,omitempty"`
	Code        string  `json:"code"`
	Description string  `json:"description" validate:"required"`
	Quantity    float64 `json:"quantity" validate:"gte=0"`
	UnitPrice   float64 `json:"unitPrice" validate:"gte=0"`
	VATRate     float64 `json:"vatRate" validate:"gte=0,lte=100"`
	Total       float64 `json:"total"`
}

// UnmarshalJSON tolerates numbers sent as strings, nulls and garbage: any
// numeric field that cannot be read becomes 0.
func (li *LineItem) UnmarshalJSON(data []byte) error {
	var aux struct {
		ArticleID   json.RawMessage `json:"articleId"`
		Code        json.RawMessage `json:"code"`
		Description json.RawMessage `json:"description"`
		Quantity    flexFloat       `json:"quantity"`
		UnitPrice   flexFloat       `json:"unitPrice"`
		VATRate     flexFloat       `json:"vatRate"`
		Total       flexFloat       `json:"total"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*li = LineItem{
		ArticleID:   flexString(aux.ArticleID),
		Code:        flexString(aux.Code),
		Description: flexString(aux.Description),
		Quantity:    float64(aux.Quantity),
		UnitPrice:   float64(aux.UnitPrice),
		VATRate:     float64(aux.VATRate),
		Total:       float64(aux.Total),
	}
	return nil
}

// CustomerSnapshot is copied from the customer catalog when the quote is
// created and never follows later catalog edits.
type CustomerSnapshot struct {
	CustomerID string `json:"customerId,omitempty"`
	Name       string `json:"name" validate:"required"`
	Address    string `json:"address"`
	VATNumber  string `json:"vatNumber"`
	Email      string `json:"email,omitempty" validate:"omitempty,email"`
	Phone      string `json:"phone,omitempty"`
}

// AttachmentLayout holds the per-attachment layout knobs. Nil pointers and
// empty strings mean "not set" and fall through to the defaults.
type AttachmentLayout struct {
	ImagePosition       string   `json:"imagePosition,omitempty" validate:"omitempty,oneof=top bottom left right"`
	ImageHeight         *float64 `json:"imageHeight,omitempty"`
	DescriptionFontSize *float64 `json:"descriptionFontSize,omitempty"`
	DescriptionColor    string   `json:"descriptionColor,omitempty"`
	ShowTitle           *bool    `json:"showTitle,omitempty"`
	FullPageImage       *bool    `json:"fullPageImage,omitempty"`
}

// UnmarshalJSON reads heights and font sizes typed into the editor. Values
// that are not finite non-negative numbers, or numeric strings, are unset.
func (l *AttachmentLayout) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	type plain AttachmentLayout
	aux := struct {
		*plain
		ImageHeight         json.RawMessage `json:"imageHeight"`
		DescriptionFontSize json.RawMessage `json:"descriptionFontSize"`
		ShowTitle           json.RawMessage `json:"showTitle"`
		FullPageImage       json.RawMessage `json:"fullPageImage"`
	}{plain: (*plain)(l)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	l.ImageHeight = looseLayoutNumber(aux.ImageHeight)
	l.DescriptionFontSize = looseLayoutNumber(aux.DescriptionFontSize)
	l.ShowTitle = looseFlag(aux.ShowTitle)
	l.FullPageImage = looseFlag(aux.FullPageImage)
	return nil
}

// Attachment is a free-form page with a title, an image and a description.
type Attachment struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Image       ImageRef         `json:"image,omitempty"`
	Layout      AttachmentLayout `json:"layout"`
}

// ProductImage is one entry of the product-description gallery.
// LinkedItem is the index of the line item whose code and description
// prefill the caption.
type ProductImage struct {
	Src        ImageRef `json:"src"`
	Caption    string   `json:"caption,omitempty"`
	LinkedItem *int     `json:"linkedItem,omitempty"`
}

// Sections carries the narrative text and image knobs of every document
// section. Zero values mean "not set".
type Sections struct {
	IndexIntro string `json:"indexIntro,omitempty"`
	IndexOutro string `json:"indexOutro,omitempty"`

	PremiseText         string    `json:"premiseText,omitempty"`
	HardwareImages      ImageList `json:"hardwareImages,omitempty"`
	HardwareImageHeight float64   `json:"hardwareImageHeight,omitempty"`

	SoftwareText        string    `json:"softwareText,omitempty"`
	SoftwareImages      ImageList `json:"softwareImages,omitempty"`
	SoftwareImageScale  float64   `json:"softwareImageScale,omitempty"`
	SoftwareImageHeight float64   `json:"softwareImageHeight,omitempty"`

	TargetImages      ImageList `json:"targetImages,omitempty"`
	TargetImageScale  float64   `json:"targetImageScale,omitempty"`
	TargetImageHeight float64   `json:"targetImageHeight,omitempty"`

	ProductText           string         `json:"productText,omitempty"`
	ProductImages         []ProductImage `json:"productImages,omitempty"`
	ProductImageScale     float64        `json:"productImageScale,omitempty"`
	ProductImageMaxHeight float64        `json:"productImageMaxHeight,omitempty"`
	ProductImageFit       string         `json:"productImageFit,omitempty" validate:"omitempty,oneof=contain cover"`

	SupplyConditions []string `json:"supplyConditions,omitempty"`

	ShowTotals   *bool `json:"showTotals,omitempty"`
	ShowBankInfo *bool `json:"showBankInfo,omitempty"`
}

// UnmarshalJSON reads the image heights and scales leniently: numeric
// strings are accepted and anything that is not a finite non-negative
// number leaves the knob unset.
func (sec *Sections) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	type plain Sections
	aux := struct {
		*plain
		HardwareImageHeight   json.RawMessage `json:"hardwareImageHeight"`
		SoftwareImageScale    json.RawMessage `json:"softwareImageScale"`
		SoftwareImageHeight   json.RawMessage `json:"softwareImageHeight"`
		TargetImageScale      json.RawMessage `json:"targetImageScale"`
		TargetImageHeight     json.RawMessage `json:"targetImageHeight"`
		ProductImageScale     json.RawMessage `json:"productImageScale"`
		ProductImageMaxHeight json.RawMessage `json:"productImageMaxHeight"`
		ShowTotals            json.RawMessage `json:"showTotals"`
		ShowBankInfo          json.RawMessage `json:"showBankInfo"`
	}{plain: (*plain)(sec)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	sec.HardwareImageHeight = layoutValue(aux.HardwareImageHeight)
	sec.SoftwareImageScale = layoutValue(aux.SoftwareImageScale)
	sec.SoftwareImageHeight = layoutValue(aux.SoftwareImageHeight)
	sec.TargetImageScale = layoutValue(aux.TargetImageScale)
	sec.TargetImageHeight = layoutValue(aux.TargetImageHeight)
	sec.ProductImageScale = layoutValue(aux.ProductImageScale)
	sec.ProductImageMaxHeight = layoutValue(aux.ProductImageMaxHeight)
	sec.ShowTotals = looseFlag(aux.ShowTotals)
	sec.ShowBankInfo = looseFlag(aux.ShowBankInfo)
	return nil
}

// Quote is the document being edited. Subtotal, VATTotal and Total are
// derived from Items.
type Quote struct {
	ID                  string           `json:"id,omitempty"`
	OperatorID          string           `json:"operatorId,omitempty"`
	Number              string           `json:"number"`
	Date                time.Time        `json:"date"`
	Customer            CustomerSnapshot `json:"customer"`
	Items               []LineItem       `json:"items" validate:"dive"`
	Subtotal            float64          `json:"subtotal"`
	VATTotal            float64          `json:"vatTotal"`
	Total               float64          `json:"total"`
	Notes               string           `json:"notes,omitempty"`
	Leasing             *LeasingPlan     `json:"leasing,omitempty"`
	Attachments         []Attachment     `json:"attachments,omitempty" validate:"dive"`
	AttachmentsPosition string           `json:"attachmentsPosition,omitempty" validate:"omitempty,oneof=before after"`
	Sections            Sections         `json:"sections"`
	CreatedAt           time.Time        `json:"createdAt,omitempty"`
	DeletedAt           *time.Time       `json:"deletedAt,omitempty"`
}

// IsNew reports whether the quote has never been persisted.
func (q *Quote) IsNew() bool {
	return q.ID == ""
}

// AttachmentDefaults are remembered on Settings after each new quote so the
// next quote starts with the same attachment layout.
type AttachmentDefaults struct {
	Position string           `json:"position,omitempty"`
	Layout   AttachmentLayout `json:"layout"`
}

// Settings is the per-operator company profile plus document defaults.
type Settings struct {
	ID         string `json:"id,omitempty"`
	OperatorID string `json:"operatorId,omitempty"`

	CompanyName          string   `json:"companyName" validate:"required"`
	CompanyAddress       string   `json:"companyAddress"`
	CompanyVAT           string   `json:"companyVat"`
	CompanyEmail         string   `json:"companyEmail" validate:"omitempty,email"`
	CompanyPhone         string   `json:"companyPhone"`
	CompanyPEC           string   `json:"companyPec,omitempty"`
	CompanyRecipientCode string   `json:"companyRecipientCode,omitempty"`
	BankInfo             string   `json:"bankInfo"`
	Logo                 ImageRef `json:"logo,omitempty"`

	ContractPagesText string  `json:"contractPagesText,omitempty"`
	NextQuoteNumber   int     `json:"nextQuoteNumber" validate:"gte=1"`
	QuoteNumberPrefix string  `json:"quoteNumberPrefix"`
	DefaultVAT        float64 `json:"defaultVat" validate:"gte=0,lte=100"`

	DefaultHardwareImages      ImageList `json:"defaultHardwareImages,omitempty"`
	DefaultHardwareImageHeight float64   `json:"defaultHardwareImageHeight,omitempty"`
	DefaultSoftwareImage       ImageRef  `json:"defaultSoftwareImage,omitempty"`
	DefaultSoftwareImageScale  float64   `json:"defaultSoftwareImageScale,omitempty"`
	DefaultSoftwareImageHeight float64   `json:"defaultSoftwareImageHeight,omitempty"`
	DefaultTargetImage         ImageRef  `json:"defaultTargetImage,omitempty"`
	DefaultTargetImageScale    float64   `json:"defaultTargetImageScale,omitempty"`
	DefaultTargetImageHeight   float64   `json:"defaultTargetImageHeight,omitempty"`
	DefaultProductImageScale   float64   `json:"defaultProductImageScale,omitempty"`
	DefaultProductImageHeight  float64   `json:"defaultProductImageHeight,omitempty"`
	DefaultSupplyConditions    []string  `json:"defaultSupplyConditions,omitempty"`

	SignatureImage ImageRef `json:"signatureImage,omitempty"`
	SignatureScale float64  `json:"signatureScale,omitempty"`

	AttachmentDefaults AttachmentDefaults `json:"attachmentDefaults"`
}

// Article is a catalog entry used to autofill line items.
type Article struct {
	ID          string  `json:"id"`
	Code        string  `json:"code" validate:"required"`
	Description string  `json:"description" validate:"required"`
	Unit        string  `json:"unit"`
	UnitPrice   float64 `json:"unitPrice" validate:"gte=0"`
	VATRate     float64 `json:"vatRate" validate:"gte=0,lte=100"`
}

// Customer is a catalog entry used to fill the quote's customer snapshot.
type Customer struct {
	ID        string `json:"id"`
	Name      string `json:"name" validate:"required"`
	Address   string `json:"address"`
	VATNumber string `json:"vatNumber"`
	Email     string `json:"email" validate:"omitempty,email"`
	Phone     string `json:"phone"`
}

// Snapshot copies the customer into a quote-owned value.
func (c Customer) Snapshot() CustomerSnapshot {
	return CustomerSnapshot{
		CustomerID: c.ID,
		Name:       c.Name,
		Address:    c.Address,
		VATNumber:  c.VATNumber,
		Email:      c.Email,
		Phone:      c.Phone,
	}
}

// flexFloat decodes a JSON number or numeric string; anything else is 0.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	*f = flexFloat(parseLooseFloat(data))
	return nil
}

func parseLooseFloat(data []byte) float64 {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return 0
	}
	var raw string
	if data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return 0
		}
		raw = strings.Replace(strings.TrimSpace(raw), ",", ".", 1)
	} else {
		raw = string(data)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// flexString decodes a JSON string; numbers are kept verbatim and anything
// else becomes "".
func flexString(data json.RawMessage) string {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return ""
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return ""
		}
		return s
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		return string(data)
	}
	return ""
}

// looseLayoutNumber reads a layout number sent as a JSON number or string.
// Null, blank, negative and malformed values are nil.
func looseLayoutNumber(data json.RawMessage) *float64 {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil
		}
	}
	v := ParseLayoutNumber(raw, -1)
	if v < 0 {
		return nil
	}
	return &v
}

// layoutValue is looseLayoutNumber for knobs whose zero value means unset.
func layoutValue(data json.RawMessage) float64 {
	if v := looseLayoutNumber(data); v != nil {
		return *v
	}
	return 0
}

// looseFlag reads a JSON bool or a "true"/"false" string; anything else is nil.
func looseFlag(data json.RawMessage) *bool {
	data = bytes.TrimSpace(data)
	var raw string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil
		}
	} else {
		raw = string(data)
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return nil
	}
	return &v
}
