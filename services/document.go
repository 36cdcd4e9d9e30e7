package services

import (
	"fmt"
	"strings"
	"time"
)

// Literal defaults used when neither the quote nor the settings provide a value.
const (
	DefaultAttachmentPosition = "top"
	DefaultAttachmentHeight   = 300.0
	DefaultAttachmentFontSize = 11.0
	DefaultAttachmentColor    = "#333333"
	DefaultProductMaxHeight   = 400.0

	DefaultSoftwareText = "Il software proposto è una soluzione gestionale completa, " +
		"installata e configurata dai nostri tecnici, con assistenza e aggiornamenti " +
		"inclusi per tutta la durata del contratto."
)

// CompanyBlock is the issuer identity printed in the header and footer.
type CompanyBlock struct {
	Name          string
	Address       string
	VATNumber     string
	Email         string
	Phone         string
	PEC           string
	RecipientCode string
}

// ResolvedLayout is an attachment layout with every knob filled in.
type ResolvedLayout struct {
	ImagePosition       string
	ImageHeight         float64
	DescriptionFontSize float64
	DescriptionColor    string
	ShowTitle           bool
	FullPageImage       bool
}

// DocumentAttachment is an attachment ready for layout. Image is empty
// when the stored reference was invalid.
type DocumentAttachment struct {
	Title       string
	Description string
	Image       ImageRef
	Layout      ResolvedLayout
}

// DocumentImage is a product-gallery entry with its resolved caption.
type DocumentImage struct {
	Src     ImageRef
	Caption string
}

// OfferRow is one row of the economic offer table.
type OfferRow struct {
	Code        string
	Description string
	Quantity    float64
	UnitPrice   float64
	VATRate     float64
	Total       float64
}

// Document is a quote merged with its settings and defaults. Every field is
// final: layout code never looks at Quote or Settings again.
type Document struct {
	Number   string
	Date     time.Time
	Company  CompanyBlock
	Logo     ImageRef
	Customer CustomerSnapshot
	Notes    string

	IndexIntro string
	IndexOutro string

	PremiseText         string
	HardwareImages      []ImageRef
	HardwareImageHeight float64

	SoftwareText        string
	SoftwareImage       ImageRef
	SoftwareImageScale  float64
	SoftwareImageHeight float64

	TargetImage       ImageRef
	TargetImageScale  float64
	TargetImageHeight float64

	ProductText      string
	ProductImages    []DocumentImage
	ProductScale     float64
	ProductMaxHeight float64
	ProductFit       string

	Rows       []OfferRow
	Totals     QuoteTotals
	ShowTotals bool
	Leasing    *LeasingPlan
	BankInfo   string
	ShowBank   bool

	SupplyConditions []string
	Signature        ImageRef
	SignatureScale   float64

	AttachmentsPosition string
	Attachments         []DocumentAttachment
	ContractPages       []string

	// Origins maps a field name to the default level that supplied it.
	Origins map[string]Origin
}

// DocumentInput bundles what BuildDocument merges. LastQuote is consulted
// only when Quote has never been saved.
type DocumentInput struct {
	Quote     *Quote
	Settings  *Settings
	LastQuote *Quote
}

type docBuilder struct {
	q       *Quote
	s       *Settings
	last    *Quote
	origins map[string]Origin
}

// BuildDocument resolves every document field independently along the
// chain quote, last quote (new quotes only), settings, literal fallback.
// It never fails: missing data resolves to a default or to an empty value
// that makes the layout omit the section.
func BuildDocument(in DocumentInput) *Document {
	q := &Quote{}
	if in.Quote != nil {
		cp := *in.Quote
		cp.Items = append([]LineItem(nil), in.Quote.Items...)
		if cp.Leasing != nil {
			plan := *cp.Leasing
			cp.Leasing = &plan
		}
		q = &cp
	}
	s := in.Settings
	if s == nil {
		s = &Settings{}
	}
	var last *Quote
	if q.IsNew() && in.LastQuote != nil {
		last = in.LastQuote
	}

	b := &docBuilder{q: q, s: s, last: last, origins: map[string]Origin{}}
	q.Recalculate()

	doc := &Document{
		Number: ResolveDisplayNumber(q.Number, s),
		Date:   q.Date,
		Company: CompanyBlock{
			Name:          s.CompanyName,
			Address:       s.CompanyAddress,
			VATNumber:     s.CompanyVAT,
			Email:         s.CompanyEmail,
			Phone:         s.CompanyPhone,
			PEC:           s.CompanyPEC,
			RecipientCode: s.CompanyRecipientCode,
		},
		Customer:   q.Customer,
		Notes:      strings.TrimSpace(q.Notes),
		IndexIntro: strings.TrimSpace(q.Sections.IndexIntro),
		IndexOutro: strings.TrimSpace(q.Sections.IndexOutro),
		Rows:       offerRows(q.Items),
		Totals:     q.Totals(),
		BankInfo:   strings.TrimSpace(s.BankInfo),
		Origins:    b.origins,
	}
	if s.Logo.Valid() {
		doc.Logo = s.Logo
	}
	doc.Leasing = q.Leasing

	b.narrative(doc)
	b.images(doc)
	b.offer(doc)
	b.attachments(doc)
	doc.ContractPages = SplitContractPages(s.ContractPagesText)

	return doc
}

// lastLevel returns pick(last) when a last quote is in play.
func lastLevel[T any](b *docBuilder, pick func(*Quote) Level[T]) Level[T] {
	if b.last == nil {
		return None[T]()
	}
	return pick(b.last)
}

func (b *docBuilder) note(field string, o Origin) {
	b.origins[field] = o
}

func (b *docBuilder) narrative(doc *Document) {
	var o Origin

	doc.PremiseText, o = Resolve(
		Text(b.q.Sections.PremiseText),
		lastLevel(b, func(l *Quote) Level[string] { return Text(l.Sections.PremiseText) }),
		None[string](),
		"",
	)
	b.note("premiseText", o)

	doc.SoftwareText, o = Resolve(
		Text(b.q.Sections.SoftwareText),
		lastLevel(b, func(l *Quote) Level[string] { return Text(l.Sections.SoftwareText) }),
		None[string](),
		DefaultSoftwareText,
	)
	b.note("softwareText", o)

	doc.ProductText, o = Resolve(
		Text(b.q.Sections.ProductText),
		lastLevel(b, func(l *Quote) Level[string] { return Text(l.Sections.ProductText) }),
		None[string](),
		"",
	)
	b.note("productText", o)

	conditions, o := Resolve(
		When(cleanLines(b.q.Sections.SupplyConditions), len(cleanLines(b.q.Sections.SupplyConditions)) > 0),
		None[[]string](),
		When(cleanLines(b.s.DefaultSupplyConditions), len(cleanLines(b.s.DefaultSupplyConditions)) > 0),
		nil,
	)
	doc.SupplyConditions = conditions
	b.note("supplyConditions", o)

	doc.PremiseText = strings.TrimSpace(doc.PremiseText)
	doc.SoftwareText = strings.TrimSpace(doc.SoftwareText)
	doc.ProductText = strings.TrimSpace(doc.ProductText)
}

func (b *docBuilder) images(doc *Document) {
	var o Origin
	sec := b.q.Sections

	hw, o := Resolve(
		Images(sec.HardwareImages),
		lastLevel(b, func(l *Quote) Level[ImageList] { return Images(l.Sections.HardwareImages) }),
		Images(b.s.DefaultHardwareImages),
		nil,
	)
	doc.HardwareImages = ValidImages(hw)
	b.note("hardwareImages", o)

	doc.HardwareImageHeight, o = Resolve(
		Positive(sec.HardwareImageHeight),
		lastLevel(b, func(l *Quote) Level[float64] { return Positive(l.Sections.HardwareImageHeight) }),
		Positive(b.s.DefaultHardwareImageHeight),
		0,
	)
	b.note("hardwareImageHeight", o)

	doc.SoftwareImage, o = Resolve(
		firstImage(sec.SoftwareImages),
		lastLevel(b, func(l *Quote) Level[ImageRef] { return firstImage(l.Sections.SoftwareImages) }),
		firstImage(ImageList{b.s.DefaultSoftwareImage}),
		"",
	)
	b.note("softwareImage", o)

	doc.SoftwareImageHeight, o = Resolve(
		Positive(sec.SoftwareImageHeight),
		lastLevel(b, func(l *Quote) Level[float64] { return Positive(l.Sections.SoftwareImageHeight) }),
		Positive(b.s.DefaultSoftwareImageHeight),
		0,
	)
	b.note("softwareImageHeight", o)

	scale, o := Resolve(Positive(sec.SoftwareImageScale), None[float64](), Positive(b.s.DefaultSoftwareImageScale), 100)
	doc.SoftwareImageScale = CoerceScale(scale)
	b.note("softwareImageScale", o)

	doc.TargetImage, o = Resolve(
		firstImage(sec.TargetImages),
		lastLevel(b, func(l *Quote) Level[ImageRef] { return firstImage(l.Sections.TargetImages) }),
		firstImage(ImageList{b.s.DefaultTargetImage}),
		"",
	)
	b.note("targetImage", o)

	doc.TargetImageHeight, o = Resolve(
		Positive(sec.TargetImageHeight),
		lastLevel(b, func(l *Quote) Level[float64] { return Positive(l.Sections.TargetImageHeight) }),
		Positive(b.s.DefaultTargetImageHeight),
		0,
	)
	b.note("targetImageHeight", o)

	scale, o = Resolve(Positive(sec.TargetImageScale), None[float64](), Positive(b.s.DefaultTargetImageScale), 100)
	doc.TargetImageScale = CoerceScale(scale)
	b.note("targetImageScale", o)

	for _, img := range sec.ProductImages {
		if !img.Src.Valid() {
			continue
		}
		doc.ProductImages = append(doc.ProductImages, DocumentImage{
			Src:     img.Src,
			Caption: b.caption(img),
		})
	}

	scale, o = Resolve(Positive(sec.ProductImageScale), None[float64](), Positive(b.s.DefaultProductImageScale), 100)
	doc.ProductScale = CoerceScale(scale)
	b.note("productImageScale", o)

	doc.ProductMaxHeight, o = Resolve(
		Positive(sec.ProductImageMaxHeight),
		None[float64](),
		Positive(b.s.DefaultProductImageHeight),
		DefaultProductMaxHeight,
	)
	b.note("productImageMaxHeight", o)

	doc.ProductFit = FitContain
	if strings.EqualFold(strings.TrimSpace(sec.ProductImageFit), FitCover) {
		doc.ProductFit = FitCover
	}

	if b.s.SignatureImage.Valid() {
		doc.Signature = b.s.SignatureImage
	}
	doc.SignatureScale = CoerceScale(b.s.SignatureScale)
}

// caption returns the explicit caption, else "code - description" of the
// linked line item.
func (b *docBuilder) caption(img ProductImage) string {
	if c := strings.TrimSpace(img.Caption); c != "" {
		return c
	}
	if img.LinkedItem == nil {
		return ""
	}
	i := *img.LinkedItem
	if i < 0 || i >= len(b.q.Items) {
		return ""
	}
	return LinkedCaption(b.q.Items[i])
}

// LinkedCaption formats a line item as a product-image caption.
func LinkedCaption(item LineItem) string {
	code := strings.TrimSpace(item.Code)
	desc := strings.TrimSpace(item.Description)
	switch {
	case code != "" && desc != "":
		return fmt.Sprintf("%s - %s", code, desc)
	case code != "":
		return code
	}
	return desc
}

func (b *docBuilder) offer(doc *Document) {
	var o Origin
	doc.ShowTotals, o = Resolve(Flag(b.q.Sections.ShowTotals), None[bool](), None[bool](), true)
	b.note("showTotals", o)

	doc.ShowBank, o = Resolve(Flag(b.q.Sections.ShowBankInfo), None[bool](), None[bool](), true)
	b.note("showBankInfo", o)
	if doc.BankInfo == "" {
		doc.ShowBank = false
	}
}

func (b *docBuilder) attachments(doc *Document) {
	pos, o := Resolve(
		attachmentPosition(b.q.AttachmentsPosition),
		None[string](),
		attachmentPosition(b.s.AttachmentDefaults.Position),
		AttachmentsAfter,
	)
	doc.AttachmentsPosition = pos
	b.note("attachmentsPosition", o)

	def := b.s.AttachmentDefaults.Layout
	for _, a := range b.q.Attachments {
		da := DocumentAttachment{
			Title:       strings.TrimSpace(a.Title),
			Description: strings.TrimSpace(a.Description),
			Layout:      ResolveAttachmentLayout(a.Layout, def),
		}
		if a.Image.Valid() {
			da.Image = a.Image
		}
		doc.Attachments = append(doc.Attachments, da)
	}
}

// ResolveAttachmentLayout fills each knob of l from def and then from the
// literal defaults, field by field.
func ResolveAttachmentLayout(l, def AttachmentLayout) ResolvedLayout {
	var r ResolvedLayout

	r.ImagePosition, _ = Resolve(imagePosition(l.ImagePosition), None[string](), imagePosition(def.ImagePosition), DefaultAttachmentPosition)
	r.ImageHeight, _ = Resolve(Number(l.ImageHeight), None[float64](), Number(def.ImageHeight), DefaultAttachmentHeight)
	fontSize, _ := Resolve(Positive(deref(l.DescriptionFontSize)), None[float64](), Positive(deref(def.DescriptionFontSize)), DefaultAttachmentFontSize)
	r.DescriptionFontSize = fontSize
	r.DescriptionColor, _ = Resolve(Text(l.DescriptionColor), None[string](), Text(def.DescriptionColor), DefaultAttachmentColor)
	r.ShowTitle, _ = Resolve(Flag(l.ShowTitle), None[bool](), Flag(def.ShowTitle), true)
	r.FullPageImage, _ = Resolve(Flag(l.FullPageImage), None[bool](), Flag(def.FullPageImage), false)

	r.DescriptionColor = strings.TrimSpace(r.DescriptionColor)
	r.ImageHeight = CoerceHeight(r.ImageHeight)
	return r
}

// SplitContractPages splits boilerplate on the literal "---" delimiter.
// Segments are trimmed and blank ones dropped.
func SplitContractPages(text string) []string {
	var pages []string
	for _, part := range strings.Split(text, "---") {
		if p := strings.TrimSpace(part); p != "" {
			pages = append(pages, p)
		}
	}
	return pages
}

func offerRows(items []LineItem) []OfferRow {
	rows := make([]OfferRow, 0, len(items))
	for _, it := range items {
		rows = append(rows, OfferRow{
			Code:        strings.TrimSpace(it.Code),
			Description: strings.TrimSpace(it.Description),
			Quantity:    nonNegative(it.Quantity),
			UnitPrice:   nonNegative(it.UnitPrice),
			VATRate:     nonNegative(it.VATRate),
			Total:       CalcLineTotal(nonNegative(it.Quantity), nonNegative(it.UnitPrice)),
		})
	}
	return rows
}

func firstImage(list ImageList) Level[ImageRef] {
	valid := ValidImages(list)
	if len(valid) == 0 {
		return None[ImageRef]()
	}
	return Some(valid[0])
}

func attachmentPosition(s string) Level[string] {
	s = strings.ToLower(strings.TrimSpace(s))
	return When(s, s == AttachmentsBefore || s == AttachmentsAfter)
}

func imagePosition(s string) Level[string] {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "top", "bottom", "left", "right":
		return Some(s)
	}
	return None[string]()
}

func cleanLines(lines []string) []string {
	var out []string
	for _, l := range lines {
		if t := strings.TrimSpace(l); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// BuildDraft returns the starting point for a new quote: the narrative and
// image fields of the operator's most recent quote, the settings'
// attachment placement and today's date. The number stays blank so that it
// is assigned from the counter on save.
func BuildDraft(s *Settings, last *Quote, now time.Time) *Quote {
	q := &Quote{Date: now}
	if s == nil {
		s = &Settings{}
	}

	q.AttachmentsPosition, _ = Resolve(None[string](), None[string](), attachmentPosition(s.AttachmentDefaults.Position), AttachmentsAfter)
	q.Sections.SupplyConditions = cleanLines(s.DefaultSupplyConditions)

	if last == nil {
		return q
	}
	ls := last.Sections
	q.Sections.PremiseText = ls.PremiseText
	q.Sections.HardwareImages = append(ImageList(nil), ls.HardwareImages...)
	q.Sections.HardwareImageHeight = CoerceHeight(ls.HardwareImageHeight)
	q.Sections.SoftwareText = ls.SoftwareText
	q.Sections.SoftwareImages = append(ImageList(nil), ls.SoftwareImages...)
	q.Sections.SoftwareImageHeight = CoerceHeight(ls.SoftwareImageHeight)
	q.Sections.TargetImages = append(ImageList(nil), ls.TargetImages...)
	q.Sections.TargetImageHeight = CoerceHeight(ls.TargetImageHeight)
	q.Sections.ProductText = ls.ProductText
	return q
}
