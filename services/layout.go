package services

// Page geometry in PDF points (A4 portrait).
const (
	PageWidthPt    = 595.0
	PageHeightPt   = 842.0
	PagePaddingPt  = 40.0
	ContentWidthPt = PageWidthPt - 2*PagePaddingPt
	ColumnGapPt    = 15.0

	HardwareImageMaxHeightPt = 150.0
	SoftwareImageMaxHeightPt = 150.0
	TargetImageMaxHeightPt   = 120.0
	AttachmentAutoHeightPt   = 420.0
	SignatureWidthPt         = 150.0
	SignatureHeightPt        = 60.0
)

// Section identifies which part of the document a page belongs to.
type Section string

const (
	SectionAttachments Section = "attachments"
	SectionIndex       Section = "index"
	SectionSoftware    Section = "software"
	SectionProducts    Section = "products"
	SectionOffer       Section = "offer"
	SectionContract    Section = "contract"
)

// Anchors used by the index to link into the document.
const (
	AnchorPremise  = "premessa"
	AnchorSoftware = "software"
	AnchorTarget   = "target-audience"
	AnchorProducts = "descrizione-prodotti"
	AnchorOffer    = "offerta-economica"
	AnchorAttached = "allegati"
	AnchorContract = "condizioni-contrattuali"
)

// Page is one page of the composed document. Decorated pages carry the
// company header and footer; every page carries the page counter.
type Page struct {
	Number    int
	Section   Section
	Anchor    string
	FullBleed bool
	Decorated bool
	Blocks    []Block
}

// Block is a unit of page content. The concrete types below are the only
// implementations.
type Block interface {
	block()
}

type Heading struct {
	Text   string
	Anchor string
}

type Paragraph struct {
	Text     string
	FontSize float64
	Color    string
}

// Image is an image placed in a box of WidthPt x HeightPt. With FitContain
// the image keeps its aspect ratio inside the box; FitCover fills the box
// and crops.
type Image struct {
	Src      ImageRef
	WidthPt  float64
	HeightPt float64
	Fit      string
}

// Gallery lays its images out side by side on one row.
type Gallery struct {
	Images []Image
}

type IndexEntry struct {
	Label  string
	Anchor string
}

type Index struct {
	Entries []IndexEntry
}

// Split divides the content width into two equal columns.
type Split struct {
	Left  []Block
	Right []Block
}

type OfferTable struct {
	Rows []OfferRow
}

type TotalsBlock struct {
	Totals QuoteTotals
}

type LeasingBlock struct {
	Plan LeasingPlan
}

type BankBlock struct {
	Text string
}

type ConditionsBlock struct {
	Title string
	Items []string
}

// SignatureBlock closes the offer: a date line, the issuer signature (with
// the configured image when present) and an empty customer signature line.
type SignatureBlock struct {
	Date         string
	CompanyName  string
	CustomerName string
	Image        *Image
}

type Caption struct {
	Text string
}

func (Heading) block()         {}
func (Paragraph) block()       {}
func (Image) block()           {}
func (Gallery) block()         {}
func (Index) block()           {}
func (Split) block()           {}
func (OfferTable) block()      {}
func (TotalsBlock) block()     {}
func (LeasingBlock) block()    {}
func (BankBlock) block()       {}
func (ConditionsBlock) block() {}
func (SignatureBlock) block()  {}
func (Caption) block()         {}

// ComposePages lays the document out as an ordered page sequence:
// attachments placed before the offer, index and premise, software and
// target audience, one page per product image, economic offer, attachments
// placed after the offer, contract pages. It is pure and never fails;
// absent content omits the corresponding page or heading.
func ComposePages(doc *Document) []Page {
	if doc == nil {
		doc = &Document{}
	}

	var pages []Page
	if doc.AttachmentsPosition == AttachmentsBefore {
		pages = append(pages, attachmentPages(doc)...)
	}
	pages = append(pages, indexPage(doc), softwarePage(doc))
	pages = append(pages, productPages(doc)...)
	pages = append(pages, offerPage(doc))
	if doc.AttachmentsPosition != AttachmentsBefore {
		pages = append(pages, attachmentPages(doc)...)
	}
	pages = append(pages, contractPages(doc)...)

	for i := range pages {
		pages[i].Number = i + 1
		pages[i].Decorated = !pages[i].FullBleed
	}
	return pages
}

// IndexEntries lists the sections that will actually be present, in page order.
func IndexEntries(doc *Document) []IndexEntry {
	var entries []IndexEntry
	attached := IndexEntry{Label: "Allegati", Anchor: AnchorAttached}

	if len(doc.Attachments) > 0 && doc.AttachmentsPosition == AttachmentsBefore {
		entries = append(entries, attached)
	}
	entries = append(entries,
		IndexEntry{Label: "Premessa", Anchor: AnchorPremise},
		IndexEntry{Label: "Software", Anchor: AnchorSoftware},
	)
	if doc.TargetImage.Valid() {
		entries = append(entries, IndexEntry{Label: "Target audience", Anchor: AnchorTarget})
	}
	if len(doc.ProductImages) > 0 {
		entries = append(entries, IndexEntry{Label: "Descrizione Prodotti", Anchor: AnchorProducts})
	}
	entries = append(entries, IndexEntry{Label: "Offerta Economica", Anchor: AnchorOffer})
	if len(doc.Attachments) > 0 && doc.AttachmentsPosition != AttachmentsBefore {
		entries = append(entries, attached)
	}
	if len(doc.ContractPages) > 0 {
		entries = append(entries, IndexEntry{Label: "Condizioni contrattuali", Anchor: AnchorContract})
	}
	return entries
}

func indexPage(doc *Document) Page {
	p := Page{Section: SectionIndex}

	if doc.IndexIntro != "" {
		p.Blocks = append(p.Blocks, Paragraph{Text: doc.IndexIntro})
	}
	p.Blocks = append(p.Blocks, Heading{Text: "Indice"}, Index{Entries: IndexEntries(doc)})
	if doc.IndexOutro != "" {
		p.Blocks = append(p.Blocks, Paragraph{Text: doc.IndexOutro})
	}

	p.Blocks = append(p.Blocks, Heading{Text: "Premessa", Anchor: AnchorPremise})
	if doc.PremiseText != "" {
		p.Blocks = append(p.Blocks, Paragraph{Text: doc.PremiseText})
	}
	if g, ok := hardwareGallery(doc); ok {
		p.Blocks = append(p.Blocks, g)
	}
	return p
}

// hardwareGallery splits the content width evenly between the hardware
// images; the height is the configured one or the section maximum.
func hardwareGallery(doc *Document) (Gallery, bool) {
	var valid []ImageRef
	for _, src := range doc.HardwareImages {
		if src.Valid() {
			valid = append(valid, src)
		}
	}
	if len(valid) == 0 {
		return Gallery{}, false
	}

	n := float64(len(valid))
	width := (ContentWidthPt - ColumnGapPt*(n-1)) / n
	height := boxHeight(doc.HardwareImageHeight, HardwareImageMaxHeightPt)

	g := Gallery{}
	for _, src := range valid {
		g.Images = append(g.Images, Image{Src: src, WidthPt: width, HeightPt: height, Fit: FitContain})
	}
	return g, true
}

func softwarePage(doc *Document) Page {
	p := Page{Section: SectionSoftware}

	p.Blocks = append(p.Blocks, Heading{Text: "Software", Anchor: AnchorSoftware})
	if doc.SoftwareImage.Valid() {
		p.Blocks = append(p.Blocks, Image{
			Src:      doc.SoftwareImage,
			WidthPt:  ScaledWidth(doc.SoftwareImageScale),
			HeightPt: boxHeight(doc.SoftwareImageHeight, SoftwareImageMaxHeightPt),
			Fit:      FitContain,
		})
	}
	text := doc.SoftwareText
	if text == "" {
		text = DefaultSoftwareText
	}
	p.Blocks = append(p.Blocks, Paragraph{Text: text})

	if doc.TargetImage.Valid() {
		p.Blocks = append(p.Blocks,
			Heading{Text: "Target audience", Anchor: AnchorTarget},
			Image{
				Src:      doc.TargetImage,
				WidthPt:  ScaledWidth(doc.TargetImageScale),
				HeightPt: boxHeight(doc.TargetImageHeight, TargetImageMaxHeightPt),
				Fit:      FitContain,
			},
		)
	}
	return p
}

func productPages(doc *Document) []Page {
	var pages []Page
	fit := doc.ProductFit
	if fit != FitCover {
		fit = FitContain
	}
	maxHeight := boxHeight(doc.ProductMaxHeight, DefaultProductMaxHeight)

	for _, img := range doc.ProductImages {
		if !img.Src.Valid() {
			continue
		}
		p := Page{Section: SectionProducts}
		if len(pages) == 0 {
			p.Anchor = AnchorProducts
			p.Blocks = append(p.Blocks, Heading{Text: "Descrizione Prodotti", Anchor: AnchorProducts})
			if doc.ProductText != "" {
				p.Blocks = append(p.Blocks, Paragraph{Text: doc.ProductText})
			}
		}
		p.Blocks = append(p.Blocks, Image{
			Src:      img.Src,
			WidthPt:  ScaledWidth(doc.ProductScale),
			HeightPt: maxHeight,
			Fit:      fit,
		})
		if img.Caption != "" {
			p.Blocks = append(p.Blocks, Caption{Text: img.Caption})
		}
		pages = append(pages, p)
	}
	return pages
}

func offerPage(doc *Document) Page {
	p := Page{Section: SectionOffer, Anchor: AnchorOffer}

	p.Blocks = append(p.Blocks,
		Heading{Text: "Offerta Economica", Anchor: AnchorOffer},
		OfferTable{Rows: doc.Rows},
	)
	if doc.ShowTotals {
		p.Blocks = append(p.Blocks, TotalsBlock{Totals: doc.Totals})
	}
	if doc.Leasing != nil {
		p.Blocks = append(p.Blocks, LeasingBlock{Plan: *doc.Leasing})
	}
	if doc.ShowBank && doc.BankInfo != "" {
		p.Blocks = append(p.Blocks, BankBlock{Text: doc.BankInfo})
	}
	if doc.Notes != "" {
		p.Blocks = append(p.Blocks, Paragraph{Text: doc.Notes})
	}
	if len(doc.SupplyConditions) > 0 {
		p.Blocks = append(p.Blocks, ConditionsBlock{Title: "Condizioni di fornitura", Items: doc.SupplyConditions})
	}

	sig := SignatureBlock{
		Date:         FormatDate(doc.Date),
		CompanyName:  doc.Company.Name,
		CustomerName: doc.Customer.Name,
	}
	if doc.Signature.Valid() {
		sig.Image = &Image{
			Src:      doc.Signature,
			WidthPt:  clamp(SignatureWidthPt*CoerceScale(doc.SignatureScale)/100, SignatureWidthPt),
			HeightPt: SignatureHeightPt,
			Fit:      FitContain,
		}
	}
	p.Blocks = append(p.Blocks, sig)
	return p
}

func attachmentPages(doc *Document) []Page {
	var pages []Page
	for i, a := range doc.Attachments {
		p := attachmentPage(a)
		if i == 0 {
			p.Anchor = AnchorAttached
		}
		pages = append(pages, p)
	}
	return pages
}

func attachmentPage(a DocumentAttachment) Page {
	l := a.Layout
	hasImage := a.Image.Valid()

	if l.FullPageImage && hasImage {
		return Page{
			Section:   SectionAttachments,
			FullBleed: true,
			Blocks: []Block{Image{
				Src:      a.Image,
				WidthPt:  PageWidthPt,
				HeightPt: PageHeightPt,
				Fit:      FitCover,
			}},
		}
	}

	p := Page{Section: SectionAttachments}
	if l.ShowTitle && a.Title != "" {
		p.Blocks = append(p.Blocks, Heading{Text: a.Title})
	}

	var text []Block
	if a.Description != "" {
		text = append(text, Paragraph{Text: a.Description, FontSize: l.DescriptionFontSize, Color: l.DescriptionColor})
	}

	switch l.ImagePosition {
	case "left", "right":
		if !hasImage {
			p.Blocks = append(p.Blocks, text...)
			return p
		}
		img := []Block{Image{
			Src:      a.Image,
			WidthPt:  (ContentWidthPt - ColumnGapPt) / 2,
			HeightPt: boxHeight(l.ImageHeight, AttachmentAutoHeightPt),
			Fit:      FitCover,
		}}
		if l.ImagePosition == "left" {
			p.Blocks = append(p.Blocks, Split{Left: img, Right: text})
		} else {
			p.Blocks = append(p.Blocks, Split{Left: text, Right: img})
		}
	default:
		var img []Block
		if hasImage {
			img = append(img, Image{
				Src:      a.Image,
				WidthPt:  ContentWidthPt,
				HeightPt: boxHeight(l.ImageHeight, AttachmentAutoHeightPt),
				Fit:      FitCover,
			})
		}
		if l.ImagePosition == "bottom" {
			p.Blocks = append(p.Blocks, text...)
			p.Blocks = append(p.Blocks, img...)
		} else {
			p.Blocks = append(p.Blocks, img...)
			p.Blocks = append(p.Blocks, text...)
		}
	}
	return p
}

func contractPages(doc *Document) []Page {
	var pages []Page
	for _, text := range doc.ContractPages {
		p := Page{Section: SectionContract}
		if len(pages) == 0 {
			p.Anchor = AnchorContract
			p.Blocks = append(p.Blocks, Heading{Text: "Condizioni contrattuali", Anchor: AnchorContract})
		}
		p.Blocks = append(p.Blocks, Paragraph{Text: text})
		pages = append(pages, p)
	}
	return pages
}

// ScaledWidth converts a percentage of the content width to points, capped
// at the content width.
func ScaledWidth(scale float64) float64 {
	return clamp(ContentWidthPt*CoerceScale(scale)/100, ContentWidthPt)
}

// boxHeight returns h when set, else def, and never more than the page.
func boxHeight(h, def float64) float64 {
	h = CoerceHeight(h)
	if h == 0 {
		h = def
	}
	return clamp(h, PageHeightPt-2*PagePaddingPt)
}

func clamp(v, max float64) float64 {
	if v > max {
		return max
	}
	return v
}
