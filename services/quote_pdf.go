package services

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/image"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/page"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/orientation"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"golang.org/x/sync/errgroup"
)

// PDF page geometry in millimetres. Layout points are mapped onto the
// maroto content area so that ContentWidthPt spans all 12 grid columns.
const (
	pdfMarginMM        = 10.0
	pdfFooterMM        = 8.0
	pdfContentWidthMM  = 210.0 - 2*pdfMarginMM
	pdfContentHeightMM = 297.0 - 2*pdfMarginMM - pdfFooterMM
	mmPerPt            = pdfContentWidthMM / ContentWidthPt
	ptToMM             = 25.4 / 72
	pdfBodyFontSize    = 9.0
	pdfImageLoadLimit  = 4
)

var (
	pdfHeadingColor = &props.Color{Red: 33, Green: 37, Blue: 41}
	pdfMutedColor   = &props.Color{Red: 120, Green: 120, Blue: 120}
	pdfHeaderBg     = &props.Color{Red: 245, Green: 243, Blue: 239}
	pdfStripeBg     = &props.Color{Red: 250, Green: 250, Blue: 250}
)

// QuoteRenderer turns composed pages into a PDF. Images are resolved
// through Images; an image that cannot be loaded is left out.
type QuoteRenderer struct {
	Images ImageSource
}

// NewQuoteRenderer returns a renderer reading images from src.
func NewQuoteRenderer(src ImageSource) *QuoteRenderer {
	return &QuoteRenderer{Images: src}
}

// RenderPDF renders pages for doc and returns the PDF bytes. The only
// errors are cancellation of ctx and failures of the PDF engine itself.
func (r *QuoteRenderer) RenderPDF(ctx context.Context, doc *Document, pages []Page) ([]byte, error) {
	if doc == nil {
		doc = &Document{}
	}

	images, err := r.loadImages(ctx, doc, pages)
	if err != nil {
		return nil, err
	}

	cfg := config.NewBuilder().
		WithOrientation(orientation.Vertical).
		WithPageSize(pagesize.A4).
		WithLeftMargin(pdfMarginMM).
		WithTopMargin(pdfMarginMM).
		WithRightMargin(pdfMarginMM).
		WithPageNumber(props.PageNumber{
			Pattern: "Pagina {current} di {total}",
			Place:   props.RightBottom,
			Size:    7,
			Color:   pdfMutedColor,
		}).
		Build()

	m := maroto.New(cfg)
	pr := &pageRenderer{doc: doc, images: images}

	for _, p := range pages {
		var rows []core.Row
		if p.Decorated {
			rows = append(rows, pr.headerRows()...)
		}
		for _, b := range p.Blocks {
			rows = append(rows, pr.blockRows(b, p.FullBleed)...)
		}
		if p.Decorated {
			rows = append(rows, pr.footerRows()...)
		}
		m.AddPages(page.New().Add(rows...))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate quote PDF: %w", err)
	}
	return out.GetBytes(), nil
}

// loadImages fetches every distinct image referenced by doc and pages.
// Load failures are swallowed; only cancellation aborts.
func (r *QuoteRenderer) loadImages(ctx context.Context, doc *Document, pages []Page) (map[ImageRef]*LoadedImage, error) {
	refs := map[ImageRef]struct{}{}
	add := func(ref ImageRef) {
		if ref.Valid() && !ref.PreviewOnly() {
			refs[ref] = struct{}{}
		}
	}
	add(doc.Logo)
	for _, p := range pages {
		for _, b := range p.Blocks {
			for _, img := range imagesOf(b) {
				add(img.Src)
			}
		}
	}

	out := make(map[ImageRef]*LoadedImage, len(refs))
	if r == nil || r.Images == nil || len(refs) == 0 {
		return out, ctx.Err()
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(pdfImageLoadLimit)
	for ref := range refs {
		g.Go(func() error {
			img, err := r.Images.Load(gctx, ref)
			if err != nil || img == nil {
				return nil
			}
			mu.Lock()
			out[ref] = img
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// imagesOf lists the images a block references, including nested ones.
func imagesOf(b Block) []Image {
	switch v := b.(type) {
	case Image:
		return []Image{v}
	case Gallery:
		return v.Images
	case Split:
		var out []Image
		for _, nested := range append(append([]Block{}, v.Left...), v.Right...) {
			out = append(out, imagesOf(nested)...)
		}
		return out
	case SignatureBlock:
		if v.Image != nil {
			return []Image{*v.Image}
		}
	}
	return nil
}

type pageRenderer struct {
	doc    *Document
	images map[ImageRef]*LoadedImage
}

func (pr *pageRenderer) headerRows() []core.Row {
	d := pr.doc
	nameStyle := props.Text{Size: 12, Style: fontstyle.Bold, Align: align.Left, Color: pdfHeadingColor}
	right := props.Text{Size: 8, Style: fontstyle.Bold, Align: align.Right}
	rightSmall := props.Text{Size: 7, Align: align.Right, Color: pdfMutedColor}

	title := "Preventivo"
	if d.Number != "" {
		title = "Preventivo n. " + d.Number
	}

	nameCols := 8
	var first []core.Col
	if logo, ok := pr.images[d.Logo]; ok {
		first = append(first, col.New(2).Add(image.NewFromBytes(logo.Data, logo.Ext, props.Rect{Percent: 100})))
		nameCols = 6
	}
	first = append(first,
		col.New(nameCols).Add(
			text.New(d.Company.Name, nameStyle),
			text.New(d.Company.Address, props.Text{Top: 6, Size: 7, Align: align.Left, Color: pdfMutedColor}),
		),
		col.New(4).Add(
			text.New(title, right),
			text.New(FormatDate(d.Date), props.Text{Top: 5, Size: 7, Align: align.Right, Color: pdfMutedColor}),
		),
	)

	rows := []core.Row{row.New(14).Add(first...)}
	if d.Customer.Name != "" {
		rows = append(rows, row.New(5).Add(
			col.New(8),
			col.New(4).Add(text.New("Cliente: "+d.Customer.Name, rightSmall)),
		))
	}
	rows = append(rows,
		row.New(2).Add(col.New(12).Add(line.New(props.Line{Color: pdfMutedColor, Thickness: 0.3}))),
		row.New(4),
	)
	return rows
}

func (pr *pageRenderer) footerRows() []core.Row {
	footer := companyLine(pr.doc.Company)
	if footer == "" {
		return nil
	}
	return []core.Row{
		row.New(4),
		row.New(2).Add(col.New(12).Add(line.New(props.Line{Color: pdfMutedColor, Thickness: 0.2}))),
		row.New(5).Add(col.New(12).Add(text.New(footer, props.Text{Size: 6.5, Align: align.Center, Color: pdfMutedColor}))),
	}
}

// companyLine is the one-line issuer identity printed in page footers.
func companyLine(c CompanyBlock) string {
	parts := []string{c.Name, c.Address}
	if c.VATNumber != "" {
		parts = append(parts, "P.IVA "+c.VATNumber)
	}
	parts = append(parts, c.Email, c.Phone)
	if c.PEC != "" {
		parts = append(parts, "PEC "+c.PEC)
	}
	if c.RecipientCode != "" {
		parts = append(parts, "SDI "+c.RecipientCode)
	}
	return joinParts(parts, " · ")
}

func (pr *pageRenderer) blockRows(b Block, fullBleed bool) []core.Row {
	switch v := b.(type) {
	case Heading:
		return []core.Row{
			row.New(10).Add(col.New(12).Add(text.New(v.Text, props.Text{
				Top:   2,
				Size:  13,
				Style: fontstyle.Bold,
				Align: align.Left,
				Color: pdfHeadingColor,
			}))),
		}
	case Paragraph:
		return paragraphRows(v, 12)
	case Caption:
		return []core.Row{
			row.New(5).Add(col.New(12).Add(text.New(v.Text, props.Text{Size: 7.5, Style: fontstyle.Italic, Align: align.Center, Color: pdfMutedColor}))),
		}
	case Image:
		if fullBleed {
			return pr.fullBleedRows(v)
		}
		return pr.imageRows(v)
	case Gallery:
		return pr.galleryRows(v)
	case Index:
		return indexRows(v)
	case Split:
		return pr.splitRows(v)
	case OfferTable:
		return offerTableRows(v.Rows)
	case TotalsBlock:
		return totalsRows(v.Totals)
	case LeasingBlock:
		return leasingRows(v.Plan)
	case BankBlock:
		rows := []core.Row{sectionLabelRow("COORDINATE BANCARIE")}
		return append(rows, paragraphRows(Paragraph{Text: v.Text, FontSize: 8}, 12)...)
	case ConditionsBlock:
		return conditionsRows(v)
	case SignatureBlock:
		return pr.signatureRows(v)
	}
	return nil
}

// imageRows places an image centred in a box of the image's size.
func (pr *pageRenderer) imageRows(img Image) []core.Row {
	comp, ok := pr.imageComponent(img)
	if !ok {
		return nil
	}
	height := math.Min(img.HeightPt*mmPerPt, pdfContentHeightMM-30)
	n := gridCols(img.WidthPt)
	lead := (12 - n) / 2

	var cols []core.Col
	if lead > 0 {
		cols = append(cols, col.New(lead))
	}
	cols = append(cols, col.New(n).Add(comp))
	if rest := 12 - lead - n; rest > 0 {
		cols = append(cols, col.New(rest))
	}
	return []core.Row{row.New(height).Add(cols...), row.New(3)}
}

// fullBleedRows fills the whole printable area with the image. maroto
// margins are document-wide, so the margins and the page-number strip stay.
func (pr *pageRenderer) fullBleedRows(img Image) []core.Row {
	loaded, ok := pr.images[img.Src]
	if !ok {
		return nil
	}
	if cropped, err := CoverCrop(loaded, pdfContentWidthMM, pdfContentHeightMM); err == nil {
		loaded = cropped
	}
	return []core.Row{
		row.New(pdfContentHeightMM).Add(col.New(12).Add(
			image.NewFromBytes(loaded.Data, loaded.Ext, props.Rect{Percent: 100, Center: true}),
		)),
	}
}

func (pr *pageRenderer) galleryRows(g Gallery) []core.Row {
	if len(g.Images) == 0 {
		return nil
	}
	per := 12 / len(g.Images)
	if per < 1 {
		per = 1
	}
	var (
		cols   []core.Col
		used   int
		height float64
	)
	for _, img := range g.Images {
		if used+per > 12 {
			break
		}
		height = math.Max(height, img.HeightPt*mmPerPt)
		c := col.New(per)
		if comp, ok := pr.imageComponent(img); ok {
			c.Add(comp)
		}
		cols = append(cols, c)
		used += per
	}
	if used < 12 {
		cols = append(cols, col.New(12-used))
	}
	return []core.Row{row.New(height).Add(cols...), row.New(3)}
}

func (pr *pageRenderer) splitRows(s Split) []core.Row {
	left, lh := pr.splitSide(s.Left)
	right, rh := pr.splitSide(s.Right)
	height := math.Max(lh, rh)
	if height == 0 {
		return nil
	}
	return []core.Row{row.New(height).Add(left, right)}
}

// splitSide renders one half of a split: its image if any, else its text.
func (pr *pageRenderer) splitSide(blocks []Block) (core.Col, float64) {
	c := col.New(6)
	for _, b := range blocks {
		if img, ok := b.(Image); ok {
			if comp, ok := pr.imageComponent(img); ok {
				c.Add(comp)
				return c, img.HeightPt * mmPerPt
			}
		}
	}
	var (
		paras []string
		style = props.Text{Size: pdfBodyFontSize, Align: align.Left, Right: 3, Left: 3}
	)
	for _, b := range blocks {
		if p, ok := b.(Paragraph); ok {
			paras = append(paras, p.Text)
			style = paragraphStyle(p)
			style.Left, style.Right = 3, 3
		}
	}
	if len(paras) == 0 {
		return c, 0
	}
	body := strings.Join(paras, " ")
	c.Add(text.New(body, style))
	return c, estimateTextHeight(body, style.Size, pdfContentWidthMM/2)
}

// imageComponent builds the maroto image for img, cropping to the box
// for FitCover.
func (pr *pageRenderer) imageComponent(img Image) (core.Component, bool) {
	loaded, ok := pr.images[img.Src]
	if !ok {
		return nil, false
	}
	if img.Fit == FitCover {
		if cropped, err := CoverCrop(loaded, img.WidthPt, img.HeightPt); err == nil {
			loaded = cropped
		}
	}
	return image.NewFromBytes(loaded.Data, loaded.Ext, props.Rect{Percent: 100, Center: true}), true
}

func indexRows(idx Index) []core.Row {
	style := props.Text{Size: 10, Align: align.Left}
	var rows []core.Row
	for i, e := range idx.Entries {
		rows = append(rows, row.New(6).Add(
			col.New(1).Add(text.New(strconv.Itoa(i+1)+".", props.Text{Size: 10, Align: align.Right, Right: 2})),
			col.New(11).Add(text.New(e.Label, style)),
		))
	}
	return append(rows, row.New(4))
}

func offerTableRows(items []OfferRow) []core.Row {
	headerStyle := props.Text{Size: 7.5, Style: fontstyle.Bold, Align: align.Center, Color: pdfHeadingColor}
	headerCell := &props.Cell{BackgroundColor: pdfHeaderBg}
	stripeCell := &props.Cell{BackgroundColor: pdfStripeBg}
	left := props.Text{Size: 8, Align: align.Left, Left: 1}
	right := props.Text{Size: 8, Align: align.Right, Right: 1}

	rows := []core.Row{
		row.New(7).Add(
			col.New(2).Add(text.New("Codice", headerStyle)).WithStyle(headerCell),
			col.New(5).Add(text.New("Descrizione", headerStyle)).WithStyle(headerCell),
			col.New(1).Add(text.New("Q.tà", headerStyle)).WithStyle(headerCell),
			col.New(2).Add(text.New("Prezzo unit.", headerStyle)).WithStyle(headerCell),
			col.New(2).Add(text.New("Totale", headerStyle)).WithStyle(headerCell),
		),
	}

	for i, it := range items {
		height := math.Max(6, estimateTextHeight(it.Description, 8, pdfContentWidthMM*5/12)+1)
		cols := []core.Col{
			col.New(2).Add(text.New(it.Code, left)),
			col.New(5).Add(text.New(it.Description, left)),
			col.New(1).Add(text.New(FormatQty(it.Quantity), right)),
			col.New(2).Add(text.New(FormatEUR(it.UnitPrice), right)),
			col.New(2).Add(text.New(FormatEUR(it.Total), right)),
		}
		if i%2 == 1 {
			for _, c := range cols {
				c.WithStyle(stripeCell)
			}
		}
		rows = append(rows, row.New(height).Add(cols...))
	}
	return append(rows, row.New(3))
}

func totalsRows(t QuoteTotals) []core.Row {
	label := props.Text{Size: 8, Align: align.Right, Color: pdfMutedColor}
	value := props.Text{Size: 8, Align: align.Right, Right: 1}
	bold := props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right, Right: 1}
	totalCell := &props.Cell{BackgroundColor: pdfHeaderBg}

	return []core.Row{
		row.New(6).Add(col.New(8), col.New(2).Add(text.New("Imponibile", label)), col.New(2).Add(text.New(FormatEUR(t.Subtotal), value))),
		row.New(6).Add(col.New(8), col.New(2).Add(text.New("IVA", label)), col.New(2).Add(text.New(FormatEUR(t.VATTotal), value))),
		row.New(7).Add(
			col.New(8),
			col.New(2).Add(text.New("TOTALE", props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right})).WithStyle(totalCell),
			col.New(2).Add(text.New(FormatEUR(t.Total), bold)).WithStyle(totalCell),
		),
		row.New(4),
	}
}

// labelValue is one printed "label: value" pair.
type labelValue struct{ Label, Value string }

// leasingPairs splits the plan into the asset column and the installment
// column; unset installment fields are omitted.
func leasingPairs(p LeasingPlan) (left, right []labelValue) {
	left = []labelValue{
		{"Valore bene", FormatEUR(p.AssetValue)},
		{"IVA " + FormatPercent(p.VATRate), FormatEUR(p.VATAmount)},
		{"Totale IVA inclusa", FormatEUR(p.TotalVATIncl)},
	}
	if p.DownPaymentValue > 0 || p.DownPaymentPercent > 0 {
		left = append(left, labelValue{"Anticipo", fmt.Sprintf("%s (%s)", FormatEUR(p.DownPaymentValue), FormatPercent(p.DownPaymentPercent))})
	}
	if p.NetFinancedCapital > 0 {
		left = append(left, labelValue{"Capitale finanziato", FormatEUR(p.NetFinancedCapital)})
	}

	if p.DurationMonths > 0 {
		right = append(right, labelValue{"Durata", fmt.Sprintf("%d mesi", p.DurationMonths)})
	}
	if p.Installments > 0 {
		right = append(right, labelValue{"Numero rate", strconv.Itoa(p.Installments)})
	}
	if p.InstallmentAmount > 0 {
		right = append(right, labelValue{"Importo rata", FormatEUR(p.InstallmentAmount)})
	}
	if p.Periodicity != "" {
		right = append(right, labelValue{"Periodicità", p.Periodicity.Label()})
	}
	if p.StartDate != "" {
		right = append(right, labelValue{"Decorrenza", p.StartDate})
	}
	if p.FirstInstallmentDate != "" {
		right = append(right, labelValue{"Prima rata", p.FirstInstallmentDate})
	}
	return left, right
}

func leasingRows(p LeasingPlan) []core.Row {
	label := props.Text{Size: 7.5, Align: align.Left, Color: pdfMutedColor}
	value := props.Text{Size: 8, Align: align.Right, Right: 2}
	leftPairs, rightPairs := leasingPairs(p)

	rows := []core.Row{sectionLabelRow(strings.ToUpper(p.Type.Label()))}
	n := max(len(leftPairs), len(rightPairs))
	for i := 0; i < n; i++ {
		cols := make([]core.Col, 0, 4)
		for _, side := range [][]labelValue{leftPairs, rightPairs} {
			if i < len(side) {
				cols = append(cols,
					col.New(3).Add(text.New(side[i].Label, label)),
					col.New(3).Add(text.New(side[i].Value, value)),
				)
			} else {
				cols = append(cols, col.New(6))
			}
		}
		rows = append(rows, row.New(5.5).Add(cols...))
	}
	return append(rows, row.New(4))
}

func conditionsRows(c ConditionsBlock) []core.Row {
	rows := []core.Row{sectionLabelRow(strings.ToUpper(c.Title))}
	for i, item := range c.Items {
		style := props.Text{Size: 8, Align: align.Left}
		rows = append(rows, row.New(math.Max(5, estimateTextHeight(item, 8, pdfContentWidthMM*11/12))).Add(
			col.New(1).Add(text.New(strconv.Itoa(i+1)+".", props.Text{Size: 8, Align: align.Right, Right: 2})),
			col.New(11).Add(text.New(item, style)),
		))
	}
	return append(rows, row.New(4))
}

func (pr *pageRenderer) signatureRows(s SignatureBlock) []core.Row {
	label := props.Text{Size: 8, Style: fontstyle.Bold, Align: align.Center}
	muted := props.Text{Size: 7, Align: align.Center, Color: pdfMutedColor}

	rows := []core.Row{
		row.New(6).Add(col.New(12).Add(text.New("Data: "+s.Date, props.Text{Size: 8, Align: align.Left}))),
		row.New(6).Add(
			col.New(6).Add(text.New("Per "+orDash(s.CompanyName), label)),
			col.New(6).Add(text.New("Per accettazione "+orDash(s.CustomerName), label)),
		),
	}

	height := SignatureHeightPt * mmPerPt
	issuer := col.New(6)
	if s.Image != nil {
		if comp, ok := pr.imageComponent(*s.Image); ok {
			issuer = col.New(6).Add(comp)
		}
	}
	rows = append(rows,
		row.New(height).Add(issuer, col.New(6)),
		row.New(2).Add(
			col.New(1), col.New(4).Add(line.New(props.Line{Thickness: 0.3})), col.New(1),
			col.New(1), col.New(4).Add(line.New(props.Line{Thickness: 0.3})), col.New(1),
		),
		row.New(5).Add(
			col.New(6).Add(text.New("Firma e timbro", muted)),
			col.New(6).Add(text.New("Firma e timbro", muted)),
		),
	)
	return rows
}

func sectionLabelRow(title string) core.Row {
	return row.New(7).Add(col.New(12).Add(text.New(title, props.Text{
		Top:   1,
		Size:  8,
		Style: fontstyle.Bold,
		Align: align.Left,
		Color: pdfMutedColor,
	})).WithStyle(&props.Cell{BackgroundColor: pdfHeaderBg}))
}

// paragraphRows renders one row per source line so explicit line breaks
// survive; each row is sized from an estimate of its wrapped height.
func paragraphRows(p Paragraph, cols int) []core.Row {
	style := paragraphStyle(p)
	width := pdfContentWidthMM * float64(cols) / 12

	var rows []core.Row
	for _, ln := range strings.Split(p.Text, "\n") {
		ln = strings.TrimRight(ln, " \t\r")
		if ln == "" {
			rows = append(rows, row.New(style.Size*ptToMM*0.8))
			continue
		}
		rows = append(rows, row.New(estimateTextHeight(ln, style.Size, width)).Add(
			col.New(cols).Add(text.New(ln, style)),
		))
	}
	return append(rows, row.New(2))
}

func paragraphStyle(p Paragraph) props.Text {
	size := p.FontSize
	if size <= 0 {
		size = pdfBodyFontSize
	}
	style := props.Text{Size: size, Align: align.Left}
	if c, ok := parseHexColor(p.Color); ok {
		style.Color = c
	}
	return style
}

// estimateTextHeight approximates the height in millimetres of s wrapped
// to widthMM at the given font size.
func estimateTextHeight(s string, sizePt, widthMM float64) float64 {
	if sizePt <= 0 {
		sizePt = pdfBodyFontSize
	}
	charMM := sizePt * 0.5 * ptToMM
	perLine := math.Max(1, math.Floor(widthMM/charMM))

	lines := 0.0
	for _, ln := range strings.Split(s, "\n") {
		lines += math.Max(1, math.Ceil(float64(utf8.RuneCountInString(ln))/perLine))
	}
	return lines*sizePt*ptToMM*1.45 + 1
}

// gridCols maps a width in layout points onto the 12-column grid.
func gridCols(widthPt float64) int {
	n := int(math.Round(12 * widthPt / ContentWidthPt))
	if n < 1 {
		return 1
	}
	if n > 12 {
		return 12
	}
	return n
}

// parseHexColor accepts #rgb and #rrggbb.
func parseHexColor(s string) (*props.Color, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return nil, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return nil, false
	}
	return &props.Color{Red: int(v >> 16 & 0xff), Green: int(v >> 8 & 0xff), Blue: int(v & 0xff)}, true
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "________"
	}
	return s
}

// joinParts joins the non-blank parts with sep.
func joinParts(parts []string, sep string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
