package services

import (
	"strconv"
	"strings"

	"github.com/a-h/templ"
)

var previewStyles = `<style>
.quote-preview{font-family:Helvetica,Arial,sans-serif;font-size:9pt;color:#212529}
.q-page{width:595pt;min-height:842pt;box-sizing:border-box;padding:40pt;margin:0 auto 16pt;background:#fff;box-shadow:0 1px 4px rgba(0,0,0,.15);position:relative}
.q-header{display:flex;gap:12pt;align-items:flex-start;border-bottom:.3mm solid #787878;padding-bottom:6pt;margin-bottom:10pt}
.q-header .q-company{flex:1}
.q-header .q-title{text-align:right;font-weight:bold}
.q-muted{color:#787878;font-size:7pt}
.q-footer{border-top:.2mm solid #787878;margin-top:10pt;padding-top:4pt;text-align:center}
.q-counter{position:absolute;right:40pt;bottom:16pt}
.q-section{background:#f5f3ef;color:#787878;font-weight:bold;font-size:8pt;padding:3pt 4pt;margin:8pt 0 4pt}
.q-split{display:grid;grid-template-columns:1fr 1fr;gap:15pt}
.q-gallery{display:flex;gap:15pt;justify-content:center}
.q-offer{width:100%;border-collapse:collapse}
.q-offer th{background:#f5f3ef;text-align:left;font-size:8pt}
.q-offer td.num,.q-offer th.num{text-align:right}
.q-offer tr:nth-child(even) td{background:#fafafa}
.q-totals{margin-left:auto;width:45%}
.q-totals td:last-child{text-align:right}
.q-signature{display:grid;grid-template-columns:1fr 1fr;gap:15pt;margin-top:12pt}
.q-signature .q-line{border-bottom:.3mm solid #212529;height:60pt}
.q-caption{text-align:center;font-style:italic}
` + fullBleedStyles + `
</style>`

// fullBleedStyles places full-page images in the same printable area the
// PDF uses: the page margins and the page-number strip stay visible.
var fullBleedStyles = `.q-page.q-full-bleed{padding:` + fullBleedPadding + `}
.q-page.q-full-bleed>img{width:100%;height:` + fullBleedHeight + `;object-fit:cover;display:block}
.q-page.q-full-bleed>.q-counter{right:` + fullBleedMargin + `}`

var (
	fullBleedMargin  = pt(pdfMarginMM/ptToMM) + "pt"
	fullBleedPadding = fullBleedMargin + " " + fullBleedMargin + " " + pt((pdfMarginMM+pdfFooterMM)/ptToMM) + "pt"
	fullBleedHeight  = pt(pdfContentHeightMM/ptToMM) + "pt"
)

// PreviewComponent renders the composed pages as HTML for the on-screen
// preview. Unlike the PDF it keeps blob: references, which the editing
// browser can still resolve, and links the index to in-page anchors.
func PreviewComponent(doc *Document, pages []Page) templ.Component {
	if doc == nil {
		doc = &Document{}
	}
	return previewDocument(doc, pages, previewAnchors{})
}

// previewAnchors hands out each anchor id once per document.
type previewAnchors map[string]bool

func (a previewAnchors) claim(anchor string) bool {
	if anchor == "" || a[anchor] {
		return false
	}
	a[anchor] = true
	return true
}

func previewTitle(d *Document) string {
	if d.Number == "" {
		return "Preventivo"
	}
	return "Preventivo n. " + d.Number
}

func paragraphStyle(p Paragraph) templ.SafeCSS {
	var style []string
	if p.FontSize > 0 {
		style = append(style, "font-size:"+pt(p.FontSize)+"pt")
	}
	if _, ok := parseHexColor(p.Color); ok {
		style = append(style, "color:"+p.Color)
	}
	return templ.SafeCSS(strings.Join(style, ";"))
}

func imageStyle(img Image) templ.SafeCSS {
	fit := FitContain
	if img.Fit == FitCover {
		fit = FitCover
	}
	return templ.SafeCSS("display:block;margin:0 auto;width:" + pt(img.WidthPt) + "pt;height:" +
		pt(img.HeightPt) + "pt;object-fit:" + fit)
}

func leasingColumns(p LeasingPlan) [][]labelValue {
	left, right := leasingPairs(p)
	return [][]labelValue{left, right}
}

func textLines(s string) []string {
	return strings.Split(strings.TrimRight(s, "\n"), "\n")
}

func pt(v float64) string {
	return strconv.FormatFloat(Round2(v), 'f', -1, 64)
}
