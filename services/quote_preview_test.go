package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func renderPreview(t *testing.T, doc *Document) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, PreviewComponent(doc, ComposePages(doc)).Render(context.Background(), &buf))
	return buf.String()
}

func TestPreviewComponent_Complete(t *testing.T) {
	doc := pdfTestDocument()
	pages := ComposePages(doc)
	html := renderPreview(t, doc)

	assert.Contains(t, html, `Preventivo n. 2024-7`)
	assert.Contains(t, html, `Cliente: Rossi SpA`)
	assert.Contains(t, html, fmt.Sprintf("Pagina 1 di %d", len(pages)))
	assert.Contains(t, html, fmt.Sprintf("Pagina %d di %d", len(pages), len(pages)))
	assert.Contains(t, html, `href="#`+AnchorOffer+`"`)
	assert.Equal(t, 1, strings.Count(html, `id="`+AnchorOffer+`"`), "anchors must be unique")
	assert.Contains(t, html, `€ 299,55`)
	assert.Contains(t, html, `Premessa<br>con due righe`)
	assert.Contains(t, html, `q-full-bleed`)
	assert.Contains(t, html, `src="/img/full.png"`)
	assert.Equal(t, len(pages), strings.Count(html, `<section `))
}

func TestPreviewComponent_KeepsBlobImages(t *testing.T) {
	doc := pdfTestDocument()
	doc.Logo = ImageRef("blob:http://localhost/1234")
	html := renderPreview(t, doc)

	assert.Contains(t, html, `src="blob:http://localhost/1234"`)
}

func TestPreviewComponent_EscapesText(t *testing.T) {
	doc := pdfTestDocument()
	doc.Customer.Name = `<script>alert("x")</script>`
	doc.Rows[0].Description = "Tablet <b>pro</b>"
	html := renderPreview(t, doc)

	assert.NotContains(t, html, "<script>")
	assert.NotContains(t, html, "<b>pro</b>")
	assert.Contains(t, html, "&lt;script&gt;")
}

func TestPreviewComponent_Cancelled(t *testing.T) {
	doc := pdfTestDocument()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	err := PreviewComponent(doc, ComposePages(doc)).Render(ctx, &buf)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPreviewComponent_FullBleedKeepsPrintableArea(t *testing.T) {
	html := renderPreview(t, pdfTestDocument())

	assert.Contains(t, html, `.q-page.q-full-bleed{padding:28.35pt 28.35pt 51.02pt}`)
	assert.Contains(t, html, `height:762.52pt;object-fit:cover`)
	assert.Contains(t, html, `<section class="q-page q-full-bleed"`)
}

func TestPreviewComponent_Blocks(t *testing.T) {
	pages := []Page{{
		Number: 1,
		Anchor: "intro",
		Blocks: []Block{
			Heading{Text: "Premessa", Anchor: "intro"},
			Paragraph{Text: "uno\ndue\n", FontSize: 12, Color: "#333333"},
			Paragraph{Text: "semplice", Color: "red"},
			Image{Src: "/img/a.png", WidthPt: 100, HeightPt: 50.5, Fit: FitCover},
			Image{Src: "javascript:alert(1)", WidthPt: 100, HeightPt: 50},
		},
	}}

	var buf bytes.Buffer
	require.NoError(t, PreviewComponent(nil, pages).Render(context.Background(), &buf))
	html := buf.String()

	assert.Equal(t, 1, strings.Count(html, `id="intro"`), "the page claims the anchor before the heading")
	assert.Contains(t, html, `<p style="font-size:12pt;color:#333333;">uno<br>due</p>`)
	assert.Contains(t, html, `<p>semplice</p>`)
	assert.Contains(t, html, `src="/img/a.png" alt="" style="display:block;margin:0 auto;width:100pt;height:50.5pt;object-fit:cover;"`)
	assert.NotContains(t, html, "javascript:")
	assert.Contains(t, html, "Pagina 1 di 1")
}
