package handlers

import (
	"bytes"
	"context"
	"net/http"
	"strings"

	"github.com/pocketbase/pocketbase/core"

	"preventivi/services"
)

// editorResponse is the editor's reference data plus the draft a new
// quote starts from.
type editorResponse struct {
	*services.EditorData
	Draft *services.Quote `json:"draft"`
}

// HandleEditor returns everything the quote editor needs to open.
// Route: GET /api/editor
func HandleEditor(d *Deps) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		sess, ok := SessionOf(e)
		if !ok {
			return unauthorized(e)
		}

		data, err := services.LoadEditorData(e.Request.Context(), d.Store, sess)
		if err != nil {
			return d.fail(e, "Impossibile caricare i dati dell'editor", err)
		}

		return e.JSON(http.StatusOK, editorResponse{
			EditorData: data,
			Draft:      services.BuildDraft(data.Settings, data.LastQuote, d.now()),
		})
	}
}

// HandleQuoteList lists the operator's quotes, newest first.
// Route: GET /api/quotes?search=&limit=&offset=
func HandleQuoteList(d *Deps) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		sess, ok := SessionOf(e)
		if !ok {
			return unauthorized(e)
		}

		quotes, err := d.Store.ListQuotes(e.Request.Context(), sess, quoteFilter(e))
		if err != nil {
			return d.fail(e, "Impossibile caricare i preventivi", err)
		}
		if quotes == nil {
			quotes = []services.Quote{}
		}
		return e.JSON(http.StatusOK, quotes)
	}
}

func quoteFilter(e *core.RequestEvent) services.QuoteFilter {
	return services.QuoteFilter{
		Search: strings.TrimSpace(e.Request.URL.Query().Get("search")),
		Limit:  queryInt(e, "limit", 0),
		Offset: queryInt(e, "offset", 0),
	}
}

// HandleQuoteExportExcel downloads the filtered quote list as XLSX.
// Route: GET /api/quotes/export
func HandleQuoteExportExcel(d *Deps) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		sess, ok := SessionOf(e)
		if !ok {
			return unauthorized(e)
		}

		quotes, err := d.Store.ListQuotes(e.Request.Context(), sess, quoteFilter(e))
		if err != nil {
			return d.fail(e, "Impossibile caricare i preventivi", err)
		}

		data, err := services.GenerateQuotesExcel("", quotes)
		if err != nil {
			return d.fail(e, "Impossibile generare il file Excel", err)
		}
		return download(e, contentTypeXLSX, "Preventivi.xlsx", data)
	}
}

// HandleQuoteGet returns one quote.
// Route: GET /api/quotes/{id}
func HandleQuoteGet(d *Deps) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		sess, ok := SessionOf(e)
		if !ok {
			return unauthorized(e)
		}

		q, err := d.Store.GetQuote(e.Request.Context(), sess, e.Request.PathValue("id"))
		if err != nil {
			return d.fail(e, "Impossibile caricare il preventivo", err)
		}
		return e.JSON(http.StatusOK, q)
	}
}

// HandleQuoteCreate saves a new quote. A blank number is taken from the
// settings counter.
// Route: POST /api/quotes
func HandleQuoteCreate(d *Deps) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		var q services.Quote
		if err := e.BindBody(&q); err != nil {
			return ErrorToast(e, http.StatusBadRequest, "Dati del preventivo non validi")
		}
		q.ID = ""
		return d.saveQuote(e, &q, http.StatusCreated)
	}
}

// HandleQuoteUpdate saves an existing quote. A blank number keeps the
// stored one.
// Route: PUT /api/quotes/{id}
func HandleQuoteUpdate(d *Deps) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		var q services.Quote
		if err := e.BindBody(&q); err != nil {
			return ErrorToast(e, http.StatusBadRequest, "Dati del preventivo non validi")
		}
		q.ID = e.Request.PathValue("id")
		if q.ID == "" {
			return ErrorToast(e, http.StatusBadRequest, "Preventivo mancante")
		}
		return d.saveQuote(e, &q, http.StatusOK)
	}
}

func (d *Deps) saveQuote(e *core.RequestEvent, q *services.Quote, status int) error {
	sess, ok := SessionOf(e)
	if !ok {
		return unauthorized(e)
	}

	ctx := e.Request.Context()
	if !q.IsNew() {
		ctx = d.Log.WithQuote(ctx, q.ID)
	}
	saved, err := services.SaveQuote(ctx, d.Store, sess, q)
	if err != nil {
		return d.fail(e, "Impossibile salvare il preventivo", err)
	}

	d.Log.Info(d.Log.WithFields(ctx, map[string]any{
		"quote_id": saved.ID,
		"number":   saved.Number,
	}), "quote saved")
	SetToast(e, "success", "Preventivo "+saved.Number+" salvato")
	return e.JSON(status, saved)
}

// HandleQuoteTrash moves a quote to the trash.
// Route: DELETE /api/quotes/{id}
func HandleQuoteTrash(d *Deps) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		sess, ok := SessionOf(e)
		if !ok {
			return unauthorized(e)
		}

		id := e.Request.PathValue("id")
		if err := d.Store.TrashQuote(e.Request.Context(), sess, id); err != nil {
			return d.fail(e, "Impossibile spostare il preventivo nel cestino", err)
		}

		d.Log.Info(d.Log.WithQuote(e.Request.Context(), id), "quote trashed")
		SetToast(e, "success", "Preventivo spostato nel cestino")
		return e.NoContent(http.StatusNoContent)
	}
}

// HandleQuoteRecalculate returns the submitted quote with every derived
// amount recomputed, leasing included.
// Route: POST /api/quotes/recalculate
func HandleQuoteRecalculate(d *Deps) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		if _, ok := SessionOf(e); !ok {
			return unauthorized(e)
		}

		var q services.Quote
		if err := e.BindBody(&q); err != nil {
			return ErrorToast(e, http.StatusBadRequest, "Dati del preventivo non validi")
		}
		q.Recalculate()
		return e.JSON(http.StatusOK, q)
	}
}

// Line editing actions accepted by HandleQuoteLines.
const (
	lineAdd      = "add"
	lineRemove   = "remove"
	lineArticle  = "article"
	lineCustomer = "customer"
	leasingOn    = "leasing"
	leasingOff   = "leasing-off"
	imageSlots   = "slots"
)

type lineRequest struct {
	Quote      services.Quote       `json:"quote"`
	Action     string               `json:"action"`
	Index      int                  `json:"index"`
	Article    *services.Article    `json:"article,omitempty"`
	CustomerID string               `json:"customerId,omitempty"`
	Leasing    services.LeasingType `json:"leasingType,omitempty"`
	Section    string               `json:"section,omitempty"`
	Count      int                  `json:"count,omitempty"`
}

// HandleQuoteLines applies one editing action to the submitted quote and
// returns the recalculated quote. Nothing is persisted.
// Route: POST /api/quotes/lines
func HandleQuoteLines(d *Deps) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		sess, ok := SessionOf(e)
		if !ok {
			return unauthorized(e)
		}

		var req lineRequest
		if err := e.BindBody(&req); err != nil {
			return ErrorToast(e, http.StatusBadRequest, "Richiesta non valida")
		}
		q := &req.Quote
		ctx := e.Request.Context()

		var err error
		switch req.Action {
		case lineAdd:
			s, lerr := d.Store.LoadSettings(ctx, sess)
			if lerr != nil {
				return d.fail(e, "Impossibile caricare le impostazioni", lerr)
			}
			q.NewLine(s.DefaultVAT)
		case lineRemove:
			err = q.RemoveLine(req.Index)
		case lineArticle:
			if req.Article == nil {
				return ErrorToast(e, http.StatusBadRequest, "Articolo mancante")
			}
			err = q.ApplyArticle(req.Index, *req.Article)
		case lineCustomer:
			c, cerr := d.Store.GetCustomer(ctx, sess, req.CustomerID)
			if cerr != nil {
				return d.fail(e, "Impossibile caricare il cliente", cerr)
			}
			q.Customer = c.Snapshot()
		case leasingOn:
			q.ActivateLeasing(req.Leasing, nil)
		case leasingOff:
			q.DeactivateLeasing()
		case imageSlots:
			err = q.SetImageSlots(req.Section, req.Count)
		default:
			return ErrorToast(e, http.StatusBadRequest, "Azione non riconosciuta")
		}
		if err != nil {
			return d.fail(e, "Modifica non riuscita", err)
		}

		q.Recalculate()
		return e.JSON(http.StatusOK, q)
	}
}

// compose builds the document for q. The last quote only feeds defaults
// while q is unsaved.
func (d *Deps) compose(ctx context.Context, sess services.Session, q *services.Quote) (*services.Document, []services.Page, error) {
	s, err := d.Store.LoadSettings(ctx, sess)
	if err != nil {
		return nil, nil, err
	}
	var last *services.Quote
	if q.IsNew() {
		if last, err = d.Store.LastQuote(ctx, sess); err != nil {
			return nil, nil, err
		}
	}
	doc := services.BuildDocument(services.DocumentInput{Quote: q, Settings: s, LastQuote: last})
	return doc, services.ComposePages(doc), nil
}

// HandleQuotePreview renders the submitted quote as the HTML preview.
// Route: POST /api/quotes/preview
func HandleQuotePreview(d *Deps) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		sess, ok := SessionOf(e)
		if !ok {
			return unauthorized(e)
		}

		var q services.Quote
		if err := e.BindBody(&q); err != nil {
			return ErrorToast(e, http.StatusBadRequest, "Dati del preventivo non validi")
		}

		ctx := e.Request.Context()
		doc, pages, err := d.compose(ctx, sess, &q)
		if err != nil {
			return d.fail(e, "Impossibile preparare l'anteprima", err)
		}

		var buf bytes.Buffer
		if err := services.PreviewComponent(doc, pages).Render(ctx, &buf); err != nil {
			return d.fail(e, "Impossibile preparare l'anteprima", err)
		}
		return e.HTML(http.StatusOK, buf.String())
	}
}

// HandleQuotePDF renders the submitted, possibly unsaved, quote as PDF.
// Route: POST /api/quotes/pdf
func HandleQuotePDF(d *Deps) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		sess, ok := SessionOf(e)
		if !ok {
			return unauthorized(e)
		}

		var q services.Quote
		if err := e.BindBody(&q); err != nil {
			return ErrorToast(e, http.StatusBadRequest, "Dati del preventivo non validi")
		}
		return d.renderPDF(e, sess, &q)
	}
}

// HandleSavedQuotePDF renders a stored quote as PDF.
// Route: GET /api/quotes/{id}/pdf
func HandleSavedQuotePDF(d *Deps) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		sess, ok := SessionOf(e)
		if !ok {
			return unauthorized(e)
		}

		q, err := d.Store.GetQuote(e.Request.Context(), sess, e.Request.PathValue("id"))
		if err != nil {
			return d.fail(e, "Impossibile caricare il preventivo", err)
		}
		return d.renderPDF(e, sess, q)
	}
}

func (d *Deps) renderPDF(e *core.RequestEvent, sess services.Session, q *services.Quote) error {
	ctx := e.Request.Context()
	doc, pages, err := d.compose(ctx, sess, q)
	if err != nil {
		return d.fail(e, "Impossibile generare il PDF", err)
	}

	data, err := d.Renderer.RenderPDF(ctx, doc, pages)
	if err != nil {
		return d.fail(e, "Impossibile generare il PDF", err)
	}
	return download(e, contentTypePDF, services.ExportFilename(doc.Number, "pdf"), data)
}
