package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/pocketbase/pocketbase/core"

	"preventivi/services"
)

// maxImportBytes caps catalog uploads.
const maxImportBytes = 10 << 20

// HandleArticleList lists the article catalog.
// Route: GET /api/articles?search=
func HandleArticleList(d *Deps) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		sess, ok := SessionOf(e)
		if !ok {
			return unauthorized(e)
		}

		search := strings.TrimSpace(e.Request.URL.Query().Get("search"))
		articles, err := d.Store.ListArticles(e.Request.Context(), sess, search)
		if err != nil {
			return d.fail(e, "Impossibile caricare gli articoli", err)
		}
		if articles == nil {
			articles = []services.Article{}
		}
		return e.JSON(http.StatusOK, articles)
	}
}

// HandleArticleTemplate downloads the empty import spreadsheet.
// Route: GET /api/articles/template
func HandleArticleTemplate(d *Deps) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		if _, ok := SessionOf(e); !ok {
			return unauthorized(e)
		}

		data, err := services.GenerateArticleTemplate()
		if err != nil {
			return d.fail(e, "Impossibile generare il modello", err)
		}
		return download(e, contentTypeXLSX, "Articoli_modello.xlsx", data)
	}
}

// HandleArticleImport imports articles from an uploaded CSV or XLSX file.
// A file with any invalid row is rejected as a whole and answered 422 with
// the row errors, or with the XLSX error report when ?report=xlsx.
// Route: POST /api/articles/import
func HandleArticleImport(d *Deps) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		sess, ok := SessionOf(e)
		if !ok {
			return unauthorized(e)
		}

		if err := e.Request.ParseMultipartForm(maxImportBytes); err != nil {
			return ErrorToast(e, http.StatusBadRequest, "File troppo grande o modulo non valido")
		}
		file, header, err := e.Request.FormFile("file")
		if err != nil {
			return ErrorToast(e, http.StatusBadRequest, "Seleziona un file da importare")
		}
		defer file.Close()

		ctx := e.Request.Context()
		settings, err := d.Store.LoadSettings(ctx, sess)
		if err != nil {
			return d.fail(e, "Impossibile caricare le impostazioni", err)
		}

		result, err := services.ImportArticles(ctx, d.Store, sess, file, header.Filename, settings.DefaultVAT)
		if errors.Is(err, services.ErrInvalidImport) {
			return ErrorToast(e, http.StatusBadRequest, importMessage(err))
		}
		if err != nil {
			return d.fail(e, "Impossibile salvare gli articoli", err)
		}

		if result.ErrorRows > 0 {
			if e.Request.URL.Query().Get("report") == "xlsx" {
				data, err := services.GenerateErrorReport(result.Errors)
				if err != nil {
					return d.fail(e, "Impossibile generare il report", err)
				}
				return download(e, contentTypeXLSX, "Articoli_errori.xlsx", data)
			}
			SetToast(e, "error", "Il file contiene righe non valide")
			return e.JSON(http.StatusUnprocessableEntity, result)
		}

		d.Log.Info(d.Log.WithFields(ctx, map[string]any{
			"file":  header.Filename,
			"saved": result.Saved,
		}), "articles imported")
		SetToast(e, "success", "Articoli importati")
		return e.JSON(http.StatusOK, result)
	}
}

func importMessage(err error) string {
	if errors.Is(err, services.ErrUnsupportedImport) {
		return "Formato non supportato: usa un file .csv o .xlsx"
	}
	return "File non valido: " + strings.TrimPrefix(err.Error(), services.ErrInvalidImport.Error()+": ")
}

// HandleCustomerList lists the customer catalog.
// Route: GET /api/customers?search=
func HandleCustomerList(d *Deps) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		sess, ok := SessionOf(e)
		if !ok {
			return unauthorized(e)
		}

		search := strings.TrimSpace(e.Request.URL.Query().Get("search"))
		customers, err := d.Store.ListCustomers(e.Request.Context(), sess, search)
		if err != nil {
			return d.fail(e, "Impossibile caricare i clienti", err)
		}
		if customers == nil {
			customers = []services.Customer{}
		}
		return e.JSON(http.StatusOK, customers)
	}
}

// HandleCustomerGet returns one customer.
// Route: GET /api/customers/{id}
func HandleCustomerGet(d *Deps) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		sess, ok := SessionOf(e)
		if !ok {
			return unauthorized(e)
		}

		c, err := d.Store.GetCustomer(e.Request.Context(), sess, e.Request.PathValue("id"))
		if err != nil {
			return d.fail(e, "Impossibile caricare il cliente", err)
		}
		return e.JSON(http.StatusOK, c)
	}
}

// HandleCustomerSave creates a customer, or updates the one named by the
// {id} path value.
// Route: POST /api/customers, PUT /api/customers/{id}
func HandleCustomerSave(d *Deps) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		sess, ok := SessionOf(e)
		if !ok {
			return unauthorized(e)
		}

		var c services.Customer
		if err := e.BindBody(&c); err != nil {
			return ErrorToast(e, http.StatusBadRequest, "Dati del cliente non validi")
		}
		c.ID = e.Request.PathValue("id")
		c.Name = strings.TrimSpace(c.Name)

		status := http.StatusOK
		if c.ID == "" {
			status = http.StatusCreated
		}

		saved, err := d.Store.SaveCustomer(e.Request.Context(), sess, &c)
		if err != nil {
			return d.fail(e, "Impossibile salvare il cliente", err)
		}
		SetToast(e, "success", "Cliente "+saved.Name+" salvato")
		return e.JSON(status, saved)
	}
}
