package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase/core"

	"preventivi/services"
)

// HandleTrashList lists the operator's trashed quotes.
// Route: GET /api/trash
func HandleTrashList(d *Deps) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		sess, ok := SessionOf(e)
		if !ok {
			return unauthorized(e)
		}

		quotes, err := d.Store.ListTrash(e.Request.Context(), sess)
		if err != nil {
			return d.fail(e, "Impossibile caricare il cestino", err)
		}
		if quotes == nil {
			quotes = []services.Quote{}
		}
		return e.JSON(http.StatusOK, quotes)
	}
}

// HandleTrashRestore puts a trashed quote back in the list.
// Route: POST /api/trash/{id}/restore
func HandleTrashRestore(d *Deps) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		sess, ok := SessionOf(e)
		if !ok {
			return unauthorized(e)
		}

		id := e.Request.PathValue("id")
		if err := d.Store.RestoreQuote(e.Request.Context(), sess, id); err != nil {
			return d.fail(e, "Impossibile ripristinare il preventivo", err)
		}

		SetToast(e, "success", "Preventivo ripristinato")
		return e.NoContent(http.StatusNoContent)
	}
}

// HandleTrashDelete removes a quote permanently.
// Route: DELETE /api/trash/{id}
func HandleTrashDelete(d *Deps) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		sess, ok := SessionOf(e)
		if !ok {
			return unauthorized(e)
		}

		id := e.Request.PathValue("id")
		if err := d.Store.DeleteQuote(e.Request.Context(), sess, id); err != nil {
			return d.fail(e, "Impossibile eliminare il preventivo", err)
		}

		d.Log.Info(d.Log.WithQuote(e.Request.Context(), id), "quote deleted permanently")
		SetToast(e, "success", "Preventivo eliminato definitivamente")
		return e.NoContent(http.StatusNoContent)
	}
}
