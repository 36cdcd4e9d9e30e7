package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/pocketbase/pocketbase/core"

	"preventivi/logging"
	"preventivi/services"
)

// Deps carries the collaborators every handler needs. It is built once in
// main and shared by all routes.
type Deps struct {
	Store    services.Store
	Renderer *services.QuoteRenderer
	Ingester *services.ImageIngester
	Log      *logging.Logger
	Now      func() time.Time
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// fail maps a service error onto the HTTP response. Unexpected errors are
// logged and answered 500 with msg, which is shown to the operator as is.
func (d *Deps) fail(e *core.RequestEvent, msg string, err error) error {
	if ve, ok := services.AsValidationErrors(err); ok {
		return ValidationFailed(e, ve)
	}
	switch {
	case errors.Is(err, services.ErrNotFound):
		return ErrorToast(e, http.StatusNotFound, "Elemento non trovato")
	case errors.Is(err, services.ErrLineOutOfRange):
		return ErrorToast(e, http.StatusBadRequest, "Riga non valida")
	case errors.Is(err, services.ErrUnknownSection):
		return ErrorToast(e, http.StatusBadRequest, "Sezione immagini non valida")
	case errors.Is(err, context.Canceled):
		// the client went away: no log, no toast
		e.Response.Header().Set("HX-Reswap", "none")
		return e.NoContent(http.StatusServiceUnavailable)
	}
	d.Log.Error(e.Request.Context(), msg, err)
	return ErrorToast(e, http.StatusInternalServerError, msg)
}

func unauthorized(e *core.RequestEvent) error {
	return ErrorToast(e, http.StatusUnauthorized, msgUnauthorized)
}

func queryInt(e *core.RequestEvent, key string, def int) int {
	v, err := strconv.Atoi(e.Request.URL.Query().Get(key))
	if err != nil || v < 0 {
		return def
	}
	return v
}

// download answers with an attachment of the given content type.
func download(e *core.RequestEvent, contentType, filename string, data []byte) error {
	e.Response.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	return e.Blob(http.StatusOK, contentType, data)
}

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypePDF  = "application/pdf"
)
