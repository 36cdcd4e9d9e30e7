package handlers

import (
	"errors"
	"net/http"

	"github.com/pocketbase/pocketbase/core"

	"preventivi/services"
)

// HandleImageUpload turns an uploaded image into an inline data URL that
// can be stored in a quote or in the settings. Large images are scaled
// down first.
// Route: POST /api/images
func HandleImageUpload(d *Deps) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		if _, ok := SessionOf(e); !ok {
			return unauthorized(e)
		}

		// multipart overhead on top of the image itself
		if err := e.Request.ParseMultipartForm(d.Ingester.MaxBytes + 1<<20); err != nil {
			return ErrorToast(e, http.StatusBadRequest, "File troppo grande o modulo non valido")
		}
		file, _, err := e.Request.FormFile("file")
		if err != nil {
			return ErrorToast(e, http.StatusBadRequest, "Seleziona un'immagine")
		}
		defer file.Close()

		ref, err := d.Ingester.Ingest(file)
		switch {
		case errors.Is(err, services.ErrImageTooLarge):
			return ErrorToast(e, http.StatusRequestEntityTooLarge, "Immagine troppo grande")
		case errors.Is(err, services.ErrUnsupportedImage):
			return ErrorToast(e, http.StatusUnsupportedMediaType, "Formato immagine non supportato")
		case err != nil:
			return d.fail(e, "Impossibile caricare l'immagine", err)
		}

		return e.JSON(http.StatusOK, map[string]string{"src": string(ref)})
	}
}
