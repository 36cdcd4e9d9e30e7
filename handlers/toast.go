package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/pocketbase/pocketbase/core"

	"preventivi/services"
)

// SetToast sets the HX-Trigger response header so the client shows a toast.
// An HX-Trigger that is already set is kept and the toast merged into it.
func SetToast(e *core.RequestEvent, toastType string, message string) {
	trigger := map[string]any{}
	if existing := e.Response.Header().Get("HX-Trigger"); existing != "" {
		// a non-JSON trigger is a bare event name; keep it as a key
		if err := json.Unmarshal([]byte(existing), &trigger); err != nil {
			trigger = map[string]any{existing: true}
		}
	}
	trigger["showToast"] = map[string]string{
		"message": message,
		"type":    toastType,
	}

	data, err := json.Marshal(trigger)
	if err != nil {
		return
	}
	e.Response.Header().Set("HX-Trigger", string(data))
}

// ErrorToast answers with {"message": ...} and an error toast. HX-Reswap
// keeps htmx from swapping the error body into the page.
func ErrorToast(e *core.RequestEvent, statusCode int, message string) error {
	SetToast(e, "error", message)
	e.Response.Header().Set("HX-Reswap", "none")
	return e.JSON(statusCode, map[string]any{"message": message})
}

// ValidationFailed answers 422 with the per-field messages.
func ValidationFailed(e *core.RequestEvent, errs services.ValidationErrors) error {
	msg := "Controlla i campi evidenziati"
	SetToast(e, "error", msg)
	e.Response.Header().Set("HX-Reswap", "none")
	return e.JSON(http.StatusUnprocessableEntity, map[string]any{
		"message": msg,
		"errors":  errs,
	})
}
