package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase/core"

	"preventivi/services"
)

// HandleSettingsGet returns the operator's settings, creating the defaults
// on first access.
// Route: GET /api/operator/settings
func HandleSettingsGet(d *Deps) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		sess, ok := SessionOf(e)
		if !ok {
			return unauthorized(e)
		}

		s, err := d.Store.LoadSettings(e.Request.Context(), sess)
		if err != nil {
			return d.fail(e, "Impossibile caricare le impostazioni", err)
		}
		return e.JSON(http.StatusOK, s)
	}
}

// HandleSettingsSave replaces the operator's settings.
// Route: PUT /api/operator/settings
func HandleSettingsSave(d *Deps) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		sess, ok := SessionOf(e)
		if !ok {
			return unauthorized(e)
		}

		var s services.Settings
		if err := e.BindBody(&s); err != nil {
			return ErrorToast(e, http.StatusBadRequest, "Impostazioni non valide")
		}
		s.OperatorID = sess.OperatorID

		saved, err := d.Store.SaveSettings(e.Request.Context(), sess, &s)
		if err != nil {
			return d.fail(e, "Impossibile salvare le impostazioni", err)
		}

		d.Log.Info(e.Request.Context(), "settings saved")
		SetToast(e, "success", "Impostazioni salvate")
		return e.JSON(http.StatusOK, saved)
	}
}
