package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase/core"

	"preventivi/services"
)

// HandleDashboard returns the operator's quote and catalog summary.
// Route: GET /api/dashboard
func HandleDashboard(d *Deps) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		sess, ok := SessionOf(e)
		if !ok {
			return unauthorized(e)
		}

		dash, err := services.LoadDashboard(e.Request.Context(), d.Store, sess)
		if err != nil {
			return d.fail(e, "Impossibile caricare la dashboard", err)
		}
		return e.JSON(http.StatusOK, dash)
	}
}
