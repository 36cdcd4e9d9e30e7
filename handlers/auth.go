package handlers

import (
	"net/http"
	"strings"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"preventivi/collections"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleLogin checks username and password and answers with a PocketBase
// auth token and the operator record.
// Route: POST /api/login
func HandleLogin(d *Deps) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		var req loginRequest
		if err := e.BindBody(&req); err != nil {
			return ErrorToast(e, http.StatusBadRequest, "Richiesta non valida")
		}
		req.Username = strings.TrimSpace(req.Username)
		if req.Username == "" || req.Password == "" {
			return ErrorToast(e, http.StatusBadRequest, "Inserisci nome utente e password")
		}

		rec, err := e.App.FindFirstRecordByData(collections.Operators, "username", req.Username)
		if err != nil || !rec.ValidatePassword(req.Password) {
			d.Log.Warn(d.Log.WithField(e.Request.Context(), "username", req.Username), "login failed")
			return ErrorToast(e, http.StatusUnauthorized, "Credenziali non valide")
		}

		d.Log.Info(d.Log.WithOperator(e.Request.Context(), rec.Id), "login")
		return apis.RecordAuthResponse(e, rec, core.MFAMethodPassword, nil)
	}
}
