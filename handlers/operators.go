package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/pocketbase/pocketbase/core"

	"preventivi/collections"
)

// minPasswordLength matches the seed operator's rule.
const minPasswordLength = 8

// Operator is the public view of an operator account.
type Operator struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

type operatorRequest struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

func operatorOf(rec *core.Record) Operator {
	return Operator{
		ID:       rec.Id,
		Username: rec.GetString("username"),
		Name:     rec.GetString("name"),
	}
}

// HandleOperatorList lists every operator by username.
// Route: GET /api/operators
func HandleOperatorList(d *Deps) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		if _, ok := SessionOf(e); !ok {
			return unauthorized(e)
		}

		records, err := e.App.FindAllRecords(collections.Operators)
		if err != nil {
			return d.fail(e, "Impossibile caricare gli operatori", err)
		}

		out := make([]Operator, 0, len(records))
		for _, rec := range records {
			out = append(out, operatorOf(rec))
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
		return e.JSON(http.StatusOK, out)
	}
}

// HandleOperatorCreate adds an operator account. Its settings are created
// with the defaults on first use.
// Route: POST /api/operators
func HandleOperatorCreate(d *Deps) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		if _, ok := SessionOf(e); !ok {
			return unauthorized(e)
		}

		var req operatorRequest
		if err := e.BindBody(&req); err != nil {
			return ErrorToast(e, http.StatusBadRequest, "Richiesta non valida")
		}
		req.Username = strings.ToLower(strings.TrimSpace(req.Username))
		req.Name = strings.TrimSpace(req.Name)

		errs := map[string]string{}
		if req.Username == "" {
			errs["username"] = "è obbligatorio"
		}
		if len(req.Password) < minPasswordLength {
			errs["password"] = "deve contenere almeno 8 caratteri"
		}
		if len(errs) > 0 {
			return ValidationFailed(e, errs)
		}

		if _, err := e.App.FindFirstRecordByData(collections.Operators, "username", req.Username); err == nil {
			return ValidationFailed(e, map[string]string{"username": "è già in uso"})
		} else if !errors.Is(err, sql.ErrNoRows) {
			return d.fail(e, "Impossibile creare l'operatore", err)
		}

		col, err := e.App.FindCollectionByNameOrId(collections.Operators)
		if err != nil {
			return d.fail(e, "Impossibile creare l'operatore", err)
		}
		rec := core.NewRecord(col)
		rec.Set("username", req.Username)
		rec.Set("name", req.Name)
		rec.SetEmail(req.Username + "@preventivi.local")
		rec.SetPassword(req.Password)
		if err := e.App.Save(rec); err != nil {
			return d.fail(e, "Impossibile creare l'operatore", err)
		}

		d.Log.Info(d.Log.WithField(e.Request.Context(), "username", req.Username), "operator created")
		SetToast(e, "success", "Operatore "+req.Username+" creato")
		return e.JSON(http.StatusCreated, operatorOf(rec))
	}
}

// HandleOperatorDelete removes an operator together with its quotes and
// settings. Operators cannot delete themselves.
// Route: DELETE /api/operators/{id}
func HandleOperatorDelete(d *Deps) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		sess, ok := SessionOf(e)
		if !ok {
			return unauthorized(e)
		}

		id := e.Request.PathValue("id")
		if id == sess.OperatorID {
			return ErrorToast(e, http.StatusBadRequest, "Non puoi eliminare il tuo account")
		}

		rec, err := e.App.FindRecordById(collections.Operators, id)
		if err != nil {
			return ErrorToast(e, http.StatusNotFound, "Operatore non trovato")
		}
		if err := e.App.Delete(rec); err != nil {
			return d.fail(e, "Impossibile eliminare l'operatore", err)
		}

		d.Log.Info(d.Log.WithField(e.Request.Context(), "deleted_operator", id), "operator deleted")
		SetToast(e, "success", "Operatore eliminato")
		return e.NoContent(http.StatusNoContent)
	}
}
