package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"preventivi/collections"
	"preventivi/testhelpers"
)

func TestHandleOperatorCreate(t *testing.T) {
	app, op := newTestOperator(t)
	d := newTestDeps(t, app)

	rec := httptest.NewRecorder()
	body := operatorRequest{Username: " Luigi ", Name: "Luigi Verdi", Password: "segreta123"}
	require.NoError(t, HandleOperatorCreate(d)(newAuthedEvent(app, op, jsonRequest(t, http.MethodPost, "/api/operators", body), rec)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created Operator
	decodeJSON(t, rec, &created)
	assert.Equal(t, "luigi", created.Username)

	stored, err := app.FindFirstRecordByData(collections.Operators, "username", "luigi")
	require.NoError(t, err)
	assert.True(t, stored.ValidatePassword("segreta123"))
}

func TestHandleOperatorCreate_Invalid(t *testing.T) {
	app, op := newTestOperator(t)
	d := newTestDeps(t, app)

	tests := []struct {
		name  string
		body  operatorRequest
		field string
	}{
		{"missing username", operatorRequest{Password: "segreta123"}, "username"},
		{"short password", operatorRequest{Username: "luigi", Password: "corta"}, "password"},
		{"duplicate", operatorRequest{Username: "mario", Password: "segreta123"}, "username"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			require.NoError(t, HandleOperatorCreate(d)(newAuthedEvent(app, op, jsonRequest(t, http.MethodPost, "/api/operators", tt.body), rec)))
			require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

			var body struct {
				Errors map[string]string `json:"errors"`
			}
			decodeJSON(t, rec, &body)
			assert.Contains(t, body.Errors, tt.field)
		})
	}
}

func TestHandleOperatorList(t *testing.T) {
	app, op := newTestOperator(t)
	testhelpers.CreateTestOperator(t, app, "anna", "password123")
	d := newTestDeps(t, app)

	rec := httptest.NewRecorder()
	require.NoError(t, HandleOperatorList(d)(newAuthedEvent(app, op, httptest.NewRequest(http.MethodGet, "/api/operators", nil), rec)))

	var list []Operator
	decodeJSON(t, rec, &list)
	require.Len(t, list, 2)
	assert.Equal(t, "anna", list[0].Username)
	assert.Equal(t, "mario", list[1].Username)
}

func TestHandleOperatorDelete(t *testing.T) {
	app, op := newTestOperator(t)
	other := testhelpers.CreateTestOperator(t, app, "anna", "password123")
	d := newTestDeps(t, app)

	req := httptest.NewRequest(http.MethodDelete, "/api/operators/"+op.Id, nil)
	req.SetPathValue("id", op.Id)
	rec := httptest.NewRecorder()
	require.NoError(t, HandleOperatorDelete(d)(newAuthedEvent(app, op, req, rec)))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "operators cannot delete themselves")

	req = httptest.NewRequest(http.MethodDelete, "/api/operators/"+other.Id, nil)
	req.SetPathValue("id", other.Id)
	rec = httptest.NewRecorder()
	require.NoError(t, HandleOperatorDelete(d)(newAuthedEvent(app, op, req, rec)))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, err := app.FindRecordById(collections.Operators, other.Id)
	assert.Error(t, err)
}
