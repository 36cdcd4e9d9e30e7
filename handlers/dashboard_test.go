package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"preventivi/services"
	"preventivi/testhelpers"
)

func TestHandleDashboard(t *testing.T) {
	app, op := newTestOperator(t)
	d := newTestDeps(t, app)
	sess := services.Session{OperatorID: op.Id}

	_, err := d.Store.SaveArticles(t.Context(), sess, []services.Article{
		{Code: "TAB", Description: "Tablet", Unit: "pz", UnitPrice: 100, VATRate: 22},
	})
	require.NoError(t, err)

	var lastID string
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		e := newAuthedEvent(app, op, jsonRequest(t, http.MethodPost, "/api/quotes", testQuote()), rec)
		require.NoError(t, HandleQuoteCreate(d)(e))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var saved services.Quote
		decodeJSON(t, rec, &saved)
		lastID = saved.ID
	}

	rec := httptest.NewRecorder()
	e := newAuthedEvent(app, op, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil), rec)
	require.NoError(t, HandleDashboard(d)(e))
	require.Equal(t, http.StatusOK, rec.Code)

	var dash services.Dashboard
	decodeJSON(t, rec, &dash)
	assert.Equal(t, 2, dash.QuoteCount)
	assert.Equal(t, 1, dash.ArticleCount)
	assert.Equal(t, 817.4, dash.TotalAmount)
	require.Len(t, dash.Recent, 2)
	assert.Contains(t, []string{dash.Recent[0].ID, dash.Recent[1].ID}, lastID)
}

func TestHandleDashboard_Anonymous(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	d := newTestDeps(t, app)

	rec := httptest.NewRecorder()
	e := newTestRequestEvent(app, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil), rec)
	require.NoError(t, HandleDashboard(d)(e))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
