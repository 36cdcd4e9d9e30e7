package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"preventivi/services"
	"preventivi/testhelpers"
)

func TestHandleQuoteCreate_AssignsNumberAndAdvancesCounter(t *testing.T) {
	app, op := newTestOperator(t)
	d := newTestDeps(t, app)

	var numbers []string
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		e := newAuthedEvent(app, op, jsonRequest(t, http.MethodPost, "/api/quotes", testQuote()), rec)
		require.NoError(t, HandleQuoteCreate(d)(e))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var saved services.Quote
		decodeJSON(t, rec, &saved)
		assert.NotEmpty(t, saved.ID)
		assert.Equal(t, 335.0, saved.Subtotal)
		assert.Equal(t, 408.7, saved.Total)
		numbers = append(numbers, saved.Number)
	}

	assert.True(t, strings.HasSuffix(numbers[0], "-1"), "first number %q", numbers[0])
	assert.True(t, strings.HasSuffix(numbers[1], "-2"), "second number %q", numbers[1])

	rec := httptest.NewRecorder()
	e := newAuthedEvent(app, op, httptest.NewRequest(http.MethodGet, "/api/operator/settings", nil), rec)
	require.NoError(t, HandleSettingsGet(d)(e))
	var s services.Settings
	decodeJSON(t, rec, &s)
	assert.Equal(t, 3, s.NextQuoteNumber)
}

func TestHandleQuoteCreate_ExplicitNumber(t *testing.T) {
	app, op := newTestOperator(t)
	d := newTestDeps(t, app)

	q := testQuote()
	q.Number = "  SPECIALE-9 "
	rec := httptest.NewRecorder()
	e := newAuthedEvent(app, op, jsonRequest(t, http.MethodPost, "/api/quotes", q), rec)
	require.NoError(t, HandleQuoteCreate(d)(e))
	require.Equal(t, http.StatusCreated, rec.Code)

	var saved services.Quote
	decodeJSON(t, rec, &saved)
	assert.Equal(t, "SPECIALE-9", saved.Number)
}

func TestHandleQuoteCreate_ValidationError(t *testing.T) {
	app, op := newTestOperator(t)
	d := newTestDeps(t, app)

	q := testQuote()
	q.Customer.Name = ""
	rec := httptest.NewRecorder()
	e := newAuthedEvent(app, op, jsonRequest(t, http.MethodPost, "/api/quotes", q), rec)
	require.NoError(t, HandleQuoteCreate(d)(e))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body struct {
		Errors map[string]string `json:"errors"`
	}
	decodeJSON(t, rec, &body)
	assert.Contains(t, body.Errors, "customer.name")

	quotes, err := d.Store.ListQuotes(t.Context(), services.Session{OperatorID: op.Id}, services.QuoteFilter{})
	require.NoError(t, err)
	assert.Empty(t, quotes)
}

func TestHandleQuoteCreate_Unauthorized(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	d := newTestDeps(t, app)

	rec := httptest.NewRecorder()
	e := newTestRequestEvent(app, jsonRequest(t, http.MethodPost, "/api/quotes", testQuote()), rec)
	require.NoError(t, HandleQuoteCreate(d)(e))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleQuoteUpdate_KeepsNumberWhenBlank(t *testing.T) {
	app, op := newTestOperator(t)
	d := newTestDeps(t, app)
	sess := services.Session{OperatorID: op.Id}

	created, err := services.SaveQuote(t.Context(), d.Store, sess, ptr(testQuote()))
	require.NoError(t, err)

	q := testQuote()
	q.Number = ""
	q.Notes = "Consegna entro 30 giorni"
	req := jsonRequest(t, http.MethodPut, "/api/quotes/"+created.ID, q)
	req.SetPathValue("id", created.ID)
	rec := httptest.NewRecorder()
	require.NoError(t, HandleQuoteUpdate(d)(newAuthedEvent(app, op, req, rec)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var saved services.Quote
	decodeJSON(t, rec, &saved)
	assert.Equal(t, created.ID, saved.ID)
	assert.Equal(t, created.Number, saved.Number)
	assert.Equal(t, "Consegna entro 30 giorni", saved.Notes)

	s, err := d.Store.LoadSettings(t.Context(), sess)
	require.NoError(t, err)
	assert.Equal(t, 2, s.NextQuoteNumber, "updates never touch the counter")
}

func TestHandleQuoteGet_OtherOperator(t *testing.T) {
	app, op := newTestOperator(t)
	other := testhelpers.CreateTestOperator(t, app, "luigi", "password123")
	d := newTestDeps(t, app)

	created, err := services.SaveQuote(t.Context(), d.Store, services.Session{OperatorID: op.Id}, ptr(testQuote()))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/quotes/"+created.ID, nil)
	req.SetPathValue("id", created.ID)
	rec := httptest.NewRecorder()
	require.NoError(t, HandleQuoteGet(d)(newAuthedEvent(app, other, req, rec)))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/quotes/"+created.ID, nil)
	req.SetPathValue("id", created.ID)
	rec = httptest.NewRecorder()
	require.NoError(t, HandleQuoteGet(d)(newAuthedEvent(app, op, req, rec)))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleQuoteList_Search(t *testing.T) {
	app, op := newTestOperator(t)
	d := newTestDeps(t, app)
	sess := services.Session{OperatorID: op.Id}

	for _, name := range []string{"Rossi SpA", "Bianchi Srl"} {
		q := testQuote()
		q.Customer.Name = name
		_, err := services.SaveQuote(t.Context(), d.Store, sess, &q)
		require.NoError(t, err)
	}

	rec := httptest.NewRecorder()
	e := newAuthedEvent(app, op, httptest.NewRequest(http.MethodGet, "/api/quotes?search=bianchi", nil), rec)
	require.NoError(t, HandleQuoteList(d)(e))
	require.Equal(t, http.StatusOK, rec.Code)

	var list []services.Quote
	decodeJSON(t, rec, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "Bianchi Srl", list[0].Customer.Name)
}

func TestHandleQuoteTrashAndRestore(t *testing.T) {
	app, op := newTestOperator(t)
	d := newTestDeps(t, app)
	sess := services.Session{OperatorID: op.Id}

	created, err := services.SaveQuote(t.Context(), d.Store, sess, ptr(testQuote()))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodDelete, "/api/quotes/"+created.ID, nil)
	req.SetPathValue("id", created.ID)
	rec := httptest.NewRecorder()
	require.NoError(t, HandleQuoteTrash(d)(newAuthedEvent(app, op, req, rec)))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	active, err := d.Store.ListQuotes(t.Context(), sess, services.QuoteFilter{})
	require.NoError(t, err)
	assert.Empty(t, active)

	rec = httptest.NewRecorder()
	require.NoError(t, HandleTrashList(d)(newAuthedEvent(app, op, httptest.NewRequest(http.MethodGet, "/api/trash", nil), rec)))
	var trashed []services.Quote
	decodeJSON(t, rec, &trashed)
	require.Len(t, trashed, 1)
	assert.NotNil(t, trashed[0].DeletedAt)

	req = httptest.NewRequest(http.MethodPost, "/api/trash/"+created.ID+"/restore", nil)
	req.SetPathValue("id", created.ID)
	rec = httptest.NewRecorder()
	require.NoError(t, HandleTrashRestore(d)(newAuthedEvent(app, op, req, rec)))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	active, err = d.Store.ListQuotes(t.Context(), sess, services.QuoteFilter{})
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestHandleTrashDelete(t *testing.T) {
	app, op := newTestOperator(t)
	d := newTestDeps(t, app)
	sess := services.Session{OperatorID: op.Id}

	created, err := services.SaveQuote(t.Context(), d.Store, sess, ptr(testQuote()))
	require.NoError(t, err)
	require.NoError(t, d.Store.TrashQuote(t.Context(), sess, created.ID))

	req := httptest.NewRequest(http.MethodDelete, "/api/trash/"+created.ID, nil)
	req.SetPathValue("id", created.ID)
	rec := httptest.NewRecorder()
	require.NoError(t, HandleTrashDelete(d)(newAuthedEvent(app, op, req, rec)))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, err = d.Store.GetQuote(t.Context(), sess, created.ID)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestHandleQuoteRecalculate(t *testing.T) {
	app, op := newTestOperator(t)
	d := newTestDeps(t, app)

	q := testQuote()
	q.Total = 1
	q.Leasing = &services.LeasingPlan{Type: services.LeasingTypeLeasing, AssetValue: 1000, VATRate: 22}
	rec := httptest.NewRecorder()
	e := newAuthedEvent(app, op, jsonRequest(t, http.MethodPost, "/api/quotes/recalculate", q), rec)
	require.NoError(t, HandleQuoteRecalculate(d)(e))
	require.Equal(t, http.StatusOK, rec.Code)

	var out services.Quote
	decodeJSON(t, rec, &out)
	assert.Equal(t, 200.0, out.Items[0].Total)
	assert.Equal(t, 73.7, out.VATTotal)
	assert.Equal(t, 408.7, out.Total)
	require.NotNil(t, out.Leasing)
	assert.Equal(t, 220.0, out.Leasing.VATAmount)
	assert.Equal(t, 1220.0, out.Leasing.TotalVATIncl)
}

func TestHandleQuoteLines(t *testing.T) {
	app, op := newTestOperator(t)
	d := newTestDeps(t, app)
	customer := testhelpers.CreateTestCustomer(t, app, "Verdi Srl")

	tests := []struct {
		name   string
		req    lineRequest
		status int
		check  func(t *testing.T, q services.Quote)
	}{
		{
			name:   "add uses default vat",
			req:    lineRequest{Quote: testQuote(), Action: lineAdd},
			status: http.StatusOK,
			check: func(t *testing.T, q services.Quote) {
				require.Len(t, q.Items, 3)
				assert.Equal(t, 22.0, q.Items[2].VATRate)
			},
		},
		{
			name:   "remove",
			req:    lineRequest{Quote: testQuote(), Action: lineRemove, Index: 0},
			status: http.StatusOK,
			check: func(t *testing.T, q services.Quote) {
				require.Len(t, q.Items, 1)
				assert.Equal(t, 135.0, q.Subtotal)
			},
		},
		{
			name:   "remove out of range",
			req:    lineRequest{Quote: testQuote(), Action: lineRemove, Index: 5},
			status: http.StatusBadRequest,
		},
		{
			name: "apply article",
			req: lineRequest{Quote: testQuote(), Action: lineArticle, Index: 1,
				Article: &services.Article{ID: "a1", Code: "SW-LIC-01", Description: "Licenza", UnitPrice: 450, VATRate: 22}},
			status: http.StatusOK,
			check: func(t *testing.T, q services.Quote) {
				assert.Equal(t, "SW-LIC-01", q.Items[1].Code)
				assert.Equal(t, 1350.0, q.Items[1].Total)
			},
		},
		{
			name:   "customer snapshot",
			req:    lineRequest{Quote: testQuote(), Action: lineCustomer, CustomerID: customer.Id},
			status: http.StatusOK,
			check: func(t *testing.T, q services.Quote) {
				assert.Equal(t, "Verdi Srl", q.Customer.Name)
				assert.Equal(t, customer.Id, q.Customer.CustomerID)
			},
		},
		{
			name:   "financing",
			req:    lineRequest{Quote: testQuote(), Action: leasingOn, Leasing: services.LeasingTypeFinancing},
			status: http.StatusOK,
			check: func(t *testing.T, q services.Quote) {
				require.NotNil(t, q.Leasing)
				assert.Equal(t, services.LeasingTypeFinancing, q.Leasing.Type)
			},
		},
		{
			name:   "grow hardware slots",
			req:    lineRequest{Quote: slotQuote(), Action: imageSlots, Section: services.SlotsHardware, Count: 3},
			status: http.StatusOK,
			check: func(t *testing.T, q services.Quote) {
				assert.Equal(t, services.ImageList{"/img/a.png", "/img/b.png", ""}, q.Sections.HardwareImages)
			},
		},
		{
			name:   "shrink product slots",
			req:    lineRequest{Quote: slotQuote(), Action: imageSlots, Section: services.SlotsProduct, Count: 1},
			status: http.StatusOK,
			check: func(t *testing.T, q services.Quote) {
				require.Len(t, q.Sections.ProductImages, 1)
				assert.Equal(t, services.ImageRef("/img/p1.png"), q.Sections.ProductImages[0].Src)
				assert.Equal(t, "Fronte", q.Sections.ProductImages[0].Caption)
			},
		},
		{
			name:   "unknown slot section",
			req:    lineRequest{Quote: slotQuote(), Action: imageSlots, Section: "gallery", Count: 2},
			status: http.StatusBadRequest,
		},
		{
			name:   "unknown action",
			req:    lineRequest{Quote: testQuote(), Action: "explode"},
			status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			e := newAuthedEvent(app, op, jsonRequest(t, http.MethodPost, "/api/quotes/lines", tt.req), rec)
			require.NoError(t, HandleQuoteLines(d)(e))
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.check != nil {
				var q services.Quote
				decodeJSON(t, rec, &q)
				tt.check(t, q)
			}
		})
	}
}

func slotQuote() services.Quote {
	q := testQuote()
	q.Sections.HardwareImages = services.ImageList{"/img/a.png", "/img/b.png"}
	q.Sections.ProductImages = []services.ProductImage{
		{Src: "/img/p1.png", Caption: "Fronte"},
		{Src: "/img/p2.png", Caption: "Retro"},
	}
	return q
}

func TestHandleQuotePreview_LenientLayoutNumbers(t *testing.T) {
	app, op := newTestOperator(t)
	d := newTestDeps(t, app)

	body := `{"customer":{"name":"Rossi SpA"},"items":[],` +
		`"sections":{"softwareImageScale":"120","hardwareImageHeight":"abc"},` +
		`"attachments":[{"title":"Scheda","layout":{"imageHeight":"250"}}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/quotes/preview", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	require.NoError(t, HandleQuotePreview(d)(newAuthedEvent(app, op, req, rec)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	testhelpers.AssertHTMLContains(t, rec.Body.String(), "Scheda")
}

func TestHandleQuotePreview(t *testing.T) {
	app, op := newTestOperator(t)
	d := newTestDeps(t, app)

	q := testQuote()
	q.Number = "2024-42"
	rec := httptest.NewRecorder()
	e := newAuthedEvent(app, op, jsonRequest(t, http.MethodPost, "/api/quotes/preview", q), rec)
	require.NoError(t, HandleQuotePreview(d)(e))
	require.Equal(t, http.StatusOK, rec.Code)

	testhelpers.AssertHTMLContains(t, rec.Body.String(),
		`class="quote-preview"`,
		"Preventivo n. 2024-42",
		"Rossi SpA",
		"€ 408,70",
	)
	testhelpers.AssertHTMLNotContains(t, rec.Body.String(), `class="q-leasing"`)
}

func TestHandleQuotePDF(t *testing.T) {
	app, op := newTestOperator(t)
	d := newTestDeps(t, app)

	q := testQuote()
	q.Number = "2024/42"
	rec := httptest.NewRecorder()
	e := newAuthedEvent(app, op, jsonRequest(t, http.MethodPost, "/api/quotes/pdf", q), rec)
	require.NoError(t, HandleQuotePDF(d)(e))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, contentTypePDF, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "Preventivo_2024-42.pdf")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
}

func TestHandleSavedQuotePDF_NotFound(t *testing.T) {
	app, op := newTestOperator(t)
	d := newTestDeps(t, app)

	req := httptest.NewRequest(http.MethodGet, "/api/quotes/missing/pdf", nil)
	req.SetPathValue("id", "missing")
	rec := httptest.NewRecorder()
	require.NoError(t, HandleSavedQuotePDF(d)(newAuthedEvent(app, op, req, rec)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleQuoteExportExcel(t *testing.T) {
	app, op := newTestOperator(t)
	d := newTestDeps(t, app)
	_, err := services.SaveQuote(t.Context(), d.Store, services.Session{OperatorID: op.Id}, ptr(testQuote()))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	e := newAuthedEvent(app, op, httptest.NewRequest(http.MethodGet, "/api/quotes/export", nil), rec)
	require.NoError(t, HandleQuoteExportExcel(d)(e))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, contentTypeXLSX, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "Preventivi.xlsx")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")), "xlsx is a zip archive")
}

func TestHandleEditor(t *testing.T) {
	app, op := newTestOperator(t)
	d := newTestDeps(t, app)
	testhelpers.CreateTestArticle(t, app, "HW-TAB-10", "Tablet", 329, 22)

	prev := testQuote()
	prev.Sections.PremiseText = "Premessa del preventivo precedente"
	_, err := services.SaveQuote(t.Context(), d.Store, services.Session{OperatorID: op.Id}, &prev)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, HandleEditor(d)(newAuthedEvent(app, op, httptest.NewRequest(http.MethodGet, "/api/editor", nil), rec)))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Settings  services.Settings  `json:"settings"`
		Articles  []services.Article `json:"articles"`
		LastQuote *services.Quote    `json:"lastQuote"`
		Draft     services.Quote     `json:"draft"`
	}
	decodeJSON(t, rec, &body)
	assert.Len(t, body.Articles, 1)
	require.NotNil(t, body.LastQuote)
	assert.Equal(t, "", body.Draft.Number)
	assert.Equal(t, "Premessa del preventivo precedente", body.Draft.Sections.PremiseText)
	assert.True(t, body.Draft.Date.Equal(testNow))
}

func ptr[T any](v T) *T {
	return &v
}
