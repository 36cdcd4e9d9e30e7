package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"preventivi/logging"
	"preventivi/services"
	"preventivi/testhelpers"
)

var testNow = time.Date(2024, 5, 14, 10, 0, 0, 0, time.UTC)

// newTestRequestEvent creates a RequestEvent suitable for handler tests.
func newTestRequestEvent(app *pocketbase.PocketBase, req *http.Request, rec *httptest.ResponseRecorder) *core.RequestEvent {
	e := &core.RequestEvent{}
	e.App = app
	e.Request = req
	e.Response = rec
	return e
}

// newAuthedEvent is newTestRequestEvent with the operator's auth record set.
func newAuthedEvent(app *pocketbase.PocketBase, op *core.Record, req *http.Request, rec *httptest.ResponseRecorder) *core.RequestEvent {
	e := newTestRequestEvent(app, req, rec)
	e.Auth = op
	return e
}

// newTestDeps wires handlers to the embedded store of app.
func newTestDeps(t *testing.T, app *pocketbase.PocketBase) *Deps {
	t.Helper()
	loader := services.NewImageLoader(t.TempDir(), time.Second, 1<<20)
	return &Deps{
		Store:    services.NewRecordStore(app),
		Renderer: services.NewQuoteRenderer(loader),
		Ingester: services.NewImageIngester(1<<20, 100),
		Log:      logging.Nop(),
		Now:      func() time.Time { return testNow },
	}
}

// newTestOperator boots an app with one operator.
func newTestOperator(t *testing.T) (*pocketbase.PocketBase, *core.Record) {
	t.Helper()
	app := testhelpers.NewTestApp(t)
	op := testhelpers.CreateTestOperator(t, app, "mario", "password123")
	return app, op
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func fileRequest(t *testing.T, target, fileName string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("response is not JSON: %v\nbody: %s", err, rec.Body.String())
	}
}

// testQuote is a valid unsaved quote with two lines.
func testQuote() services.Quote {
	return services.Quote{
		Date:     testNow,
		Customer: services.CustomerSnapshot{Name: "Rossi SpA", Address: "Via Po 1, Torino"},
		Items: []services.LineItem{
			{Code: "HW-TAB-10", Description: "Tablet", Quantity: 2, UnitPrice: 100, VATRate: 22},
			{Code: "SRV-INST", Description: "Installazione", Quantity: 3, UnitPrice: 45, VATRate: 22},
		},
	}
}
