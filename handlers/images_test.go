package handlers

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestHandleImageUpload(t *testing.T) {
	app, op := newTestOperator(t)
	d := newTestDeps(t, app)

	rec := httptest.NewRecorder()
	e := newAuthedEvent(app, op, fileRequest(t, "/api/images", "logo.png", pngBytes(t, 20, 10)), rec)
	require.NoError(t, HandleImageUpload(d)(e))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body map[string]string
	decodeJSON(t, rec, &body)
	assert.True(t, strings.HasPrefix(body["src"], "data:image/png;base64,"))
}

func TestHandleImageUpload_NotAnImage(t *testing.T) {
	app, op := newTestOperator(t)
	d := newTestDeps(t, app)

	rec := httptest.NewRecorder()
	e := newAuthedEvent(app, op, fileRequest(t, "/api/images", "note.txt", []byte("solo testo")), rec)
	require.NoError(t, HandleImageUpload(d)(e))
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestHandleImageUpload_TooLarge(t *testing.T) {
	app, op := newTestOperator(t)
	d := newTestDeps(t, app)
	d.Ingester.MaxBytes = 16

	rec := httptest.NewRecorder()
	e := newAuthedEvent(app, op, fileRequest(t, "/api/images", "big.png", pngBytes(t, 200, 200)), rec)
	require.NoError(t, HandleImageUpload(d)(e))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
