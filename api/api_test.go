package api

import (
	"compress/gzip"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/assert"

	"github.com/kjk/todostore/store"
)

func newTestHandler(t *testing.T) http.Handler {
	s, err := store.Open(filepath.Join(t.TempDir(), "data"))
	assert.NoError(t, err)
	return New(s).Handler()
}

func do(t *testing.T, h http.Handler, method, uri, contentType, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, uri, r)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeRecord(t *testing.T, w *httptest.ResponseRecorder) store.Record {
	var rec store.Record
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec), w.Body.String())
	return rec
}

func TestCRUD(t *testing.T) {
	h := newTestHandler(t)

	w := do(t, h, "POST", "/todo", "application/json", `{"text":"buy milk"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	rec := decodeRecord(t, w)
	assert.Equal(t, store.Record{ID: "00001", Text: "buy milk"}, rec)

	w = do(t, h, "POST", "/todo", "text/plain", "walk the dog")
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "00002", decodeRecord(t, w).ID)

	w = do(t, h, "GET", "/todo/00001", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "buy milk", decodeRecord(t, w).Text)

	w = do(t, h, "PUT", "/todo/00001", "application/json; charset=utf-8", `{"text":"buy oat milk"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "buy oat milk", decodeRecord(t, w).Text)

	w = do(t, h, "GET", "/todo", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	var recs []store.Record
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &recs))
	exp := []store.Record{
		{ID: "00001", Text: "buy oat milk"},
		{ID: "00002", Text: "walk the dog"},
	}
	assert.Equal(t, exp, recs)

	w = do(t, h, "DELETE", "/todo/00001", "", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, h, "GET", "/todo/00001", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEmptyList(t *testing.T) {
	h := newTestHandler(t)
	w := do(t, h, "GET", "/todo", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]\n", w.Body.String())
}

func TestNotFound(t *testing.T) {
	h := newTestHandler(t)
	w := do(t, h, "PUT", "/todo/99999", "text/plain", "x")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "{\"error\":\"no item with id: 99999\"}\n", w.Body.String())

	w = do(t, h, "DELETE", "/todo/99999", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, "GET", "/todo/nope", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBadBody(t *testing.T) {
	h := newTestHandler(t)
	w := do(t, h, "POST", "/todo", "application/json", `{"text":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(t, h, "POST", "/todo", "application/json", `{"txt":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatusForError(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusForError(&store.NotFoundError{ID: "00001"}))
	assert.Equal(t, http.StatusInsufficientStorage, statusForError(store.ErrCapacityExceeded))
	assert.Equal(t, http.StatusInternalServerError, statusForError(&store.WriteError{ID: "00001", Err: io.ErrShortWrite}))
}

func TestGzipResponse(t *testing.T) {
	h := newTestHandler(t)
	text := strings.Repeat("todo ", 100)
	for i := 0; i < 10; i++ {
		w := do(t, h, "POST", "/todo", "text/plain", text)
		assert.Equal(t, http.StatusCreated, w.Code)
	}

	req := httptest.NewRequest("GET", "/todo", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))

	zr, err := gzip.NewReader(w.Body)
	assert.NoError(t, err)
	d, err := io.ReadAll(zr)
	assert.NoError(t, err)
	var recs []store.Record
	assert.NoError(t, json.Unmarshal(d, &recs))
	assert.Equal(t, 10, len(recs))
}
