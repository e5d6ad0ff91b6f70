// Package api exposes a store.Store over HTTP:
//
//	POST   /todo       create, 201
//	GET    /todo       list all, 200
//	GET    /todo/{id}  read one, 200 or 404
//	PUT    /todo/{id}  update, 200 or 404
//	DELETE /todo/{id}  delete, 204 or 404
//
// Request body for POST and PUT is either JSON {"text": "..."} or,
// for any other content type, the raw text.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/klauspost/compress/gzhttp"

	"github.com/kjk/todostore/httputil"
	"github.com/kjk/todostore/log"
	"github.com/kjk/todostore/store"
)

// max size of request body
const maxTextSize = 1 << 20

type Server struct {
	store *store.Store
}

func New(s *store.Store) *Server {
	return &Server{
		store: s,
	}
}

type textBody struct {
	Text *string `json:"text"`
}

func readText(r *http.Request) (string, error) {
	d, err := io.ReadAll(io.LimitReader(r.Body, maxTextSize+1))
	if err != nil {
		return "", err
	}
	if len(d) > maxTextSize {
		return "", errors.New("request body too large")
	}
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct != "application/json" {
		return string(d), nil
	}
	var body textBody
	if err = json.Unmarshal(d, &body); err != nil {
		return "", err
	}
	if body.Text == nil {
		return "", errors.New("missing 'text' field")
	}
	return *body.Text, nil
}

// statusForError maps store errors to HTTP status codes
func statusForError(err error) int {
	if store.IsNotFound(err) {
		return http.StatusNotFound
	}
	if errors.Is(err, store.ErrCapacityExceeded) {
		return http.StatusInsufficientStorage
	}
	return http.StatusInternalServerError
}

func (s *Server) serveError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusForError(err)
	if code == http.StatusInternalServerError || code == http.StatusInsufficientStorage {
		log.Errorf("%s %s failed with '%s'\n", r.Method, r.URL.Path, err)
	}
	httputil.ServeJSONError(w, r, code, err.Error())
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	text, err := readText(r)
	if err != nil {
		httputil.ServeJSONError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	timeStart := time.Now()
	rec, err := s.store.Create(r.Context(), text)
	if err != nil {
		s.serveError(w, r, err)
		return
	}
	log.EventWithDuration("todo.create", time.Since(timeStart), "id", rec.ID, "size", len(text))
	httputil.ServeJSON(w, r, http.StatusCreated, rec)
}

func (s *Server) handleReadAll(w http.ResponseWriter, r *http.Request) {
	recs, err := s.store.ReadAll(r.Context())
	if err != nil {
		s.serveError(w, r, err)
		return
	}
	httputil.ServeJSON(w, r, http.StatusOK, recs)
}

func (s *Server) handleReadOne(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.ReadOne(r.Context(), r.PathValue("id"))
	if err != nil {
		s.serveError(w, r, err)
		return
	}
	httputil.ServeJSON(w, r, http.StatusOK, rec)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	text, err := readText(r)
	if err != nil {
		httputil.ServeJSONError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	rec, err := s.store.Update(r.Context(), r.PathValue("id"), text)
	if err != nil {
		s.serveError(w, r, err)
		return
	}
	log.Event("todo.update", "id", rec.ID, "size", len(text))
	httputil.ServeJSON(w, r, http.StatusOK, rec)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.Delete(r.Context(), id); err != nil {
		s.serveError(w, r, err)
		return
	}
	log.Event("todo.delete", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

// Handler returns http.Handler with all routes. Responses are
// gzip-compressed for clients that accept it and every request
// is logged.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /todo", s.handleCreate)
	mux.HandleFunc("GET /todo", s.handleReadAll)
	mux.HandleFunc("GET /todo/{id}", s.handleReadOne)
	mux.HandleFunc("PUT /todo/{id}", s.handleUpdate)
	mux.HandleFunc("DELETE /todo/{id}", s.handleDelete)
	return httputil.LogRequests(gzhttp.GzipHandler(mux))
}
