package httputil

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/pretty"

	"github.com/kjk/todostore/log"
)

// GetBestRemoteAddress returns IP address of the request even for proxied requests
func GetBestRemoteAddress(r *http.Request) string {
	h := r.Header
	potentials := []string{h.Get("CF-Connecting-IP"), h.Get("X-Real-Ip"), h.Get("X-Forwarded-For"), r.RemoteAddr}
	for _, v := range potentials {
		// sometimes they are stored as "ip1, ip2, ip3" with ip1 being the best
		parts := strings.Split(v, ",")
		res := strings.TrimSpace(parts[0])
		if res != "" {
			return res
		}
	}
	return ""
}

// wantsPretty returns true for ?pretty or ?pretty=1 / true
func wantsPretty(r *http.Request) bool {
	if r == nil {
		return false
	}
	q := r.URL.Query()
	if !q.Has("pretty") {
		return false
	}
	v := strings.ToLower(q.Get("pretty"))
	return v == "" || v == "1" || v == "true"
}

// ServeJSON writes v as JSON with a given status code.
// If the request has ?pretty=1, JSON is indented.
func ServeJSON(w http.ResponseWriter, r *http.Request, code int, v any) {
	d, err := json.Marshal(v)
	if err != nil {
		log.Errorf("ServeJSON: json.Marshal() failed with '%s'\n", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if wantsPretty(r) {
		d = pretty.Pretty(d)
	} else {
		d = append(d, '\n')
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(d)
}

// ServeJSONError writes {"error": msg} with a given status code
func ServeJSONError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	v := map[string]string{
		"error": msg,
	}
	ServeJSON(w, r, code, v)
}

// LogRequests wraps h so that every request is written to the http log
func LogRequests(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timeStart := time.Now()
		cw := NewCapturingResponseWriter(w)
		h.ServeHTTP(cw, r)
		e := &log.HTTPEntry{
			Method:    r.Method,
			Path:      r.URL.Path,
			RawQuery:  r.URL.RawQuery,
			Host:      r.Host,
			IP:        GetBestRemoteAddress(r),
			Referer:   r.Header.Get("Referer"),
			UserAgent: r.UserAgent(),
			Code:      cw.StatusCode,
			Size:      cw.Size,
			Dur:       time.Since(timeStart),
		}
		if err := log.HTTPRequest(e); err != nil {
			log.Errorf("log.HTTPRequest() failed with '%s'\n", err)
		}
		log.Verbosef("%s %s %d in %s\n", r.Method, r.URL.Path, cw.StatusCode, e.Dur)
	})
}
