package logtastic

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/alecthomas/assert"
)

type received struct {
	path   string
	apiKey string
	body   string
}

func TestSendsLogsAndEvents(t *testing.T) {
	var mu sync.Mutex
	var got []received
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d, _ := io.ReadAll(r.Body)
		mu.Lock()
		got = append(got, received{r.URL.Path, r.Header.Get("X-Api-Key"), string(d)})
		mu.Unlock()
	}))
	defer srv.Close()

	c := New(strings.TrimPrefix(srv.URL, "http://"), "secret")
	c.Log("created 00001\n")
	c.LogEvent("todo.create", map[string]any{"id": "00001"})
	c.LogError("boom")
	c.Stop()
	// no-op after Stop
	c.Log("ignored")
	c.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, len(got))
	assert.Equal(t, "/api/v1/log", got[0].path)
	assert.Equal(t, "secret", got[0].apiKey)
	assert.Equal(t, "created 00001\n", got[0].body)

	assert.Equal(t, "/api/v1/event", got[1].path)
	var m map[string]any
	assert.NoError(t, json.Unmarshal([]byte(got[1].body), &m))
	assert.Equal(t, "todo.create", m["name"])
	assert.Equal(t, "00001", m["id"])

	assert.Equal(t, "/api/v1/error", got[2].path)
}

func TestNoServerIsNoop(t *testing.T) {
	c := New("", "")
	c.Log("x")
	c.Stop()

	var nilClient *Client
	nilClient.Log("x")
	nilClient.Stop()
}
