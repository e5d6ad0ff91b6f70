package log

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/assert"
)

func TestMarshalEventLine(t *testing.T) {
	tm := time.UnixMilli(1700000000123)
	got := string(marshalEventLine("todo.create", tm, []byte("id: \"00001\"")))
	assert.Equal(t, "--- 11 1700000000123 todo.create\nid: \"00001\"\n", got)

	got = string(marshalEventLine("ping", tm, nil))
	assert.Equal(t, "--- 0 1700000000123 ping\n", got)
}

func readDaily(t *testing.T, dir string) string {
	name := time.Now().UTC().Format("2006-01-02") + ".txt"
	d, err := os.ReadFile(filepath.Join(dir, name))
	assert.NoError(t, err)
	return string(d)
}

func TestInitLogAndEvent(t *testing.T) {
	dir := t.TempDir()
	var forwarded []string
	var events []string
	Init(&Config{
		Dir:   dir,
		OnLog: func(s string) { forwarded = append(forwarded, s) },
		OnEvent: func(name string, m map[string]any) {
			events = append(events, name)
		},
	})
	var stdout bytes.Buffer
	Stdout = &stdout
	defer func() {
		Close()
		Stdout = nil
		Init(&Config{})
	}()

	Logf("created %s\n", "00001")
	Verbosef("not logged\n")
	Event("todo.create", "id", "00001")
	err := HTTPRequest(&HTTPEntry{Method: "GET", Path: "/todo", Code: 200, Dur: time.Millisecond})
	assert.NoError(t, err)

	assert.Equal(t, "created 00001\n", stdout.String())
	assert.Equal(t, []string{"created 00001\n"}, forwarded)
	assert.Equal(t, []string{"todo.create"}, events)
	assert.Equal(t, "created 00001\n", readDaily(t, filepath.Join(dir, "log")))
	ev := readDaily(t, filepath.Join(dir, "events"))
	assert.True(t, strings.Contains(ev, "todo.create"), ev)
	assert.True(t, strings.Contains(ev, "00001"), ev)
	hl := readDaily(t, filepath.Join(dir, "http"))
	assert.True(t, strings.Contains(hl, `"url":"/todo"`), hl)
}

func TestWriteDailyNil(t *testing.T) {
	var w *WriteDaily
	assert.NoError(t, w.WriteString("x"))
	assert.NoError(t, w.Close())
	assert.NoError(t, w.Sync())
}

func TestErrorfForwards(t *testing.T) {
	dir := t.TempDir()
	var errs []string
	Init(&Config{
		Dir:     dir,
		OnError: func(s string) { errs = append(errs, s) },
	})
	var stdout bytes.Buffer
	Stdout = &stdout
	defer func() {
		Close()
		Stdout = nil
		Init(&Config{})
	}()

	assert.False(t, IfErrf(nil))
	assert.True(t, IfErrf(os.ErrPermission, "writing %s failed", "00001.txt"))
	assert.Equal(t, 1, len(errs))
	assert.True(t, strings.HasPrefix(errs[0], "writing 00001.txt failed\n"), errs[0])
	el := readDaily(t, filepath.Join(dir, "errors"))
	assert.True(t, strings.Contains(el, "writing 00001.txt failed"), el)
}
