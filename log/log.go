package log

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/toon-format/toon-go"
)

var (
	log       *WriteDaily
	httpLog   *WriteDaily
	errorsLog *WriteDaily
	eventsLog *WriteDaily

	onLog   func(s string)
	onEvent func(name string, m map[string]any)
	onError func(s string)

	// if true, Verbosef() will log messages
	Verbose bool

	// where Logf() echoes messages, os.Stdout if nil
	Stdout io.Writer
)

type WriteDaily struct {
	Dir         string
	currentDate int // YYYYMMDD format
	file        *os.File
	mu          sync.Mutex
}

func NewWriteDaily(dir string) *WriteDaily {
	return &WriteDaily{
		Dir: dir,
	}
}

// WriteString writes a string to the daily log file
// it's safe to call on nil receiver
func (w *WriteDaily) WriteString(s string) error {
	return w.Write([]byte(s))
}

// dayFromTime converts a time.Time to YYYYMMDD integer format
func dayFromTime(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

// Writer returns an io.Writer for today's log file
// it creates a new file if needed
func (w *WriteDaily) Writer() (io.Writer, error) {
	if w == nil {
		return nil, fmt.Errorf("w is nil")
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now().UTC()
	today := dayFromTime(now)

	if w.file != nil && w.currentDate != today {
		if err := w.close(); err != nil {
			return nil, err
		}
	}

	if w.file == nil {
		dateStr := now.Format("2006-01-02")
		filename := filepath.Join(w.Dir, dateStr+".txt")
		if err := os.MkdirAll(w.Dir, 0755); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, err
		}
		w.file = f
		w.currentDate = today
	}
	return w.file, nil
}

// Write writes data to the daily log file
// it's safe to call on nil receiver
func (w *WriteDaily) Write(d []byte) error {
	if w == nil {
		return nil
	}
	wr, err := w.Writer()
	if err != nil {
		return err
	}
	_, err = wr.Write(d)
	return err
}

func (w *WriteDaily) close() error {
	if w.file == nil {
		return nil
	}

	err := w.file.Close()
	w.file = nil
	w.currentDate = 0
	return err
}

// Close closes the daily log file
// it's safe to call on nil receiver
func (w *WriteDaily) Close() error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.close()
}

// Sync flushes the daily log file to disk
// it's safe to call on nil receiver
func (w *WriteDaily) Sync() error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file != nil {
		return w.file.Sync()
	}
	return nil
}

type Config struct {
	// directory where log files are stored
	// each log type (regular, error, event, http) has its own subdirectory
	// if empty, we only log to stdout
	Dir string
	// called for every Logf() call
	// allows sending logs to other places (e.g. logtastic)
	OnLog func(s string)
	// called for every Event() call
	OnEvent func(name string, m map[string]any)
	// called for every Errorf() call, with the callstack
	OnError func(s string)
}

// Init initializes the logging system
// log files are stored in config.Dir
func Init(config *Config) {
	onLog = config.OnLog
	onEvent = config.OnEvent
	onError = config.OnError
	dir := config.Dir
	if dir == "" {
		return
	}
	log = NewWriteDaily(filepath.Join(dir, "log"))
	errorsLog = NewWriteDaily(filepath.Join(dir, "errors"))
	// this doesn't create log files so if app doesn't
	// log http requests of events, it's a no-op
	httpLog = NewWriteDaily(filepath.Join(dir, "http"))
	eventsLog = NewWriteDaily(filepath.Join(dir, "events"))
}

// CloseWriteDaily closes the WriteDaily and sets its pointer to nil
// it's safe to call with nil pointer
func CloseWriteDaily(wd **WriteDaily) {
	if *wd == nil {
		return
	}
	(*wd).Sync()
	(*wd).Close()
	*wd = nil
}

func Close() {
	CloseWriteDaily(&log)
	CloseWriteDaily(&httpLog)
	CloseWriteDaily(&errorsLog)
	CloseWriteDaily(&eventsLog)
}

func Logf(s string, args ...any) {
	if len(args) > 0 {
		s = fmt.Sprintf(s, args...)
	}
	if Stdout != nil {
		fmt.Fprint(Stdout, s)
	} else {
		fmt.Print(s)
	}
	log.WriteString(s)
	if onLog != nil {
		onLog(s)
	}
}

func GetCallstackFrames(skip int) []string {
	var callers [32]uintptr
	n := runtime.Callers(skip+1, callers[:])
	frames := runtime.CallersFrames(callers[:n])
	var cs []string
	for {
		frame, more := frames.Next()
		if !more {
			break
		}
		s := frame.File + ":" + strconv.Itoa(frame.Line)
		cs = append(cs, s)
	}
	return cs
}

func GetCallstack(skip int) string {
	frames := GetCallstackFrames(skip + 1)
	return strings.Join(frames, "\n")
}

func Verbosef(format string, args ...any) {
	if !Verbose {
		return
	}
	Logf(format, args...)
}

// Errorf logs an error message along with the callstack
func Errorf(s string, args ...any) {
	if len(args) > 0 {
		s = fmt.Sprintf(s, args...)
	}
	cs := GetCallstack(1)
	s = fmt.Sprintf("%s\n%s\n", s, cs)
	errorsLog.WriteString(s)
	if onError != nil {
		onError(s)
	}
	Logf("%s", s)
}

// if err != nil, log and return true
// IfErrf(err) => logs err.Error()
// IfErrf(err, "error is: %v", err) => logs message formatted
func IfErrf(err error, a ...any) bool {
	if err == nil {
		return false
	}
	if len(a) == 0 {
		Errorf("%s", err.Error())
		return true
	}
	s, ok := a[0].(string)
	if !ok {
		// shouldn't happen but just in case
		s = fmt.Sprintf("%s", a[0])
	}
	if len(a) > 1 {
		s = fmt.Sprintf(s, a[1:]...)
	}
	Errorf("%s", s)
	return true
}

// simpleTypeToStr converts simple types to string
// panics if v is of complex type
func simpleTypeToStr(v any) string {
	rt := reflect.TypeOf(v)
	kind := rt.Kind()
	switch kind {
	case reflect.Array, reflect.Slice, reflect.Struct, reflect.Map, reflect.Chan, reflect.Interface, reflect.Pointer:
		panic(fmt.Sprintf("toStr: value is of kind %v", kind))
	case reflect.String:
		return v.(string)
	}
	return fmt.Sprintf("%v", v)
}

// marshalEventLine formats an event as:
// "--- ${len} ${unix_ms} ${name}\n${data}\n"
func marshalEventLine(name string, t time.Time, d []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString("--- ")
	buf.WriteString(strconv.Itoa(len(d)))
	buf.WriteString(" ")
	buf.WriteString(strconv.FormatInt(t.UnixMilli(), 10))
	buf.WriteString(" ")
	buf.WriteString(name)
	buf.WriteByte('\n')
	if len(d) > 0 {
		buf.Write(d)
		if d[len(d)-1] != '\n' {
			buf.WriteByte('\n')
		}
	}
	return buf.Bytes()
}

// Event logs event with key/value pairs, encoded in toon format
func Event(name string, vals ...any) {
	n := len(vals)
	if n%2 != 0 {
		panic(fmt.Sprintf("Event('%s'): odd number of values %d", name, n))
	}
	var d []byte
	m := map[string]any{}
	for i := 0; i < n; i += 2 {
		k := simpleTypeToStr(vals[i])
		m[k] = vals[i+1]
	}
	if n > 0 {
		d, _ = toon.Marshal(m)
	}
	t := time.Now().UTC()
	eventsLog.Write(marshalEventLine(name, t, d))
	if onEvent != nil {
		onEvent(name, m)
	}
}

func EventWithDuration(name string, dur time.Duration, vals ...any) {
	vals = append(vals, "durmicro", dur.Microseconds())
	Event(name, vals...)
}

// HTTPEntry describes a single HTTP request for the http log
type HTTPEntry struct {
	Method    string
	Path      string
	RawQuery  string
	Host      string
	IP        string
	Referer   string
	UserAgent string
	Code      int
	Size      int64
	Dur       time.Duration
}

func HTTPRequestToWriteDaily(w *WriteDaily, e *HTTPEntry) error {
	rawQuery := e.RawQuery
	if len(rawQuery) > 128 {
		rawQuery = rawQuery[:128]
	}

	entry := map[string]any{
		"ts":     time.Now().UTC().Unix(),
		"method": e.Method,
		"url":    e.Path,
		"query":  rawQuery,
		"host":   e.Host,
		"ip":     e.IP,
		"code":   e.Code,
		"size":   e.Size,
		"dur":    float64(e.Dur.Microseconds()) / 1000.0, // milliseconds with decimal precision
	}
	if e.Referer != "" {
		entry["referer"] = e.Referer
	}
	if e.UserAgent != "" {
		entry["ua"] = e.UserAgent
	}

	buf := &strings.Builder{}
	encoder := json.NewEncoder(buf)
	// avoid unnecessary escaping
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(entry); err != nil {
		return err
	}

	// Encode adds a newline
	return w.Write([]byte(buf.String()))
}

func HTTPRequest(e *HTTPEntry) error {
	return HTTPRequestToWriteDaily(httpLog, e)
}
