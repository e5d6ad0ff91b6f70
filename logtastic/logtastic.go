// Package logtastic forwards log lines and events to a logtastic server.
// Sending happens on a background goroutine so callers never block on
// the network. After a failed send we stop sending for throttleTimeout.
package logtastic

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/carlmjohnson/requests"
)

type op struct {
	uri  string
	mime string
	d    []byte
}

const (
	// how long to wait before we resume sending logs to the server
	// after a failure
	throttleTimeout = time.Second * 15

	sendTimeout = time.Second * 10

	mimeJSON      = "application/json"
	mimePlainText = "text/plain"
)

// Client sends logs to a logtastic server at Server (host:port)
type Client struct {
	Server string
	ApiKey string
	// used for logging our own failures, fmt.Print-like if nil
	Logf func(s string, args ...any)

	ch            chan op
	done          chan struct{}
	mu            sync.Mutex
	running       bool
	stopped       bool
	throttleUntil time.Time
}

func New(server, apiKey string) *Client {
	return &Client{
		Server: server,
		ApiKey: apiKey,
		ch:     make(chan op, 1000),
		done:   make(chan struct{}),
	}
}

func (c *Client) logf(s string, args ...any) {
	if c.Logf != nil {
		c.Logf(s, args...)
		return
	}
	if len(args) > 0 {
		s = fmt.Sprintf(s, args...)
	}
	fmt.Print(s)
}

func (c *Client) throttle() {
	c.mu.Lock()
	c.throttleUntil = time.Now().Add(throttleTimeout)
	c.mu.Unlock()
}

func (c *Client) throttleLeft() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Until(c.throttleUntil)
}

func (c *Client) send(o op) error {
	r := requests.
		URL(o.uri).
		BodyBytes(o.d).
		ContentType(o.mime)
	if c.ApiKey != "" {
		r = r.Header("X-Api-Key", c.ApiKey)
	}
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	return r.Fetch(ctx)
}

func (c *Client) worker() {
	defer close(c.done)
	for o := range c.ch {
		if err := c.send(o); err != nil {
			// can't use Logf from package log because it might forward to us
			fmt.Printf("logtastic POST %s failed: %v, will throttle for %s\n", o.uri, err, throttleTimeout)
			c.throttle()
		}
	}
}

// Stop drains queued logs and stops the background sender
func (c *Client) Stop() {
	if c == nil {
		return
	}
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	running := c.running
	close(c.ch)
	c.mu.Unlock()

	if running {
		<-c.done
	}
}

func (c *Client) post(uriPath string, d []byte, mime string) {
	if c == nil || c.Server == "" {
		return
	}
	if left := c.throttleLeft(); left > 0 {
		return
	}

	o := op{
		uri:  "http://" + c.Server + uriPath,
		mime: mime,
		d:    d,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	if !c.running {
		c.running = true
		go c.worker()
	}
	select {
	case c.ch <- o:
	default:
		fmt.Printf("logtastic POST %s failed: channel full\n", o.uri)
	}
}

// Log sends a log line. Matches log.Config.OnLog
func (c *Client) Log(s string) {
	c.post("/api/v1/log", []byte(s), mimePlainText)
}

// LogEvent sends an event. Matches log.Config.OnEvent
func (c *Client) LogEvent(name string, m map[string]any) {
	v := map[string]any{}
	for k, val := range m {
		v[k] = val
	}
	v["name"] = name
	d, err := json.Marshal(v)
	if err != nil {
		c.logf("logtastic.LogEvent: json.Marshal() failed with '%s'\n", err)
		return
	}
	c.post("/api/v1/event", d, mimeJSON)
}

// LogError sends an error message
func (c *Client) LogError(s string) {
	m := map[string]any{
		"msg": s,
	}
	d, _ := json.Marshal(m)
	c.post("/api/v1/error", d, mimeJSON)
}
