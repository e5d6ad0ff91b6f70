// Package idgen issues fixed-width, zero-padded decimal ids from a counter
// persisted in a file, so that ids stay unique across process restarts.
package idgen

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/kjk/todostore/atomicfile"
)

const DefaultWidth = 5

// ErrCapacityExceeded is returned by Next() when the counter outgrew
// the id width and the Counter is not allowed to grow
var ErrCapacityExceeded = errors.New("idgen: id capacity exceeded")

type Option func(c *Counter)

// WithWidth sets number of digits in an id
func WithWidth(n int) Option {
	return func(c *Counter) {
		c.width = n
	}
}

// WithGrow allows ids wider than configured width once the
// counter exceeds its capacity, instead of failing
func WithGrow(grow bool) Option {
	return func(c *Counter) {
		c.grow = grow
	}
}

// Counter is safe for concurrent use within a single process.
// The counter file stores the last issued number in decimal.
type Counter struct {
	path  string
	width int
	grow  bool
	max   int64
	mu    sync.Mutex
}

func New(path string, opts ...Option) *Counter {
	c := &Counter{
		path:  path,
		width: DefaultWidth,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.width <= 0 || c.width > 18 {
		c.width = DefaultWidth
	}
	c.max = 1
	for i := 0; i < c.width; i++ {
		c.max *= 10
	}
	c.max--
	return c
}

func (c *Counter) Path() string {
	return c.path
}

func (c *Counter) Width() int {
	return c.width
}

func (c *Counter) readCurrent() (int64, error) {
	d, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("idgen: reading counter '%s': %w", c.path, err)
	}
	s := strings.TrimSpace(string(d))
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("idgen: counter '%s' has invalid value '%s'", c.path, s)
	}
	return n, nil
}

// Current returns the last issued number, 0 if none was issued
func (c *Counter) Current() (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readCurrent()
}

// AdvanceTo moves the counter forward to n so that numbers up to n
// are never issued. It never moves the counter back.
func (c *Counter) AdvanceTo(n int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur, err := c.readCurrent()
	if err != nil {
		return err
	}
	if n <= cur {
		return nil
	}
	return c.write(n)
}

func (c *Counter) write(n int64) error {
	d := strconv.AppendInt(nil, n, 10)
	d = append(d, '\n')
	if err := atomicfile.WriteFile(c.path, d); err != nil {
		return fmt.Errorf("idgen: writing counter '%s': %w", c.path, err)
	}
	return nil
}

// Format formats n as an id
func (c *Counter) Format(n int64) string {
	return fmt.Sprintf("%0*d", c.width, n)
}

// Next issues a new id. The id is returned only after the
// incremented counter has been written to disk.
func (c *Counter) Next() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, err := c.readCurrent()
	if err != nil {
		return "", err
	}
	n++
	if n > c.max && !c.grow {
		return "", fmt.Errorf("%w: %d doesn't fit in %d digits", ErrCapacityExceeded, n, c.width)
	}
	if err = c.write(n); err != nil {
		return "", err
	}
	return c.Format(n), nil
}
