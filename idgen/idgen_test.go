package idgen

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/alecthomas/assert"
)

func TestNextFormatsAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counter.txt")
	c := New(path)

	id, err := c.Next()
	assert.NoError(t, err)
	assert.Equal(t, "00001", id)
	id, err = c.Next()
	assert.NoError(t, err)
	assert.Equal(t, "00002", id)

	d, err := os.ReadFile(path)
	assert.NoError(t, err)
	assert.Equal(t, "2\n", string(d))

	// a new Counter over the same file continues where we left off
	c2 := New(path)
	id, err = c2.Next()
	assert.NoError(t, err)
	assert.Equal(t, "00003", id)

	n, err := c2.Current()
	assert.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestCapacityExceeded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counter.txt")
	assert.NoError(t, os.WriteFile(path, []byte("98"), 0644))
	c := New(path, WithWidth(2))

	id, err := c.Next()
	assert.NoError(t, err)
	assert.Equal(t, "99", id)

	_, err = c.Next()
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrCapacityExceeded))

	// failed call doesn't advance the counter
	n, err := c.Current()
	assert.NoError(t, err)
	assert.Equal(t, int64(99), n)
}

func TestGrow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counter.txt")
	assert.NoError(t, os.WriteFile(path, []byte("99\n"), 0644))
	c := New(path, WithWidth(2), WithGrow(true))

	id, err := c.Next()
	assert.NoError(t, err)
	assert.Equal(t, "100", id)
}

func TestCorruptCounter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counter.txt")
	assert.NoError(t, os.WriteFile(path, []byte("lol"), 0644))
	c := New(path)
	_, err := c.Next()
	assert.Error(t, err)
}

func TestUnwritableCounter(t *testing.T) {
	// parent directory doesn't exist so the counter can't be persisted
	path := filepath.Join(t.TempDir(), "missing", "counter.txt")
	c := New(path)
	_, err := c.Next()
	assert.Error(t, err)
}

func TestConcurrentNextUnique(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counter.txt")
	c := New(path)

	const n = 200
	ids := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i], errs[i] = c.Next()
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for i, id := range ids {
		assert.NoError(t, errs[i])
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	assert.Equal(t, n, len(seen))
	cur, err := c.Current()
	assert.NoError(t, err)
	assert.Equal(t, int64(n), cur)
}

func TestAdvanceTo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counter.txt")
	c := New(path)
	assert.NoError(t, c.AdvanceTo(7))
	id, err := c.Next()
	assert.NoError(t, err)
	assert.Equal(t, "00008", id)

	// never moves back
	assert.NoError(t, c.AdvanceTo(3))
	n, err := c.Current()
	assert.NoError(t, err)
	assert.Equal(t, int64(8), n)
}
