package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kjk/todostore/atomicfile"
	"github.com/kjk/todostore/idgen"
)

const (
	recordExt              = ".txt"
	defaultCounterFileName = "counter.txt"
	DefaultReadConcurrency = 16
	// digits in the largest int64
	maxIDLen = 19
)

// Record is a single todo item
type Record struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Generator issues unique ids. *idgen.Counter implements it.
type Generator interface {
	Next() (string, error)
}

// counter is implemented by generators backed by a number,
// like *idgen.Counter
type counter interface {
	Current() (int64, error)
	AdvanceTo(n int64) error
}

// ErrNotCounter is returned by LastIssued and ReserveIDs when
// ids come from a Generator that isn't a counter
var ErrNotCounter = errors.New("id generator is not a counter")

type Option func(s *Store)

// WithCounterPath sets path of the file with persisted id counter.
// The default is counter.txt inside the data directory.
func WithCounterPath(path string) Option {
	return func(s *Store) {
		s.counterPath = path
	}
}

// WithIDWidth sets number of digits in ids. With grow true ids become
// wider once the counter exceeds the width instead of failing.
func WithIDWidth(width int, grow bool) Option {
	return func(s *Store) {
		s.idWidth = width
		s.growIDs = grow
	}
}

// WithReadConcurrency limits how many files ReadAll reads at once
func WithReadConcurrency(n int) Option {
	return func(s *Store) {
		s.readConcurrency = n
	}
}

// WithIDGenerator overrides the file-backed id counter
func WithIDGenerator(g Generator) Option {
	return func(s *Store) {
		s.ids = g
	}
}

// Store keeps every record in its own file {id}.txt in DataDir.
// The filesystem is the only source of truth. Store is safe for
// concurrent use. All operations return ctx.Err() if ctx is done
// before they touch the disk.
type Store struct {
	DataDir string

	counterPath     string
	idWidth         int
	growIDs         bool
	readConcurrency int
	ids             Generator

	// os.ReadFile, replaced in tests
	readFile func(path string) ([]byte, error)
}

// Open ensures data directory exists and returns a Store for it.
// It's safe to call on every startup.
func Open(dataDir string, opts ...Option) (*Store, error) {
	if dataDir == "" {
		return nil, &DirectoryUnavailableError{Dir: dataDir, Err: errors.New("data directory is not set")}
	}
	s := &Store{
		DataDir:         dataDir,
		idWidth:         idgen.DefaultWidth,
		readConcurrency: DefaultReadConcurrency,
		readFile:        os.ReadFile,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, &DirectoryUnavailableError{Dir: dataDir, Err: err}
	}
	st, err := os.Stat(dataDir)
	if err != nil {
		return nil, &DirectoryUnavailableError{Dir: dataDir, Err: err}
	}
	if !st.IsDir() {
		return nil, &DirectoryUnavailableError{Dir: dataDir, Err: errors.New("not a directory")}
	}
	if s.readConcurrency <= 0 {
		s.readConcurrency = DefaultReadConcurrency
	}
	if s.idWidth <= 0 {
		s.idWidth = idgen.DefaultWidth
	}
	if s.ids == nil {
		if s.counterPath == "" {
			s.counterPath = filepath.Join(dataDir, defaultCounterFileName)
		}
		s.ids = idgen.New(s.counterPath, idgen.WithWidth(s.idWidth), idgen.WithGrow(s.growIDs))
	}
	return s, nil
}

// CounterPath returns path of the id counter file, empty if
// ids come from a custom Generator
func (s *Store) CounterPath() string {
	return s.counterPath
}

// LastIssued returns the number of the last issued id, 0 if none
func (s *Store) LastIssued() (int64, error) {
	c, ok := s.ids.(counter)
	if !ok {
		return 0, ErrNotCounter
	}
	return c.Current()
}

// ReserveIDs moves the id counter forward so that ids with number up
// to and including n are never issued. Used when records are added
// from outside, e.g. restored from a backup.
func (s *Store) ReserveIDs(n int64) error {
	c, ok := s.ids.(counter)
	if !ok {
		return ErrNotCounter
	}
	return c.AdvanceTo(n)
}

// IsValidID returns true if id has the shape of ids we issue.
// Anything else can't name a record, which also keeps ids
// from escaping the data directory.
func (s *Store) IsValidID(id string) bool {
	if len(id) < s.idWidth || len(id) > maxIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return false
		}
	}
	return true
}

// IDFromFileName returns id for a record file name and true
// or "", false if name is not a record file
func (s *Store) IDFromFileName(name string) (string, bool) {
	id, ok := strings.CutSuffix(name, recordExt)
	if !ok || !s.IsValidID(id) {
		return "", false
	}
	return id, true
}

// RecordPath returns path of the file for record id.
// id must be valid, see IsValidID.
func (s *Store) RecordPath(id string) string {
	return filepath.Join(s.DataDir, id+recordExt)
}

// Create persists text as a new record with a fresh id
func (s *Store) Create(ctx context.Context, text string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id, err := s.ids.Next()
	if err != nil {
		return nil, err
	}
	// the id is consumed even if the write fails
	if err = atomicfile.CreateFile(s.RecordPath(id), []byte(text)); err != nil {
		return nil, &WriteError{ID: id, Err: err}
	}
	return &Record{ID: id, Text: text}, nil
}

func (s *Store) readRecord(id string) (*Record, error) {
	d, err := s.readFile(s.RecordPath(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &NotFoundError{ID: id}
		}
		return nil, &ReadError{ID: id, Err: err}
	}
	return &Record{ID: id, Text: string(d)}, nil
}

// ReadOne returns the record with a given id
func (s *Store) ReadOne(ctx context.Context, id string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !s.IsValidID(id) {
		return nil, &NotFoundError{ID: id}
	}
	return s.readRecord(id)
}

func (s *Store) listIDs() ([]string, error) {
	entries, err := os.ReadDir(s.DataDir)
	if err != nil {
		return nil, &ReadError{Err: err}
	}
	var ids []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if id, ok := s.IDFromFileName(e.Name()); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// ReadAll returns all records sorted by id. Files are read concurrently,
// at most readConcurrency at a time. A record deleted between listing
// the directory and reading its file is left out. Any other failure
// fails the whole call.
func (s *Store) ReadAll(ctx context.Context) ([]*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ids, err := s.listIDs()
	if err != nil {
		return nil, err
	}
	recs := make([]*Record, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.readConcurrency)
	for i, id := range ids {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rec, err := s.readRecord(id)
			if err != nil {
				if IsNotFound(err) {
					return nil
				}
				return err
			}
			recs[i] = rec
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return nil, err
	}
	if err = ctx.Err(); err != nil {
		return nil, err
	}

	res := make([]*Record, 0, len(recs))
	for _, rec := range recs {
		if rec != nil {
			res = append(res, rec)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		return lessID(res[i].ID, res[j].ID)
	})
	return res, nil
}

// ids can be wider than the default width after the counter grew
// so compare by length first
func lessID(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}

// Update replaces the whole text of an existing record.
// A Delete racing with Update may lose: the record is then re-created.
func (s *Store) Update(ctx context.Context, id string, text string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !s.IsValidID(id) {
		return nil, &NotFoundError{ID: id}
	}
	path := s.RecordPath(id)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &NotFoundError{ID: id}
		}
		return nil, &ReadError{ID: id, Err: err}
	}
	if err := atomicfile.WriteFile(path, []byte(text)); err != nil {
		return nil, &WriteError{ID: id, Err: err}
	}
	return &Record{ID: id, Text: text}, nil
}

// Delete removes a record
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.IsValidID(id) {
		return &NotFoundError{ID: id}
	}
	err := os.Remove(s.RecordPath(id))
	if err == nil {
		return nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return &NotFoundError{ID: id}
	}
	return &WriteError{ID: id, Err: fmt.Errorf("delete: %w", err)}
}
