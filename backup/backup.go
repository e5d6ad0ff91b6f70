// Package backup creates and restores zip snapshots of a store.Store
// and uploads them to S3-compatible storage.
package backup

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/kjk/todostore/atomicfile"
	"github.com/kjk/todostore/minioutil"
	"github.com/kjk/todostore/store"
	"github.com/kjk/todostore/u"
)

// name of id counter inside the snapshot
const CounterName = "counter.txt"

// Snapshot returns a zip archive with every record as {id}.txt
// followed by the number of the last issued id as counter.txt
func Snapshot(ctx context.Context, s *store.Store) ([]byte, error) {
	recs, err := s.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	entries := make([]u.ZipEntry, 0, len(recs)+1)
	for _, rec := range recs {
		entries = append(entries, u.ZipEntry{
			Name:    rec.ID + ".txt",
			Data:    []byte(rec.Text),
			ModTime: now,
		})
	}
	n, err := s.LastIssued()
	if err != nil && !errors.Is(err, store.ErrNotCounter) {
		return nil, err
	}
	if n > 0 {
		d := strconv.AppendInt(nil, n, 10)
		d = append(d, '\n')
		entries = append(entries, u.ZipEntry{Name: CounterName, Data: d, ModTime: now})
	}
	return u.ZipEntries(entries)
}

// WriteSnapshot writes a snapshot of s to path and returns its size
func WriteSnapshot(ctx context.Context, s *store.Store, path string) (int, error) {
	d, err := Snapshot(ctx, s)
	if err != nil {
		return 0, err
	}
	if err = WriteSnapshotData(path, d); err != nil {
		return 0, err
	}
	return len(d), nil
}

// WriteSnapshotData writes snapshot data d to path. The file at path
// is replaced atomically so it's always a complete snapshot.
func WriteSnapshotData(path string, d []byte) error {
	return atomicfile.WriteFile(path, d)
}

func parseCounter(d []byte) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(string(d)), 10, 64)
}

// Restore adds records from a snapshot to s. Existing records are never
// overwritten: restoring a record whose id already exists is an error.
// The id counter is moved past both the snapshot's counter and the
// highest restored id, so ids in the snapshot are not issued again.
func Restore(s *store.Store, zipData []byte) (int, error) {
	files, err := u.ReadZipData(zipData)
	if err != nil {
		return 0, err
	}
	// validate everything before writing anything
	var maxN int64
	for name, d := range files {
		var n int64
		if name == CounterName {
			n, err = parseCounter(d)
			if err != nil || n < 0 {
				return 0, fmt.Errorf("invalid %s '%s' in snapshot", CounterName, strings.TrimSpace(string(d)))
			}
		} else {
			id, ok := s.IDFromFileName(name)
			if !ok {
				return 0, fmt.Errorf("unexpected file '%s' in snapshot", name)
			}
			n, err = strconv.ParseInt(id, 10, 64)
			if err != nil {
				return 0, fmt.Errorf("invalid id '%s' in snapshot: %w", id, err)
			}
		}
		maxN = max(maxN, n)
	}

	if maxN > 0 {
		if err = s.ReserveIDs(maxN); err != nil {
			return 0, err
		}
	}

	nRestored := 0
	for name, d := range files {
		if name == CounterName {
			continue
		}
		id, _ := s.IDFromFileName(name)
		err = atomicfile.CreateFile(s.RecordPath(id), d)
		if errors.Is(err, fs.ErrExist) {
			return nRestored, fmt.Errorf("record %s already exists", id)
		}
		if err != nil {
			return nRestored, &store.WriteError{ID: id, Err: err}
		}
		nRestored++
	}
	return nRestored, nil
}

// RemotePath returns name of uploaded snapshot created at t
func RemotePath(prefix string, t time.Time) string {
	name := "todos-" + t.UTC().Format("2006-01-02_15-04-05") + ".zip.br"
	return path.Join(prefix, name)
}

// Remote is S3-compatible storage for snapshots. *minioutil.Client implements it.
type Remote interface {
	Exists(ctx context.Context, remotePath string) bool
	UploadDataBrotliCompressed(ctx context.Context, remotePath string, data []byte) (minio.UploadInfo, error)
	ListObjects(ctx context.Context, prefix string) <-chan minio.ObjectInfo
	Remove(ctx context.Context, remotePath string) error
}

var _ Remote = &minioutil.Client{}

// Upload uploads brotli-compressed zipData and returns its remote path.
// It refuses to replace an existing snapshot.
func Upload(ctx context.Context, r Remote, prefix string, zipData []byte) (string, error) {
	remotePath := RemotePath(prefix, time.Now())
	if r.Exists(ctx, remotePath) {
		return "", fmt.Errorf("snapshot '%s' already exists", remotePath)
	}
	_, err := r.UploadDataBrotliCompressed(ctx, remotePath, zipData)
	if err != nil {
		return "", err
	}
	return remotePath, nil
}

// ListUploaded returns remote paths of uploaded snapshots, oldest first
func ListUploaded(ctx context.Context, r Remote, prefix string) ([]string, error) {
	// with an empty prefix RemotePath() returns just the file name
	namePrefix := path.Join(prefix, "todos-")
	var res []string
	for obj := range r.ListObjects(ctx, namePrefix) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		if strings.HasSuffix(obj.Key, ".zip.br") {
			res = append(res, obj.Key)
		}
	}
	// names have sortable timestamps
	slices.Sort(res)
	return res, nil
}

// Prune removes all but keep newest uploaded snapshots and
// returns remote paths of removed ones
func Prune(ctx context.Context, r Remote, prefix string, keep int) ([]string, error) {
	if keep < 1 {
		return nil, fmt.Errorf("must keep at least 1 snapshot, got %d", keep)
	}
	paths, err := ListUploaded(ctx, r, prefix)
	if err != nil {
		return nil, err
	}
	if len(paths) <= keep {
		return nil, nil
	}
	toRemove := paths[:len(paths)-keep]
	for i, remotePath := range toRemove {
		if err = r.Remove(ctx, remotePath); err != nil {
			return toRemove[:i], err
		}
	}
	return toRemove, nil
}
