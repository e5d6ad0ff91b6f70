package atomicfile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

var (
	// ErrCancelled is returned by calls subsequent to RemoveIfNotClosed()
	ErrCancelled = errors.New("cancelled")

	_ io.WriteCloser = &File{}
)

// File writes to a temporary file in the destination directory and
// only makes it visible under the destination name on successful Close().
// Readers of the destination never see partially written content.
type File struct {
	dstPath string
	dir     string
	tmpFile *os.File
	err     error
	// if true, Close() fails with os.ErrExist instead of
	// replacing an existing destination
	exclusive bool

	tmpPath string
}

func newFile(path string, exclusive bool) (*File, error) {
	dir, fName := filepath.Split(path)
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if fName == "" {
		return nil, &os.PathError{Op: "open", Path: path, Err: os.ErrInvalid}
	}

	// leading '.' so that temp files don't look like destination files
	// to code that lists the directory
	tmpFile, err := os.CreateTemp(dir, "."+fName+".tmp-*")
	if err != nil {
		return nil, err
	}

	return &File{
		dstPath:   path,
		dir:       dir,
		tmpFile:   tmpFile,
		tmpPath:   tmpFile.Name(),
		exclusive: exclusive,
	}, nil
}

// New creates a File that on Close() replaces path, if it exists
func New(path string) (*File, error) {
	return newFile(path, false)
}

// NewExclusive creates a File that on Close() fails with an error
// matching os.ErrExist if path already exists
func NewExclusive(path string) (*File, error) {
	return newFile(path, true)
}

func (f *File) handleError(err error) error {
	if err == nil {
		return nil
	}
	// remember the first error
	if f.err == nil {
		f.err = err
	}
	_ = f.Close()
	return err
}

// Write writes data to a file
func (f *File) Write(d []byte) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	n, err := f.tmpFile.Write(d)
	return n, f.handleError(err)
}

func (f *File) WriteString(s string) (n int, err error) {
	if f.err != nil {
		return 0, f.err
	}
	n, err = f.tmpFile.WriteString(s)
	return n, f.handleError(err)
}

func (f *File) alreadyClosed() bool {
	return f.tmpFile == nil
}

// RemoveIfNotClosed removes the temp file if we didn't Close
// the file yet. Destination file will not be created.
// Use it with defer to ensure cleanup in case of a panic on the
// same goroutine that happens before Close.
// RemoveIfNotClosed after Close is a no-op.
func (f *File) RemoveIfNotClosed() {
	if f == nil {
		return
	}
	if f.alreadyClosed() {
		return
	}

	f.err = ErrCancelled
	_ = f.Close()
}

// publish makes the temp file visible under dstPath
func (f *File) publish() error {
	if !f.exclusive {
		// this will over-write dstPath (if it exists)
		return os.Rename(f.tmpPath, f.dstPath)
	}
	// link fails if dstPath exists, which rename wouldn't
	err := os.Link(f.tmpPath, f.dstPath)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("'%s': %w", f.dstPath, os.ErrExist)
		}
		return err
	}
	_ = os.Remove(f.tmpPath)
	return nil
}

// Close closes the file. Can be called multiple times to make it
// easier to use via defer
func (f *File) Close() error {
	if f.alreadyClosed() {
		// return the first error we encountered
		return f.err
	}
	tmpFile := f.tmpFile
	f.tmpFile = nil

	// https://www.joeshaw.org/dont-defer-close-on-writable-files/
	errSync := tmpFile.Sync()
	errClose := tmpFile.Close()

	didPublish := false
	defer func() {
		if !didPublish {
			_ = os.Remove(f.tmpPath)
		}
	}()

	if f.err != nil {
		return f.err
	}

	err := errSync
	if err == nil {
		err = errClose
	}

	if err == nil {
		err = f.publish()
		didPublish = (err == nil)
		// for extra protection against crashes elsewhere,
		// sync directory after rename
		fdir, _ := os.Open(f.dir)
		if fdir != nil {
			_ = fdir.Sync()
			_ = fdir.Close()
		}
	}

	if f.err == nil {
		f.err = err
	}
	return f.err
}

func writeAll(f *File, data []byte) error {
	defer f.RemoveIfNotClosed()
	_, err := f.Write(data)
	if err != nil {
		return err
	}
	return f.Close()
}

// WriteFile atomically replaces content of path with data
func WriteFile(path string, data []byte) error {
	f, err := New(path)
	if err != nil {
		return err
	}
	return writeAll(f, data)
}

// CreateFile atomically creates path with data.
// Fails with an error matching os.ErrExist if path already exists.
func CreateFile(path string, data []byte) error {
	f, err := NewExclusive(path)
	if err != nil {
		return err
	}
	return writeAll(f, data)
}
