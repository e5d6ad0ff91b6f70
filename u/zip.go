package u

import (
	"archive/zip"
	"bytes"
	"io"
	"time"
)

// ZipEntry is a file to be added to a zip archive
type ZipEntry struct {
	Name    string
	Data    []byte
	ModTime time.Time
}

// ZipEntriesToWriter writes a zip archive with entries to w.
// Names must be slash-separated.
func ZipEntriesToWriter(w io.Writer, entries []ZipEntry) error {
	zw := zip.NewWriter(w)
	for _, e := range entries {
		hdr := &zip.FileHeader{
			Name:     e.Name,
			Method:   zip.Deflate,
			Modified: e.ModTime,
		}
		fw, err := zw.CreateHeader(hdr)
		if err != nil {
			_ = zw.Close()
			return err
		}
		if _, err = fw.Write(e.Data); err != nil {
			_ = zw.Close()
			return err
		}
	}
	return zw.Close()
}

func ZipEntries(entries []ZipEntry) ([]byte, error) {
	var buf bytes.Buffer
	err := ZipEntriesToWriter(&buf, entries)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func IterZipReader(r *zip.Reader, cb func(f *zip.File, data []byte) error) error {
	for _, f := range r.File {
		rc, err := f.Open()
		if err != nil {
			return err
		}
		d, err := io.ReadAll(rc)
		err2 := rc.Close()
		if err != nil {
			return err
		}
		if err2 != nil {
			return err2
		}
		err = cb(f, d)
		if err != nil {
			return err
		}
	}
	return nil
}

func IterZipData(zipData []byte, cb func(f *zip.File, data []byte) error) error {
	dr := bytes.NewReader(zipData)
	r, err := zip.NewReader(dr, int64(len(zipData)))
	if err != nil {
		return err
	}
	return IterZipReader(r, cb)
}

func ReadZipData(zipData []byte) (map[string][]byte, error) {
	res := map[string][]byte{}
	err := IterZipData(zipData, func(f *zip.File, data []byte) error {
		res[f.Name] = data
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
