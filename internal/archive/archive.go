// Package archive writes deterministic zip archives. Output goes to a
// temporary file in the target directory and is renamed into place only on
// success, so a failed build never leaves a partial artifact under the final
// name.
package archive

import (
	"archive/zip"
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// FixedEpoch is the timestamp stamped on every member of a reproducible
// archive when SOURCE_DATE_EPOCH is not set.
var FixedEpoch = time.Date(2020, 2, 2, 0, 0, 0, 0, time.UTC)

// Timestamp resolves the member timestamp for one build. SOURCE_DATE_EPOCH
// overrides the fixed epoch; disabling reproducibility uses the wall clock.
func Timestamp(sourceDateEpoch string, reproducible bool) (time.Time, error) {
	if !reproducible {
		return time.Now(), nil
	}
	if sourceDateEpoch != "" {
		n, err := strconv.ParseInt(sourceDateEpoch, 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid SOURCE_DATE_EPOCH value %q: %w", sourceDateEpoch, err)
		}
		return time.Unix(n, 0).UTC(), nil
	}
	return FixedEpoch, nil
}

// Record describes one written member for later manifest generation.
type Record struct {
	Path   string
	Digest string // sha256, url-safe base64 without padding
	Size   int64
}

// Writer appends members to a zip archive in call order.
type Writer struct {
	finalPath string
	tmp       *os.File
	zip       *zip.Writer
	modified  time.Time
	records   []Record
}

// NewWriter creates the output directory if needed and opens a temporary
// archive next to the final path. Every member carries the given modified
// time.
func NewWriter(directory, filename string, modified time.Time) (*Writer, error) {
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return nil, err
	}
	tmp, err := os.CreateTemp(directory, "."+filename+".*")
	if err != nil {
		return nil, err
	}
	return &Writer{
		finalPath: filepath.Join(directory, filename),
		tmp:       tmp,
		zip:       zip.NewWriter(tmp),
		modified:  modified,
	}, nil
}

// WriteFile copies the file at source into the archive under target,
// preserving its permission bits. Symlinks were already resolved by the
// caller's stat, so the target's content and mode are what get archived.
func (w *Writer) WriteFile(target, source string) error {
	info, err := os.Stat(source)
	if err != nil {
		return err
	}
	f, err := os.Open(source)
	if err != nil {
		return err
	}
	defer f.Close()
	return w.write(target, info.Mode().Perm(), info.Size(), f)
}

// WriteData adds a generated member with the given content.
func (w *Writer) WriteData(target string, mode fs.FileMode, data []byte) error {
	return w.write(target, mode, int64(len(data)), bytes.NewReader(data))
}

func (w *Writer) write(target string, mode fs.FileMode, size int64, r io.Reader) error {
	hdr := &zip.FileHeader{
		Name:     target,
		Method:   zip.Deflate,
		Modified: w.modified,
	}
	hdr.SetMode(mode)

	member, err := w.zip.CreateHeader(hdr)
	if err != nil {
		return err
	}

	digest := sha256.New()
	if _, err := io.Copy(io.MultiWriter(member, digest), r); err != nil {
		return err
	}

	w.records = append(w.records, Record{
		Path:   target,
		Digest: base64.RawURLEncoding.EncodeToString(digest.Sum(nil)),
		Size:   size,
	})
	return nil
}

// Records returns the members written so far in write order.
func (w *Writer) Records() []Record {
	return w.records
}

// Finalize flushes and syncs the archive and renames it into place,
// returning the final path.
func (w *Writer) Finalize() (string, error) {
	if err := w.zip.Close(); err != nil {
		w.Abort()
		return "", err
	}
	if err := w.tmp.Sync(); err != nil {
		w.Abort()
		return "", err
	}
	if err := w.tmp.Close(); err != nil {
		os.Remove(w.tmp.Name())
		return "", err
	}
	if err := os.Rename(w.tmp.Name(), w.finalPath); err != nil {
		os.Remove(w.tmp.Name())
		return "", err
	}
	return w.finalPath, nil
}

// Abort discards the temporary archive. Safe to call after a failed write.
func (w *Writer) Abort() {
	w.tmp.Close()
	os.Remove(w.tmp.Name())
}
