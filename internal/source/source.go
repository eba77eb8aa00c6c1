// Package source opens track files as seekable, read-only byte sources.
package source

import (
	"bytes"
	"io"
)

// File is an opened input file. It reads from an in-memory view of the
// whole file, so seeks never touch the disk.
//
// A File is not safe for concurrent use; open one per decode.
type File struct {
	r       *bytes.Reader
	path    string
	size    int64
	release func() error
}

var _ io.ReadSeeker = (*File)(nil)

func (f *File) Read(p []byte) (int, error) { return f.r.Read(p) }

func (f *File) Seek(offset int64, whence int) (int64, error) { return f.r.Seek(offset, whence) }

// Path returns the cleaned path the file was opened with.
func (f *File) Path() string { return f.path }

// Size returns the file length in bytes.
func (f *File) Size() int64 { return f.size }

// Close releases the view. Reads after Close fail.
func (f *File) Close() error {
	if f == nil || f.release == nil {
		return nil
	}
	err := f.release()
	f.release = nil
	f.r = bytes.NewReader(nil)
	return err
}
