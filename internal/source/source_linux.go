//go:build linux

package source

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// Open maps path read-only into memory. Empty files are not mapped.
func Open(path string) (*File, error) {
	path = filepath.Clean(path)
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	// The mapping outlives the descriptor.
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if st.IsDir() {
		return nil, fmt.Errorf("source: %s is a directory", path)
	}
	size := st.Size()
	if size == 0 {
		return &File{r: bytes.NewReader(nil), path: path, release: noop}, nil
	}
	if int64(int(size)) != size {
		return nil, fmt.Errorf("source: %s too large to map (%d bytes)", path, size)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("source: mmap %s: %w", path, err)
	}
	return &File{
		r:       bytes.NewReader(data),
		path:    path,
		size:    size,
		release: func() error { return unix.Munmap(data) },
	}, nil
}

func noop() error { return nil }
