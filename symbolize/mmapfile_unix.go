//go:build unix

package symbolize

import (
	"errors"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

var errImageClosed = errors.New("image: closed")

// mappedImage is a module image mapped read-only into memory. Symbol
// tables are decoded straight out of the mapping.
type mappedImage struct {
	data []byte
}

// openImage maps the named module image.
func openImage(path string) (imageFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := st.Size()
	if size == 0 || int64(int(size)) != size {
		// Nothing to map, or too large for the address space: read
		// through the file instead.
		return os.Open(path)
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		logf("mmap %s: %v; reading instead", path, err)
		return os.Open(path)
	}
	return &mappedImage{data: data}, nil
}

func (m *mappedImage) ReadAt(p []byte, off int64) (int, error) {
	switch {
	case m.data == nil:
		return 0, errImageClosed
	case off < 0:
		return 0, errors.New("image: negative offset")
	case off >= int64(len(m.data)):
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *mappedImage) Close() error {
	if m.data == nil {
		return nil
	}
	err := unix.Munmap(m.data)
	m.data = nil
	return err
}
