// Package elfimage provides a read-only memory-mapped view of a binary with
// bounds-checked access. Every offset a scanner derives from file-controlled
// fields (header offsets, table counts, string-table indices) goes through
// the view, which refuses any read that would leave the mapped region. This
// is the single safety boundary between the parser and malformed or
// adversarial binaries.
package elfimage

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Static errors for open/map failure classification. ErrInaccessible and
// ErrUnmappable are both recoverable for the overall run: the caller warns
// and skips the file.
var (
	// ErrInaccessible indicates the file could not be opened for reading.
	ErrInaccessible = errors.New("cannot open")

	// ErrUnmappable indicates the file was opened but could not be mapped.
	ErrUnmappable = errors.New("cannot map")
)

// BoundsError reports a read that was rejected because the requested range
// lies outside the mapped image. Field names the parsed quantity whose
// offset was being dereferenced, so diagnostics can identify the failing
// field without exposing raw offsets to the user-facing message.
type BoundsError struct {
	Field  string
	Offset uint64
	Length uint64
	Size   uint64
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("bad pointer %s", e.Field)
}

// Image is a read-only mapped view of one file's bytes. It is owned by the
// scan of a single binary and must be released with Close before the scan
// returns, on success and failure paths alike.
type Image struct {
	data   []byte
	path   string
	mapped bool
}

// Open maps the file at path read-only. Open failures are classified as
// ErrInaccessible, stat/map failures as ErrUnmappable. The descriptor is
// closed before Open returns regardless of outcome; the mapping itself
// lives until Close.
func Open(path string) (*Image, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrInaccessible, path, err)
	}
	defer func() {
		// The mapping stays valid after the descriptor is closed.
		_ = unix.Close(fd)
	}()

	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrUnmappable, path, err)
	}
	if st.Size <= 0 {
		return nil, fmt.Errorf("%w %s: empty file", ErrUnmappable, path)
	}

	data, err := unix.Mmap(fd, 0, int(st.Size), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrUnmappable, path, err)
	}

	return &Image{data: data, path: path, mapped: true}, nil
}

// New wraps an in-memory byte slice as an Image. Used by tests to feed
// synthetic binaries to the scanners without touching the filesystem.
func New(data []byte, path string) *Image {
	return &Image{data: data, path: path}
}

// Close releases the mapping. Safe to call on an in-memory Image and safe
// to call more than once.
func (img *Image) Close() error {
	if !img.mapped {
		img.data = nil
		return nil
	}
	data := img.data
	img.data = nil
	img.mapped = false
	return unix.Munmap(data)
}

// Path returns the path the image was opened from.
func (img *Image) Path() string {
	return img.path
}

// Size returns the length of the mapped region in bytes.
func (img *Image) Size() uint64 {
	return uint64(len(img.data))
}

// Bytes returns the sub-slice [off, off+length) of the image, or a
// BoundsError naming field if any part of the range falls outside the
// mapped region. The returned slice aliases the mapping and must not be
// retained past Close.
func (img *Image) Bytes(field string, off, length uint64) ([]byte, error) {
	size := img.Size()
	if off > size || length > size-off {
		return nil, &BoundsError{Field: field, Offset: off, Length: length, Size: size}
	}
	return img.data[off : off+length], nil
}

// CString reads the NUL-terminated string starting at off. The starting
// offset is validated like any other pointer, and a string that runs off
// the end of the image without a terminator is rejected the same way: the
// mapped bytes are the only thing delimiting these strings.
func (img *Image) CString(field string, off uint64) (string, error) {
	size := img.Size()
	if off >= size {
		return "", &BoundsError{Field: field, Offset: off, Size: size}
	}
	for end := off; end < size; end++ {
		if img.data[end] == 0 {
			return string(img.data[off:end]), nil
		}
	}
	return "", &BoundsError{Field: field, Offset: off, Length: size - off, Size: size}
}
