package elfscan

import (
	"debug/elf"

	"github.com/isseis/go-safe-fldd/internal/elfimage"
)

// FindInterp walks the program-header table looking for the PT_INTERP
// entry and returns the dynamic-loader path it names. The second return
// value is false when the binary declares no interpreter (for example a
// shared library). A bounds failure mid-walk abandons the walk and is
// returned to the caller, which treats the file as malformed and skips it.
func FindInterp(img *elfimage.Image, hdr *Header) (string, bool, error) {
	for i := 0; i < hdr.PhNum; i++ {
		p, err := hdr.progHeaderAt(img, i)
		if err != nil {
			return "", false, err
		}
		if p.Type != elf.PT_INTERP {
			continue
		}

		interp, err := img.CString("interp", p.Off)
		if err != nil {
			return "", false, err
		}
		// At most one interpreter entry is meaningful.
		return interp, true, nil
	}
	return "", false, nil
}
