package elfscan

import (
	"debug/elf"

	"github.com/isseis/go-safe-fldd/internal/elfimage"
)

// DynamicInfo is what the dynamic-section walk extracts from one binary.
type DynamicInfo struct {
	// SearchDirs are the DT_RPATH/DT_RUNPATH directory strings, in
	// declaration order. The two tags are treated identically; the
	// RUNPATH-suppresses-RPATH subtlety of some loaders is not modeled.
	SearchDirs []string

	// Needed are the DT_NEEDED library names, in declaration order.
	Needed []string
}

// FindDynamicInfo locates the string-table and dynamic sections and
// extracts the search directories and needed-library names. Any bounds
// failure fails the whole file: without a trustworthy string table none of
// the extracted strings can be trusted.
func FindDynamicInfo(img *elfimage.Image, hdr *Header) (*DynamicInfo, error) {
	// Validate the section-header table start before any scan.
	if _, err := img.Bytes("shdr", hdr.ShOff, 0); err != nil {
		return nil, err
	}

	// First scan: the first string-table section. In binaries produced by
	// a normal link this is .dynstr, the table DT_NEEDED and
	// DT_RPATH/DT_RUNPATH values index into.
	strTabOff := uint64(0)
	strTabIdx := -1
	for i := 0; i < hdr.ShNum; i++ {
		s, err := hdr.sectionHeaderAt(img, i)
		if err != nil {
			return nil, err
		}
		if s.Type == elf.SHT_STRTAB {
			if _, err := img.Bytes("strbase", s.Off, 0); err != nil {
				return nil, err
			}
			strTabOff = s.Off
			strTabIdx = i
			break
		}
	}
	if strTabIdx < 0 {
		return nil, ErrNoStringTable
	}

	info := &DynamicInfo{}

	// Second scan: dynamic sections, resuming from the string-table
	// section rather than index 0 (section 0 is always SHT_NULL, which
	// would trip the early stop below before anything was found).
	//
	// TODO: stopping at the first SHT_NULL header past the string table
	// skips any dynamic section that follows a zeroed entry; validating
	// the section-header table length against the file size up front
	// would make the stop unnecessary. Some large binaries carry zeroed
	// section headers mid-table, and reading past them produced garbage
	// offsets before the stop was added.
	for i := strTabIdx; i < hdr.ShNum; i++ {
		s, err := hdr.sectionHeaderAt(img, i)
		if err != nil {
			return nil, err
		}
		if s.Type == elf.SHT_NULL {
			break
		}
		if s.Type != elf.SHT_DYNAMIC {
			continue
		}

		if err := walkDynamic(img, hdr, s, strTabOff, info); err != nil {
			return nil, err
		}
	}

	return info, nil
}

// walkDynamic scans one dynamic section twice: first for the
// DT_RPATH/DT_RUNPATH search directories, then for the DT_NEEDED names.
// Search directories are collected ahead of the names so that the caller
// registers them before resolving anything this binary needs.
func walkDynamic(img *elfimage.Image, hdr *Header, s sectionHeader, strTabOff uint64, info *DynamicInfo) error {
	count := int(s.Size / hdr.dynSize())

	for i := 0; i < count; i++ {
		d, err := hdr.dynEntryAt(img, s.Off, i)
		if err != nil {
			return err
		}
		if d.Tag == elf.DT_RPATH || d.Tag == elf.DT_RUNPATH {
			dir, err := img.CString("searchpath", strTabOff+d.Val)
			if err != nil {
				return err
			}
			info.SearchDirs = append(info.SearchDirs, dir)
		}
	}

	for i := 0; i < count; i++ {
		d, err := hdr.dynEntryAt(img, s.Off, i)
		if err != nil {
			return err
		}
		if d.Tag == elf.DT_NEEDED {
			name, err := img.CString("lib", strTabOff+d.Val)
			if err != nil {
				return err
			}
			info.Needed = append(info.Needed, name)
		}
	}

	return nil
}
