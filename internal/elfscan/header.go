// Package elfscan parses the parts of an ELF image that matter for
// dependency resolution: the header, the PT_INTERP program header, and the
// dynamic section's RPATH/RUNPATH and NEEDED entries. Parsing is done
// directly over the mapped bytes with debug/elf structure layouts; the
// dynamic loader is never involved. All reads go through the image's
// bounds-checked view, so a corrupt offset surfaces as an
// elfimage.BoundsError instead of a wild read.
package elfscan

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"fmt"

	"github.com/isseis/go-safe-fldd/internal/elfimage"
)

// Structure widths per ELF class. The declared e_*entsize fields match
// these in any binary a real toolchain produces; the fixed layouts are what
// debug/elf decodes.
const (
	ehdrSize32 = 52
	ehdrSize64 = 64
	phdrSize32 = 32
	phdrSize64 = 56
	shdrSize32 = 40
	shdrSize64 = 64
	dynSize32  = 8
	dynSize64  = 16
)

// Header holds the table locations extracted from a parsed ELF header,
// normalized across the 32- and 64-bit layouts.
type Header struct {
	Class     elf.Class
	ByteOrder binary.ByteOrder

	PhOff uint64
	PhNum int

	ShOff uint64
	ShNum int
}

// ParseHeader interprets the leading bytes of the image as an ELF header.
// A missing magic signature, or an ident we cannot select structure widths
// from, yields ErrNotELF; this is not fatal for the whole run since a
// loader path or dependency can legitimately reference a non-ELF object.
func ParseHeader(img *elfimage.Image) (*Header, error) {
	ident, err := img.Bytes("ident", 0, elf.EI_NIDENT)
	if err != nil {
		return nil, ErrNotELF
	}
	if string(ident[:len(elf.ELFMAG)]) != elf.ELFMAG {
		return nil, ErrNotELF
	}

	var order binary.ByteOrder
	switch elf.Data(ident[elf.EI_DATA]) {
	case elf.ELFDATA2LSB:
		order = binary.LittleEndian
	case elf.ELFDATA2MSB:
		order = binary.BigEndian
	default:
		return nil, ErrNotELF
	}

	hdr := &Header{ByteOrder: order}

	switch elf.Class(ident[elf.EI_CLASS]) {
	case elf.ELFCLASS32:
		raw, err := img.Bytes("ehdr", 0, ehdrSize32)
		if err != nil {
			return nil, err
		}
		var e elf.Header32
		if err := binary.Read(bytes.NewReader(raw), order, &e); err != nil {
			return nil, fmt.Errorf("decoding ELF header: %w", err)
		}
		hdr.Class = elf.ELFCLASS32
		hdr.PhOff = uint64(e.Phoff)
		hdr.PhNum = int(e.Phnum)
		hdr.ShOff = uint64(e.Shoff)
		hdr.ShNum = int(e.Shnum)
	case elf.ELFCLASS64:
		raw, err := img.Bytes("ehdr", 0, ehdrSize64)
		if err != nil {
			return nil, err
		}
		var e elf.Header64
		if err := binary.Read(bytes.NewReader(raw), order, &e); err != nil {
			return nil, fmt.Errorf("decoding ELF header: %w", err)
		}
		hdr.Class = elf.ELFCLASS64
		hdr.PhOff = e.Phoff
		hdr.PhNum = int(e.Phnum)
		hdr.ShOff = e.Shoff
		hdr.ShNum = int(e.Shnum)
	default:
		return nil, ErrNotELF
	}

	return hdr, nil
}

// progHeader is the class-independent subset of a program header entry.
type progHeader struct {
	Type elf.ProgType
	Off  uint64
}

// sectionHeader is the class-independent subset of a section header entry.
type sectionHeader struct {
	Type elf.SectionType
	Off  uint64
	Size uint64
}

// dynEntry is one (tag, value) pair from the dynamic section.
type dynEntry struct {
	Tag elf.DynTag
	Val uint64
}

func (h *Header) phdrSize() uint64 {
	if h.Class == elf.ELFCLASS32 {
		return phdrSize32
	}
	return phdrSize64
}

func (h *Header) shdrSize() uint64 {
	if h.Class == elf.ELFCLASS32 {
		return shdrSize32
	}
	return shdrSize64
}

func (h *Header) dynSize() uint64 {
	if h.Class == elf.ELFCLASS32 {
		return dynSize32
	}
	return dynSize64
}

// progHeaderAt decodes program header entry i, bounds-validating the entry
// before the read.
func (h *Header) progHeaderAt(img *elfimage.Image, i int) (progHeader, error) {
	off := h.PhOff + uint64(i)*h.phdrSize()
	raw, err := img.Bytes("phdr", off, h.phdrSize())
	if err != nil {
		return progHeader{}, err
	}

	if h.Class == elf.ELFCLASS32 {
		var p elf.Prog32
		if err := binary.Read(bytes.NewReader(raw), h.ByteOrder, &p); err != nil {
			return progHeader{}, fmt.Errorf("decoding program header %d: %w", i, err)
		}
		return progHeader{Type: elf.ProgType(p.Type), Off: uint64(p.Off)}, nil
	}

	var p elf.Prog64
	if err := binary.Read(bytes.NewReader(raw), h.ByteOrder, &p); err != nil {
		return progHeader{}, fmt.Errorf("decoding program header %d: %w", i, err)
	}
	return progHeader{Type: elf.ProgType(p.Type), Off: p.Off}, nil
}

// sectionHeaderAt decodes section header entry i, bounds-validating the
// entry before the read.
func (h *Header) sectionHeaderAt(img *elfimage.Image, i int) (sectionHeader, error) {
	off := h.ShOff + uint64(i)*h.shdrSize()
	raw, err := img.Bytes("shdr", off, h.shdrSize())
	if err != nil {
		return sectionHeader{}, err
	}

	if h.Class == elf.ELFCLASS32 {
		var s elf.Section32
		if err := binary.Read(bytes.NewReader(raw), h.ByteOrder, &s); err != nil {
			return sectionHeader{}, fmt.Errorf("decoding section header %d: %w", i, err)
		}
		return sectionHeader{Type: elf.SectionType(s.Type), Off: uint64(s.Off), Size: uint64(s.Size)}, nil
	}

	var s elf.Section64
	if err := binary.Read(bytes.NewReader(raw), h.ByteOrder, &s); err != nil {
		return sectionHeader{}, fmt.Errorf("decoding section header %d: %w", i, err)
	}
	return sectionHeader{Type: elf.SectionType(s.Type), Off: s.Off, Size: s.Size}, nil
}

// dynEntryAt decodes dynamic entry i of the section starting at sectionOff.
func (h *Header) dynEntryAt(img *elfimage.Image, sectionOff uint64, i int) (dynEntry, error) {
	off := sectionOff + uint64(i)*h.dynSize()
	raw, err := img.Bytes("dyn", off, h.dynSize())
	if err != nil {
		return dynEntry{}, err
	}

	if h.Class == elf.ELFCLASS32 {
		var d elf.Dyn32
		if err := binary.Read(bytes.NewReader(raw), h.ByteOrder, &d); err != nil {
			return dynEntry{}, fmt.Errorf("decoding dynamic entry %d: %w", i, err)
		}
		return dynEntry{Tag: elf.DynTag(d.Tag), Val: uint64(d.Val)}, nil
	}

	var d elf.Dyn64
	if err := binary.Read(bytes.NewReader(raw), h.ByteOrder, &d); err != nil {
		return dynEntry{}, fmt.Errorf("decoding dynamic entry %d: %w", i, err)
	}
	return dynEntry{Tag: elf.DynTag(d.Tag), Val: d.Val}, nil
}
