// Package elfscantesting builds minimal synthetic ELF images for tests.
// The images carry exactly what the scanners consume: an ELF header, an
// optional PT_INTERP program header with its path string, a string table,
// and a dynamic section with RPATH/RUNPATH and NEEDED entries. Tests
// corrupt the returned bytes directly when they need malformed inputs.
package elfscantesting

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// ImageSpec describes the synthetic binary to build.
type ImageSpec struct {
	// Class selects 32- or 64-bit layouts. Zero value means ELFCLASS64.
	Class elf.Class

	// ByteOrder selects the encoding. Nil means little endian.
	ByteOrder binary.ByteOrder

	// Interp, when non-empty, is emitted as a PT_INTERP program header
	// pointing at this loader path.
	Interp string

	// SearchDirs are emitted as DT_RUNPATH entries (or DT_RPATH when
	// UseRPath is set), one per element.
	SearchDirs []string

	// UseRPath emits legacy DT_RPATH tags instead of DT_RUNPATH.
	UseRPath bool

	// Needed are emitted as DT_NEEDED entries, one per element.
	Needed []string
}

const (
	ehdrSize64 = 64
	phdrSize64 = 56
	shdrSize64 = 64
	dynSize64  = 16

	ehdrSize32 = 52
	phdrSize32 = 32
	shdrSize32 = 40
	dynSize32  = 8
)

// BuildImage returns the byte image described by spec.
func BuildImage(t *testing.T, spec ImageSpec) []byte {
	t.Helper()

	if spec.Class == elf.ELFCLASSNONE {
		spec.Class = elf.ELFCLASS64
	}
	if spec.ByteOrder == nil {
		spec.ByteOrder = binary.LittleEndian
	}
	require.Contains(t, []elf.Class{elf.ELFCLASS32, elf.ELFCLASS64}, spec.Class)

	if spec.Class == elf.ELFCLASS32 {
		return build32(t, spec)
	}
	return build64(t, spec)
}

// WriteImage builds the image and writes it to path with executable
// permissions.
func WriteImage(t *testing.T, path string, spec ImageSpec) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, BuildImage(t, spec), 0o755))
}

// strTab assembles a string table (leading NUL, then each string
// NUL-terminated) and returns the table plus the offset of each string.
func strTab(strs []string) ([]byte, []uint64) {
	tab := []byte{0}
	offsets := make([]uint64, len(strs))
	for i, s := range strs {
		offsets[i] = uint64(len(tab))
		tab = append(tab, s...)
		tab = append(tab, 0)
	}
	return tab, offsets
}

// tagVal is one dynamic entry to emit.
type tagVal struct {
	Tag elf.DynTag
	Val uint64
}

// dynTags returns the (tag, string-table offset) pairs for the dynamic
// section, search directories first, then needed names, then DT_NULL.
func dynTags(spec ImageSpec, dirOffs, neededOffs []uint64) []tagVal {
	pathTag := elf.DT_RUNPATH
	if spec.UseRPath {
		pathTag = elf.DT_RPATH
	}

	var tags []tagVal
	for _, off := range dirOffs {
		tags = append(tags, tagVal{pathTag, off})
	}
	for _, off := range neededOffs {
		tags = append(tags, tagVal{elf.DT_NEEDED, off})
	}
	tags = append(tags, tagVal{elf.DT_NULL, 0})
	return tags
}

func ident(class elf.Class, order binary.ByteOrder) [elf.EI_NIDENT]byte {
	var id [elf.EI_NIDENT]byte
	copy(id[:], elf.ELFMAG)
	id[elf.EI_CLASS] = byte(class)
	if order == binary.BigEndian {
		id[elf.EI_DATA] = byte(elf.ELFDATA2MSB)
	} else {
		id[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	}
	id[elf.EI_VERSION] = byte(elf.EV_CURRENT)
	return id
}

func build64(t *testing.T, spec ImageSpec) []byte {
	t.Helper()

	tab, offsets := strTab(append(append([]string{}, spec.SearchDirs...), spec.Needed...))
	dirOffs := offsets[:len(spec.SearchDirs)]
	neededOffs := offsets[len(spec.SearchDirs):]
	tags := dynTags(spec, dirOffs, neededOffs)

	phNum := 0
	if spec.Interp != "" {
		phNum = 1
	}

	phOff := uint64(ehdrSize64)
	interpOff := phOff + uint64(phNum)*phdrSize64
	interpLen := uint64(0)
	if spec.Interp != "" {
		interpLen = uint64(len(spec.Interp)) + 1
	}
	strTabOff := interpOff + interpLen
	dynOff := strTabOff + uint64(len(tab))
	dynSize := uint64(len(tags)) * dynSize64
	shOff := dynOff + dynSize

	buf := &bytes.Buffer{}
	require.NoError(t, binary.Write(buf, spec.ByteOrder, elf.Header64{
		Ident:     ident(elf.ELFCLASS64, spec.ByteOrder),
		Type:      uint16(elf.ET_DYN),
		Machine:   uint16(elf.EM_X86_64),
		Version:   uint32(elf.EV_CURRENT),
		Phoff:     phOff,
		Shoff:     shOff,
		Ehsize:    ehdrSize64,
		Phentsize: phdrSize64,
		Phnum:     uint16(phNum),
		Shentsize: shdrSize64,
		Shnum:     3,
	}))

	if spec.Interp != "" {
		require.NoError(t, binary.Write(buf, spec.ByteOrder, elf.Prog64{
			Type:   uint32(elf.PT_INTERP),
			Off:    interpOff,
			Filesz: interpLen,
			Memsz:  interpLen,
		}))
		buf.WriteString(spec.Interp)
		buf.WriteByte(0)
	}

	buf.Write(tab)

	for _, tag := range tags {
		require.NoError(t, binary.Write(buf, spec.ByteOrder, elf.Dyn64{
			Tag: int64(tag.Tag),
			Val: tag.Val,
		}))
	}

	// Section headers: the mandatory null section, the string table, and
	// the dynamic section.
	require.NoError(t, binary.Write(buf, spec.ByteOrder, elf.Section64{}))
	require.NoError(t, binary.Write(buf, spec.ByteOrder, elf.Section64{
		Type: uint32(elf.SHT_STRTAB),
		Off:  strTabOff,
		Size: uint64(len(tab)),
	}))
	require.NoError(t, binary.Write(buf, spec.ByteOrder, elf.Section64{
		Type:    uint32(elf.SHT_DYNAMIC),
		Off:     dynOff,
		Size:    dynSize,
		Entsize: dynSize64,
	}))

	return buf.Bytes()
}

func build32(t *testing.T, spec ImageSpec) []byte {
	t.Helper()

	tab, offsets := strTab(append(append([]string{}, spec.SearchDirs...), spec.Needed...))
	dirOffs := offsets[:len(spec.SearchDirs)]
	neededOffs := offsets[len(spec.SearchDirs):]
	tags := dynTags(spec, dirOffs, neededOffs)

	phNum := 0
	if spec.Interp != "" {
		phNum = 1
	}

	phOff := uint32(ehdrSize32)
	interpOff := phOff + uint32(phNum)*phdrSize32
	interpLen := uint32(0)
	if spec.Interp != "" {
		interpLen = uint32(len(spec.Interp)) + 1
	}
	strTabOff := interpOff + interpLen
	dynOff := strTabOff + uint32(len(tab))
	dynSize := uint32(len(tags)) * dynSize32
	shOff := dynOff + dynSize

	buf := &bytes.Buffer{}
	require.NoError(t, binary.Write(buf, spec.ByteOrder, elf.Header32{
		Ident:     ident(elf.ELFCLASS32, spec.ByteOrder),
		Type:      uint16(elf.ET_DYN),
		Machine:   uint16(elf.EM_386),
		Version:   uint32(elf.EV_CURRENT),
		Phoff:     phOff,
		Shoff:     shOff,
		Ehsize:    ehdrSize32,
		Phentsize: phdrSize32,
		Phnum:     uint16(phNum),
		Shentsize: shdrSize32,
		Shnum:     3,
	}))

	if spec.Interp != "" {
		require.NoError(t, binary.Write(buf, spec.ByteOrder, elf.Prog32{
			Type:   uint32(elf.PT_INTERP),
			Off:    interpOff,
			Filesz: interpLen,
			Memsz:  interpLen,
		}))
		buf.WriteString(spec.Interp)
		buf.WriteByte(0)
	}

	buf.Write(tab)

	for _, tag := range tags {
		require.NoError(t, binary.Write(buf, spec.ByteOrder, elf.Dyn32{
			Tag: int32(tag.Tag),
			Val: uint32(tag.Val),
		}))
	}

	require.NoError(t, binary.Write(buf, spec.ByteOrder, elf.Section32{}))
	require.NoError(t, binary.Write(buf, spec.ByteOrder, elf.Section32{
		Type: uint32(elf.SHT_STRTAB),
		Off:  strTabOff,
		Size: uint32(len(tab)),
	}))
	require.NoError(t, binary.Write(buf, spec.ByteOrder, elf.Section32{
		Type:    uint32(elf.SHT_DYNAMIC),
		Off:     dynOff,
		Size:    dynSize,
		Entsize: dynSize32,
	}))

	return buf.Bytes()
}
