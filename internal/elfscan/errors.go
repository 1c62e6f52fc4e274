package elfscan

import "errors"

// Static errors. All of them are recoverable at the run level: the resolver
// warns and skips the file that produced them.
var (
	// ErrNotELF indicates the image does not carry the ELF magic or
	// declares a class/encoding we cannot select structure widths for.
	ErrNotELF = errors.New("not an ELF executable or library")

	// ErrNoStringTable indicates no string-table section was found, so
	// neither search paths nor dependency names can be read.
	ErrNoStringTable = errors.New("no string table section")
)
