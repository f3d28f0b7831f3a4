package extab

import (
	"errors"
	"fmt"
)

var (
	// ErrUnexpectedEOF is returned when any read would run past the end of
	// the table buffer.
	ErrUnexpectedEOF = errors.New("extab: unexpected end of table")

	// ErrSmallTableTerminator is returned for an exactly-8-byte table whose
	// mandatory terminator word is nonzero. An 8-byte table has room only
	// for the header and terminator, so a nonzero word there cannot be a
	// valid PC range.
	ErrSmallTableTerminator = errors.New("extab: 8-byte table has nonzero terminator")

	// errNoDtorOffset indicates a bug in the per-kind field offset table,
	// not bad input: a destructor-bearing kind reported no field offset.
	errNoDtorOffset = errors.New("extab: internal: no dtor field offset for kind")
)

// TableTooSmallError is returned when the input is shorter than the fixed
// 8-byte header.
type TableTooSmallError struct {
	Length int
}

func (e *TableTooSmallError) Error() string {
	return fmt.Sprintf("extab: table must be at least 8 bytes, got %d", e.Length)
}

// InvalidActionError is returned when an action record's type tag is outside
// the known range. Offset is the absolute offset of the record in the table.
type InvalidActionError struct {
	Value  uint8
	Offset uint32
}

func (e *InvalidActionError) Error() string {
	return fmt.Sprintf("extab: invalid action value %d at offset 0x%X", e.Value, e.Offset)
}
