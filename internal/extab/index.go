package extab

import (
	"errors"
	"fmt"
	"sort"
)

// IndexEntry is one record of the extabindex section: it binds a function's
// address range to the exception table that covers it.
//
// Layout (big-endian, 12 bytes):
//
//	+0x0: function address  uint32
//	+0x4: function size     uint32
//	+0x8: table address     uint32
type IndexEntry struct {
	FuncAddr  uint32 `json:"func_addr"`
	FuncSize  uint32 `json:"func_size"`
	TableAddr uint32 `json:"table_addr"`
}

// indexEntrySize is the fixed record size in the extabindex section.
const indexEntrySize = 12

// ErrBadIndexSize is returned when an extabindex section is not a whole
// number of 12-byte entries.
var ErrBadIndexSize = errors.New("extab: extabindex size is not a multiple of 12")

// ParseIndex decodes an extabindex section. Entries appear in section order;
// all-zero entries at the tail are linker padding and are dropped.
func ParseIndex(data []byte) ([]IndexEntry, error) {
	if len(data)%indexEntrySize != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrBadIndexSize, len(data))
	}

	s := newStream(data)
	entries := make([]IndexEntry, 0, len(data)/indexEntrySize)
	for s.Remaining() > 0 {
		var e IndexEntry
		var err error
		if e.FuncAddr, err = s.ReadUint32(); err != nil {
			return nil, err
		}
		if e.FuncSize, err = s.ReadUint32(); err != nil {
			return nil, err
		}
		if e.TableAddr, err = s.ReadUint32(); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	for len(entries) > 0 {
		last := entries[len(entries)-1]
		if last != (IndexEntry{}) {
			break
		}
		entries = entries[:len(entries)-1]
	}
	return entries, nil
}

// TableSlice is the byte range [Start, End) of one exception table within
// the extab section.
type TableSlice struct {
	Start int
	End   int
}

// TableSlices returns, aligned with entries, the byte range of each table
// within the extab section (which starts at sectionAddr and is sectionLen
// bytes long). Tables are contiguous in the section, so each one ends where
// the next begins; the last runs to the section end. An entry whose table
// address falls outside the section is an error.
func TableSlices(entries []IndexEntry, sectionAddr uint32, sectionLen int) ([]TableSlice, error) {
	starts := make([]int, len(entries))
	for i, e := range entries {
		if e.TableAddr < sectionAddr || int(e.TableAddr-sectionAddr) >= sectionLen {
			return nil, fmt.Errorf("extab: table address 0x%X outside extab section", e.TableAddr)
		}
		starts[i] = int(e.TableAddr - sectionAddr)
	}

	sorted := append([]int(nil), starts...)
	sort.Ints(sorted)
	endOf := make(map[int]int, len(sorted))
	for i, off := range sorted {
		if i+1 < len(sorted) {
			endOf[off] = sorted[i+1]
		} else {
			endOf[off] = sectionLen
		}
	}

	out := make([]TableSlice, len(entries))
	for i := range entries {
		out[i] = TableSlice{Start: starts[i], End: endOf[starts[i]]}
	}
	return out, nil
}
