// Package extab decodes CodeWarrior PowerPC exception tables.
//
// An exception table is per-function metadata emitted by the compiler: a
// flags header, a list of PC ranges mapped to unwind action offsets, and a
// chain of variably-shaped action records (destructor calls, catch-block
// entries, pointer deletion) executed during stack unwinding. Decode turns
// the raw section bytes into an inspectable Table; it performs no I/O and
// never resolves the destructor address placeholders (that is the job of a
// separate runtime fixup table, which this package does not read).
package extab

// PCAction maps one contiguous range of instruction addresses to the offset
// of the first action record to run when unwinding through it.
type PCAction struct {
	StartPC      uint32 `json:"start_pc"`
	EndPC        uint32 `json:"end_pc"` // start + 4 * encoded range units
	ActionOffset uint32 `json:"action_offset"`
}

// Relocation records the location of a 4-byte destructor address field and
// the raw value currently stored there. In shipped objects the value is
// usually an index into the runtime fixup table, not a resolved address.
type Relocation struct {
	Offset uint32 `json:"offset"` // absolute offset of the field in the table
	Value  uint32 `json:"value"`
}

// Table is the fully decoded exception table. It is immutable after Decode
// returns; independent tables may be decoded concurrently.
type Table struct {
	FlagsRaw uint16 `json:"flags_raw"`

	// Flag bits, expanded.
	HasElfVector    bool  `json:"has_elf_vector"`    // bit 1
	LargeFrame      bool  `json:"large_frame"`       // bit 3
	HasFramePointer bool  `json:"has_frame_pointer"` // bit 4
	SavedCR         bool  `json:"saved_cr"`          // bit 5
	FPRSaveCount    uint8 `json:"fpr_save_count"`    // bits 6-10
	GPRSaveCount    uint8 `json:"gpr_save_count"`    // bits 11-15

	// ExtraField is the second header word, carried through undecoded.
	ExtraField uint16 `json:"extra_field"`

	PCActions   []PCAction     `json:"pc_actions"`
	Actions     []ActionRecord `json:"actions"`
	Relocations []Relocation   `json:"relocations"`
}

// headerSize is header words plus the mandatory range terminator: the
// smallest well-formed table.
const headerSize = 8

// Decode parses a raw exception table. On error no partial Table is
// returned. The input buffer is only read; all returned data is owned by the
// Table.
func Decode(data []byte) (*Table, error) {
	if len(data) < headerSize {
		return nil, &TableTooSmallError{Length: len(data)}
	}

	s := newStream(data)
	t := &Table{}

	flags, err := s.ReadUint16()
	if err != nil {
		return nil, err
	}
	t.setFlags(flags)

	if t.ExtraField, err = s.ReadUint16(); err != nil {
		return nil, err
	}

	// An 8-byte table holds only header + terminator; anything nonzero in
	// the terminator slot is malformed rather than a truncated range.
	term, err := s.PeekUint32()
	if err != nil {
		return nil, err
	}
	if len(data) == headerSize && term != 0 {
		return nil, ErrSmallTableTerminator
	}

	if err := decodePCActions(s, t); err != nil {
		return nil, err
	}

	// Whatever follows the terminator is the action record region.
	for s.Remaining() > 0 {
		if err := decodeAction(s, t); err != nil {
			return nil, err
		}
	}

	return t, nil
}

func (t *Table) setFlags(flags uint16) {
	t.FlagsRaw = flags
	t.HasElfVector = (flags>>1)&1 == 1
	t.LargeFrame = (flags>>3)&1 == 1
	t.HasFramePointer = (flags>>4)&1 == 1
	t.SavedCR = (flags>>5)&1 == 1
	t.FPRSaveCount = uint8((flags >> 6) & 0x1f)
	t.GPRSaveCount = uint8((flags >> 11) & 0x1f)
}

// decodePCActions consumes fixed 8-byte range records until the 32-bit zero
// terminator. The terminator is peeked in the loop condition and consumed
// only once, afterwards; the list carries no count field.
func decodePCActions(s *stream, t *Table) error {
	for {
		word, err := s.PeekUint32()
		if err != nil {
			return err
		}
		if word == 0 {
			break
		}

		var pa PCAction
		if pa.StartPC, err = s.ReadUint32(); err != nil {
			return err
		}
		rangeUnits, err := s.ReadUint16()
		if err != nil {
			return err
		}
		pa.EndPC = pa.StartPC + uint32(rangeUnits)*4 // range is encoded as size >> 2
		actionOff, err := s.ReadUint16()
		if err != nil {
			return err
		}
		pa.ActionOffset = uint32(actionOff)
		t.PCActions = append(t.PCActions, pa)
	}
	return s.Skip(4)
}

// decodeAction reads one action record at the cursor, appending it and, for
// destructor-bearing kinds, its relocation.
func decodeAction(s *stream, t *Table) error {
	recordOffset := uint32(s.Position())

	typeByte, err := s.ReadByte()
	if err != nil {
		return err
	}
	kind, ok := actionKind(typeByte & 0x7f)
	if !ok {
		return &InvalidActionError{Value: typeByte & 0x7f, Offset: recordOffset}
	}

	param, err := s.ReadByte()
	if err != nil {
		return err
	}

	size := actionSizes[kind]
	if kind == Specification {
		// The spec array length sits at the start of the payload; peek it
		// to size the record without consuming it.
		count, err := s.PeekUint16()
		if err != nil {
			return err
		}
		size += int(count) * 4
	}

	payload, err := s.ReadBytes(size)
	if err != nil {
		return err
	}

	rec := ActionRecord{
		TableOffset: recordOffset,
		Kind:        kind,
		Param:       param,
		HasEndBit:   typeByte&0x80 != 0,
		Payload:     payload,
	}

	if kind.HasDtorRef() {
		fieldOff, value, ok, err := rec.DtorField()
		if err != nil {
			return err
		}
		if !ok {
			return errNoDtorOffset
		}
		t.Relocations = append(t.Relocations, Relocation{
			Offset: recordOffset + 2 + fieldOff, // 2-byte type/param header
			Value:  value,
		})
	}

	t.Actions = append(t.Actions, rec)
	return nil
}

// DtorCount returns the number of destructor-bearing action records, which
// is the number of display names a renderer consumes.
func (t *Table) DtorCount() int {
	n := 0
	for i := range t.Actions {
		if t.Actions[i].Kind.HasDtorRef() {
			n++
		}
	}
	return n
}
