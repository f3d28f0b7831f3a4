package extab

import (
	"encoding/binary"
	"errors"
	"testing"
)

// tb builds table fixtures.
type tb struct {
	b []byte
}

func (t *tb) u8(v uint8) *tb   { t.b = append(t.b, v); return t }
func (t *tb) u16(v uint16) *tb { t.b = binary.BigEndian.AppendUint16(t.b, v); return t }
func (t *tb) u32(v uint32) *tb { t.b = binary.BigEndian.AppendUint32(t.b, v); return t }
func (t *tb) raw(p ...byte) *tb {
	t.b = append(t.b, p...)
	return t
}

// header emits flags, extra field, and no ranges (just the terminator).
func (t *tb) header(flags, extra uint16) *tb {
	return t.u16(flags).u16(extra).u32(0)
}

// pcRange emits one 8-byte range record.
func (t *tb) pcRange(start uint32, units uint16, action uint16) *tb {
	return t.u32(start).u16(units).u16(action)
}

func TestDecodeTooSmall(t *testing.T) {
	for n := 0; n < 8; n++ {
		_, err := Decode(make([]byte, n))
		var tooSmall *TableTooSmallError
		if !errors.As(err, &tooSmall) {
			t.Fatalf("len %d: err = %v, want TableTooSmallError", n, err)
		}
		if tooSmall.Length != n {
			t.Errorf("len %d: error carries length %d", n, tooSmall.Length)
		}
	}
}

func TestDecodeSmallTableBadTerminator(t *testing.T) {
	data := []byte{0, 0, 0, 0, 0, 0, 0, 1}
	_, err := Decode(data)
	if !errors.Is(err, ErrSmallTableTerminator) {
		t.Fatalf("err = %v, want ErrSmallTableTerminator", err)
	}
}

func TestDecodeEmptyTable(t *testing.T) {
	tab, err := Decode(make([]byte, 8))
	if err != nil {
		t.Fatal(err)
	}
	if len(tab.PCActions) != 0 || len(tab.Actions) != 0 || len(tab.Relocations) != 0 {
		t.Errorf("empty table decoded to %+v", tab)
	}
}

func TestDecodeFlags(t *testing.T) {
	// bit1, bit3, bit4, bit5 set; fpr count = 3 (bits 6-10); gpr count = 31.
	flags := uint16(1<<1 | 1<<3 | 1<<4 | 1<<5 | 3<<6 | 31<<11)
	data := (&tb{}).header(flags, 0xbeef).b
	tab, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if tab.FlagsRaw != flags {
		t.Errorf("FlagsRaw = 0x%X", tab.FlagsRaw)
	}
	if !tab.HasElfVector || !tab.LargeFrame || !tab.HasFramePointer || !tab.SavedCR {
		t.Errorf("flag bits = %+v", tab)
	}
	if tab.FPRSaveCount != 3 {
		t.Errorf("FPRSaveCount = %d, want 3", tab.FPRSaveCount)
	}
	if tab.GPRSaveCount != 31 {
		t.Errorf("GPRSaveCount = %d, want 31", tab.GPRSaveCount)
	}
	if tab.ExtraField != 0xbeef {
		t.Errorf("ExtraField = 0x%X", tab.ExtraField)
	}

	tab, err = Decode(make([]byte, 8))
	if err != nil {
		t.Fatal(err)
	}
	if tab.HasElfVector || tab.LargeFrame || tab.HasFramePointer || tab.SavedCR ||
		tab.FPRSaveCount != 0 || tab.GPRSaveCount != 0 {
		t.Errorf("zero flags decoded to %+v", tab)
	}
}

func TestDecodePCRanges(t *testing.T) {
	data := (&tb{}).
		u16(0).u16(0).
		pcRange(0x80003100, 4, 0x10).
		pcRange(0x80003140, 0, 0x1a).
		u32(0). // terminator
		b
	tab, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(tab.PCActions) != 2 {
		t.Fatalf("got %d ranges", len(tab.PCActions))
	}
	first := tab.PCActions[0]
	if first.StartPC != 0x80003100 || first.EndPC != 0x80003110 || first.ActionOffset != 0x10 {
		t.Errorf("range 0 = %+v", first)
	}
	second := tab.PCActions[1]
	if second.StartPC != second.EndPC {
		t.Errorf("zero-unit range: start 0x%X != end 0x%X", second.StartPC, second.EndPC)
	}
}

// TestDecodeTerminatorThenActions checks the peek-vs-consume discipline: the
// zero word ends the range loop without being read as a range, and the bytes
// after it decode as action records.
func TestDecodeTerminatorThenActions(t *testing.T) {
	data := (&tb{}).
		u16(0).u16(0).
		pcRange(0x80000000, 1, 0x08).
		u32(0).         // terminator, followed by nonzero action bytes
		u8(0x0e).u8(0). // Terminate
		u8(0x80).u8(0). // EndOfList with end bit
		b
	tab, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(tab.PCActions) != 1 {
		t.Fatalf("got %d ranges, want 1", len(tab.PCActions))
	}
	if len(tab.Actions) != 2 {
		t.Fatalf("got %d actions, want 2", len(tab.Actions))
	}
	if tab.Actions[0].Kind != Terminate || tab.Actions[0].HasEndBit {
		t.Errorf("action 0 = %+v", tab.Actions[0])
	}
	if tab.Actions[1].Kind != EndOfList || !tab.Actions[1].HasEndBit {
		t.Errorf("action 1 = %+v", tab.Actions[1])
	}
	// Record offsets are absolute: header(4) + range(8) + terminator(4).
	if tab.Actions[0].TableOffset != 16 {
		t.Errorf("action 0 offset = %d, want 16", tab.Actions[0].TableOffset)
	}
	if tab.Actions[1].TableOffset != 18 {
		t.Errorf("action 1 offset = %d, want 18", tab.Actions[1].TableOffset)
	}
}

func TestDecodeRelocationOffset(t *testing.T) {
	// DestroyLocal record begins right after the terminator, at offset 8.
	// Its dtor field sits 2 bytes into the payload, so the relocation lands
	// at 8 + 2 (record header) + 2 = 12.
	data := (&tb{}).
		header(0, 0).
		u8(0x02).u8(0). // DestroyLocal
		u16(0x18).      // local_offset
		u32(0xcafe).    // dtor
		b
	tab, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(tab.Relocations) != 1 {
		t.Fatalf("got %d relocations", len(tab.Relocations))
	}
	r := tab.Relocations[0]
	if r.Offset != 12 {
		t.Errorf("relocation offset = %d, want 12", r.Offset)
	}
	if r.Value != 0xcafe {
		t.Errorf("relocation value = 0x%X, want 0xCAFE", r.Value)
	}
	if tab.DtorCount() != 1 {
		t.Errorf("DtorCount = %d, want 1", tab.DtorCount())
	}
}

func TestDecodeRelocationOrder(t *testing.T) {
	data := (&tb{}).
		header(0, 0).
		u8(0x02).u8(0).u16(0x10).u32(0x1111). // DestroyLocal
		u8(0x0c).u8(0).raw(payload(10)...).   // CatchBlock, no dtor
		u8(0x0a).u8(0).u16(0x14).u32(0x2222). // DeletePointer
		b
	tab, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(tab.Actions) != 3 {
		t.Fatalf("got %d actions", len(tab.Actions))
	}
	if len(tab.Relocations) != 2 {
		t.Fatalf("got %d relocations", len(tab.Relocations))
	}
	if tab.Relocations[0].Value != 0x1111 || tab.Relocations[1].Value != 0x2222 {
		t.Errorf("relocations out of record order: %+v", tab.Relocations)
	}
}

func TestDecodeInvalidAction(t *testing.T) {
	// A valid record follows the bad tag; decode must stop at the bad tag.
	data := (&tb{}).
		header(0, 0).
		u8(17).u8(0). // tag outside 0-16
		u8(0x02).u8(0).u16(0).u32(0).
		b
	_, err := Decode(data)
	var invalid *InvalidActionError
	if !errors.As(err, &invalid) {
		t.Fatalf("err = %v, want InvalidActionError", err)
	}
	if invalid.Value != 17 {
		t.Errorf("value = %d, want 17", invalid.Value)
	}
	if invalid.Offset != 8 {
		t.Errorf("offset = %d, want 8", invalid.Offset)
	}
}

func TestDecodeSpecificationSizing(t *testing.T) {
	// count = 2: record consumes 2 (header) + 10 + 8 bytes exactly.
	data := (&tb{}).
		header(0, 0).
		u8(0x0f).u8(0).
		u16(2).u32(0x100).u32(0x200).
		u32(0xaaaa).u32(0xbbbb).
		b
	tab, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(tab.Actions) != 1 {
		t.Fatalf("got %d actions", len(tab.Actions))
	}
	rec := tab.Actions[0]
	if len(rec.Payload) != 18 {
		t.Errorf("payload length = %d, want 18", len(rec.Payload))
	}
	d, err := rec.Data()
	if err != nil {
		t.Fatal(err)
	}
	spec := d.(SpecificationData)
	if spec.Specs != 2 || len(spec.Spec) != 2 || spec.Spec[1] != 0xbbbb {
		t.Errorf("spec = %+v", spec)
	}
}

func TestDecodeTruncated(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"mid pc range", (&tb{}).u16(0).u16(0).u32(0x80000000).u16(1).b},
		{"missing terminator", (&tb{}).u16(0).u16(0).pcRange(0x80000000, 1, 0).b},
		{"action missing param", (&tb{}).header(0, 0).u8(0x02).b},
		{"action short payload", (&tb{}).header(0, 0).u8(0x02).u8(0).u16(0x10).b},
		{"specification missing count", (&tb{}).header(0, 0).u8(0x0f).u8(0).b},
		{"specification short array", (&tb{}).header(0, 0).u8(0x0f).u8(0).u16(4).u32(0).u32(0).b},
	}
	for _, tt := range tests {
		_, err := Decode(tt.data)
		if !errors.Is(err, ErrUnexpectedEOF) {
			t.Errorf("%s: err = %v, want ErrUnexpectedEOF", tt.name, err)
		}
	}
}
