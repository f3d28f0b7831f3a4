package render

import (
	"encoding/binary"
	"strings"
	"testing"

	"ppcextab/internal/extab"
)

// buildTable assembles a table from raw parts and decodes it.
func buildTable(t *testing.T, flags uint16, body ...byte) *extab.Table {
	t.Helper()
	data := binary.BigEndian.AppendUint16(nil, flags)
	data = binary.BigEndian.AppendUint16(data, 0)
	data = binary.BigEndian.AppendUint32(data, 0) // range terminator
	data = append(data, body...)
	tab, err := extab.Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	return tab
}

func mustReport(t *testing.T, tab *extab.Table, names []string) string {
	t.Helper()
	out, err := Report(tab, names)
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func TestReportFlagLines(t *testing.T) {
	tab := buildTable(t, 1<<3|1<<5) // large frame, saved CR
	out := mustReport(t, tab, nil)

	for _, want := range []string{
		"Flag values:\n",
		"Has Elf Vector: No\n",
		"Large Frame: Yes\n",
		"Has Frame Pointer: No\n",
		"Saved CR: Yes\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Saved FPR range") || strings.Contains(out, "Saved GPR range") {
		t.Errorf("zero save counts must not emit range lines:\n%s", out)
	}
}

func TestReportSaveRanges(t *testing.T) {
	tests := []struct {
		flags uint16
		want  string
	}{
		{1 << 6, "Saved FPR range: fp31\n"},       // count 1: single register
		{3 << 6, "Saved FPR range: fp29-fp31\n"},  // count 3: range
		{1 << 11, "Saved GPR range: r31\n"},
		{5 << 11, "Saved GPR range: r27-r31\n"},
	}
	for _, tt := range tests {
		out := mustReport(t, buildTable(t, tt.flags), nil)
		if !strings.Contains(out, tt.want) {
			t.Errorf("flags 0x%X: missing %q in:\n%s", tt.flags, tt.want, out)
		}
	}
}

func TestReportPCActionLines(t *testing.T) {
	data := binary.BigEndian.AppendUint16(nil, 0)
	data = binary.BigEndian.AppendUint16(data, 0)
	// 4-unit range, then a zero-length range (start == end).
	data = binary.BigEndian.AppendUint32(data, 0x80003100)
	data = binary.BigEndian.AppendUint16(data, 4)
	data = binary.BigEndian.AppendUint16(data, 0x10)
	data = binary.BigEndian.AppendUint32(data, 0x80003200)
	data = binary.BigEndian.AppendUint16(data, 0)
	data = binary.BigEndian.AppendUint16(data, 0x2a)
	data = binary.BigEndian.AppendUint32(data, 0)

	tab, err := extab.Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	out := mustReport(t, tab, nil)

	if !strings.Contains(out, "PC actions:\n") {
		t.Errorf("missing PC actions section:\n%s", out)
	}
	if !strings.Contains(out, "PC=80003100:80003110, Action: 000010\n") {
		t.Errorf("missing ranged PC line:\n%s", out)
	}
	if !strings.Contains(out, "PC=80003200, Action: 00002A\n") {
		t.Errorf("missing single-PC line:\n%s", out)
	}
}

func TestReportNoPCSectionWhenEmpty(t *testing.T) {
	out := mustReport(t, buildTable(t, 0), nil)
	if strings.Contains(out, "PC actions:") {
		t.Errorf("empty range list must omit the section:\n%s", out)
	}
	if strings.Contains(out, "Exception actions:") {
		t.Errorf("empty action list must omit the section:\n%s", out)
	}
}

func TestReportDestroyLocalAndNames(t *testing.T) {
	body := []byte{
		0x02, 0x00, // DestroyLocal
		0x00, 0x18, // local_offset
		0x00, 0x00, 0x00, 0x00, // dtor placeholder
		0x82, 0x00, // DestroyLocal with end bit
		0x00, 0x20,
		0x00, 0x00, 0x00, 0x00,
	}
	tab := buildTable(t, 0, body...)
	out := mustReport(t, tab, []string{"~Widget"})

	if !strings.Contains(out, "Type: DESTROYLOCAL\n") {
		t.Errorf("missing type line:\n%s", out)
	}
	if !strings.Contains(out, "Local: 0x18(SP)\n") {
		t.Errorf("missing SP-relative local line:\n%s", out)
	}
	if !strings.Contains(out, "Dtor: \"~Widget\"\n") {
		t.Errorf("missing dtor name:\n%s", out)
	}
	// Second record has no name left: explicit marker, no failure.
	if !strings.Contains(out, "Error: Invalid function array index\n") {
		t.Errorf("missing marker for unmatched record:\n%s", out)
	}
	if !strings.Contains(out, "Has end bit\n") {
		t.Errorf("missing end bit line:\n%s", out)
	}
	// Record offset header: first record sits at offset 8.
	if !strings.Contains(out, "000008:\n") {
		t.Errorf("missing record offset header:\n%s", out)
	}
}

func TestReportFramePointerRegister(t *testing.T) {
	body := []byte{
		0x02, 0x00,
		0x00, 0x18,
		0x00, 0x00, 0x00, 0x00,
	}
	tab := buildTable(t, 1<<4, body...) // has_frame_pointer
	out := mustReport(t, tab, []string{"d"})
	if !strings.Contains(out, "Local: 0x18(FP)\n") {
		t.Errorf("frame pointer tables address locals via FP:\n%s", out)
	}
}

func TestReportPointerAddressingModes(t *testing.T) {
	body := []byte{
		0x04, 0x00, // DestroyLocalPointer, frame-offset mode
		0x00, 0x40,
		0x00, 0x00, 0x00, 0x00,
		0x04, 0x80, // DestroyLocalPointer, register mode (param bit 7)
		0x00, 0x1f, // r31
		0x00, 0x00, 0x00, 0x00,
	}
	tab := buildTable(t, 0, body...)
	out := mustReport(t, tab, []string{"a", "b"})

	if !strings.Contains(out, "Pointer: 0x40(SP)\n") {
		t.Errorf("missing frame-offset pointer:\n%s", out)
	}
	if !strings.Contains(out, "Pointer: r31\n") {
		t.Errorf("missing register pointer:\n%s", out)
	}
}

func TestReportMemberCondModes(t *testing.T) {
	rec := func(param byte) []byte {
		return []byte{
			0x08, param, // DestroyMemberCond
			0x00, 0x0c, // condition
			0x00, 0x10, // object_ptr
			0x00, 0x00, 0x00, 0x24, // member_offset
			0x00, 0x00, // unk
			0x00, 0x00, 0x00, 0x00, // dtor
		}
	}

	// Bit 6 clear, bit 7 clear: both frame offsets.
	out := mustReport(t, buildTable(t, 0, rec(0x00)...), []string{"d"})
	if !strings.Contains(out, "Member: 0x10(SP)+0x24\n") || !strings.Contains(out, "Cond: 0xC(SP)\n") {
		t.Errorf("mode 00:\n%s", out)
	}

	// Bit 6 set: member held in a register; bit 7 set: condition in a register.
	out = mustReport(t, buildTable(t, 0, rec(0xc0)...), []string{"d"})
	if !strings.Contains(out, "Member: 0x24(r16)\n") || !strings.Contains(out, "Cond: r12\n") {
		t.Errorf("mode 11:\n%s", out)
	}
}

func TestReportCatchAndSpecification(t *testing.T) {
	body := []byte{
		0x0c, 0x00, // CatchBlock
		0x00, 0x00, // unk
		0x80, 0x00, 0x40, 0x00, // catch_type
		0x01, 0x10, // catch_pc_offset
		0x00, 0x2c, // cinfo_ref
		0x0f, 0x00, // Specification
		0x00, 0x01, // count = 1
		0x00, 0x00, 0x02, 0x00, // pc_offset
		0x00, 0x00, 0x00, 0x30, // cinfo_ref
		0x80, 0x00, 0x50, 0x00, // spec[0]
	}
	tab := buildTable(t, 0, body...)
	out := mustReport(t, tab, nil)

	if !strings.Contains(out, "Type: CATCHBLOCK (Small)\n") {
		t.Errorf("missing catch block type:\n%s", out)
	}
	if !strings.Contains(out, "Local: 0x2C(SP)\nPC: 00000110\ncatch_type_addr: 80004000\n") {
		t.Errorf("catch block fields:\n%s", out)
	}
	if !strings.Contains(out, "Type: SPECIFICATION\n") {
		t.Errorf("missing specification type:\n%s", out)
	}
	if !strings.Contains(out, "Local: 0x30(SP)\nPC: 00000200\nTypes: 1\n") {
		t.Errorf("specification fields:\n%s", out)
	}
}
