// Package render produces human-readable reports and Graphviz DOT output
// from decoded exception tables.
package render

import (
	"fmt"
	"strings"

	"ppcextab/internal/extab"
)

// missingNameMarker is emitted when the supplied destructor name list runs
// out before the destructor-bearing records do.
const missingNameMarker = "Error: Invalid function array index"

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

// saveRange formats a saved-register run. A count of N covers registers
// 31-(N-1) through 31; a count of 1 is the single register 31, not a range.
func saveRange(prefix string, count uint8) string {
	start := 31 - (int(count) - 1)
	if start == 31 {
		return fmt.Sprintf("%s31", prefix)
	}
	return fmt.Sprintf("%s%d-%s31", prefix, start, prefix)
}

// Report renders a decoded table as diagnostic text. names supplies
// destructor display names, consumed one per destructor-bearing action
// record in record order; empty or missing entries render an explicit
// marker instead of failing.
func Report(t *extab.Table, names []string) (string, error) {
	var b strings.Builder

	b.WriteString("Flag values:\n")
	fmt.Fprintf(&b, "Has Elf Vector: %s\n", yesNo(t.HasElfVector))
	fmt.Fprintf(&b, "Large Frame: %s\n", yesNo(t.LargeFrame))
	fmt.Fprintf(&b, "Has Frame Pointer: %s\n", yesNo(t.HasFramePointer))
	fmt.Fprintf(&b, "Saved CR: %s\n", yesNo(t.SavedCR))
	if t.FPRSaveCount != 0 {
		fmt.Fprintf(&b, "Saved FPR range: %s\n", saveRange("fp", t.FPRSaveCount))
	}
	if t.GPRSaveCount != 0 {
		fmt.Fprintf(&b, "Saved GPR range: %s\n", saveRange("r", t.GPRSaveCount))
	}
	b.WriteByte('\n')

	if len(t.PCActions) > 0 {
		b.WriteString("PC actions:\n")
		for _, pa := range t.PCActions {
			if pa.StartPC != pa.EndPC {
				fmt.Fprintf(&b, "PC=%08X:%08X, Action: %06X\n", pa.StartPC, pa.EndPC, pa.ActionOffset)
			} else {
				fmt.Fprintf(&b, "PC=%08X, Action: %06X\n", pa.StartPC, pa.ActionOffset)
			}
		}
		b.WriteByte('\n')
	}

	if len(t.Actions) > 0 {
		b.WriteString("Exception actions:\n")
		localReg := "SP"
		if t.HasFramePointer {
			localReg = "FP"
		}
		nameIndex := 0

		for i := range t.Actions {
			rec := &t.Actions[i]
			fmt.Fprintf(&b, "%06X:\nType: %s\n", rec.TableOffset, rec.Kind)

			if err := writeActionFields(&b, rec, localReg); err != nil {
				return "", fmt.Errorf("render action at 0x%X: %w", rec.TableOffset, err)
			}

			if rec.Kind.HasDtorRef() {
				if nameIndex < len(names) && names[nameIndex] != "" {
					fmt.Fprintf(&b, "Dtor: %q\n", names[nameIndex])
				} else {
					b.WriteString(missingNameMarker + "\n")
				}
				nameIndex++
			}

			if rec.HasEndBit {
				b.WriteString("Has end bit\n")
			}
		}
	}

	return b.String(), nil
}

// writeActionFields renders the type-specific lines for one record, applying
// the addressing-mode bits of the param byte.
func writeActionFields(b *strings.Builder, rec *extab.ActionRecord, localReg string) error {
	data, err := rec.Data()
	if err != nil {
		return err
	}

	switch d := data.(type) {
	case extab.EndOfListData, extab.TerminateData:
		// no fields

	case extab.BranchData:
		fmt.Fprintf(b, "Action: %06X\n", d.TargetOffset)

	case extab.DestroyLocalData:
		fmt.Fprintf(b, "Local: 0x%X(%s)\n", d.LocalOffset, localReg)

	case extab.DestroyLocalCondData:
		fmt.Fprintf(b, "Local: 0x%X(%s)\n", d.LocalOffset, localReg)
		// Param bit 0 selects the condition's addressing mode.
		if rec.Param&1 == 0 {
			fmt.Fprintf(b, "Cond: 0x%X(%s)\n", d.Condition, localReg)
		} else {
			fmt.Fprintf(b, "Cond: r%d\n", d.Condition)
		}

	case extab.DestroyLocalPointerData:
		if rec.Param>>7 == 0 {
			fmt.Fprintf(b, "Pointer: 0x%X(%s)\n", d.LocalPointer, localReg)
		} else {
			fmt.Fprintf(b, "Pointer: r%d\n", d.LocalPointer)
		}

	case extab.DestroyLocalArrayData:
		fmt.Fprintf(b, "Array: 0x%X(%s)\nElements: %d\nSize: %d\n",
			d.LocalArray, localReg, d.Elements, d.ElementSize)

	case extab.DestroyBaseData:
		writeMember(b, rec.Param>>7, d.ObjectPointer, d.MemberOffset, localReg)

	case extab.DestroyMemberData:
		writeMember(b, rec.Param>>7, d.ObjectPointer, d.MemberOffset, localReg)

	case extab.DestroyMemberCondData:
		writeMember(b, (rec.Param>>6)&1, d.ObjectPointer, d.MemberOffset, localReg)
		writeCond(b, rec.Param>>7, d.Condition, localReg)

	case extab.DestroyMemberArrayData:
		writeMember(b, rec.Param>>7, d.ObjectPointer, d.MemberOffset, localReg)
		fmt.Fprintf(b, "Elements: %d\nSize: %d\n", d.Elements, d.ElementSize)

	case extab.DeletePointerData:
		writePointer(b, rec.Param>>7, d.ObjectPointer, localReg)

	case extab.DeletePointerCondData:
		writePointer(b, (rec.Param>>6)&1, d.ObjectPointer, localReg)
		writeCond(b, rec.Param>>7, d.Condition, localReg)

	case extab.CatchBlockData:
		fmt.Fprintf(b, "Local: 0x%X(%s)\nPC: %08X\ncatch_type_addr: %08X\n",
			d.CinfoRef, localReg, d.CatchPCOffset, d.CatchType)

	case extab.ActiveCatchBlockData:
		fmt.Fprintf(b, "Local: 0x%X(%s)\n", d.CinfoRef, localReg)

	case extab.SpecificationData:
		fmt.Fprintf(b, "Local: 0x%X(%s)\nPC: %08X\nTypes: %d\n",
			d.CinfoRef, localReg, d.PCOffset, d.Specs)

	case extab.CatchBlock32Data:
		fmt.Fprintf(b, "Local: 0x%X(%s)\nPC: %08X\ncatch_type_addr: %08X\n",
			d.CinfoRef, localReg, d.CatchPCOffset, d.CatchType)

	default:
		return fmt.Errorf("render: unhandled action data %T", data)
	}
	return nil
}

// writeMember renders an object member operand: mode 0 addresses the object
// through a frame slot plus offset, mode 1 holds the object in a register.
func writeMember(b *strings.Builder, mode uint8, objectPtr uint16, memberOff uint32, localReg string) {
	if mode == 0 {
		fmt.Fprintf(b, "Member: 0x%X(%s)+0x%X\n", objectPtr, localReg, memberOff)
	} else {
		fmt.Fprintf(b, "Member: 0x%X(r%d)\n", memberOff, objectPtr)
	}
}

func writePointer(b *strings.Builder, mode uint8, objectPtr uint16, localReg string) {
	if mode == 0 {
		fmt.Fprintf(b, "Pointer: 0x%X(%s)\n", objectPtr, localReg)
	} else {
		fmt.Fprintf(b, "Pointer: r%d\n", objectPtr)
	}
}

func writeCond(b *strings.Builder, mode uint8, condition uint16, localReg string) {
	if mode == 0 {
		fmt.Fprintf(b, "Cond: 0x%X(%s)\n", condition, localReg)
	} else {
		fmt.Fprintf(b, "Cond: r%d\n", condition)
	}
}
