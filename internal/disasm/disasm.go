// Package disasm provides PowerPC disassembly for exception-table-covered
// code ranges.
package disasm

import (
	"encoding/binary"
	"fmt"
	"strings"

	"golang.org/x/arch/ppc64/ppc64asm"
)

// Inst is a decoded PowerPC instruction with address and raw bytes.
type Inst struct {
	Addr     uint64
	Raw      uint32
	Mnemonic string
	Operands string
	Text     string // full disassembly line
}

// SymbolLookup resolves an address to a symbolic name. Returns ("", false)
// if unknown.
type SymbolLookup func(addr uint64) (name string, ok bool)

// Options controls disassembly behavior.
type Options struct {
	BaseAddr uint64 // VA of the first byte in Data
	MaxInsts int    // maximum instructions to decode; 0 = 1M
}

const defaultMaxInsts = 1_000_000

func (o Options) effectiveMax() int {
	if o.MaxInsts > 0 {
		return o.MaxInsts
	}
	return defaultMaxInsts
}

// Disassemble decodes big-endian PowerPC instructions from a byte region.
// Undecodable words are emitted as .long directives so output stays aligned
// with the input.
func Disassemble(data []byte, opts Options) []Inst {
	n := len(data) / 4
	if max := opts.effectiveMax(); n > max {
		n = max
	}

	result := make([]Inst, 0, n)
	for i := 0; i < n; i++ {
		off := i * 4
		raw := binary.BigEndian.Uint32(data[off : off+4])
		addr := opts.BaseAddr + uint64(off)

		var mnemonic, operands, text string
		inst, err := ppc64asm.Decode(data[off:off+4], binary.BigEndian)
		if err != nil {
			mnemonic = ".long"
			operands = fmt.Sprintf("0x%08x", raw)
			text = fmt.Sprintf(".long 0x%08x", raw)
		} else {
			text = ppc64asm.GNUSyntax(inst, addr)
			parts := strings.SplitN(text, " ", 2)
			mnemonic = parts[0]
			if len(parts) > 1 {
				operands = parts[1]
			}
		}

		result = append(result, Inst{
			Addr:     addr,
			Raw:      raw,
			Mnemonic: mnemonic,
			Operands: operands,
			Text:     text,
		})
	}
	return result
}

// Format renders instructions as stable text output.
// Each line: <addr>  <raw word>  <disasm>  ; <symbol>
func Format(insts []Inst, lookup SymbolLookup) string {
	var b strings.Builder
	for _, inst := range insts {
		fmt.Fprintf(&b, "0x%08x  %08x  %s", inst.Addr, inst.Raw, inst.Text)
		if lookup != nil {
			if name, ok := lookup(inst.Addr); ok {
				fmt.Fprintf(&b, "  ; %s", name)
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
