package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"ppcextab/internal/disasm"
	"ppcextab/internal/elfx"
	"ppcextab/internal/extab"
)

func cmdDisasm(args []string) error {
	fs := flag.NewFlagSet("disasm", flag.ExitOnError)
	obj := fs.String("obj", "", "path to PowerPC ELF object")
	funcName := fs.String("func", "", "only this function (symbol name)")
	maxInsts := fs.Int("max-insts", 0, "instruction decode cap per range")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *obj == "" {
		return fmt.Errorf("--obj is required")
	}

	ef, err := elfx.Open(*obj)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer ef.Close()

	text, textAddr, err := ef.Section(elfx.SectionText)
	if err != nil {
		return fmt.Errorf("no code: %w", err)
	}

	tables, err := collectTables(ef)
	if err != nil {
		return err
	}

	lookup := func(addr uint64) (string, bool) { return ef.SymbolAt(uint32(addr)) }

	matched := false
	for _, tb := range tables {
		if *funcName != "" && tb.FuncName != *funcName {
			continue
		}
		matched = true

		tab, err := extab.Decode(tb.Data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: decode: %v\n", tb.FuncName, err)
			continue
		}

		fmt.Printf("%s (table 0x%08X):\n", tb.FuncName, tb.Entry.TableAddr)
		for _, pa := range tab.PCActions {
			fmt.Printf("  PC range %08X:%08X, action %06X:\n", pa.StartPC, pa.EndPC, pa.ActionOffset)
			region, ok := textRange(text, textAddr, pa)
			if !ok {
				fmt.Printf("    (outside .text)\n")
				continue
			}
			insts := disasm.Disassemble(region, disasm.Options{
				BaseAddr: uint64(pa.StartPC),
				MaxInsts: *maxInsts,
			})
			fmt.Print(indent(disasm.Format(insts, lookup), "    "))
		}
		fmt.Println()
	}

	if *funcName != "" && !matched {
		return fmt.Errorf("no extabindex entry for function %q", *funcName)
	}
	return nil
}

// textRange slices the .text bytes covered by a PC range. It reports false
// when the range lies outside the section or its end wraps below its start,
// which a hostile table can produce.
func textRange(text []byte, textAddr uint32, pa extab.PCAction) ([]byte, bool) {
	if pa.EndPC < pa.StartPC || pa.StartPC < textAddr ||
		uint64(pa.EndPC) > uint64(textAddr)+uint64(len(text)) {
		return nil, false
	}
	return text[pa.StartPC-textAddr : pa.EndPC-textAddr], true
}

func indent(s, prefix string) string {
	var b strings.Builder
	for _, line := range strings.SplitAfter(s, "\n") {
		if line == "" {
			continue
		}
		b.WriteString(prefix)
		b.WriteString(line)
	}
	return b.String()
}
