package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"ppcextab/internal/elfx"
	"ppcextab/internal/extab"
	"ppcextab/internal/render"
)

// scanResult is the per-function summary emitted by scan.
type scanResult struct {
	Func      string       `json:"func"`
	FuncAddr  uint32       `json:"func_addr"`
	FuncSize  uint32       `json:"func_size"`
	TableAddr uint32       `json:"table_addr"`
	TableLen  int          `json:"table_len"`
	Error     string       `json:"error,omitempty"`
	Table     *extab.Table `json:"table,omitempty"`
}

func cmdScan(args []string) error {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	obj := fs.String("obj", "", "path to PowerPC ELF object")
	dump := fs.Bool("dump", false, "print the full report for every table")
	jsonOut := fs.Bool("json", false, "output as JSON")

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

	fmt.Fprintf(os.Stderr, "ELF: 32-bit big-endian PowerPC, %d bytes\n", ef.FileSize())

	tables, err := collectTables(ef)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "extabindex entries: %d\n", len(tables))

	results := make([]scanResult, 0, len(tables))
	for _, tb := range tables {
		res := scanResult{
			Func:      tb.FuncName,
			FuncAddr:  tb.Entry.FuncAddr,
			FuncSize:  tb.Entry.FuncSize,
			TableAddr: tb.Entry.TableAddr,
			TableLen:  len(tb.Data),
		}
		tab, err := extab.Decode(tb.Data)
		if err != nil {
			res.Error = err.Error()
		} else if *jsonOut || *dump {
			res.Table = tab
		}

		if !*jsonOut {
			if res.Error != "" {
				fmt.Printf("%-30s table=0x%08X len=%-5d ERROR: %s\n",
					res.Func, res.TableAddr, res.TableLen, res.Error)
			} else {
				fmt.Printf("%-30s table=0x%08X len=%-5d ranges=%-3d actions=%-3d relocs=%d\n",
					res.Func, res.TableAddr, res.TableLen,
					len(tab.PCActions), len(tab.Actions), len(tab.Relocations))
			}
			if *dump && tab != nil {
				report, err := render.Report(tab, dtorNames(ef, tab))
				if err != nil {
					return fmt.Errorf("render %s: %w", res.Func, err)
				}
				fmt.Println()
				fmt.Print(report)
				fmt.Println()
			}
		}
		results = append(results, res)
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	return nil
}

// boundTable is one extabindex entry with its table bytes sliced out of the
// extab section.
type boundTable struct {
	Entry    extab.IndexEntry
	FuncName string
	Data     []byte
}

// collectTables locates the exception data sections and pairs every index
// entry with its table bytes. An object with an extab section but no index
// is treated as holding a single table.
func collectTables(ef *elfx.File) ([]*boundTable, error) {
	extabData, extabAddr, err := ef.Section(elfx.SectionExtab)
	if err != nil {
		return nil, fmt.Errorf("no exception tables: %w", err)
	}

	if !ef.HasSection(elfx.SectionExtabIndex) {
		return []*boundTable{{
			Entry:    extab.IndexEntry{TableAddr: extabAddr},
			FuncName: "(whole extab section)",
			Data:     extabData,
		}}, nil
	}

	idxData, _, err := ef.Section(elfx.SectionExtabIndex)
	if err != nil {
		return nil, err
	}
	entries, err := extab.ParseIndex(idxData)
	if err != nil {
		return nil, err
	}
	slices, err := extab.TableSlices(entries, extabAddr, len(extabData))
	if err != nil {
		return nil, err
	}

	tables := make([]*boundTable, len(entries))
	for i, e := range entries {
		name, ok := ef.SymbolAt(e.FuncAddr)
		if !ok {
			name = fmt.Sprintf("fn_%08X", e.FuncAddr)
		}
		tables[i] = &boundTable{
			Entry:    e,
			FuncName: name,
			Data:     extabData[slices[i].Start:slices[i].End],
		}
	}
	return tables, nil
}

// dtorNames resolves each relocation's stored value as a function symbol
// address. Values the symtab does not cover stay empty and render as the
// missing-name marker.
func dtorNames(ef *elfx.File, tab *extab.Table) []string {
	names := make([]string, len(tab.Relocations))
	for i, r := range tab.Relocations {
		if name, ok := ef.SymbolAt(r.Value); ok {
			names[i] = name
		}
	}
	return names
}
