package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "decode":
		err = cmdDecode(os.Args[2:])
	case "scan":
		err = cmdScan(os.Args[2:])
	case "disasm":
		err = cmdDisasm(os.Args[2:])
	case "graph":
		err = cmdGraph(os.Args[2:])
	case "help", "-h", "--help":
		usage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `ppcextab — CodeWarrior PowerPC exception table decoder

Usage:
  ppcextab decode --in <file> [--names <file>] [--json]   Decode a raw table and print a report
  ppcextab scan   --obj <path> [--dump] [--json]          Decode every table in an ELF via extabindex
  ppcextab disasm --obj <path> [--func <name>]            Disassemble code covered by PC ranges
  ppcextab graph  --in <file> --out <dir> [--names <file>] [--name <label>]  Write action-chain and dtor DOT graphs

Flags:
  --in <file>       Raw exception table bytes
  --obj <path>      PowerPC ELF object with extab/extabindex sections
  --names <file>    Newline-separated destructor names, one per dtor-bearing record
  --name <label>    Function name used as the graph label (default "extab")
  --func <name>     Restrict disasm to one function
  --max-insts <n>   Instruction decode cap per range
  --out <dir>       Output directory
  --dump            Print the full report for every table
  --json            Output as JSON
`)
}
