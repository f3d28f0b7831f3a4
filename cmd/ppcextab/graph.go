package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zboralski/lattice"
	latrender "github.com/zboralski/lattice/render"

	"ppcextab/internal/extab"
	"ppcextab/internal/render"
)

func cmdGraph(args []string) error {
	fs := flag.NewFlagSet("graph", flag.ExitOnError)
	in := fs.String("in", "", "path to raw exception table bytes")
	namesPath := fs.String("names", "", "path to destructor name list")
	funcName := fs.String("name", "extab", "function name for graph labels")
	out := fs.String("out", "", "output directory")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return fmt.Errorf("--in is required")
	}
	if *out == "" {
		return fmt.Errorf("--out is required")
	}

	data, err := os.ReadFile(*in)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	tab, err := extab.Decode(data)
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	names, err := loadNames(*namesPath)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(*out, 0755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	// Action-chain CFG: one block per record.
	cfg, err := render.ActionCFG(*funcName, tab, names)
	if err != nil {
		return err
	}
	chainDOT := latrender.DOTCFG(&lattice.CFGGraph{Funcs: []*lattice.FuncCFG{cfg}}, *funcName)
	chainPath := filepath.Join(*out, "chain.dot")
	if err := os.WriteFile(chainPath, []byte(chainDOT), 0644); err != nil {
		return fmt.Errorf("write %s: %w", chainPath, err)
	}

	// Function -> destructor call graph.
	g := render.DtorGraph(*funcName, tab, names)
	dtorDOT := latrender.DOT(g, "dtors")
	dtorPath := filepath.Join(*out, "dtors.dot")
	if err := os.WriteFile(dtorPath, []byte(dtorDOT), 0644); err != nil {
		return fmt.Errorf("write %s: %w", dtorPath, err)
	}

	fmt.Fprintf(os.Stderr, "wrote %s and %s (%d actions, %d dtor refs)\n",
		chainPath, dtorPath, len(tab.Actions), tab.DtorCount())
	return nil
}
