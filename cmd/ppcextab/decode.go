package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"ppcextab/internal/extab"
	"ppcextab/internal/render"
)

func cmdDecode(args []string) error {
	fs := flag.NewFlagSet("decode", flag.ExitOnError)
	in := fs.String("in", "", "path to raw exception table bytes")
	namesPath := fs.String("names", "", "path to destructor name list")
	jsonOut := fs.Bool("json", false, "output as JSON")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return fmt.Errorf("--in is required")
	}

	data, err := os.ReadFile(*in)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}

	tab, err := extab.Decode(data)
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}

	fmt.Fprintf(os.Stderr, "table: %d bytes, %d PC actions, %d exception actions, %d relocations\n",
		len(data), len(tab.PCActions), len(tab.Actions), len(tab.Relocations))

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(tab)
	}

	names, err := loadNames(*namesPath)
	if err != nil {
		return err
	}
	report, err := render.Report(tab, names)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	fmt.Print(report)
	return nil
}

// loadNames reads a newline-separated destructor name list. An empty path
// yields no names; the renderer marks the unmatched records.
func loadNames(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read names: %w", err)
	}
	var names []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			names = append(names, line)
		}
	}
	return names, nil
}
