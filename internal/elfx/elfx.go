// Package elfx provides ELF loading helpers for PowerPC objects that carry
// CodeWarrior exception tables.
package elfx

import (
	"debug/elf"
	"errors"
	"fmt"
	"os"
	"sort"
)

var (
	ErrNotELF       = errors.New("elfx: not an ELF file")
	ErrNotPowerPC   = errors.New("elfx: not PowerPC (EM_PPC)")
	ErrNot32Bit     = errors.New("elfx: not 32-bit ELF")
	ErrNotBigEndian = errors.New("elfx: not big-endian ELF")
	ErrNoSection    = errors.New("elfx: section not found")
	ErrNoSymbol     = errors.New("elfx: symbol not found")
)

// Section names used by the CodeWarrior toolchain for exception data.
const (
	SectionExtab      = "extab"
	SectionExtabIndex = "extabindex"
	SectionText       = ".text"
)

// File wraps a debug/elf.File with convenience methods for exception table
// extraction.
type File struct {
	ELF  *elf.File
	size int64

	funcSyms []elf.Symbol // STT_FUNC symbols sorted by value, loaded lazily
}

// Open opens an ELF file and validates it is a 32-bit big-endian PowerPC
// object (relocatable or linked).
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("elfx: open: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("elfx: stat: %w", err)
	}

	ef, err := elf.NewFile(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", ErrNotELF, err)
	}

	if ef.Class != elf.ELFCLASS32 {
		ef.Close()
		return nil, ErrNot32Bit
	}
	if ef.Data != elf.ELFDATA2MSB {
		ef.Close()
		return nil, ErrNotBigEndian
	}
	if ef.Machine != elf.EM_PPC {
		ef.Close()
		return nil, ErrNotPowerPC
	}

	return &File{ELF: ef, size: info.Size()}, nil
}

// Close releases resources.
func (f *File) Close() error {
	return f.ELF.Close()
}

// FileSize returns the size of the underlying file.
func (f *File) FileSize() int64 { return f.size }

// Section returns a named section's bytes and its load address.
func (f *File) Section(name string) (data []byte, addr uint32, err error) {
	sec := f.ELF.Section(name)
	if sec == nil {
		return nil, 0, fmt.Errorf("%w: %s", ErrNoSection, name)
	}
	data, err = sec.Data()
	if err != nil {
		return nil, 0, fmt.Errorf("elfx: read section %s: %w", name, err)
	}
	return data, uint32(sec.Addr), nil
}

// HasSection reports whether a named section exists.
func (f *File) HasSection(name string) bool {
	return f.ELF.Section(name) != nil
}

// loadFuncSyms reads STT_FUNC symbols once and sorts them by address.
func (f *File) loadFuncSyms() error {
	if f.funcSyms != nil {
		return nil
	}
	syms, err := f.ELF.Symbols()
	if err != nil {
		return fmt.Errorf("elfx: symtab: %w", err)
	}
	funcs := make([]elf.Symbol, 0, len(syms))
	for _, s := range syms {
		if elf.ST_TYPE(s.Info) == elf.STT_FUNC && s.Name != "" {
			funcs = append(funcs, s)
		}
	}
	sort.Slice(funcs, func(i, j int) bool { return funcs[i].Value < funcs[j].Value })
	f.funcSyms = funcs
	return nil
}

// SymbolAt resolves an address to the function symbol containing it. A
// symbol with zero size matches only its exact address.
func (f *File) SymbolAt(addr uint32) (string, bool) {
	if err := f.loadFuncSyms(); err != nil {
		return "", false
	}
	a := uint64(addr)
	i := sort.Search(len(f.funcSyms), func(i int) bool { return f.funcSyms[i].Value > a })
	if i == 0 {
		return "", false
	}
	s := f.funcSyms[i-1]
	if s.Value == a || (s.Size > 0 && a < s.Value+s.Size) {
		return s.Name, true
	}
	return "", false
}

// Symbol looks up a symbol by exact name, returning its address and size.
func (f *File) Symbol(name string) (addr, size uint32, err error) {
	syms, err := f.ELF.Symbols()
	if err != nil {
		return 0, 0, fmt.Errorf("elfx: symtab: %w", err)
	}
	for _, s := range syms {
		if s.Name == name {
			return uint32(s.Value), uint32(s.Size), nil
		}
	}
	return 0, 0, fmt.Errorf("%w: %s", ErrNoSymbol, name)
}
