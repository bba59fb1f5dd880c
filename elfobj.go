// Copyright 2026 The LinkTK Authors. All rights reserved.
// Use of this source code is governed by the license that
// can be found in the LICENSE file.

package link

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// OpenObject reads a relocatable ELF object from disk and converts it into a
// sealed Module named after the file.
func OpenObject(path string) (*Module, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return NewModuleFromObject(f, filepath.Base(path))
}

// NewModuleFromObject converts an x86-64 relocatable object (ET_REL) into a
// sealed Module. All ELF parsing is done by debug/elf; this function only
// maps symbols and RELA entries onto the engine's model. Each allocatable
// section contributes a local symbol named after itself so that relocations
// against section symbols have a target.
func NewModuleFromObject(r io.ReaderAt, name string) (*Module, error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return nil, fmt.Errorf("error when parsing the ELF file: %w", err)
	}
	if f.Type != elf.ET_REL {
		return nil, fmt.Errorf("%w: %s", ErrNotRelocatable, f.Type)
	}
	if f.Machine != elf.EM_X86_64 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMachine, f.Machine)
	}

	m := NewModule(name)
	for _, s := range f.Sections {
		if s.Type == elf.SHT_NULL || s.Flags&elf.SHF_ALLOC == 0 {
			continue
		}
		if err := m.AddSymbol(s.Name, BindLocal, true, s.Name, 0, s.Size); err != nil {
			return nil, err
		}
	}

	syms, err := f.Symbols()
	if err != nil {
		if !errors.Is(err, elf.ErrNoSymbols) {
			return nil, fmt.Errorf("error when getting the symbols: %w", err)
		}
		syms = nil
	}
	for _, sym := range syms {
		typ := elf.ST_TYPE(sym.Info)
		if typ == elf.STT_SECTION || typ == elf.STT_FILE {
			continue
		}
		var binding Binding
		switch elf.ST_BIND(sym.Info) {
		case elf.STB_LOCAL:
			binding = BindLocal
		case elf.STB_GLOBAL:
			binding = BindGlobal
		case elf.STB_WEAK:
			binding = BindWeak
		default:
			continue
		}
		defined := sym.Section != elf.SHN_UNDEF
		var section string
		var value uint64
		if defined {
			value = sym.Value
			if sym.Section != elf.SHN_ABS && sym.Section != elf.SHN_COMMON && int(sym.Section) < len(f.Sections) {
				section = f.Sections[sym.Section].Name
			}
		}
		if err := m.AddSymbol(sym.Name, binding, defined, section, value, sym.Size); err != nil {
			return nil, err
		}
	}

	for _, s := range f.Sections {
		if s.Type != elf.SHT_RELA || int(s.Info) >= len(f.Sections) {
			continue
		}
		target := f.Sections[s.Info]
		if target.Flags&elf.SHF_ALLOC == 0 || target.Name == ".eh_frame" {
			continue
		}
		data, err := s.Data()
		if err != nil {
			return nil, fmt.Errorf("error when reading section %s: %w", s.Name, err)
		}
		if len(data)%24 != 0 {
			return nil, fmt.Errorf("malformed relocation section %s", s.Name)
		}
		rd := bytes.NewReader(data)
		var rela elf.Rela64
		for rd.Len() > 0 {
			if err := binary.Read(rd, f.ByteOrder, &rela); err != nil {
				return nil, fmt.Errorf("error when reading relocation entry: %w", err)
			}
			symIdx := elf.R_SYM64(rela.Info)
			if symIdx == 0 || int(symIdx) > len(syms) {
				return nil, fmt.Errorf("%w: relocation without symbol in %s", ErrUnsupportedReloc, s.Name)
			}
			esym := syms[symIdx-1]
			relName := esym.Name
			if relName == "" && elf.ST_TYPE(esym.Info) == elf.STT_SECTION && int(esym.Section) < len(f.Sections) {
				relName = f.Sections[esym.Section].Name
			}
			var kind RelocationKind
			switch rt := elf.R_X86_64(elf.R_TYPE64(rela.Info)); rt {
			case elf.R_X86_64_32, elf.R_X86_64_32S:
				kind = RelABS32
			case elf.R_X86_64_PC32:
				kind = RelPC32
			case elf.R_X86_64_PLT32:
				kind = RelPLT32
			default:
				return nil, fmt.Errorf("%w: %s in %s", ErrUnsupportedReloc, rt, s.Name)
			}
			if err := m.AddRelocation(rela.Off, kind, relName, rela.Addend); err != nil {
				return nil, err
			}
		}
	}

	m.Seal()
	return m, nil
}
