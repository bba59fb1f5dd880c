// Copyright 2026 The LinkTK Authors. All rights reserved.
// Use of this source code is governed by the license that
// can be found in the LICENSE file.

package link

import (
	"github.com/hashicorp/go-multierror"
)

// RelocationKind selects the patch computation for a relocation.
type RelocationKind int

const (
	// RelABS32 patches the absolute address of the symbol: S + A.
	RelABS32 RelocationKind = iota
	// RelPC32 patches the displacement from the relocation site: S + A - P.
	RelPC32
	// RelPLT32 patches the displacement to the symbol's PLT stub:
	// stub(S) + A - P.
	RelPLT32
)

func (k RelocationKind) String() string {
	switch k {
	case RelABS32:
		return "ABS32"
	case RelPC32:
		return "PC32"
	case RelPLT32:
		return "PLT32"
	}
	return "unknown"
}

func (k RelocationKind) valid() bool {
	return k == RelABS32 || k == RelPC32 || k == RelPLT32
}

// Relocation is one patch instruction: write an address-derived value into
// the 32-bit field at Offset once Symbol is resolved.
type Relocation struct {
	Offset uint64
	Kind   RelocationKind
	Symbol string
	Addend int64
}

// Patch is a computed relocation result. Value holds the 32-bit field
// contents zero-extended; for the PC-relative kinds a negative displacement
// is stored in two's complement.
type Patch struct {
	Offset uint64
	Value  uint64
}

// Mode is the error policy of a link run.
type Mode int

const (
	// FinalExecutable aborts on the first broken relocation: an executable
	// with dangling references has no meaningful semantics.
	FinalExecutable Mode = iota
	// RelocatableObject collects every broken relocation and reports the
	// whole batch, since an incomplete link is a normal intermediate state.
	RelocatableObject
)

// Relocate computes the patched value for every relocation of the module
// against the resolved table. PLT32 relocations resolve through plt, which
// may be nil if the module contains none. In FinalExecutable mode the first
// failure aborts and no patches are returned; in RelocatableObject mode all
// failures are collected into one multierror and the patches that did
// succeed are returned alongside it.
func Relocate(table *GlobalSymbolTable, plt *PLT, mod *Module, mode Mode) ([]Patch, error) {
	if !mod.Sealed() {
		return nil, ErrModuleNotSealed
	}

	var errs *multierror.Error
	fail := func(err error) error {
		if mode == FinalExecutable {
			return err
		}
		errs = multierror.Append(errs, err)
		return nil
	}

	// Locals never enter the global table, but a module's own relocations
	// may still reference them.
	locals := make(map[string]Symbol)
	for _, sym := range mod.Symbols() {
		if sym.Binding == BindLocal && sym.Defined {
			locals[sym.Name] = sym
		}
	}
	lookup := func(name string) (Symbol, bool) {
		if sym, ok := locals[name]; ok {
			return sym, true
		}
		return table.Lookup(name)
	}

	var patches []Patch
	for _, rel := range mod.Relocations() {
		sym, ok := lookup(rel.Symbol)
		if !ok || !sym.Defined {
			if err := fail(&UnresolvedSymbolError{Name: rel.Symbol}); err != nil {
				return nil, err
			}
			continue
		}

		var value int64
		switch rel.Kind {
		case RelABS32:
			value = int64(sym.Value) + rel.Addend
			if value < 0 || value >= 1<<32 {
				if err := fail(&RelocationOverflowError{Offset: rel.Offset, Kind: rel.Kind, Value: value}); err != nil {
					return nil, err
				}
				continue
			}
		case RelPC32:
			value = int64(sym.Value) + rel.Addend - int64(rel.Offset)
			if value < -(1<<31) || value >= 1<<31 {
				if err := fail(&RelocationOverflowError{Offset: rel.Offset, Kind: rel.Kind, Value: value}); err != nil {
					return nil, err
				}
				continue
			}
		case RelPLT32:
			if plt == nil {
				// Misconfiguration, not a link error. Abort in both modes.
				return nil, ErrNoPLT
			}
			stub, ok := plt.StubAddress(rel.Symbol)
			if !ok {
				// Locals have no stub. The call relaxes to a direct
				// PC-relative branch to the definition.
				stub = sym.Value
			}
			value = int64(stub) + rel.Addend - int64(rel.Offset)
			if value < -(1<<31) || value >= 1<<31 {
				if err := fail(&RelocationOverflowError{Offset: rel.Offset, Kind: rel.Kind, Value: value}); err != nil {
					return nil, err
				}
				continue
			}
		}
		patches = append(patches, Patch{Offset: rel.Offset, Value: uint64(uint32(value))})
	}
	return patches, errs.ErrorOrNil()
}
