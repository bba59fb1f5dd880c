// Copyright 2026 The LinkTK Authors. All rights reserved.
// Use of this source code is governed by the license that
// can be found in the LICENSE file.

package link

import (
	"errors"
	"fmt"
)

var (
	// ErrModuleSealed is returned when a symbol or relocation is added to a
	// module that has already been sealed.
	ErrModuleSealed = errors.New("module is sealed")
	// ErrModuleNotSealed is returned when an unsealed module is passed to the
	// resolver or the relocation engine.
	ErrModuleNotSealed = errors.New("module is not sealed")
	// ErrNoPLT is returned when a PLT32 relocation is processed without a PLT.
	ErrNoPLT = errors.New("no PLT supplied for PLT32 relocation")
	// ErrNotRelocatable is returned when the ELF input is not an ET_REL object.
	ErrNotRelocatable = errors.New("not a relocatable object")
	// ErrUnsupportedMachine is returned when the ELF input targets a machine
	// other than x86-64.
	ErrUnsupportedMachine = errors.New("unsupported machine")
	// ErrUnsupportedReloc is returned when the ELF input carries a relocation
	// type the engine does not model.
	ErrUnsupportedReloc = errors.New("unsupported relocation type")
)

// InvalidBindingError is returned when a symbol declaration is malformed.
type InvalidBindingError struct {
	Module string
	Symbol string
	Reason string
}

func (e *InvalidBindingError) Error() string {
	return fmt.Sprintf("invalid binding for symbol %q in module %q: %s", e.Symbol, e.Module, e.Reason)
}

// DuplicateStrongSymbolError is returned when two modules both provide a
// strong definition of the same name.
type DuplicateStrongSymbolError struct {
	Name   string
	First  string
	Second string
}

func (e *DuplicateStrongSymbolError) Error() string {
	return fmt.Sprintf("duplicate strong symbol %q defined in modules %q and %q", e.Name, e.First, e.Second)
}

// UnresolvedSymbolError is returned when a relocation or a binding event
// references a name with no definition.
type UnresolvedSymbolError struct {
	Name string
}

func (e *UnresolvedSymbolError) Error() string {
	return fmt.Sprintf("unresolved symbol %q", e.Name)
}

// RelocationOverflowError is returned when a patched value does not fit the
// 32-bit relocation field.
type RelocationOverflowError struct {
	Offset uint64
	Kind   RelocationKind
	Value  int64
}

func (e *RelocationOverflowError) Error() string {
	return fmt.Sprintf("relocation %s at offset %#x overflows 32-bit field: computed value %#x", e.Kind, e.Offset, e.Value)
}
