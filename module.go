// Copyright 2026 The LinkTK Authors. All rights reserved.
// Use of this source code is governed by the license that
// can be found in the LICENSE file.

package link

// Module is one input unit of the link: an ordered set of symbols plus the
// relocations that reference them. A module is mutable while it is being
// populated and immutable after Seal. Sealed modules are safe to share
// across any number of resolution sessions.
type Module struct {
	name    string
	symbols []Symbol
	symIdx  map[string]int
	relocs  []Relocation
	sealed  bool
}

// NewModule returns an empty, unsealed module.
func NewModule(name string) *Module {
	return &Module{
		name:   name,
		symIdx: make(map[string]int),
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return m.name
}

// AddSymbol records a symbol declaration. An undefined symbol must not carry
// a section or a value, the binding must be one of local, global or weak, and
// a name may be declared at most once per module.
func (m *Module) AddSymbol(name string, binding Binding, defined bool, section string, value, size uint64) error {
	if m.sealed {
		return ErrModuleSealed
	}
	if !binding.valid() {
		return &InvalidBindingError{Module: m.name, Symbol: name, Reason: "unknown binding"}
	}
	if !defined && (value != 0 || section != "") {
		return &InvalidBindingError{Module: m.name, Symbol: name, Reason: "undefined symbol with section or value"}
	}
	if _, ok := m.symIdx[name]; ok {
		return &InvalidBindingError{Module: m.name, Symbol: name, Reason: "symbol redeclared"}
	}
	m.symIdx[name] = len(m.symbols)
	m.symbols = append(m.symbols, Symbol{
		Name:    name,
		Binding: binding,
		Defined: defined,
		Section: section,
		Value:   value,
		Size:    size,
	})
	return nil
}

// AddRelocation records a relocation against symbolName at the given byte
// offset. The symbol is not required to exist yet; checking the reference is
// the resolver's job.
func (m *Module) AddRelocation(offset uint64, kind RelocationKind, symbolName string, addend int64) error {
	if m.sealed {
		return ErrModuleSealed
	}
	if !kind.valid() {
		return &InvalidBindingError{Module: m.name, Symbol: symbolName, Reason: "unknown relocation kind"}
	}
	m.relocs = append(m.relocs, Relocation{
		Offset: offset,
		Kind:   kind,
		Symbol: symbolName,
		Addend: addend,
	})
	return nil
}

// Seal makes the module immutable. Sealing twice is a no-op.
func (m *Module) Seal() {
	m.sealed = true
}

// Sealed reports whether the module has been sealed.
func (m *Module) Sealed() bool {
	return m.sealed
}

// Symbols returns the module's symbols in declaration order. The returned
// slice is shared; callers must treat it as read-only.
func (m *Module) Symbols() []Symbol {
	return m.symbols
}

// Relocations returns the module's relocations in declaration order. The
// returned slice is shared; callers must treat it as read-only.
func (m *Module) Relocations() []Relocation {
	return m.relocs
}
