// Copyright 2026 The LinkTK Authors. All rights reserved.
// Use of this source code is governed by the license that
// can be found in the LICENSE file.

package link

// Binding is the strength of a symbol definition.
type Binding int

const (
	// BindLocal symbols are private to their owning module and never take
	// part in cross-module resolution.
	BindLocal Binding = iota
	// BindGlobal symbols are strong: at most one definition may exist across
	// all modules.
	BindGlobal
	// BindWeak symbols are replaceable defaults, overridden by any global
	// definition of the same name.
	BindWeak
)

func (b Binding) String() string {
	switch b {
	case BindLocal:
		return "local"
	case BindGlobal:
		return "global"
	case BindWeak:
		return "weak"
	}
	return "unknown"
}

func (b Binding) valid() bool {
	return b == BindLocal || b == BindGlobal || b == BindWeak
}

// Symbol is a named reference to code or data. An undefined symbol carries no
// section or value; it is a placeholder waiting for a definition in another
// module.
type Symbol struct {
	Name    string
	Binding Binding
	Defined bool
	Section string
	Value   uint64
	Size    uint64
}

// mergeSymbol decides whether an incoming symbol occurrence replaces the
// entry already in the global table. All binding precedence lives here:
// strong beats weak beats undefined, two strongs are an error, and among
// weak definitions the first one encountered wins unless weakOverride flips
// the tie-break to last-wins.
func mergeSymbol(existing, incoming globalEntry, weakOverride bool) (bool, error) {
	if !incoming.sym.Defined {
		// An undefined reference never displaces anything.
		return false, nil
	}
	switch incoming.sym.Binding {
	case BindGlobal:
		if existing.sym.Defined && existing.sym.Binding == BindGlobal {
			return false, &DuplicateStrongSymbolError{
				Name:   incoming.sym.Name,
				First:  existing.module,
				Second: incoming.module,
			}
		}
		return true, nil
	case BindWeak:
		if !existing.sym.Defined {
			return true, nil
		}
		if existing.sym.Binding == BindWeak && weakOverride {
			return true, nil
		}
		return false, nil
	}
	return false, nil
}
