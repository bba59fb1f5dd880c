// Copyright 2026 The LinkTK Authors. All rights reserved.
// Use of this source code is governed by the license that
// can be found in the LICENSE file.

package link

import (
	"fmt"
	"sort"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

type globalEntry struct {
	sym    Symbol
	module string
}

// GlobalSymbolTable maps each non-local symbol name to the single entry that
// won resolution. It is mutable only while Resolve builds it; afterwards it
// is read-only and safe to share.
type GlobalSymbolTable struct {
	entries map[string]globalEntry
}

// Lookup returns the resolved symbol for name.
func (t *GlobalSymbolTable) Lookup(name string) (Symbol, bool) {
	e, ok := t.entries[name]
	return e.sym, ok
}

// DefiningModule returns the name of the module whose occurrence of name won
// resolution.
func (t *GlobalSymbolTable) DefiningModule(name string) (string, bool) {
	e, ok := t.entries[name]
	return e.module, ok
}

// Names returns every name in the table, sorted.
func (t *GlobalSymbolTable) Names() []string {
	names := make([]string, 0, len(t.entries))
	for name := range t.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Unresolved returns the names that are still undefined after resolution,
// sorted. An empty result means every reference found a definition.
func (t *GlobalSymbolTable) Unresolved() []string {
	var names []string
	for name, e := range t.entries {
		if !e.sym.Defined {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

type resolveConfig struct {
	logger       log.Logger
	weakOverride bool
}

// ResolveOption configures a resolution run.
type ResolveOption func(*resolveConfig)

// WithLogger sets the logger used to trace resolution decisions.
func WithLogger(l log.Logger) ResolveOption {
	return func(c *resolveConfig) {
		c.logger = l
	}
}

// WithWeakOverride makes the last weak definition of a name win instead of
// the first. Real linkers do not document this tie-break; the default here is
// first-wins.
func WithWeakOverride() ResolveOption {
	return func(c *resolveConfig) {
		c.weakOverride = true
	}
}

// Resolve merges the symbol tables of the given sealed modules, in order,
// into one global table. Local symbols stay private to their module. A
// non-empty unresolved set is not an error: the caller decides whether
// dangling externs are acceptable, which they are for a relocatable object
// and are not for a final executable.
func Resolve(modules []*Module, opts ...ResolveOption) (*GlobalSymbolTable, error) {
	cfg := resolveConfig{logger: log.NewNopLogger()}
	for _, opt := range opts {
		opt(&cfg)
	}

	table := &GlobalSymbolTable{entries: make(map[string]globalEntry)}
	for _, m := range modules {
		if !m.Sealed() {
			return nil, fmt.Errorf("module %q: %w", m.Name(), ErrModuleNotSealed)
		}
		for _, sym := range m.Symbols() {
			if sym.Binding == BindLocal {
				continue
			}
			incoming := globalEntry{sym: sym, module: m.Name()}
			existing, ok := table.entries[sym.Name]
			if !ok {
				table.entries[sym.Name] = incoming
				level.Debug(cfg.logger).Log(
					"msg", "symbol inserted",
					"name", sym.Name,
					"module", m.Name(),
					"binding", sym.Binding,
					"defined", sym.Defined,
				)
				continue
			}
			replace, err := mergeSymbol(existing, incoming, cfg.weakOverride)
			if err != nil {
				return nil, err
			}
			if replace {
				table.entries[sym.Name] = incoming
				level.Debug(cfg.logger).Log(
					"msg", "symbol replaced",
					"name", sym.Name,
					"module", m.Name(),
					"binding", sym.Binding,
					"previous", existing.module,
				)
			}
		}
	}

	if unresolved := table.Unresolved(); len(unresolved) > 0 {
		level.Debug(cfg.logger).Log("msg", "unresolved externs remain", "count", len(unresolved))
	}
	return table, nil
}
