// Copyright 2026 The LinkTK Authors. All rights reserved.
// Use of this source code is governed by the license that
// can be found in the LICENSE file.

package link

import (
	"sort"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

const (
	defaultPLTBase      = 0x401000
	defaultPLTEntrySize = 16
)

// PLT assigns every non-local symbol of a resolved table a fixed stub
// address. The stubs are fixed at link time even though the GOT entries they
// jump through are filled in lazily. A PLT is immutable.
type PLT struct {
	base      uint64
	entrySize uint64
	index     map[string]int
	names     []string
}

// PLTOption configures PLT construction.
type PLTOption func(*PLT)

// WithPLTBase sets the address of the first stub.
func WithPLTBase(addr uint64) PLTOption {
	return func(p *PLT) {
		p.base = addr
	}
}

// WithPLTEntrySize sets the distance between consecutive stubs.
func WithPLTEntrySize(n uint64) PLTOption {
	return func(p *PLT) {
		p.entrySize = n
	}
}

// NewPLT builds a PLT covering every name in the table. Stub indices are
// assigned in sorted name order so two runs over the same table agree.
func NewPLT(table *GlobalSymbolTable, opts ...PLTOption) *PLT {
	p := &PLT{
		base:      defaultPLTBase,
		entrySize: defaultPLTEntrySize,
		index:     make(map[string]int),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.names = table.Names()
	for i, name := range p.names {
		p.index[name] = i
	}
	return p
}

// StubAddress returns the fixed stub address for name.
func (p *PLT) StubAddress(name string) (uint64, bool) {
	i, ok := p.index[name]
	if !ok {
		return 0, false
	}
	return p.base + uint64(i)*p.entrySize, true
}

// Len returns the number of stubs.
func (p *PLT) Len() int {
	return len(p.names)
}

// BindingMode selects when GOT slots are resolved.
type BindingMode int

const (
	// BindLazy resolves each GOT slot on the first call through its stub.
	BindLazy BindingMode = iota
	// BindNow resolves every GOT slot at initialization, the LD_BIND_NOW
	// behavior. Same state machine, different trigger.
	BindNow
)

// GOTState is the state of one GOT slot.
type GOTState int

const (
	// GOTUnresolved slots still point at the binder.
	GOTUnresolved GOTState = iota
	// GOTResolved slots hold the target address and never change again.
	GOTResolved
)

// GOTSlot is the binder-visible state of one GOT entry.
type GOTSlot struct {
	Symbol  string
	State   GOTState
	Address uint64
}

// BindingEvent records one call through the PLT. Timestamp is a logical
// sequence number, not wall time. Lookup is true when the call triggered the
// slot's one-time resolution and false when the cached address was reused.
type BindingEvent struct {
	Timestamp int
	Symbol    string
	Address   uint64
	Lookup    bool
}

// Binder replays calls through a PLT/GOT pair, resolving each slot at most
// once. It is a deterministic model of the dynamic loader's lazy binding: no
// real time, no interception, just discrete call events.
type Binder struct {
	table  *GlobalSymbolTable
	plt    *PLT
	logger log.Logger
	slots  map[string]*GOTSlot
	events []BindingEvent
	clock  int
}

// BinderOption configures a Binder.
type BinderOption func(*Binder)

// WithBinderLogger sets the logger used to trace binding events.
func WithBinderLogger(l log.Logger) BinderOption {
	return func(b *Binder) {
		b.logger = l
	}
}

// NewBinder builds one GOT slot per PLT stub, all unresolved. In BindNow
// mode every slot is resolved immediately and the init resolutions are
// recorded as events; a slot that cannot be resolved fails construction,
// matching a loader that refuses to start the process.
func NewBinder(table *GlobalSymbolTable, plt *PLT, mode BindingMode, opts ...BinderOption) (*Binder, error) {
	b := &Binder{
		table:  table,
		plt:    plt,
		logger: log.NewNopLogger(),
		slots:  make(map[string]*GOTSlot),
	}
	for _, opt := range opts {
		opt(b)
	}
	for _, name := range plt.names {
		b.slots[name] = &GOTSlot{Symbol: name}
	}
	if mode == BindNow {
		for _, name := range plt.names {
			if _, _, err := b.bind(name); err != nil {
				return nil, err
			}
		}
	}
	return b, nil
}

// bind drives the slot state machine for one call event.
func (b *Binder) bind(name string) (uint64, bool, error) {
	slot, ok := b.slots[name]
	if !ok {
		return 0, false, &UnresolvedSymbolError{Name: name}
	}
	if slot.State == GOTResolved {
		b.record(name, slot.Address, false)
		return slot.Address, false, nil
	}
	sym, ok := b.table.Lookup(name)
	if !ok || !sym.Defined {
		return 0, false, &UnresolvedSymbolError{Name: name}
	}
	slot.State = GOTResolved
	slot.Address = sym.Value
	b.record(name, slot.Address, true)
	return slot.Address, true, nil
}

func (b *Binder) record(name string, addr uint64, lookup bool) {
	ev := BindingEvent{
		Timestamp: b.clock,
		Symbol:    name,
		Address:   addr,
		Lookup:    lookup,
	}
	b.clock++
	b.events = append(b.events, ev)
	level.Debug(b.logger).Log(
		"msg", "binding event",
		"ts", ev.Timestamp,
		"symbol", ev.Symbol,
		"addr", ev.Address,
		"lookup", ev.Lookup,
	)
}

// Run feeds a call trace through the binder and returns the events it
// produced. Timestamps continue across successive Run calls.
func (b *Binder) Run(callTrace []string) ([]BindingEvent, error) {
	start := len(b.events)
	for _, name := range callTrace {
		if _, _, err := b.bind(name); err != nil {
			return nil, err
		}
	}
	return b.events[start:], nil
}

// Events returns every event recorded so far, including BindNow init
// resolutions.
func (b *Binder) Events() []BindingEvent {
	return b.events
}

// Slots returns the current GOT state, sorted by symbol name.
func (b *Binder) Slots() []GOTSlot {
	out := make([]GOTSlot, 0, len(b.slots))
	for _, slot := range b.slots {
		out = append(out, *slot)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}
