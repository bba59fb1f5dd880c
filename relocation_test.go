// Copyright 2026 The LinkTK Authors. All rights reserved.
// Use of this source code is governed by the license that
// can be found in the LICENSE file.

package link

import (
	"errors"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolved(t *testing.T, modules ...*Module) *GlobalSymbolTable {
	t.Helper()
	table, err := Resolve(modules)
	require.NoError(t, err)
	return table
}

func TestRelocateABS32(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	def := buildModule(t, "def.o",
		Symbol{Name: "message", Binding: BindGlobal, Defined: true, Section: ".rodata", Value: 0x1000},
	)
	use := NewModule("use.o")
	require.NoError(use.AddRelocation(0x20, RelABS32, "message", 4))
	use.Seal()

	patches, err := Relocate(resolved(t, def, use), nil, use, FinalExecutable)
	require.NoError(err)
	require.Len(patches, 1)
	assert.Equal(Patch{Offset: 0x20, Value: 0x1004}, patches[0])
}

func TestRelocatePC32(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	def := buildModule(t, "def.o",
		Symbol{Name: "print_message", Binding: BindGlobal, Defined: true, Section: ".text", Value: 0x2000},
	)
	use := NewModule("use.o")
	require.NoError(use.AddRelocation(0x1000, RelPC32, "print_message", -4))
	use.Seal()

	patches, err := Relocate(resolved(t, def, use), nil, use, FinalExecutable)
	require.NoError(err)
	require.Len(patches, 1)
	// 0x2000 - 4 - 0x1000
	assert.Equal(uint64(0xFFF), patches[0].Value)
}

func TestRelocatePC32Negative(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	def := buildModule(t, "def.o",
		Symbol{Name: "early", Binding: BindGlobal, Defined: true, Section: ".text", Value: 0x100},
	)
	use := NewModule("use.o")
	require.NoError(use.AddRelocation(0x200, RelPC32, "early", 0))
	use.Seal()

	patches, err := Relocate(resolved(t, def, use), nil, use, FinalExecutable)
	require.NoError(err)
	require.Len(patches, 1)
	// Backward displacement of -0x100 in two's complement.
	assert.Equal(uint64(0xFFFFFF00), patches[0].Value)
}

func TestRelocatePLT32(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	def := buildModule(t, "libc.o",
		Symbol{Name: "puts", Binding: BindGlobal, Defined: true, Section: ".text", Value: 0x9000},
	)
	use := NewModule("use.o")
	require.NoError(use.AddRelocation(0x40, RelPLT32, "puts", -4))
	use.Seal()

	table := resolved(t, def, use)
	plt := NewPLT(table, WithPLTBase(0x5000), WithPLTEntrySize(16))

	patches, err := Relocate(table, plt, use, FinalExecutable)
	require.NoError(err)
	require.Len(patches, 1)

	stub, ok := plt.StubAddress("puts")
	require.True(ok)
	assert.Equal(uint64(uint32(int64(stub)-4-0x40)), patches[0].Value,
		"PLT32 targets the stub, not the definition")
}

func TestRelocatePLT32WithoutPLT(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	def := buildModule(t, "libc.o",
		Symbol{Name: "puts", Binding: BindGlobal, Defined: true, Section: ".text", Value: 0x9000},
	)
	use := NewModule("use.o")
	require.NoError(use.AddRelocation(0x40, RelPLT32, "puts", -4))
	use.Seal()

	_, err := Relocate(resolved(t, def, use), nil, use, RelocatableObject)
	assert.ErrorIs(err, ErrNoPLT)
}

func TestRelocateLocalSymbols(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	m := NewModule("a.o")
	require.NoError(m.AddSymbol(".rodata", BindLocal, true, ".rodata", 0x300, 0x20))
	require.NoError(m.AddRelocation(0x10, RelABS32, ".rodata", 8))
	m.Seal()

	patches, err := Relocate(resolved(t, m), nil, m, FinalExecutable)
	require.NoError(err)
	require.Len(patches, 1)
	assert.Equal(uint64(0x308), patches[0].Value)
}

func TestRelocateOverflow(t *testing.T) {
	t.Run("ABS32 above field width", func(t *testing.T) {
		assert := assert.New(t)
		require := require.New(t)

		def := buildModule(t, "def.o",
			Symbol{Name: "high", Binding: BindGlobal, Defined: true, Section: ".data", Value: 0xFFFFFFFF},
		)
		use := NewModule("use.o")
		require.NoError(use.AddRelocation(0x0, RelABS32, "high", 1))
		use.Seal()

		_, err := Relocate(resolved(t, def, use), nil, use, FinalExecutable)

		var ovf *RelocationOverflowError
		assert.True(errors.As(err, &ovf), "expected a RelocationOverflowError")
		assert.Equal(RelABS32, ovf.Kind)
	})

	t.Run("ABS32 negative", func(t *testing.T) {
		assert := assert.New(t)
		require := require.New(t)

		def := buildModule(t, "def.o",
			Symbol{Name: "low", Binding: BindGlobal, Defined: true, Section: ".data", Value: 0x10},
		)
		use := NewModule("use.o")
		require.NoError(use.AddRelocation(0x0, RelABS32, "low", -0x20))
		use.Seal()

		_, err := Relocate(resolved(t, def, use), nil, use, FinalExecutable)

		var ovf *RelocationOverflowError
		assert.True(errors.As(err, &ovf), "expected a RelocationOverflowError")
	})

	t.Run("PC32 displacement too far", func(t *testing.T) {
		assert := assert.New(t)
		require := require.New(t)

		def := buildModule(t, "def.o",
			Symbol{Name: "far", Binding: BindGlobal, Defined: true, Section: ".text", Value: 0x100000000},
		)
		use := NewModule("use.o")
		require.NoError(use.AddRelocation(0x0, RelPC32, "far", 0))
		use.Seal()

		_, err := Relocate(resolved(t, def, use), nil, use, FinalExecutable)

		var ovf *RelocationOverflowError
		assert.True(errors.As(err, &ovf), "expected a RelocationOverflowError")
		assert.Equal(RelPC32, ovf.Kind)
	})
}

func TestRelocateModes(t *testing.T) {
	broken := func(t *testing.T) *Module {
		t.Helper()
		m := NewModule("broken.o")
		require.NoError(t, m.AddSymbol("ok", BindGlobal, true, ".data", 0x10, 0))
		require.NoError(t, m.AddRelocation(0x0, RelABS32, "missing_a", 0))
		require.NoError(t, m.AddRelocation(0x4, RelABS32, "ok", 0))
		require.NoError(t, m.AddRelocation(0x8, RelABS32, "missing_b", 0))
		m.Seal()
		return m
	}

	t.Run("final executable aborts on first failure", func(t *testing.T) {
		assert := assert.New(t)

		m := broken(t)
		patches, err := Relocate(resolved(t, m), nil, m, FinalExecutable)

		var unres *UnresolvedSymbolError
		assert.True(errors.As(err, &unres), "expected an UnresolvedSymbolError")
		assert.Equal("missing_a", unres.Name)
		assert.Nil(patches, "all-or-nothing in final executable mode")
	})

	t.Run("relocatable object collects every failure", func(t *testing.T) {
		assert := assert.New(t)

		m := broken(t)
		patches, err := Relocate(resolved(t, m), nil, m, RelocatableObject)

		var merr *multierror.Error
		assert.True(errors.As(err, &merr), "expected a multierror batch")
		assert.Len(merr.Errors, 2, "both broken relocations must be reported")
		assert.Len(patches, 1, "the good relocation is still patched")
		assert.Equal(uint64(0x10), patches[0].Value)
	})
}

func TestRelocateRequiresSealedModule(t *testing.T) {
	assert := assert.New(t)

	table := resolved(t)
	_, err := Relocate(table, nil, NewModule("a.o"), FinalExecutable)

	assert.ErrorIs(err, ErrModuleNotSealed)
}
