package curand

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cunum/cunum/cuda"
	"github.com/cunum/cunum/internal/backend"
)

var testAlgorithms = []Algorithm{XORWOW, MRG32k3a, Philox4x32x10}

func newTestGenerator(t *testing.T, algo Algorithm, seed uint64, size int) *Generator {
	t.Helper()
	gen, err := New(algo, NewSeedSequence(seed), size)
	require.NoError(t, err)
	t.Cleanup(func() { gen.Close() })
	return gen
}

func drawWords(t *testing.T, gen *Generator, shape ...int) []uint32 {
	t.Helper()
	raw, err := gen.RandomRaw(shape...)
	require.NoError(t, err)
	defer raw.Free()
	words, err := raw.Uint32s()
	require.NoError(t, err)
	return words
}

func TestGeneratorDeterminism(t *testing.T) {
	for _, algo := range testAlgorithms {
		t.Run(algo.String(), func(t *testing.T) {
			a := newTestGenerator(t, algo, 42, 64)
			b := newTestGenerator(t, algo, 42, 64)

			assert.Equal(t, drawWords(t, a, 128), drawWords(t, b, 128))

			// trajectories stay aligned across further draws
			assert.Equal(t, drawWords(t, a, 16), drawWords(t, b, 16))
		})
	}
}

func TestGeneratorSeedSensitivity(t *testing.T) {
	a := newTestGenerator(t, XORWOW, 1, 64)
	b := newTestGenerator(t, XORWOW, 2, 64)
	assert.NotEqual(t, drawWords(t, a, 64), drawWords(t, b, 64))
}

func TestGeneratorStateSize(t *testing.T) {
	for _, algo := range testAlgorithms {
		gen := newTestGenerator(t, algo, 7, 50)
		assert.Equal(t, 50, gen.StateSize(), algo.String())
	}
}

func TestBaseNotImplemented(t *testing.T) {
	base := NewBase(nil)

	_, err := base.RandomRaw()
	assert.ErrorIs(t, err, ErrNotImplemented)

	_, err = base.RandomRaw(3, 4)
	assert.ErrorIs(t, err, ErrNotImplemented)

	assert.ErrorIs(t, base.Sample(16), ErrNotImplemented)
	assert.Zero(t, base.StateSize())
	assert.NoError(t, base.CheckDevice())
}

func TestDeviceMismatch(t *testing.T) {
	if cuda.Count() < 2 {
		t.Skip("needs at least two devices")
	}
	t.Cleanup(func() { cuda.SetDevice(0) })

	require.NoError(t, cuda.SetDevice(0))
	gen := newTestGenerator(t, XORWOW, 3, 64)

	require.NoError(t, cuda.SetDevice(1))

	_, err := gen.RandomRaw(4)
	assert.ErrorIs(t, err, cuda.ErrDeviceMismatch)
	assert.ErrorIs(t, gen.Sample(4), cuda.ErrDeviceMismatch)
	_, err = gen.State()
	assert.ErrorIs(t, err, cuda.ErrDeviceMismatch)
	_, err = gen.Basic()
	assert.ErrorIs(t, err, cuda.ErrDeviceMismatch)
	assert.ErrorIs(t, gen.CheckDevice(), cuda.ErrDeviceMismatch)

	// switching back restores normal operation
	require.NoError(t, cuda.SetDevice(0))
	require.NoError(t, gen.CheckDevice())
	assert.Len(t, drawWords(t, gen, 8), 8)
}

func TestRandomRawShapes(t *testing.T) {
	gen := newTestGenerator(t, Philox4x32x10, 5, 64)

	scalar, err := gen.RandomRaw()
	require.NoError(t, err)
	defer scalar.Free()
	assert.Empty(t, scalar.Shape())
	assert.Equal(t, 1, scalar.Len())

	matrix, err := gen.RandomRaw(3, 4)
	require.NoError(t, err)
	defer matrix.Free()
	assert.Equal(t, []int{3, 4}, matrix.Shape())
	assert.Equal(t, 12, matrix.Len())
	words, err := matrix.Uint32s()
	require.NoError(t, err)
	assert.Len(t, words, 12)

	empty, err := gen.RandomRaw(0, 5)
	require.NoError(t, err)
	defer empty.Free()
	assert.Equal(t, 0, empty.Len())

	_, err = gen.RandomRaw(-1)
	assert.Error(t, err)
}

func TestSampleAdvancesState(t *testing.T) {
	a := newTestGenerator(t, MRG32k3a, 11, 64)
	b := newTestGenerator(t, MRG32k3a, 11, 64)

	// a discards a draw first; its stream should now lead b's
	require.NoError(t, a.Sample(64))
	afterDiscard := drawWords(t, a, 64)
	fresh := drawWords(t, b, 64)
	assert.NotEqual(t, fresh, afterDiscard)

	// and the discarded draw is exactly what b produces first
	assert.Equal(t, afterDiscard, drawWords(t, b, 64))
}

func TestStateBufferSizing(t *testing.T) {
	const size = 128

	byteSizes := make(map[Algorithm]int64)
	for _, algo := range testAlgorithms {
		perThread, err := backend.Active().RandStateSize(algo.selector())
		require.NoError(t, err)

		gen := newTestGenerator(t, algo, 9, size)
		assert.Equal(t, perThread*size, gen.state.Size(), algo.String())
		assert.Equal(t, gen.state.Size(), gen.basic.Size(), algo.String())
		byteSizes[algo] = gen.state.Size()
	}

	// the three families have distinct native state structs, so identical
	// thread counts must yield proportionally different allocations
	assert.NotEqual(t, byteSizes[XORWOW], byteSizes[MRG32k3a])
	assert.NotEqual(t, byteSizes[XORWOW], byteSizes[Philox4x32x10])
	assert.NotEqual(t, byteSizes[MRG32k3a], byteSizes[Philox4x32x10])
}

func TestGeneratorStateAddresses(t *testing.T) {
	gen := newTestGenerator(t, XORWOW, 21, 32)

	state, err := gen.State()
	require.NoError(t, err)
	basic, err := gen.Basic()
	require.NoError(t, err)
	assert.NotZero(t, state)
	assert.NotZero(t, basic)
	assert.NotEqual(t, state, basic)
}

func TestGeneratorClose(t *testing.T) {
	gen, err := New(XORWOW, NewSeedSequence(1), 32)
	require.NoError(t, err)

	require.NoError(t, gen.Close())
	require.NoError(t, gen.Close())

	_, err = gen.RandomRaw(4)
	assert.Error(t, err)
	_, err = gen.State()
	assert.Error(t, err)
}

func TestNewInvalidInputs(t *testing.T) {
	_, err := New(Algorithm(99), nil, 16)
	assert.Error(t, err)
}
