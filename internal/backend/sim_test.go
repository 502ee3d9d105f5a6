//go:build !cuda

package backend

import (
	"bytes"
	"testing"
)

func TestRandStateSizes(t *testing.T) {
	b := Active()

	sizes := make(map[int64]int)
	for _, gen := range []int{GeneratorXORWOW, GeneratorMRG32k3a, GeneratorPhilox43210} {
		size, err := b.RandStateSize(gen)
		if err != nil {
			t.Fatal(err)
		}
		if size <= 0 || size%8 != 0 {
			t.Errorf("generator %d: state size %d", gen, size)
		}
		sizes[size]++
	}
	if len(sizes) != 3 {
		t.Errorf("expected three distinct state sizes, got %v", sizes)
	}

	if _, err := b.RandStateSize(0); err == nil {
		t.Error("unknown selector accepted")
	}
}

func TestRandSampleDeterministic(t *testing.T) {
	b := Active()
	dev := b.CurrentDevice()

	stateSize, err := b.RandStateSize(GeneratorXORWOW)
	if err != nil {
		t.Fatal(err)
	}

	const threads = 64
	const words = 256

	draw := func(seed uint32) []byte {
		state, err := b.Malloc(dev, stateSize*threads)
		if err != nil {
			t.Fatal(err)
		}
		defer b.Free(dev, state)

		if err := b.RandInit(dev, GeneratorXORWOW, state, seed, threads); err != nil {
			t.Fatal(err)
		}

		out, err := b.Malloc(dev, words*4)
		if err != nil {
			t.Fatal(err)
		}
		defer b.Free(dev, out)

		if err := b.RandSample(dev, GeneratorXORWOW, state, out, words); err != nil {
			t.Fatal(err)
		}

		buf := make([]byte, words*4)
		if err := b.CopyOut(dev, buf, out); err != nil {
			t.Fatal(err)
		}
		return buf
	}

	a, b1 := draw(7), draw(7)
	if !bytes.Equal(a, b1) {
		t.Error("same seed produced different output")
	}
	if bytes.Equal(a, draw(8)) {
		t.Error("different seeds produced identical output")
	}
}

func TestRandInitBounds(t *testing.T) {
	b := Active()
	dev := b.CurrentDevice()

	stateSize, err := b.RandStateSize(GeneratorXORWOW)
	if err != nil {
		t.Fatal(err)
	}

	// buffer holds one thread, init asks for two
	state, err := b.Malloc(dev, stateSize)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Free(dev, state)

	if err := b.RandInit(dev, GeneratorXORWOW, state, 1, 2); err == nil {
		t.Error("undersized state buffer accepted")
	}
}
