package curand

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cunum/cunum/cuda"
	"github.com/cunum/cunum/envconfig"
	"github.com/cunum/cunum/format"
	"github.com/cunum/cunum/internal/backend"
)

// ErrNotImplemented is returned when sampling is invoked on the base bit
// generator instead of a concrete generator.
var ErrNotImplemented = errors.New("sampling is not implemented by the base bit generator")

// BitGenerator is the contract shared by all generators: raw 32-bit draws,
// discard-mode sampling, state sizing and device-affinity checking.
type BitGenerator interface {
	// RandomRaw draws prod(shape) raw uint32 values into a fresh device
	// buffer. With no dimensions the result is scalar shaped.
	RandomRaw(shape ...int) (*Raw, error)

	// Sample runs the same kernel as RandomRaw but discards the output.
	// It exists to measure sampling throughput without transfer costs.
	Sample(shape ...int) error

	// StateSize reports how many per-thread states the generator holds;
	// 0 for the base generator.
	StateSize() int

	// CheckDevice fails with cuda.ErrDeviceMismatch if the active device
	// differs from the one the generator was created on.
	CheckDevice() error
}

// Base carries the pieces every bit generator owns: the seed sequence, the
// device recorded at construction, and the lock serializing sampling. It is
// not usable for drawing; embed it and override the sampling methods.
type Base struct {
	seq *SeedSequence
	dev cuda.Device
	mu  sync.Mutex
}

// NewBase records the current device and adopts seq, deriving one from OS
// entropy when seq is nil.
func NewBase(seq *SeedSequence) *Base {
	if seq == nil {
		seq = NewSeedSequence()
	}
	return &Base{seq: seq, dev: cuda.Current()}
}

func (b *Base) SeedSequence() *SeedSequence { return b.seq }

func (b *Base) Device() cuda.Device { return b.dev }

func (b *Base) RandomRaw(shape ...int) (*Raw, error) { return nil, ErrNotImplemented }

func (b *Base) Sample(shape ...int) error { return ErrNotImplemented }

func (b *Base) StateSize() int { return 0 }

func (b *Base) CheckDevice() error {
	if active := cuda.Current(); active != b.dev {
		return fmt.Errorf("%w: active %s, generator created on %s", cuda.ErrDeviceMismatch, active, b.dev)
	}
	return nil
}

// Generator is a device-resident bit generator. Construction allocates and
// initializes the per-thread state buffers; there is no reseed or resize,
// a new trajectory needs a new Generator.
type Generator struct {
	*Base

	algo   Algorithm
	size   int
	seed   uint32
	state  *cuda.Memory
	basic  *cuda.Memory
	closed bool
}

var _ BitGenerator = (*Generator)(nil)

// New constructs a generator of the given family on the current device.
// size is the thread count (and the safe upper bound on per-call draws per
// thread); size <= 0 selects the configured default. The generator consumes
// the first 32-bit word of the seed sequence; families needing wider seeds
// are not supported here.
func New(algo Algorithm, seq *SeedSequence, size int) (*Generator, error) {
	if !algo.valid() {
		return nil, fmt.Errorf("invalid generator algorithm %d", algo)
	}
	if size <= 0 {
		size = int(envconfig.GeneratorSize())
	}

	b := NewBase(seq)
	seed := b.seq.GenerateState(1)[0]

	stateSize, err := backend.Active().RandStateSize(algo.selector())
	if err != nil {
		return nil, err
	}
	byteSize := stateSize * int64(size)

	state, err := cuda.MallocZeroed(byteSize)
	if err != nil {
		return nil, fmt.Errorf("state buffer: %w", err)
	}
	basic, err := cuda.MallocZeroed(byteSize)
	if err != nil {
		state.Free()
		return nil, fmt.Errorf("basic buffer: %w", err)
	}

	statePtr, err := state.Ptr()
	if err != nil {
		state.Free()
		basic.Free()
		return nil, err
	}
	if err := backend.Active().RandInit(b.dev.Ordinal(), algo.selector(), statePtr, seed, int64(size)); err != nil {
		state.Free()
		basic.Free()
		return nil, fmt.Errorf("generator initialization failed: %w", err)
	}

	slog.Debug("initialized bit generator", "algorithm", algo, "device", b.dev,
		"threads", size, "state", format.HumanBytes2(uint64(byteSize)))
	return &Generator{Base: b, algo: algo, size: size, seed: seed, state: state, basic: basic}, nil
}

// NewXORWOW constructs an XORWOW generator; see New.
func NewXORWOW(seq *SeedSequence, size int) (*Generator, error) {
	return New(XORWOW, seq, size)
}

// NewMRG32k3a constructs an MRG32k3a generator; see New.
func NewMRG32k3a(seq *SeedSequence, size int) (*Generator, error) {
	return New(MRG32k3a, seq, size)
}

// NewPhilox4x32x10 constructs a Philox4x32-10 generator; see New.
func NewPhilox4x32x10(seq *SeedSequence, size int) (*Generator, error) {
	return New(Philox4x32x10, seq, size)
}

func (g *Generator) Algorithm() Algorithm { return g.algo }

// StateSize returns the thread count. Draws beyond StateSize elements reuse
// initialized thread states round-robin, as the native kernels do.
func (g *Generator) StateSize() int { return g.size }

func (g *Generator) RandomRaw(shape ...int) (*Raw, error) {
	out, err := g.draw(shape)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (g *Generator) Sample(shape ...int) error {
	out, err := g.draw(shape)
	if err != nil {
		return err
	}
	return out.Free()
}

func (g *Generator) draw(shape []int) (*Raw, error) {
	if err := g.CheckDevice(); err != nil {
		return nil, err
	}
	n, err := shapeLen(shape)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil, fmt.Errorf("use of closed generator")
	}

	mem, err := cuda.MallocZeroed(4 * n)
	if err != nil {
		return nil, fmt.Errorf("output buffer: %w", err)
	}
	if n > 0 {
		statePtr, err := g.state.Ptr()
		if err != nil {
			mem.Free()
			return nil, err
		}
		outPtr, err := mem.Ptr()
		if err != nil {
			mem.Free()
			return nil, err
		}
		if err := backend.Active().RandSample(g.dev.Ordinal(), g.algo.selector(), statePtr, outPtr, n); err != nil {
			mem.Free()
			return nil, fmt.Errorf("sampling failed: %w", err)
		}
	}
	return &Raw{shape: append([]int(nil), shape...), mem: mem}, nil
}

// State returns the raw device address of the per-thread state buffer, for
// kernel-launch helpers that bind it as an argument.
func (g *Generator) State() (uintptr, error) {
	if err := g.CheckDevice(); err != nil {
		return 0, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return 0, fmt.Errorf("use of closed generator")
	}
	return g.state.Ptr()
}

// Basic returns the raw device address of the auxiliary buffer.
func (g *Generator) Basic() (uintptr, error) {
	if err := g.CheckDevice(); err != nil {
		return 0, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return 0, fmt.Errorf("use of closed generator")
	}
	return g.basic.Ptr()
}

// Close frees both device buffers. Safe to call more than once.
func (g *Generator) Close() error {
	if err := g.CheckDevice(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil
	}
	g.closed = true
	return errors.Join(g.state.Free(), g.basic.Free())
}

func shapeLen(shape []int) (int64, error) {
	n := int64(1)
	for _, dim := range shape {
		if dim < 0 {
			return 0, fmt.Errorf("invalid shape dimension %d", dim)
		}
		n *= int64(dim)
	}
	return n, nil
}
