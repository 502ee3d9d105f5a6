package cuda

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/cunum/cunum/format"
	"github.com/cunum/cunum/internal/backend"
)

// ChannelFormatKind identifies how texture channel bits are interpreted.
type ChannelFormatKind int

const (
	ChannelFormatSigned ChannelFormatKind = iota
	ChannelFormatUnsigned
	ChannelFormatFloat
	ChannelFormatHalf
)

func (k ChannelFormatKind) String() string {
	switch k {
	case ChannelFormatSigned:
		return "signed"
	case ChannelFormatUnsigned:
		return "unsigned"
	case ChannelFormatFloat:
		return "float"
	case ChannelFormatHalf:
		return "half"
	default:
		return "unknown"
	}
}

// nativeKind maps to the cudaChannelFormatKind enumeration. Half is stored
// as 16-bit float channels natively.
func (k ChannelFormatKind) nativeKind() int {
	if k == ChannelFormatHalf {
		return int(ChannelFormatFloat)
	}
	return int(k)
}

// ChannelFormatDesc describes one texel: up to four channels with their bit
// widths, mirroring cudaChannelFormatDesc.
type ChannelFormatDesc struct {
	X, Y, Z, W int
	Kind       ChannelFormatKind
}

// Bytes returns the texel size implied by the channel widths.
func (c ChannelFormatDesc) Bytes() int64 {
	return int64(c.X+c.Y+c.Z+c.W) / 8
}

func (c ChannelFormatDesc) validate() error {
	if c.X == 0 {
		return fmt.Errorf("channel format requires at least one channel")
	}
	for _, bits := range []int{c.X, c.Y, c.Z, c.W} {
		switch bits {
		case 0, 8, 16, 32:
		default:
			return fmt.Errorf("invalid channel width %d (want 8, 16 or 32)", bits)
		}
		if c.Kind == ChannelFormatHalf && bits != 0 && bits != 16 {
			return fmt.Errorf("half channels must be 16 bits wide, got %d", bits)
		}
	}
	switch c.Kind {
	case ChannelFormatSigned, ChannelFormatUnsigned, ChannelFormatFloat, ChannelFormatHalf:
		return nil
	default:
		return fmt.Errorf("invalid channel format kind %d", c.Kind)
	}
}

// ArrayFlags are passed through to the native array allocation.
type ArrayFlags uint32

const (
	ArrayDefault          ArrayFlags = 0
	ArraySurfaceLoadStore ArrayFlags = 1 << 1
	ArrayTextureGather    ArrayFlags = 1 << 3
)

// Array is a descriptor for a 1D, 2D or 3D device array allocation suitable
// for texture binding. It exclusively owns the allocation; Free releases it.
type Array struct {
	desc   ChannelFormatDesc
	width  int64
	height int64
	depth  int64
	flags  ArrayFlags
	dev    Device

	mu     sync.Mutex
	handle uintptr
	freed  bool
}

// NewArray allocates a device array on the current device. A 1D array has
// height and depth 0; a 2D array has depth 0.
func NewArray(desc ChannelFormatDesc, width, height, depth int64, flags ArrayFlags) (*Array, error) {
	if err := desc.validate(); err != nil {
		return nil, err
	}
	if width <= 0 {
		return nil, fmt.Errorf("invalid array width %d", width)
	}
	if height < 0 || depth < 0 {
		return nil, fmt.Errorf("invalid array extent %dx%dx%d", width, height, depth)
	}
	if depth > 0 && height == 0 {
		return nil, fmt.Errorf("3D array requires a height")
	}

	dev := Current()
	handle, err := backend.Active().MallocArray(dev.ordinal, backend.ChannelDesc{
		X: desc.X, Y: desc.Y, Z: desc.Z, W: desc.W,
		Kind: desc.Kind.nativeKind(),
	}, width, height, depth, uint32(flags))
	if err != nil {
		return nil, fmt.Errorf("array allocation failed: %w", err)
	}

	a := &Array{desc: desc, width: width, height: height, depth: depth, flags: flags, dev: dev, handle: handle}
	slog.Debug("allocated cuda array", "device", dev, "ndim", a.NDim(), "size", format.HumanBytes2(uint64(a.ByteSize())))
	return a, nil
}

func (a *Array) Desc() ChannelFormatDesc { return a.desc }

func (a *Array) Device() Device { return a.dev }

func (a *Array) Width() int64 { return a.width }

func (a *Array) Height() int64 { return a.height }

func (a *Array) Depth() int64 { return a.depth }

func (a *Array) NDim() int {
	switch {
	case a.depth > 0:
		return 3
	case a.height > 0:
		return 2
	default:
		return 1
	}
}

// Len returns the number of texels.
func (a *Array) Len() int64 {
	n := a.width
	if a.height > 0 {
		n *= a.height
	}
	if a.depth > 0 {
		n *= a.depth
	}
	return n
}

// ByteSize returns the allocation size in bytes.
func (a *Array) ByteSize() int64 {
	return a.Len() * a.desc.Bytes()
}

// CopyFrom transfers host bytes into the array through the copy-parameters
// builder. len(src) must equal the array's byte size.
func (a *Array) CopyFrom(src []byte) error {
	p := Memcpy3D{SrcHost: src, DstArray: a, Kind: MemcpyHostToDevice}
	return p.Run()
}

// CopyTo transfers the array's bytes to the host. len(dst) must equal the
// array's byte size.
func (a *Array) CopyTo(dst []byte) error {
	p := Memcpy3D{SrcArray: a, DstHost: dst, Kind: MemcpyDeviceToHost}
	return p.Run()
}

// Free releases the device allocation. Safe to call more than once. Texture
// objects bound to this array keep their handles but become invalid.
func (a *Array) Free() error {
	if err := a.dev.ensureActive(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.freed {
		return nil
	}
	a.freed = true
	return backend.Active().FreeArray(a.dev.ordinal, a.handle)
}

// nativeHandle returns the backend array handle after affinity and lifetime
// checks.
func (a *Array) nativeHandle() (uintptr, error) {
	if err := a.dev.ensureActive(); err != nil {
		return 0, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.freed {
		return 0, fmt.Errorf("use of freed cuda array")
	}
	return a.handle, nil
}
