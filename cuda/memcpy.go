package cuda

import (
	"fmt"

	"github.com/cunum/cunum/internal/backend"
)

// MemcpyKind mirrors cudaMemcpyKind for the directions this layer supports.
type MemcpyKind int

const (
	MemcpyHostToDevice MemcpyKind = iota + 1
	MemcpyDeviceToHost
)

// Extent is a copy extent in texels. A zero extent means the full array.
type Extent struct {
	Width, Height, Depth int64
}

// Memcpy3D is the copy-parameters builder for transfers between host memory
// and array allocations, mirroring cudaMemcpy3DParms: callers fill exactly
// one source and one destination and submit with Run.
type Memcpy3D struct {
	SrcHost  []byte
	SrcArray *Array
	DstHost  []byte
	DstArray *Array
	Extent   Extent
	Kind     MemcpyKind
}

func (p *Memcpy3D) Run() error {
	switch p.Kind {
	case MemcpyHostToDevice:
		if p.SrcHost == nil || p.DstArray == nil || p.SrcArray != nil || p.DstHost != nil {
			return fmt.Errorf("host-to-device copy requires SrcHost and DstArray only")
		}
		return p.runToArray(p.DstArray, p.SrcHost)
	case MemcpyDeviceToHost:
		if p.SrcArray == nil || p.DstHost == nil || p.SrcHost != nil || p.DstArray != nil {
			return fmt.Errorf("device-to-host copy requires SrcArray and DstHost only")
		}
		return p.runFromArray(p.SrcArray, p.DstHost)
	default:
		return fmt.Errorf("invalid memcpy kind %d", p.Kind)
	}
}

func (p *Memcpy3D) bytes(a *Array) (int64, error) {
	ext := p.Extent
	if ext == (Extent{}) {
		return a.ByteSize(), nil
	}
	if ext.Width <= 0 || ext.Height < 0 || ext.Depth < 0 {
		return 0, fmt.Errorf("invalid copy extent %dx%dx%d", ext.Width, ext.Height, ext.Depth)
	}
	if ext.Width != a.width || ext.Height != a.height || ext.Depth != a.depth {
		// Partial copies need per-row pitch handling that this layer does
		// not marshal; only full-extent transfers are supported.
		return 0, fmt.Errorf("extent %dx%dx%d does not match array %dx%dx%d",
			ext.Width, ext.Height, ext.Depth, a.width, a.height, a.depth)
	}
	return a.ByteSize(), nil
}

func (p *Memcpy3D) runToArray(a *Array, src []byte) error {
	size, err := p.bytes(a)
	if err != nil {
		return err
	}
	if int64(len(src)) != size {
		return fmt.Errorf("source of %d bytes does not match array size %d", len(src), size)
	}
	handle, err := a.nativeHandle()
	if err != nil {
		return err
	}
	return backend.Active().CopyToArray(a.dev.ordinal, handle, src)
}

func (p *Memcpy3D) runFromArray(a *Array, dst []byte) error {
	size, err := p.bytes(a)
	if err != nil {
		return err
	}
	if int64(len(dst)) != size {
		return fmt.Errorf("destination of %d bytes does not match array size %d", len(dst), size)
	}
	handle, err := a.nativeHandle()
	if err != nil {
		return err
	}
	return backend.Active().CopyFromArray(a.dev.ordinal, dst, handle)
}
