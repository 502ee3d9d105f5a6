// Package backend dispatches device operations to the native CUDA runtime
// when built with the cuda tag, or to an in-process simulated runtime
// otherwise. The public cuda and curand packages are thin surfaces over this
// interface; nothing above it knows which backend is live.
package backend

import "sync"

// Generator selectors, aligned with the cuRAND pseudo generator enumeration.
const (
	GeneratorXORWOW      = 101
	GeneratorMRG32k3a    = 121
	GeneratorPhilox43210 = 161
)

// DeviceProps describes one device as reported by the backend.
type DeviceProps struct {
	Name         string
	Library      string
	TotalMemory  uint64
	FreeMemory   uint64
	ComputeMajor int
	ComputeMinor int
}

// ChannelDesc mirrors cudaChannelFormatDesc: per-channel bit widths and the
// channel kind (values match the cudaChannelFormatKind enumeration).
type ChannelDesc struct {
	X, Y, Z, W int
	Kind       int
}

// Bytes returns the element size implied by the channel widths.
func (c ChannelDesc) Bytes() int64 {
	return int64(c.X+c.Y+c.Z+c.W) / 8
}

// TextureParams carries the texture descriptor fields the backend needs to
// create a texture object. Values match the cudaTextureDesc enumerations.
type TextureParams struct {
	AddressMode      int
	FilterMode       int
	ReadMode         int
	NormalizedCoords bool
}

// Backend is the native operation surface. Device ordinals identify which
// device an allocation lives on; pointers are raw device addresses. All
// methods are safe for concurrent use.
type Backend interface {
	DeviceCount() int
	DeviceProps(device int) (DeviceProps, error)
	SetDevice(device int) error
	CurrentDevice() int

	Malloc(device int, size int64) (uintptr, error)
	Memset(device int, ptr uintptr, value byte, size int64) error
	Free(device int, ptr uintptr) error
	CopyIn(device int, dst uintptr, src []byte) error
	CopyOut(device int, dst []byte, src uintptr) error

	MallocArray(device int, desc ChannelDesc, width, height, depth int64, flags uint32) (uintptr, error)
	FreeArray(device int, handle uintptr) error
	CopyToArray(device int, handle uintptr, src []byte) error
	CopyFromArray(device int, dst []byte, handle uintptr) error

	CreateTexture(device int, array uintptr, params TextureParams) (uint64, error)
	DestroyTexture(device int, handle uint64) error

	// RandStateSize reports the per-thread state struct size for a generator
	// selector. The size is owned by the native library and queried here,
	// never computed by callers.
	RandStateSize(generator int) (int64, error)
	RandInit(device, generator int, state uintptr, seed uint32, count int64) error
	RandSample(device, generator int, state, out uintptr, count int64) error
}

var (
	active     Backend
	activeOnce sync.Once
)

// Active returns the process-wide backend, creating it on first use.
func Active() Backend {
	activeOnce.Do(func() {
		active = newBackend()
	})
	return active
}
