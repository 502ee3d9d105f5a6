package cuda

import (
	"fmt"
	"sync"

	"github.com/cunum/cunum/internal/backend"
)

// TextureAddressMode mirrors cudaTextureAddressMode.
type TextureAddressMode int

const (
	AddressModeWrap TextureAddressMode = iota
	AddressModeClamp
	AddressModeMirror
	AddressModeBorder
)

// TextureFilterMode mirrors cudaTextureFilterMode.
type TextureFilterMode int

const (
	FilterModePoint TextureFilterMode = iota
	FilterModeLinear
)

// TextureReadMode mirrors cudaTextureReadMode.
type TextureReadMode int

const (
	ReadModeElementType TextureReadMode = iota
	ReadModeNormalizedFloat
)

// ResourceDesc names the memory a texture reads from. Only array-backed
// resources are marshaled at this layer.
type ResourceDesc struct {
	Array *Array
}

// TextureDesc carries the sampling parameters for a texture object.
type TextureDesc struct {
	AddressMode      TextureAddressMode
	FilterMode       TextureFilterMode
	ReadMode         TextureReadMode
	NormalizedCoords bool
}

// TextureObject is an opaque native texture handle bound to an Array. It
// owns only the handle: Destroy releases the handle and never the backing
// array, and freeing the array first leaves the handle dangling exactly as
// the native API does.
type TextureObject struct {
	dev Device

	mu        sync.Mutex
	handle    uint64
	destroyed bool
}

// NewTextureObject creates a texture object over the resource's array on the
// current device.
func NewTextureObject(res ResourceDesc, tex TextureDesc) (*TextureObject, error) {
	if res.Array == nil {
		return nil, fmt.Errorf("resource descriptor requires an array")
	}
	arrHandle, err := res.Array.nativeHandle()
	if err != nil {
		return nil, err
	}
	dev := Current()
	handle, err := backend.Active().CreateTexture(dev.ordinal, arrHandle, backend.TextureParams{
		AddressMode:      int(tex.AddressMode),
		FilterMode:       int(tex.FilterMode),
		ReadMode:         int(tex.ReadMode),
		NormalizedCoords: tex.NormalizedCoords,
	})
	if err != nil {
		return nil, fmt.Errorf("texture creation failed: %w", err)
	}
	return &TextureObject{dev: dev, handle: handle}, nil
}

func (t *TextureObject) Device() Device { return t.dev }

// Handle returns the native texture object handle for kernel arguments.
func (t *TextureObject) Handle() (uint64, error) {
	if err := t.dev.ensureActive(); err != nil {
		return 0, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.destroyed {
		return 0, fmt.Errorf("use of destroyed texture object")
	}
	return t.handle, nil
}

// Destroy releases the texture handle. Safe to call more than once.
func (t *TextureObject) Destroy() error {
	if err := t.dev.ensureActive(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.destroyed {
		return nil
	}
	t.destroyed = true
	return backend.Active().DestroyTexture(t.dev.ordinal, t.handle)
}
