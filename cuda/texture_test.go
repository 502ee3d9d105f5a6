package cuda

import (
	"bytes"
	"testing"
)

func newTestArray(t *testing.T) *Array {
	t.Helper()
	arr, err := NewArray(ChannelFormatDesc{X: 32, Kind: ChannelFormatFloat}, 16, 16, 0, ArrayDefault)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { arr.Free() })
	return arr
}

func TestTextureObjectLifecycle(t *testing.T) {
	arr := newTestArray(t)

	tex, err := NewTextureObject(ResourceDesc{Array: arr}, TextureDesc{
		AddressMode: AddressModeClamp,
		FilterMode:  FilterModeLinear,
		ReadMode:    ReadModeElementType,
	})
	if err != nil {
		t.Fatal(err)
	}

	handle, err := tex.Handle()
	if err != nil {
		t.Fatal(err)
	}
	if handle == 0 {
		t.Error("texture handle is zero")
	}

	if err := tex.Destroy(); err != nil {
		t.Fatal(err)
	}
	if err := tex.Destroy(); err != nil {
		t.Errorf("second Destroy() = %v", err)
	}
	if _, err := tex.Handle(); err == nil {
		t.Error("Handle() after Destroy succeeded")
	}
}

func TestTextureDoesNotOwnArray(t *testing.T) {
	arr := newTestArray(t)

	src := make([]byte, arr.ByteSize())
	for i := range src {
		src[i] = byte(i * 7)
	}
	if err := arr.CopyFrom(src); err != nil {
		t.Fatal(err)
	}

	tex, err := NewTextureObject(ResourceDesc{Array: arr}, TextureDesc{})
	if err != nil {
		t.Fatal(err)
	}
	if err := tex.Destroy(); err != nil {
		t.Fatal(err)
	}

	// destroying the handle must leave the backing memory intact
	dst := make([]byte, arr.ByteSize())
	if err := arr.CopyTo(dst); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(src, dst) {
		t.Error("array contents changed after texture destruction")
	}
}

func TestTextureObjectValidation(t *testing.T) {
	if _, err := NewTextureObject(ResourceDesc{}, TextureDesc{}); err == nil {
		t.Error("nil array accepted")
	}

	arr, err := NewArray(ChannelFormatDesc{X: 32, Kind: ChannelFormatFloat}, 4, 0, 0, ArrayDefault)
	if err != nil {
		t.Fatal(err)
	}
	if err := arr.Free(); err != nil {
		t.Fatal(err)
	}
	if _, err := NewTextureObject(ResourceDesc{Array: arr}, TextureDesc{}); err == nil {
		t.Error("freed array accepted")
	}
}

func TestDistinctTextureHandles(t *testing.T) {
	arr := newTestArray(t)

	a, err := NewTextureObject(ResourceDesc{Array: arr}, TextureDesc{})
	if err != nil {
		t.Fatal(err)
	}
	defer a.Destroy()
	b, err := NewTextureObject(ResourceDesc{Array: arr}, TextureDesc{NormalizedCoords: true})
	if err != nil {
		t.Fatal(err)
	}
	defer b.Destroy()

	ha, err := a.Handle()
	if err != nil {
		t.Fatal(err)
	}
	hb, err := b.Handle()
	if err != nil {
		t.Fatal(err)
	}
	if ha == hb {
		t.Error("two texture objects share a handle")
	}
}
