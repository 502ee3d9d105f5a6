package cuda

import (
	"bytes"
	"errors"
	"testing"
)

func TestMallocZeroed(t *testing.T) {
	mem, err := MallocZeroed(256)
	if err != nil {
		t.Fatal(err)
	}
	defer mem.Free()

	if mem.Size() != 256 {
		t.Errorf("Size() = %d, want 256", mem.Size())
	}

	out := make([]byte, 256)
	out[0] = 0xff // prove the copy happened
	if err := mem.CopyOut(out); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, make([]byte, 256)) {
		t.Error("fresh allocation is not zero-initialized")
	}
}

func TestMemoryRoundTrip(t *testing.T) {
	mem, err := MallocZeroed(64)
	if err != nil {
		t.Fatal(err)
	}
	defer mem.Free()

	src := make([]byte, 64)
	for i := range src {
		src[i] = byte(i * 3)
	}
	if err := mem.CopyIn(src); err != nil {
		t.Fatal(err)
	}

	dst := make([]byte, 64)
	if err := mem.CopyOut(dst); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(src, dst) {
		t.Error("round trip mismatch")
	}
}

func TestMemoryBounds(t *testing.T) {
	mem, err := MallocZeroed(16)
	if err != nil {
		t.Fatal(err)
	}
	defer mem.Free()

	if err := mem.CopyIn(make([]byte, 17)); err == nil {
		t.Error("oversized CopyIn succeeded")
	}
	if err := mem.CopyOut(make([]byte, 17)); err == nil {
		t.Error("oversized CopyOut succeeded")
	}

	if _, err := MallocZeroed(-1); err == nil {
		t.Error("negative allocation succeeded")
	}
}

func TestMemoryFree(t *testing.T) {
	mem, err := MallocZeroed(16)
	if err != nil {
		t.Fatal(err)
	}

	if err := mem.Free(); err != nil {
		t.Fatal(err)
	}
	if err := mem.Free(); err != nil {
		t.Errorf("second Free() = %v", err)
	}

	if _, err := mem.Ptr(); err == nil {
		t.Error("Ptr() on freed memory succeeded")
	}
	if err := mem.CopyIn(make([]byte, 4)); err == nil {
		t.Error("CopyIn on freed memory succeeded")
	}
}

func TestMemoryDeviceAffinity(t *testing.T) {
	if Count() < 2 {
		t.Skip("needs at least two devices")
	}
	t.Cleanup(func() { SetDevice(0) })

	if err := SetDevice(0); err != nil {
		t.Fatal(err)
	}
	mem, err := MallocZeroed(32)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		SetDevice(0)
		mem.Free()
	}()

	if err := SetDevice(1); err != nil {
		t.Fatal(err)
	}
	if err := mem.CopyOut(make([]byte, 32)); !errors.Is(err, ErrDeviceMismatch) {
		t.Errorf("CopyOut from wrong device = %v, want ErrDeviceMismatch", err)
	}
	if _, err := mem.Ptr(); !errors.Is(err, ErrDeviceMismatch) {
		t.Errorf("Ptr from wrong device = %v, want ErrDeviceMismatch", err)
	}
	if err := mem.Free(); !errors.Is(err, ErrDeviceMismatch) {
		t.Errorf("Free from wrong device = %v, want ErrDeviceMismatch", err)
	}
}
