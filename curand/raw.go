package curand

import (
	"encoding/binary"

	"github.com/cunum/cunum/cuda"
)

// Raw is a shaped device buffer of raw generator output. Values are 32-bit
// and unsigned; the underlying memory is freed by Free, not by the
// generator that produced it.
type Raw struct {
	shape []int
	mem   *cuda.Memory
}

// Shape returns the draw shape; empty for a scalar draw.
func (r *Raw) Shape() []int {
	return append([]int(nil), r.shape...)
}

// Len returns the number of 32-bit values.
func (r *Raw) Len() int {
	return int(r.mem.Size() / 4)
}

// Memory exposes the backing device allocation for kernel-launch helpers.
func (r *Raw) Memory() *cuda.Memory { return r.mem }

// Uint32s copies the values to the host.
func (r *Raw) Uint32s() ([]uint32, error) {
	buf := make([]byte, r.mem.Size())
	if err := r.mem.CopyOut(buf); err != nil {
		return nil, err
	}
	out := make([]uint32, len(buf)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(buf[4*i:])
	}
	return out, nil
}

// Free releases the device buffer. Safe to call more than once.
func (r *Raw) Free() error {
	return r.mem.Free()
}
