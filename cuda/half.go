package cuda

import (
	"encoding/binary"

	"github.com/x448/float16"
)

// PackHalf converts float32 host data to the packed 16-bit layout expected
// by half-format arrays.
func PackHalf(src []float32) []byte {
	out := make([]byte, 2*len(src))
	for i, v := range src {
		binary.LittleEndian.PutUint16(out[2*i:], float16.Fromfloat32(v).Bits())
	}
	return out
}

// UnpackHalf converts packed 16-bit array bytes back to float32. The byte
// length must be even; a trailing odd byte is ignored.
func UnpackHalf(src []byte) []float32 {
	out := make([]float32, len(src)/2)
	for i := range out {
		out[i] = float16.Frombits(binary.LittleEndian.Uint16(src[2*i:])).Float32()
	}
	return out
}
