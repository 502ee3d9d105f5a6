// Package curand exposes device-resident pseudo-random bit generators in
// the XORWOW, MRG32k3a and Philox4x32-10 families, seeded through
// deterministic seed sequences. The per-thread generator state lives in
// device memory; this layer owns seed derivation, state-buffer sizing,
// device-affinity checks and dispatch into the native routines.
package curand

import (
	crand "crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"slices"
)

// ErrSeedRange is returned for scalar seeds outside the representable range.
var ErrSeedRange = errors.New("seed out of range")

// SeedSequence deterministically derives dispersed state words from entropy.
// The same entropy and spawn path always produce the same words, across
// processes and runs.
type SeedSequence struct {
	entropy  []uint64
	spawnKey []uint64
	children int
}

// NewSeedSequence builds a sequence from the given entropy words. With no
// arguments, entropy is drawn from the operating system and the sequence is
// not reproducible; log Entropy() if the run needs to be replayed.
func NewSeedSequence(entropy ...uint64) *SeedSequence {
	if len(entropy) == 0 {
		entropy = osEntropy()
	}
	return &SeedSequence{entropy: slices.Clone(entropy)}
}

// SeedFromInt64 builds a sequence from a scalar seed, the legacy entry point
// for callers holding signed seeds. Negative values are not representable
// and are rejected with ErrSeedRange rather than silently reinterpreted.
func SeedFromInt64(seed int64) (*SeedSequence, error) {
	if seed < 0 {
		return nil, fmt.Errorf("%w: %d", ErrSeedRange, seed)
	}
	return NewSeedSequence(uint64(seed)), nil
}

func osEntropy() []uint64 {
	var buf [16]byte
	// crypto/rand does not fail on supported platforms
	crand.Read(buf[:])
	return []uint64{
		binary.LittleEndian.Uint64(buf[:8]),
		binary.LittleEndian.Uint64(buf[8:]),
	}
}

// Entropy returns the captured entropy words for reproducibility logging.
func (s *SeedSequence) Entropy() []uint64 {
	return slices.Clone(s.entropy)
}

// GenerateState derives n 32-bit state words. Words are produced by hashing
// (entropy, spawn key, block counter), so nearby seeds still yield unrelated
// states.
func (s *SeedSequence) GenerateState(n int) []uint32 {
	words := make([]uint32, 0, n)
	for counter := uint64(0); len(words) < n; counter++ {
		h := sha256.New()
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], uint64(len(s.entropy)))
		h.Write(b[:])
		for _, e := range s.entropy {
			binary.LittleEndian.PutUint64(b[:], e)
			h.Write(b[:])
		}
		for _, k := range s.spawnKey {
			binary.LittleEndian.PutUint64(b[:], k)
			h.Write(b[:])
		}
		binary.LittleEndian.PutUint64(b[:], counter)
		h.Write(b[:])

		sum := h.Sum(nil)
		for i := 0; i+4 <= len(sum) && len(words) < n; i += 4 {
			words = append(words, binary.LittleEndian.Uint32(sum[i:]))
		}
	}
	return words
}

// Spawn returns n child sequences with independent state streams. Children
// spawned later get later stream numbers, so spawning is itself
// deterministic for a fixed call order.
func (s *SeedSequence) Spawn(n int) []*SeedSequence {
	children := make([]*SeedSequence, n)
	for i := range children {
		children[i] = &SeedSequence{
			entropy:  slices.Clone(s.entropy),
			spawnKey: append(slices.Clone(s.spawnKey), uint64(s.children+i)),
		}
	}
	s.children += n
	return children
}
