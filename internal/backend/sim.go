//go:build !cuda

package backend

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/cunum/cunum/envconfig"
	"github.com/cunum/cunum/format"
)

// The simulated backend keeps every "device" allocation as a host slab keyed
// by a synthetic address. It exists so the binding layer and its callers run
// without hardware; its sampling kernels are deterministic but make no claim
// of bit-compatibility with cuRAND.

const simTotalMemory = 8 * format.GibiByte

// Per-thread state struct sizes reported by the simulator, matching the
// native curandState layouts so allocation sizing behaves as on hardware.
var simStateSizes = map[int]int64{
	GeneratorXORWOW:      48,
	GeneratorMRG32k3a:    72,
	GeneratorPhilox43210: 64,
}

type simDevice struct {
	props  simProps
	allocs map[uintptr][]byte
	arrays map[uintptr][]byte
	texes  map[uint64]uintptr
	used   int64
}

type simProps struct {
	name                       string
	computeMajor, computeMinor int
}

type simBackend struct {
	mu       sync.RWMutex
	devices  []*simDevice
	current  int
	nextAddr uintptr
	nextTex  uint64
}

func newBackend() Backend {
	n := int(envconfig.SimDevices())
	if n < 1 {
		n = 1
	}
	b := &simBackend{nextAddr: 0x10000, nextTex: 1}
	for i := 0; i < n; i++ {
		b.devices = append(b.devices, &simDevice{
			props:  simProps{name: fmt.Sprintf("Simulated Device %d", i), computeMajor: 8, computeMinor: 6},
			allocs: make(map[uintptr][]byte),
			arrays: make(map[uintptr][]byte),
			texes:  make(map[uint64]uintptr),
		})
	}
	slog.Debug("simulated runtime ready", "devices", n, "memory", format.HumanBytes2(simTotalMemory))
	return b
}

func (b *simBackend) DeviceCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.devices)
}

func (b *simBackend) DeviceProps(device int) (DeviceProps, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	d, err := b.device(device)
	if err != nil {
		return DeviceProps{}, err
	}
	return DeviceProps{
		Name:         d.props.name,
		Library:      "sim",
		TotalMemory:  simTotalMemory,
		FreeMemory:   simTotalMemory - uint64(d.used),
		ComputeMajor: d.props.computeMajor,
		ComputeMinor: d.props.computeMinor,
	}, nil
}

func (b *simBackend) SetDevice(device int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.device(device); err != nil {
		return err
	}
	b.current = device
	return nil
}

func (b *simBackend) CurrentDevice() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.current
}

func (b *simBackend) Malloc(device int, size int64) (uintptr, error) {
	if size < 0 {
		return 0, fmt.Errorf("invalid allocation size %d", size)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	d, err := b.device(device)
	if err != nil {
		return 0, err
	}
	if d.used+size > simTotalMemory {
		return 0, fmt.Errorf("out of memory: %s requested, %s free", format.HumanBytes2(uint64(size)), format.HumanBytes2(simTotalMemory-uint64(d.used)))
	}
	addr := b.alloc()
	d.allocs[addr] = make([]byte, size)
	d.used += size
	return addr, nil
}

func (b *simBackend) Memset(device int, ptr uintptr, value byte, size int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	buf, err := b.lookup(device, ptr)
	if err != nil {
		return err
	}
	if size > int64(len(buf)) {
		return fmt.Errorf("memset of %d bytes exceeds allocation of %d", size, len(buf))
	}
	for i := int64(0); i < size; i++ {
		buf[i] = value
	}
	return nil
}

func (b *simBackend) Free(device int, ptr uintptr) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, err := b.device(device)
	if err != nil {
		return err
	}
	buf, ok := d.allocs[ptr]
	if !ok {
		return fmt.Errorf("invalid device pointer %#x", ptr)
	}
	d.used -= int64(len(buf))
	delete(d.allocs, ptr)
	return nil
}

func (b *simBackend) CopyIn(device int, dst uintptr, src []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	buf, err := b.lookup(device, dst)
	if err != nil {
		return err
	}
	if len(src) > len(buf) {
		return fmt.Errorf("copy of %d bytes exceeds allocation of %d", len(src), len(buf))
	}
	copy(buf, src)
	return nil
}

func (b *simBackend) CopyOut(device int, dst []byte, src uintptr) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	buf, err := b.lookup(device, src)
	if err != nil {
		return err
	}
	if len(dst) > len(buf) {
		return fmt.Errorf("copy of %d bytes exceeds allocation of %d", len(dst), len(buf))
	}
	copy(dst, buf)
	return nil
}

func (b *simBackend) MallocArray(device int, desc ChannelDesc, width, height, depth int64, flags uint32) (uintptr, error) {
	size := desc.Bytes() * width
	if height > 0 {
		size *= height
	}
	if depth > 0 {
		size *= depth
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	d, err := b.device(device)
	if err != nil {
		return 0, err
	}
	if d.used+size > simTotalMemory {
		return 0, fmt.Errorf("out of memory: %s requested", format.HumanBytes2(uint64(size)))
	}
	addr := b.alloc()
	d.arrays[addr] = make([]byte, size)
	d.used += size
	return addr, nil
}

func (b *simBackend) FreeArray(device int, handle uintptr) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, err := b.device(device)
	if err != nil {
		return err
	}
	buf, ok := d.arrays[handle]
	if !ok {
		return fmt.Errorf("invalid array handle %#x", handle)
	}
	d.used -= int64(len(buf))
	delete(d.arrays, handle)
	return nil
}

func (b *simBackend) CopyToArray(device int, handle uintptr, src []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, err := b.device(device)
	if err != nil {
		return err
	}
	buf, ok := d.arrays[handle]
	if !ok {
		return fmt.Errorf("invalid array handle %#x", handle)
	}
	if len(src) > len(buf) {
		return fmt.Errorf("copy of %d bytes exceeds array of %d", len(src), len(buf))
	}
	copy(buf, src)
	return nil
}

func (b *simBackend) CopyFromArray(device int, dst []byte, handle uintptr) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	d, err := b.device(device)
	if err != nil {
		return err
	}
	buf, ok := d.arrays[handle]
	if !ok {
		return fmt.Errorf("invalid array handle %#x", handle)
	}
	if len(dst) > len(buf) {
		return fmt.Errorf("copy of %d bytes exceeds array of %d", len(dst), len(buf))
	}
	copy(dst, buf)
	return nil
}

func (b *simBackend) CreateTexture(device int, array uintptr, params TextureParams) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, err := b.device(device)
	if err != nil {
		return 0, err
	}
	if _, ok := d.arrays[array]; !ok {
		return 0, fmt.Errorf("invalid array handle %#x", array)
	}
	h := b.nextTex
	b.nextTex++
	d.texes[h] = array
	return h, nil
}

func (b *simBackend) DestroyTexture(device int, handle uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, err := b.device(device)
	if err != nil {
		return err
	}
	if _, ok := d.texes[handle]; !ok {
		return fmt.Errorf("invalid texture handle %d", handle)
	}
	delete(d.texes, handle)
	return nil
}

func (b *simBackend) RandStateSize(generator int) (int64, error) {
	size, ok := simStateSizes[generator]
	if !ok {
		return 0, fmt.Errorf("unknown generator selector %d", generator)
	}
	return size, nil
}

// RandInit scrambles one 64-bit word into the head of each per-thread state
// slot. The rest of the slot stays zero; the simulator only ever touches the
// head word during sampling.
func (b *simBackend) RandInit(device, generator int, state uintptr, seed uint32, count int64) error {
	stateSize, err := b.RandStateSize(generator)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	buf, err := b.lookup(device, state)
	if err != nil {
		return err
	}
	if count*stateSize > int64(len(buf)) {
		return fmt.Errorf("state buffer of %d bytes too small for %d threads", len(buf), count)
	}

	base := (uint64(seed) + 1) * 0x9e3779b97f4a7c15
	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	const shard = 1 << 14
	for lo := int64(0); lo < count; lo += shard {
		hi := min(lo+shard, count)
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				word := splitmix(base ^ uint64(generator)<<32 ^ uint64(i))
				binary.LittleEndian.PutUint64(buf[i*stateSize:], word)
			}
			return nil
		})
	}
	return g.Wait()
}

func (b *simBackend) RandSample(device, generator int, state, out uintptr, count int64) error {
	if count == 0 {
		return nil
	}
	stateSize, err := b.RandStateSize(generator)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	stateBuf, err := b.lookup(device, state)
	if err != nil {
		return err
	}
	outBuf, err := b.lookup(device, out)
	if err != nil {
		return err
	}
	threads := int64(len(stateBuf)) / stateSize
	if threads == 0 {
		return fmt.Errorf("state buffer of %d bytes holds no thread state", len(stateBuf))
	}
	if count*4 > int64(len(outBuf)) {
		return fmt.Errorf("output buffer of %d bytes too small for %d words", len(outBuf), count)
	}

	for i := int64(0); i < count; i++ {
		slot := stateBuf[(i%threads)*stateSize:]
		s := binary.LittleEndian.Uint64(slot) + 0x9e3779b97f4a7c15
		binary.LittleEndian.PutUint64(slot, s)
		binary.LittleEndian.PutUint32(outBuf[i*4:], uint32(splitmix(s)>>32))
	}
	return nil
}

// device must be called with b.mu held.
func (b *simBackend) device(device int) (*simDevice, error) {
	if device < 0 || device >= len(b.devices) {
		return nil, fmt.Errorf("invalid device ordinal %d", device)
	}
	return b.devices[device], nil
}

// lookup must be called with b.mu held.
func (b *simBackend) lookup(device int, ptr uintptr) ([]byte, error) {
	d, err := b.device(device)
	if err != nil {
		return nil, err
	}
	buf, ok := d.allocs[ptr]
	if !ok {
		return nil, fmt.Errorf("invalid device pointer %#x", ptr)
	}
	return buf, nil
}

// alloc must be called with b.mu held.
func (b *simBackend) alloc() uintptr {
	addr := b.nextAddr
	b.nextAddr += 0x100
	return addr
}

func splitmix(z uint64) uint64 {
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
