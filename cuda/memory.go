package cuda

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/cunum/cunum/format"
	"github.com/cunum/cunum/internal/backend"
)

// Memory is a linear device allocation. It exclusively owns its device
// bytes; Free releases them and is idempotent. Every accessor validates
// device affinity before touching the allocation.
type Memory struct {
	dev  Device
	ptr  uintptr
	size int64

	mu    sync.Mutex
	freed bool
}

// MallocZeroed allocates size zero-initialized bytes on the current device.
func MallocZeroed(size int64) (*Memory, error) {
	if size < 0 {
		return nil, fmt.Errorf("invalid allocation size %d", size)
	}
	dev := Current()
	ptr, err := backend.Active().Malloc(dev.ordinal, size)
	if err != nil {
		return nil, fmt.Errorf("device allocation failed: %w", err)
	}
	if err := backend.Active().Memset(dev.ordinal, ptr, 0, size); err != nil {
		backend.Active().Free(dev.ordinal, ptr)
		return nil, fmt.Errorf("zero fill failed: %w", err)
	}
	slog.Debug("allocated device memory", "device", dev, "size", format.HumanBytes2(uint64(size)))
	return &Memory{dev: dev, ptr: ptr, size: size}, nil
}

func (m *Memory) Size() int64 { return m.size }

func (m *Memory) Device() Device { return m.dev }

// Ptr returns the raw device address after a device-affinity check. The
// address is only meaningful to kernel-launch helpers running on the same
// device.
func (m *Memory) Ptr() (uintptr, error) {
	if err := m.dev.ensureActive(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.freed {
		return 0, fmt.Errorf("use of freed device memory")
	}
	return m.ptr, nil
}

// CopyIn transfers host bytes to the device allocation.
func (m *Memory) CopyIn(src []byte) error {
	if err := m.dev.ensureActive(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.freed {
		return fmt.Errorf("use of freed device memory")
	}
	if int64(len(src)) > m.size {
		return fmt.Errorf("copy of %d bytes exceeds allocation of %d", len(src), m.size)
	}
	return backend.Active().CopyIn(m.dev.ordinal, m.ptr, src)
}

// CopyOut transfers the allocation's bytes to dst.
func (m *Memory) CopyOut(dst []byte) error {
	if err := m.dev.ensureActive(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.freed {
		return fmt.Errorf("use of freed device memory")
	}
	if int64(len(dst)) > m.size {
		return fmt.Errorf("copy of %d bytes exceeds allocation of %d", len(dst), m.size)
	}
	return backend.Active().CopyOut(m.dev.ordinal, dst, m.ptr)
}

// Free releases the device allocation. Safe to call more than once.
func (m *Memory) Free() error {
	if err := m.dev.ensureActive(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.freed {
		return nil
	}
	m.freed = true
	return backend.Active().Free(m.dev.ordinal, m.ptr)
}
