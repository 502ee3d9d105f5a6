// Package cuda is the device runtime surface of cunum: device enumeration
// and selection, linear device memory, CUDA arrays and texture objects.
// Operations dispatch into the native CUDA runtime when built with the cuda
// tag, and into a simulated in-process runtime otherwise.
package cuda

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/cunum/cunum/internal/backend"
)

// ErrDeviceMismatch is returned when a resource allocated on one device is
// touched while another device is active. This is a caller error, never
// retried; switch back to the owning device instead.
var ErrDeviceMismatch = errors.New("active device differs from the resource's device")

type DeviceID struct {
	// ID is the device ordinal as a string, stable for the process lifetime.
	ID string `json:"id"`

	// Library identifies which runtime backs the device (e.g. CUDA, sim)
	Library string `json:"backend,omitempty"`
}

type DeviceInfo struct {
	DeviceID

	// Name is the name of the device as labeled by the backend
	Name string `json:"name"`

	// TotalMemory is the total amount of device memory
	TotalMemory uint64 `json:"total_memory"`

	// FreeMemory is the amount of memory currently available on the device
	FreeMemory uint64 `json:"free_memory,omitempty"`

	// ComputeMajor is the major version of capabilities of the device
	ComputeMajor int

	// ComputeMinor is the minor version of capabilities of the device
	ComputeMinor int
}

func (d DeviceInfo) Compute() string {
	return strconv.Itoa(d.ComputeMajor) + "." + strconv.Itoa(d.ComputeMinor)
}

// Device is a handle to one device. Resources record the Device they were
// created on and re-validate it on every access, so affinity violations
// surface as ErrDeviceMismatch rather than corrupted native state.
type Device struct {
	ordinal int
}

func (d Device) Ordinal() int { return d.ordinal }

func (d Device) String() string { return "cuda:" + strconv.Itoa(d.ordinal) }

func (d Device) Info() (DeviceInfo, error) {
	props, err := backend.Active().DeviceProps(d.ordinal)
	if err != nil {
		return DeviceInfo{}, err
	}
	return DeviceInfo{
		DeviceID:     DeviceID{ID: strconv.Itoa(d.ordinal), Library: props.Library},
		Name:         props.Name,
		TotalMemory:  props.TotalMemory,
		FreeMemory:   props.FreeMemory,
		ComputeMajor: props.ComputeMajor,
		ComputeMinor: props.ComputeMinor,
	}, nil
}

// ensureActive reports ErrDeviceMismatch if d is not the active device.
func (d Device) ensureActive() error {
	if active := backend.Active().CurrentDevice(); active != d.ordinal {
		return fmt.Errorf("%w: active cuda:%d, resource on %s", ErrDeviceMismatch, active, d)
	}
	return nil
}

// Count returns the number of visible devices.
func Count() int {
	return backend.Active().DeviceCount()
}

// Current returns a handle to the active device.
func Current() Device {
	return Device{ordinal: backend.Active().CurrentDevice()}
}

// SetDevice makes the device with the given ordinal active.
func SetDevice(ordinal int) error {
	return backend.Active().SetDevice(ordinal)
}

// Devices enumerates all visible devices.
func Devices() ([]DeviceInfo, error) {
	var infos []DeviceInfo
	for i := 0; i < Count(); i++ {
		info, err := (Device{ordinal: i}).Info()
		if err != nil {
			return nil, fmt.Errorf("device %d: %w", i, err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}
