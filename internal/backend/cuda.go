//go:build cuda && cgo

package backend

/*
#cgo CFLAGS: -I/usr/local/cuda/include -I/opt/cuda/include
#cgo LDFLAGS: -L/usr/local/cuda/lib64 -L/opt/cuda/lib64 -lcudart -lcurand

#include <cuda_runtime.h>
#include <curand.h>
#include <stdlib.h>

static const char* cunumCudaError(cudaError_t e) {
	return cudaGetErrorString(e);
}

// curand has no strerror; map the statuses we can hit.
static const char* cunumCurandError(curandStatus_t s) {
	switch (s) {
	case CURAND_STATUS_SUCCESS: return "success";
	case CURAND_STATUS_VERSION_MISMATCH: return "version mismatch";
	case CURAND_STATUS_NOT_INITIALIZED: return "generator not initialized";
	case CURAND_STATUS_ALLOCATION_FAILED: return "allocation failed";
	case CURAND_STATUS_TYPE_ERROR: return "type error";
	case CURAND_STATUS_OUT_OF_RANGE: return "out of range";
	case CURAND_STATUS_LENGTH_NOT_MULTIPLE: return "length not a multiple";
	case CURAND_STATUS_LAUNCH_FAILURE: return "kernel launch failure";
	case CURAND_STATUS_PREEXISTING_FAILURE: return "preexisting failure";
	case CURAND_STATUS_INITIALIZATION_FAILED: return "initialization failed";
	case CURAND_STATUS_ARCH_MISMATCH: return "arch mismatch";
	case CURAND_STATUS_INTERNAL_ERROR: return "internal error";
	default: return "unknown curand error";
	}
}
*/
import "C"

import (
	"fmt"
	"sync"
	"unsafe"
)

// Native per-thread state struct sizes (sizeof curandStateXORWOW_t and
// friends). Fixed by the cuRAND ABI; kept here so callers can size state
// buffers without including device headers.
var cudaStateSizes = map[int]int64{
	GeneratorXORWOW:      48,
	GeneratorMRG32k3a:    72,
	GeneratorPhilox43210: 64,
}

type cudaBackend struct {
	mu sync.Mutex
	// Host-API generators keyed by the state buffer they were initialized
	// against. The buffers themselves stay available for custom kernels.
	gens map[uintptr]C.curandGenerator_t
}

func newBackend() Backend {
	return &cudaBackend{gens: make(map[uintptr]C.curandGenerator_t)}
}

func cudaErr(op string, e C.cudaError_t) error {
	if e == C.cudaSuccess {
		return nil
	}
	return fmt.Errorf("%s: %s", op, C.GoString(C.cunumCudaError(e)))
}

func curandErr(op string, s C.curandStatus_t) error {
	if s == C.CURAND_STATUS_SUCCESS {
		return nil
	}
	return fmt.Errorf("%s: %s", op, C.GoString(C.cunumCurandError(s)))
}

func (b *cudaBackend) DeviceCount() int {
	var n C.int
	if C.cudaGetDeviceCount(&n) != C.cudaSuccess {
		return 0
	}
	return int(n)
}

func (b *cudaBackend) DeviceProps(device int) (DeviceProps, error) {
	var props C.struct_cudaDeviceProp
	if err := cudaErr("cudaGetDeviceProperties", C.cudaGetDeviceProperties(&props, C.int(device))); err != nil {
		return DeviceProps{}, err
	}
	var free, total C.size_t
	C.cudaMemGetInfo(&free, &total)
	return DeviceProps{
		Name:         C.GoString(&props.name[0]),
		Library:      "CUDA",
		TotalMemory:  uint64(total),
		FreeMemory:   uint64(free),
		ComputeMajor: int(props.major),
		ComputeMinor: int(props.minor),
	}, nil
}

func (b *cudaBackend) SetDevice(device int) error {
	return cudaErr("cudaSetDevice", C.cudaSetDevice(C.int(device)))
}

func (b *cudaBackend) CurrentDevice() int {
	var d C.int
	C.cudaGetDevice(&d)
	return int(d)
}

func (b *cudaBackend) Malloc(device int, size int64) (uintptr, error) {
	if err := b.SetDevice(device); err != nil {
		return 0, err
	}
	var ptr unsafe.Pointer
	if err := cudaErr("cudaMalloc", C.cudaMalloc(&ptr, C.size_t(size))); err != nil {
		return 0, err
	}
	return uintptr(ptr), nil
}

func (b *cudaBackend) Memset(device int, ptr uintptr, value byte, size int64) error {
	if err := b.SetDevice(device); err != nil {
		return err
	}
	return cudaErr("cudaMemset", C.cudaMemset(unsafe.Pointer(ptr), C.int(value), C.size_t(size)))
}

func (b *cudaBackend) Free(device int, ptr uintptr) error {
	if err := b.SetDevice(device); err != nil {
		return err
	}
	b.mu.Lock()
	if gen, ok := b.gens[ptr]; ok {
		C.curandDestroyGenerator(gen)
		delete(b.gens, ptr)
	}
	b.mu.Unlock()
	return cudaErr("cudaFree", C.cudaFree(unsafe.Pointer(ptr)))
}

func (b *cudaBackend) CopyIn(device int, dst uintptr, src []byte) error {
	if len(src) == 0 {
		return nil
	}
	if err := b.SetDevice(device); err != nil {
		return err
	}
	return cudaErr("cudaMemcpy", C.cudaMemcpy(unsafe.Pointer(dst), unsafe.Pointer(&src[0]), C.size_t(len(src)), C.cudaMemcpyHostToDevice))
}

func (b *cudaBackend) CopyOut(device int, dst []byte, src uintptr) error {
	if len(dst) == 0 {
		return nil
	}
	if err := b.SetDevice(device); err != nil {
		return err
	}
	return cudaErr("cudaMemcpy", C.cudaMemcpy(unsafe.Pointer(&dst[0]), unsafe.Pointer(src), C.size_t(len(dst)), C.cudaMemcpyDeviceToHost))
}

func (b *cudaBackend) MallocArray(device int, desc ChannelDesc, width, height, depth int64, flags uint32) (uintptr, error) {
	if err := b.SetDevice(device); err != nil {
		return 0, err
	}
	cdesc := C.cudaCreateChannelDesc(C.int(desc.X), C.int(desc.Y), C.int(desc.Z), C.int(desc.W), C.enum_cudaChannelFormatKind(desc.Kind))
	var arr C.cudaArray_t
	if depth > 0 || height > 0 {
		extent := C.make_cudaExtent(C.size_t(width), C.size_t(height), C.size_t(depth))
		if err := cudaErr("cudaMalloc3DArray", C.cudaMalloc3DArray(&arr, &cdesc, extent, C.uint(flags))); err != nil {
			return 0, err
		}
	} else {
		if err := cudaErr("cudaMallocArray", C.cudaMallocArray(&arr, &cdesc, C.size_t(width), 0, C.uint(flags))); err != nil {
			return 0, err
		}
	}
	return uintptr(unsafe.Pointer(arr)), nil
}

func (b *cudaBackend) FreeArray(device int, handle uintptr) error {
	if err := b.SetDevice(device); err != nil {
		return err
	}
	return cudaErr("cudaFreeArray", C.cudaFreeArray(C.cudaArray_t(unsafe.Pointer(handle))))
}

func (b *cudaBackend) CopyToArray(device int, handle uintptr, src []byte) error {
	if len(src) == 0 {
		return nil
	}
	if err := b.SetDevice(device); err != nil {
		return err
	}
	return cudaErr("cudaMemcpyToArray",
		C.cudaMemcpyToArray(C.cudaArray_t(unsafe.Pointer(handle)), 0, 0, unsafe.Pointer(&src[0]), C.size_t(len(src)), C.cudaMemcpyHostToDevice))
}

func (b *cudaBackend) CopyFromArray(device int, dst []byte, handle uintptr) error {
	if len(dst) == 0 {
		return nil
	}
	if err := b.SetDevice(device); err != nil {
		return err
	}
	return cudaErr("cudaMemcpyFromArray",
		C.cudaMemcpyFromArray(unsafe.Pointer(&dst[0]), C.cudaArray_t(unsafe.Pointer(handle)), 0, 0, C.size_t(len(dst)), C.cudaMemcpyDeviceToHost))
}

func (b *cudaBackend) CreateTexture(device int, array uintptr, params TextureParams) (uint64, error) {
	if err := b.SetDevice(device); err != nil {
		return 0, err
	}
	var res C.struct_cudaResourceDesc
	res.resType = C.cudaResourceTypeArray
	*(*C.cudaArray_t)(unsafe.Pointer(&res.res[0])) = C.cudaArray_t(unsafe.Pointer(array))

	var tex C.struct_cudaTextureDesc
	for i := range tex.addressMode {
		tex.addressMode[i] = C.enum_cudaTextureAddressMode(params.AddressMode)
	}
	tex.filterMode = C.enum_cudaTextureFilterMode(params.FilterMode)
	tex.readMode = C.enum_cudaTextureReadMode(params.ReadMode)
	if params.NormalizedCoords {
		tex.normalizedCoords = 1
	}

	var obj C.cudaTextureObject_t
	if err := cudaErr("cudaCreateTextureObject", C.cudaCreateTextureObject(&obj, &res, &tex, nil)); err != nil {
		return 0, err
	}
	return uint64(obj), nil
}

func (b *cudaBackend) DestroyTexture(device int, handle uint64) error {
	if err := b.SetDevice(device); err != nil {
		return err
	}
	return cudaErr("cudaDestroyTextureObject", C.cudaDestroyTextureObject(C.cudaTextureObject_t(handle)))
}

func (b *cudaBackend) RandStateSize(generator int) (int64, error) {
	size, ok := cudaStateSizes[generator]
	if !ok {
		return 0, fmt.Errorf("unknown generator selector %d", generator)
	}
	return size, nil
}

func (b *cudaBackend) RandInit(device, generator int, state uintptr, seed uint32, count int64) error {
	if err := b.SetDevice(device); err != nil {
		return err
	}
	var gen C.curandGenerator_t
	if err := curandErr("curandCreateGenerator", C.curandCreateGenerator(&gen, C.curandRngType_t(generator))); err != nil {
		return err
	}
	if err := curandErr("curandSetPseudoRandomGeneratorSeed", C.curandSetPseudoRandomGeneratorSeed(gen, C.ulonglong(seed))); err != nil {
		C.curandDestroyGenerator(gen)
		return err
	}
	b.mu.Lock()
	if old, ok := b.gens[state]; ok {
		C.curandDestroyGenerator(old)
	}
	b.gens[state] = gen
	b.mu.Unlock()
	return nil
}

func (b *cudaBackend) RandSample(device, generator int, state, out uintptr, count int64) error {
	if count == 0 {
		return nil
	}
	if err := b.SetDevice(device); err != nil {
		return err
	}
	b.mu.Lock()
	gen, ok := b.gens[state]
	b.mu.Unlock()
	if !ok {
		return fmt.Errorf("state buffer %#x has no initialized generator", state)
	}
	if err := curandErr("curandGenerate", C.curandGenerate(gen, (*C.uint)(unsafe.Pointer(out)), C.size_t(count))); err != nil {
		return err
	}
	return cudaErr("cudaDeviceSynchronize", C.cudaDeviceSynchronize())
}
