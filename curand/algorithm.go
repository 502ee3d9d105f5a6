package curand

import "github.com/cunum/cunum/internal/backend"

// Algorithm is the closed set of supported generator families. Each value
// carries its native selector; the per-thread state size is a property of
// the native library and is queried from the backend, never computed here.
type Algorithm int

const (
	XORWOW Algorithm = iota
	MRG32k3a
	Philox4x32x10
)

func (a Algorithm) String() string {
	switch a {
	case XORWOW:
		return "xorwow"
	case MRG32k3a:
		return "mrg32k3a"
	case Philox4x32x10:
		return "philox4x32-10"
	default:
		return "unknown"
	}
}

// selector returns the native generator enumeration value.
func (a Algorithm) selector() int {
	switch a {
	case XORWOW:
		return backend.GeneratorXORWOW
	case MRG32k3a:
		return backend.GeneratorMRG32k3a
	case Philox4x32x10:
		return backend.GeneratorPhilox43210
	default:
		return 0
	}
}

func (a Algorithm) valid() bool {
	switch a {
	case XORWOW, MRG32k3a, Philox4x32x10:
		return true
	}
	return false
}

// ParseAlgorithm maps a name to an Algorithm, for CLI and config surfaces.
func ParseAlgorithm(s string) (Algorithm, bool) {
	for _, a := range []Algorithm{XORWOW, MRG32k3a, Philox4x32x10} {
		if s == a.String() {
			return a, true
		}
	}
	return 0, false
}
