// Package cpufeat probes CPU SIMD capability once at startup and answers
// which fitness-kernel lane width the process should prefer, the Go
// counterpart of the original's cpu.c feature gate
// (can_use_intel_core_4th_gen_features / can_use_sse2).
package cpufeat

import "github.com/klauspost/cpuid/v2"

// Features is a cached snapshot of the capability probe, taken once and
// reused for the lifetime of the process — the fitness kernel never
// re-probes per call.
type Features struct {
	HasSSE2 bool
	HasAVX2 bool
}

// Detect probes the running CPU once.
func Detect() Features {
	return Features{
		HasSSE2: cpuid.CPU.Supports(cpuid.SSE2),
		HasAVX2: cpuid.CPU.Supports(cpuid.AVX2),
	}
}

// PreferredLane returns the widest lane width (cgp.LaneAVX2/LaneSSE2/
// LaneScalar) this CPU can run, as an int so callers outside pkg/cgp
// don't need to import it just to read a constant.
func (f Features) PreferredLane() int {
	switch {
	case f.HasAVX2:
		return 32
	case f.HasSSE2:
		return 16
	default:
		return 1
	}
}

// Summary renders a short startup banner, mirroring print_sysinfo.
func (f Features) Summary() string {
	switch {
	case f.HasAVX2:
		return "cpu: AVX2 lane (32-wide) available"
	case f.HasSSE2:
		return "cpu: SSE2 lane (16-wide) available"
	default:
		return "cpu: no SIMD lane available, using scalar path"
	}
}
