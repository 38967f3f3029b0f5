package fmv

import "strings"

// DispatchLevel names a conventional bundle of capabilities that variants
// are commonly compiled for.
type DispatchLevel int

const (
	// DispatchScalar indicates no SIMD, pure Go implementation.
	DispatchScalar DispatchLevel = iota

	// DispatchSSE2 indicates SSE2 instructions (x86-64 baseline).
	DispatchSSE2

	// DispatchAVX2 indicates AVX2 plus FMA (256-bit SIMD).
	DispatchAVX2

	// DispatchAVX512 indicates AVX-512 F/DQ/BW/VL (512-bit SIMD).
	DispatchAVX512

	// DispatchNEON indicates ARM NEON instructions (128-bit SIMD).
	DispatchNEON

	// DispatchSVE indicates ARM SVE instructions (scalable vector).
	DispatchSVE

	// DispatchSME indicates ARM SME instructions (scalable matrix).
	DispatchSME
)

// String returns a human-readable name for the dispatch level.
func (d DispatchLevel) String() string {
	switch d {
	case DispatchScalar:
		return "scalar"
	case DispatchSSE2:
		return "sse2"
	case DispatchAVX2:
		return "avx2"
	case DispatchAVX512:
		return "avx512"
	case DispatchNEON:
		return "neon"
	case DispatchSVE:
		return "sve"
	case DispatchSME:
		return "sme"
	default:
		return "unknown"
	}
}

// ParseLevel is the inverse of String. "generic" and "baseline" are
// accepted for DispatchScalar.
func ParseLevel(s string) (DispatchLevel, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "scalar", "generic", "baseline":
		return DispatchScalar, true
	case "sse2":
		return DispatchSSE2, true
	case "avx2":
		return DispatchAVX2, true
	case "avx512":
		return DispatchAVX512, true
	case "neon":
		return DispatchNEON, true
	case "sve":
		return DispatchSVE, true
	case "sme":
		return DispatchSME, true
	default:
		return DispatchScalar, false
	}
}

var (
	levelCapsAVX2   = chainAVX2 | Of(FMA3)
	levelCapsAVX512 = levelCapsAVX2 | Of(AVX512F, AVX512DQ, AVX512BW, AVX512VL)
)

// Caps returns the capabilities a host must have to run code built for d.
func (d DispatchLevel) Caps() Caps {
	switch d {
	case DispatchSSE2:
		return Of(SSE2)
	case DispatchAVX2:
		return levelCapsAVX2
	case DispatchAVX512:
		return levelCapsAVX512
	case DispatchNEON:
		return Of(NEON)
	case DispatchSVE:
		return Of(NEON, SVE)
	case DispatchSME:
		return Of(NEON, SME)
	default:
		return Baseline
	}
}

// Width returns the SIMD register width in bytes for the level.
// Scalar reports 16 bytes so lane arithmetic stays consistent.
func (d DispatchLevel) Width() int {
	switch d {
	case DispatchAVX2:
		return 32
	case DispatchAVX512, DispatchSME:
		return 64
	default:
		return 16
	}
}

// levelOrder lists levels from most to least preferred.
var levelOrder = []DispatchLevel{
	DispatchSME,
	DispatchSVE,
	DispatchNEON,
	DispatchAVX512,
	DispatchAVX2,
	DispatchSSE2,
	DispatchScalar,
}

var levelReqs = func() []Caps {
	reqs := make([]Caps, len(levelOrder))
	for i, l := range levelOrder {
		reqs[i] = l.Caps()
	}
	return reqs
}()

// BestLevel returns the most capable level detected satisfies.
func BestLevel(detected Caps) DispatchLevel {
	// DispatchScalar is last and requires nothing, so the scan never fails.
	return levelOrder[SelectIndex(levelReqs, detected)]
}

// CurrentLevel returns the dispatch level of the process-wide detected
// capabilities, or DispatchScalar if detection failed.
func CurrentLevel() DispatchLevel {
	c, err := Detected()
	if err != nil {
		return DispatchScalar
	}
	return BestLevel(c)
}

// CurrentWidth returns the SIMD register width in bytes.
// For example: 16 for SSE2/NEON, 32 for AVX2, 64 for AVX-512.
func CurrentWidth() int {
	return CurrentLevel().Width()
}

// CurrentName returns a human-readable name for the current SIMD target.
// For example: "avx2", "neon", "scalar".
func CurrentName() string {
	return CurrentLevel().String()
}
