//go:build !amd64 && !arm64 && !ppc64 && !ppc64le

package fmv

// detectHost reports no extensions. Future implementations may add wasm
// SIMD128 and the riscv64 vector extension.
func detectHost() Caps {
	return Baseline
}
