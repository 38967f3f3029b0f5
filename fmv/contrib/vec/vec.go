// Copyright 2025 go-highway Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package vec provides small numeric kernels dispatched through fmv.
//
// Each exported function is a logical function with one variant per
// dispatch level. The variant is chosen on first call from the process-wide
// detected capabilities (which honor FMV_NO_SIMD, FMV_DISABLE and
// FMV_MAX_LEVEL) and reused for the life of the process.
//
// The reductions (Sum, Dot) differ between variants only in how many
// partial sums they keep, so results agree up to float32 rounding. The
// float64 block operations use github.com/cwbudde/algo-vecmath where a
// 128-bit unit is present.
package vec

import (
	"github.com/ajroetker/go-fmv/fmv"
	"github.com/ajroetker/go-fmv/fmv/contrib/workerpool"
	vecmath "github.com/cwbudde/algo-vecmath"
)

type (
	sumFunc   = func(x []float32) float32
	dotFunc   = func(a, b []float32) float32
	mulFunc   = func(dst, a, b []float64)
	scaleFunc = func(dst, src []float64, s float64)
	addFunc   = func(dst, src []float64)
)

// kernels is one sealed registry holding every logical function of the
// package. Tests build their own with a static probe.
type kernels struct {
	reg   *fmv.Registry
	sum   *fmv.Func[sumFunc]
	dot   *fmv.Func[dotFunc]
	mul   *fmv.Func[mulFunc]
	scale *fmv.Func[scaleFunc]
	add   *fmv.Func[addFunc]
}

func newKernels(opts ...fmv.Option) (*kernels, error) {
	reg, err := fmv.New(opts...)
	if err != nil {
		return nil, err
	}
	k := &kernels{reg: reg}

	k.sum = fmv.Declare[sumFunc](reg, "vec.Sum").
		RegisterLevel(fmv.DispatchAVX512, sum16).
		RegisterLevel(fmv.DispatchAVX2, sum8).
		RegisterLevel(fmv.DispatchNEON, sum4).
		RegisterLevel(fmv.DispatchSSE2, sum4).
		Register(fmv.Baseline, sum1)

	k.dot = fmv.Declare[dotFunc](reg, "vec.Dot").
		RegisterLevel(fmv.DispatchAVX512, dot16).
		RegisterLevel(fmv.DispatchAVX2, dot8).
		RegisterLevel(fmv.DispatchNEON, dot4).
		RegisterLevel(fmv.DispatchSSE2, dot4).
		Register(fmv.Baseline, dot1)

	k.mul = fmv.Declare[mulFunc](reg, "vec.MulBlock").
		RegisterNamed("vecmath-sse2", fmv.Of(fmv.SSE2), vecmath.MulBlock).
		RegisterNamed("vecmath-neon", fmv.Of(fmv.NEON), vecmath.MulBlock).
		Register(fmv.Baseline, mulBlock)

	k.scale = fmv.Declare[scaleFunc](reg, "vec.ScaleBlock").
		RegisterNamed("vecmath-sse2", fmv.Of(fmv.SSE2), vecmath.ScaleBlock).
		RegisterNamed("vecmath-neon", fmv.Of(fmv.NEON), vecmath.ScaleBlock).
		Register(fmv.Baseline, scaleBlock)

	k.add = fmv.Declare[addFunc](reg, "vec.AddBlock").
		RegisterNamed("vecmath-sse2", fmv.Of(fmv.SSE2), vecmath.AddBlockInPlace).
		RegisterNamed("vecmath-neon", fmv.Of(fmv.NEON), vecmath.AddBlockInPlace).
		Register(fmv.Baseline, addBlock)

	if err := reg.Seal(); err != nil {
		return nil, err
	}
	return k, nil
}

var std *kernels

func init() {
	k, err := newKernels(fmv.WithRequireFallback())
	if err != nil {
		panic(err)
	}
	std = k
}

// Registry returns the registry behind the package functions, for
// diagnostics such as listing the selected variants.
func Registry() *fmv.Registry {
	return std.reg
}

// NewRegistry builds and seals a separate registry holding the same logical
// functions and variants as the package one, configured by opts. It is
// meant for diagnostics, e.g. resolving with a logger attached; the package
// functions keep using Registry.
func NewRegistry(opts ...fmv.Option) (*fmv.Registry, error) {
	k, err := newKernels(opts...)
	if err != nil {
		return nil, err
	}
	return k.reg, nil
}

// Sum returns the sum of x.
func Sum(x []float32) float32 {
	return std.sum.MustResolve()(x)
}

// Dot returns the dot product of a and b over min(len(a), len(b)) elements.
func Dot(a, b []float32) float32 {
	return std.dot.MustResolve()(a, b)
}

// MulBlock sets dst[i] = a[i] * b[i]. All three slices must have the same
// length.
func MulBlock(dst, a, b []float64) {
	std.mul.MustResolve()(dst, a, b)
}

// ScaleBlock sets dst[i] = src[i] * s. dst and src must have the same length.
func ScaleBlock(dst, src []float64, s float64) {
	std.scale.MustResolve()(dst, src, s)
}

// AddBlock adds src into dst element-wise. dst and src must have the same
// length.
func AddBlock(dst, src []float64) {
	std.add.MustResolve()(dst, src)
}

// DotBatch computes out[r] = Dot(query, rows[r*dim:(r+1)*dim]) for every
// row. Large batches are split across the shared worker pool.
//
// It panics if dim <= 0, len(query) != dim, len(rows) is not a multiple of
// dim, or len(out) differs from the row count.
func DotBatch(query, rows []float32, dim int, out []float32) {
	std.dotBatch(workerpool.Shared(), query, rows, dim, out)
}
