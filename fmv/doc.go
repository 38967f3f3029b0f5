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

// Package fmv implements function multi-versioning: one logical function
// with several implementations, each needing a different set of CPU
// instruction-set extensions, and a dispatcher that picks the most
// specialized one the running host supports.
//
// A package declares its functions on a Registry, registers variants from
// most to least specialized, and seals the registry during initialization:
//
//	var (
//		reg, _ = fmv.New()
//		sum    = fmv.Declare[func(a, b int) int](reg, "sum")
//	)
//
//	func init() {
//		sum.Register(fmv.Of(fmv.AVX2), sumAVX2).
//			Register(fmv.Of(fmv.SSE2), sumSSE2).
//			Register(fmv.Baseline, sumGeneric)
//		if err := reg.Seal(); err != nil {
//			panic(err)
//		}
//	}
//
//	func Sum(a, b int) int { return sum.MustResolve()(a, b) }
//
// The first call of Sum selects a variant and memoizes it; later calls cost
// one atomic load. Selection scans variants in registration order and takes
// the first whose requirements the detected capabilities contain.
//
// # Environment Variables
//
//   - FMV_NO_SIMD: any true value forces baseline variants.
//   - FMV_DISABLE: comma-separated features to hide, e.g. "avx512f,sve".
//   - FMV_MAX_LEVEL: cap detection at a dispatch level, e.g. "avx2" or "neon".
//
// The environment can only remove capabilities the host reported.
package fmv
