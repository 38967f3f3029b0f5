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

//go:build amd64

package fmv

import "golang.org/x/sys/cpu"

// detectHost reads x86 feature flags. SSE2 is part of the amd64 baseline,
// so it is reported even if the flag table is empty.
func detectHost() Caps {
	c := Of(SSE2)
	flags := []struct {
		has bool
		f   Feature
	}{
		{cpu.X86.HasSSE3, SSE3},
		{cpu.X86.HasSSSE3, SSSE3},
		{cpu.X86.HasSSE41, SSE41},
		{cpu.X86.HasSSE42, SSE42},
		{cpu.X86.HasPOPCNT, POPCNT},
		{cpu.X86.HasAVX, AVX},
		{cpu.X86.HasFMA, FMA3},
		{cpu.X86.HasBMI2, BMI2},
		{cpu.X86.HasAVX2, AVX2},
		{cpu.X86.HasAVX512F, AVX512F},
		{cpu.X86.HasAVX512DQ, AVX512DQ},
		{cpu.X86.HasAVX512BW, AVX512BW},
		{cpu.X86.HasAVX512VL, AVX512VL},
	}
	for _, fl := range flags {
		if fl.has {
			c |= fl.f.Caps()
		}
	}
	// F16C is not exposed by x/sys/cpu; it ships alongside FMA (Haswell+,
	// Piledriver+).
	if cpu.X86.HasAVX && cpu.X86.HasFMA {
		c |= F16C.Caps()
	}
	return c
}
