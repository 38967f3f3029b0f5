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

package fmv

import (
	"fmt"
	"runtime"

	"github.com/klauspost/cpuid/v2"
)

var cpuidFeatures = []struct {
	id cpuid.FeatureID
	f  Feature
}{
	{cpuid.SSE2, SSE2},
	{cpuid.SSE3, SSE3},
	{cpuid.SSSE3, SSSE3},
	{cpuid.SSE4, SSE41},
	{cpuid.SSE42, SSE42},
	{cpuid.POPCNT, POPCNT},
	{cpuid.AVX, AVX},
	{cpuid.FMA3, FMA3},
	{cpuid.FMA4, FMA4},
	{cpuid.XOP, XOP},
	{cpuid.BMI2, BMI2},
	{cpuid.F16C, F16C},
	{cpuid.AVX2, AVX2},
	{cpuid.AVX512F, AVX512F},
	{cpuid.AVX512DQ, AVX512DQ},
	{cpuid.AVX512BW, AVX512BW},
	{cpuid.AVX512VL, AVX512VL},
	{cpuid.ASIMD, NEON},
	{cpuid.ASIMDHP, ASIMDHP},
	{cpuid.SVE, SVE},
}

// capsFromCPUID translates a cpuid feature oracle into Caps.
func capsFromCPUID(has func(cpuid.FeatureID) bool) Caps {
	var c Caps
	for _, e := range cpuidFeatures {
		if has(e.id) {
			c |= e.f.Caps()
		}
	}
	// 64-bit ARM executes single-precision float math on NEON.
	if c.Has(NEON) {
		c |= NEONFltSP.Caps()
	}
	return c
}

type cpuidProbe struct{}

func (cpuidProbe) String() string { return "cpuid" }

func (cpuidProbe) Detect() (Caps, error) {
	switch runtime.GOARCH {
	case "amd64", "386", "arm64":
	default:
		return Baseline, fmt.Errorf("unsupported architecture %s", runtime.GOARCH)
	}
	return capsFromCPUID(func(id cpuid.FeatureID) bool {
		return cpuid.CPU.Supports(id)
	}), nil
}

// CPUIDProbe returns a probe backed by github.com/klauspost/cpuid/v2. It
// reads CPUID directly on x86 and the kernel's hwcaps on arm64, which makes
// it a useful cross-check of HostProbe.
func CPUIDProbe() Probe { return cpuidProbe{} }

// CPUVendor returns the vendor string reported by CPUID, for diagnostics.
func CPUVendor() string {
	return cpuid.CPU.VendorString
}

// CPUBrand returns the processor brand string, for diagnostics.
func CPUBrand() string {
	return cpuid.CPU.BrandName
}
