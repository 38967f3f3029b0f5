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

//go:build ppc64 || ppc64le

package fmv

import "golang.org/x/sys/cpu"

// detectHost reports Altivec on POWER8 and later, the oldest ISA level
// Go supports on ppc64.
func detectHost() Caps {
	if cpu.PPC64.IsPOWER8 {
		return Altivec.Caps()
	}
	return Baseline
}
