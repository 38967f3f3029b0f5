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

//go:build arm64

package fmv

import "golang.org/x/sys/cpu"

// detectHost reads arm64 feature flags. ARMv8-A always has NEON, but the
// flag is still consulted so a misreporting kernel degrades to baseline.
func detectHost() Caps {
	var c Caps
	if cpu.ARM64.HasASIMD {
		c |= Of(NEON, NEONFltSP)
	}
	if cpu.ARM64.HasASIMDHP && cpu.ARM64.HasFPHP {
		c |= ASIMDHP.Caps()
	}
	if cpu.ARM64.HasSVE {
		c |= SVE.Caps()
	}
	if cpu.ARM64.HasSVE2 {
		c |= SVE2.Caps()
	}
	if hasSME() {
		c |= SME.Caps()
	}
	return c
}
