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

package vec

import "fmt"

// Portable fallbacks for the float64 block operations.

func mulBlock(dst, a, b []float64) {
	if len(a) != len(dst) || len(b) != len(dst) {
		panic(fmt.Sprintf("vec: MulBlock length mismatch: dst=%d a=%d b=%d", len(dst), len(a), len(b)))
	}
	for i := range dst {
		dst[i] = a[i] * b[i]
	}
}

func scaleBlock(dst, src []float64, s float64) {
	if len(src) != len(dst) {
		panic(fmt.Sprintf("vec: ScaleBlock length mismatch: dst=%d src=%d", len(dst), len(src)))
	}
	for i := range dst {
		dst[i] = src[i] * s
	}
}

func addBlock(dst, src []float64) {
	if len(src) != len(dst) {
		panic(fmt.Sprintf("vec: AddBlock length mismatch: dst=%d src=%d", len(dst), len(src)))
	}
	for i := range dst {
		dst[i] += src[i]
	}
}
