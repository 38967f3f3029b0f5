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

import (
	"fmt"

	"github.com/ajroetker/go-fmv/fmv/contrib/workerpool"
)

const (
	// parallelThreshold is the element count (rows*dim) below which
	// DotBatch stays on the calling goroutine.
	parallelThreshold = 1 << 15

	// rowsPerClaim bounds how many rows a worker takes at a time.
	rowsPerClaim = 64
)

func (k *kernels) dotBatch(pool *workerpool.Pool, query, rows []float32, dim int, out []float32) {
	if dim <= 0 {
		panic(fmt.Sprintf("vec: DotBatch dim must be positive, got %d", dim))
	}
	if len(query) != dim || len(rows)%dim != 0 || len(rows)/dim != len(out) {
		panic(fmt.Sprintf("vec: DotBatch shape mismatch: query=%d rows=%d dim=%d out=%d",
			len(query), len(rows), dim, len(out)))
	}

	// Resolve once so workers share the same variant without touching the
	// dispatch cell per row.
	dot := k.dot.MustResolve()
	span := func(start, end int) {
		for r := start; r < end; r++ {
			out[r] = dot(query, rows[r*dim:(r+1)*dim])
		}
	}

	n := len(out)
	if pool == nil || len(rows) < parallelThreshold {
		span(0, n)
		return
	}
	pool.ParallelFor(n, rowsPerClaim, span)
}
