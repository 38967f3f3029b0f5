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

// The reductions below keep 1, 4, 8 or 16 independent partial sums, one per
// float32 lane of the register width they are registered for. Only the
// association order differs, so every variant computes the same sum up to
// rounding.

func sum1(x []float32) float32 {
	var s float32
	for _, v := range x {
		s += v
	}
	return s
}

func sum4(x []float32) float32 {
	var s0, s1, s2, s3 float32
	i := 0
	for ; i+4 <= len(x); i += 4 {
		v := x[i : i+4 : i+4]
		s0 += v[0]
		s1 += v[1]
		s2 += v[2]
		s3 += v[3]
	}
	return (s0 + s1) + (s2 + s3) + sum1(x[i:])
}

func sum8(x []float32) float32 {
	var acc [8]float32
	i := 0
	for ; i+8 <= len(x); i += 8 {
		v := x[i : i+8 : i+8]
		for j := range acc {
			acc[j] += v[j]
		}
	}
	return fold(acc[:]) + sum1(x[i:])
}

func sum16(x []float32) float32 {
	var acc [16]float32
	i := 0
	for ; i+16 <= len(x); i += 16 {
		v := x[i : i+16 : i+16]
		for j := range acc {
			acc[j] += v[j]
		}
	}
	return fold(acc[:]) + sum1(x[i:])
}

func dot1(a, b []float32) float32 {
	n := min(len(a), len(b))
	a, b = a[:n], b[:n]
	var s float32
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func dot4(a, b []float32) float32 {
	n := min(len(a), len(b))
	var s0, s1, s2, s3 float32
	i := 0
	for ; i+4 <= n; i += 4 {
		va := a[i : i+4 : i+4]
		vb := b[i : i+4 : i+4]
		s0 += va[0] * vb[0]
		s1 += va[1] * vb[1]
		s2 += va[2] * vb[2]
		s3 += va[3] * vb[3]
	}
	return (s0 + s1) + (s2 + s3) + dot1(a[i:n], b[i:n])
}

func dot8(a, b []float32) float32 {
	n := min(len(a), len(b))
	var acc [8]float32
	i := 0
	for ; i+8 <= n; i += 8 {
		va := a[i : i+8 : i+8]
		vb := b[i : i+8 : i+8]
		for j := range acc {
			acc[j] += va[j] * vb[j]
		}
	}
	return fold(acc[:]) + dot1(a[i:n], b[i:n])
}

func dot16(a, b []float32) float32 {
	n := min(len(a), len(b))
	var acc [16]float32
	i := 0
	for ; i+16 <= n; i += 16 {
		va := a[i : i+16 : i+16]
		vb := b[i : i+16 : i+16]
		for j := range acc {
			acc[j] += va[j] * vb[j]
		}
	}
	return fold(acc[:]) + dot1(a[i:n], b[i:n])
}

// fold reduces acc pairwise in place; len(acc) must be a power of two.
func fold(acc []float32) float32 {
	for n := len(acc) / 2; n > 0; n /= 2 {
		for j := range n {
			acc[j] += acc[j+n]
		}
	}
	return acc[0]
}
