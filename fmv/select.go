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

// SelectFunc chooses a variant given the requirement sets of a function's
// variants in priority order. It returns the chosen index or -1.
//
// Implementations must be pure: the dispatcher publishes the result of
// whichever concurrent first caller finishes first, so every call with the
// same inputs has to produce the same answer.
type SelectFunc func(reqs []Caps, detected Caps) int

// SelectIndex returns the index of the first requirement set contained in
// detected, or -1 if none is.
//
// Ordering is the registry's job: registering variants from most to least
// specialized makes the first match the best one, and a trailing Baseline
// entry makes the scan always succeed.
func SelectIndex(reqs []Caps, detected Caps) int {
	for i, r := range reqs {
		if detected.Contains(r) {
			return i
		}
	}
	return -1
}

// Select returns the first variant whose requirements detected satisfies.
func Select[F any](variants []Variant[F], detected Caps) (Variant[F], bool) {
	for _, v := range variants {
		if detected.Contains(v.Requires) {
			return v, true
		}
	}
	var zero Variant[F]
	return zero, false
}
