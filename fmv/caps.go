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
	"errors"
	"fmt"
	"math/bits"
	"strings"
)

// Feature identifies a single instruction-set extension.
// Each Feature occupies one bit of a Caps value.
type Feature uint8

// The bit positions are assigned so that wider extensions of the same family
// compare greater than narrower ones. WithSpecializationOrder relies on this.
const (
	// ARM and POWER features share the low bits; they never coexist with x86
	// features on a real host.
	NEON Feature = iota
	NEONFltSP
	ASIMDHP
	SVE
	SVE2
	SME
	Altivec

	SSE2
	SSE3
	SSSE3
	SSE41
	SSE42
	POPCNT
	AVX
	FMA3
	FMA4
	XOP
	BMI2
	F16C
	AVX2
	AVX512F
	AVX512DQ
	AVX512BW
	AVX512VL

	numFeatures
)

var featureNames = [numFeatures]string{
	NEON:      "neon",
	NEONFltSP: "neonfltsp",
	ASIMDHP:   "asimdhp",
	SVE:       "sve",
	SVE2:      "sve2",
	SME:       "sme",
	Altivec:   "altivec",
	SSE2:      "sse2",
	SSE3:      "sse3",
	SSSE3:     "ssse3",
	SSE41:     "sse4.1",
	SSE42:     "sse4.2",
	POPCNT:    "popcnt",
	AVX:       "avx",
	FMA3:      "fma3",
	FMA4:      "fma4",
	XOP:       "xop",
	BMI2:      "bmi2",
	F16C:      "f16c",
	AVX2:      "avx2",
	AVX512F:   "avx512f",
	AVX512DQ:  "avx512dq",
	AVX512BW:  "avx512bw",
	AVX512VL:  "avx512vl",
}

// String returns the canonical lower-case name of the feature.
func (f Feature) String() string {
	if f >= numFeatures {
		return fmt.Sprintf("feature(%d)", uint8(f))
	}
	return featureNames[f]
}

// AllFeatures returns every known feature in bit order.
func AllFeatures() []Feature {
	out := make([]Feature, numFeatures)
	for i := range out {
		out[i] = Feature(i)
	}
	return out
}

// ParseFeature looks up a feature by its canonical name or one of the
// vendor spellings accepted by Implied.
func ParseFeature(name string) (Feature, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range featureNames {
		if n == name {
			return Feature(i), true
		}
	}
	if a, ok := aliases[name]; ok {
		return a.feature, true
	}
	return 0, false
}

// Caps is a set of features, stored as a bit vector.
//
// The zero value is Baseline: the empty set, satisfied by every host.
type Caps uint64

// Baseline is the empty capability set. A variant requiring Baseline can run
// anywhere and acts as the universal fallback.
const Baseline Caps = 0

// Of builds a capability set from individual features.
func Of(features ...Feature) Caps {
	var c Caps
	for _, f := range features {
		c |= f.Caps()
	}
	return c
}

// Caps returns the single-feature set {f}.
func (f Feature) Caps() Caps {
	if f >= numFeatures {
		return Baseline
	}
	return Caps(1) << f
}

// Contains reports whether every feature in b is also in c (b ⊆ c).
func (c Caps) Contains(b Caps) bool {
	return b&^c == 0
}

// Has reports whether f is in c.
func (c Caps) Has(f Feature) bool {
	return c.Contains(f.Caps())
}

// Union returns c ∪ b.
func (c Caps) Union(b Caps) Caps { return c | b }

// Intersect returns c ∩ b.
func (c Caps) Intersect(b Caps) Caps { return c & b }

// Without returns c with the features of b removed.
func (c Caps) Without(b Caps) Caps { return c &^ b }

// IsBaseline reports whether c is the empty set.
func (c Caps) IsBaseline() bool { return c == Baseline }

// Len returns the number of features in c.
func (c Caps) Len() int { return bits.OnesCount64(uint64(c)) }

// Features lists the members of c in bit order.
func (c Caps) Features() []Feature {
	out := make([]Feature, 0, c.Len())
	for rest := uint64(c); rest != 0; rest &= rest - 1 {
		f := Feature(bits.TrailingZeros64(rest))
		if f < numFeatures {
			out = append(out, f)
		}
	}
	return out
}

// String renders c as "sse2|avx2", or "baseline" for the empty set.
func (c Caps) String() string {
	if c.IsBaseline() {
		return "baseline"
	}
	fs := c.Features()
	names := make([]string, len(fs))
	for i, f := range fs {
		names[i] = f.String()
	}
	return strings.Join(names, "|")
}

// ParseCaps parses a list of feature names separated by commas, pipes or
// whitespace. "baseline" and the empty string both yield Baseline.
// Names go through ParseFeature, so each name adds exactly one feature;
// use Implied to pull in prerequisites.
//
// Unknown names are skipped and reported, one joined error per name; the
// returned set still holds every name that parsed.
func ParseCaps(s string) (Caps, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '|' || r == ' ' || r == '\t' || r == '\n'
	})
	var (
		c    Caps
		errs []error
	)
	for _, name := range fields {
		if strings.EqualFold(name, "baseline") {
			continue
		}
		f, ok := ParseFeature(name)
		if !ok {
			errs = append(errs, fmt.Errorf("fmv: unknown feature %q", name))
			continue
		}
		c |= f.Caps()
	}
	return c, errors.Join(errs...)
}

// Prerequisite chains. A host that reports a feature is assumed to also
// support the whole chain below it, mirroring how vendors ship them.
var (
	chainSSE2   = Of(SSE2)
	chainSSE3   = chainSSE2 | Of(SSE3)
	chainSSSE3  = chainSSE3 | Of(SSSE3)
	chainSSE41  = chainSSSE3 | Of(SSE41)
	chainSSE42  = chainSSE41 | Of(SSE42)
	chainAVX    = chainSSE42 | Of(AVX)
	chainAVX2   = chainAVX | Of(AVX2)
	chainAVX512 = chainAVX2 | Of(AVX512F)
	chainNEON   = Of(NEON, NEONFltSP)
)

type alias struct {
	feature Feature
	implied Caps
}

// aliases maps vendor spellings (from /proc/cpuinfo, compiler target
// strings and CPUID tables) to a feature and its implied set.
var aliases = map[string]alias{
	"sse2":      {SSE2, chainSSE2},
	"sse3":      {SSE3, chainSSE3},
	"pni":       {SSE3, chainSSE3},
	"ssse3":     {SSSE3, chainSSSE3},
	"sse4.1":    {SSE41, chainSSE41},
	"sse4_1":    {SSE41, chainSSE41},
	"sse41":     {SSE41, chainSSE41},
	"sse4.2":    {SSE42, chainSSE42},
	"sse4_2":    {SSE42, chainSSE42},
	"sse42":     {SSE42, chainSSE42},
	"popcnt":    {POPCNT, Of(POPCNT)},
	"avx":       {AVX, chainAVX},
	"avx2":      {AVX2, chainAVX2},
	"fma":       {FMA3, chainAVX | Of(FMA3)},
	"fma3":      {FMA3, chainAVX | Of(FMA3)},
	"fma4":      {FMA4, chainAVX | Of(FMA4)},
	"xop":       {XOP, chainAVX | Of(XOP)},
	"bmi2":      {BMI2, Of(BMI2)},
	"f16c":      {F16C, chainAVX | Of(F16C)},
	"avx512f":   {AVX512F, chainAVX512},
	"avx512dq":  {AVX512DQ, chainAVX512 | Of(AVX512DQ)},
	"avx512bw":  {AVX512BW, chainAVX512 | Of(AVX512BW)},
	"avx512vl":  {AVX512VL, chainAVX512 | Of(AVX512VL)},
	"neon":      {NEON, chainNEON},
	"asimd":     {NEON, chainNEON},
	"neonfltsp": {NEONFltSP, chainNEON},
	"asimdhp":   {ASIMDHP, chainNEON | Of(ASIMDHP)},
	"fphp":      {ASIMDHP, chainNEON | Of(ASIMDHP)},
	"sve":       {SVE, chainNEON | Of(SVE)},
	"sve2":      {SVE2, chainNEON | Of(SVE, SVE2)},
	"sme":       {SME, chainNEON | Of(SME)},
	"altivec":   {Altivec, Of(Altivec)},
}

// Implied returns the capability set a host reporting the named feature is
// known to support: the feature itself plus its prerequisites. For example
// "avx2" implies avx, sse4.2, sse4.1, ssse3, sse3 and sse2.
func Implied(name string) (Caps, bool) {
	a, ok := aliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Baseline, false
	}
	return a.implied, true
}
