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

import "fmt"

// State is the resolution state of a logical function.
//
//	Unresolved -> Resolved   (terminal)
//	Unresolved -> Failed     (terminal)
type State int

const (
	// Unresolved: no call has completed selection yet.
	Unresolved State = iota
	// Resolved: a variant was chosen and is used for every call.
	Resolved
	// Failed: no variant can run here, or the probe failed.
	Failed
)

func (s State) String() string {
	switch s {
	case Unresolved:
		return "unresolved"
	case Resolved:
		return "resolved"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// resolution is the immutable record published into a Func's cell. Exactly
// one of variant (with index >= 0) or err is meaningful.
type resolution[F any] struct {
	index   int
	variant Variant[F]
	err     error
}

// Resolve returns the implementation this host should run.
//
// The first call selects a variant against the detected capabilities and
// publishes the choice; every later call is one atomic load. A failed
// resolution is published the same way, so every caller sees the identical
// error. Before the registry is sealed Resolve returns ErrNotSealed and
// records nothing.
func (f *Func[F]) Resolve() (F, error) {
	if r := f.cell.Load(); r != nil {
		return r.variant.Impl, r.err
	}
	r := f.resolveSlow()
	return r.variant.Impl, r.err
}

// MustResolve is like Resolve but panics on error. It suits thin wrappers
// such as
//
//	func Sum(x []float32) float32 { return sum.MustResolve()(x) }
func (f *Func[F]) MustResolve() F {
	impl, err := f.Resolve()
	if err != nil {
		panic(err)
	}
	return impl
}

// resolveSlow runs selection and publishes the outcome.
//
// No lock is taken. Two goroutines can both find the cell empty and both
// run selection, but the selector is a pure function of the sealed variant
// list and the memoized detected capabilities, so they compute the same
// record. CompareAndSwap lets the first publish win and the loser adopt the
// winner's record, which keeps the published pointer (and any error value)
// unique. The record is fully constructed before CompareAndSwap, and Go's
// atomics order that construction before any Load that observes the
// pointer, so no caller sees a partially built record.
func (f *Func[F]) resolveSlow() *resolution[F] {
	if !f.reg.sealed.Load() {
		return &resolution[F]{index: -1, err: &ConfigError{Func: f.name, Err: ErrNotSealed}}
	}

	rec := f.selectVariant()
	if !f.cell.CompareAndSwap(nil, rec) {
		return f.cell.Load()
	}
	f.logResolution(rec)
	return rec
}

func (f *Func[F]) selectVariant() *resolution[F] {
	cfg := &f.reg.cfg
	detected, err := cfg.detector.Detect()
	if err != nil {
		return &resolution[F]{index: -1, err: fmt.Errorf("fmv: %s: %w", f.name, err)}
	}

	i := cfg.selector(f.reqs, detected)
	if i < 0 || i >= len(f.variants) {
		return &resolution[F]{index: -1, err: &ConfigError{
			Func:     f.name,
			Detected: detected,
			Err:      ErrNoViableVariant,
		}}
	}
	return &resolution[F]{index: i, variant: f.variants[i]}
}

func (f *Func[F]) logResolution(rec *resolution[F]) {
	log := f.reg.cfg.log()
	if rec.err != nil {
		log.Error("fmv: resolution failed", "func", f.name, "error", rec.err)
		return
	}
	log.Debug("fmv: resolved",
		"func", f.name,
		"variant", rec.variant.Name,
		"requires", rec.variant.Requires.String())
}

// State returns the function's resolution state.
func (f *Func[F]) State() State {
	r := f.cell.Load()
	switch {
	case r == nil:
		return Unresolved
	case r.err != nil:
		return Failed
	default:
		return Resolved
	}
}

// Selected returns the resolved variant, if any, without triggering
// resolution.
func (f *Func[F]) Selected() (VariantInfo, bool) {
	r := f.cell.Load()
	if r == nil || r.err != nil {
		return VariantInfo{}, false
	}
	return r.variant.info(), true
}

// Info describes the function without triggering resolution.
func (f *Func[F]) Info() FuncInfo {
	vs := f.Variants()
	info := FuncInfo{
		Name:     f.name,
		State:    f.State(),
		Variants: make([]VariantInfo, len(vs)),
	}
	for i, v := range vs {
		info.Variants[i] = v.info()
	}
	if r := f.cell.Load(); r != nil {
		if r.err != nil {
			info.Err = r.err
		} else {
			info.Selected = r.variant.info()
		}
	}
	return info
}

func (f *Func[F]) resolveErr() error {
	_, err := f.Resolve()
	return err
}

func (v Variant[F]) info() VariantInfo {
	return VariantInfo{Name: v.Name, Requires: v.Requires, Priority: v.Priority}
}
