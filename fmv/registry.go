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
	"cmp"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"
)

// Variant is one implementation of a logical function.
type Variant[F any] struct {
	Name     string
	Requires Caps
	// Priority is the variant's position after Seal; lower wins.
	Priority int
	Impl     F
}

// VariantInfo describes a variant without its implementation.
type VariantInfo struct {
	Name     string
	Requires Caps
	Priority int
}

// FuncInfo summarizes one logical function for diagnostics.
type FuncInfo struct {
	Name     string
	State    State
	Variants []VariantInfo
	// Selected is the resolved variant; valid only when State is Resolved.
	Selected VariantInfo
	// Err is the resolution error; set only when State is Failed.
	Err error
}

// Registry owns the logical functions of a package and the detector they
// resolve against.
//
// A registry has two phases. During initialization, functions are declared
// and variants registered, typically from package-level vars and init.
// Seal validates and freezes the registry; afterwards registration panics
// and dispatch is allowed. Only the initialization phase takes a lock.
type Registry struct {
	cfg config

	mu     sync.Mutex
	funcs  []funcHandle
	sealed atomic.Bool
}

// funcHandle is the type-erased view of a Func the registry needs.
type funcHandle interface {
	Name() string
	seal(cfg *config) []error
	resolveErr() error
	Info() FuncInfo
}

// New creates an empty registry.
func New(opts ...Option) (*Registry, error) {
	r := &Registry{}
	for _, opt := range opts {
		if err := opt(&r.cfg); err != nil {
			return nil, err
		}
	}
	if r.cfg.selector == nil {
		r.cfg.selector = SelectIndex
	}
	if err := r.cfg.buildDetector(); err != nil {
		return nil, err
	}
	return r, nil
}

// Declare adds a logical function named name to r. F must be a func type;
// it is the exact signature every variant implements and callers invoke.
//
// Declare panics if F is not a func type or r is already sealed.
func Declare[F any](r *Registry, name string) *Func[F] {
	if t := reflect.TypeFor[F](); t.Kind() != reflect.Func {
		panic(fmt.Sprintf("fmv: Declare[%s](%q): type is not a func", t, name))
	}
	f := &Func[F]{reg: r, name: name}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed.Load() {
		panic(&ConfigError{Func: name, Err: ErrSealed})
	}
	r.funcs = append(r.funcs, f)
	return f
}

// Seal validates every declared function and freezes the registry.
//
// All problems are reported together, joined. On error the registry stays
// unsealed: registration can continue and Resolve keeps failing with
// ErrNotSealed. Sealing an already sealed registry is a no-op.
func (r *Registry) Seal() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed.Load() {
		return nil
	}

	var errs []error
	seen := make(map[string]bool, len(r.funcs))
	for _, f := range r.funcs {
		if seen[f.Name()] {
			errs = append(errs, &ConfigError{Func: f.Name(), Err: ErrDuplicateFunc})
		}
		seen[f.Name()] = true
		errs = append(errs, f.seal(&r.cfg)...)
	}
	if len(errs) > 0 {
		err := errors.Join(errs...)
		r.cfg.log().Error("fmv: seal failed", "error", err)
		return err
	}

	// The store publishes every write made under mu above to goroutines that
	// later observe sealed == true.
	r.sealed.Store(true)
	r.cfg.log().Debug("fmv: registry sealed", "funcs", len(r.funcs))
	return nil
}

// Sealed reports whether Seal has succeeded.
func (r *Registry) Sealed() bool {
	return r.sealed.Load()
}

// Detected returns the registry's detected capabilities.
func (r *Registry) Detected() (Caps, error) {
	return r.cfg.detector.Detect()
}

// Detector returns the detector the registry resolves against.
func (r *Registry) Detector() *Detector {
	return r.cfg.detector
}

// ResolveAll resolves every function now instead of on first call, and
// returns every failure joined. Calling it right after Seal at startup turns
// an unsupported host into one early, complete error report.
func (r *Registry) ResolveAll() error {
	var errs []error
	for _, f := range r.handles() {
		if err := f.resolveErr(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Funcs describes every declared function in declaration order.
func (r *Registry) Funcs() []FuncInfo {
	hs := r.handles()
	out := make([]FuncInfo, len(hs))
	for i, f := range hs {
		out[i] = f.Info()
	}
	return out
}

func (r *Registry) handles() []funcHandle {
	if r.sealed.Load() {
		return r.funcs
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.funcs)
}

// Func is a logical function: an ordered list of variants plus the
// resolution cell that memoizes which one this host runs.
type Func[F any] struct {
	reg  *Registry
	name string

	// variants and reqs are written under reg.mu until Seal and are read-only
	// afterwards.
	variants []Variant[F]
	reqs     []Caps

	cell atomic.Pointer[resolution[F]]
}

// Name returns the logical function's name.
func (f *Func[F]) Name() string { return f.name }

// Register appends a variant requiring requires. Variants registered
// earlier take precedence, so register the most specialized first and the
// Baseline fallback last. The variant is named after its requirements.
//
// Register panics if the registry is sealed.
func (f *Func[F]) Register(requires Caps, impl F) *Func[F] {
	return f.RegisterNamed(requires.String(), requires, impl)
}

// RegisterLevel registers a variant requiring the capabilities of a
// dispatch level, named after the level.
func (f *Func[F]) RegisterLevel(level DispatchLevel, impl F) *Func[F] {
	return f.RegisterNamed(level.String(), level.Caps(), impl)
}

// RegisterNamed is Register with an explicit variant name.
func (f *Func[F]) RegisterNamed(name string, requires Caps, impl F) *Func[F] {
	f.reg.mu.Lock()
	defer f.reg.mu.Unlock()
	if f.reg.sealed.Load() {
		panic(&ConfigError{Func: f.name, Variant: name, Requires: requires, Err: ErrSealed})
	}
	f.variants = append(f.variants, Variant[F]{
		Name:     name,
		Requires: requires,
		Priority: len(f.variants),
		Impl:     impl,
	})
	return f
}

// Variants returns a copy of the registered variants in priority order.
func (f *Func[F]) Variants() []Variant[F] {
	if !f.reg.sealed.Load() {
		f.reg.mu.Lock()
		defer f.reg.mu.Unlock()
	}
	return slices.Clone(f.variants)
}

// seal validates the function and freezes its variant order. Called by
// Registry.Seal with reg.mu held.
func (f *Func[F]) seal(cfg *config) []error {
	if cfg.specializationOrder {
		slices.SortStableFunc(f.variants, func(a, b Variant[F]) int {
			return cmp.Compare(b.Requires, a.Requires)
		})
	}

	var errs []error
	if len(f.variants) == 0 {
		errs = append(errs, &ConfigError{Func: f.name, Err: ErrNoVariants})
	}

	byReqs := make(map[Caps]string, len(f.variants))
	reqs := make([]Caps, len(f.variants))
	hasFallback := false
	for i := range f.variants {
		v := &f.variants[i]
		v.Priority = i
		reqs[i] = v.Requires
		if v.Requires.IsBaseline() {
			hasFallback = true
		}
		if isNilFunc(v.Impl) {
			errs = append(errs, &ConfigError{Func: f.name, Variant: v.Name, Requires: v.Requires, Err: ErrNilImpl})
		}
		if prev, dup := byReqs[v.Requires]; dup {
			errs = append(errs, &ConfigError{
				Func:     f.name,
				Variant:  v.Name,
				Requires: v.Requires,
				Err:      fmt.Errorf("%w: same requirements as %s", ErrAmbiguousVariant, prev),
			})
			continue
		}
		byReqs[v.Requires] = v.Name

		// A variant whose requirements include an earlier variant's can never
		// be chosen: the earlier one always matches first.
		for _, earlier := range f.variants[:i] {
			if v.Requires.Contains(earlier.Requires) {
				cfg.log().Warn("fmv: unreachable variant",
					"func", f.name,
					"variant", v.Name,
					"requires", v.Requires.String(),
					"shadowed_by", earlier.Name)
				break
			}
		}
	}
	if cfg.requireFallback && len(f.variants) > 0 && !hasFallback {
		errs = append(errs, &ConfigError{Func: f.name, Err: ErrNoFallback})
	}
	f.reqs = reqs
	return errs
}

func isNilFunc(fn any) bool {
	v := reflect.ValueOf(fn)
	return !v.IsValid() || (v.Kind() == reflect.Func && v.IsNil())
}
