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
)

// Sentinel errors. Configuration errors are never retried: neither a static
// registration mistake nor the host's feature set changes during a process.
var (
	// ErrAmbiguousVariant indicates two variants of one function require the
	// same capability set. Reported by Seal.
	ErrAmbiguousVariant = errors.New("ambiguous variant")

	// ErrNoViableVariant indicates the detected capabilities satisfy none of a
	// function's variants. Reported by every Resolve of that function.
	ErrNoViableVariant = errors.New("no viable variant")

	// ErrProbe indicates the capability probe could not determine the host's
	// feature set.
	ErrProbe = errors.New("capability probe failed")

	// ErrNoVariants indicates a declared function has no registered variants.
	ErrNoVariants = errors.New("no variants registered")

	// ErrNoFallback indicates a function lacks a baseline variant while the
	// registry was built with WithRequireFallback.
	ErrNoFallback = errors.New("no baseline variant")

	// ErrNilImpl indicates a variant was registered with a nil implementation.
	ErrNilImpl = errors.New("nil implementation")

	// ErrDuplicateFunc indicates two functions were declared with one name.
	ErrDuplicateFunc = errors.New("duplicate function")

	// ErrSealed indicates an attempt to change a registry after Seal.
	ErrSealed = errors.New("registry sealed")

	// ErrNotSealed indicates a dispatch attempt before Seal succeeded.
	ErrNotSealed = errors.New("registry not sealed")
)

// ConfigError describes a configuration problem with one logical function.
type ConfigError struct {
	Func     string // logical function name
	Variant  string // offending variant, if any
	Requires Caps   // requirements of the offending variant
	Detected Caps   // detected capabilities, for ErrNoViableVariant
	Err      error  // one of the sentinel errors above
}

func (e *ConfigError) Error() string {
	switch {
	case errors.Is(e.Err, ErrNoViableVariant):
		return fmt.Sprintf("fmv: %s: %v for detected capabilities %s", e.Func, e.Err, e.Detected)
	case e.Variant != "":
		return fmt.Sprintf("fmv: %s: variant %s (%s): %v", e.Func, e.Variant, e.Requires, e.Err)
	default:
		return fmt.Sprintf("fmv: %s: %v", e.Func, e.Err)
	}
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ProbeError wraps a failure of a capability probe. It matches both ErrProbe
// and the underlying cause under errors.Is.
type ProbeError struct {
	Source string
	Err    error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("fmv: %s probe: %v", e.Source, e.Err)
}

func (e *ProbeError) Unwrap() []error { return []error{ErrProbe, e.Err} }
