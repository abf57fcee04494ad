// RangeGuard - Byte-Range Request Classification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rangeguard

// Package traits provides named trait predicates that can be listed in
// configuration and resolved into detection.TraitFunc values.
//
// Every predicate receives the client's previous record and the record
// about to be appended. Used as a banned trait, a true result rejects the
// request; used as an allowed trait, a false result rejects it.
//
//	banned, err := traits.Resolve([]string{"same_start", "backward"})
package traits

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/tomtom215/rangeguard/internal/detection"
	"github.com/tomtom215/rangeguard/internal/history"
)

// ErrUnknownTrait is returned when a name is not registered.
var ErrUnknownTrait = errors.New("unknown trait")

// Built-in trait names.
const (
	SameStart       = "same_start"
	SequentialStart = "sequential_start"
	Contiguous      = "contiguous"
	Backward        = "backward"
	Overlap         = "overlap"
	Repeat          = "repeat"
	OpenEnded       = "open_ended"
)

// Registry maps trait names to predicates.
type Registry struct {
	mu     sync.RWMutex
	traits map[string]detection.TraitFunc
}

// NewRegistry returns a registry holding the built-in traits.
func NewRegistry() *Registry {
	r := &Registry{traits: make(map[string]detection.TraitFunc)}
	r.traits[SameStart] = sameStart
	r.traits[SequentialStart] = sequentialStart
	r.traits[Contiguous] = contiguous
	r.traits[Backward] = backward
	r.traits[Overlap] = overlap
	r.traits[Repeat] = repeat
	r.traits[OpenEnded] = openEnded
	return r
}

// Register adds or replaces a named trait.
func (r *Registry) Register(name string, fn detection.TraitFunc) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("trait name is empty")
	}
	if fn == nil {
		return fmt.Errorf("trait %q: nil predicate", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.traits[name] = fn
	return nil
}

// Lookup returns the trait registered under name.
func (r *Registry) Lookup(name string) (detection.TraitFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.traits[strings.TrimSpace(name)]
	return fn, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.traits))
	for name := range r.traits {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the traits for names in the given order.
func (r *Registry) Resolve(names []string) ([]detection.TraitFunc, error) {
	if len(names) == 0 {
		return nil, nil
	}
	out := make([]detection.TraitFunc, 0, len(names))
	for _, name := range names {
		fn, ok := r.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownTrait, name)
		}
		out = append(out, fn)
	}
	return out, nil
}

var defaultRegistry = NewRegistry()

// Default returns the package-level registry used by Resolve.
func Default() *Registry {
	return defaultRegistry
}

// Resolve resolves names against the default registry.
func Resolve(names []string) ([]detection.TraitFunc, error) {
	return defaultRegistry.Resolve(names)
}

func sameStart(prev, cur history.Record) bool {
	return cur.From.Equal(prev.From)
}

func sequentialStart(prev, cur history.Record) bool {
	next, ok := prev.From.Next()
	return ok && cur.From.Equal(next)
}

func contiguous(prev, cur history.Record) bool {
	next, ok := prev.To.Next()
	return ok && cur.From.Equal(next)
}

func backward(prev, cur history.Record) bool {
	return cur.From.Less(prev.From)
}

// overlap reports whether the two inclusive ranges share at least one byte.
func overlap(prev, cur history.Record) bool {
	if !prev.From.IsValid() || !cur.From.IsValid() || !prev.To.IsValid() || !cur.To.IsValid() {
		return false
	}
	return !cur.From.Greater(prev.To) && !prev.From.Greater(cur.To)
}

func repeat(prev, cur history.Record) bool {
	return cur.From.Equal(prev.From) && cur.To.Equal(prev.To)
}

func openEnded(_, cur history.Record) bool {
	return cur.To.IsUnbounded()
}
