package strategy

import (
	"errors"
	"fmt"
	"sync"
)

// Kind identifies one of the capability sets a strategy can implement.
type Kind string

const (
	KindParser     Kind = "parser"
	KindPath       Kind = "path"
	KindNormalizer Kind = "normalizer"
)

var ErrStrategyNotFound = errors.New("strategy not found")

// Registry resolves named strategy implementations. The set of built-ins is
// known at compile time; they are registered into the table at startup so a
// new content domain only needs a new implementation and a config entry.
type Registry struct {
	mu        sync.RWMutex
	factories map[Kind]map[string]func() any
}

func NewRegistry() *Registry {
	return &Registry{
		factories: map[Kind]map[string]func() any{},
	}
}

// Register adds a named factory for the given kind, replacing any previous
// registration under the same name.
func (r *Registry) Register(kind Kind, name string, factory func() any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.factories[kind] == nil {
		r.factories[kind] = map[string]func() any{}
	}
	r.factories[kind][name] = factory
}

func (r *Registry) resolve(kind Kind, name string) (any, error) {
	r.mu.RLock()
	factory, ok := r.factories[kind][name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrStrategyNotFound, kind, name)
	}

	return factory(), nil
}

// Parser resolves a registered NameParser by name.
func (r *Registry) Parser(name string) (NameParser, error) {
	s, err := r.resolve(KindParser, name)
	if err != nil {
		return nil, err
	}

	p, ok := s.(NameParser)
	if !ok {
		return nil, fmt.Errorf("strategy %s/%s is not a NameParser", KindParser, name)
	}
	return p, nil
}

// Path resolves a registered PathStrategy by name.
func (r *Registry) Path(name string) (PathStrategy, error) {
	s, err := r.resolve(KindPath, name)
	if err != nil {
		return nil, err
	}

	p, ok := s.(PathStrategy)
	if !ok {
		return nil, fmt.Errorf("strategy %s/%s is not a PathStrategy", KindPath, name)
	}
	return p, nil
}

// Normalizer resolves a registered Normalizer by name.
func (r *Registry) Normalizer(name string) (Normalizer, error) {
	s, err := r.resolve(KindNormalizer, name)
	if err != nil {
		return nil, err
	}

	n, ok := s.(Normalizer)
	if !ok {
		return nil, fmt.Errorf("strategy %s/%s is not a Normalizer", KindNormalizer, name)
	}
	return n, nil
}
