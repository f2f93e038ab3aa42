// Package params is the registry of learnable parameters that
// programs read through Runtime.Param.
//
// The combinators never touch a Store directly.  A Store is handed to
// a handlers.Runtime, and programs ask the Runtime for a parameter by
// name, supplying an initial value that's used (and stored) the first
// time the name is seen.
package params

import (
	"context"
	"sort"
	"sync"

	"github.com/Comcast/combinators/tensor"
)

// Store is a persistence interface for named parameters.
type Store interface {
	// Get returns the value for the name.  The boolean reports
	// whether the name was found.
	Get(ctx context.Context, name string) (tensor.Tensor, bool, error)

	// Set writes the value for the name.
	Set(ctx context.Context, name string, v tensor.Tensor) error

	// Names lists the known names in sorted order.
	Names(ctx context.Context) ([]string, error)
}

// NotFound can be used by callers that require a parameter.
type NotFound struct {
	Name string
}

func (e *NotFound) Error() string {
	return `parameter "` + e.Name + `" not found`
}

// Initializer is an optional Store method that reads the name or, if
// it's unknown, writes and returns init in one atomic step.
type Initializer interface {
	Init(ctx context.Context, name string, init tensor.Tensor) (tensor.Tensor, error)
}

// GetOrInit returns the value for the name, writing the given initial
// value first if the name is unknown.
//
// When the Store is an Initializer, concurrent callers all see the
// value that was written first.  Otherwise the last write wins.
//
// Returned values always require gradients.
func GetOrInit(ctx context.Context, s Store, name string, init tensor.Tensor) (tensor.Tensor, error) {
	if i, is := s.(Initializer); is {
		v, err := i.Init(ctx, name, init)
		if err != nil {
			return tensor.Tensor{}, err
		}
		return v.WithGrad(), nil
	}

	v, have, err := s.Get(ctx, name)
	if err != nil {
		return tensor.Tensor{}, err
	}
	if !have {
		if err := s.Set(ctx, name, init); err != nil {
			return tensor.Tensor{}, err
		}
		v = init
	}
	return v.WithGrad(), nil
}

// MustGet returns a *NotFound if the name is unknown.
func MustGet(ctx context.Context, s Store, name string) (tensor.Tensor, error) {
	v, have, err := s.Get(ctx, name)
	if err != nil {
		return tensor.Tensor{}, err
	}
	if !have {
		return tensor.Tensor{}, &NotFound{name}
	}
	return v, nil
}

// MemStore is an in-memory Store that's safe for concurrent use.
type MemStore struct {
	sync.RWMutex
	vals map[string]tensor.Tensor
}

// NewMemStore makes an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		vals: make(map[string]tensor.Tensor, 8),
	}
}

func (s *MemStore) Get(ctx context.Context, name string) (tensor.Tensor, bool, error) {
	s.RLock()
	v, have := s.vals[name]
	s.RUnlock()
	return v, have, nil
}

func (s *MemStore) Set(ctx context.Context, name string, v tensor.Tensor) error {
	s.Lock()
	s.vals[name] = v.Detach()
	s.Unlock()
	return nil
}

func (s *MemStore) Init(ctx context.Context, name string, init tensor.Tensor) (tensor.Tensor, error) {
	s.Lock()
	defer s.Unlock()
	if v, have := s.vals[name]; have {
		return v, nil
	}
	v := init.Detach()
	s.vals[name] = v
	return v, nil
}

func (s *MemStore) Names(ctx context.Context) ([]string, error) {
	s.RLock()
	acc := make([]string, 0, len(s.vals))
	for name := range s.vals {
		acc = append(acc, name)
	}
	s.RUnlock()
	sort.Strings(acc)
	return acc, nil
}

// NoopStore remembers nothing, so every GetOrInit returns the initial
// value.
type NoopStore struct {
}

func (s *NoopStore) Get(ctx context.Context, name string) (tensor.Tensor, bool, error) {
	return tensor.Tensor{}, false, nil
}

func (s *NoopStore) Set(ctx context.Context, name string, v tensor.Tensor) error {
	return nil
}

func (s *NoopStore) Names(ctx context.Context) ([]string, error) {
	return nil, nil
}
