package fixture

import (
	"errors"
	"fmt"
	"sync"
)

// Scope collects release functions of per-test resources and runs them in reverse
// acquisition order.
type Scope struct {
	mu       sync.Mutex
	releases []release
}

type release struct {
	name string
	fn   func() error
}

// NewScope creates an empty scope.
func NewScope() *Scope {
	return &Scope{}
}

// Defer registers fn to be called on Release. Resources registered later are
// released first.
func (s *Scope) Defer(name string, fn func() error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releases = append(s.releases, release{name: name, fn: fn})
}

// Len returns the number of pending releases.
func (s *Scope) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.releases)
}

// Release runs every registered function, last registered first. A failing release
// does not stop the remaining ones; all errors are joined. The scope is empty
// afterwards.
func (s *Scope) Release() error {
	s.mu.Lock()
	releases := s.releases
	s.releases = nil
	s.mu.Unlock()

	var errs []error
	for i := len(releases) - 1; i >= 0; i-- {
		r := releases[i]
		if err := r.fn(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", r.name, err))
		}
	}
	return errors.Join(errs...)
}
