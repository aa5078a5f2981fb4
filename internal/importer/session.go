package importer

import (
	"errors"
	"sync"
)

// ErrBusy is returned when an operation of the same kind is already in
// flight. Callers retry later; requests are never queued.
var ErrBusy = errors.New("an operation of this kind is already running")

// OpKind distinguishes the long-running operation families that get one
// in-flight slot each.
type OpKind string

const (
	OpGenotypeImport OpKind = "genotype_import"
	OpClinVarSync    OpKind = "clinvar_sync"
)

// Session coordinates background operations: at most one in flight per kind.
type Session struct {
	mu       sync.Mutex
	inFlight map[OpKind]bool
}

func NewSession() *Session {
	return &Session{inFlight: make(map[OpKind]bool)}
}

// Acquire claims the slot for kind, returning the release func, or ErrBusy
// when the slot is taken.
func (s *Session) Acquire(kind OpKind) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[kind] {
		return nil, ErrBusy
	}
	s.inFlight[kind] = true
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.inFlight[kind] = false
	}, nil
}

// Running reports whether an operation of kind is in flight.
func (s *Session) Running(kind OpKind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight[kind]
}
