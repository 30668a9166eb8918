package naming

import (
	"context"
	"fmt"
	"sync"
)

// MemService is an in-memory naming service. It enforces the same sequence
// ordering a production service does, which makes it suitable for tests and
// for single-process setups that do not need a remote service.
type MemService struct {
	mu      sync.RWMutex
	records map[string]*PointerRecord
}

// Compile-time interface check.
var _ Service = (*MemService)(nil)

// NewMemService creates an empty in-memory naming service.
func NewMemService() *MemService {
	return &MemService{records: make(map[string]*PointerRecord)}
}

// ResolvePointer returns a copy of the stored record for name.
func (s *MemService) ResolvePointer(ctx context.Context, name string) (*PointerRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ValidatePointerName(name); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPointerNotFound, name)
	}
	return rec.Clone(), nil
}

// SubmitPointer stores record for name if its sequence exceeds the current one.
func (s *MemService) SubmitPointer(ctx context.Context, name string, record *PointerRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidatePointerName(name); err != nil {
		return err
	}
	if record == nil || record.Value == "" {
		return ErrEmptyValue
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if current, ok := s.records[name]; ok && record.Sequence <= current.Sequence {
		return fmt.Errorf("%w: got %d, current %d", ErrSequenceConflict, record.Sequence, current.Sequence)
	}
	stored := record.Clone()
	stored.FromCache = false
	s.records[name] = stored
	return nil
}
