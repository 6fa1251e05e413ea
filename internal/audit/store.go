package audit

import (
	"context"
	"errors"
)

// Store persists audit events. Implementations are append-only.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// FanoutStore appends every event to each of its stores, attempting all of
// them and joining the failures.
type FanoutStore struct {
	stores []Store
}

// NewFanoutStore skips nil stores.
func NewFanoutStore(stores ...Store) *FanoutStore {
	f := &FanoutStore{}
	for _, s := range stores {
		if s != nil {
			f.stores = append(f.stores, s)
		}
	}
	return f
}

func (f *FanoutStore) Append(ctx context.Context, event Event) error {
	var errs []error
	for _, s := range f.stores {
		if err := s.Append(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
