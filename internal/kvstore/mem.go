package kvstore

import (
	"context"
	"strings"

	"github.com/puzpuzpuz/xsync/v3"
	"gorm.io/datatypes"
)

type memStore struct {
	m *xsync.MapOf[string, datatypes.JSON]
}

// NewMem returns an in-process Store. It implements the same contract as the
// database-backed store and is used by tests and single-node local runs.
func NewMem() Store {
	return &memStore{m: xsync.NewMapOf[string, datatypes.JSON]()}
}

func clone(v datatypes.JSON) datatypes.JSON {
	if v == nil {
		return nil
	}
	out := make(datatypes.JSON, len(v))
	copy(out, v)
	return out
}

func (s *memStore) Get(_ context.Context, key string) (datatypes.JSON, bool, error) {
	v, ok := s.m.Load(key)
	if !ok {
		return nil, false, nil
	}
	return clone(v), true, nil
}

func (s *memStore) Set(_ context.Context, key string, value datatypes.JSON) error {
	s.m.Store(key, clone(value))
	return nil
}

func (s *memStore) Delete(_ context.Context, key string) error {
	s.m.Delete(key)
	return nil
}

func (s *memStore) ScanPrefix(_ context.Context, prefix string) ([]datatypes.JSON, error) {
	values := []datatypes.JSON{}
	s.m.Range(func(k string, v datatypes.JSON) bool {
		if strings.HasPrefix(k, prefix) {
			values = append(values, clone(v))
		}
		return true
	})
	return values, nil
}

func (s *memStore) Update(_ context.Context, key string, fn UpdateFunc) error {
	var fnErr error
	s.m.Compute(key, func(old datatypes.JSON, loaded bool) (datatypes.JSON, bool) {
		next, err := fn(clone(old), loaded)
		if err != nil {
			fnErr = err
			return old, !loaded // keep the map unchanged
		}
		return clone(next), false
	})
	return fnErr
}
