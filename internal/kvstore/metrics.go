package kvstore

import (
	"context"
	"fmt"

	"github.com/VictoriaMetrics/metrics"
	"gorm.io/datatypes"
)

type instrumentedStore struct {
	next Store
}

// WithMetrics wraps a Store so every operation bumps a kvstore_ops_total
// counter, exposed on /metrics.
func WithMetrics(next Store) Store {
	return &instrumentedStore{next: next}
}

func count(op string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.GetOrCreateCounter(fmt.Sprintf(`kvstore_ops_total{op=%q,status=%q}`, op, status)).Inc()
}

func (s *instrumentedStore) Get(ctx context.Context, key string) (datatypes.JSON, bool, error) {
	v, found, err := s.next.Get(ctx, key)
	count("get", err)
	return v, found, err
}

func (s *instrumentedStore) Set(ctx context.Context, key string, value datatypes.JSON) error {
	err := s.next.Set(ctx, key, value)
	count("set", err)
	return err
}

func (s *instrumentedStore) Delete(ctx context.Context, key string) error {
	err := s.next.Delete(ctx, key)
	count("delete", err)
	return err
}

func (s *instrumentedStore) ScanPrefix(ctx context.Context, prefix string) ([]datatypes.JSON, error) {
	values, err := s.next.ScanPrefix(ctx, prefix)
	count("scan_prefix", err)
	return values, err
}

func (s *instrumentedStore) Update(ctx context.Context, key string, fn UpdateFunc) error {
	err := s.next.Update(ctx, key, fn)
	count("update", err)
	return err
}
