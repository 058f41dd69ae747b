package stores

import (
	"context"
	"errors"
	"time"

	"excalidraw-httpsync/core"

	"github.com/prometheus/client_golang/prometheus"
)

type instrumentedStore struct {
	core.KVStore
	ops      *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// Instrument counts every Get and Set on store by namespace and result.
func Instrument(store core.KVStore, reg prometheus.Registerer) (core.KVStore, error) {
	s := &instrumentedStore{
		KVStore: store,
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "excalidraw",
			Subsystem: "store",
			Name:      "operations_total",
		}, []string{"namespace", "op", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "excalidraw",
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}
	for _, c := range []prometheus.Collector{s.ops, s.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *instrumentedStore) Get(ctx context.Context, namespace core.Namespace, key string) ([]byte, error) {
	start := time.Now()
	val, err := s.KVStore.Get(ctx, namespace, key)
	s.observe(namespace, "get", start, err)
	return val, err
}

func (s *instrumentedStore) Set(ctx context.Context, namespace core.Namespace, key string, value []byte) error {
	start := time.Now()
	err := s.KVStore.Set(ctx, namespace, key, value)
	s.observe(namespace, "set", start, err)
	return err
}

func (s *instrumentedStore) observe(namespace core.Namespace, op string, start time.Time, err error) {
	result := "ok"
	switch {
	case errors.Is(err, core.ErrNotFound):
		result = "not_found"
	case err != nil:
		result = "error"
	}
	s.ops.WithLabelValues(string(namespace), op, result).Inc()
	s.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
