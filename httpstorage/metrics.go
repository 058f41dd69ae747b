package httpstorage

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var SceneSaves = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "excalidraw",
	Subsystem: "httpstorage",
	Name:      "scene_saves_total",
}, []string{"outcome"})

var SceneLoads = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "excalidraw",
	Subsystem: "httpstorage",
	Name:      "scene_loads_total",
}, []string{"outcome"})

var FileTransfers = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "excalidraw",
	Subsystem: "httpstorage",
	Name:      "file_transfers_total",
}, []string{"op", "result"})

// RegisterMetrics registers the client counters with reg. Registering twice
// is not an error.
func RegisterMetrics(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{SceneSaves, SceneLoads, FileTransfers} {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}
	return nil
}
