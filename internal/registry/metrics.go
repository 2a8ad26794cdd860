package registry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StoresRegistered tracks the number of named stores currently
	// registered, summed over every Registry in the process.
	StoresRegistered = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "multistore",
			Subsystem: "registry",
			Name:      "stores",
			Help:      "Number of named stores currently registered",
		},
	)

	// OperationsTotal counts registry operations.
	// Labels: op (register, unregister, get, switch_inspector), result (ok, noop, error)
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "multistore",
			Subsystem: "registry",
			Name:      "operations_total",
			Help:      "Total number of registry operations by result",
		},
		[]string{"op", "result"},
	)
)

const (
	resultOK    = "ok"
	resultNoop  = "noop"
	resultError = "error"
)
