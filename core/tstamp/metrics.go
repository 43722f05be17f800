package tstamp

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"example.com/fpga-time/base/metrics"
)

type engineMetrics struct {
	irqsServiced prometheus.Counter
	pktsEvicted  prometheus.Counter
	pktsPending  prometheus.Gauge
	scanErrors   prometheus.Counter
	tsLost       prometheus.Counter
	tsMatched    prometheus.Counter
	tsOrphaned   prometheus.Counter
	tsRingFull   prometheus.Counter
}

var (
	engineMtrcsOnce sync.Once
	engineMtrcs     *engineMetrics
)

// newEngineMetrics registers the engine collectors once; engines created
// later (tests, benchmarks) share them.
func newEngineMetrics() *engineMetrics {
	engineMtrcsOnce.Do(func() {
		engineMtrcs = &engineMetrics{
			irqsServiced: promauto.NewCounter(prometheus.CounterOpts{
				Name: metrics.EngineIRQsServicedN,
				Help: metrics.EngineIRQsServicedH,
			}),
			pktsEvicted: promauto.NewCounter(prometheus.CounterOpts{
				Name: metrics.EnginePktsEvictedN,
				Help: metrics.EnginePktsEvictedH,
			}),
			pktsPending: promauto.NewGauge(prometheus.GaugeOpts{
				Name: metrics.EnginePktsPendingN,
				Help: metrics.EnginePktsPendingH,
			}),
			scanErrors: promauto.NewCounter(prometheus.CounterOpts{
				Name: metrics.EngineScanErrorsN,
				Help: metrics.EngineScanErrorsH,
			}),
			tsLost: promauto.NewCounter(prometheus.CounterOpts{
				Name: metrics.EngineTsLostN,
				Help: metrics.EngineTsLostH,
			}),
			tsMatched: promauto.NewCounter(prometheus.CounterOpts{
				Name: metrics.EngineTsMatchedN,
				Help: metrics.EngineTsMatchedH,
			}),
			tsOrphaned: promauto.NewCounter(prometheus.CounterOpts{
				Name: metrics.EngineTsOrphanedN,
				Help: metrics.EngineTsOrphanedH,
			}),
			tsRingFull: promauto.NewCounter(prometheus.CounterOpts{
				Name: metrics.EngineTsRingFullN,
				Help: metrics.EngineTsRingFullH,
			}),
		}
	})
	return engineMtrcs
}
