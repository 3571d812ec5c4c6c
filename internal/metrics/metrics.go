// Package metrics exposes Prometheus collectors for pool operations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "amm"
	subsystem = "pool"
)

// PoolMetrics holds the collectors updated by the pool service. A nil
// *PoolMetrics is valid and records nothing.
type PoolMetrics struct {
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec

	SwapVolume       *prometheus.CounterVec
	SwapFees         *prometheus.CounterVec
	LiquidityAdded   *prometheus.CounterVec
	LiquidityRemoved *prometheus.CounterVec

	PoolReserve     *prometheus.GaugeVec
	PoolClaimSupply *prometheus.GaugeVec
	PoolsTotal      prometheus.Gauge
	Compensations   prometheus.Counter
}

// New registers the pool collectors on reg.
func New(reg prometheus.Registerer) *PoolMetrics {
	factory := promauto.With(reg)
	return &PoolMetrics{
		OperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "operations_total",
				Help:      "Pool operations by kind and outcome",
			},
			[]string{"op", "status"},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "operation_duration_seconds",
				Help:      "Time spent executing a pool operation",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		SwapVolume: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "swap_volume_total",
				Help:      "Swap input volume in base units",
			},
			[]string{"pool_id", "asset"},
		),
		SwapFees: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "swap_fees_total",
				Help:      "Swap input retained as fee in base units",
			},
			[]string{"pool_id", "asset"},
		),
		LiquidityAdded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "liquidity_added_total",
				Help:      "Reserve deposited by liquidity providers in base units",
			},
			[]string{"pool_id", "asset"},
		),
		LiquidityRemoved: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "liquidity_removed_total",
				Help:      "Reserve withdrawn by liquidity providers in base units",
			},
			[]string{"pool_id", "asset"},
		),
		PoolReserve: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "reserve",
				Help:      "Current pool reserve in base units",
			},
			[]string{"pool_id", "asset"},
		),
		PoolClaimSupply: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "claim_supply",
				Help:      "Outstanding claim tokens",
			},
			[]string{"pool_id"},
		),
		PoolsTotal: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "pools",
				Help:      "Pools created by this process",
			},
		),
		Compensations: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "compensations_total",
				Help:      "Custody batches reverted after a failed save",
			},
		),
	}
}

func (m *PoolMetrics) ObserveOperation(op, status string, started time.Time) {
	if m == nil {
		return
	}
	m.OperationsTotal.WithLabelValues(op, status).Inc()
	m.OperationDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

func (m *PoolMetrics) RecordSwap(poolID, assetIn string, amountIn, fee uint64) {
	if m == nil {
		return
	}
	m.SwapVolume.WithLabelValues(poolID, assetIn).Add(float64(amountIn))
	m.SwapFees.WithLabelValues(poolID, assetIn).Add(float64(fee))
}

func (m *PoolMetrics) RecordLiquidity(poolID, asset0, asset1 string, amount0, amount1 uint64, added bool) {
	if m == nil {
		return
	}
	vec := m.LiquidityRemoved
	if added {
		vec = m.LiquidityAdded
	}
	vec.WithLabelValues(poolID, asset0).Add(float64(amount0))
	vec.WithLabelValues(poolID, asset1).Add(float64(amount1))
}

// SetPoolState publishes the reserves and claim supply of a pool.
func (m *PoolMetrics) SetPoolState(poolID, asset0, asset1 string, reserve0, reserve1, claimSupply uint64) {
	if m == nil {
		return
	}
	m.PoolReserve.WithLabelValues(poolID, asset0).Set(float64(reserve0))
	m.PoolReserve.WithLabelValues(poolID, asset1).Set(float64(reserve1))
	m.PoolClaimSupply.WithLabelValues(poolID).Set(float64(claimSupply))
}

func (m *PoolMetrics) PoolCreated() {
	if m == nil {
		return
	}
	m.PoolsTotal.Inc()
}

func (m *PoolMetrics) Compensated() {
	if m == nil {
		return
	}
	m.Compensations.Inc()
}

// WriteFile dumps every metric gathered by g in the text exposition format.
func WriteFile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
