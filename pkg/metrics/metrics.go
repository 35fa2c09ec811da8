package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TransactionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rewardpool_transactions_total",
			Help: "Total number of processed transactions",
		},
		[]string{"status"},
	)

	TransactionComputeUnits = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rewardpool_transaction_compute_units",
			Help:    "Compute units consumed per transaction",
			Buckets: prometheus.ExponentialBuckets(100, 2, 12), // 100 to ~204800
		},
	)

	InstructionErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rewardpool_instruction_errors_total",
			Help: "Total number of failed instructions by error",
		},
		[]string{"error"},
	)

	DistributionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rewardpool_distributions_total",
			Help: "Total number of committed distributions",
		},
		[]string{"outcome"},
	)

	DistributedLamportsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rewardpool_distributed_lamports_total",
			Help: "Total lamports moved from pools to staking position destinations",
		},
	)

	DistributionPositions = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rewardpool_distribution_positions",
			Help:    "Number of staking positions paid per distribution",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8), // 1 to 128
		},
	)

	LockWaitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rewardpool_account_lock_wait_seconds",
			Help:    "Time spent waiting for account locks",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10), // 10us to ~2.6s
		},
	)

	BatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rewardpool_batch_duration_seconds",
			Help:    "Duration of transaction batches",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
		},
	)

	SlotsProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rewardpool_slots_processed_total",
			Help: "Total number of processed slots",
		},
	)
)
