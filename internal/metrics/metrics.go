package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TxIngestedTotal tracks observed transactions accepted by the pipeline
	TxIngestedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "botwatch_tx_ingested_total",
			Help: "Total number of transactions ingested",
		},
		[]string{"source"},
	)

	// TxDuplicateTotal tracks transactions dropped as duplicates
	TxDuplicateTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "botwatch_tx_duplicate_total",
			Help: "Total number of duplicate transactions dropped",
		},
		[]string{"source"},
	)

	// TxStatusTransitions tracks ledger status changes
	TxStatusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "botwatch_tx_status_transitions_total",
			Help: "Total number of transaction status transitions",
		},
		[]string{"to"},
	)

	// TxRetriesTotal tracks retry attempts on failed transactions
	TxRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "botwatch_tx_retries_total",
			Help: "Total number of transaction retry attempts",
		},
	)

	// IngestLatency tracks per-item pipeline latency
	IngestLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "botwatch_ingest_latency_seconds",
			Help:    "Ingest pipeline latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	// NotificationsEmittedTotal tracks emitted notifications per type
	NotificationsEmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "botwatch_notifications_emitted_total",
			Help: "Total number of notifications emitted",
		},
		[]string{"type"},
	)

	// NotificationFanoutErrors tracks per-sink fanout failures
	NotificationFanoutErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "botwatch_notification_fanout_errors_total",
			Help: "Total number of notification fanout errors",
		},
		[]string{"sink"},
	)

	// WalletsTracked tracks the number of registered wallets
	WalletsTracked = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "botwatch_wallets_tracked",
			Help: "Number of registered wallets",
		},
	)

	// TxPending tracks the number of pending transactions
	TxPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "botwatch_tx_pending",
			Help: "Number of pending transactions",
		},
	)

	// TxFailedGauge tracks the number of failed transactions
	TxFailedGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "botwatch_tx_failed",
			Help: "Number of failed transactions",
		},
	)

	// RPCCallsTotal tracks observer RPC calls per endpoint
	RPCCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "botwatch_rpc_calls_total",
			Help: "Total number of RPC calls",
		},
		[]string{"endpoint", "method"},
	)

	// RPCErrorsTotal tracks observer RPC errors per endpoint
	RPCErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "botwatch_rpc_errors_total",
			Help: "Total number of RPC errors",
		},
		[]string{"endpoint", "method"},
	)

	// SSEClients tracks connected notification stream clients
	SSEClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "botwatch_sse_clients",
			Help: "Number of connected SSE clients",
		},
	)

	// HTTPRequestsTotal tracks API requests
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "botwatch_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration tracks API request latency
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "botwatch_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// DBConnectionPoolUsage tracks connection pool utilization percentage
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "botwatch_db_connection_pool_usage",
			Help: "Database connection pool usage percentage",
		},
	)

	// RowsPrunedTotal tracks rows removed by the retention pruner
	RowsPrunedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "botwatch_rows_pruned_total",
			Help: "Total number of rows removed by retention pruning",
		},
		[]string{"table"},
	)
)
