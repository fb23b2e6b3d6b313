package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SalesRecordedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sales_recorded_total",
		Help: "Total number of sales recorded",
	})

	SalesFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sales_failed_total",
		Help: "Total number of failed sale recordings",
	}, []string{"reason"})

	SaleCompensationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sale_compensations_total",
		Help: "Total number of stock decrements reversed after a failed sale write",
	})

	StockDecrementLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "stock_decrement_latency_seconds",
		Help:    "Latency of atomic stock decrement operations",
		Buckets: prometheus.DefBuckets,
	})

	ItemsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "items_created_total",
		Help: "Total number of inventory items created",
	})

	ItemsDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "items_deleted_total",
		Help: "Total number of inventory items deleted",
	})

	CustomersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "customers_created_total",
		Help: "Total number of customers created",
	})

	LowStockAlertsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "low_stock_alerts_total",
		Help: "Total number of low stock alerts published",
	})

	ListFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "list_failures_total",
		Help: "Total number of failed list reads by entity",
	}, []string{"entity"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
