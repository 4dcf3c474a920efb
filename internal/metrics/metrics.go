// Package metrics собирает Prometheus-метрики обменов слотов.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "slotswap"

// Collector хранит метрики приложения в собственном реестре,
// чтобы тесты могли создавать независимые экземпляры
type Collector struct {
	registry *prometheus.Registry

	SlotsCreated   prometheus.Counter
	SlotsDeleted   prometheus.Counter
	SwapsRequested prometheus.Counter
	SwapsResolved  *prometheus.CounterVec
	Conflicts      *prometheus.CounterVec
	SlotAnomalies  prometheus.Gauge
	AuditRuns      *prometheus.CounterVec
}

// NewCollector создаёт и регистрирует метрики
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		SlotsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slots_created_total",
			Help:      "Total number of slots created",
		}),
		SlotsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slots_deleted_total",
			Help:      "Total number of slots deleted",
		}),
		SwapsRequested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "swap_requests_created_total",
			Help:      "Total number of swap requests created",
		}),
		SwapsResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "swap_requests_resolved_total",
			Help:      "Total number of swap requests resolved, by outcome",
		}, []string{"status"}),
		Conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conflicts_total",
			Help:      "Operations rejected because of a concurrent state change",
		}, []string{"operation"}),
		SlotAnomalies: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "slot_invariant_violations",
			Help:      "Slots whose SWAP_PENDING status does not match open swap requests, as of the last audit",
		}),
		AuditRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_runs_total",
			Help:      "Consistency audit runs, by result",
		}, []string{"result"}),
	}

	registry.MustRegister(
		c.SlotsCreated,
		c.SlotsDeleted,
		c.SwapsRequested,
		c.SwapsResolved,
		c.Conflicts,
		c.SlotAnomalies,
		c.AuditRuns,
		collectors.NewGoCollector(),
	)

	return c
}

// Handler отдаёт метрики в формате Prometheus
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
