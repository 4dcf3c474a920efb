package app

import (
	"context"
	"time"

	"github.com/Freeeeeet/slotswap_bot/internal/metrics"
	"github.com/Freeeeeet/slotswap_bot/internal/model"
	"go.uber.org/zap"
)

// AnomalyFinder ищет слоты с рассогласованным статусом (repository.SlotRepository)
type AnomalyFinder interface {
	FindInvariantViolations(ctx context.Context) ([]model.SlotAnomaly, error)
}

// Auditor периодически сверяет статусы слотов с открытыми запросами обмена.
// Только читает и сообщает, ничего не чинит.
type Auditor struct {
	finder   AnomalyFinder
	metrics  *metrics.Collector
	logger   *zap.Logger
	interval time.Duration
}

func NewAuditor(finder AnomalyFinder, collector *metrics.Collector, logger *zap.Logger, interval time.Duration) *Auditor {
	return &Auditor{
		finder:   finder,
		metrics:  collector,
		logger:   logger,
		interval: interval,
	}
}

// Run проверяет сразу при старте и затем по тикеру, до отмены ctx
func (a *Auditor) Run(ctx context.Context) error {
	a.logger.Info("Starting consistency auditor", zap.Duration("interval", a.interval))

	a.AuditOnce(ctx)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.AuditOnce(ctx)
		case <-ctx.Done():
			a.logger.Info("Consistency auditor stopped")
			return nil
		}
	}
}

// AuditOnce один проход проверки; возвращает найденные аномалии
func (a *Auditor) AuditOnce(ctx context.Context) []model.SlotAnomaly {
	anomalies, err := a.finder.FindInvariantViolations(ctx)
	if err != nil {
		if ctx.Err() == nil {
			a.metrics.AuditRuns.WithLabelValues("error").Inc()
			a.logger.Error("Consistency audit failed", zap.Error(err))
		}
		return nil
	}

	a.metrics.SlotAnomalies.Set(float64(len(anomalies)))

	if len(anomalies) == 0 {
		a.metrics.AuditRuns.WithLabelValues("clean").Inc()
		a.logger.Debug("Consistency audit passed")
		return nil
	}

	a.metrics.AuditRuns.WithLabelValues("anomalies").Inc()
	for _, anomaly := range anomalies {
		a.logger.Error("Slot status does not match open swap requests",
			zap.String("slot_id", anomaly.SlotID.String()),
			zap.String("status", string(anomaly.Status)),
			zap.Int("open_requests", anomaly.OpenRequests),
		)
	}

	return anomalies
}
