package cron

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/harvestlink/market-backend/internal/ledger"
	"github.com/harvestlink/market-backend/pkg/db/models"
	"github.com/harvestlink/market-backend/pkg/logger"
	"github.com/harvestlink/market-backend/pkg/metrics"
)

const (
	ledgerReconcileJobName    = "ledger-reconciliation"
	defaultReconcileBatchSize = 500
)

type orderScanner interface {
	ScanAfter(ctx context.Context, after uuid.UUID, limit int) ([]models.Order, error)
}

type journalReader interface {
	ListByOrderIDs(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]models.LedgerEvent, error)
}

type LedgerReconcileJobParams struct {
	Logger    *logger.Logger
	Orders    orderScanner
	Journal   journalReader
	Metrics   *metrics.CronJobMetrics
	BatchSize int
}

// ledgerReconcileJob walks every order and compares its journal with what its status implies.
// Drift is logged per order, counted by status, and fails the run so it shows up in job metrics.
type ledgerReconcileJob struct {
	logg      *logger.Logger
	orders    orderScanner
	journal   journalReader
	metrics   *metrics.CronJobMetrics
	batchSize int
}

func NewLedgerReconcileJob(params LedgerReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order scanner required")
	}
	if params.Journal == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultReconcileBatchSize
	}
	return &ledgerReconcileJob{
		logg:      params.Logger,
		orders:    params.Orders,
		journal:   params.Journal,
		metrics:   params.Metrics,
		batchSize: batch,
	}, nil
}

func (j *ledgerReconcileJob) Name() string { return ledgerReconcileJobName }

func (j *ledgerReconcileJob) Run(ctx context.Context) error {
	var (
		after    = uuid.Nil
		scanned  int
		driftErr error
		byStatus = make(map[string]int)
	)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		batch, err := j.orders.ScanAfter(ctx, after, j.batchSize)
		if err != nil {
			return fmt.Errorf("scan orders after %s: %w", after, err)
		}
		if len(batch) == 0 {
			break
		}
		ids := make([]uuid.UUID, len(batch))
		for i, order := range batch {
			ids[i] = order.ID
		}
		journals, err := j.journal.ListByOrderIDs(ctx, ids)
		if err != nil {
			return fmt.Errorf("load journals: %w", err)
		}
		for _, order := range batch {
			drifts := ledger.Reconcile(order, journals[order.ID])
			if len(drifts) == 0 {
				continue
			}
			byStatus[string(order.Status)]++
			for _, drift := range drifts {
				j.logg.Warn(j.logg.WithFields(ctx, map[string]any{
					"order_id": drift.OrderID.String(),
					"status":   drift.Status,
					"reason":   drift.Reason,
				}), "ledger drift detected")
				driftErr = multierr.Append(driftErr, errors.New(drift.String()))
			}
		}
		scanned += len(batch)
		after = batch[len(batch)-1].ID
		if len(batch) < j.batchSize {
			break
		}
	}

	drifted := 0
	for status, count := range byStatus {
		j.metrics.AddDrift(status, count)
		drifted += count
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"orders_scanned": scanned,
		"orders_drifted": drifted,
	}), "ledger reconciliation complete")
	if driftErr != nil {
		return fmt.Errorf("%d of %d orders drifted: %w", drifted, scanned, driftErr)
	}
	return nil
}
