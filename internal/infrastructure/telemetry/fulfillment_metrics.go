package telemetry

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Outcome values for ledger line counters.
const (
	OutcomeApplied = "applied"
	OutcomeSkipped = "skipped"
)

// FulfillmentMetrics records ledger, quote, webhook and sweeper activity.
// Its methods satisfy the recorder interfaces of the application services
// and the scheduler run observer.
type FulfillmentMetrics struct {
	logger *zap.Logger

	ledgerLines  *Counter
	quotes       *Counter
	webhooks     *Counter
	jobRuns      *Counter
	jobDurations *Histogram
}

// NewFulfillmentMetrics registers all instruments on meter.
func NewFulfillmentMetrics(meter metric.Meter, logger *zap.Logger) (*FulfillmentMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &FulfillmentMetrics{logger: logger}
	var err error

	m.ledgerLines, err = NewCounter(meter,
		"fulfillment_ledger_lines_total",
		"Inventory ledger lines processed, by operation and outcome",
		"{lines}",
	)
	if err != nil {
		return nil, err
	}

	m.quotes, err = NewCounter(meter,
		"fulfillment_shipping_quotes_total",
		"Shipping quotes served, by strategy",
		"{quotes}",
	)
	if err != nil {
		return nil, err
	}

	m.webhooks, err = NewCounter(meter,
		"fulfillment_webhooks_total",
		"Inbound webhooks handled, by source and outcome",
		"{webhooks}",
	)
	if err != nil {
		return nil, err
	}

	m.jobRuns, err = NewCounter(meter,
		"fulfillment_job_runs_total",
		"Background job runs, by job and status",
		"{runs}",
	)
	if err != nil {
		return nil, err
	}

	m.jobDurations, err = NewHistogram(meter, HistogramOpts{
		Name:        "fulfillment_job_duration_seconds",
		Description: "Background job run duration",
		Unit:        "s",
		Boundaries:  JobDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordLedgerLines counts applied and skipped lines for one ledger operation.
func (m *FulfillmentMetrics) RecordLedgerLines(ctx context.Context, operation string, applied, skipped int) {
	m.ledgerLines.Add(ctx, int64(applied), AttrOperation.String(operation), AttrOutcome.String(OutcomeApplied))
	m.ledgerLines.Add(ctx, int64(skipped), AttrOperation.String(operation), AttrOutcome.String(OutcomeSkipped))
	if skipped > 0 {
		m.logger.Debug("Ledger lines skipped",
			zap.String("operation", operation),
			zap.Int("skipped", skipped),
		)
	}
}

// RecordQuote counts a served quote.
func (m *FulfillmentMetrics) RecordQuote(ctx context.Context, strategy string, empty bool) {
	m.quotes.Inc(ctx, AttrStrategy.String(strategy), AttrEmpty.String(strconv.FormatBool(empty)))
}

// RecordWebhook counts a handled webhook.
func (m *FulfillmentMetrics) RecordWebhook(ctx context.Context, source, outcome string) {
	m.webhooks.Inc(ctx, AttrSource.String(source), AttrOutcome.String(outcome))
}

// ObserveJobRun records a background job run.
func (m *FulfillmentMetrics) ObserveJobRun(ctx context.Context, name, status string, duration time.Duration) {
	m.jobRuns.Inc(ctx, AttrJob.String(name), AttrStatus.String(status))
	m.jobDurations.RecordDuration(ctx, duration, AttrJob.String(name))
}
