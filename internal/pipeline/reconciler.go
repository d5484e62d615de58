package pipeline

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/calmzest/waterdash/internal/domain"
	"github.com/calmzest/waterdash/internal/ledger"
	"github.com/calmzest/waterdash/internal/metrics"
)

// Period echoes the resolved date range back to the caller.
type Period struct {
	StartDate *civil.Date `json:"startDate"`
	EndDate   *civil.Date `json:"endDate"`
}

// TransactionOutcome reports one executed ledger mutation.
type TransactionOutcome struct {
	Operation   domain.Operation    `json:"operation"`
	Store       domain.Store        `json:"store"`
	Transaction *domain.Transaction `json:"transaction,omitempty"`
	Deleted     int                 `json:"deleted,omitempty"`
}

// AnalyticsOutcome reports a read-only metrics computation: a single value
// when the query named a store, otherwise one snapshot per store.
type AnalyticsOutcome struct {
	Store     string             `json:"store,omitempty"`
	Metric    domain.Metric      `json:"metric,omitempty"`
	Value     *float64           `json:"value,omitempty"`
	Stores    []metrics.Snapshot `json:"stores,omitempty"`
	Timeframe domain.Timeframe   `json:"timeframe"`
	Period    Period             `json:"period"`
}

// BatchError is one failed element of a batch execution.
type BatchError struct {
	Index int    `json:"index"`
	Store string `json:"store,omitempty"`
	Error string `json:"error"`
}

// BatchOutcome is the partial-success report for a batch: every success and
// every failure, itemized. A batch with failures is still a successful
// response shape; Success=false signals partial failure in the payload so
// the caller can retry only the failed subset.
type BatchOutcome struct {
	Results []*TransactionOutcome `json:"results"`
	Errors  []BatchError          `json:"errors"`
	Success bool                  `json:"success"`
	Message string                `json:"message"`
}

// Reconciler dispatches validated commands to the ledger or the metrics
// aggregator. Analytics queries never mutate; mutations are
// idempotency-unaware (re-running the same ADD appends again).
type Reconciler struct {
	ledger  *ledger.Service
	metrics *metrics.Aggregator
	today   func() civil.Date
	log     zerolog.Logger
}

// NewReconciler wires the reconciler. Pass a nil today func to use the
// local calendar date; tests inject a fixed one.
func NewReconciler(svc *ledger.Service, agg *metrics.Aggregator, today func() civil.Date, log zerolog.Logger) *Reconciler {
	if today == nil {
		today = func() civil.Date { return civil.DateOf(time.Now()) }
	}
	return &Reconciler{
		ledger:  svc,
		metrics: agg,
		today:   today,
		log:     log,
	}
}

// Execute runs one validated parsed result and returns its outcome:
// *AnalyticsOutcome, *TransactionOutcome or *BatchOutcome.
func (r *Reconciler) Execute(ctx context.Context, res ParsedResult) (any, error) {
	switch v := res.(type) {
	case *AnalyticsQuery:
		return r.runAnalytics(ctx, v)
	case *ParsedTransaction:
		return r.runTransaction(ctx, v)
	case *BatchResult:
		return r.runBatch(ctx, v)
	}
	return nil, fmt.Errorf("Execute: unexpected result type %T", res)
}

func (r *Reconciler) runAnalytics(ctx context.Context, q *AnalyticsQuery) (*AnalyticsOutcome, error) {
	timeframe := domain.Timeframe(q.TimeframeName())
	rng, err := RangeForTimeframe(timeframe, q.DateExpr(), r.today())
	if err != nil {
		return nil, err
	}

	metric := domain.Metric(q.MetricName())
	if metric == "" {
		metric = domain.MetricRevenue
	}

	outcome := &AnalyticsOutcome{
		Timeframe: timeframe,
		Period:    Period{StartDate: rng.Start, EndDate: rng.End},
	}

	if name := q.StoreName(); name != "" {
		store, _ := domain.ParseStore(name)
		value, err := r.metrics.MetricValue(ctx, store, metric, rng.Start, rng.End)
		if err != nil {
			return nil, err
		}
		outcome.Store = name
		outcome.Metric = metric
		outcome.Value = &value
		return outcome, nil
	}

	snapshots, err := r.metrics.AllStoresMetrics(ctx, rng.Start, rng.End)
	if err != nil {
		return nil, err
	}
	outcome.Stores = snapshots
	return outcome, nil
}

func (r *Reconciler) runTransaction(ctx context.Context, t *ParsedTransaction) (*TransactionOutcome, error) {
	store, _ := domain.ParseStore(t.StoreName())
	op := domain.Operation(t.OperationName())
	txType := domain.TransactionType(t.TypeName())

	var date civil.Date
	hasDate := false
	if expr, ok := t.DateExpr(); ok {
		d, resolved := ResolveDate(expr, r.today())
		if !resolved {
			return nil, &ValidationError{Kind: ErrInvalidDate, Field: "date", Value: expr}
		}
		date = d
		hasDate = true
	}

	switch op {
	case domain.OpAdd:
		if !hasDate {
			date = r.today()
		}
		amount, _ := t.AmountValue()
		rec := domain.Transaction{
			ID:          uuid.NewString(),
			Date:        date,
			Type:        txType,
			Amount:      amount,
			Description: t.DescriptionText(),
			Category:    t.CategoryName(),
		}
		if err := r.ledger.Append(ctx, store, rec); err != nil {
			return nil, err
		}
		return &TransactionOutcome{Operation: op, Store: store, Transaction: &rec}, nil

	case domain.OpUpdate:
		if !hasDate {
			return nil, &ValidationError{Kind: ErrMissingRequiredField, Field: "date"}
		}
		amount, _ := t.AmountValue()
		updated, err := r.ledger.Update(ctx, store, ledger.MatchKey{Date: date, Type: txType}, amount)
		if err != nil {
			return nil, err
		}
		return &TransactionOutcome{Operation: op, Store: store, Transaction: &updated}, nil

	case domain.OpDelete:
		if !hasDate {
			return nil, &ValidationError{Kind: ErrMissingRequiredField, Field: "date"}
		}
		n, err := r.ledger.Delete(ctx, store, ledger.MatchKey{Date: date, Type: txType})
		if err != nil {
			return nil, err
		}
		return &TransactionOutcome{Operation: op, Store: store, Deleted: n}, nil
	}

	return nil, &ValidationError{Kind: ErrInvalidOperation, Field: "operation", Value: t.Operation}
}

// runBatch executes each element independently and never aborts on
// failure. One element's NotFound must not prevent another's ADD.
func (r *Reconciler) runBatch(ctx context.Context, b *BatchResult) (*BatchOutcome, error) {
	outcome := &BatchOutcome{
		Results: make([]*TransactionOutcome, 0, len(b.Transactions)),
		Errors:  []BatchError{},
	}

	for i, t := range b.Transactions {
		res, err := r.runTransaction(ctx, t)
		if err != nil {
			r.log.Warn().Err(err).Int("index", i).Str("store", t.StoreName()).Msg("Batch element failed")
			outcome.Errors = append(outcome.Errors, BatchError{
				Index: i,
				Store: t.StoreName(),
				Error: err.Error(),
			})
			continue
		}
		outcome.Results = append(outcome.Results, res)
	}

	outcome.Success = len(outcome.Errors) == 0
	if outcome.Success {
		outcome.Message = fmt.Sprintf("Processed %d transactions", len(outcome.Results))
	} else {
		outcome.Message = fmt.Sprintf("Processed %d of %d transactions, %d failed",
			len(outcome.Results), len(b.Transactions), len(outcome.Errors))
	}
	return outcome, nil
}
