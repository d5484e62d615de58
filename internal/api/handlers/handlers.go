package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/calmzest/waterdash/internal/api/middleware"
	"github.com/calmzest/waterdash/internal/domain"
	"github.com/calmzest/waterdash/internal/ledger"
	"github.com/calmzest/waterdash/internal/metrics"
	"github.com/calmzest/waterdash/internal/pipeline"
)

const recentTransactionLimit = 10

// ParseHandler turns free text into a structured command without executing
// it, so the frontend can show the interpretation for confirmation.
type ParseHandler struct {
	interpreter *pipeline.Interpreter
	log         zerolog.Logger
}

// NewParseHandler creates a new parse handler.
func NewParseHandler(interpreter *pipeline.Interpreter, log zerolog.Logger) *ParseHandler {
	return &ParseHandler{interpreter: interpreter, log: log}
}

// Parse handles POST /api/transactions/parse
func (h *ParseHandler) Parse(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Input string `json:"input"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Input == "" {
		middleware.WriteError(w, http.StatusBadRequest, "input is required")
		return
	}

	res, err := h.interpreter.Interpret(r.Context(), req.Input)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to interpret input")
		writeDomainError(w, err)
		return
	}

	// Echo the validated interpretation as-is; the caller confirms before
	// executing it.
	middleware.WriteJSON(w, http.StatusOK, res.Raw())
}

// TransactionsHandler executes confirmed commands and lists ledger rows.
type TransactionsHandler struct {
	ledger     *ledger.Service
	reconciler *pipeline.Reconciler
	log        zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(svc *ledger.Service, rec *pipeline.Reconciler, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{ledger: svc, reconciler: rec, log: log}
}

// Execute handles POST /api/transactions. The body is a parsed command as
// returned by the parse endpoint; it is re-validated before anything runs,
// so a hand-crafted body gets the same scrutiny as oracle output.
func (h *TransactionsHandler) Execute(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := pipeline.DecodeResult(body)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := pipeline.ValidateResult(res); err != nil {
		writeDomainError(w, err)
		return
	}

	outcome, err := h.reconciler.Execute(r.Context(), res)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to execute command")
		writeDomainError(w, err)
		return
	}

	// A batch with per-item failures is still a success-class response;
	// the payload itemizes what failed.
	middleware.WriteJSON(w, http.StatusOK, outcome)
}

// List handles GET /api/transactions
func (h *TransactionsHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	store, ok := domain.ParseStore(query.Get("store"))
	if !ok {
		middleware.WriteError(w, http.StatusBadRequest, "store is required and must be a known store name")
		return
	}

	filter := ledger.Filter{Category: query.Get("category")}
	if typeStr := query.Get("type"); typeStr != "" {
		t, ok := domain.ParseTransactionType(typeStr)
		if !ok {
			middleware.WriteError(w, http.StatusBadRequest, "type must be REVENUE or EXPENSE")
			return
		}
		filter.Type = t
	}

	var err error
	if filter.Start, err = parseDateParam(query.Get("startDate")); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid startDate format")
		return
	}
	if filter.End, err = parseDateParam(query.Get("endDate")); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid endDate format")
		return
	}

	rows, err := h.ledger.Query(r.Context(), store, filter)
	if err != nil {
		h.log.Error().Err(err).Str("store", string(store)).Msg("Failed to query transactions")
		writeDomainError(w, err)
		return
	}

	if rows == nil {
		rows = []domain.Transaction{}
	}
	middleware.WriteJSON(w, http.StatusOK, rows)
}

func parseDateParam(s string) (*civil.Date, error) {
	if s == "" {
		return nil, nil
	}
	d, err := civil.ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// AnalyticsHandler serves metric queries the dashboard builds directly,
// bypassing the oracle.
type AnalyticsHandler struct {
	reconciler *pipeline.Reconciler
	log        zerolog.Logger
}

// NewAnalyticsHandler creates a new analytics handler.
func NewAnalyticsHandler(rec *pipeline.Reconciler, log zerolog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{reconciler: rec, log: log}
}

// Query handles POST /api/analytics
func (h *AnalyticsHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Store     string `json:"store"`
		Metric    string `json:"metric"`
		Date      string `json:"date"`
		Timeframe string `json:"timeframe"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	q := pipeline.NewAnalyticsQuery(req.Store, req.Metric, req.Date, req.Timeframe)
	if err := pipeline.ValidateResult(q); err != nil {
		writeDomainError(w, err)
		return
	}

	outcome, err := h.reconciler.Execute(r.Context(), q)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to run analytics query")
		writeDomainError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, outcome)
}

// StoreTrend is the day-over-day movement of one store's metrics, formatted
// as signed percentages.
type StoreTrend struct {
	Revenue  string `json:"revenue"`
	Expenses string `json:"expenses"`
	Profit   string `json:"profit"`
}

// DashboardStore is one store's card on the dashboard.
type DashboardStore struct {
	metrics.Snapshot
	Trend StoreTrend `json:"trend"`
}

// DashboardResponse is the landing-page payload: today's metrics per store,
// company totals, and the most recent ledger activity.
type DashboardResponse struct {
	Date               civil.Date           `json:"date"`
	Stores             []DashboardStore     `json:"stores"`
	Totals             metrics.Snapshot     `json:"totals"`
	RecentTransactions []domain.Transaction `json:"recentTransactions"`
	Degraded           bool                 `json:"degraded,omitempty"`
}

// DashboardHandler assembles the landing-page overview.
type DashboardHandler struct {
	ledger   *ledger.Service
	metrics  *metrics.Aggregator
	today    func() civil.Date
	tolerate bool
	log      zerolog.Logger
}

// NewDashboardHandler creates a new dashboard handler. A nil today func uses
// the local calendar date. With tolerate set, backend failures degrade the
// dashboard to zeros instead of failing the request.
func NewDashboardHandler(svc *ledger.Service, agg *metrics.Aggregator, today func() civil.Date, tolerate bool, log zerolog.Logger) *DashboardHandler {
	if today == nil {
		today = func() civil.Date { return civil.DateOf(time.Now()) }
	}
	return &DashboardHandler{ledger: svc, metrics: agg, today: today, tolerate: tolerate, log: log}
}

// Overview handles GET /api/dashboard
func (h *DashboardHandler) Overview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	today := h.today()
	yesterday := today.AddDays(-1)

	resp := DashboardResponse{Date: today, RecentTransactions: []domain.Transaction{}}

	todaySnaps, err := h.metrics.AllStoresMetrics(ctx, &today, &today)
	if err != nil {
		if !h.tolerate {
			h.log.Error().Err(err).Msg("Failed to compute dashboard metrics")
			writeDomainError(w, err)
			return
		}
		h.log.Warn().Err(err).Msg("Dashboard metrics degraded to zeros")
		resp.Degraded = true
		todaySnaps = zeroSnapshots()
	}

	yesterdaySnaps, err := h.metrics.AllStoresMetrics(ctx, &yesterday, &yesterday)
	if err != nil {
		h.log.Warn().Err(err).Msg("Trend baseline unavailable")
		yesterdaySnaps = zeroSnapshots()
	}

	resp.Stores = make([]DashboardStore, len(todaySnaps))
	for i, snap := range todaySnaps {
		resp.Stores[i] = DashboardStore{
			Snapshot: snap,
			Trend: StoreTrend{
				Revenue:  trendPct(snap.Revenue, yesterdaySnaps[i].Revenue),
				Expenses: trendPct(snap.Expenses, yesterdaySnaps[i].Expenses),
				Profit:   trendPct(snap.Profit, yesterdaySnaps[i].Profit),
			},
		}
		resp.Totals.Revenue += snap.Revenue
		resp.Totals.Expenses += snap.Expenses
	}
	resp.Totals.Profit = resp.Totals.Revenue - resp.Totals.Expenses

	recent, err := h.recentTransactions(ctx)
	if err != nil {
		if !h.tolerate {
			h.log.Error().Err(err).Msg("Failed to load recent transactions")
			writeDomainError(w, err)
			return
		}
		h.log.Warn().Err(err).Msg("Recent transactions unavailable")
		resp.Degraded = true
	} else {
		resp.RecentTransactions = recent
	}

	middleware.WriteJSON(w, http.StatusOK, resp)
}

func (h *DashboardHandler) recentTransactions(ctx context.Context) ([]domain.Transaction, error) {
	var all []domain.Transaction
	for _, store := range domain.Stores() {
		rows, err := h.ledger.Query(ctx, store, ledger.Filter{})
		if err != nil {
			return nil, err
		}
		all = append(all, rows...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[j].Date.Before(all[i].Date)
	})
	if len(all) > recentTransactionLimit {
		all = all[:recentTransactionLimit]
	}
	if all == nil {
		all = []domain.Transaction{}
	}
	return all, nil
}

func zeroSnapshots() []metrics.Snapshot {
	stores := domain.Stores()
	snaps := make([]metrics.Snapshot, len(stores))
	for i, s := range stores {
		snaps[i] = metrics.Snapshot{Store: s}
	}
	return snaps
}

// trendPct formats the day-over-day movement. A zero baseline has no defined
// percentage; "n/a" is reported unless today is also zero.
func trendPct(today, yesterday float64) string {
	if yesterday == 0 {
		if today == 0 {
			return "+0.0%"
		}
		return "n/a"
	}
	return fmt.Sprintf("%+.1f%%", (today-yesterday)/yesterday*100)
}

// Health handles GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeDomainError maps pipeline and ledger errors to HTTP statuses.
// Rejections of command content are 422 so the frontend can show them as
// correctable; infrastructure failures are 500.
func writeDomainError(w http.ResponseWriter, err error) {
	var (
		vErr *pipeline.ValidationError
		mErr *pipeline.MalformedResponseError
		oErr *pipeline.OracleUnavailableError
		bErr *ledger.BackendUnavailableError
		sErr *ledger.SchemaError
	)
	switch {
	case errors.As(err, &vErr):
		middleware.WriteError(w, http.StatusUnprocessableEntity, vErr.Error())
	case errors.As(err, &mErr):
		middleware.WriteError(w, http.StatusUnprocessableEntity, "Could not understand the request. Please rephrase and try again")
	case errors.Is(err, ledger.ErrNotFound):
		middleware.WriteError(w, http.StatusBadRequest, "No matching transactions found")
	case errors.As(err, &oErr):
		middleware.WriteError(w, http.StatusInternalServerError, "Language service unavailable")
	case errors.As(err, &bErr), errors.As(err, &sErr):
		middleware.WriteError(w, http.StatusInternalServerError, "Ledger backend unavailable")
	default:
		middleware.WriteError(w, http.StatusInternalServerError, "Internal server error")
	}
}
