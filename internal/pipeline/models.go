package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParsedResult is the tagged union the oracle produces: a single
// transaction command, an analytics query, or a batch of transactions.
// Field values stay loosely typed (any) until validation: the oracle is
// untrusted, so the validator owns every type and membership check and can
// report the offending value verbatim.
type ParsedResult interface {
	// Raw returns the JSON the result was decoded from, for echo responses.
	Raw() json.RawMessage
	isParsedResult()
}

// ParsedTransaction is a single ADD/UPDATE/DELETE command.
type ParsedTransaction struct {
	Store          any
	Type           any
	Operation      any
	Amount         any
	OriginalAmount any
	Description    any
	Category       any
	Date           any
	Confidence     any

	raw json.RawMessage
}

func (t *ParsedTransaction) Raw() json.RawMessage { return t.raw }
func (t *ParsedTransaction) isParsedResult()      {}

// AnalyticsQuery is a read-only metrics request.
type AnalyticsQuery struct {
	Store      any
	Metric     any
	Date       any
	Timeframe  any
	Confidence any

	raw json.RawMessage
}

func (q *AnalyticsQuery) Raw() json.RawMessage { return q.raw }
func (q *AnalyticsQuery) isParsedResult()      {}

// BatchResult groups several transaction commands parsed from one input.
type BatchResult struct {
	Transactions []*ParsedTransaction
	Confidence   any

	raw json.RawMessage
}

func (b *BatchResult) Raw() json.RawMessage { return b.raw }
func (b *BatchResult) isParsedResult()      {}

// NewAnalyticsQuery builds a query directly, bypassing the oracle. Used by
// the analytics endpoint where the dashboard already knows the shape.
func NewAnalyticsQuery(store, metric, date, timeframe string) *AnalyticsQuery {
	q := &AnalyticsQuery{Metric: metric, Timeframe: timeframe, Confidence: 1.0}
	if store != "" {
		q.Store = store
	}
	if date != "" {
		q.Date = date
	}
	return q
}

// DecodeResult deserializes oracle output (or an equivalent caller-supplied
// body) into the tagged union. The discriminator is the "type" field:
// "ANALYTICS" and "BATCH" are explicit tags; anything else is treated as a
// single transaction, whose own "type" carries REVENUE/EXPENSE. Non-object
// shapes fail closed as malformed.
func DecodeResult(data []byte) (ParsedResult, error) {
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, &MalformedResponseError{Raw: string(data), Err: err}
	}

	obj, ok := generic.(map[string]any)
	if !ok {
		return nil, &MalformedResponseError{Raw: string(data), Err: fmt.Errorf("output is %T, want a JSON object", generic)}
	}

	raw := json.RawMessage(data)
	switch obj["type"] {
	case "ANALYTICS":
		return &AnalyticsQuery{
			Store:      obj["store"],
			Metric:     obj["metric"],
			Date:       obj["date"],
			Timeframe:  obj["timeframe"],
			Confidence: obj["confidence"],
			raw:        raw,
		}, nil
	case "BATCH":
		return decodeBatch(obj, raw)
	default:
		return decodeTransaction(obj, raw), nil
	}
}

func decodeTransaction(obj map[string]any, raw json.RawMessage) *ParsedTransaction {
	return &ParsedTransaction{
		Store:          obj["store"],
		Type:           obj["type"],
		Operation:      obj["operation"],
		Amount:         obj["amount"],
		OriginalAmount: obj["originalAmount"],
		Description:    obj["description"],
		Category:       obj["category"],
		Date:           obj["date"],
		Confidence:     obj["confidence"],
		raw:            raw,
	}
}

func decodeBatch(obj map[string]any, raw json.RawMessage) (*BatchResult, error) {
	listAny, ok := obj["transactions"]
	if !ok {
		return nil, &MalformedResponseError{Raw: string(raw), Err: fmt.Errorf("batch result missing transactions array")}
	}
	list, ok := listAny.([]any)
	if !ok {
		return nil, &MalformedResponseError{Raw: string(raw), Err: fmt.Errorf("batch transactions is %T, want an array", listAny)}
	}

	batch := &BatchResult{
		Transactions: make([]*ParsedTransaction, 0, len(list)),
		Confidence:   obj["confidence"],
		raw:          raw,
	}
	for i, item := range list {
		txObj, ok := item.(map[string]any)
		if !ok {
			return nil, &MalformedResponseError{Raw: string(raw), Err: fmt.Errorf("batch element %d is %T, want an object", i, item)}
		}
		itemRaw, _ := json.Marshal(txObj)
		batch.Transactions = append(batch.Transactions, decodeTransaction(txObj, itemRaw))
	}
	return batch, nil
}

// stringField returns v as a non-empty string, if it is one.
func stringField(v any) (string, bool) {
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

// numberField returns v as a float64, if it is a JSON number.
func numberField(v any) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}

// Typed accessors for use after validation has passed.

func (t *ParsedTransaction) StoreName() string {
	s, _ := stringField(t.Store)
	return s
}

func (t *ParsedTransaction) TypeName() string {
	s, _ := stringField(t.Type)
	return s
}

func (t *ParsedTransaction) OperationName() string {
	s, _ := stringField(t.Operation)
	return s
}

func (t *ParsedTransaction) AmountValue() (float64, bool) {
	return numberField(t.Amount)
}

func (t *ParsedTransaction) DateExpr() (string, bool) {
	return stringField(t.Date)
}

func (t *ParsedTransaction) CategoryName() string {
	s, _ := stringField(t.Category)
	return s
}

func (t *ParsedTransaction) DescriptionText() string {
	s, _ := stringField(t.Description)
	return s
}

func (q *AnalyticsQuery) StoreName() string {
	s, _ := stringField(q.Store)
	return s
}

func (q *AnalyticsQuery) MetricName() string {
	s, _ := stringField(q.Metric)
	return s
}

func (q *AnalyticsQuery) DateExpr() string {
	s, _ := stringField(q.Date)
	return s
}

func (q *AnalyticsQuery) TimeframeName() string {
	s, _ := stringField(q.Timeframe)
	return s
}
