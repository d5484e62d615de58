// Package sheets implements the ledger backend on top of a Google
// spreadsheet: one worksheet per store, one row per transaction, columns
// {ID, Date, Type, Amount, Description, Category}.
package sheets

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/calmzest/waterdash/internal/domain"
	"github.com/calmzest/waterdash/internal/ledger"
)

var headerRow = []interface{}{"ID", "Date", "Type", "Amount", "Description", "Category"}

// Backend talks to the Google Sheets API. Worksheets and their header rows
// are provisioned lazily on first access per store and memoized for the
// lifetime of the backend.
type Backend struct {
	svc           *sheets.Service
	spreadsheetID string
	log           zerolog.Logger

	mu    sync.Mutex
	ready map[domain.Store]int64 // store -> worksheet ID once bootstrapped
}

// New creates a Backend for the given spreadsheet. Credentials follow the
// usual Google API resolution order unless overridden via opts.
func New(ctx context.Context, spreadsheetID string, log zerolog.Logger, opts ...option.ClientOption) (*Backend, error) {
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets.New: creating service: %w", err)
	}
	return &Backend{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		log:           log,
		ready:         make(map[domain.Store]int64),
	}, nil
}

// ensureWorksheet creates the store's worksheet and header row if missing
// and returns the worksheet ID.
func (b *Backend) ensureWorksheet(ctx context.Context, store domain.Store) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if id, ok := b.ready[store]; ok {
		return id, nil
	}

	doc, err := b.svc.Spreadsheets.Get(b.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return 0, &ledger.BackendUnavailableError{Op: "get spreadsheet", Err: err}
	}

	var sheetID int64 = -1
	for _, sh := range doc.Sheets {
		if sh.Properties != nil && sh.Properties.Title == string(store) {
			sheetID = sh.Properties.SheetId
			break
		}
	}

	if sheetID == -1 {
		reply, err := b.svc.Spreadsheets.BatchUpdate(b.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
			Requests: []*sheets.Request{{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{Title: string(store)},
				},
			}},
		}).Context(ctx).Do()
		if err != nil {
			return 0, &ledger.SchemaError{Store: store, Err: fmt.Errorf("adding worksheet: %w", err)}
		}
		if len(reply.Replies) == 0 || reply.Replies[0].AddSheet == nil || reply.Replies[0].AddSheet.Properties == nil {
			return 0, &ledger.SchemaError{Store: store, Err: fmt.Errorf("add worksheet returned no properties")}
		}
		sheetID = reply.Replies[0].AddSheet.Properties.SheetId
		b.log.Info().Str("store", string(store)).Msg("Provisioned ledger worksheet")
	}

	header, err := b.svc.Spreadsheets.Values.Get(b.spreadsheetID, b.rangeFor(store, "A1:F1")).Context(ctx).Do()
	if err != nil {
		return 0, &ledger.SchemaError{Store: store, Err: fmt.Errorf("reading header row: %w", err)}
	}
	if len(header.Values) == 0 || len(header.Values[0]) == 0 {
		_, err := b.svc.Spreadsheets.Values.Update(b.spreadsheetID, b.rangeFor(store, "A1:F1"), &sheets.ValueRange{
			Values: [][]interface{}{headerRow},
		}).ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return 0, &ledger.SchemaError{Store: store, Err: fmt.Errorf("writing header row: %w", err)}
		}
	}

	b.ready[store] = sheetID
	return sheetID, nil
}

func (b *Backend) rangeFor(store domain.Store, cells string) string {
	// Titles with spaces ("South C", "Homa Bay") need quoting in A1 notation.
	return fmt.Sprintf("'%s'!%s", store, cells)
}

func (b *Backend) Rows(ctx context.Context, store domain.Store) ([]domain.Transaction, error) {
	rows, _, err := b.dataRows(ctx, store)
	return rows, err
}

// dataRows reads all data rows for a store and returns them alongside their
// zero-based sheet row indices (header row = index 0).
func (b *Backend) dataRows(ctx context.Context, store domain.Store) ([]domain.Transaction, []int64, error) {
	if _, err := b.ensureWorksheet(ctx, store); err != nil {
		return nil, nil, err
	}

	resp, err := b.svc.Spreadsheets.Values.Get(b.spreadsheetID, b.rangeFor(store, "A2:F")).Context(ctx).Do()
	if err != nil {
		return nil, nil, &ledger.BackendUnavailableError{Op: "read rows", Err: err}
	}

	txs := make([]domain.Transaction, 0, len(resp.Values))
	indices := make([]int64, 0, len(resp.Values))
	for i, cells := range resp.Values {
		tx, ok := b.decodeRow(store, cells)
		if !ok {
			continue
		}
		txs = append(txs, tx)
		indices = append(indices, int64(i)+1)
	}
	return txs, indices, nil
}

func (b *Backend) decodeRow(store domain.Store, cells []interface{}) (domain.Transaction, bool) {
	if len(cells) < 4 {
		return domain.Transaction{}, false
	}

	date, err := civil.ParseDate(cellString(cells[1]))
	if err != nil {
		b.log.Warn().Str("store", string(store)).Str("date", cellString(cells[1])).Msg("Skipping row with unparseable date")
		return domain.Transaction{}, false
	}
	amount, err := strconv.ParseFloat(cellString(cells[3]), 64)
	if err != nil {
		b.log.Warn().Str("store", string(store)).Str("amount", cellString(cells[3])).Msg("Skipping row with unparseable amount")
		return domain.Transaction{}, false
	}

	tx := domain.Transaction{
		ID:     cellString(cells[0]),
		Date:   date,
		Type:   domain.TransactionType(cellString(cells[2])),
		Amount: amount,
	}
	if len(cells) > 4 {
		tx.Description = cellString(cells[4])
	}
	if len(cells) > 5 {
		tx.Category = cellString(cells[5])
	}
	return tx, true
}

func cellString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func (b *Backend) Append(ctx context.Context, store domain.Store, rec domain.Transaction) error {
	if _, err := b.ensureWorksheet(ctx, store); err != nil {
		return err
	}

	_, err := b.svc.Spreadsheets.Values.Append(b.spreadsheetID, b.rangeFor(store, "A:F"), &sheets.ValueRange{
		Values: [][]interface{}{{
			rec.ID,
			rec.Date.String(),
			string(rec.Type),
			rec.Amount,
			rec.Description,
			rec.Category,
		}},
	}).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return &ledger.BackendUnavailableError{Op: "append row", Err: err}
	}
	return nil
}

func (b *Backend) UpdateAmount(ctx context.Context, store domain.Store, key ledger.MatchKey, amount float64) (domain.Transaction, error) {
	rows, indices, err := b.dataRows(ctx, store)
	if err != nil {
		return domain.Transaction{}, err
	}

	for i, tx := range rows {
		if tx.Date != key.Date || tx.Type != key.Type {
			continue
		}
		cell := fmt.Sprintf("D%d", indices[i]+1)
		_, err := b.svc.Spreadsheets.Values.Update(b.spreadsheetID, b.rangeFor(store, cell), &sheets.ValueRange{
			Values: [][]interface{}{{amount}},
		}).ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return domain.Transaction{}, &ledger.BackendUnavailableError{Op: "update amount", Err: err}
		}
		tx.Amount = amount
		return tx, nil
	}
	return domain.Transaction{}, ledger.ErrNotFound
}

func (b *Backend) Delete(ctx context.Context, store domain.Store, key ledger.MatchKey) (int, error) {
	sheetID, err := b.ensureWorksheet(ctx, store)
	if err != nil {
		return 0, err
	}

	rows, indices, err := b.dataRows(ctx, store)
	if err != nil {
		return 0, err
	}

	var doomed []int64
	for i, tx := range rows {
		if tx.Date == key.Date && (key.Type == "" || tx.Type == key.Type) {
			doomed = append(doomed, indices[i])
		}
	}
	if len(doomed) == 0 {
		return 0, ledger.ErrNotFound
	}

	// Delete bottom-up so earlier deletions do not shift pending indices.
	sort.Slice(doomed, func(i, j int) bool { return doomed[i] > doomed[j] })

	requests := make([]*sheets.Request, 0, len(doomed))
	for _, idx := range doomed {
		requests = append(requests, &sheets.Request{
			DeleteDimension: &sheets.DeleteDimensionRequest{
				Range: &sheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: idx,
					EndIndex:   idx + 1,
				},
			},
		})
	}

	_, err = b.svc.Spreadsheets.BatchUpdate(b.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}).Context(ctx).Do()
	if err != nil {
		return 0, &ledger.BackendUnavailableError{Op: "delete rows", Err: err}
	}
	return len(doomed), nil
}

var _ ledger.Backend = (*Backend)(nil)
