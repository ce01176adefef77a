package export

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"duit/internal/core"
)

// Mirror is the outbound port the sync worker writes through. The
// in-memory implementation backs tests.
type Mirror interface {
	UpsertTransaction(ctx context.Context, tx core.Transaction) error
	RemoveTransaction(ctx context.Context, id string) error
}

// SheetsConfig carries everything needed to reach one spreadsheet tab.
type SheetsConfig struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON []byte
}

func (c SheetsConfig) validate() error {
	if c.SpreadsheetID == "" {
		return errors.New("missing spreadsheet id")
	}
	if c.SheetName == "" {
		return errors.New("missing sheet name")
	}
	if len(c.CredentialsJSON) == 0 {
		return errors.New("missing service account credentials")
	}
	return nil
}

// SheetsMirror mirrors transactions into a spreadsheet tab. Column A
// holds the transaction id so rows can be found again on update and
// delete.
type SheetsMirror struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ Mirror = (*SheetsMirror)(nil)

func NewSheetsMirror(ctx context.Context, cfg SheetsConfig) (*SheetsMirror, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(cfg.CredentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &SheetsMirror{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     cfg.SheetName,
	}, nil
}

func rowValues(tx core.Transaction) []any {
	return []any{
		tx.ID,
		tx.Date.Key(),
		tx.Note,
		tx.Category,
		string(tx.EffectiveType()),
		string(tx.EffectiveWallet()),
		tx.Amount.Decimal(),
	}
}

// UpsertTransaction rewrites the row holding the transaction id, or
// appends a new one when the id is not on the sheet yet.
func (m *SheetsMirror) UpsertTransaction(ctx context.Context, tx core.Transaction) error {
	row, err := m.findRow(ctx, tx.ID)
	if err != nil {
		return err
	}

	vr := &gsheet.ValueRange{Values: [][]any{rowValues(tx)}}
	if row > 0 {
		rng := fmt.Sprintf("%s!A%d:G%d", m.sheetName, row, row)
		_, err = m.svc.Spreadsheets.Values.Update(m.spreadsheetID, rng, vr).
			ValueInputOption("USER_ENTERED").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("update row %d: %w", row, err)
		}
		return nil
	}

	rng := fmt.Sprintf("%s!A:G", m.sheetName)
	_, err = m.svc.Spreadsheets.Values.Append(m.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append row: %w", err)
	}
	return nil
}

// RemoveTransaction deletes the row holding the id. A missing row is
// not an error: the delete may race a never-synced create.
func (m *SheetsMirror) RemoveTransaction(ctx context.Context, id string) error {
	row, err := m.findRow(ctx, id)
	if err != nil {
		return err
	}
	if row == 0 {
		return nil
	}

	sheetID, err := m.sheetID(ctx)
	if err != nil {
		return err
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(row - 1),
					EndIndex:   int64(row),
				},
			},
		}},
	}
	if _, err := m.svc.Spreadsheets.BatchUpdate(m.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d: %w", row, err)
	}
	return nil
}

// findRow returns the 1-based row whose column A equals id, or 0.
func (m *SheetsMirror) findRow(ctx context.Context, id string) (int, error) {
	rng := fmt.Sprintf("%s!A:A", m.sheetName)
	resp, err := m.svc.Spreadsheets.Values.Get(m.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read id column: %w", err)
	}
	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == id {
			return i + 1, nil
		}
	}
	return 0, nil
}

func (m *SheetsMirror) sheetID(ctx context.Context) (int64, error) {
	ss, err := m.svc.Spreadsheets.Get(m.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, sheet := range ss.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == m.sheetName {
			return sheet.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found", m.sheetName)
}
