// Package export renders transactions for external consumers: CSV
// downloads and the Google Sheets mirror.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"duit/internal/core"
)

var csvHeader = []string{"date", "note", "category", "type", "wallet", "amount"}

// WriteCSV streams the transactions as CSV, one row per record, in the
// order given. Amounts are decimal strings; a dateless record gets an
// empty date cell.
func WriteCSV(w io.Writer, txs []core.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, tx := range txs {
		row := []string{
			tx.Date.Key(),
			tx.Note,
			tx.Category,
			string(tx.EffectiveType()),
			string(tx.EffectiveWallet()),
			tx.Amount.Decimal(),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// CSVFilename names a download after the moment it was generated.
func CSVFilename(now time.Time) string {
	return "transactions-" + now.UTC().Format("2006-01-02") + ".csv"
}
