package report

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"trustchain/internal/ledger"
)

// CSVFilename is the download name for the ledger export.
const CSVFilename = "trustchain_ledger.csv"

var csvHeader = []string{"sequence", "beneficiary_id", "kind", "amount", "timestamp", "note"}

// WriteCSV writes one row per entry in ledger order. Marker entries have an
// empty amount column.
func WriteCSV(w io.Writer, entries []ledger.Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, e := range entries {
		amount := ""
		if e.Amount.Valid {
			amount = e.Amount.Decimal.StringFixed(2)
		}
		row := []string{
			strconv.FormatInt(e.Seq, 10),
			e.BeneficiaryID.String(),
			string(e.Kind),
			amount,
			e.Timestamp.UTC().Format(time.RFC3339),
			e.Note,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
