// Package export renders report payloads as CSV files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/ukydev/fleet-ops/internal/finance"
	"github.com/ukydev/fleet-ops/internal/models"
)

// CarteraHeader is the first line of the cartera CSV.
var CarteraHeader = []string{
	"Cliente", "Viajes", "Facturado", "Cobrado", "Saldo",
	"Por vencer", "Vencido 1-30", "Vencido 31-60", "Vencido +60",
}

// TotalLabel marks the footer row.
const TotalLabel = "TOTAL"

func moneyColumns(r models.CarteraRow) []float64 {
	return []float64{r.Billed, r.Collected, r.Outstanding, r.Current, r.Overdue30, r.Overdue60, r.Overdue61}
}

// CarteraCSV writes the header, one line per client and a TOTAL line.
// Each amount is rounded to cents before it is written and the TOTAL
// line sums the written values, so re-adding the data rows of the file
// reproduces the footer exactly.
func CarteraCSV(w io.Writer, rows []models.CarteraRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CarteraHeader); err != nil {
		return err
	}

	totals := make([]decimal.Decimal, 7)
	trips := 0
	for _, r := range rows {
		record := []string{r.ClientName, strconv.Itoa(r.Trips)}
		for i, v := range moneyColumns(r) {
			cell := finance.Amount(v).Round(2)
			totals[i] = totals[i].Add(cell)
			record = append(record, finance.Money(cell))
		}
		trips += r.Trips
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	footer := []string{TotalLabel, strconv.Itoa(trips)}
	for _, t := range totals {
		footer = append(footer, finance.Money(t))
	}
	if err := cw.Write(footer); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// CarteraFilename names an export by date.
func CarteraFilename(at time.Time) string {
	return fmt.Sprintf("cartera_%s.csv", at.Format("2006-01-02"))
}
