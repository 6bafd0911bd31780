// Package reports builds the accounts-receivable (cartera) aging report.
package reports

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/ukydev/fleet-ops/internal/finance"
	"github.com/ukydev/fleet-ops/internal/models"
)

// UnknownClient labels trips whose client has no name on record.
const UnknownClient = "Sin cliente"

type bucket struct {
	trips                                                    int
	billed, collected, outstanding, current, d30, d60, d61up decimal.Decimal
}

func (b *bucket) add(trip models.Trip, now time.Time) {
	tariff := finance.Amount(trip.Tariff)
	paid := finance.Amount(trip.AmountPaid)
	owed := tariff.Sub(paid)
	if owed.IsNegative() {
		owed = decimal.Zero
	}

	b.trips++
	b.billed = b.billed.Add(tariff)
	b.collected = b.collected.Add(paid)
	b.outstanding = b.outstanding.Add(owed)

	switch days := DaysOverdue(trip.PaymentDueAt, now); {
	case days <= 0:
		b.current = b.current.Add(owed)
	case days <= 30:
		b.d30 = b.d30.Add(owed)
	case days <= 60:
		b.d60 = b.d60.Add(owed)
	default:
		b.d61up = b.d61up.Add(owed)
	}
}

func (b *bucket) row(id, name string) models.CarteraRow {
	return models.CarteraRow{
		ClientID:    id,
		ClientName:  name,
		Trips:       b.trips,
		Billed:      b.billed.Round(2).InexactFloat64(),
		Collected:   b.collected.Round(2).InexactFloat64(),
		Outstanding: b.outstanding.Round(2).InexactFloat64(),
		Current:     b.current.Round(2).InexactFloat64(),
		Overdue30:   b.d30.Round(2).InexactFloat64(),
		Overdue60:   b.d60.Round(2).InexactFloat64(),
		Overdue61:   b.d61up.Round(2).InexactFloat64(),
	}
}

// DaysOverdue returns the days elapsed since due, zero when not yet due.
// Any part of a day counts as a full day.
func DaysOverdue(due, now time.Time) int {
	if !now.After(due) {
		return 0
	}
	return int(math.Ceil(now.Sub(due).Hours() / 24))
}

// BuildCartera groups receivable trips by client. Cancelled and fully paid
// trips are skipped. Rows are ordered by outstanding balance, largest first,
// and Totals is the column-wise sum of the rows.
func BuildCartera(trips []models.Trip, names map[string]string, now time.Time) models.CarteraReport {
	byClient := map[string]*bucket{}
	for _, t := range trips {
		if t.Status == models.TripCancelled || t.PaymentStatus == models.PaymentPaid {
			continue
		}
		b, ok := byClient[t.ClientID]
		if !ok {
			b = &bucket{}
			byClient[t.ClientID] = b
		}
		b.add(t, now)
	}

	rows := make([]models.CarteraRow, 0, len(byClient))
	for id, b := range byClient {
		name := names[id]
		if name == "" {
			name = UnknownClient
		}
		rows = append(rows, b.row(id, name))
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Outstanding != rows[j].Outstanding {
			return rows[i].Outstanding > rows[j].Outstanding
		}
		return rows[i].ClientName < rows[j].ClientName
	})

	return models.CarteraReport{
		GeneratedAt: now,
		Rows:        rows,
		Totals:      Totals(rows),
	}
}

// Totals sums every numeric column of the rows exactly.
func Totals(rows []models.CarteraRow) models.CarteraRow {
	var trips int
	cols := make([]decimal.Decimal, 7)
	for _, r := range rows {
		trips += r.Trips
		for i, v := range []float64{r.Billed, r.Collected, r.Outstanding, r.Current, r.Overdue30, r.Overdue60, r.Overdue61} {
			cols[i] = cols[i].Add(finance.Amount(v))
		}
	}
	return models.CarteraRow{
		ClientName:  "TOTAL",
		Trips:       trips,
		Billed:      cols[0].InexactFloat64(),
		Collected:   cols[1].InexactFloat64(),
		Outstanding: cols[2].InexactFloat64(),
		Current:     cols[3].InexactFloat64(),
		Overdue30:   cols[4].InexactFloat64(),
		Overdue60:   cols[5].InexactFloat64(),
		Overdue61:   cols[6].InexactFloat64(),
	}
}
