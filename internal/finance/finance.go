// Package finance computes the derived money figures of a trip: the
// income/expense/profit summary and the balance owed to the driver.
// Accumulation is exact; rounding happens only when a figure is rendered.
package finance

import (
	"math"

	"github.com/shopspring/decimal"
	"github.com/ukydev/fleet-ops/internal/models"
)

var hundred = decimal.NewFromInt(100)

// Summary is the three-line financial view of a trip.
type Summary struct {
	Income decimal.Decimal `json:"ingreso"`
	Costs  decimal.Decimal `json:"gastos"`
	Profit decimal.Decimal `json:"ganancia"`
	// Margin is nil when the tariff is zero.
	Margin *decimal.Decimal `json:"rentabilidad"`
}

// DriverBalance breaks down what is owed to the driver for one trip.
type DriverBalance struct {
	Agreed      decimal.Decimal `json:"pactado"`
	Paid        decimal.Decimal `json:"pagado"`
	Outstanding decimal.Decimal `json:"pendiente"`
}

// ClientBalance breaks down what the client owes for one trip.
type ClientBalance struct {
	Tariff      decimal.Decimal      `json:"tarifa"`
	Paid        decimal.Decimal      `json:"pagado"`
	Outstanding decimal.Decimal      `json:"pendiente"`
	Status      models.PaymentStatus `json:"estado"`
}

// Reconciliation bundles every derived figure of a trip.
type Reconciliation struct {
	Summary Summary       `json:"resumen"`
	Driver  DriverBalance `json:"chofer"`
	Client  ClientBalance `json:"cliente"`
}

// TripDetail is a trip with its sub-ledgers and the derived figures.
type TripDetail struct {
	Trip           models.Trip            `json:"viaje"`
	Expenses       []models.Expense       `json:"gastos"`
	DriverPayments []models.DriverPayment `json:"pagosChofer"`
	Finance        Reconciliation         `json:"finanzas"`
}

// Amount converts a stored amount to a decimal, treating NaN and
// infinities as zero so a malformed value never poisons a sum.
func Amount(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}

func optionalAmount(v *float64) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return Amount(*v)
}

// PaidToDriver sums the PAGADO driver payments linked to the trip.
func PaidToDriver(tripID int64, payments []models.DriverPayment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		if p.Status != models.DriverPaymentPaid || !p.LinkedTo(tripID) {
			continue
		}
		total = total.Add(Amount(p.Amount))
	}
	return total
}

// ExpenseTotal sums the amounts of the expenses.
func ExpenseTotal(expenses []models.Expense) decimal.Decimal {
	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(Amount(e.Amount))
	}
	return total
}

// Summarize computes ingreso, gastos and ganancia for a trip.
// Payments not linked to the trip or not yet PAGADO are ignored.
func Summarize(trip models.Trip, expenses []models.Expense, payments []models.DriverPayment) Summary {
	income := Amount(trip.Tariff)
	costs := ExpenseTotal(expenses).Add(PaidToDriver(trip.ID, payments))
	profit := income.Sub(costs)

	return Summary{
		Income: income,
		Costs:  costs,
		Profit: profit,
		Margin: Margin(profit, income),
	}
}

// Margin returns profit / income * 100, or nil when income is zero.
func Margin(profit, income decimal.Decimal) *decimal.Decimal {
	if income.IsZero() {
		return nil
	}
	m := profit.Div(income).Mul(hundred)
	return &m
}

// Driver computes the balance owed to the driver for the trip. A trip
// without an agreed per-trip amount (salaried driver) has nothing agreed.
func Driver(trip models.Trip, payments []models.DriverPayment) DriverBalance {
	agreed := optionalAmount(trip.DriverPayAmount)
	paid := PaidToDriver(trip.ID, payments)
	return DriverBalance{
		Agreed:      agreed,
		Paid:        paid,
		Outstanding: agreed.Sub(paid),
	}
}

// Client computes the client balance. The status is the one the
// server returned; it is displayed, not derived, on the client side.
func Client(trip models.Trip) ClientBalance {
	tariff := Amount(trip.Tariff)
	paid := Amount(trip.AmountPaid)
	outstanding := tariff.Sub(paid)
	if outstanding.IsNegative() {
		outstanding = decimal.Zero
	}
	return ClientBalance{
		Tariff:      tariff,
		Paid:        paid,
		Outstanding: outstanding,
		Status:      trip.PaymentStatus,
	}
}

// Reconcile computes every derived figure of a trip.
func Reconcile(trip models.Trip, expenses []models.Expense, payments []models.DriverPayment) Reconciliation {
	return Reconciliation{
		Summary: Summarize(trip, expenses, payments),
		Driver:  Driver(trip, payments),
		Client:  Client(trip),
	}
}
