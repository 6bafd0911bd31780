// Package tripview is the client-side model of the trip detail screen:
// the reconciled view of one trip and the controller that drives its
// lifecycle against the API.
package tripview

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/ukydev/fleet-ops/internal/finance"
	"github.com/ukydev/fleet-ops/internal/models"
)

// ViewModel is a trip with its sub-ledgers and derived figures. It is
// rebuilt from server data after every change and never edited in place.
type ViewModel struct {
	Trip           models.Trip
	Expenses       []models.Expense
	DriverPayments []models.DriverPayment
	Finance        finance.Reconciliation
	CanWrite       bool
}

// NewViewModel reconciles the trip with its expenses and driver payments.
func NewViewModel(trip models.Trip, expenses []models.Expense, payments []models.DriverPayment, canWrite bool) ViewModel {
	return ViewModel{
		Trip:           trip,
		Expenses:       expenses,
		DriverPayments: payments,
		Finance:        finance.Reconcile(trip, expenses, payments),
		CanWrite:       canWrite,
	}
}

func (v ViewModel) CanStart() bool {
	return v.CanWrite && v.Trip.Status == models.TripPlanned
}

func (v ViewModel) CanComplete() bool {
	return v.CanWrite && v.Trip.Status == models.TripInProgress
}

func (v ViewModel) CanCancel() bool {
	return v.CanWrite && !v.Trip.Status.IsTerminal()
}

func (v ViewModel) CanRegisterPayment() bool {
	return v.CanWrite && v.Trip.PaymentStatus != models.PaymentPaid
}

func (v ViewModel) CanAddExpense() bool {
	return v.CanWrite && v.Trip.Status.AcceptsExpenses()
}

// Income, Costs, Profit and Margin are the rendered summary lines.
func (v ViewModel) Income() string { return finance.Money(v.Finance.Summary.Income) }
func (v ViewModel) Costs() string  { return finance.Money(v.Finance.Summary.Costs) }
func (v ViewModel) Profit() string { return finance.Money(v.Finance.Summary.Profit) }
func (v ViewModel) Margin() string { return finance.Percent(v.Finance.Summary.Margin) }

// PaymentNotice describes the balance left after paying amount: empty
// when the payment settles the trip.
func (v ViewModel) PaymentNotice(amount decimal.Decimal) string {
	rest := finance.RemainingAfter(v.Finance.Client, amount)
	if rest.IsZero() {
		return ""
	}
	return fmt.Sprintf("El cliente quedará debiendo $%s", finance.Money(rest))
}
