package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/ukydev/fleet-ops/internal/apiclient"
	"github.com/ukydev/fleet-ops/internal/finance"
	"github.com/ukydev/fleet-ops/internal/models"
	"github.com/ukydev/fleet-ops/internal/tripview"
)

func newTripsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:               "viajes",
		Aliases:           []string{"trips"},
		Short:             "Consultar y operar viajes",
		PersistentPreRunE: loggedIn(a),
	}
	cmd.AddCommand(
		newTripsListCmd(a),
		newTripShowCmd(a),
		newTripStartCmd(a),
		newTripCompleteCmd(a),
		newTripCancelCmd(a),
		newTripPayCmd(a),
		newTripExpenseCmd(a),
	)
	return cmd
}

func parseTripID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("identificador de viaje inválido: %s", s)
	}
	return id, nil
}

func parseWhen(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("fecha inválida: %s", s)
}

func newTripsListCmd(a *app) *cobra.Command {
	var f models.TripFilter
	var status string
	cmd := &cobra.Command{
		Use:   "listar",
		Short: "Listar viajes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f.Status = models.TripStatus(status)
			page, err := a.client.ListTrips(cmd.Context(), f)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tORIGEN\tDESTINO\tSALIDA\tESTADO\tPAGO\tTARIFA")
			for _, t := range page.Trips {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n", t.ID, t.Origin, t.Destination,
					t.DepartureAt.Format("2006-01-02"), t.Status, t.PaymentStatus, finance.Money(finance.Amount(t.Tariff)))
			}
			tw.Flush()
			fmt.Fprintf(a.out, "Página %d de %d (%d viajes)\n", page.Page.Page, page.Page.TotalPages, page.Page.Total)
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "estado", "", "PLANIFICADO, EN_CURSO, COMPLETADO o CANCELADO")
	cmd.Flags().StringVar(&f.ClientID, "cliente", "", "id de cliente")
	cmd.Flags().StringVar(&f.DriverID, "chofer", "", "id de chofer")
	cmd.Flags().StringVar(&f.Search, "buscar", "", "texto en origen o destino")
	cmd.Flags().IntVar(&f.Page, "pagina", 1, "página")
	cmd.Flags().IntVar(&f.Limit, "limite", 20, "viajes por página")
	return cmd
}

// controller loads the detail view of the trip named by args[0].
func (a *app) controller(cmd *cobra.Command, arg string) (*tripview.Controller, error) {
	id, err := parseTripID(arg)
	if err != nil {
		return nil, err
	}
	c := tripview.NewController(a.client, a.session, a, id, nil)
	if _, err := c.Load(cmd.Context()); err != nil {
		return nil, err
	}
	return c, nil
}

func (a *app) printTrip(v tripview.ViewModel) {
	t := v.Trip
	fmt.Fprintf(a.out, "Viaje #%d  %s -> %s\n", t.ID, t.Origin, t.Destination)
	fmt.Fprintf(a.out, "Estado: %s   Pago cliente: %s\n", t.Status, t.PaymentStatus)
	fmt.Fprintf(a.out, "Salida: %s   Vence pago: %s\n", t.DepartureAt.Format("2006-01-02 15:04"), t.PaymentDueAt.Format("2006-01-02"))
	if t.ActualArrival != nil && t.ActualKm != nil {
		fmt.Fprintf(a.out, "Llegada: %s   Km reales: %.1f\n", t.ActualArrival.Format("2006-01-02 15:04"), *t.ActualKm)
	}

	fmt.Fprintln(a.out)
	fmt.Fprintf(a.out, "Ingreso:       %s\n", v.Income())
	fmt.Fprintf(a.out, "Gastos:        %s\n", v.Costs())
	fmt.Fprintf(a.out, "Ganancia:      %s\n", v.Profit())
	fmt.Fprintf(a.out, "Rentabilidad:  %s\n", v.Margin())

	c := v.Finance.Client
	fmt.Fprintf(a.out, "Cliente: pagado %s de %s, pendiente %s\n", finance.Money(c.Paid), finance.Money(c.Tariff), finance.Money(c.Outstanding))
	d := v.Finance.Driver
	if t.DriverPayAmount != nil {
		fmt.Fprintf(a.out, "Chofer: pactado %s, pagado %s, pendiente %s\n", finance.Money(d.Agreed), finance.Money(d.Paid), finance.Money(d.Outstanding))
	}

	if len(v.Expenses) > 0 {
		fmt.Fprintln(a.out)
		tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "FECHA\tTIPO\tMONTO\tMETODO\tCOMPROBANTE")
		for _, e := range v.Expenses {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.Date.Format("2006-01-02"), e.Type,
				finance.Money(finance.Amount(e.Amount)), e.PaymentMethod, e.ReceiptPath)
		}
		tw.Flush()
	}
}

func newTripShowCmd(a *app) *cobra.Command {
	var server bool
	cmd := &cobra.Command{
		Use:   "ver ID",
		Short: "Ver el detalle y el resumen financiero de un viaje",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.controller(cmd, args[0])
			if err != nil {
				return err
			}
			v, _ := c.View()
			a.printTrip(v)
			if !server {
				return nil
			}
			detail, err := a.client.TripSummary(cmd.Context(), v.Trip.ID)
			if err != nil {
				return err
			}
			a.compareSummary(v, detail.Finance)
			return nil
		},
	}
	cmd.Flags().BoolVar(&server, "servidor", false, "contrastar con el resumen calculado por el servidor")
	return cmd
}

// compareSummary prints the server figures and flags any that differ
// from the ones computed locally.
func (a *app) compareSummary(v tripview.ViewModel, server finance.Reconciliation) {
	local := v.Finance
	lines := []struct {
		label         string
		local, remote string
	}{
		{"Ingreso", finance.Money(local.Summary.Income), finance.Money(server.Summary.Income)},
		{"Gastos", finance.Money(local.Summary.Costs), finance.Money(server.Summary.Costs)},
		{"Ganancia", finance.Money(local.Summary.Profit), finance.Money(server.Summary.Profit)},
		{"Rentabilidad", finance.Percent(local.Summary.Margin), finance.Percent(server.Summary.Margin)},
		{"Saldo cliente", finance.Money(local.Client.Outstanding), finance.Money(server.Client.Outstanding)},
		{"Saldo chofer", finance.Money(local.Driver.Outstanding), finance.Money(server.Driver.Outstanding)},
	}

	fmt.Fprintln(a.out)
	fmt.Fprintln(a.out, "Resumen del servidor:")
	mismatches := 0
	for _, l := range lines {
		mark := ""
		if l.local != l.remote {
			mark = "  (local: " + l.local + ")"
			mismatches++
		}
		fmt.Fprintf(a.out, "  %-14s %s%s\n", l.label+":", l.remote, mark)
	}
	if mismatches > 0 {
		fmt.Fprintf(a.out, "Atención: %d cifras difieren del cálculo local\n", mismatches)
	}
}

// mutate loads the trip, applies fn and prints the refreshed view.
func (a *app) mutate(cmd *cobra.Command, arg, done string, fn func(*tripview.Controller) error) error {
	c, err := a.controller(cmd, arg)
	if err != nil {
		return err
	}
	defer c.Close()
	if err := fn(c); err != nil {
		return err
	}
	v, _ := c.View()
	fmt.Fprintln(a.out, done)
	a.printTrip(v)
	return nil
}

func newTripStartCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "iniciar ID",
		Short: "Iniciar un viaje planificado",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.mutate(cmd, args[0], "Viaje iniciado", func(c *tripview.Controller) error {
				return c.Start(cmd.Context())
			})
		},
	}
}

func newTripCompleteCmd(a *app) *cobra.Command {
	var arrival string
	var km float64
	cmd := &cobra.Command{
		Use:   "completar ID",
		Short: "Completar un viaje en curso",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			when, err := parseWhen(arrival)
			if err != nil {
				return err
			}
			var kmPtr *float64
			if cmd.Flags().Changed("km") {
				kmPtr = &km
			}
			return a.mutate(cmd, args[0], "Viaje completado", func(c *tripview.Controller) error {
				return c.Complete(cmd.Context(), when, kmPtr)
			})
		},
	}
	cmd.Flags().StringVar(&arrival, "llegada", "", "fecha de llegada real (2006-01-02 15:04)")
	cmd.Flags().Float64Var(&km, "km", 0, "kilómetros reales")
	return cmd
}

func newTripCancelCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cancelar ID",
		Short: "Cancelar un viaje",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.mutate(cmd, args[0], "Viaje cancelado", func(c *tripview.Controller) error {
				return c.Cancel(cmd.Context())
			})
		},
	}
}

func newTripPayCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pagar ID MONTO",
		Short: "Registrar un pago del cliente",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.mutate(cmd, args[0], "Pago registrado", func(c *tripview.Controller) error {
				before, _ := c.View()
				if err := c.RegisterPayment(cmd.Context(), args[1]); err != nil {
					return err
				}
				amount, _ := tripview.ParseAmount(args[1])
				if notice := before.PaymentNotice(amount); notice != "" {
					fmt.Fprintln(a.out, notice)
				}
				return nil
			})
		},
	}
	// MONTO may be negative; keep it positional so the amount check sees it.
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func newTripExpenseCmd(a *app) *cobra.Command {
	var (
		req     models.ExpenseRequest
		kind    string
		date    string
		receipt string
	)
	cmd := &cobra.Command{
		Use:   "gasto ID",
		Short: "Registrar un gasto del viaje",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Type = models.ExpenseType(kind)
			when, err := parseWhen(date)
			if err != nil {
				return err
			}
			req.Date = when

			var att *apiclient.Attachment
			if receipt != "" {
				f, err := os.Open(receipt)
				if err != nil {
					return fmt.Errorf("abrir comprobante: %w", err)
				}
				defer f.Close()
				att = &apiclient.Attachment{Filename: filepath.Base(receipt), Body: f}
			}
			return a.mutate(cmd, args[0], "Gasto registrado", func(c *tripview.Controller) error {
				return c.AddExpense(cmd.Context(), req, att)
			})
		},
	}
	cmd.Flags().StringVar(&kind, "tipo", string(models.ExpenseFuel), "COMBUSTIBLE, PEAJE, ALIMENTACION, HOSPEDAJE, MULTA u OTRO")
	cmd.Flags().Float64Var(&req.Amount, "monto", 0, "monto")
	cmd.Flags().StringVar(&req.PaymentMethod, "metodo", "EFECTIVO", "EFECTIVO, TRANSFERENCIA o TARJETA")
	cmd.Flags().StringVar(&req.Description, "descripcion", "", "descripción")
	cmd.Flags().StringVar(&date, "fecha", "", "fecha del gasto (por defecto hoy)")
	cmd.Flags().StringVar(&receipt, "comprobante", "", "archivo del comprobante")
	return cmd
}
