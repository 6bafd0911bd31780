package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/ukydev/fleet-ops/internal/alerts"
	"github.com/ukydev/fleet-ops/internal/export"
	"github.com/ukydev/fleet-ops/internal/finance"
	"github.com/ukydev/fleet-ops/internal/models"
)

func money(v float64) string {
	return finance.Money(finance.Amount(v))
}

func newCarteraCmd(a *app) *cobra.Command {
	var csvPath string
	var fromServer bool
	cmd := &cobra.Command{
		Use:               "cartera",
		Short:             "Reporte de cartera por cliente",
		PersistentPreRunE: loggedIn(a),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if csvPath != "" && fromServer {
				return a.downloadCartera(cmd.Context(), csvPath)
			}

			report, err := a.client.Cartera(cmd.Context())
			if err != nil {
				return err
			}
			if csvPath != "" {
				return writeCSVFile(csvPath, export.CarteraFilename(report.GeneratedAt), func(w io.Writer) error {
					return export.CarteraCSV(w, report.Rows)
				}, a.out)
			}

			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(tw, "CLIENTE\tVIAJES\tSALDO\tPOR VENCER\t1-30\t31-60\t+60\t")
			for _, r := range append(report.Rows, report.Totals) {
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%s\t\n", r.ClientName, r.Trips, money(r.Outstanding),
					money(r.Current), money(r.Overdue30), money(r.Overdue60), money(r.Overdue61))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&csvPath, "csv", "", "exportar a CSV (archivo o directorio)")
	cmd.Flags().BoolVar(&fromServer, "servidor", false, "descargar el CSV generado por el servidor")
	return cmd
}

// writeCSVFile writes to path, or to defaultName inside path when path is
// a directory.
func writeCSVFile(path, defaultName string, render func(io.Writer) error, out io.Writer) error {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = path + string(os.PathSeparator) + defaultName
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(out, "Cartera exportada a %s\n", path)
	return nil
}

func (a *app) downloadCartera(ctx context.Context, path string) error {
	tmp, err := os.CreateTemp("", "cartera-*.csv")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	name, err := a.client.DownloadCartera(ctx, tmp)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	return writeCSVFile(path, name, func(w io.Writer) error {
		src, err := os.Open(tmp.Name())
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(w, src)
		return err
	}, a.out)
}

func (a *app) printAlerts(s models.AlertSummary) {
	fmt.Fprintf(a.out, "[%s] alertas: %d\n", time.Now().Format("15:04:05"), s.Total())
	fmt.Fprintf(a.out, "  Pagos vencidos:                 %d\n", s.OverduePayments)
	fmt.Fprintf(a.out, "  Pagos por vencer:               %d\n", s.DueSoonPayments)
	fmt.Fprintf(a.out, "  Pagos a choferes pendientes:    %d\n", s.PendingDriverPay)
	fmt.Fprintf(a.out, "  Viajes en curso:                %d\n", s.TripsInProgress)
	fmt.Fprintf(a.out, "  Viajes planificados atrasados:  %d\n", s.PlannedOverdueTrip)
	fmt.Fprintf(a.out, "  Vehículos en mantenimiento:     %d\n", s.VehiclesInShop)
}

func newAlertsCmd(a *app) *cobra.Command {
	var watch time.Duration
	cmd := &cobra.Command{
		Use:               "alertas",
		Short:             "Resumen de alertas",
		PersistentPreRunE: loggedIn(a),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if watch <= 0 {
				s, err := a.client.Alerts(cmd.Context())
				if err != nil {
					return err
				}
				a.printAlerts(s)
				return nil
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			err := alerts.NewPoller(a.client, watch, a.printAlerts).Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().DurationVar(&watch, "watch", 0, "refrescar cada intervalo (p. ej. 1m)")
	return cmd
}

func newAuditCmd(a *app) *cobra.Command {
	var page, limit int
	cmd := &cobra.Command{
		Use:               "auditoria",
		Short:             "Registro de auditoría (solo AUDITOR)",
		PersistentPreRunE: loggedIn(a),
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := a.client.Audit(cmd.Context(), page, limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FECHA\tUSUARIO\tACCION\tENTIDAD\tIP")
			for _, e := range p.Entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s %s\t%s\n", e.CreatedAt.Format("2006-01-02 15:04"), e.Username,
					e.Action, e.Entity, e.EntityID, e.IP)
			}
			tw.Flush()
			fmt.Fprintf(a.out, "Página %d de %d\n", p.Page.Page, p.Page.TotalPages)
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "pagina", 1, "página")
	cmd.Flags().IntVar(&limit, "limite", 20, "entradas por página")
	return cmd
}
