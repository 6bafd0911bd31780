package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/ukydev/fleet-ops/internal/geocode"
)

func newGeocodeCmd(a *app) *cobra.Command {
	geo := geocode.New(geocode.Config{
		SearchURL: os.Getenv("FLEET_GEOCODE_URL"),
		RouteURL:  os.Getenv("FLEET_ROUTE_URL"),
	})

	var stats bool
	cmd := &cobra.Command{
		Use:   "geo",
		Short: "Buscar direcciones y estimar rutas",
		PersistentPostRun: func(*cobra.Command, []string) {
			if stats {
				printCacheStats(a.out, "búsquedas", geo.SearchStats())
				printCacheStats(a.out, "rutas", geo.RouteStats())
			}
		},
	}
	cmd.PersistentFlags().BoolVar(&stats, "stats", false, "mostrar el uso de la caché")
	cmd.AddCommand(&cobra.Command{
		Use:   "buscar TEXTO",
		Short: "Sugerencias de dirección",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			places := geo.Search(cmd.Context(), args[0])
			if len(places) == 0 {
				fmt.Fprintln(a.out, "Sin sugerencias")
				return nil
			}
			for _, p := range places {
				fmt.Fprintf(a.out, "%s (%.5f, %.5f)\n", p.Name, p.Lat, p.Lon)
			}
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "ruta ORIGEN DESTINO",
		Short: "Distancia y tiempo estimados",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from := geo.Search(cmd.Context(), args[0])
			to := geo.Search(cmd.Context(), args[1])
			if len(from) == 0 || len(to) == 0 {
				fmt.Fprintln(a.out, "Sin ruta")
				return nil
			}
			r := geo.Route(cmd.Context(), from[0], to[0])
			if r == nil {
				fmt.Fprintln(a.out, "Sin ruta")
				return nil
			}
			fmt.Fprintf(a.out, "%.1f km, %s\n", r.DistanceKm, r.Duration.Round(time.Minute))
			return nil
		},
	})
	return cmd
}

func printCacheStats(w io.Writer, name string, s geocode.CacheStats) {
	fmt.Fprintf(w, "Caché de %s: %d entradas, %d aciertos, %d fallos, %d expulsiones\n",
		name, s.Size, s.Hits, s.Misses, s.Evictions)
}
