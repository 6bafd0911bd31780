// Command fleetctl is the terminal client of the fleet API.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/ukydev/fleet-ops/internal/apiclient"
	"github.com/ukydev/fleet-ops/internal/logging"
	"github.com/ukydev/fleet-ops/internal/session"
)

// app holds what every command needs. It is built once per invocation.
type app struct {
	apiURL      string
	sessionFile string
	assumeYes   bool
	logLevel    string

	in      io.Reader
	out     io.Writer
	errOut  io.Writer
	session *session.Manager
	client  *apiclient.Client
}

// terminalNotifier prints notifications on stderr.
type terminalNotifier struct {
	w io.Writer
}

func (n terminalNotifier) Notify(msg string) {
	fmt.Fprintf(n.w, "! %s\n", msg)
}

func (n terminalNotifier) RedirectToLogin() {
	fmt.Fprintln(n.w, "Ejecute 'fleetctl login' para iniciar sesión nuevamente.")
}

// Confirm asks a yes/no question on the terminal.
func (a *app) Confirm(prompt string) bool {
	if a.assumeYes {
		return true
	}
	fmt.Fprintf(a.out, "%s [s/N]: ", prompt)
	line, _ := bufio.NewReader(a.in).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "s", "si", "sí", "y", "yes":
		return true
	}
	return false
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func (a *app) setup() error {
	logging.Setup(a.logLevel, "text")
	log.SetOutput(a.errOut)

	a.session = session.NewManager(session.NewFileStore(a.sessionFile))
	if err := a.session.Hydrate(); err != nil {
		log.WithError(err).Warn("Ignoring unreadable session file")
	}
	a.client = apiclient.New(a.apiURL, a.session, terminalNotifier{w: a.errOut})
	return nil
}

func (a *app) requireLogin() error {
	if !a.session.Authenticated() {
		return fmt.Errorf("no hay sesión activa, ejecute 'fleetctl login'")
	}
	return nil
}

// loggedIn is the pre-run hook of commands that need a session. Cobra runs
// only the nearest persistent hook, so it repeats the root setup.
func loggedIn(a *app) func(*cobra.Command, []string) error {
	return func(*cobra.Command, []string) error {
		if err := a.setup(); err != nil {
			return err
		}
		return a.requireLogin()
	}
}

func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	a := &app{in: in, out: out, errOut: errOut}

	root := &cobra.Command{
		Use:           "fleetctl",
		Short:         "Cliente de terminal para la gestión de viajes de la flota",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&a.apiURL, "api", envOr("FLEET_API_URL", "http://localhost:8080/api"), "URL base de la API")
	flags.StringVar(&a.sessionFile, "session", envOr("FLEET_SESSION_FILE", session.DefaultPath()), "archivo de sesión")
	flags.BoolVarP(&a.assumeYes, "yes", "y", false, "responder sí a las confirmaciones")
	flags.StringVar(&a.logLevel, "log-level", envOr("LOG_LEVEL", "warn"), "nivel de log")

	root.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newTripsCmd(a),
		newCarteraCmd(a),
		newAlertsCmd(a),
		newAuditCmd(a),
		newGeocodeCmd(a),
	)
	return root
}

func main() {
	root := newRootCmd(os.Stdin, os.Stdout, os.Stderr)
	if err := root.Execute(); err != nil {
		// already shown by the API client
		if !apiclient.IsNotified(err) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
