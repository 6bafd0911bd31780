package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newLoginCmd(a *app) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Iniciar sesión",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				password = os.Getenv("FLEET_PASSWORD")
			}
			if password == "" {
				fmt.Fprint(a.out, "Contraseña: ")
				line, _ := bufio.NewReader(a.in).ReadString('\n')
				password = strings.TrimRight(line, "\r\n")
			}
			s, err := a.session.Login(cmd.Context(), a.client, username, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Sesión iniciada como %s (%s)\n", s.User.Username, s.User.Role)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "usuario")
	cmd.Flags().StringVarP(&password, "password", "p", "", "contraseña (o FLEET_PASSWORD)")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Cerrar sesión",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.session.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Sesión cerrada")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Mostrar el usuario de la sesión",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			user, err := a.client.Profile(cmd.Context())
			if err != nil {
				return err
			}
			access := "solo lectura"
			if a.session.CanWrite() {
				access = "lectura y escritura"
			}
			fmt.Fprintf(a.out, "%s (%s) - %s\n", user.Username, user.Role, access)
			return nil
		},
	}
}
