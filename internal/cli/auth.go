package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"deal-analyzer-client/internal/models"
	"deal-analyzer-client/internal/render"
)

func newLoginCmd(app func() *App) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			if password == "" {
				p, err := promptPassword(cmd)
				if err != nil {
					return err
				}
				password = p
			}
			snap, err := a.Session.Login(cmd.Context(), username, password)
			if err != nil {
				return a.fail("login", err)
			}
			a.println(fmt.Sprintf("Logged in as %s", snap.User.Username))
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "Username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (read from stdin when omitted)")
	return cmd
}

func newLogoutCmd(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			if err := a.Session.Logout(cmd.Context()); err != nil {
				return a.fail("logout", err)
			}
			a.println("Logged out")
			return nil
		},
	}
}

func newWhoamiCmd(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			return a.protect(cmd.Context(), "whoami", func(_ context.Context, u models.User) error {
				a.println(fmt.Sprintf("%s <%s> (id %d)", u.Username, u.Email, u.ID))
				return nil
			})
		},
	}
}

func newRegisterCmd(app func() *App) *cobra.Command {
	var reg models.Registration
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			if reg.Password == "" {
				p, err := promptPassword(cmd)
				if err != nil {
					return err
				}
				reg.Password = p
			}
			ack, err := a.Session.Register(cmd.Context(), reg)
			if err != nil {
				return a.fail("register", err)
			}
			msg := ack.Message
			if msg == "" {
				msg = "Account created"
			}
			a.println(msg + ". Run `dealctl login` to sign in.")
			return nil
		},
	}
	cmd.Flags().StringVarP(&reg.Username, "username", "u", "", "Username")
	cmd.Flags().StringVarP(&reg.Email, "email", "e", "", "Email address")
	cmd.Flags().StringVarP(&reg.Password, "password", "p", "", "Password (read from stdin when omitted)")
	return cmd
}

func newRefreshCmd(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the stored refresh token for a new access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			snap, err := a.Session.Refresh(cmd.Context())
			if err != nil {
				return a.fail("refresh", err)
			}
			if snap.User == nil {
				a.println(render.Error(snap.Err))
				return snap.Err
			}
			a.println(fmt.Sprintf("Token refreshed for %s", snap.User.Username))
			return nil
		},
	}
}

func readLine(r io.Reader) string {
	line, _ := bufio.NewReader(r).ReadString('\n')
	return strings.TrimRight(line, "\r\n")
}
