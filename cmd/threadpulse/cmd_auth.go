package main

import (
	"fmt"

	"github.com/pscheid92/threadpulse/internal/domain"
	"github.com/spf13/cobra"
)

var (
	regName  string
	email    string
	password string
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		user, err := client.Register(cmd.Context(), domain.Registration{
			Name:     regName,
			Email:    email,
			Password: password,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Registered %s (%s)\n", user.Name, user.ID)
		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and print a bearer token",
	Long: `Sign in and print a bearer token on stdout, for example:

  export THREADPULSE_TOKEN=$(threadpulse login --email ada@example.com --password ...)`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		tok, err := client.Login(cmd.Context(), domain.Credentials{Email: email, Password: password})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Revoke the current token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if !client.HasToken() {
			return fmt.Errorf("logout: %w", domain.ErrUnauthenticated)
		}
		return client.Logout(cmd.Context())
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if !client.HasToken() {
			fmt.Fprintln(cmd.OutOrStdout(), "anonymous")
			return nil
		}
		user, err := client.Me(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> (%s)\n", user.Name, user.Email, user.ID)
		return nil
	},
}

func init() {
	registerCmd.Flags().StringVar(&regName, "name", "", "Display name")
	for _, c := range []*cobra.Command{registerCmd, loginCmd} {
		c.Flags().StringVar(&email, "email", "", "Email address")
		c.Flags().StringVar(&password, "password", "", "Password")
		_ = c.MarkFlagRequired("email")
		_ = c.MarkFlagRequired("password")
	}
	_ = registerCmd.MarkFlagRequired("name")
}
