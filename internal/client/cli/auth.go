package cli

import (
	"fmt"

	"flashcards/internal/client/config"
	"flashcards/internal/client/events"
	"flashcards/internal/client/query"
	"flashcards/internal/client/services"

	"github.com/spf13/cobra"
)

func (c *cli) newRegisterCmd() *cobra.Command {
	var in services.RegisterInput
	cmd := &cobra.Command{
		Use:         "register",
		Short:       "Create an account and log in",
		Args:        cobra.NoArgs,
		Annotations: public,
		RunE: func(cmd *cobra.Command, args []string) error {
			if in.Password == "" {
				var err error
				if in.Password, err = readSecret(cmd, "Password: "); err != nil {
					return err
				}
				if in.ConfirmPassword, err = readSecret(cmd, "Confirm password: "); err != nil {
					return err
				}
			} else if in.ConfirmPassword == "" {
				in.ConfirmPassword = in.Password
			}

			if err := c.app.svc.Auth.Register(cmd.Context(), in); err != nil {
				return err
			}
			c.app.bus.PublishType(events.EventLoggedIn)
			fmt.Fprintf(cmd.OutOrStdout(), "Registered and logged in as %s\n", in.Email)
			return nil
		},
	}
	cmd.Flags().StringVarP(&in.Username, "username", "u", "", "username (at least 3 characters)")
	cmd.Flags().StringVarP(&in.Email, "email", "e", "", "email address")
	cmd.Flags().StringVarP(&in.Password, "password", "p", "", "password (prompted when omitted)")
	cmd.Flags().StringVar(&in.ConfirmPassword, "confirm-password", "", "password confirmation")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (c *cli) newLoginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:         "login",
		Short:       "Log in and save the access token",
		Args:        cobra.NoArgs,
		Annotations: public,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				var err error
				if password, err = readSecret(cmd, "Password: "); err != nil {
					return err
				}
			}

			token, err := c.app.svc.Auth.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			c.app.cache.Clear()
			c.app.bus.PublishType(events.EventLoggedIn)

			if token == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "Logged in, but the server returned no token.")
				return nil
			}
			path, _ := config.GetConfigPath()
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in. Token saved to %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "email address")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (c *cli) newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "logout",
		Short:       "Forget the saved access token",
		Args:        cobra.NoArgs,
		Annotations: public,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.svc.Auth.Logout(); err != nil {
				return err
			}
			c.app.cache.Clear()
			c.app.bus.PublishType(events.EventLoggedOut)
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func (c *cli) newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the API endpoint and whether the saved session works",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			path, _ := config.GetConfigPath()
			fmt.Fprintf(out, "%-16s%s\n", "API", c.app.baseURL)
			fmt.Fprintf(out, "%-16s%s\n", "Config", path)

			if !c.app.svc.Auth.IsAuthenticated() {
				fmt.Fprintf(out, "%-16s%s\n", "Session", "not logged in")
				return nil
			}

			decks, err := query.Decks(cmd.Context(), c.app.cache)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%-16s%s\n", "Session", "active")
			fmt.Fprintf(out, "%-16s%d\n", "Decks", len(decks))
			return nil
		},
	}
}
