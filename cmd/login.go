package cmd

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/b13-niass/esign/auth"
	"github.com/b13-niass/esign/client"
	"github.com/b13-niass/esign/pkg/clierr"
	"github.com/b13-niass/esign/pkg/validation"
	"github.com/spf13/cobra"
)

// loginCmd signs in with email and password and stores the session.
func loginCmd(a *app) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the esign backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrompter(cmd)
			var err error
			if email == "" {
				if email, err = p.input("Email: "); err != nil {
					return err
				}
			}
			if err := validation.ValidateEmail(email); err != nil {
				return clierr.New(clierr.Validation, err.Error(), err)
			}
			password, err := p.password("Password: ")
			if err != nil {
				return err
			}
			if err := validation.ValidateNonEmptyString("password", password); err != nil {
				return clierr.New(clierr.Validation, err.Error(), err)
			}

			user, err := a.auth.SignIn(cmd.Context(), email, password)
			if err != nil {
				var apiErr *client.APIError
				if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusBadRequest) {
					msg := "invalid email or password"
					if apiErr.Message != "" {
						msg = apiErr.Message
					}
					return clierr.New(clierr.Auth, msg, err)
				}
				return err
			}
			name := user.FullName()
			if name == "" {
				name = email
			}
			cmd.Printf("Signed in as %s.\n", name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Email address (prompted when empty)")
	return cmd
}

func logoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.auth.SignOut(cmd.Context()); err != nil {
				return err
			}
			cmd.Println("Signed out.")
			return nil
		},
	}
}

// whoamiCmd shows the stored profile and the state of the access token.
func whoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "whoami",
		Short:       "Show the signed-in user",
		Args:        cobra.NoArgs,
		Annotations: requiresAuth(),
		RunE: func(cmd *cobra.Command, args []string) error {
			user := a.store.User()
			status, err := a.auth.Status(cmd.Context())
			if err != nil {
				return err
			}

			roles := user.RolesLibelle
			if len(roles) == 0 {
				for _, r := range user.Roles {
					roles = append(roles, r.Libelle)
				}
			}

			cmd.Printf("Name: %s\n", user.FullName())
			cmd.Printf("Email: %s\n", user.Email)
			if user.Fonction != "" {
				cmd.Printf("Fonction: %s\n", user.Fonction)
			}
			cmd.Printf("Roles: %s\n", strings.Join(roles, ", "))
			cmd.Printf("Administrateur: %s\n", yesNo(user.HasRole("ADMIN")))
			cmd.Printf("Token valid: %s\n", yesNo(status.Valid && a.store.TokenValid()))
			if !status.ExpiresAt.IsZero() {
				cmd.Printf("Token expires: %s (in %s)\n", status.ExpiresAt.Local().Format(time.RFC3339),
					time.Until(status.ExpiresAt).Round(time.Second))
			}
			return nil
		},
	}
}

var _ auth.Authenticator = (*client.API)(nil)
