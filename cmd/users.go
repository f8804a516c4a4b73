package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/b13-niass/esign/client"
	"github.com/b13-niass/esign/pkg/clierr"
	"github.com/b13-niass/esign/pkg/pool"
	"github.com/b13-niass/esign/pkg/validation"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// usersCmd groups the user administration commands.
func usersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "users",
		Aliases:     []string{"user", "u"},
		Short:       "Administer user accounts",
		Annotations: requiresAuth(),
	}
	cmd.AddCommand(
		usersListCmd(a),
		usersToggleCmd(a, "activate", "Activate user accounts", func(ctx context.Context, id string) error {
			return a.api.ActivateUser(ctx, id)
		}),
		usersToggleCmd(a, "deactivate", "Deactivate user accounts", func(ctx context.Context, id string) error {
			return a.api.DeactivateUser(ctx, id)
		}),
		usersImportCmd(a),
		usersTemplateCmd(),
		rolesCmd(a),
		fonctionsCmd(a),
	)
	return cmd
}

func usersListCmd(a *app) *cobra.Command {
	var role, status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := a.api.ListUsers(cmd.Context(), strings.TrimSpace(role), strings.TrimSpace(status))
			if err != nil {
				return err
			}
			if len(users) == 0 {
				cmd.Println("No users found.")
				return nil
			}
			table := newTable(cmd.OutOrStdout(), "ID", "Nom", "Email", "Fonction", "Rôles", "Actif")
			for _, u := range users {
				active := "-"
				if u.Active != nil {
					active = yesNo(*u.Active)
				}
				table.Append([]string{u.ID.String(), u.FullName(), u.Email, u.Fonction, strings.Join(u.RolesLibelle, ", "), active})
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().StringVarP(&role, "role", "r", "", "Only list users with this role")
	cmd.Flags().StringVarP(&status, "status", "s", "", "Only list users with this status (e.g. active, inactive)")
	return cmd
}

func usersToggleCmd(a *app, use, short string, action func(context.Context, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [id...]",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBulk(cmd, args, action)
		},
	}
}

// usersImportCmd creates the accounts listed in a YAML import file.
func usersImportCmd(a *app) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Create users from a YAML import file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return clierr.New(clierr.Validation, fmt.Sprintf("cannot open %s", args[0]), err)
			}
			defer f.Close()

			users, err := client.ParseUserImport(f)
			if err != nil {
				return clierr.New(clierr.Validation, err.Error(), err)
			}
			var problems []error
			for i, u := range users {
				if u.Email == "" {
					continue
				}
				if err := validation.ValidateEmail(u.Email); err != nil {
					problems = append(problems, fmt.Errorf("entry %d: %w", i+1, err))
				}
			}
			if len(problems) > 0 {
				err := errors.Join(problems...)
				return clierr.New(clierr.Validation, err.Error(), err)
			}

			if dryRun {
				cmd.Printf("%d users would be created.\n", len(users))
				return nil
			}

			results := pool.Map(cmd.Context(), users, a.workers(), a.api.CreateUser)
			var failed int
			for _, r := range results {
				name := strings.TrimSpace(r.Item.Prenom + " " + r.Item.Nom)
				if r.Err != nil {
					failed++
					cmd.Printf("%s: failed: %v\n", name, describe(r.Err))
					continue
				}
				cmd.Printf("%s: created (%s)\n", name, r.Value.ID)
			}
			log.Info().Int("created", len(results)-failed).Int("failed", failed).Msg("User import finished")
			if err := cmd.Context().Err(); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d users could not be created", failed, len(users))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Only check the import file")
	return cmd
}

func usersTemplateCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:         "template",
		Short:       "Print the user import template",
		Args:        cobra.NoArgs,
		Annotations: offline(),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				cmd.Print(client.UserImportTemplate)
				return nil
			}
			if err := os.WriteFile(output, []byte(client.UserImportTemplate), 0o644); err != nil {
				return fmt.Errorf("failed to write template: %w", err)
			}
			cmd.Printf("Template written to %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the template to this file instead of stdout")
	return cmd
}

func rolesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "roles",
		Short: "List the roles that can be given to users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			roles, err := a.api.Roles(cmd.Context())
			if err != nil {
				return err
			}
			table := newTable(cmd.OutOrStdout(), "ID", "Libellé")
			for _, r := range roles {
				table.Append([]string{r.ID.String(), r.Libelle})
			}
			table.Render()
			return nil
		},
	}
}

func fonctionsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fonctions",
		Short: "List the organisational functions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fonctions, err := a.api.Fonctions(cmd.Context())
			if err != nil {
				return err
			}
			table := newTable(cmd.OutOrStdout(), "ID", "Acronyme", "Libellé")
			for _, f := range fonctions {
				table.Append([]string{f.ID.String(), f.Acronyme, f.Libelle})
			}
			table.Render()
			return nil
		},
	}
}
