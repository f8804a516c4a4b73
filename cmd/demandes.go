package cmd

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/b13-niass/esign/client"
	"github.com/b13-niass/esign/pkg/clierr"
	"github.com/b13-niass/esign/pkg/hasher"
	"github.com/b13-niass/esign/pkg/pool"
	"github.com/b13-niass/esign/pkg/validation"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// demandesCmd groups the signature request commands.
func demandesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "demandes",
		Aliases:     []string{"demande", "d"},
		Short:       "Manage signature requests",
		Annotations: requiresAuth(),
	}

	cmd.AddCommand(
		demandesListCmd(a),
		demandesShowCmd(a),
		demandesCreateCmd(a),
		demandesActionCmd(a, "sign", "Sign demandes as the current user", a.signDemande),
		demandesActionCmd(a, "approve", "Approve demandes as the current user", a.approveDemande),
		demandesRefuseCmd(a),
		dashboardCmd(a),
	)
	return cmd
}

type listedDemande struct {
	client.Demande
	direction string
}

func demandesListCmd(a *app) *cobra.Command {
	var sent, all, actionable, late bool
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List received or sent demandes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := validation.ValidateStatus(statusFilter)
			if err != nil {
				return clierr.New(clierr.Validation, err.Error(), err)
			}

			listed, err := a.fetchDemandes(cmd.Context(), !sent || all, sent || all, func(ds []client.Demande) []client.Demande {
				ds = client.FilterByStatus(ds, status)
				if actionable {
					ds = client.Actionable(ds)
				}
				return ds
			})
			if err != nil {
				return err
			}

			now := time.Now()
			rows := listed[:0]
			for _, d := range listed {
				if late && !d.Late(now) {
					continue
				}
				rows = append(rows, d)
			}

			if len(rows) == 0 {
				cmd.Println("No demandes found.")
				return nil
			}

			table := newTable(cmd.OutOrStdout(), "ID", "Titre", "Statut", "Priorité", "Date limite", "Sens", "Action")
			for _, d := range rows {
				table.Append([]string{
					d.ID.String(),
					oneLine(d.Titre),
					d.Status.Label(),
					string(d.Priority),
					formatDate(d.DateLimite),
					d.direction,
					pendingAction(d.Demande),
				})
			}
			table.Render()
			log.Info().Int("count", len(rows)).Msg("Listed demandes")
			return nil
		},
	}

	cmd.Flags().BoolVar(&sent, "sent", false, "List the demandes you sent instead of the ones you received")
	cmd.Flags().BoolVarP(&all, "all", "A", false, "List both received and sent demandes")
	cmd.Flags().StringVarP(&statusFilter, "status", "s", "", "Only show demandes with this status (e.g. EN_ATTENTE_SIGNATURE)")
	cmd.Flags().BoolVar(&actionable, "actionable", false, "Only show demandes waiting for your signature or approval")
	cmd.Flags().BoolVar(&late, "late", false, "Only show unfinished demandes past their date limite")
	return cmd
}

// fetchDemandes loads the received and sent lists concurrently and applies
// filter to each of them.
func (a *app) fetchDemandes(ctx context.Context, received, sent bool, filter func([]client.Demande) []client.Demande) ([]listedDemande, error) {
	var recues, envoyees []client.Demande
	g, gctx := errgroup.WithContext(ctx)
	if received {
		g.Go(func() (err error) {
			recues, err = a.api.ListReceived(gctx)
			return err
		})
	}
	if sent {
		g.Go(func() (err error) {
			envoyees, err = a.api.ListSent(gctx)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	recues, envoyees = filter(recues), filter(envoyees)
	out := make([]listedDemande, 0, len(recues)+len(envoyees))
	for _, d := range recues {
		out = append(out, listedDemande{Demande: d, direction: "reçue"})
	}
	for _, d := range envoyees {
		out = append(out, listedDemande{Demande: d, direction: "envoyée"})
	}
	return out, nil
}

func pendingAction(d client.Demande) string {
	switch {
	case d.CanApprove():
		return "à approuver"
	case d.CanSign():
		return "à signer"
	}
	return ""
}

func demandesShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Show a demande and its participants",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			d, err := a.api.GetDemande(ctx, args[0])
			if err != nil {
				return err
			}

			cmd.Printf("ID: %s\n", d.ID)
			cmd.Printf("Titre: %s\n", d.Titre)
			if d.Description != "" {
				cmd.Printf("Description: %s\n", oneLine(d.Description))
			}
			cmd.Printf("Statut: %s\n", d.Status.Label())
			cmd.Printf("Priorité: %s\n", d.Priority)
			cmd.Printf("Créée le: %s\n", formatDate(d.DateCreated))
			cmd.Printf("Date limite: %s\n", formatDate(d.DateLimite))
			if action := pendingAction(d); action != "" {
				cmd.Printf("Action attendue: %s\n", action)
			}
			if p, ok := d.CurrentSigner(); ok {
				cmd.Printf("En attente de: %s\n", p.DisplayName())
			}

			doc, err := a.api.DemandeDocument(ctx, args[0])
			switch {
			case err == nil:
				cmd.Printf("Document: %s\n", doc.Nom)
			case client.IsNotFound(err):
			default:
				log.Warn().Err(err).Msg("Failed to fetch the demande document")
			}

			table := newTable(cmd.OutOrStdout(), "Rôle", "Ordre", "Nom", "Email", "Signé")
			groups := []struct {
				role         string
				participants []client.Participant
			}{
				{"approbateur", d.Approbateurs},
				{"signataire", d.Signataires},
				{"ampliateur", d.Ampliateurs},
			}
			for _, g := range groups {
				ps := append([]client.Participant(nil), g.participants...)
				sort.SliceStable(ps, func(i, j int) bool { return ps[i].Ordre < ps[j].Ordre })
				for _, p := range ps {
					table.Append([]string{g.role, fmt.Sprint(p.Ordre), p.DisplayName(), p.Email, yesNo(p.HasSigned)})
				}
			}
			table.Render()
			return nil
		},
	}
}

func demandesCreateCmd(a *app) *cobra.Command {
	var d client.NewDemande
	var priority, dateLimite string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Upload a document and create a demande",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var problems []error
			if priority != "" {
				p, err := validation.ValidatePriority(priority)
				if err != nil {
					problems = append(problems, err)
				}
				d.Priority = p
			}
			if dateLimite != "" {
				t, err := time.ParseInLocation(dateLayout, dateLimite, time.Local)
				if err != nil {
					problems = append(problems, fmt.Errorf("invalid date limite %q (expected YYYY-MM-DD)", dateLimite))
				} else {
					// The whole day is allowed.
					d.DateLimite = t.Add(24*time.Hour - time.Second)
				}
			}
			if err := validation.ValidateDemande(d, time.Now()); err != nil {
				problems = append(problems, err)
			}
			if len(problems) > 0 {
				err := errors.Join(problems...)
				return clierr.New(clierr.Validation, err.Error(), err)
			}

			sum, err := hasher.GenerateHash(d.FilePath, hasher.DefaultAlgo)
			if err != nil {
				return clierr.New(clierr.Validation, "failed to read the document", err)
			}

			created, err := a.api.CreateDemande(cmd.Context(), d, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			cmd.Printf("Demande %s created.\n", created.ID)
			cmd.Printf("%s: %s\n", hasher.DefaultAlgo, sum)
			return nil
		},
	}

	cmd.Flags().StringVarP(&d.FilePath, "file", "f", "", "Document to sign (required)")
	cmd.Flags().StringVarP(&d.Titre, "titre", "t", "", "Title of the demande (required)")
	cmd.Flags().StringVarP(&d.Description, "description", "d", "", "Description")
	cmd.Flags().StringVarP(&priority, "priority", "p", "moyenne", "Priority [faible, moyenne, haute]")
	cmd.Flags().StringVar(&dateLimite, "date-limite", "", "Deadline as YYYY-MM-DD")
	cmd.Flags().StringSliceVarP(&d.Signataires, "signataire", "s", nil, "User id of a signataire, in signing order (repeatable)")
	cmd.Flags().StringSliceVarP(&d.Approbateurs, "approbateur", "a", nil, "User id of an approbateur, in order (repeatable)")
	cmd.Flags().StringSliceVar(&d.Ampliateurs, "ampliateur", nil, "User id of an ampliateur (repeatable)")
	cmd.Flags().StringSliceVar(&d.Attachments, "attachment", nil, "Additional file attached to the demande (repeatable)")
	return cmd
}

func (a *app) signDemande(ctx context.Context, id string) error {
	return a.api.SignDemande(ctx, id)
}

func (a *app) approveDemande(ctx context.Context, id string) error {
	return a.api.ApproveDemande(ctx, id)
}

// demandesActionCmd builds a command applying action to every id concurrently.
func demandesActionCmd(a *app, use, short string, action func(context.Context, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [id...]",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBulk(cmd, args, action)
		},
	}
}

// runBulk runs action on ids with the configured number of workers and
// prints one line per id.
func (a *app) runBulk(cmd *cobra.Command, ids []string, action func(context.Context, string) error) error {
	results := pool.Map(cmd.Context(), ids, a.workers(), func(ctx context.Context, id string) (struct{}, error) {
		return struct{}{}, action(ctx, id)
	})

	var errs []error
	for _, r := range results {
		if r.Err != nil {
			cmd.Printf("%s: failed: %v\n", r.Item, describe(r.Err))
			errs = append(errs, r.Err)
			continue
		}
		cmd.Printf("%s: ok\n", r.Item)
	}
	if err := cmd.Context().Err(); err != nil {
		return err
	}
	if len(errs) > 0 {
		return fmt.Errorf("%d of %d operations failed: %w", len(errs), len(ids), errors.Join(errs...))
	}
	return nil
}

func demandesRefuseCmd(a *app) *cobra.Command {
	var motif string
	cmd := &cobra.Command{
		Use:   "refuse [id]",
		Short: "Refuse a demande",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.api.RefuseDemande(cmd.Context(), args[0], strings.TrimSpace(motif)); err != nil {
				return err
			}
			cmd.Printf("Demande %s refused.\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVarP(&motif, "motif", "m", "", "Reason for the refusal")
	return cmd
}

func dashboardCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show the signature counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.api.Dashboard(cmd.Context())
			if err != nil {
				return err
			}
			table := newTable(cmd.OutOrStdout(), "Signées", "En attente", "En retard", "Utilisateurs")
			table.Append([]string{fmt.Sprint(d.Signed), fmt.Sprint(d.Pending), fmt.Sprint(d.Late), fmt.Sprint(d.TotalUsers)})
			table.Render()
			return nil
		},
	}
}
