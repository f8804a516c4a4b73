package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func archiveCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "archive",
		Short:       "Archive signed documents",
		Annotations: requiresAuth(),
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Archive every signed document not archived yet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.api.ArchiveDocuments(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("Archived %d of %d documents.\n", len(res.SuccessfullyArchived), res.TotalDocuments)
			for _, name := range res.FailedToArchive {
				cmd.Printf("  failed: %s\n", name)
			}
			if len(res.FailedToArchive) > 0 {
				return fmt.Errorf("%d documents could not be archived", len(res.FailedToArchive))
			}
			return nil
		},
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show the signed and archived document counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := a.api.ArchiveStats(cmd.Context())
			if err != nil {
				return err
			}
			table := newTable(cmd.OutOrStdout(), "Signés", "Archivés")
			table.Append([]string{fmt.Sprint(stats.SignedDocuments), fmt.Sprint(stats.ArchivedDocuments)})
			table.Render()
			return nil
		},
	}

	cmd.AddCommand(runCmd, statsCmd)
	return cmd
}
