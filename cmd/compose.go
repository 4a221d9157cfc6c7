package cmd

import (
	"fmt"

	"github.com/lehigh-university-libraries/cardpress/internal/pipeline"
	"github.com/spf13/cobra"
)

func newComposeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compose",
		Short: "Compose rendered cards into one journal PDF",
		Long: `Reads the card PDFs already in the working directory, orders them by their
order number, groups consecutive cards of one category under a colored banner
and writes journal.pdf plus a journal.yaml manifest. Cards are embedded as
they are, not re-rendered.`,
		Example: `  cardpress compose --dir output
  cardpress compose --dir output --cards-per-page 9`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws := pipeline.Workspace(a.cfg, a.cfg.WorkDir)
			res, err := pipeline.Compose(cmd.Context(), a.cfg, ws)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Composed %d cards on %d pages in %d categories\nJournal: %s\nManifest: %s\n",
				res.Cards, len(res.Pages), len(res.Colors), res.Path, res.ManifestPath)
			return nil
		},
	}

	cmd.Flags().StringP("dir", "d", "", "Working directory holding rendered cards")
	cmd.Flags().Int("cards-per-page", 15, "Cards per composite page")
	a.bind(cmd, "work_dir", "dir")
	a.bind(cmd, "journal.cards_per_page", "cards-per-page")

	return cmd
}
