package cmd

import (
	"fmt"
	"log/slog"

	"github.com/lehigh-university-libraries/cardpress/internal/pipeline"
	"github.com/spf13/cobra"
)

func newRenderCmd(a *app) *cobra.Command {
	var (
		input        string
		keepExisting bool
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render one card PDF per spreadsheet row and archive them",
		Long: `Reads the records spreadsheet, renders every row with a recognized type
through its HTML template in a headless browser, writes one PDF per card into
the working directory and bundles them into a timestamped zip.

Rows with an unknown type, a missing template or a missing logo are skipped
and reported. Any rendering failure stops the run.`,
		Example: `  # Render cards into ./output
  cardpress render --input promocoes.xlsx

  # Render into another directory with four browser tabs
  cardpress render --input promocoes.csv --out build --workers 4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			engine := pipeline.NewEngine(cfg)
			defer engine.Close()

			ws := pipeline.Workspace(cfg, cfg.WorkDir)
			gen := pipeline.NewGenerator(cfg, engine)
			out, err := gen.Generate(cmd.Context(), input, ws, keepExisting, nil)
			if out != nil {
				for _, d := range out.Dropped {
					slog.Warn("Row not rendered", "row", d.Row, "reason", d.Reason)
				}
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Rendered %d cards (%d rows skipped)\nArchive: %s\n", len(out.Cards), len(out.Dropped), out.ArchivePath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Records file (.xlsx, .csv, .parquet, .jsonl)")
	cmd.Flags().StringP("out", "o", "", "Working directory for rendered cards")
	cmd.Flags().Int("workers", 1, "Cards rendered in parallel")
	cmd.Flags().BoolVar(&keepExisting, "keep-existing", false, "Keep cards from earlier runs in the working directory")
	_ = cmd.MarkFlagRequired("input")
	a.bind(cmd, "work_dir", "out")
	a.bind(cmd, "render.workers", "workers")

	return cmd
}
