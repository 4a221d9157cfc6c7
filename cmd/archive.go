package cmd

import (
	"fmt"
	"time"

	"github.com/lehigh-university-libraries/cardpress/internal/archive"
	"github.com/lehigh-university-libraries/cardpress/internal/pipeline"
	"github.com/lehigh-university-libraries/cardpress/internal/workspace"
	"github.com/spf13/cobra"
)

func newArchiveCmd(a *app) *cobra.Command {
	var dest string

	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Bundle the rendered cards of a working directory into a zip",
		Example: `  cardpress archive --dir output
  cardpress archive --dir output --dest cards.zip`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws := pipeline.Workspace(a.cfg, a.cfg.WorkDir)
			if dest == "" {
				dest = ws.Path(workspace.ArchiveName(time.Now()))
			}
			n, err := archive.Build(ws, dest)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Archived %d cards into %s\n", n, dest)
			return nil
		},
	}

	cmd.Flags().StringP("dir", "d", "", "Working directory holding rendered cards")
	cmd.Flags().StringVar(&dest, "dest", "", "Archive path (default <dir>/<timestamp>.zip)")
	a.bind(cmd, "work_dir", "dir")

	return cmd
}
