package commands

import (
	"studyhub-backend/lib/platforms/canvas"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newCurrentCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "current [--state <state>]",
		Short: "Prints the courses the student is actively enrolled in.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := g.canvasClient()
			if err != nil {
				return err
			}
			courses, err := client.ListCourses(cmd.Context(), g.cfg.EnrollmentState)
			if err != nil {
				return err
			}

			t := newTable(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Class"})
			for _, name := range canvas.CurrentCourseNames(courses) {
				t.AppendRow(table.Row{name})
			}
			t.Render()
			return nil
		},
	}
}
